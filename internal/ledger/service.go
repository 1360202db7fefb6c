package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/mercata/mercata-backend/pkg/db"
	"github.com/mercata/mercata-backend/pkg/db/models"
	"github.com/mercata/mercata-backend/pkg/enums"
	pkgerrors "github.com/mercata/mercata-backend/pkg/errors"
	"github.com/mercata/mercata-backend/pkg/logger"
	"github.com/mercata/mercata-backend/pkg/outbox"
	"github.com/mercata/mercata-backend/pkg/outbox/payloads"
)

// Balance is the ledger-derived view of a store's funds in one currency.
// Available may go negative when refunds exceed uncleared earnings; AmountDue
// surfaces that debt and suppresses payouts until new earnings cover it.
type Balance struct {
	StoreID        uuid.UUID
	Currency       enums.Currency
	AvailableCents int64
	PendingCents   int64
	CurrentCents   int64
	AmountDueCents int64
	LastPayoutAt   *time.Time
}

// AppendEntryInput captures the immutable data a balance entry requires.
type AppendEntryInput struct {
	StoreID        uuid.UUID
	Type           enums.BalanceEntryType
	AmountCents    int64
	Currency       enums.Currency
	OrderID        *uuid.UUID
	OrderPaymentID *uuid.UUID
	PayoutID       *uuid.UUID
	DedupeKey      string
	Description    string
}

// Service is the append-and-derive seller balance ledger.
type Service interface {
	AppendEntry(ctx context.Context, tx *gorm.DB, input AppendEntryInput) (*models.SellerBalanceEntry, error)
	ComputeBalance(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, currency enums.Currency, now time.Time) (*Balance, error)
	RefreshSnapshot(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, currency enums.Currency, now time.Time) (*Balance, error)
	GetBalanceSummary(ctx context.Context, storeID uuid.UUID, currency enums.Currency) (*Balance, error)
	RefundedTotal(ctx context.Context, orderPaymentID uuid.UUID) (int64, error)
	SetLastPayoutAt(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, currency enums.Currency, at time.Time) error
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo          Repository
	db            dbpkg.TxRunner
	outbox        outboxEmitter
	logg          *logger.Logger
	clearingDelay time.Duration
}

// NewService wires the ledger service. clearingDelay is the window during
// which payment and fee entries count as pending rather than available.
func NewService(repo Repository, db dbpkg.TxRunner, ob outboxEmitter, logg *logger.Logger, clearingDelay time.Duration) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if db == nil {
		return nil, fmt.Errorf("database client required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if clearingDelay <= 0 {
		return nil, fmt.Errorf("clearing delay must be positive")
	}
	return &service{
		repo:          repo,
		db:            db,
		outbox:        ob,
		logg:          logg,
		clearingDelay: clearingDelay,
	}, nil
}

// AppendEntry inserts one immutable ledger row inside the caller's
// transaction. A duplicate dedupe key means the movement was already applied
// and surfaces as CONFLICT so callers can treat the retry as a no-op.
func (s *service) AppendEntry(ctx context.Context, tx *gorm.DB, input AppendEntryInput) (*models.SellerBalanceEntry, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if input.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid balance entry type %q", input.Type))
	}
	if input.AmountCents == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entry amount must be non-zero")
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid currency %q", input.Currency))
	}

	entry := &models.SellerBalanceEntry{
		StoreID:        input.StoreID,
		Type:           input.Type,
		AmountCents:    input.AmountCents,
		Currency:       input.Currency,
		OrderID:        input.OrderID,
		OrderPaymentID: input.OrderPaymentID,
		PayoutID:       input.PayoutID,
		Description:    input.Description,
	}
	if input.DedupeKey != "" {
		key := input.DedupeKey
		entry.DedupeKey = &key
	}

	if err := s.repo.WithTx(tx).CreateEntry(ctx, entry); err != nil {
		if dbpkg.IsUniqueViolation(err, "dedupe_key") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "ledger entry already applied")
		}
		return nil, err
	}
	return entry, nil
}

// ComputeBalance replays every entry for the store and currency. Payment and
// fee entries younger than the clearing delay accrue to pending; everything
// else hits available immediately.
func (s *service) ComputeBalance(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, currency enums.Currency, now time.Time) (*Balance, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}
	entries, err := repo.ListEntries(ctx, storeID, currency)
	if err != nil {
		return nil, err
	}

	balance := &Balance{StoreID: storeID, Currency: currency}
	for _, entry := range entries {
		if entry.Type.ClearsAfterDelay() && now.Sub(entry.CreatedAt) < s.clearingDelay {
			balance.PendingCents += entry.AmountCents
			continue
		}
		balance.AvailableCents += entry.AmountCents
	}
	balance.CurrentCents = balance.AvailableCents + balance.PendingCents
	if balance.AvailableCents < 0 {
		balance.AmountDueCents = -balance.AvailableCents
	}
	return balance, nil
}

// RefreshSnapshot recomputes the balance and writes it to the snapshot row.
// Called inside the same transaction as every ledger write.
func (s *service) RefreshSnapshot(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, currency enums.Currency, now time.Time) (*Balance, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	balance, err := s.ComputeBalance(ctx, tx, storeID, currency, now)
	if err != nil {
		return nil, err
	}
	snapshot := &models.SellerBalance{
		StoreID:        storeID,
		Currency:       currency,
		AvailableCents: balance.AvailableCents,
		PendingCents:   balance.PendingCents,
		UpdatedAt:      now,
	}
	if err := s.repo.WithTx(tx).UpsertSnapshot(ctx, snapshot); err != nil {
		return nil, err
	}
	return balance, nil
}

// GetBalanceSummary serves the balance read interface. The ledger replay is
// authoritative; when the cached snapshot disagrees it is rewritten and the
// recovery is reported so operators can chase the missed refresh.
func (s *service) GetBalanceSummary(ctx context.Context, storeID uuid.UUID, currency enums.Currency) (*Balance, error) {
	now := time.Now()
	balance, err := s.ComputeBalance(ctx, nil, storeID, currency, now)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.repo.GetSnapshot(ctx, storeID, currency)
	if err != nil {
		return nil, err
	}
	if snapshot != nil {
		balance.LastPayoutAt = snapshot.LastPayoutAt
	}

	if snapshot == nil ||
		snapshot.AvailableCents != balance.AvailableCents ||
		snapshot.PendingCents != balance.PendingCents {
		if healErr := s.healSnapshot(ctx, storeID, currency, snapshot, balance, now); healErr != nil {
			s.logg.Error(s.logg.WithStoreID(ctx, storeID.String()), "balance snapshot heal failed", healErr)
		}
	}

	return balance, nil
}

func (s *service) RefundedTotal(ctx context.Context, orderPaymentID uuid.UUID) (int64, error) {
	if orderPaymentID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "order payment id is required")
	}
	total, err := s.repo.SumByTypeForPayment(ctx, orderPaymentID, enums.BalanceEntryTypeRefund)
	if err != nil {
		return 0, err
	}
	// Refund entries are debits; report the refunded amount as a positive.
	if total < 0 {
		total = -total
	}
	return total, nil
}

// SetLastPayoutAt stamps the snapshot row after a completed payout.
func (s *service) SetLastPayoutAt(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, currency enums.Currency, at time.Time) error {
	if tx == nil {
		return fmt.Errorf("transaction required")
	}
	return s.repo.WithTx(tx).SetLastPayoutAt(ctx, storeID, currency, at)
}

func (s *service) healSnapshot(ctx context.Context, storeID uuid.UUID, currency enums.Currency, stale *models.SellerBalance, fresh *Balance, now time.Time) error {
	var staleAvailable, stalePending int64
	if stale != nil {
		staleAvailable = stale.AvailableCents
		stalePending = stale.PendingCents
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"store_id":           storeID.String(),
		"currency":           currency,
		"snapshot_available": staleAvailable,
		"replay_available":   fresh.AvailableCents,
		"snapshot_pending":   stalePending,
		"replay_pending":     fresh.PendingCents,
	})
	if stale != nil {
		s.logg.Warn(logCtx, "balance snapshot diverged from ledger replay, healing")
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.RefreshSnapshot(ctx, tx, storeID, currency, now); err != nil {
			return err
		}
		if stale == nil {
			return nil
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBalanceRecovered,
			AggregateType: enums.AggregateStore,
			AggregateID:   storeID,
			Version:       1,
			Data: payloads.BalanceSnapshotRecoveredEvent{
				StoreID:                storeID,
				Currency:               string(currency),
				SnapshotAvailableCents: staleAvailable,
				ReplayAvailableCents:   fresh.AvailableCents,
				SnapshotPendingCents:   stalePending,
				ReplayPendingCents:     fresh.PendingCents,
				RecoveredAt:            now,
			},
		})
	})
}

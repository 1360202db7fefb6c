package payouts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercata/mercata-backend/internal/ledger"
	"github.com/mercata/mercata-backend/internal/stores"
	"github.com/mercata/mercata-backend/pkg/config"
	dbpkg "github.com/mercata/mercata-backend/pkg/db"
	"github.com/mercata/mercata-backend/pkg/db/models"
	"github.com/mercata/mercata-backend/pkg/enums"
	pkgerrors "github.com/mercata/mercata-backend/pkg/errors"
	"github.com/mercata/mercata-backend/pkg/gateway"
	"github.com/mercata/mercata-backend/pkg/logger"
	"github.com/mercata/mercata-backend/pkg/outbox"
	"github.com/mercata/mercata-backend/pkg/outbox/payloads"
)

// Outcome classifies one executor run for a store.
type Outcome string

const (
	OutcomeSkipped   Outcome = "skipped"
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
)

// Skip reasons surfaced in results and logs.
const (
	SkipReasonAmountDue            = "amount_due"
	SkipReasonBelowMinimum         = "below_minimum"
	SkipReasonNoPayoutAccount      = "no_payout_account"
	SkipReasonProcessorUnavailable = "processor_balance_unavailable"
)

// ExecutionResult reports what the executor did for one store.
type ExecutionResult struct {
	Outcome     Outcome
	SkipReason  string
	AmountCents int64
	Payout      *models.SellerPayout
}

// Executor runs the payout gate sequence for a single store and dispatches
// the payout when every gate passes.
type Executor interface {
	Execute(ctx context.Context, storeID uuid.UUID, now time.Time) (*ExecutionResult, error)
	RequestManualPayout(ctx context.Context, storeID uuid.UUID) (*ExecutionResult, error)
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type executor struct {
	db       dbpkg.TxRunner
	repo     Repository
	stores   stores.Service
	ledger   ledger.Service
	gateway  gateway.PaymentGateway
	outbox   outboxEmitter
	logg     *logger.Logger
	cfg      config.PayoutConfig
	provider string
}

// NewExecutor wires the payout executor.
func NewExecutor(
	db dbpkg.TxRunner,
	repo Repository,
	storeSvc stores.Service,
	ledgerSvc ledger.Service,
	gw gateway.PaymentGateway,
	ob outboxEmitter,
	logg *logger.Logger,
	cfg config.PayoutConfig,
	provider string,
) (Executor, error) {
	if db == nil {
		return nil, fmt.Errorf("database client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("payout repository required")
	}
	if storeSvc == nil {
		return nil, fmt.Errorf("store service required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if gw == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if provider == "" {
		return nil, fmt.Errorf("provider name required")
	}
	return &executor{
		db:       db,
		repo:     repo,
		stores:   storeSvc,
		ledger:   ledgerSvc,
		gateway:  gw,
		outbox:   ob,
		logg:     logg,
		cfg:      cfg,
		provider: provider,
	}, nil
}

// Execute runs the ordered gates. Any miss short-circuits to Skipped; only a
// fully gated store reaches the gateway.
func (e *executor) Execute(ctx context.Context, storeID uuid.UUID, now time.Time) (*ExecutionResult, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	ctx = e.logg.WithStoreID(ctx, storeID.String())

	store, err := e.stores.GetStore(ctx, storeID)
	if err != nil {
		return nil, err
	}

	settings, err := e.repo.GetSettings(ctx, storeID)
	if err != nil {
		return nil, err
	}
	minimum := e.cfg.DefaultMinimum
	if settings != nil && settings.MinimumCents > 0 {
		minimum = settings.MinimumCents
	}

	balance, err := e.ledger.ComputeBalance(ctx, nil, storeID, store.Currency, now)
	if err != nil {
		return nil, err
	}
	if balance.AmountDueCents > 0 {
		return skip(SkipReasonAmountDue), nil
	}
	if balance.AvailableCents < minimum {
		return skip(SkipReasonBelowMinimum), nil
	}
	if !store.PayoutCapable() {
		return skip(SkipReasonNoPayoutAccount), nil
	}

	processorCents, err := e.gateway.RetrieveBalance(ctx, *store.ConnectedAccountID, store.Currency)
	if err != nil {
		// Fail safe: without the processor's number we cannot size the
		// payout, so the store waits for the next sweep.
		e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "processor balance unavailable, skipping payout")
		return skip(SkipReasonProcessorUnavailable), nil
	}

	payable := minCents(maxCents(0, balance.AvailableCents), maxCents(0, processorCents))
	if payable < minimum {
		return skip(SkipReasonBelowMinimum), nil
	}

	return e.dispatch(ctx, store, settings, payable, now)
}

// RequestManualPayout runs the same gates on demand.
func (e *executor) RequestManualPayout(ctx context.Context, storeID uuid.UUID) (*ExecutionResult, error) {
	return e.Execute(ctx, storeID, time.Now())
}

// dispatch persists the attempt before calling the gateway so a crash between
// the two leaves a pending row to reconcile rather than an invisible payout.
func (e *executor) dispatch(ctx context.Context, store *models.Store, settings *models.SellerPayoutSettings, amount int64, now time.Time) (*ExecutionResult, error) {
	payout := &models.SellerPayout{
		StoreID:     store.ID,
		AmountCents: amount,
		Currency:    store.Currency,
		Provider:    e.provider,
		Status:      enums.PayoutStatusPending,
		RequestedAt: now,
	}
	if err := e.repo.CreatePayout(ctx, payout); err != nil {
		return nil, err
	}

	dispatched, err := e.gateway.CreatePayout(ctx, gateway.PayoutRequest{
		ConnectedAccount: *store.ConnectedAccountID,
		AmountCents:      amount,
		Currency:         store.Currency,
		IdempotencyKey:   ledger.PayoutKey(payout.ID),
		Description:      fmt.Sprintf("payout %s", payout.ID),
	})
	if err != nil {
		return e.recordFailure(ctx, payout, err)
	}

	completedAt := time.Now()
	if settleErr := e.settle(ctx, store, settings, payout, dispatched, completedAt); settleErr != nil {
		logCtx := e.logg.WithFields(ctx, map[string]any{
			"payout_id":          payout.ID.String(),
			"provider_payout_id": dispatched.ProviderPayoutID,
			"amount_cents":       amount,
		})
		e.logg.Error(logCtx, "settlement.reconciliation_required: payout dispatched but not recorded", settleErr)
		return nil, settleErr
	}

	payout.Status = enums.PayoutStatusCompleted
	payout.ProviderPayoutID = &dispatched.ProviderPayoutID
	payout.CompletedAt = &completedAt

	logCtx := e.logg.WithFields(ctx, map[string]any{
		"payout_id":    payout.ID.String(),
		"amount_cents": amount,
	})
	e.logg.Info(logCtx, "payout completed")

	return &ExecutionResult{
		Outcome:     OutcomeCompleted,
		AmountCents: amount,
		Payout:      payout,
	}, nil
}

func (e *executor) settle(ctx context.Context, store *models.Store, settings *models.SellerPayoutSettings, payout *models.SellerPayout, dispatched *gateway.Payout, completedAt time.Time) error {
	return e.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := e.repo.WithTx(tx).MarkCompleted(ctx, payout.ID, dispatched.ProviderPayoutID, completedAt); err != nil {
			return err
		}

		// Re-derive inside the transaction: entries appended since the gate
		// check must not let the debit overdraw the ledger.
		balance, err := e.ledger.ComputeBalance(ctx, tx, store.ID, store.Currency, completedAt)
		if err != nil {
			return err
		}
		if payout.AmountCents > balance.AvailableCents+e.cfg.OverdrawTolerance {
			logCtx := e.logg.WithFields(ctx, map[string]any{
				"payout_id":       payout.ID.String(),
				"amount_cents":    payout.AmountCents,
				"available_cents": balance.AvailableCents,
			})
			e.logg.Warn(logCtx, "settlement.reconciliation_required: payout overdraws ledger balance")
		}

		payoutID := payout.ID
		if _, err := e.ledger.AppendEntry(ctx, tx, ledger.AppendEntryInput{
			StoreID:     store.ID,
			Type:        enums.BalanceEntryTypePayout,
			AmountCents: -payout.AmountCents,
			Currency:    store.Currency,
			PayoutID:    &payoutID,
			DedupeKey:   ledger.PayoutKey(payoutID),
			Description: fmt.Sprintf("payout %s", dispatched.ProviderPayoutID),
		}); err != nil {
			return err
		}

		if _, err := e.ledger.RefreshSnapshot(ctx, tx, store.ID, store.Currency, completedAt); err != nil {
			return err
		}
		if err := e.ledger.SetLastPayoutAt(ctx, tx, store.ID, store.Currency, completedAt); err != nil {
			return err
		}

		if settings != nil && settings.Method == enums.PayoutMethodAutomatic {
			next := NextPayoutAt(settings, completedAt)
			if err := e.repo.WithTx(tx).SetNextPayoutAt(ctx, store.ID, next); err != nil {
				return err
			}
		}

		return e.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutCompleted,
			AggregateType: enums.AggregatePayout,
			AggregateID:   payout.ID,
			Version:       1,
			Data: payloads.PayoutCompletedEvent{
				PayoutID:         payout.ID,
				StoreID:          store.ID,
				AmountCents:      payout.AmountCents,
				Currency:         string(store.Currency),
				ProviderPayoutID: dispatched.ProviderPayoutID,
				CompletedAt:      completedAt,
			},
		})
	})
}

// recordFailure marks the attempt failed and reports it; next_payout_at is
// left alone so the store is retried on the following sweep.
func (e *executor) recordFailure(ctx context.Context, payout *models.SellerPayout, cause error) (*ExecutionResult, error) {
	err := e.db.WithTx(ctx, func(tx *gorm.DB) error {
		if markErr := e.repo.WithTx(tx).MarkFailed(ctx, payout.ID, cause.Error()); markErr != nil {
			return markErr
		}
		return e.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutFailed,
			AggregateType: enums.AggregatePayout,
			AggregateID:   payout.ID,
			Version:       1,
			Data: payloads.PayoutFailedEvent{
				PayoutID:    payout.ID,
				StoreID:     payout.StoreID,
				AmountCents: payout.AmountCents,
				Reason:      cause.Error(),
			},
		})
	})
	if err != nil {
		e.logg.Error(ctx, "recording payout failure", err)
	}

	payout.Status = enums.PayoutStatusFailed
	reason := cause.Error()
	payout.FailureReason = &reason

	return &ExecutionResult{
		Outcome:     OutcomeFailed,
		AmountCents: payout.AmountCents,
		Payout:      payout,
	}, cause
}

func skip(reason string) *ExecutionResult {
	return &ExecutionResult{Outcome: OutcomeSkipped, SkipReason: reason}
}

func minCents(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func maxCents(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercata/mercata-backend/internal/ledger"
	"github.com/mercata/mercata-backend/internal/orders"
	"github.com/mercata/mercata-backend/internal/stores"
	dbpkg "github.com/mercata/mercata-backend/pkg/db"
	"github.com/mercata/mercata-backend/pkg/db/models"
	"github.com/mercata/mercata-backend/pkg/enums"
	pkgerrors "github.com/mercata/mercata-backend/pkg/errors"
	"github.com/mercata/mercata-backend/pkg/gateway"
	"github.com/mercata/mercata-backend/pkg/logger"
	"github.com/mercata/mercata-backend/pkg/money"
	"github.com/mercata/mercata-backend/pkg/outbox"
	"github.com/mercata/mercata-backend/pkg/outbox/payloads"
)

// RecordPaymentInput describes one gateway charge to settle against an order.
// When ProviderPaymentID is empty the service performs the destination charge
// itself; otherwise it records an externally confirmed charge.
type RecordPaymentInput struct {
	OrderID           uuid.UUID
	ProviderPaymentID string
	AmountCents       int64
}

// Service records successful charges and settles them into the ledger.
type Service interface {
	RecordPayment(ctx context.Context, input RecordPaymentInput) (*models.OrderPayment, error)
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	db        dbpkg.TxRunner
	repo      Repository
	orderRepo orders.Repository
	stores    stores.Service
	ledger    ledger.Service
	gateway   gateway.PaymentGateway
	outbox    outboxEmitter
	logg      *logger.Logger
	provider  string
	feeBPS    int64
}

// NewService wires the payment recorder.
func NewService(
	db dbpkg.TxRunner,
	repo Repository,
	orderRepo orders.Repository,
	storeSvc stores.Service,
	ledgerSvc ledger.Service,
	gw gateway.PaymentGateway,
	ob outboxEmitter,
	logg *logger.Logger,
	provider string,
	feeBPS int64,
) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("order repository required")
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
	if feeBPS < 0 || feeBPS > 10000 {
		return nil, fmt.Errorf("platform fee bps out of range")
	}
	return &service{
		db:        db,
		repo:      repo,
		orderRepo: orderRepo,
		stores:    storeSvc,
		ledger:    ledgerSvc,
		gateway:   gw,
		outbox:    ob,
		logg:      logg,
		provider:  provider,
		feeBPS:    feeBPS,
	}, nil
}

// RecordPayment is idempotent on the provider's payment id: a retried call
// lands on the unique constraint, loads the existing row, and returns it with
// no second ledger entry and no second event.
func (s *service) RecordPayment(ctx context.Context, input RecordPaymentInput) (*models.OrderPayment, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	order, err := s.orderRepo.GetByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status == enums.OrderStatusCanceled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is canceled")
	}

	amount := input.AmountCents
	if amount == 0 {
		amount = order.TotalCents
	}
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if amount != order.TotalCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must equal the order total").
			WithDetails(map[string]string{
				"expected": money.FormatCents(order.TotalCents),
				"received": money.FormatCents(amount),
			})
	}

	providerRef := input.ProviderPaymentID
	if providerRef == "" {
		providerRef, err = s.charge(ctx, order, amount)
		if err != nil {
			return nil, err
		}
	} else if order.PaymentStatus == enums.PaymentStatusPaid {
		// A fresh provider ref against an already-paid order is a double
		// charge, not a retry; retries resolve below via the unique
		// constraint on the ref itself.
		_, lookupErr := s.repo.GetByProviderPaymentID(ctx, providerRef)
		if pkgerrors.IsCode(lookupErr, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
		}
		if lookupErr != nil {
			return nil, lookupErr
		}
	}

	fee := money.ApplyBasisPoints(amount, s.feeBPS)
	payment := &models.OrderPayment{
		OrderID:           order.ID,
		StoreID:           order.StoreID,
		Provider:          s.provider,
		ProviderPaymentID: providerRef,
		AmountCents:       amount,
		Currency:          order.Currency,
		PlatformFeeCents:  fee,
		NetToStoreCents:   amount - fee,
		Status:            enums.OrderPaymentStatusCompleted,
		TransferStatus:    enums.TransferStatusHeld,
	}

	err = s.settle(ctx, order, payment)
	if dbpkg.IsUniqueViolation(err, "provider_payment_id") || pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		return s.repo.GetByProviderPaymentID(ctx, providerRef)
	}
	if err != nil {
		// The charge is confirmed at the gateway but nothing landed locally.
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"provider_payment_id": providerRef,
			"order_id":            order.ID.String(),
			"store_id":            order.StoreID.String(),
			"amount_cents":        amount,
		})
		s.logg.Error(logCtx, "settlement.reconciliation_required: charge confirmed but not recorded", err)
		return nil, err
	}
	return payment, nil
}

func (s *service) charge(ctx context.Context, order *models.Order, amount int64) (string, error) {
	store, err := s.stores.GetStore(ctx, order.StoreID)
	if err != nil {
		return "", err
	}
	if !store.PayoutCapable() {
		return "", pkgerrors.New(pkgerrors.CodePaymentSetup, "store cannot receive funds").
			WithDetails(map[string]any{"stores": []string{store.Name}})
	}

	charge, err := s.gateway.ChargeWithDestination(ctx, gateway.ChargeRequest{
		AmountCents:         amount,
		Currency:            order.Currency,
		DestinationAccount:  *store.ConnectedAccountID,
		ApplicationFeeCents: money.ApplyBasisPoints(amount, s.feeBPS),
		IdempotencyKey:      fmt.Sprintf("charge:%s", order.ID),
		Description:         fmt.Sprintf("order %s", order.ID),
	})
	if err != nil {
		return "", err
	}
	return charge.ProviderPaymentID, nil
}

// settle persists the payment, its ledger entry pair, the order status flip
// and the domain event in one transaction.
func (s *service) settle(ctx context.Context, order *models.Order, payment *models.OrderPayment) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, payment); err != nil {
			return err
		}

		paymentID := payment.ID
		orderID := order.ID
		if _, err := s.ledger.AppendEntry(ctx, tx, ledger.AppendEntryInput{
			StoreID:        order.StoreID,
			Type:           enums.BalanceEntryTypeOrderPayment,
			AmountCents:    payment.AmountCents,
			Currency:       order.Currency,
			OrderID:        &orderID,
			OrderPaymentID: &paymentID,
			DedupeKey:      ledger.OrderPaymentKey(paymentID),
			Description:    fmt.Sprintf("payment %s", payment.ProviderPaymentID),
		}); err != nil {
			return err
		}
		if payment.PlatformFeeCents > 0 {
			if _, err := s.ledger.AppendEntry(ctx, tx, ledger.AppendEntryInput{
				StoreID:        order.StoreID,
				Type:           enums.BalanceEntryTypePlatformFee,
				AmountCents:    -payment.PlatformFeeCents,
				Currency:       order.Currency,
				OrderID:        &orderID,
				OrderPaymentID: &paymentID,
				DedupeKey:      ledger.PlatformFeeKey(paymentID),
				Description:    fmt.Sprintf("platform fee for payment %s", payment.ProviderPaymentID),
			}); err != nil {
				return err
			}
		}

		complete := order.FulfillmentStatus == enums.FulfillmentStatusFulfilled
		if err := s.orderRepo.WithTx(tx).MarkPaid(ctx, order.ID, time.Now(), complete); err != nil {
			return err
		}

		if _, err := s.ledger.RefreshSnapshot(ctx, tx, order.StoreID, order.Currency, time.Now()); err != nil {
			return err
		}

		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentReceived,
			AggregateType: enums.AggregatePayment,
			AggregateID:   paymentID,
			Version:       1,
			Data: payloads.PaymentReceivedEvent{
				OrderPaymentID:    paymentID,
				OrderID:           order.ID,
				StoreID:           order.StoreID,
				ProviderPaymentID: payment.ProviderPaymentID,
				AmountCents:       payment.AmountCents,
				PlatformFeeCents:  payment.PlatformFeeCents,
				NetToStoreCents:   payment.NetToStoreCents,
				Currency:          string(order.Currency),
			},
		})
	})
}

package refunds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercata/mercata-backend/internal/inventory"
	"github.com/mercata/mercata-backend/internal/ledger"
	"github.com/mercata/mercata-backend/internal/orders"
	"github.com/mercata/mercata-backend/internal/payments"
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

// ProcessRefundInput describes a refund against an order's payment. A full
// refund may omit AmountCents; the refundable remainder is derived from the
// ledger. Partial refunds must state the amount.
type ProcessRefundInput struct {
	OrderID     uuid.UUID
	Type        enums.RefundType
	AmountCents int64
	Reason      string
	Restock     []inventory.Adjustment
}

// RefundResult reports what the gateway and the ledger recorded.
type RefundResult struct {
	OrderPaymentID   uuid.UUID
	ProviderRefundID string
	AmountCents      int64
	FeeReversalCents int64
	Type             enums.RefundType
}

// Service reverses recorded payments. The gateway call happens first; the
// ledger only ever reflects money movements the processor has confirmed.
type Service interface {
	ProcessRefund(ctx context.Context, input ProcessRefundInput) (*RefundResult, error)
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	db        dbpkg.TxRunner
	payments  payments.Repository
	orderRepo orders.Repository
	ledger    ledger.Service
	gateway   gateway.PaymentGateway
	inventory inventory.Service
	outbox    outboxEmitter
	logg      *logger.Logger
}

// NewService wires the refund processor.
func NewService(
	db dbpkg.TxRunner,
	paymentRepo payments.Repository,
	orderRepo orders.Repository,
	ledgerSvc ledger.Service,
	gw gateway.PaymentGateway,
	inventorySvc inventory.Service,
	ob outboxEmitter,
	logg *logger.Logger,
) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database client required")
	}
	if paymentRepo == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if gw == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if inventorySvc == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		db:        db,
		payments:  paymentRepo,
		orderRepo: orderRepo,
		ledger:    ledgerSvc,
		gateway:   gw,
		inventory: inventorySvc,
		outbox:    ob,
		logg:      logg,
	}, nil
}

// ProcessRefund validates against the ledger-derived refunded total, calls
// the gateway, and only then writes the refund pair. A gateway failure leaves
// the ledger untouched.
func (s *service) ProcessRefund(ctx context.Context, input ProcessRefundInput) (*RefundResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund type must be full or partial")
	}
	if input.AmountCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	if input.Type == enums.RefundTypePartial && input.AmountCents == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount is required for a partial refund")
	}

	order, err := s.orderRepo.GetByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if !order.PaymentStatus.Refundable() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("order payment status %q does not allow refunds", order.PaymentStatus))
	}

	payment, err := s.payments.GetLatestByOrderID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}

	// Already-refunded comes from the ledger, never from mutated payment
	// fields, so repeated partial refunds stay bounded by what was paid.
	refunded, err := s.ledger.RefundedTotal(ctx, payment.ID)
	if err != nil {
		return nil, err
	}
	refundable := payment.AmountCents - refunded

	// A full refund takes whatever remains; an explicit amount on a full
	// refund must agree with that remainder.
	amount := input.AmountCents
	if input.Type == enums.RefundTypeFull {
		if amount == 0 {
			amount = refundable
		} else if amount != refundable {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "full refund amount must match the refundable remainder").
				WithDetails(map[string]string{
					"refundable": money.FormatCents(refundable),
					"requested":  money.FormatCents(amount),
				})
		}
	}
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment is already fully refunded")
	}
	if amount > refundable {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund exceeds refundable amount").
			WithDetails(map[string]string{
				"refundable": money.FormatCents(refundable),
				"requested":  money.FormatCents(amount),
			})
	}

	gatewayRefund, err := s.gateway.Refund(ctx, gateway.RefundRequest{
		ProviderPaymentID: payment.ProviderPaymentID,
		AmountCents:       amount,
		IdempotencyKey:    fmt.Sprintf("refund:%s:%d", payment.ID, refunded+amount),
		Reason:            input.Reason,
	})
	if err != nil {
		return nil, err
	}

	// Reverse the platform fee in proportion to the refunded share.
	feeReversal := money.Share(payment.PlatformFeeCents, amount, payment.AmountCents)

	refundType := enums.RefundTypePartial
	fullyRefunded := refunded+amount == payment.AmountCents
	if fullyRefunded {
		refundType = enums.RefundTypeFull
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		orderID := order.ID
		paymentID := payment.ID
		if _, appendErr := s.ledger.AppendEntry(ctx, tx, ledger.AppendEntryInput{
			StoreID:        order.StoreID,
			Type:           enums.BalanceEntryTypeRefund,
			AmountCents:    -amount,
			Currency:       order.Currency,
			OrderID:        &orderID,
			OrderPaymentID: &paymentID,
			DedupeKey:      ledger.RefundKey(gatewayRefund.ProviderRefundID),
			Description:    fmt.Sprintf("refund %s", gatewayRefund.ProviderRefundID),
		}); appendErr != nil {
			return appendErr
		}
		if feeReversal > 0 {
			if _, appendErr := s.ledger.AppendEntry(ctx, tx, ledger.AppendEntryInput{
				StoreID:        order.StoreID,
				Type:           enums.BalanceEntryTypePlatformFee,
				AmountCents:    feeReversal,
				Currency:       order.Currency,
				OrderID:        &orderID,
				OrderPaymentID: &paymentID,
				DedupeKey:      ledger.PlatformFeeReversalKey(gatewayRefund.ProviderRefundID),
				Description:    fmt.Sprintf("platform fee reversal for refund %s", gatewayRefund.ProviderRefundID),
			}); appendErr != nil {
				return appendErr
			}
		}

		paymentStatus := enums.OrderPaymentStatusPartiallyRefunded
		orderStatus := enums.PaymentStatusPartiallyRefunded
		if fullyRefunded {
			paymentStatus = enums.OrderPaymentStatusRefunded
			orderStatus = enums.PaymentStatusRefunded
		}
		if statusErr := s.payments.WithTx(tx).SetStatus(ctx, payment.ID, paymentStatus); statusErr != nil {
			return statusErr
		}
		if statusErr := s.orderRepo.WithTx(tx).SetPaymentStatus(ctx, order.ID, orderStatus); statusErr != nil {
			return statusErr
		}

		if _, refreshErr := s.ledger.RefreshSnapshot(ctx, tx, order.StoreID, order.Currency, time.Now()); refreshErr != nil {
			return refreshErr
		}

		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRefundProcessed,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Version:       1,
			Data: payloads.RefundProcessedEvent{
				OrderPaymentID:   payment.ID,
				OrderID:          order.ID,
				StoreID:          order.StoreID,
				ProviderRefundID: gatewayRefund.ProviderRefundID,
				AmountCents:      amount,
				FeeReversalCents: feeReversal,
				Type:             refundType,
			},
		})
	})
	if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		// The gateway refund was already settled by a previous attempt.
		err = nil
	}
	if err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"provider_refund_id": gatewayRefund.ProviderRefundID,
			"order_id":           order.ID.String(),
			"store_id":           order.StoreID.String(),
			"amount_cents":       amount,
		})
		s.logg.Error(logCtx, "settlement.reconciliation_required: refund confirmed but not recorded", err)
		return nil, err
	}

	s.restock(ctx, order, input.Restock)

	return &RefundResult{
		OrderPaymentID:   payment.ID,
		ProviderRefundID: gatewayRefund.ProviderRefundID,
		AmountCents:      amount,
		FeeReversalCents: feeReversal,
		Type:             refundType,
	}, nil
}

// restock is best-effort: a failure is logged and never unwinds the refund.
func (s *service) restock(ctx context.Context, order *models.Order, items []inventory.Adjustment) {
	if len(items) == 0 {
		return
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.inventory.Adjust(ctx, tx, enums.InventoryDirectionRestock, items)
	})
	if err != nil {
		s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "restock after refund failed", err)
	}
}

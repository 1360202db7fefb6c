package refunds

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercata/mercata-backend/internal/inventory"
	"github.com/mercata/mercata-backend/internal/ledger"
	"github.com/mercata/mercata-backend/internal/orders"
	"github.com/mercata/mercata-backend/internal/payments"
	"github.com/mercata/mercata-backend/pkg/db/models"
	"github.com/mercata/mercata-backend/pkg/enums"
	pkgerrors "github.com/mercata/mercata-backend/pkg/errors"
	"github.com/mercata/mercata-backend/pkg/gateway"
	"github.com/mercata/mercata-backend/pkg/logger"
	"github.com/mercata/mercata-backend/pkg/outbox"
)

func TestProcessRefund_partialRefundWritesProportionalFeeReversal(t *testing.T) {
	helper := newRefundTest(t)

	// 10000 paid with a 500 fee: refunding 2500 reverses a quarter of the fee.
	result, err := helper.svc.ProcessRefund(context.Background(), ProcessRefundInput{
		OrderID:     helper.order.ID,
		Type:        enums.RefundTypePartial,
		AmountCents: 2500,
		Reason:      "damaged item",
	})
	if err != nil {
		t.Fatalf("ProcessRefund: %v", err)
	}
	if result.AmountCents != 2500 {
		t.Fatalf("expected 2500 refunded, got %d", result.AmountCents)
	}
	if result.FeeReversalCents != 125 {
		t.Fatalf("expected 125 fee reversal, got %d", result.FeeReversalCents)
	}
	if result.Type != enums.RefundTypePartial {
		t.Fatalf("expected partial refund, got %s", result.Type)
	}

	if len(helper.ledger.entries) != 2 {
		t.Fatalf("expected refund and reversal entries, got %d", len(helper.ledger.entries))
	}
	debit := helper.ledger.entries[0]
	if debit.Type != enums.BalanceEntryTypeRefund || debit.AmountCents != -2500 {
		t.Fatalf("unexpected refund entry: %+v", debit)
	}
	if debit.DedupeKey != ledger.RefundKey("re_test_1") {
		t.Fatalf("unexpected dedupe key: %s", debit.DedupeKey)
	}
	reversal := helper.ledger.entries[1]
	if reversal.Type != enums.BalanceEntryTypePlatformFee || reversal.AmountCents != 125 {
		t.Fatalf("unexpected reversal entry: %+v", reversal)
	}

	if len(helper.paymentRepo.statusUpdates) != 1 || helper.paymentRepo.statusUpdates[0] != enums.OrderPaymentStatusPartiallyRefunded {
		t.Fatalf("unexpected payment status updates: %v", helper.paymentRepo.statusUpdates)
	}
	if len(helper.outbox.events) != 1 || helper.outbox.events[0].EventType != enums.EventRefundProcessed {
		t.Fatalf("expected refund event, got %+v", helper.outbox.events)
	}
}

func TestProcessRefund_finalRefundFlipsStatusToRefunded(t *testing.T) {
	helper := newRefundTest(t)
	helper.ledger.refundedTotal = 7500

	result, err := helper.svc.ProcessRefund(context.Background(), ProcessRefundInput{
		OrderID:     helper.order.ID,
		Type:        enums.RefundTypePartial,
		AmountCents: 2500,
	})
	if err != nil {
		t.Fatalf("ProcessRefund: %v", err)
	}
	if result.Type != enums.RefundTypeFull {
		t.Fatalf("expected full refund, got %s", result.Type)
	}
	if len(helper.paymentRepo.statusUpdates) != 1 || helper.paymentRepo.statusUpdates[0] != enums.OrderPaymentStatusRefunded {
		t.Fatalf("unexpected payment status updates: %v", helper.paymentRepo.statusUpdates)
	}
	if len(helper.orderRepo.statusUpdates) != 1 || helper.orderRepo.statusUpdates[0] != enums.PaymentStatusRefunded {
		t.Fatalf("unexpected order status updates: %v", helper.orderRepo.statusUpdates)
	}
}

func TestProcessRefund_boundedByLedgerRefundedTotal(t *testing.T) {
	helper := newRefundTest(t)
	helper.ledger.refundedTotal = 8000

	_, err := helper.svc.ProcessRefund(context.Background(), ProcessRefundInput{
		OrderID:     helper.order.ID,
		Type:        enums.RefundTypePartial,
		AmountCents: 3000,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(helper.gateway.refundRequests) != 0 {
		t.Fatal("expected no gateway refund beyond the refundable amount")
	}
	if len(helper.ledger.entries) != 0 {
		t.Fatal("expected no ledger writes")
	}
}

func TestProcessRefund_gatewayFailureLeavesLedgerUntouched(t *testing.T) {
	helper := newRefundTest(t)
	helper.gateway.refundErr = pkgerrors.New(pkgerrors.CodeGateway, "processor unavailable")

	_, err := helper.svc.ProcessRefund(context.Background(), ProcessRefundInput{
		OrderID:     helper.order.ID,
		Type:        enums.RefundTypePartial,
		AmountCents: 2500,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeGateway) {
		t.Fatalf("expected gateway error, got %v", err)
	}
	if len(helper.ledger.entries) != 0 {
		t.Fatal("expected no ledger writes after gateway failure")
	}
	if len(helper.outbox.events) != 0 {
		t.Fatal("expected no event after gateway failure")
	}
}

func TestProcessRefund_unpaidOrderIsRejected(t *testing.T) {
	helper := newRefundTest(t)
	helper.order.PaymentStatus = enums.PaymentStatusPending

	_, err := helper.svc.ProcessRefund(context.Background(), ProcessRefundInput{
		OrderID:     helper.order.ID,
		Type:        enums.RefundTypePartial,
		AmountCents: 2500,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestProcessRefund_fullRefundDerivesRemainderFromLedger(t *testing.T) {
	helper := newRefundTest(t)
	helper.ledger.refundedTotal = 2500

	result, err := helper.svc.ProcessRefund(context.Background(), ProcessRefundInput{
		OrderID: helper.order.ID,
		Type:    enums.RefundTypeFull,
	})
	if err != nil {
		t.Fatalf("ProcessRefund: %v", err)
	}
	if result.AmountCents != 7500 {
		t.Fatalf("expected the 7500 remainder refunded, got %d", result.AmountCents)
	}
	if result.Type != enums.RefundTypeFull {
		t.Fatalf("expected full refund, got %s", result.Type)
	}
	if len(helper.gateway.refundRequests) != 1 || helper.gateway.refundRequests[0].AmountCents != 7500 {
		t.Fatalf("unexpected gateway refund requests: %+v", helper.gateway.refundRequests)
	}
	if len(helper.orderRepo.statusUpdates) != 1 || helper.orderRepo.statusUpdates[0] != enums.PaymentStatusRefunded {
		t.Fatalf("unexpected order status updates: %v", helper.orderRepo.statusUpdates)
	}
}

func TestProcessRefund_fullRefundRejectsMismatchedAmount(t *testing.T) {
	helper := newRefundTest(t)

	_, err := helper.svc.ProcessRefund(context.Background(), ProcessRefundInput{
		OrderID:     helper.order.ID,
		Type:        enums.RefundTypeFull,
		AmountCents: 5000,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(helper.gateway.refundRequests) != 0 {
		t.Fatal("expected no gateway refund on amount mismatch")
	}
}

func TestProcessRefund_fullyRefundedPaymentHasNothingLeft(t *testing.T) {
	helper := newRefundTest(t)
	helper.ledger.refundedTotal = 10000

	_, err := helper.svc.ProcessRefund(context.Background(), ProcessRefundInput{
		OrderID: helper.order.ID,
		Type:    enums.RefundTypeFull,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(helper.gateway.refundRequests) != 0 {
		t.Fatal("expected no gateway refund when nothing remains")
	}
}

func TestProcessRefund_partialRefundRequiresAmount(t *testing.T) {
	helper := newRefundTest(t)

	_, err := helper.svc.ProcessRefund(context.Background(), ProcessRefundInput{
		OrderID: helper.order.ID,
		Type:    enums.RefundTypePartial,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestProcessRefund_unknownTypeIsRejected(t *testing.T) {
	helper := newRefundTest(t)

	_, err := helper.svc.ProcessRefund(context.Background(), ProcessRefundInput{
		OrderID:     helper.order.ID,
		Type:        enums.RefundType("chargeback"),
		AmountCents: 2500,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestProcessRefund_restockIsBestEffort(t *testing.T) {
	helper := newRefundTest(t)
	helper.inventory.adjustErr = pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")

	result, err := helper.svc.ProcessRefund(context.Background(), ProcessRefundInput{
		OrderID:     helper.order.ID,
		Type:        enums.RefundTypePartial,
		AmountCents: 2500,
		Restock:     []inventory.Adjustment{{ProductID: uuid.New(), Qty: 1}},
	})
	if err != nil {
		t.Fatalf("expected refund to survive restock failure, got %v", err)
	}
	if result.AmountCents != 2500 {
		t.Fatalf("unexpected refund amount: %d", result.AmountCents)
	}
}

func TestProcessRefund_restockAppliedAfterRefund(t *testing.T) {
	helper := newRefundTest(t)
	productID := uuid.New()

	_, err := helper.svc.ProcessRefund(context.Background(), ProcessRefundInput{
		OrderID:     helper.order.ID,
		Type:        enums.RefundTypePartial,
		AmountCents: 2500,
		Restock:     []inventory.Adjustment{{ProductID: productID, Qty: 2}},
	})
	if err != nil {
		t.Fatalf("ProcessRefund: %v", err)
	}
	if len(helper.inventory.batches) != 1 {
		t.Fatalf("expected 1 restock batch, got %d", len(helper.inventory.batches))
	}
	batch := helper.inventory.batches[0]
	if batch.direction != enums.InventoryDirectionRestock {
		t.Fatalf("expected restock direction, got %s", batch.direction)
	}
	if len(batch.items) != 1 || batch.items[0].ProductID != productID || batch.items[0].Qty != 2 {
		t.Fatalf("unexpected restock items: %+v", batch.items)
	}
}

type refundTestHelper struct {
	svc         Service
	order       *models.Order
	payment     *models.OrderPayment
	paymentRepo *fakePaymentRepo
	orderRepo   *fakeOrderRepo
	ledger      *fakeLedgerService
	gateway     *fakePaymentGateway
	inventory   *fakeInventoryService
	outbox      *fakeOutboxService
}

func newRefundTest(t *testing.T) *refundTestHelper {
	t.Helper()
	storeID := uuid.New()
	order := &models.Order{
		ID:            uuid.New(),
		StoreID:       storeID,
		Currency:      enums.CurrencyUSD,
		TotalCents:    10000,
		Status:        enums.OrderStatusOpen,
		PaymentStatus: enums.PaymentStatusPaid,
	}
	payment := &models.OrderPayment{
		ID:                uuid.New(),
		OrderID:           order.ID,
		StoreID:           storeID,
		ProviderPaymentID: "py_test_1",
		AmountCents:       10000,
		Currency:          enums.CurrencyUSD,
		PlatformFeeCents:  500,
		NetToStoreCents:   9500,
		Status:            enums.OrderPaymentStatusCompleted,
	}
	paymentRepo := &fakePaymentRepo{payment: payment}
	orderRepo := &fakeOrderRepo{order: order}
	ledgerSvc := &fakeLedgerService{}
	gw := &fakePaymentGateway{}
	inventorySvc := &fakeInventoryService{}
	ob := &fakeOutboxService{}

	svc, err := NewService(
		fakeTxRunner{},
		paymentRepo,
		orderRepo,
		ledgerSvc,
		gw,
		inventorySvc,
		ob,
		logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &refundTestHelper{
		svc:         svc,
		order:       order,
		payment:     payment,
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		ledger:      ledgerSvc,
		gateway:     gw,
		inventory:   inventorySvc,
		outbox:      ob,
	}
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakePaymentRepo struct {
	payment       *models.OrderPayment
	statusUpdates []enums.OrderPaymentStatus
}

func (f *fakePaymentRepo) WithTx(tx *gorm.DB) payments.Repository { return f }

func (f *fakePaymentRepo) Create(ctx context.Context, payment *models.OrderPayment) error {
	return nil
}

func (f *fakePaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.OrderPayment, error) {
	return f.payment, nil
}

func (f *fakePaymentRepo) GetByProviderPaymentID(ctx context.Context, providerPaymentID string) (*models.OrderPayment, error) {
	return f.payment, nil
}

func (f *fakePaymentRepo) GetLatestByOrderID(ctx context.Context, orderID uuid.UUID) (*models.OrderPayment, error) {
	if f.payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	return f.payment, nil
}

func (f *fakePaymentRepo) SetStatus(ctx context.Context, id uuid.UUID, status enums.OrderPaymentStatus) error {
	f.statusUpdates = append(f.statusUpdates, status)
	return nil
}

type fakeOrderRepo struct {
	order         *models.Order
	statusUpdates []enums.PaymentStatus
}

func (f *fakeOrderRepo) WithTx(tx *gorm.DB) orders.Repository { return f }

func (f *fakeOrderRepo) Create(ctx context.Context, order *models.Order) error { return nil }

func (f *fakeOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if f.order != nil && f.order.ID == id {
		return f.order, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (f *fakeOrderRepo) ListByCheckoutSession(ctx context.Context, sessionID uuid.UUID) ([]models.Order, error) {
	return nil, nil
}

func (f *fakeOrderRepo) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time, complete bool) error {
	return nil
}

func (f *fakeOrderRepo) SetPaymentStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus) error {
	f.statusUpdates = append(f.statusUpdates, status)
	return nil
}

type fakeLedgerService struct {
	refundedTotal int64
	entries       []ledger.AppendEntryInput
	refreshes     int
}

func (f *fakeLedgerService) AppendEntry(ctx context.Context, tx *gorm.DB, input ledger.AppendEntryInput) (*models.SellerBalanceEntry, error) {
	f.entries = append(f.entries, input)
	return &models.SellerBalanceEntry{ID: uuid.New()}, nil
}

func (f *fakeLedgerService) ComputeBalance(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, currency enums.Currency, now time.Time) (*ledger.Balance, error) {
	return &ledger.Balance{StoreID: storeID, Currency: currency}, nil
}

func (f *fakeLedgerService) RefreshSnapshot(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, currency enums.Currency, now time.Time) (*ledger.Balance, error) {
	f.refreshes++
	return &ledger.Balance{StoreID: storeID, Currency: currency}, nil
}

func (f *fakeLedgerService) GetBalanceSummary(ctx context.Context, storeID uuid.UUID, currency enums.Currency) (*ledger.Balance, error) {
	return &ledger.Balance{StoreID: storeID, Currency: currency}, nil
}

func (f *fakeLedgerService) RefundedTotal(ctx context.Context, orderPaymentID uuid.UUID) (int64, error) {
	return f.refundedTotal, nil
}

func (f *fakeLedgerService) SetLastPayoutAt(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, currency enums.Currency, at time.Time) error {
	return nil
}

type fakePaymentGateway struct {
	refundRequests []gateway.RefundRequest
	refundErr      error
}

func (f *fakePaymentGateway) CreateConnectedAccount(ctx context.Context, storeName, email string) (*gateway.ConnectedAccount, error) {
	return &gateway.ConnectedAccount{ID: "acct_test_1", PayoutsEnabled: true}, nil
}

func (f *fakePaymentGateway) ChargeWithDestination(ctx context.Context, req gateway.ChargeRequest) (*gateway.Charge, error) {
	return &gateway.Charge{ProviderPaymentID: "py_test_1", AmountCents: req.AmountCents}, nil
}

func (f *fakePaymentGateway) Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.Refund, error) {
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	f.refundRequests = append(f.refundRequests, req)
	return &gateway.Refund{ProviderRefundID: "re_test_1", AmountCents: req.AmountCents}, nil
}

func (f *fakePaymentGateway) RetrieveBalance(ctx context.Context, connectedAccount string, currency enums.Currency) (int64, error) {
	return 0, nil
}

func (f *fakePaymentGateway) CreatePayout(ctx context.Context, req gateway.PayoutRequest) (*gateway.Payout, error) {
	return &gateway.Payout{ProviderPayoutID: "po_test_1", AmountCents: req.AmountCents}, nil
}

type restockBatch struct {
	direction enums.InventoryDirection
	items     []inventory.Adjustment
}

type fakeInventoryService struct {
	batches   []restockBatch
	adjustErr error
}

func (f *fakeInventoryService) Adjust(ctx context.Context, tx *gorm.DB, direction enums.InventoryDirection, items []inventory.Adjustment) error {
	if f.adjustErr != nil {
		return f.adjustErr
	}
	f.batches = append(f.batches, restockBatch{direction: direction, items: items})
	return nil
}

type fakeOutboxService struct {
	events []outbox.DomainEvent
}

func (f *fakeOutboxService) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

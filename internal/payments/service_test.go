package payments

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercata/mercata-backend/internal/ledger"
	"github.com/mercata/mercata-backend/internal/orders"
	"github.com/mercata/mercata-backend/pkg/db/models"
	"github.com/mercata/mercata-backend/pkg/enums"
	pkgerrors "github.com/mercata/mercata-backend/pkg/errors"
	"github.com/mercata/mercata-backend/pkg/gateway"
	"github.com/mercata/mercata-backend/pkg/logger"
	"github.com/mercata/mercata-backend/pkg/outbox"
)

const testFeeBPS = 500

func TestRecordPayment_externalChargeSettlesLedgerPair(t *testing.T) {
	helper := newPaymentTest(t)

	payment, err := helper.svc.RecordPayment(context.Background(), RecordPaymentInput{
		OrderID:           helper.order.ID,
		ProviderPaymentID: "py_ext_1",
		AmountCents:       10000,
	})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if payment.PlatformFeeCents != 500 {
		t.Fatalf("expected 500 fee, got %d", payment.PlatformFeeCents)
	}
	if payment.NetToStoreCents != 9500 {
		t.Fatalf("expected 9500 net, got %d", payment.NetToStoreCents)
	}
	if payment.TransferStatus != enums.TransferStatusHeld {
		t.Fatalf("expected funds held, got %s", payment.TransferStatus)
	}

	if len(helper.ledger.entries) != 2 {
		t.Fatalf("expected payment and fee entries, got %d", len(helper.ledger.entries))
	}
	credit := helper.ledger.entries[0]
	if credit.Type != enums.BalanceEntryTypeOrderPayment || credit.AmountCents != 10000 {
		t.Fatalf("unexpected credit entry: %+v", credit)
	}
	if credit.DedupeKey != ledger.OrderPaymentKey(payment.ID) {
		t.Fatalf("unexpected dedupe key: %s", credit.DedupeKey)
	}
	fee := helper.ledger.entries[1]
	if fee.Type != enums.BalanceEntryTypePlatformFee || fee.AmountCents != -500 {
		t.Fatalf("unexpected fee entry: %+v", fee)
	}

	if len(helper.orderRepo.markPaidCalls) != 1 {
		t.Fatalf("expected order marked paid, got %d", len(helper.orderRepo.markPaidCalls))
	}
	if helper.ledger.refreshes != 1 {
		t.Fatalf("expected snapshot refresh, got %d", helper.ledger.refreshes)
	}
	if len(helper.outbox.events) != 1 || helper.outbox.events[0].EventType != enums.EventPaymentReceived {
		t.Fatalf("expected payment received event, got %+v", helper.outbox.events)
	}
	if len(helper.gateway.chargeRequests) != 0 {
		t.Fatal("expected no gateway charge for an external payment")
	}
}

func TestRecordPayment_chargesThroughGatewayWhenNoProviderRef(t *testing.T) {
	helper := newPaymentTest(t)

	payment, err := helper.svc.RecordPayment(context.Background(), RecordPaymentInput{
		OrderID: helper.order.ID,
	})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if len(helper.gateway.chargeRequests) != 1 {
		t.Fatalf("expected 1 charge, got %d", len(helper.gateway.chargeRequests))
	}
	req := helper.gateway.chargeRequests[0]
	if req.AmountCents != helper.order.TotalCents {
		t.Fatalf("expected charge for order total, got %d", req.AmountCents)
	}
	if req.DestinationAccount != *helper.store.ConnectedAccountID {
		t.Fatalf("unexpected destination: %s", req.DestinationAccount)
	}
	if req.ApplicationFeeCents != 500 {
		t.Fatalf("expected 500 application fee, got %d", req.ApplicationFeeCents)
	}
	if req.IdempotencyKey == "" {
		t.Fatal("expected idempotency key on the charge")
	}
	if payment.ProviderPaymentID != "py_test_1" {
		t.Fatalf("expected gateway charge id, got %s", payment.ProviderPaymentID)
	}
}

func TestRecordPayment_retryReplaysExistingPayment(t *testing.T) {
	helper := newPaymentTest(t)
	existing := &models.OrderPayment{
		ID:                uuid.New(),
		OrderID:           helper.order.ID,
		StoreID:           helper.order.StoreID,
		ProviderPaymentID: "py_ext_1",
		AmountCents:       10000,
	}
	helper.repo.byProviderRef = map[string]*models.OrderPayment{"py_ext_1": existing}
	helper.repo.createErr = errors.New(`duplicate key value violates unique constraint "order_payments_provider_payment_id_key"`)

	payment, err := helper.svc.RecordPayment(context.Background(), RecordPaymentInput{
		OrderID:           helper.order.ID,
		ProviderPaymentID: "py_ext_1",
		AmountCents:       10000,
	})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if payment.ID != existing.ID {
		t.Fatal("expected the existing payment back")
	}
	if len(helper.outbox.events) != 0 {
		t.Fatalf("expected no second event, got %d", len(helper.outbox.events))
	}
}

func TestRecordPayment_amountMustEqualOrderTotal(t *testing.T) {
	helper := newPaymentTest(t)

	_, err := helper.svc.RecordPayment(context.Background(), RecordPaymentInput{
		OrderID:           helper.order.ID,
		ProviderPaymentID: "py_ext_1",
		AmountCents:       9999,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(helper.ledger.entries) != 0 {
		t.Fatal("expected no ledger writes on rejection")
	}
}

func TestRecordPayment_canceledOrderIsRejected(t *testing.T) {
	helper := newPaymentTest(t)
	helper.order.Status = enums.OrderStatusCanceled

	_, err := helper.svc.RecordPayment(context.Background(), RecordPaymentInput{
		OrderID:           helper.order.ID,
		ProviderPaymentID: "py_ext_1",
		AmountCents:       10000,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestRecordPayment_freshRefAgainstPaidOrderIsDoubleCharge(t *testing.T) {
	helper := newPaymentTest(t)
	helper.order.PaymentStatus = enums.PaymentStatusPaid

	_, err := helper.svc.RecordPayment(context.Background(), RecordPaymentInput{
		OrderID:           helper.order.ID,
		ProviderPaymentID: "py_brand_new",
		AmountCents:       10000,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if len(helper.ledger.entries) != 0 {
		t.Fatal("expected no ledger writes for a double charge")
	}
}

func TestRecordPayment_doubleChargeLookupErrorSurfaces(t *testing.T) {
	helper := newPaymentTest(t)
	helper.order.PaymentStatus = enums.PaymentStatusPaid
	helper.repo.lookupErr = pkgerrors.New(pkgerrors.CodeDependency, "connection reset")

	_, err := helper.svc.RecordPayment(context.Background(), RecordPaymentInput{
		OrderID:           helper.order.ID,
		ProviderPaymentID: "py_brand_new",
		AmountCents:       10000,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected the lookup error back, got %v", err)
	}
	if len(helper.ledger.entries) != 0 {
		t.Fatal("expected no ledger writes when the replay lookup fails")
	}
	if len(helper.repo.created) != 0 {
		t.Fatal("expected no payment row when the replay lookup fails")
	}
}

func TestRecordPayment_chargePathRequiresPayoutCapableStore(t *testing.T) {
	helper := newPaymentTest(t)
	helper.store.PayoutsEnabled = false

	_, err := helper.svc.RecordPayment(context.Background(), RecordPaymentInput{
		OrderID: helper.order.ID,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodePaymentSetup) {
		t.Fatalf("expected payment setup error, got %v", err)
	}
	if len(helper.gateway.chargeRequests) != 0 {
		t.Fatal("expected no charge against an incapable store")
	}
}

type paymentTestHelper struct {
	svc       Service
	order     *models.Order
	store     *models.Store
	repo      *fakePaymentRepo
	orderRepo *fakeOrderRepo
	ledger    *fakeLedgerService
	gateway   *fakePaymentGateway
	outbox    *fakeOutboxService
}

func newPaymentTest(t *testing.T) *paymentTestHelper {
	t.Helper()
	accountID := "acct_test_1"
	store := &models.Store{
		ID:                 uuid.New(),
		Name:               "Test Store",
		Currency:           enums.CurrencyUSD,
		ConnectedAccountID: &accountID,
		PayoutsEnabled:     true,
	}
	order := &models.Order{
		ID:            uuid.New(),
		StoreID:       store.ID,
		Currency:      enums.CurrencyUSD,
		TotalCents:    10000,
		Status:        enums.OrderStatusOpen,
		PaymentStatus: enums.PaymentStatusPending,
	}
	repo := &fakePaymentRepo{byProviderRef: map[string]*models.OrderPayment{}}
	orderRepo := &fakeOrderRepo{order: order}
	ledgerSvc := &fakeLedgerService{}
	gw := &fakePaymentGateway{}
	ob := &fakeOutboxService{}

	svc, err := NewService(
		fakeTxRunner{},
		repo,
		orderRepo,
		&fakeStoreService{store: store},
		ledgerSvc,
		gw,
		ob,
		logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		"stripe",
		testFeeBPS,
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &paymentTestHelper{
		svc:       svc,
		order:     order,
		store:     store,
		repo:      repo,
		orderRepo: orderRepo,
		ledger:    ledgerSvc,
		gateway:   gw,
		outbox:    ob,
	}
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakePaymentRepo struct {
	createErr     error
	lookupErr     error
	created       []*models.OrderPayment
	byProviderRef map[string]*models.OrderPayment
	statusUpdates []enums.OrderPaymentStatus
}

func (f *fakePaymentRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakePaymentRepo) Create(ctx context.Context, payment *models.OrderPayment) error {
	if f.createErr != nil {
		return f.createErr
	}
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	f.created = append(f.created, payment)
	f.byProviderRef[payment.ProviderPaymentID] = payment
	return nil
}

func (f *fakePaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.OrderPayment, error) {
	for _, payment := range f.created {
		if payment.ID == id {
			return payment, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
}

func (f *fakePaymentRepo) GetByProviderPaymentID(ctx context.Context, providerPaymentID string) (*models.OrderPayment, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if payment, ok := f.byProviderRef[providerPaymentID]; ok {
		return payment, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
}

func (f *fakePaymentRepo) GetLatestByOrderID(ctx context.Context, orderID uuid.UUID) (*models.OrderPayment, error) {
	for i := len(f.created) - 1; i >= 0; i-- {
		if f.created[i].OrderID == orderID {
			return f.created[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
}

func (f *fakePaymentRepo) SetStatus(ctx context.Context, id uuid.UUID, status enums.OrderPaymentStatus) error {
	f.statusUpdates = append(f.statusUpdates, status)
	return nil
}

type markPaidCall struct {
	orderID  uuid.UUID
	paidAt   time.Time
	complete bool
}

type fakeOrderRepo struct {
	order         *models.Order
	markPaidCalls []markPaidCall
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
	f.markPaidCalls = append(f.markPaidCalls, markPaidCall{orderID: id, paidAt: paidAt, complete: complete})
	return nil
}

func (f *fakeOrderRepo) SetPaymentStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus) error {
	f.statusUpdates = append(f.statusUpdates, status)
	return nil
}

type fakeStoreService struct {
	store *models.Store
}

func (f *fakeStoreService) GetStore(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	return f.store, nil
}

func (f *fakeStoreService) GetStores(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Store, error) {
	return map[uuid.UUID]models.Store{f.store.ID: *f.store}, nil
}

func (f *fakeStoreService) CreateConnectedAccount(ctx context.Context, storeID uuid.UUID, email string) (*models.Store, error) {
	return f.store, nil
}

type fakeLedgerService struct {
	entries   []ledger.AppendEntryInput
	refreshes int
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
	return 0, nil
}

func (f *fakeLedgerService) SetLastPayoutAt(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, currency enums.Currency, at time.Time) error {
	return nil
}

type fakePaymentGateway struct {
	chargeRequests []gateway.ChargeRequest
	chargeErr      error
}

func (f *fakePaymentGateway) CreateConnectedAccount(ctx context.Context, storeName, email string) (*gateway.ConnectedAccount, error) {
	return &gateway.ConnectedAccount{ID: "acct_test_1", PayoutsEnabled: true}, nil
}

func (f *fakePaymentGateway) ChargeWithDestination(ctx context.Context, req gateway.ChargeRequest) (*gateway.Charge, error) {
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}
	f.chargeRequests = append(f.chargeRequests, req)
	return &gateway.Charge{ProviderPaymentID: "py_test_1", AmountCents: req.AmountCents}, nil
}

func (f *fakePaymentGateway) Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.Refund, error) {
	return &gateway.Refund{ProviderRefundID: "re_test_1", AmountCents: req.AmountCents}, nil
}

func (f *fakePaymentGateway) RetrieveBalance(ctx context.Context, connectedAccount string, currency enums.Currency) (int64, error) {
	return 0, nil
}

func (f *fakePaymentGateway) CreatePayout(ctx context.Context, req gateway.PayoutRequest) (*gateway.Payout, error) {
	return &gateway.Payout{ProviderPayoutID: "po_test_1", AmountCents: req.AmountCents}, nil
}

type fakeOutboxService struct {
	events []outbox.DomainEvent
}

func (f *fakeOutboxService) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

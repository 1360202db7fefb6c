package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercata/mercata-backend/internal/inventory"
	"github.com/mercata/mercata-backend/internal/orders"
	"github.com/mercata/mercata-backend/internal/stores"
	dbpkg "github.com/mercata/mercata-backend/pkg/db"
	"github.com/mercata/mercata-backend/pkg/db/models"
	"github.com/mercata/mercata-backend/pkg/enums"
	pkgerrors "github.com/mercata/mercata-backend/pkg/errors"
	"github.com/mercata/mercata-backend/pkg/logger"
	"github.com/mercata/mercata-backend/pkg/outbox"
	"github.com/mercata/mercata-backend/pkg/outbox/payloads"
)

// CheckoutLine is one flat cart line before splitting.
type CheckoutLine struct {
	StoreID        uuid.UUID
	ProductID      uuid.UUID
	Name           string
	UnitPriceCents int64
	Qty            int
}

// CheckoutInput is a multi-store cart plus its cart-level charges.
type CheckoutInput struct {
	SessionID     uuid.UUID
	Currency      enums.Currency
	Lines         []CheckoutLine
	ShippingCents int64
	TaxCents      int64
	DiscountCents int64
	PlacedAt      time.Time
}

// Service splits a checkout into one order per store.
type Service interface {
	Execute(ctx context.Context, input CheckoutInput) ([]models.Order, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	db        dbpkg.TxRunner
	orderRepo orders.Repository
	stores    stores.Service
	inventory inventory.Service
	outbox    outboxEmitter
	logg      *logger.Logger
}

// NewService wires the order splitter with its collaborators.
func NewService(
	db dbpkg.TxRunner,
	orderRepo orders.Repository,
	storeSvc stores.Service,
	inventorySvc inventory.Service,
	ob outboxEmitter,
	logg *logger.Logger,
) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database client required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if storeSvc == nil {
		return nil, fmt.Errorf("store service required")
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
		orderRepo: orderRepo,
		stores:    storeSvc,
		inventory: inventorySvc,
		outbox:    ob,
		logg:      logg,
	}, nil
}

// Execute groups the cart by store, prorates cart-level charges by subtotal
// weight, and persists all resulting orders plus their inventory reservations
// in a single transaction. Any failure rolls back the whole checkout.
func (s *service) Execute(ctx context.Context, input CheckoutInput) ([]models.Order, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if input.SessionID == uuid.Nil {
		input.SessionID = uuid.New()
	}
	if input.PlacedAt.IsZero() {
		input.PlacedAt = time.Now()
	}

	groups := groupByStore(input.Lines)

	storeIDs := make([]uuid.UUID, len(groups))
	for i, group := range groups {
		storeIDs[i] = group.StoreID
	}
	storesByID, err := s.stores.GetStores(ctx, storeIDs)
	if err != nil {
		return nil, err
	}
	if err := checkStores(groups, storesByID); err != nil {
		return nil, err
	}

	allocations := allocateCharges(groups, input.ShippingCents, input.TaxCents, input.DiscountCents)

	created := make([]models.Order, 0, len(groups))
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		for i, group := range groups {
			order, buildErr := buildOrder(input, group, allocations[i])
			if buildErr != nil {
				return buildErr
			}
			if createErr := orderRepo.Create(ctx, order); createErr != nil {
				return createErr
			}

			adjustments := make([]inventory.Adjustment, len(group.Lines))
			for j, line := range group.Lines {
				adjustments[j] = inventory.Adjustment{ProductID: line.ProductID, Qty: line.Qty}
			}
			if invErr := s.inventory.Adjust(ctx, tx, enums.InventoryDirectionReserve, adjustments); invErr != nil {
				return invErr
			}

			created = append(created, *order)
		}

		orderIDs := make([]uuid.UUID, len(created))
		var totalCents int64
		for i, order := range created {
			orderIDs[i] = order.ID
			totalCents += order.TotalCents
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateCheckout,
			AggregateID:   input.SessionID,
			Version:       1,
			Data: payloads.OrderCreatedEvent{
				CheckoutSessionID: input.SessionID,
				OrderIDs:          orderIDs,
				Currency:          string(input.Currency),
				TotalCents:        totalCents,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"checkout_session_id": input.SessionID.String(),
		"order_count":         len(created),
	})
	s.logg.Info(logCtx, "checkout split into orders")
	return created, nil
}

func validateInput(input CheckoutInput) error {
	if len(input.Lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if !input.Currency.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid currency %q", input.Currency))
	}
	if input.ShippingCents < 0 || input.TaxCents < 0 || input.DiscountCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart-level charges must be non-negative")
	}
	for _, line := range input.Lines {
		if line.StoreID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "line store id is required")
		}
		if line.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "line product id is required")
		}
		if line.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "line qty must be positive")
		}
		if line.UnitPriceCents < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "line unit price must be non-negative")
		}
	}
	return nil
}

// checkStores rejects the checkout before any write when a store is unknown
// or cannot receive funds.
func checkStores(groups []storeGroup, storesByID map[uuid.UUID]models.Store) error {
	var notPayable []string
	for _, group := range groups {
		store, ok := storesByID[group.StoreID]
		if !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "unknown store in cart").
				WithDetails(map[string]string{"store_id": group.StoreID.String()})
		}
		if !store.PayoutCapable() {
			notPayable = append(notPayable, store.Name)
		}
	}
	if len(notPayable) > 0 {
		return pkgerrors.New(pkgerrors.CodePaymentSetup, "stores cannot receive funds").
			WithDetails(map[string]any{"stores": notPayable})
	}
	return nil
}

func buildOrder(input CheckoutInput, group storeGroup, alloc allocation) (*models.Order, error) {
	total := group.SubtotalCents + alloc.ShippingCents + alloc.TaxCents - alloc.DiscountCents
	if total < 0 {
		total = 0
	}

	items := make([]models.OrderItem, len(group.Lines))
	for i, line := range group.Lines {
		lineSubtotal := line.UnitPriceCents * int64(line.Qty)
		items[i] = models.OrderItem{
			ProductID:      line.ProductID,
			Name:           line.Name,
			UnitPriceCents: line.UnitPriceCents,
			Qty:            line.Qty,
			SubtotalCents:  lineSubtotal,
			TotalCents:     lineSubtotal,
		}
	}

	return &models.Order{
		StoreID:           group.StoreID,
		CheckoutSessionID: input.SessionID,
		Currency:          input.Currency,
		SubtotalCents:     group.SubtotalCents,
		DiscountCents:     alloc.DiscountCents,
		ShippingCents:     alloc.ShippingCents,
		TaxCents:          alloc.TaxCents,
		TotalCents:        total,
		Status:            enums.OrderStatusOpen,
		PaymentStatus:     enums.PaymentStatusPending,
		FulfillmentStatus: enums.FulfillmentStatusUnfulfilled,
		PlacedAt:          input.PlacedAt,
		Items:             items,
	}, nil
}

package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mercata/mercata-backend/api/responses"
	"github.com/mercata/mercata-backend/api/validators"
	checkoutsvc "github.com/mercata/mercata-backend/internal/checkout"
	"github.com/mercata/mercata-backend/pkg/db/models"
	"github.com/mercata/mercata-backend/pkg/enums"
	pkgerrors "github.com/mercata/mercata-backend/pkg/errors"
	"github.com/mercata/mercata-backend/pkg/logger"
)

// Checkout splits a multi-store cart into one order per store.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		currency, err := enums.ParseCurrency(payload.Currency)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency"))
			return
		}

		lines := make([]checkoutsvc.CheckoutLine, len(payload.Lines))
		for i, line := range payload.Lines {
			lines[i] = checkoutsvc.CheckoutLine{
				StoreID:        line.StoreID,
				ProductID:      line.ProductID,
				Name:           line.Name,
				UnitPriceCents: line.UnitPriceCents,
				Qty:            line.Qty,
			}
		}

		sessionID := uuid.Nil
		if payload.SessionID != nil {
			sessionID = *payload.SessionID
		}

		created, err := svc.Execute(r.Context(), checkoutsvc.CheckoutInput{
			SessionID:     sessionID,
			Currency:      currency,
			Lines:         lines,
			ShippingCents: payload.ShippingCents,
			TaxCents:      payload.TaxCents,
			DiscountCents: payload.DiscountCents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCheckoutResponse(created))
	}
}

type checkoutRequest struct {
	SessionID     *uuid.UUID          `json:"session_id,omitempty" validate:"omitempty,uuid4"`
	Currency      string              `json:"currency" validate:"required"`
	ShippingCents int64               `json:"shipping_cents" validate:"min=0"`
	TaxCents      int64               `json:"tax_cents" validate:"min=0"`
	DiscountCents int64               `json:"discount_cents" validate:"min=0"`
	Lines         []checkoutLineInput `json:"lines" validate:"required,min=1,dive"`
}

type checkoutLineInput struct {
	StoreID        uuid.UUID `json:"store_id" validate:"required,uuid4"`
	ProductID      uuid.UUID `json:"product_id" validate:"required,uuid4"`
	Name           string    `json:"name" validate:"required"`
	UnitPriceCents int64     `json:"unit_price_cents" validate:"min=0"`
	Qty            int       `json:"qty" validate:"required,gt=0"`
}

type checkoutResponse struct {
	CheckoutSessionID uuid.UUID       `json:"checkout_session_id"`
	Orders            []orderResponse `json:"orders"`
}

type orderResponse struct {
	OrderID       uuid.UUID           `json:"order_id"`
	StoreID       uuid.UUID           `json:"store_id"`
	Currency      string              `json:"currency"`
	SubtotalCents int64               `json:"subtotal_cents"`
	DiscountCents int64               `json:"discount_cents"`
	ShippingCents int64               `json:"shipping_cents"`
	TaxCents      int64               `json:"tax_cents"`
	TotalCents    int64               `json:"total_cents"`
	Status        string              `json:"status"`
	PaymentStatus string              `json:"payment_status"`
	Items         []orderItemResponse `json:"items"`
}

type orderItemResponse struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Qty            int       `json:"qty"`
	TotalCents     int64     `json:"total_cents"`
}

func newCheckoutResponse(orders []models.Order) checkoutResponse {
	resp := checkoutResponse{Orders: make([]orderResponse, 0, len(orders))}
	for _, order := range orders {
		resp.CheckoutSessionID = order.CheckoutSessionID
		resp.Orders = append(resp.Orders, newOrderResponse(order))
	}
	return resp
}

func newOrderResponse(order models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ProductID:      item.ProductID,
			Name:           item.Name,
			UnitPriceCents: item.UnitPriceCents,
			Qty:            item.Qty,
			TotalCents:     item.TotalCents,
		})
	}
	return orderResponse{
		OrderID:       order.ID,
		StoreID:       order.StoreID,
		Currency:      string(order.Currency),
		SubtotalCents: order.SubtotalCents,
		DiscountCents: order.DiscountCents,
		ShippingCents: order.ShippingCents,
		TaxCents:      order.TaxCents,
		TotalCents:    order.TotalCents,
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		Items:         items,
	}
}

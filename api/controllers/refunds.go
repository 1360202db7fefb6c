package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mercata/mercata-backend/api/responses"
	"github.com/mercata/mercata-backend/api/validators"
	"github.com/mercata/mercata-backend/internal/inventory"
	"github.com/mercata/mercata-backend/internal/refunds"
	"github.com/mercata/mercata-backend/pkg/enums"
	pkgerrors "github.com/mercata/mercata-backend/pkg/errors"
	"github.com/mercata/mercata-backend/pkg/logger"
	"github.com/mercata/mercata-backend/pkg/money"
)

// ProcessRefund reverses part or all of an order's recorded payment.
func ProcessRefund(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refund service unavailable"))
			return
		}

		orderID, err := uuidParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload refundRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		restock := make([]inventory.Adjustment, len(payload.Restock))
		for i, item := range payload.Restock {
			restock[i] = inventory.Adjustment{ProductID: item.ProductID, Qty: item.Qty}
		}

		result, err := svc.ProcessRefund(r.Context(), refunds.ProcessRefundInput{
			OrderID:     orderID,
			Type:        enums.RefundType(payload.Type),
			AmountCents: payload.AmountCents,
			Reason:      payload.Reason,
			Restock:     restock,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, refundResponse{
			OrderPaymentID:   result.OrderPaymentID,
			ProviderRefundID: result.ProviderRefundID,
			AmountCents:      result.AmountCents,
			Amount:           money.FormatCents(result.AmountCents),
			FeeReversalCents: result.FeeReversalCents,
			FeeReversal:      money.FormatCents(result.FeeReversalCents),
			Type:             string(result.Type),
		})
	}
}

type refundRequest struct {
	Type        string             `json:"type" validate:"required,oneof=full partial"`
	AmountCents int64              `json:"amount_cents,omitempty" validate:"required_if=Type partial,omitempty,gt=0"`
	Reason      string             `json:"reason,omitempty"`
	Restock     []restockItemInput `json:"restock,omitempty" validate:"omitempty,dive"`
}

type restockItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required,uuid4"`
	Qty       int       `json:"qty" validate:"required,gt=0"`
}

type refundResponse struct {
	OrderPaymentID   uuid.UUID `json:"order_payment_id"`
	ProviderRefundID string    `json:"provider_refund_id"`
	AmountCents      int64     `json:"amount_cents"`
	Amount           string    `json:"amount"`
	FeeReversalCents int64     `json:"fee_reversal_cents"`
	FeeReversal      string    `json:"fee_reversal"`
	Type             string    `json:"type"`
}

package controllers

import (
	"net/http"
	"time"

	"github.com/mercata/mercata-backend/api/responses"
	"github.com/mercata/mercata-backend/internal/ledger"
	"github.com/mercata/mercata-backend/pkg/enums"
	pkgerrors "github.com/mercata/mercata-backend/pkg/errors"
	"github.com/mercata/mercata-backend/pkg/logger"
	"github.com/mercata/mercata-backend/pkg/money"
)

// StoreBalance reads a store's ledger-derived balance. The replay is
// authoritative; a stale snapshot is healed on the way out.
func StoreBalance(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		storeID, err := uuidParam(r, "storeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		currency := enums.CurrencyUSD
		if raw := r.URL.Query().Get("currency"); raw != "" {
			currency, err = enums.ParseCurrency(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency"))
				return
			}
		}

		balance, err := svc.GetBalanceSummary(r.Context(), storeID, currency)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newBalanceResponse(balance))
	}
}

type balanceResponse struct {
	StoreID        string     `json:"store_id"`
	Currency       string     `json:"currency"`
	AvailableCents int64      `json:"available_cents"`
	Available      string     `json:"available"`
	PendingCents   int64      `json:"pending_cents"`
	Pending        string     `json:"pending"`
	CurrentCents   int64      `json:"current_cents"`
	Current        string     `json:"current"`
	AmountDueCents int64      `json:"amount_due_cents"`
	AmountDue      string     `json:"amount_due"`
	LastPayoutAt   *time.Time `json:"last_payout_at,omitempty"`
}

func newBalanceResponse(balance *ledger.Balance) balanceResponse {
	return balanceResponse{
		StoreID:        balance.StoreID.String(),
		Currency:       string(balance.Currency),
		AvailableCents: balance.AvailableCents,
		Available:      money.FormatCents(balance.AvailableCents),
		PendingCents:   balance.PendingCents,
		Pending:        money.FormatCents(balance.PendingCents),
		CurrentCents:   balance.CurrentCents,
		Current:        money.FormatCents(balance.CurrentCents),
		AmountDueCents: balance.AmountDueCents,
		AmountDue:      money.FormatCents(balance.AmountDueCents),
		LastPayoutAt:   balance.LastPayoutAt,
	}
}

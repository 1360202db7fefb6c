package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mercata/mercata-backend/api/responses"
	"github.com/mercata/mercata-backend/api/validators"
	"github.com/mercata/mercata-backend/internal/payouts"
	"github.com/mercata/mercata-backend/pkg/db/models"
	"github.com/mercata/mercata-backend/pkg/enums"
	pkgerrors "github.com/mercata/mercata-backend/pkg/errors"
	"github.com/mercata/mercata-backend/pkg/logger"
	"github.com/mercata/mercata-backend/pkg/money"
)

// RequestPayout runs the payout gates for a store on demand.
func RequestPayout(exec payouts.Executor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if exec == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout executor unavailable"))
			return
		}

		storeID, err := uuidParam(r, "storeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := exec.RequestManualPayout(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusOK
		if result.Outcome == payouts.OutcomeCompleted {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, newPayoutResultResponse(result))
	}
}

// ConfigurePayoutSettings upserts a store's payout preferences.
func ConfigurePayoutSettings(svc payouts.SettingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout settings service unavailable"))
			return
		}

		storeID, err := uuidParam(r, "storeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload payoutSettingsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		settings, err := svc.Configure(r.Context(), payouts.ConfigureSettingsInput{
			StoreID:          storeID,
			Method:           enums.PayoutMethod(payload.Method),
			Schedule:         enums.PayoutSchedule(payload.Schedule),
			PayoutDayOfWeek:  payload.PayoutDayOfWeek,
			PayoutDayOfMonth: payload.PayoutDayOfMonth,
			MinimumCents:     payload.MinimumCents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPayoutSettingsResponse(settings))
	}
}

// GetPayoutSettings returns a store's payout preferences.
func GetPayoutSettings(svc payouts.SettingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout settings service unavailable"))
			return
		}

		storeID, err := uuidParam(r, "storeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		settings, err := svc.Get(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPayoutSettingsResponse(settings))
	}
}

type payoutSettingsRequest struct {
	Method           string `json:"method" validate:"required,oneof=manual automatic"`
	Schedule         string `json:"schedule,omitempty" validate:"omitempty,oneof=weekly biweekly monthly"`
	PayoutDayOfWeek  int    `json:"payout_day_of_week,omitempty" validate:"min=0,max=6"`
	PayoutDayOfMonth int    `json:"payout_day_of_month,omitempty" validate:"min=0,max=31"`
	MinimumCents     int64  `json:"minimum_cents,omitempty" validate:"min=0"`
}

type payoutSettingsResponse struct {
	StoreID          uuid.UUID  `json:"store_id"`
	Method           string     `json:"method"`
	Schedule         string     `json:"schedule"`
	PayoutDayOfWeek  int        `json:"payout_day_of_week"`
	PayoutDayOfMonth int        `json:"payout_day_of_month"`
	MinimumCents     int64      `json:"minimum_cents"`
	Minimum          string     `json:"minimum"`
	NextPayoutAt     *time.Time `json:"next_payout_at,omitempty"`
}

func newPayoutSettingsResponse(settings *models.SellerPayoutSettings) payoutSettingsResponse {
	return payoutSettingsResponse{
		StoreID:          settings.StoreID,
		Method:           string(settings.Method),
		Schedule:         string(settings.Schedule),
		PayoutDayOfWeek:  settings.PayoutDayOfWeek,
		PayoutDayOfMonth: settings.PayoutDayOfMonth,
		MinimumCents:     settings.MinimumCents,
		Minimum:          money.FormatCents(settings.MinimumCents),
		NextPayoutAt:     settings.NextPayoutAt,
	}
}

type payoutResultResponse struct {
	Outcome     string         `json:"outcome"`
	SkipReason  string         `json:"skip_reason,omitempty"`
	AmountCents int64          `json:"amount_cents,omitempty"`
	Amount      string         `json:"amount,omitempty"`
	Payout      *payoutDetails `json:"payout,omitempty"`
}

type payoutDetails struct {
	PayoutID         uuid.UUID  `json:"payout_id"`
	StoreID          uuid.UUID  `json:"store_id"`
	Currency         string     `json:"currency"`
	Status           string     `json:"status"`
	ProviderPayoutID *string    `json:"provider_payout_id,omitempty"`
	RequestedAt      time.Time  `json:"requested_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

func newPayoutResultResponse(result *payouts.ExecutionResult) payoutResultResponse {
	resp := payoutResultResponse{
		Outcome:     string(result.Outcome),
		SkipReason:  result.SkipReason,
		AmountCents: result.AmountCents,
	}
	if result.AmountCents > 0 {
		resp.Amount = money.FormatCents(result.AmountCents)
	}
	if result.Payout != nil {
		resp.Payout = &payoutDetails{
			PayoutID:         result.Payout.ID,
			StoreID:          result.Payout.StoreID,
			Currency:         string(result.Payout.Currency),
			Status:           string(result.Payout.Status),
			ProviderPayoutID: result.Payout.ProviderPayoutID,
			RequestedAt:      result.Payout.RequestedAt,
			CompletedAt:      result.Payout.CompletedAt,
		}
	}
	return resp
}

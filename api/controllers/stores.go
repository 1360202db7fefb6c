package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mercata/mercata-backend/api/responses"
	"github.com/mercata/mercata-backend/api/validators"
	"github.com/mercata/mercata-backend/internal/stores"
	"github.com/mercata/mercata-backend/pkg/db/models"
	pkgerrors "github.com/mercata/mercata-backend/pkg/errors"
	"github.com/mercata/mercata-backend/pkg/logger"
)

// CreateConnectedAccount provisions a processor account for the store.
func CreateConnectedAccount(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store service unavailable"))
			return
		}

		storeID, err := uuidParam(r, "storeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload connectedAccountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store, err := svc.CreateConnectedAccount(r.Context(), storeID, payload.Email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newStoreResponse(store))
	}
}

// GetStore returns a store's settlement-relevant profile.
func GetStore(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store service unavailable"))
			return
		}

		storeID, err := uuidParam(r, "storeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store, err := svc.GetStore(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newStoreResponse(store))
	}
}

type connectedAccountRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type storeResponse struct {
	StoreID            uuid.UUID `json:"store_id"`
	Name               string    `json:"name"`
	Currency           string    `json:"currency"`
	ConnectedAccountID *string   `json:"connected_account_id,omitempty"`
	PayoutsEnabled     bool      `json:"payouts_enabled"`
	PayoutCapable      bool      `json:"payout_capable"`
}

func newStoreResponse(store *models.Store) storeResponse {
	return storeResponse{
		StoreID:            store.ID,
		Name:               store.Name,
		Currency:           string(store.Currency),
		ConnectedAccountID: store.ConnectedAccountID,
		PayoutsEnabled:     store.PayoutsEnabled,
		PayoutCapable:      store.PayoutCapable(),
	}
}

package stores

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mercata/mercata-backend/pkg/db/models"
	pkgerrors "github.com/mercata/mercata-backend/pkg/errors"
	"github.com/mercata/mercata-backend/pkg/gateway"
	"github.com/mercata/mercata-backend/pkg/logger"
)

// Service exposes the store read side the settlement engine depends on plus
// connected-account onboarding.
type Service interface {
	GetStore(ctx context.Context, id uuid.UUID) (*models.Store, error)
	GetStores(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Store, error)
	CreateConnectedAccount(ctx context.Context, storeID uuid.UUID, email string) (*models.Store, error)
}

type service struct {
	repo    Repository
	gateway gateway.PaymentGateway
	logg    *logger.Logger
}

// NewService wires a store service with its dependencies.
func NewService(repo Repository, gw gateway.PaymentGateway, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("store repository required")
	}
	if gw == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, gateway: gw, logg: logg}, nil
}

func (s *service) GetStore(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetStores(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Store, error) {
	rows, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Store, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	return byID, nil
}

// CreateConnectedAccount provisions a processor account for the store and
// persists the returned id. Payouts stay disabled until the processor reports
// the account payout-capable.
func (s *service) CreateConnectedAccount(ctx context.Context, storeID uuid.UUID, email string) (*models.Store, error) {
	store, err := s.GetStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if store.ConnectedAccountID != nil && *store.ConnectedAccountID != "" {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "store already has a connected account")
	}

	account, err := s.gateway.CreateConnectedAccount(ctx, store.Name, email)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetConnectedAccount(ctx, storeID, account.ID, account.PayoutsEnabled); err != nil {
		// The processor account exists but our row does not reference it.
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"store_id":             storeID.String(),
			"connected_account_id": account.ID,
		})
		s.logg.Error(logCtx, "settlement.reconciliation_required: connected account created but not persisted", err)
		return nil, err
	}

	store.ConnectedAccountID = &account.ID
	store.PayoutsEnabled = account.PayoutsEnabled
	return store, nil
}

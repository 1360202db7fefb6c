package payouts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mercata/mercata-backend/internal/stores"
	"github.com/mercata/mercata-backend/pkg/db/models"
	"github.com/mercata/mercata-backend/pkg/enums"
	pkgerrors "github.com/mercata/mercata-backend/pkg/errors"
)

// ConfigureSettingsInput carries a store's payout preferences.
type ConfigureSettingsInput struct {
	StoreID          uuid.UUID
	Method           enums.PayoutMethod
	Schedule         enums.PayoutSchedule
	PayoutDayOfWeek  int
	PayoutDayOfMonth int
	MinimumCents     int64
}

// SettingsService manages per-store payout preferences.
type SettingsService interface {
	Configure(ctx context.Context, input ConfigureSettingsInput) (*models.SellerPayoutSettings, error)
	Get(ctx context.Context, storeID uuid.UUID) (*models.SellerPayoutSettings, error)
}

type settingsService struct {
	repo   Repository
	stores stores.Service
}

// NewSettingsService wires the payout settings manager.
func NewSettingsService(repo Repository, storeSvc stores.Service) (SettingsService, error) {
	if repo == nil {
		return nil, fmt.Errorf("payout repository required")
	}
	if storeSvc == nil {
		return nil, fmt.Errorf("store service required")
	}
	return &settingsService{repo: repo, stores: storeSvc}, nil
}

// Configure validates and upserts the store's payout preferences. Switching
// to automatic schedules the first payout from now; switching to manual
// clears it.
func (s *settingsService) Configure(ctx context.Context, input ConfigureSettingsInput) (*models.SellerPayoutSettings, error) {
	if input.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payout method %q", input.Method))
	}
	if input.MinimumCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum payout must not be negative")
	}
	if input.Method == enums.PayoutMethodAutomatic {
		if !input.Schedule.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payout schedule %q", input.Schedule))
		}
		switch input.Schedule {
		case enums.PayoutScheduleWeekly, enums.PayoutScheduleBiweekly:
			if input.PayoutDayOfWeek < 0 || input.PayoutDayOfWeek > 6 {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout day of week must be 0 through 6")
			}
		case enums.PayoutScheduleMonthly:
			if input.PayoutDayOfMonth < 1 || input.PayoutDayOfMonth > 31 {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout day of month must be 1 through 31")
			}
		}
	}

	if _, err := s.stores.GetStore(ctx, input.StoreID); err != nil {
		return nil, err
	}

	settings, err := s.repo.GetSettings(ctx, input.StoreID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = &models.SellerPayoutSettings{StoreID: input.StoreID}
	}
	settings.Method = input.Method
	settings.Schedule = input.Schedule
	settings.PayoutDayOfWeek = input.PayoutDayOfWeek
	settings.PayoutDayOfMonth = input.PayoutDayOfMonth
	settings.MinimumCents = input.MinimumCents

	if input.Method == enums.PayoutMethodAutomatic {
		next := NextPayoutAt(settings, time.Now())
		settings.NextPayoutAt = &next
	} else {
		settings.NextPayoutAt = nil
	}

	if err := s.repo.UpsertSettings(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *settingsService) Get(ctx context.Context, storeID uuid.UUID) (*models.SellerPayoutSettings, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	settings, err := s.repo.GetSettings(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout settings not found")
	}
	return settings, nil
}

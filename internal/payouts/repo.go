package payouts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercata/mercata-backend/pkg/db/models"
	"github.com/mercata/mercata-backend/pkg/enums"
	pkgerrors "github.com/mercata/mercata-backend/pkg/errors"
)

// Repository manages persistence for payout settings and payout attempts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetSettings(ctx context.Context, storeID uuid.UUID) (*models.SellerPayoutSettings, error)
	UpsertSettings(ctx context.Context, settings *models.SellerPayoutSettings) error
	ListDueAutomatic(ctx context.Context, now time.Time) ([]models.SellerPayoutSettings, error)
	SetNextPayoutAt(ctx context.Context, storeID uuid.UUID, next time.Time) error
	CreatePayout(ctx context.Context, payout *models.SellerPayout) error
	MarkCompleted(ctx context.Context, id uuid.UUID, providerPayoutID string, completedAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	GetPayout(ctx context.Context, id uuid.UUID) (*models.SellerPayout, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payout repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetSettings(ctx context.Context, storeID uuid.UUID) (*models.SellerPayoutSettings, error) {
	var settings models.SellerPayoutSettings
	err := r.db.WithContext(ctx).First(&settings, "store_id = ?", storeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *repository) UpsertSettings(ctx context.Context, settings *models.SellerPayoutSettings) error {
	return r.db.WithContext(ctx).Save(settings).Error
}

func (r *repository) ListDueAutomatic(ctx context.Context, now time.Time) ([]models.SellerPayoutSettings, error) {
	var rows []models.SellerPayoutSettings
	err := r.db.WithContext(ctx).
		Where("method = ? AND next_payout_at IS NOT NULL AND next_payout_at <= ?", enums.PayoutMethodAutomatic, now).
		Order("next_payout_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) SetNextPayoutAt(ctx context.Context, storeID uuid.UUID, next time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.SellerPayoutSettings{}).
		Where("store_id = ?", storeID).
		Update("next_payout_at", next)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payout settings not found")
	}
	return nil
}

func (r *repository) CreatePayout(ctx context.Context, payout *models.SellerPayout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) MarkCompleted(ctx context.Context, id uuid.UUID, providerPayoutID string, completedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.SellerPayout{}).
		Where("id = ? AND status = ?", id, enums.PayoutStatusPending).
		Updates(map[string]any{
			"status":             enums.PayoutStatusCompleted,
			"provider_payout_id": providerPayoutID,
			"completed_at":       completedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payout is not pending")
	}
	return nil
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	result := r.db.WithContext(ctx).Model(&models.SellerPayout{}).
		Where("id = ? AND status = ?", id, enums.PayoutStatusPending).
		Updates(map[string]any{
			"status":         enums.PayoutStatusFailed,
			"failure_reason": reason,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payout is not pending")
	}
	return nil
}

func (r *repository) GetPayout(ctx context.Context, id uuid.UUID) (*models.SellerPayout, error) {
	var payout models.SellerPayout
	err := r.db.WithContext(ctx).First(&payout, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
	}
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

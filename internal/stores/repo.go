package stores

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercata/mercata-backend/pkg/db/models"
	pkgerrors "github.com/mercata/mercata-backend/pkg/errors"
)

// Repository manages persistence for stores.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Store, error)
	SetConnectedAccount(ctx context.Context, id uuid.UUID, accountID string, payoutsEnabled bool) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a store repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var store models.Store
	err := r.db.WithContext(ctx).First(&store, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	if err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *repository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Store, error) {
	var rows []models.Store
	if len(ids) == 0 {
		return rows, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

func (r *repository) SetConnectedAccount(ctx context.Context, id uuid.UUID, accountID string, payoutsEnabled bool) error {
	result := r.db.WithContext(ctx).Model(&models.Store{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"connected_account_id": accountID,
			"payouts_enabled":      payoutsEnabled,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	return nil
}

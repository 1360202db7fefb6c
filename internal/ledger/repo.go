package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mercata/mercata-backend/pkg/db/models"
	"github.com/mercata/mercata-backend/pkg/enums"
)

// Repository manages persistence for balance entries and snapshots.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateEntry(ctx context.Context, entry *models.SellerBalanceEntry) error
	ListEntries(ctx context.Context, storeID uuid.UUID, currency enums.Currency) ([]models.SellerBalanceEntry, error)
	SumByTypeForPayment(ctx context.Context, orderPaymentID uuid.UUID, entryType enums.BalanceEntryType) (int64, error)
	GetSnapshot(ctx context.Context, storeID uuid.UUID, currency enums.Currency) (*models.SellerBalance, error)
	UpsertSnapshot(ctx context.Context, snapshot *models.SellerBalance) error
	SetLastPayoutAt(ctx context.Context, storeID uuid.UUID, currency enums.Currency, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateEntry(ctx context.Context, entry *models.SellerBalanceEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListEntries(ctx context.Context, storeID uuid.UUID, currency enums.Currency) ([]models.SellerBalanceEntry, error) {
	var rows []models.SellerBalanceEntry
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND currency = ?", storeID, currency).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) SumByTypeForPayment(ctx context.Context, orderPaymentID uuid.UUID, entryType enums.BalanceEntryType) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.SellerBalanceEntry{}).
		Where("order_payment_id = ? AND type = ?", orderPaymentID, entryType).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&total).Error
	return total, err
}

func (r *repository) GetSnapshot(ctx context.Context, storeID uuid.UUID, currency enums.Currency) (*models.SellerBalance, error) {
	var snapshot models.SellerBalance
	err := r.db.WithContext(ctx).
		First(&snapshot, "store_id = ? AND currency = ?", storeID, currency).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *repository) UpsertSnapshot(ctx context.Context, snapshot *models.SellerBalance) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "store_id"}, {Name: "currency"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"available_cents", "pending_cents", "updated_at",
		}),
	}).Create(snapshot).Error
}

func (r *repository) SetLastPayoutAt(ctx context.Context, storeID uuid.UUID, currency enums.Currency, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.SellerBalance{}).
		Where("store_id = ? AND currency = ?", storeID, currency).
		Update("last_payout_at", at).Error
}

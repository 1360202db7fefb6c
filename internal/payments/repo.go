package payments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercata/mercata-backend/pkg/db/models"
	"github.com/mercata/mercata-backend/pkg/enums"
	pkgerrors "github.com/mercata/mercata-backend/pkg/errors"
)

// Repository manages persistence for order payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.OrderPayment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.OrderPayment, error)
	GetByProviderPaymentID(ctx context.Context, providerPaymentID string) (*models.OrderPayment, error)
	GetLatestByOrderID(ctx context.Context, orderID uuid.UUID) (*models.OrderPayment, error)
	SetStatus(ctx context.Context, id uuid.UUID, status enums.OrderPaymentStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.OrderPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.OrderPayment, error) {
	var payment models.OrderPayment
	err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order payment not found")
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) GetByProviderPaymentID(ctx context.Context, providerPaymentID string) (*models.OrderPayment, error) {
	var payment models.OrderPayment
	err := r.db.WithContext(ctx).First(&payment, "provider_payment_id = ?", providerPaymentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order payment not found")
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) GetLatestByOrderID(ctx context.Context, orderID uuid.UUID) (*models.OrderPayment, error) {
	var payment models.OrderPayment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no payment recorded for order")
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) SetStatus(ctx context.Context, id uuid.UUID, status enums.OrderPaymentStatus) error {
	result := r.db.WithContext(ctx).Model(&models.OrderPayment{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order payment not found")
	}
	return nil
}

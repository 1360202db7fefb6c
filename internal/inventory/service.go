package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercata/mercata-backend/pkg/db/models"
	"github.com/mercata/mercata-backend/pkg/enums"
	pkgerrors "github.com/mercata/mercata-backend/pkg/errors"
	"github.com/mercata/mercata-backend/pkg/logger"
)

// Adjustment is one stock movement for a product.
type Adjustment struct {
	ProductID uuid.UUID
	Qty       int
}

// Service adjusts stock levels inside the caller's transaction. Reserve
// decrements with a guard so two concurrent checkouts cannot both take the
// last unit; release and restock add the quantity back.
type Service interface {
	Adjust(ctx context.Context, tx *gorm.DB, direction enums.InventoryDirection, items []Adjustment) error
}

type service struct {
	logg *logger.Logger
}

// NewService wires the inventory service.
func NewService(logg *logger.Logger) (Service, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{logg: logg}, nil
}

func (s *service) Adjust(ctx context.Context, tx *gorm.DB, direction enums.InventoryDirection, items []Adjustment) error {
	if tx == nil {
		return fmt.Errorf("transaction required")
	}
	if !direction.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid inventory direction %q", direction))
	}

	for _, item := range items {
		if item.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "adjustment qty must be positive")
		}
		if err := s.apply(ctx, tx, direction, item); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) apply(ctx context.Context, tx *gorm.DB, direction enums.InventoryDirection, item Adjustment) error {
	switch direction {
	case enums.InventoryDirectionReserve:
		result := tx.WithContext(ctx).Model(&models.InventoryItem{}).
			Where("product_id = ? AND quantity >= ?", item.ProductID, item.Qty).
			Update("quantity", gorm.Expr("quantity - ?", item.Qty))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
				WithDetails(map[string]string{"product_id": item.ProductID.String()})
		}
		return nil

	case enums.InventoryDirectionRelease, enums.InventoryDirectionRestock:
		result := tx.WithContext(ctx).Model(&models.InventoryItem{}).
			Where("product_id = ?", item.ProductID).
			Update("quantity", gorm.Expr("quantity + ?", item.Qty))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found").
				WithDetails(map[string]string{"product_id": item.ProductID.String()})
		}
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid inventory direction %q", direction))
}

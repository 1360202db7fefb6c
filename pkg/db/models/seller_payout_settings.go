package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercata/mercata-backend/pkg/enums"
)

// SellerPayoutSettings holds a store's payout preferences. NextPayoutAt is
// advanced by the payout executor from the actual completion time of each
// automatic payout.
type SellerPayoutSettings struct {
	StoreID          uuid.UUID            `gorm:"column:store_id;type:uuid;primaryKey"`
	Method           enums.PayoutMethod   `gorm:"column:method;type:payout_method;not null;default:'manual'"`
	MinimumCents     int64                `gorm:"column:minimum_cents;not null;default:0"`
	Schedule         enums.PayoutSchedule `gorm:"column:schedule;type:payout_schedule;not null;default:'weekly'"`
	PayoutDayOfWeek  int                  `gorm:"column:payout_day_of_week;not null;default:1"`
	PayoutDayOfMonth int                  `gorm:"column:payout_day_of_month;not null;default:1"`
	NextPayoutAt     *time.Time           `gorm:"column:next_payout_at"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

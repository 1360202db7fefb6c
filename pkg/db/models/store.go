package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercata/mercata-backend/pkg/enums"
)

// Store is the read-side projection of a seller account as the settlement
// engine needs it: settlement currency plus payout destination flags.
type Store struct {
	ID                 uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name               string         `gorm:"column:name;not null"`
	Currency           enums.Currency `gorm:"column:currency;type:text;not null;default:'USD'"`
	ConnectedAccountID *string        `gorm:"column:connected_account_id;unique"`
	PayoutsEnabled     bool           `gorm:"column:payouts_enabled;not null;default:false"`
	CreatedAt          time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// PayoutCapable reports whether the store can receive funds at the processor.
func (s *Store) PayoutCapable() bool {
	return s != nil && s.PayoutsEnabled && s.ConnectedAccountID != nil && *s.ConnectedAccountID != ""
}

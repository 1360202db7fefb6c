package enums

import "fmt"

// PayoutMethod selects how a store's payouts are initiated.
type PayoutMethod string

const (
	PayoutMethodManual    PayoutMethod = "manual"
	PayoutMethodAutomatic PayoutMethod = "automatic"
)

// IsValid reports whether the value matches the canonical payout method enum.
func (m PayoutMethod) IsValid() bool {
	return m == PayoutMethodManual || m == PayoutMethodAutomatic
}

// PayoutSchedule is the cadence for automatic payouts.
type PayoutSchedule string

const (
	PayoutScheduleWeekly   PayoutSchedule = "weekly"
	PayoutScheduleBiweekly PayoutSchedule = "biweekly"
	PayoutScheduleMonthly  PayoutSchedule = "monthly"
)

var validPayoutSchedules = []PayoutSchedule{
	PayoutScheduleWeekly,
	PayoutScheduleBiweekly,
	PayoutScheduleMonthly,
}

// IsValid reports whether the value matches the canonical schedule enum.
func (s PayoutSchedule) IsValid() bool {
	for _, candidate := range validPayoutSchedules {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePayoutSchedule converts raw input into PayoutSchedule.
func ParsePayoutSchedule(value string) (PayoutSchedule, error) {
	for _, candidate := range validPayoutSchedules {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout schedule %q", value)
}

// PayoutStatus tracks a payout attempt. Completed is terminal.
type PayoutStatus string

const (
	PayoutStatusPending   PayoutStatus = "pending"
	PayoutStatusCompleted PayoutStatus = "completed"
	PayoutStatusFailed    PayoutStatus = "failed"
)

// IsValid reports whether the value matches the canonical payout status enum.
func (s PayoutStatus) IsValid() bool {
	switch s {
	case PayoutStatusPending, PayoutStatusCompleted, PayoutStatusFailed:
		return true
	}
	return false
}

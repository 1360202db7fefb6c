package enums

import "fmt"

// BalanceEntryType maps to the balance_entry_type enum in Postgres.
type BalanceEntryType string

const (
	BalanceEntryTypeOrderPayment BalanceEntryType = "order_payment"
	BalanceEntryTypePlatformFee  BalanceEntryType = "platform_fee"
	BalanceEntryTypeRefund       BalanceEntryType = "refund"
	BalanceEntryTypePayout       BalanceEntryType = "payout"
	BalanceEntryTypeAdjustment   BalanceEntryType = "adjustment"
)

var validBalanceEntryTypes = []BalanceEntryType{
	BalanceEntryTypeOrderPayment,
	BalanceEntryTypePlatformFee,
	BalanceEntryTypeRefund,
	BalanceEntryTypePayout,
	BalanceEntryTypeAdjustment,
}

// IsValid reports whether the value matches the canonical ledger entry enum.
func (t BalanceEntryType) IsValid() bool {
	for _, candidate := range validBalanceEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ClearsAfterDelay reports whether entries of this type sit in the pending
// window before counting toward the available balance. Refunds, payouts and
// adjustments always hit the available balance immediately.
func (t BalanceEntryType) ClearsAfterDelay() bool {
	return t == BalanceEntryTypeOrderPayment || t == BalanceEntryTypePlatformFee
}

// ParseBalanceEntryType converts raw input into BalanceEntryType.
func ParseBalanceEntryType(value string) (BalanceEntryType, error) {
	for _, candidate := range validBalanceEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid balance entry type %q", value)
}

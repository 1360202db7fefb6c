package enums

// RefundType selects a full or partial reversal of a payment.
type RefundType string

const (
	RefundTypeFull    RefundType = "full"
	RefundTypePartial RefundType = "partial"
)

// IsValid reports whether the value matches the canonical refund type enum.
func (t RefundType) IsValid() bool {
	return t == RefundTypeFull || t == RefundTypePartial
}

package enums

// OrderPaymentStatus tracks the lifecycle of a recorded charge.
type OrderPaymentStatus string

const (
	OrderPaymentStatusCompleted         OrderPaymentStatus = "completed"
	OrderPaymentStatusPartiallyRefunded OrderPaymentStatus = "partially_refunded"
	OrderPaymentStatusRefunded          OrderPaymentStatus = "refunded"
)

// IsValid reports whether the value matches the canonical enum.
func (s OrderPaymentStatus) IsValid() bool {
	switch s {
	case OrderPaymentStatusCompleted, OrderPaymentStatusPartiallyRefunded, OrderPaymentStatusRefunded:
		return true
	}
	return false
}

// TransferStatus reports whether a payment's funds are still inside the hold
// window or released toward payout.
type TransferStatus string

const (
	TransferStatusHeld     TransferStatus = "held"
	TransferStatusReleased TransferStatus = "released"
)

// IsValid reports whether the value matches the canonical enum.
func (s TransferStatus) IsValid() bool {
	return s == TransferStatusHeld || s == TransferStatusReleased
}

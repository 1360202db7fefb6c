package enums

// FulfillmentStatus maps to the fulfillment_status enum in Postgres.
type FulfillmentStatus string

const (
	FulfillmentStatusUnfulfilled FulfillmentStatus = "unfulfilled"
	FulfillmentStatusPartial     FulfillmentStatus = "partial"
	FulfillmentStatusFulfilled   FulfillmentStatus = "fulfilled"
)

// IsValid reports whether the value matches the canonical fulfillment enum.
func (s FulfillmentStatus) IsValid() bool {
	switch s {
	case FulfillmentStatusUnfulfilled, FulfillmentStatusPartial, FulfillmentStatusFulfilled:
		return true
	}
	return false
}

package enums

// OutboxEventType names the settlement domain events carried by the outbox.
type OutboxEventType string

const (
	EventOrderCreated     OutboxEventType = "order.created"
	EventPaymentReceived  OutboxEventType = "payment.received"
	EventRefundProcessed  OutboxEventType = "refund.processed"
	EventPayoutCompleted  OutboxEventType = "payout.completed"
	EventPayoutFailed     OutboxEventType = "payout.failed"
	EventBalanceRecovered OutboxEventType = "balance.snapshot_recovered"
)

// IsValid reports whether the value matches a known event type.
func (t OutboxEventType) IsValid() bool {
	switch t {
	case EventOrderCreated, EventPaymentReceived, EventRefundProcessed,
		EventPayoutCompleted, EventPayoutFailed, EventBalanceRecovered:
		return true
	}
	return false
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateCheckout OutboxAggregateType = "checkout"
	AggregateOrder    OutboxAggregateType = "order"
	AggregatePayment  OutboxAggregateType = "order_payment"
	AggregatePayout   OutboxAggregateType = "seller_payout"
	AggregateStore    OutboxAggregateType = "store"
)

// IsValid reports whether the value matches a known aggregate type.
func (t OutboxAggregateType) IsValid() bool {
	switch t {
	case AggregateCheckout, AggregateOrder, AggregatePayment, AggregatePayout, AggregateStore:
		return true
	}
	return false
}

package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// Dedupe keys encode the idempotency identity of a money movement. The
// seller_balance_entries.dedupe_key column is unique where present, so a
// retried write of the same movement fails fast on insert instead of double
// counting.

func OrderPaymentKey(paymentID uuid.UUID) string {
	return fmt.Sprintf("order_payment:%s", paymentID)
}

func PlatformFeeKey(paymentID uuid.UUID) string {
	return fmt.Sprintf("platform_fee:%s", paymentID)
}

func RefundKey(refundRef string) string {
	return fmt.Sprintf("refund:%s", refundRef)
}

func PlatformFeeReversalKey(refundRef string) string {
	return fmt.Sprintf("platform_fee_reversal:%s", refundRef)
}

func PayoutKey(payoutID uuid.UUID) string {
	return fmt.Sprintf("payout:%s", payoutID)
}

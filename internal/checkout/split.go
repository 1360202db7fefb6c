package checkout

import (
	"sort"

	"github.com/google/uuid"

	"github.com/mercata/mercata-backend/pkg/money"
)

// storeGroup is one store's slice of the cart before it becomes an order.
type storeGroup struct {
	StoreID       uuid.UUID
	Lines         []CheckoutLine
	SubtotalCents int64
}

// allocation carries a group's prorated share of the cart-level charges.
type allocation struct {
	ShippingCents int64
	TaxCents      int64
	DiscountCents int64
}

// groupByStore buckets cart lines per store, ordered by store id so the
// proration remainder lands deterministically on the same store across
// retries.
func groupByStore(lines []CheckoutLine) []storeGroup {
	byStore := make(map[uuid.UUID]*storeGroup)
	for _, line := range lines {
		group, ok := byStore[line.StoreID]
		if !ok {
			group = &storeGroup{StoreID: line.StoreID}
			byStore[line.StoreID] = group
		}
		group.Lines = append(group.Lines, line)
		group.SubtotalCents += line.UnitPriceCents * int64(line.Qty)
	}

	groups := make([]storeGroup, 0, len(byStore))
	for _, group := range byStore {
		groups = append(groups, *group)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].StoreID.String() < groups[j].StoreID.String()
	})
	return groups
}

// allocateCharges prorates the cart-level shipping, tax and discount across
// the groups by subtotal weight. Each charge is prorated independently so
// every one sums exactly to its cart total.
func allocateCharges(groups []storeGroup, shippingCents, taxCents, discountCents int64) []allocation {
	weights := make([]int64, len(groups))
	for i, group := range groups {
		weights[i] = group.SubtotalCents
	}

	shipping := money.Prorate(shippingCents, weights)
	tax := money.Prorate(taxCents, weights)
	discount := money.Prorate(discountCents, weights)

	allocations := make([]allocation, len(groups))
	for i := range groups {
		allocations[i] = allocation{
			ShippingCents: shipping[i],
			TaxCents:      tax[i],
			DiscountCents: discount[i],
		}
	}
	return allocations
}

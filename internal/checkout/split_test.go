package checkout

import (
	"testing"

	"github.com/google/uuid"
)

func TestGroupByStore_bucketsLinesAndSumsSubtotals(t *testing.T) {
	storeA := uuid.New()
	storeB := uuid.New()
	lines := []CheckoutLine{
		{StoreID: storeA, ProductID: uuid.New(), Name: "hat", UnitPriceCents: 1500, Qty: 2},
		{StoreID: storeB, ProductID: uuid.New(), Name: "mug", UnitPriceCents: 700, Qty: 1},
		{StoreID: storeA, ProductID: uuid.New(), Name: "pin", UnitPriceCents: 250, Qty: 4},
	}

	groups := groupByStore(lines)

	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	byStore := map[uuid.UUID]storeGroup{}
	for _, group := range groups {
		byStore[group.StoreID] = group
	}
	if got := byStore[storeA].SubtotalCents; got != 4000 {
		t.Fatalf("expected store A subtotal 4000, got %d", got)
	}
	if got := len(byStore[storeA].Lines); got != 2 {
		t.Fatalf("expected 2 lines for store A, got %d", got)
	}
	if got := byStore[storeB].SubtotalCents; got != 700 {
		t.Fatalf("expected store B subtotal 700, got %d", got)
	}
}

func TestGroupByStore_orderIsDeterministic(t *testing.T) {
	storeA := uuid.New()
	storeB := uuid.New()
	lines := []CheckoutLine{
		{StoreID: storeA, ProductID: uuid.New(), UnitPriceCents: 100, Qty: 1},
		{StoreID: storeB, ProductID: uuid.New(), UnitPriceCents: 100, Qty: 1},
	}
	reversed := []CheckoutLine{lines[1], lines[0]}

	first := groupByStore(lines)
	second := groupByStore(reversed)

	if first[0].StoreID != second[0].StoreID || first[1].StoreID != second[1].StoreID {
		t.Fatal("expected identical group order regardless of line order")
	}
	if first[0].StoreID.String() > first[1].StoreID.String() {
		t.Fatal("expected groups sorted by store id")
	}
}

func TestAllocateCharges_proratesBySubtotalWeight(t *testing.T) {
	groups := []storeGroup{
		{StoreID: uuid.New(), SubtotalCents: 3000},
		{StoreID: uuid.New(), SubtotalCents: 7000},
	}

	allocations := allocateCharges(groups, 1000, 500, 200)

	if allocations[0].ShippingCents != 300 || allocations[1].ShippingCents != 700 {
		t.Fatalf("unexpected shipping split: %d/%d", allocations[0].ShippingCents, allocations[1].ShippingCents)
	}
	if allocations[0].TaxCents != 150 || allocations[1].TaxCents != 350 {
		t.Fatalf("unexpected tax split: %d/%d", allocations[0].TaxCents, allocations[1].TaxCents)
	}
	if allocations[0].DiscountCents != 60 || allocations[1].DiscountCents != 140 {
		t.Fatalf("unexpected discount split: %d/%d", allocations[0].DiscountCents, allocations[1].DiscountCents)
	}
}

func TestAllocateCharges_lastGroupAbsorbsRemainder(t *testing.T) {
	groups := []storeGroup{
		{StoreID: uuid.New(), SubtotalCents: 3333},
		{StoreID: uuid.New(), SubtotalCents: 3333},
		{StoreID: uuid.New(), SubtotalCents: 3334},
	}

	allocations := allocateCharges(groups, 1000, 0, 0)

	var total int64
	for _, alloc := range allocations {
		total += alloc.ShippingCents
	}
	if total != 1000 {
		t.Fatalf("expected shipping to sum to 1000, got %d", total)
	}
}

func TestAllocateCharges_singleGroupTakesEverything(t *testing.T) {
	groups := []storeGroup{{StoreID: uuid.New(), SubtotalCents: 999}}

	allocations := allocateCharges(groups, 750, 425, 100)

	if allocations[0].ShippingCents != 750 || allocations[0].TaxCents != 425 || allocations[0].DiscountCents != 100 {
		t.Fatalf("unexpected allocation: %+v", allocations[0])
	}
}

package enums

// InventoryDirection names the adjustment applied to stock levels.
type InventoryDirection string

const (
	InventoryDirectionReserve InventoryDirection = "reserve"
	InventoryDirectionRelease InventoryDirection = "release"
	InventoryDirectionRestock InventoryDirection = "restock"
)

// IsValid reports whether the value matches the canonical direction enum.
func (d InventoryDirection) IsValid() bool {
	switch d {
	case InventoryDirectionReserve, InventoryDirectionRelease, InventoryDirectionRestock:
		return true
	}
	return false
}

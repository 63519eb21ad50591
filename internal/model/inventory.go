package model

// InventoryRecord tracks on-hand stock for one product at one
// location.  Quantity must never go below zero; a sale that would
// drive it negative is rejected whole.  Available is derived, never
// stored.
type InventoryRecord struct {
	ID               uint64 `json:"id"`
	ProductID        uint64 `json:"product_id"`
	LocationID       uint64 `json:"location_id"`
	Quantity         int64  `json:"quantity"`
	ReservedQuantity int64  `json:"reserved_quantity"`
}

// Available returns the quantity not reserved for pending fulfilment.
func (r InventoryRecord) Available() int64 {
	return r.Quantity - r.ReservedQuantity
}

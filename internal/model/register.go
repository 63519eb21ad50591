package model

import "time"

// Register is a physical POS terminal identity.  Registers are
// provisioned ahead of time; sessions reference them by ID.
type Register struct {
	ID         uint64    `json:"id"`
	VendorID   uint64    `json:"vendor_id"`
	LocationID uint64    `json:"location_id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
}

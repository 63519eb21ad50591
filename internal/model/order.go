package model

import "time"

// Order statuses.  An order is immutable once committed except for
// the status transitions completed→voided and completed→refunded,
// which are mutually exclusive.
const (
	OrderCompleted = "completed"
	OrderVoided    = "voided"
	OrderRefunded  = "refunded"
)

// Order types distinguish counter sales from pickup orders placed
// online and fulfilled at the register.
const (
	OrderTypeWalkIn = "walk_in"
	OrderTypePickup = "pickup"
)

// Order is a committed sale: header row for a set of line items and
// exactly one payment transaction.
type Order struct {
	ID                uint64      `json:"id"`
	OrderNumber       string      `json:"order_number"`
	VendorID          uint64      `json:"vendor_id"`
	LocationID        uint64      `json:"location_id"`
	SessionID         *uint64     `json:"session_id,omitempty"`
	OrderType         string      `json:"order_type"`
	Subtotal          float64     `json:"subtotal"`
	TaxAmount         float64     `json:"tax_amount"`
	Total             float64     `json:"total"`
	PaymentMethod     string      `json:"payment_method"`
	Status            string      `json:"status"`
	PickupFulfilledAt *time.Time  `json:"pickup_fulfilled_at,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	Items             []OrderItem `json:"items,omitempty"`
}

// OrderItem is one product line on an order.  InventoryID records
// the inventory row the quantity was drawn from so a reversal can
// restore exactly what was taken.
type OrderItem struct {
	ID          uint64  `json:"id"`
	OrderID     uint64  `json:"order_id"`
	ProductID   uint64  `json:"product_id"`
	InventoryID uint64  `json:"inventory_id"`
	Quantity    uint32  `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
}

// PaymentTransaction carries the tender breakdown for one order.
// CashAmount plus CardAmount equals the order total.
type PaymentTransaction struct {
	ID            uint64    `json:"id"`
	OrderID       uint64    `json:"order_id"`
	Reference     string    `json:"reference"`
	PaymentMethod string    `json:"payment_method"`
	CashAmount    float64   `json:"cash_amount"`
	CardAmount    float64   `json:"card_amount"`
	Total         float64   `json:"total"`
	CreatedAt     time.Time `json:"created_at"`
}

// OrderReversal is the persisted record of a void or refund.  Rows
// are append-only; the reason is mandatory.
type OrderReversal struct {
	ID        uint64    `json:"id"`
	OrderID   uint64    `json:"order_id"`
	Mode      string    `json:"mode"`
	Reason    string    `json:"reason"`
	UserID    uint64    `json:"user_id"`
	Total     float64   `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

// Reversal modes.
const (
	ReversalVoid   = "void"
	ReversalRefund = "refund"
)

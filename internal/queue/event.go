package queue

// SaleEvent is published when a sale commits or is reversed. It
// carries enough information for downstream consumers to log,
// notify, or feed analytics without querying the primary database.
// Kind is "sale.completed", "sale.voided" or "sale.refunded".
type SaleEvent struct {
	EventID     string  `json:"event_id"`
	Kind        string  `json:"kind"`
	OrderID     uint64  `json:"order_id"`
	OrderNumber string  `json:"order_number"`
	VendorID    uint64  `json:"vendor_id"`
	LocationID  uint64  `json:"location_id"`
	SessionID   *uint64 `json:"session_id,omitempty"`
	UserID      uint64  `json:"user_id"`
	Total       float64 `json:"total"`
	CashAmount  float64 `json:"cash_amount"`
	CardAmount  float64 `json:"card_amount"`
	ItemCount   int     `json:"item_count"`
	Reason      string  `json:"reason,omitempty"`
	OccurredAt  string  `json:"occurred_at"`
}

// Event kinds.
const (
	KindSaleCompleted = "sale.completed"
	KindSaleVoided    = "sale.voided"
	KindSaleRefunded  = "sale.refunded"
)

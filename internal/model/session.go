package model

import "time"

// Session is the open accounting period for one register between
// open and close.  Counters accumulate as sales commit against the
// session and are reversed by voids and refunds.  For any register
// at most one session may be open at a time.
//
// Fields:
//  ID                    – primary key identifier.
//  SessionLabel          – human-readable label (S-YYYYMMDD-HHMMSS).
//  RegisterID            – register the session belongs to.
//  LocationID            – location of the register.
//  VendorID              – vendor that owns the location.
//  UserID                – operator who opened the session.
//  Status                – "open" or "closed".
//  OpeningCash           – cash in the drawer when the session opened.
//  TotalSales            – running total of committed sale amounts.
//  TotalTransactions     – count of committed sales.
//  TotalCash             – cash tender accumulated.
//  TotalCard             – card tender accumulated.
//  WalkInSales           – walk-in amounts recorded at this register.
//  PickupOrdersFulfilled – pickup orders handed out during the session.
//  OpenedAt              – when the session opened (UTC).
//  ClosedAt              – when the session closed, nil while open.
//  LastTransactionAt     – time of the most recent sale or reversal.
type Session struct {
	ID                    uint64     `json:"id"`
	SessionLabel          string     `json:"session_label"`
	RegisterID            uint64     `json:"register_id"`
	LocationID            uint64     `json:"location_id"`
	VendorID              uint64     `json:"vendor_id"`
	UserID                uint64     `json:"user_id"`
	Status                string     `json:"status"`
	OpeningCash           float64    `json:"opening_cash"`
	TotalSales            float64    `json:"total_sales"`
	TotalTransactions     uint32     `json:"total_transactions"`
	TotalCash             float64    `json:"total_cash"`
	TotalCard             float64    `json:"total_card"`
	WalkInSales           float64    `json:"walk_in_sales"`
	PickupOrdersFulfilled uint32     `json:"pickup_orders_fulfilled"`
	OpenedAt              time.Time  `json:"opened_at"`
	ClosedAt              *time.Time `json:"closed_at,omitempty"`
	LastTransactionAt     *time.Time `json:"last_transaction_at,omitempty"`
}

// Session status values.
const (
	SessionOpen   = "open"
	SessionClosed = "closed"
)

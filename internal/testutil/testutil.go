// Package testutil provides the shared test fixtures: an in-memory
// SQLite database with the POS schema, request builders for echo
// handlers, and seed helpers. The SQL the repositories emit sticks
// to the portable ?-placeholder dialect with timestamps stored as
// strings, so the same queries run against this database and the
// production MySQL store. The pool is capped at one connection,
// which serializes raw statement execution the way the production
// store's row locks would, while the lock manager above it is still
// exercised for the check-then-act races.
package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	_ "modernc.org/sqlite"

	"github.com/floradistro/websitev2-sub018/internal/model"
)

var dbSeq atomic.Int64

// testSchema mirrors the production DDL in SQLite form. The two must
// stay column-compatible.
const testSchema = `
CREATE TABLE registers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	vendor_id INTEGER NOT NULL,
	location_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE pos_sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_label TEXT NOT NULL,
	register_id INTEGER NOT NULL,
	location_id INTEGER NOT NULL,
	vendor_id INTEGER NOT NULL,
	user_id INTEGER NOT NULL,
	status TEXT NOT NULL,
	opening_cash REAL NOT NULL DEFAULT 0,
	total_sales REAL NOT NULL DEFAULT 0,
	total_transactions INTEGER NOT NULL DEFAULT 0,
	total_cash REAL NOT NULL DEFAULT 0,
	total_card REAL NOT NULL DEFAULT 0,
	walk_in_sales REAL NOT NULL DEFAULT 0,
	pickup_orders_fulfilled INTEGER NOT NULL DEFAULT 0,
	opened_at TEXT NOT NULL,
	closed_at TEXT NULL,
	last_transaction_at TEXT NULL
);
CREATE TABLE orders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_number TEXT NOT NULL,
	vendor_id INTEGER NOT NULL,
	location_id INTEGER NOT NULL,
	session_id INTEGER NULL,
	order_type TEXT NOT NULL,
	subtotal REAL NOT NULL,
	tax_amount REAL NOT NULL,
	total REAL NOT NULL,
	payment_method TEXT NOT NULL,
	status TEXT NOT NULL,
	pickup_fulfilled_at TEXT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE order_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id INTEGER NOT NULL,
	product_id INTEGER NOT NULL,
	inventory_id INTEGER NOT NULL,
	quantity INTEGER NOT NULL,
	unit_price REAL NOT NULL,
	line_total REAL NOT NULL
);
CREATE TABLE inventory (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	product_id INTEGER NOT NULL,
	location_id INTEGER NOT NULL,
	quantity INTEGER NOT NULL DEFAULT 0,
	reserved_quantity INTEGER NOT NULL DEFAULT 0,
	UNIQUE (product_id, location_id)
);
CREATE TABLE payment_transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id INTEGER NOT NULL,
	reference TEXT NOT NULL,
	payment_method TEXT NOT NULL,
	cash_amount REAL NOT NULL DEFAULT 0,
	card_amount REAL NOT NULL DEFAULT 0,
	total REAL NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE order_reversals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id INTEGER NOT NULL,
	mode TEXT NOT NULL,
	reason TEXT NOT NULL,
	user_id INTEGER NOT NULL,
	total REAL NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE location_counters (
	vendor_id INTEGER NOT NULL,
	location_id INTEGER NOT NULL,
	walk_in_sales REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (vendor_id, location_id)
);
`

// SetupTestDB creates a fresh in-memory database with the full
// schema. Each call gets its own database; the handle is closed when
// the test ends.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:postest%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// One connection keeps SQLite happy under concurrent writers and
	// keeps the shared in-memory database alive.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// SeedRegister inserts a register and returns its ID.
func SeedRegister(t *testing.T, db *sql.DB, vendorID, locationID uint64, name string) uint64 {
	t.Helper()
	res, err := db.Exec(
		`INSERT INTO registers (vendor_id, location_id, name, created_at) VALUES (?, ?, ?, ?)`,
		vendorID, locationID, name, "2026-01-01 00:00:00",
	)
	if err != nil {
		t.Fatalf("failed to seed register: %v", err)
	}
	id, _ := res.LastInsertId()
	return uint64(id)
}

// SeedInventory inserts an inventory record and returns its ID.
func SeedInventory(t *testing.T, db *sql.DB, productID, locationID uint64, quantity int64) uint64 {
	t.Helper()
	res, err := db.Exec(
		`INSERT INTO inventory (product_id, location_id, quantity, reserved_quantity) VALUES (?, ?, ?, 0)`,
		productID, locationID, quantity,
	)
	if err != nil {
		t.Fatalf("failed to seed inventory: %v", err)
	}
	id, _ := res.LastInsertId()
	return uint64(id)
}

// InventoryQuantity reads the current quantity for a product at a
// location straight from the store.
func InventoryQuantity(t *testing.T, db *sql.DB, productID, locationID uint64) int64 {
	t.Helper()
	var qty int64
	err := db.QueryRow(
		`SELECT quantity FROM inventory WHERE product_id = ? AND location_id = ?`,
		productID, locationID,
	).Scan(&qty)
	if err != nil {
		t.Fatalf("failed to read inventory: %v", err)
	}
	return qty
}

// Session reads a session row straight from the store.
func Session(t *testing.T, db *sql.DB, id uint64) model.Session {
	t.Helper()
	var s model.Session
	var opened string
	var closed, lastTx sql.NullString
	err := db.QueryRow(
		`SELECT id, session_label, register_id, location_id, vendor_id, user_id, status,
			opening_cash, total_sales, total_transactions, total_cash, total_card,
			walk_in_sales, pickup_orders_fulfilled, opened_at, closed_at, last_transaction_at
		 FROM pos_sessions WHERE id = ?`, id,
	).Scan(
		&s.ID, &s.SessionLabel, &s.RegisterID, &s.LocationID, &s.VendorID, &s.UserID, &s.Status,
		&s.OpeningCash, &s.TotalSales, &s.TotalTransactions, &s.TotalCash, &s.TotalCard,
		&s.WalkInSales, &s.PickupOrdersFulfilled, &opened, &closed, &lastTx,
	)
	if err != nil {
		t.Fatalf("failed to read session %d: %v", id, err)
	}
	s.OpenedAt = parseStamp(t, opened)
	if closed.Valid {
		v := parseStamp(t, closed.String)
		s.ClosedAt = &v
	}
	if lastTx.Valid {
		v := parseStamp(t, lastTx.String)
		s.LastTransactionAt = &v
	}
	return s
}

func parseStamp(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		t.Fatalf("bad timestamp %q: %v", s, err)
	}
	return v
}

// NewContext builds an echo context carrying a JSON body and an
// authenticated CASHIER identity, mirroring what the JWT middleware
// injects in production. The recorder captures the response.
func NewContext(t *testing.T, e *echo.Echo, method, target string, body interface{}) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", "7")
	c.Set("role", "CASHIER")
	return c, rec
}

// Decode unmarshals a recorded JSON response into dst.
func Decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/floradistro/websitev2-sub018/internal/model"
)

// OrderRepo provides CRUD operations for orders and their line
// items. Orders are immutable once committed except for status
// transitions; the multi-table write that creates an order, its
// items, the payment transaction and the session counter update
// happens inside one transaction owned by the handler, so every
// mutating method here takes a *sql.Tx.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

const orderColumns = `id, order_number, vendor_id, location_id, session_id, order_type,
	subtotal, tax_amount, total, payment_method, status, pickup_fulfilled_at, created_at`

// scanOrder reads one order header row.
func scanOrder(row rowScanner) (*model.Order, error) {
	var o model.Order
	var sessionID sql.NullInt64
	var fulfilled sql.NullString
	var created string
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.VendorID, &o.LocationID, &sessionID, &o.OrderType,
		&o.Subtotal, &o.TaxAmount, &o.Total, &o.PaymentMethod, &o.Status, &fulfilled, &created,
	)
	if err != nil {
		return nil, err
	}
	if sessionID.Valid {
		sid := uint64(sessionID.Int64)
		o.SessionID = &sid
	}
	if fulfilled.Valid && fulfilled.String != "" {
		t, err := parseTime(fulfilled.String)
		if err != nil {
			return nil, err
		}
		o.PickupFulfilledAt = &t
	}
	if o.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateTx inserts a new order header within the provided
// transaction and populates the generated ID and creation time.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	const q = `INSERT INTO orders
		(order_number, vendor_id, location_id, session_id, order_type,
		 subtotal, tax_amount, total, payment_method, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	created := time.Now().UTC()
	if !o.CreatedAt.IsZero() {
		created = o.CreatedAt.UTC()
	}
	var sessionID interface{}
	if o.SessionID != nil {
		sessionID = *o.SessionID
	}
	res, err := tx.ExecContext(ctx, q,
		o.OrderNumber, o.VendorID, o.LocationID, sessionID, o.OrderType,
		o.Subtotal, o.TaxAmount, o.Total, o.PaymentMethod, o.Status, formatTime(created),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	o.CreatedAt = created
	return nil
}

// CreateItemsBulkTx inserts multiple order_items rows in a single
// statement. The caller must supply the order ID in each record.
// Passing an empty slice has no effect and returns nil.
func (r *OrderRepo) CreateItemsBulkTx(ctx context.Context, tx *sql.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	query := `INSERT INTO order_items (order_id, product_id, inventory_id, quantity, unit_price, line_total) VALUES `
	args := make([]interface{}, 0, len(items)*6)
	for i, it := range items {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?)"
		args = append(args, it.OrderID, it.ProductID, it.InventoryID, it.Quantity, it.UnitPrice, it.LineTotal)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// GetByID returns an order with its line items populated, or
// ErrOrderNotFound when no such order exists.
func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	o, err := scanOrder(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	items, err := r.itemsFor(ctx, r.db.QueryContext, id)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

// GetTx returns an order header within a transaction, or
// ErrOrderNotFound.
func (r *OrderRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	o, err := scanOrder(tx.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return o, nil
}

type queryFunc func(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)

func (r *OrderRepo) itemsFor(ctx context.Context, query queryFunc, orderID uint64) ([]model.OrderItem, error) {
	const q = `SELECT id, order_id, product_id, inventory_id, quantity, unit_price, line_total
		FROM order_items WHERE order_id = ? ORDER BY id`
	rows, err := query(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.OrderItem, 0)
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.InventoryID, &it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ItemsTx returns the line items of an order within a transaction.
func (r *OrderRepo) ItemsTx(ctx context.Context, tx *sql.Tx, orderID uint64) ([]model.OrderItem, error) {
	return r.itemsFor(ctx, tx.QueryContext, orderID)
}

// UpdateStatusTx transitions an order from one status to another.
// The WHERE guard on the current status makes concurrent reversals
// race-safe: the second writer affects zero rows and receives
// ErrAlreadyReversed.
func (r *OrderRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, orderID uint64, from, to string) error {
	const q = `UPDATE orders SET status = ? WHERE id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, to, orderID, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyReversed
	}
	return nil
}

// MarkPickupFulfilledTx stamps a pickup order as handed out. Zero
// rows affected means the order was missing, not a pickup order, or
// already fulfilled.
func (r *OrderRepo) MarkPickupFulfilledTx(ctx context.Context, tx *sql.Tx, orderID uint64, at time.Time) error {
	const q = `UPDATE orders SET pickup_fulfilled_at = ?
		WHERE id = ? AND order_type = 'pickup' AND pickup_fulfilled_at IS NULL AND status = 'completed'`
	res, err := tx.ExecContext(ctx, q, formatTime(at), orderID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// SessionTotals holds the aggregates recomputed from committed
// orders for one session, used by the counter audit to compare
// against the session row's own counters.
type SessionTotals struct {
	TotalSales        float64
	TotalTransactions uint32
	TotalCash         float64
	TotalCard         float64
}

// TotalsBySession recomputes a session's totals from its completed
// orders and their payment transactions. Voided and refunded orders
// are excluded, mirroring the compensating subtraction the reversal
// path applies to the counters.
func (r *OrderRepo) TotalsBySession(ctx context.Context, sessionID uint64) (*SessionTotals, error) {
	const q = `SELECT COALESCE(SUM(o.total), 0), COUNT(o.id),
		COALESCE(SUM(pt.cash_amount), 0), COALESCE(SUM(pt.card_amount), 0)
		FROM orders o
		JOIN payment_transactions pt ON pt.order_id = o.id
		WHERE o.session_id = ? AND o.status = 'completed'`
	var t SessionTotals
	if err := r.db.QueryRowContext(ctx, q, sessionID).Scan(&t.TotalSales, &t.TotalTransactions, &t.TotalCash, &t.TotalCard); err != nil {
		return nil, err
	}
	return &t, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/floradistro/websitev2-sub018/internal/model"
)

// PaymentRepo persists the payment transaction that accompanies
// every order. There is exactly one row per order; it carries the
// tender breakdown used to move the session's cash and card
// counters in both directions.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// CreateTx inserts a payment transaction within the provided
// transaction and populates the generated ID and creation time.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, pt *model.PaymentTransaction) error {
	const q = `INSERT INTO payment_transactions
		(order_id, reference, payment_method, cash_amount, card_amount, total, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	created := time.Now().UTC()
	res, err := tx.ExecContext(ctx, q,
		pt.OrderID, pt.Reference, pt.PaymentMethod, pt.CashAmount, pt.CardAmount, pt.Total, formatTime(created),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	pt.ID = uint64(id)
	pt.CreatedAt = created
	return nil
}

func scanPayment(row rowScanner) (*model.PaymentTransaction, error) {
	var pt model.PaymentTransaction
	var created string
	err := row.Scan(&pt.ID, &pt.OrderID, &pt.Reference, &pt.PaymentMethod, &pt.CashAmount, &pt.CardAmount, &pt.Total, &created)
	if err != nil {
		return nil, err
	}
	if pt.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &pt, nil
}

const paymentColumns = `id, order_id, reference, payment_method, cash_amount, card_amount, total, created_at`

// GetByOrder returns the payment transaction for an order.
func (r *PaymentRepo) GetByOrder(ctx context.Context, orderID uint64) (*model.PaymentTransaction, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payment_transactions WHERE order_id = ?`
	pt, err := scanPayment(r.db.QueryRowContext(ctx, q, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return pt, nil
}

// GetByOrderTx is GetByOrder scoped to a transaction. The reversal
// path reads the tender breakdown here before subtracting it from
// the session counters.
func (r *PaymentRepo) GetByOrderTx(ctx context.Context, tx *sql.Tx, orderID uint64) (*model.PaymentTransaction, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payment_transactions WHERE order_id = ?`
	pt, err := scanPayment(tx.QueryRowContext(ctx, q, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return pt, nil
}

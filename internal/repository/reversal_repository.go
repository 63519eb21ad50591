package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/floradistro/websitev2-sub018/internal/model"
)

// ReversalRepo persists void and refund records. Rows are
// append-only: reversing a sale never deletes the order or its
// items, it adds a reversal row carrying the mandatory reason.
type ReversalRepo struct {
	db *sql.DB
}

// NewReversalRepo returns a new ReversalRepo bound to the given database.
func NewReversalRepo(db *sql.DB) *ReversalRepo { return &ReversalRepo{db: db} }

// CreateTx inserts a reversal record within the provided transaction.
func (r *ReversalRepo) CreateTx(ctx context.Context, tx *sql.Tx, rev *model.OrderReversal) error {
	const q = `INSERT INTO order_reversals (order_id, mode, reason, user_id, total, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	created := time.Now().UTC()
	res, err := tx.ExecContext(ctx, q, rev.OrderID, rev.Mode, rev.Reason, rev.UserID, rev.Total, formatTime(created))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rev.ID = uint64(id)
	rev.CreatedAt = created
	return nil
}

// ListByOrder returns the reversal records for an order, oldest
// first. In correct operation there is at most one.
func (r *ReversalRepo) ListByOrder(ctx context.Context, orderID uint64) ([]model.OrderReversal, error) {
	const q = `SELECT id, order_id, mode, reason, user_id, total, created_at
		FROM order_reversals WHERE order_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	revs := make([]model.OrderReversal, 0)
	for rows.Next() {
		var rev model.OrderReversal
		var created string
		if err := rows.Scan(&rev.ID, &rev.OrderID, &rev.Mode, &rev.Reason, &rev.UserID, &rev.Total, &created); err != nil {
			return nil, err
		}
		if rev.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		revs = append(revs, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return revs, nil
}

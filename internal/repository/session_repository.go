package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/floradistro/websitev2-sub018/internal/model"
)

// SessionRepo provides data access to the pos_sessions table. A
// session is the open accounting period for one register; for any
// register at most one row may have status "open". The check-then-
// create sequence that upholds that invariant is serialized by the
// caller through the lock manager, not inside this repository. All
// timestamp columns are stored as UTC strings.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the given database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// that span this repository and its siblings.
func (r *SessionRepo) DB() *sql.DB { return r.db }

const sessionColumns = `id, session_label, register_id, location_id, vendor_id, user_id, status,
	opening_cash, total_sales, total_transactions, total_cash, total_card,
	walk_in_sales, pickup_orders_fulfilled, opened_at, closed_at, last_transaction_at`

// rowScanner abstracts *sql.Row and *sql.Rows for scanSession.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanSession reads one session row. Timestamp columns are scanned
// as nullable strings and parsed, so the same query text works
// against MySQL and the SQLite store used in tests.
func scanSession(row rowScanner) (*model.Session, error) {
	var s model.Session
	var opened string
	var closed, lastTx sql.NullString
	err := row.Scan(
		&s.ID, &s.SessionLabel, &s.RegisterID, &s.LocationID, &s.VendorID, &s.UserID, &s.Status,
		&s.OpeningCash, &s.TotalSales, &s.TotalTransactions, &s.TotalCash, &s.TotalCard,
		&s.WalkInSales, &s.PickupOrdersFulfilled, &opened, &closed, &lastTx,
	)
	if err != nil {
		return nil, err
	}
	if s.OpenedAt, err = parseTime(opened); err != nil {
		return nil, err
	}
	if closed.Valid && closed.String != "" {
		t, err := parseTime(closed.String)
		if err != nil {
			return nil, err
		}
		s.ClosedAt = &t
	}
	if lastTx.Valid && lastTx.String != "" {
		t, err := parseTime(lastTx.String)
		if err != nil {
			return nil, err
		}
		s.LastTransactionAt = &t
	}
	return &s, nil
}

// GetByID returns the session with the given ID or ErrSessionNotFound.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM pos_sessions WHERE id = ?`
	s, err := scanSession(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return s, nil
}

// GetByIDTx is GetByID scoped to a transaction.
func (r *SessionRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM pos_sessions WHERE id = ?`
	s, err := scanSession(tx.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return s, nil
}

// GetOpenByRegister returns the open session for a register, or
// ErrSessionNotFound when the register has none.
func (r *SessionRepo) GetOpenByRegister(ctx context.Context, registerID uint64) (*model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM pos_sessions WHERE register_id = ? AND status = 'open'`
	s, err := scanSession(r.db.QueryRowContext(ctx, q, registerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return s, nil
}

// GetOpenByRegisterTx is GetOpenByRegister scoped to a transaction.
func (r *SessionRepo) GetOpenByRegisterTx(ctx context.Context, tx *sql.Tx, registerID uint64) (*model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM pos_sessions WHERE register_id = ? AND status = 'open'`
	s, err := scanSession(tx.QueryRowContext(ctx, q, registerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return s, nil
}

// CreateTx inserts a new open session with zeroed counters within
// the provided transaction and populates the generated ID and
// opened_at on the passed model. The caller must hold the register
// lock and must commit or roll back the transaction.
func (r *SessionRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.Session) error {
	const q = `INSERT INTO pos_sessions
		(session_label, register_id, location_id, vendor_id, user_id, status,
		 opening_cash, total_sales, total_transactions, total_cash, total_card,
		 walk_in_sales, pickup_orders_fulfilled, opened_at)
		VALUES (?, ?, ?, ?, ?, 'open', ?, 0, 0, 0, 0, 0, 0, ?)`
	opened := time.Now().UTC()
	if !s.OpenedAt.IsZero() {
		opened = s.OpenedAt.UTC()
	}
	res, err := tx.ExecContext(ctx, q,
		s.SessionLabel, s.RegisterID, s.LocationID, s.VendorID, s.UserID,
		s.OpeningCash, formatTime(opened),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.Status = model.SessionOpen
	s.OpenedAt = opened
	return nil
}

// ApplySaleTx adds a committed sale to the session's running
// counters. The additive UPDATE is guarded on status so a sale can
// never land on a closed session; zero rows affected reports
// ErrSessionNotFound for the caller to roll back on.
func (r *SessionRepo) ApplySaleTx(ctx context.Context, tx *sql.Tx, sessionID uint64, total, cash, card float64, at time.Time) error {
	const q = `UPDATE pos_sessions SET
		total_sales = total_sales + ?,
		total_transactions = total_transactions + 1,
		total_cash = total_cash + ?,
		total_card = total_card + ?,
		last_transaction_at = ?
		WHERE id = ? AND status = 'open'`
	res, err := tx.ExecContext(ctx, q, total, cash, card, formatTime(at), sessionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ReverseSaleTx subtracts the original amounts of a reversed sale
// from the session's counters. Compensating subtraction, not a
// recompute, so interleaved sales on the same session are unaffected.
// The session may already be closed by the time a refund arrives, so
// unlike ApplySaleTx the update is not restricted to open sessions.
func (r *SessionRepo) ReverseSaleTx(ctx context.Context, tx *sql.Tx, sessionID uint64, total, cash, card float64, at time.Time) error {
	const q = `UPDATE pos_sessions SET
		total_sales = total_sales - ?,
		total_transactions = total_transactions - 1,
		total_cash = total_cash - ?,
		total_card = total_card - ?,
		last_transaction_at = ?
		WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, total, cash, card, formatTime(at), sessionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// IncrementPickupTx bumps the session's pickup_orders_fulfilled
// counter when a pickup order is handed out at the register.
func (r *SessionRepo) IncrementPickupTx(ctx context.Context, tx *sql.Tx, sessionID uint64, at time.Time) error {
	const q = `UPDATE pos_sessions SET
		pickup_orders_fulfilled = pickup_orders_fulfilled + 1,
		last_transaction_at = ?
		WHERE id = ? AND status = 'open'`
	res, err := tx.ExecContext(ctx, q, formatTime(at), sessionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// CloseTx transitions an open session to closed. Zero rows affected
// means the session was missing or already closed; the caller
// distinguishes the two by re-reading the row.
func (r *SessionRepo) CloseTx(ctx context.Context, tx *sql.Tx, sessionID uint64, at time.Time) error {
	const q = `UPDATE pos_sessions SET status = 'closed', closed_at = ? WHERE id = ? AND status = 'open'`
	res, err := tx.ExecContext(ctx, q, formatTime(at), sessionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionClosed
	}
	return nil
}

// ListOpen returns all currently open sessions, oldest first. Used
// by the counter audit maintenance path.
func (r *SessionRepo) ListOpen(ctx context.Context) ([]model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM pos_sessions WHERE status = 'open' ORDER BY opened_at`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sessions := make([]model.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

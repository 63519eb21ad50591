package repository // repository for register persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/floradistro/websitev2-sub018/internal/model"
)

// RegisterRepo encapsulates database operations for registers. A
// register is a physical terminal identity; rows are provisioned by
// the admin console and referenced here read-mostly.
type RegisterRepo struct {
	db *sql.DB
}

// NewRegisterRepo constructs a RegisterRepo given a DB handle.
func NewRegisterRepo(db *sql.DB) *RegisterRepo {
	return &RegisterRepo{db: db}
}

// Create inserts a new register and populates the generated ID.
func (r *RegisterRepo) Create(ctx context.Context, rec *model.Register) error {
	const q = `INSERT INTO registers (vendor_id, location_id, name, created_at) VALUES (?, ?, ?, ?)`
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, q, rec.VendorID, rec.LocationID, rec.Name, formatTime(now))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	rec.CreatedAt = now
	return nil
}

// GetByID returns the register with the given ID or
// ErrRegisterNotFound when no such row exists.
func (r *RegisterRepo) GetByID(ctx context.Context, id uint64) (*model.Register, error) {
	const q = `SELECT id, vendor_id, location_id, name, created_at FROM registers WHERE id = ?`
	var rec model.Register
	var created string
	err := r.db.QueryRowContext(ctx, q, id).Scan(&rec.ID, &rec.VendorID, &rec.LocationID, &rec.Name, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegisterNotFound
		}
		return nil, err
	}
	if rec.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByLocation returns all registers at a location ordered by name.
func (r *RegisterRepo) ListByLocation(ctx context.Context, locationID uint64) ([]model.Register, error) {
	const q = `SELECT id, vendor_id, location_id, name, created_at FROM registers WHERE location_id = ? ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	recs := make([]model.Register, 0)
	for rows.Next() {
		var rec model.Register
		var created string
		if err := rows.Scan(&rec.ID, &rec.VendorID, &rec.LocationID, &rec.Name, &created); err != nil {
			return nil, err
		}
		if rec.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

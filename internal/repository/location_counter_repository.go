package repository

import (
	"context"
	"database/sql"
	"errors"
)

// LocationCounterRepo tracks vendor/location level aggregates for
// sales that are not attributed to any session. The row for a
// (vendor, location) pair is created lazily on the first walk-in
// sale; callers serialize that check-or-insert through the lock
// manager using a location-scoped lock, mirroring how session
// creation is serialized per register.
type LocationCounterRepo struct {
	db *sql.DB
}

// NewLocationCounterRepo returns a new LocationCounterRepo bound to
// the given database.
func NewLocationCounterRepo(db *sql.DB) *LocationCounterRepo {
	return &LocationCounterRepo{db: db}
}

// LocationCounters mirrors the location_counters table.
type LocationCounters struct {
	VendorID    uint64  `json:"vendor_id"`
	LocationID  uint64  `json:"location_id"`
	WalkInSales float64 `json:"walk_in_sales"`
}

// AddWalkInTx adds a walk-in sale amount to the location's counter
// within the provided transaction, inserting the counter row when it
// does not exist yet. The caller must hold the location lock.
func (r *LocationCounterRepo) AddWalkInTx(ctx context.Context, tx *sql.Tx, vendorID, locationID uint64, amount float64) error {
	const upd = `UPDATE location_counters SET walk_in_sales = walk_in_sales + ?
		WHERE vendor_id = ? AND location_id = ?`
	res, err := tx.ExecContext(ctx, upd, amount, vendorID, locationID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	const ins = `INSERT INTO location_counters (vendor_id, location_id, walk_in_sales) VALUES (?, ?, ?)`
	_, err = tx.ExecContext(ctx, ins, vendorID, locationID, amount)
	return err
}

// Get returns the counters for a (vendor, location) pair. A missing
// row reads as zeroes rather than an error since the row only comes
// into existence on the first walk-in sale.
func (r *LocationCounterRepo) Get(ctx context.Context, vendorID, locationID uint64) (*LocationCounters, error) {
	const q = `SELECT vendor_id, location_id, walk_in_sales FROM location_counters
		WHERE vendor_id = ? AND location_id = ?`
	var c LocationCounters
	err := r.db.QueryRowContext(ctx, q, vendorID, locationID).Scan(&c.VendorID, &c.LocationID, &c.WalkInSales)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &LocationCounters{VendorID: vendorID, LocationID: locationID}, nil
		}
		return nil, err
	}
	return &c, nil
}

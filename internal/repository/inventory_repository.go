package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/floradistro/websitev2-sub018/internal/model"
)

// InventoryRepo is the single chokepoint through which stock is
// mutated. Every adjustment carries a quantity guard in the UPDATE
// itself, so the quantity >= 0 invariant holds even if a caller
// skips the lock manager; the lock manager exists on top of this to
// serialize read-modify-write sequences across service instances.
type InventoryRepo struct {
	db *sql.DB
}

// NewInventoryRepo returns a new InventoryRepo bound to the given database.
func NewInventoryRepo(db *sql.DB) *InventoryRepo { return &InventoryRepo{db: db} }

// Create inserts an inventory record and populates the generated ID.
// Used by seeding and admin paths.
func (r *InventoryRepo) Create(ctx context.Context, rec *model.InventoryRecord) error {
	const q = `INSERT INTO inventory (product_id, location_id, quantity, reserved_quantity) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, rec.ProductID, rec.LocationID, rec.Quantity, rec.ReservedQuantity)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	return nil
}

// GetByProductLocation returns the inventory record for a product at
// a location, or ErrInventoryNotFound.
func (r *InventoryRepo) GetByProductLocation(ctx context.Context, productID, locationID uint64) (*model.InventoryRecord, error) {
	const q = `SELECT id, product_id, location_id, quantity, reserved_quantity
		FROM inventory WHERE product_id = ? AND location_id = ?`
	var rec model.InventoryRecord
	err := r.db.QueryRowContext(ctx, q, productID, locationID).Scan(
		&rec.ID, &rec.ProductID, &rec.LocationID, &rec.Quantity, &rec.ReservedQuantity,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInventoryNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// AdjustTx applies a signed delta to the stock of a product at a
// location and returns the inventory row ID and the quantity after
// the adjustment. A negative delta that would take the quantity
// below zero affects no rows and returns ErrInsufficientInventory,
// leaving the record untouched. The caller must hold the lock for
// the (product, location) pair and must commit or roll back the
// transaction.
func (r *InventoryRepo) AdjustTx(ctx context.Context, tx *sql.Tx, productID, locationID uint64, delta int64) (uint64, int64, error) {
	const upd = `UPDATE inventory SET quantity = quantity + ?
		WHERE product_id = ? AND location_id = ? AND quantity + ? >= 0`
	res, err := tx.ExecContext(ctx, upd, delta, productID, locationID, delta)
	if err != nil {
		return 0, 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, 0, err
	}
	const sel = `SELECT id, quantity FROM inventory WHERE product_id = ? AND location_id = ?`
	var id uint64
	var qty int64
	selErr := tx.QueryRowContext(ctx, sel, productID, locationID).Scan(&id, &qty)
	if n == 0 {
		// Nothing updated: either the row is missing or the guard
		// rejected the delta. Re-read to tell the two apart.
		if errors.Is(selErr, sql.ErrNoRows) {
			return 0, 0, ErrInventoryNotFound
		}
		if selErr != nil {
			return 0, 0, selErr
		}
		return id, qty, ErrInsufficientInventory
	}
	if selErr != nil {
		return 0, 0, selErr
	}
	return id, qty, nil
}

// AdjustByIDTx applies a signed delta to a specific inventory row.
// Reversals restore stock through this method using the inventory_id
// recorded on the order item, so the exact record the sale drew from
// gets the quantity back.
func (r *InventoryRepo) AdjustByIDTx(ctx context.Context, tx *sql.Tx, inventoryID uint64, delta int64) (int64, error) {
	const upd = `UPDATE inventory SET quantity = quantity + ? WHERE id = ? AND quantity + ? >= 0`
	res, err := tx.ExecContext(ctx, upd, delta, inventoryID, delta)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	const sel = `SELECT quantity FROM inventory WHERE id = ?`
	var qty int64
	selErr := tx.QueryRowContext(ctx, sel, inventoryID).Scan(&qty)
	if n == 0 {
		if errors.Is(selErr, sql.ErrNoRows) {
			return 0, ErrInventoryNotFound
		}
		if selErr != nil {
			return 0, selErr
		}
		return qty, ErrInsufficientInventory
	}
	if selErr != nil {
		return 0, selErr
	}
	return qty, nil
}

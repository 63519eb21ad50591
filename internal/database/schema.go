package database

import (
	"context"
	"database/sql"
)

// schema holds the MySQL DDL for the POS core. Statements are
// idempotent so EnsureSchema can run on every start. The SQLite
// schema used by tests lives in the testutil package; the two must
// stay column-compatible.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS registers (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		vendor_id BIGINT UNSIGNED NOT NULL,
		location_id BIGINT UNSIGNED NOT NULL,
		name VARCHAR(255) NOT NULL,
		created_at VARCHAR(19) NOT NULL,
		KEY idx_registers_location (location_id)
	)`,
	`CREATE TABLE IF NOT EXISTS pos_sessions (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		session_label VARCHAR(32) NOT NULL,
		register_id BIGINT UNSIGNED NOT NULL,
		location_id BIGINT UNSIGNED NOT NULL,
		vendor_id BIGINT UNSIGNED NOT NULL,
		user_id BIGINT UNSIGNED NOT NULL,
		status VARCHAR(16) NOT NULL,
		opening_cash DOUBLE NOT NULL DEFAULT 0,
		total_sales DOUBLE NOT NULL DEFAULT 0,
		total_transactions INT UNSIGNED NOT NULL DEFAULT 0,
		total_cash DOUBLE NOT NULL DEFAULT 0,
		total_card DOUBLE NOT NULL DEFAULT 0,
		walk_in_sales DOUBLE NOT NULL DEFAULT 0,
		pickup_orders_fulfilled INT UNSIGNED NOT NULL DEFAULT 0,
		opened_at VARCHAR(19) NOT NULL,
		closed_at VARCHAR(19) NULL,
		last_transaction_at VARCHAR(19) NULL,
		KEY idx_sessions_register_status (register_id, status)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		order_number VARCHAR(32) NOT NULL,
		vendor_id BIGINT UNSIGNED NOT NULL,
		location_id BIGINT UNSIGNED NOT NULL,
		session_id BIGINT UNSIGNED NULL,
		order_type VARCHAR(16) NOT NULL,
		subtotal DOUBLE NOT NULL,
		tax_amount DOUBLE NOT NULL,
		total DOUBLE NOT NULL,
		payment_method VARCHAR(32) NOT NULL,
		status VARCHAR(16) NOT NULL,
		pickup_fulfilled_at VARCHAR(19) NULL,
		created_at VARCHAR(19) NOT NULL,
		KEY idx_orders_session (session_id),
		KEY idx_orders_location (vendor_id, location_id)
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		order_id BIGINT UNSIGNED NOT NULL,
		product_id BIGINT UNSIGNED NOT NULL,
		inventory_id BIGINT UNSIGNED NOT NULL,
		quantity INT UNSIGNED NOT NULL,
		unit_price DOUBLE NOT NULL,
		line_total DOUBLE NOT NULL,
		KEY idx_order_items_order (order_id)
	)`,
	`CREATE TABLE IF NOT EXISTS inventory (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		product_id BIGINT UNSIGNED NOT NULL,
		location_id BIGINT UNSIGNED NOT NULL,
		quantity BIGINT NOT NULL DEFAULT 0,
		reserved_quantity BIGINT NOT NULL DEFAULT 0,
		UNIQUE KEY uq_inventory_product_location (product_id, location_id)
	)`,
	`CREATE TABLE IF NOT EXISTS payment_transactions (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		order_id BIGINT UNSIGNED NOT NULL,
		reference VARCHAR(64) NOT NULL,
		payment_method VARCHAR(32) NOT NULL,
		cash_amount DOUBLE NOT NULL DEFAULT 0,
		card_amount DOUBLE NOT NULL DEFAULT 0,
		total DOUBLE NOT NULL,
		created_at VARCHAR(19) NOT NULL,
		KEY idx_payment_order (order_id)
	)`,
	`CREATE TABLE IF NOT EXISTS order_reversals (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		order_id BIGINT UNSIGNED NOT NULL,
		mode VARCHAR(16) NOT NULL,
		reason TEXT NOT NULL,
		user_id BIGINT UNSIGNED NOT NULL,
		total DOUBLE NOT NULL,
		created_at VARCHAR(19) NOT NULL,
		KEY idx_reversals_order (order_id)
	)`,
	`CREATE TABLE IF NOT EXISTS location_counters (
		vendor_id BIGINT UNSIGNED NOT NULL,
		location_id BIGINT UNSIGNED NOT NULL,
		walk_in_sales DOUBLE NOT NULL DEFAULT 0,
		PRIMARY KEY (vendor_id, location_id)
	)`,
}

// EnsureSchema creates the POS tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

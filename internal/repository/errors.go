// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios and map
// them onto HTTP responses. For example, ErrInsufficientInventory
// signals that a sale would drive stock negative and should surface
// as a 409, while ErrConsistency marks a divergence between session
// counters and committed sales that must be logged loudly and never
// silently corrected.
package repository

import "errors"

// ErrInsufficientInventory is returned when an adjustment would take
// an inventory record's quantity below zero. Nothing is mutated when
// this error is returned.
var ErrInsufficientInventory = errors.New("insufficient inventory")

// ErrInventoryNotFound is returned when no inventory record exists
// for the requested product and location pair.
var ErrInventoryNotFound = errors.New("inventory record not found")

// ErrSessionNotFound is returned when a session lookup finds no row,
// or when a counter update targets a session that is missing or no
// longer open.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionClosed is returned when an operation requires an open
// session but the session has already been closed.
var ErrSessionClosed = errors.New("session already closed")

// ErrOrderNotFound is returned when an order lookup finds no row.
var ErrOrderNotFound = errors.New("order not found")

// ErrRegisterNotFound is returned when a register lookup finds no row.
var ErrRegisterNotFound = errors.New("register not found")

// ErrAlreadyReversed is returned when a void or refund targets an
// order that is not in the completed status. Voided and refunded are
// terminal and mutually exclusive.
var ErrAlreadyReversed = errors.New("order already voided or refunded")

// ErrConsistency indicates that session counters diverge from the
// orders committed against the session. It should not occur in
// correct operation; callers must log it loudly and leave the data
// untouched so the underlying bug stays visible.
var ErrConsistency = errors.New("session counters inconsistent with committed sales")

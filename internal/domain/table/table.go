// Package table holds the dining table entity and its occupancy states.
package table

import (
	"fmt"
	"time"
)

// Status enumerates the occupancy states of a table.
type Status string

const (
	// StatusAvailable means the table has no active orders.
	StatusAvailable Status = "AVAILABLE"
	// StatusOccupied means at least one active order references the table.
	StatusOccupied Status = "OCCUPIED"
	// StatusReserved means the table is held for a future party.
	StatusReserved Status = "RESERVED"
	// StatusOutOfService means the table is unavailable for seating
	// (maintenance); no orders may be placed against it.
	StatusOutOfService Status = "OUT_OF_SERVICE"
)

// Table is a physical table in a restaurant. Its occupancy status is owned by
// the order coordinator: OCCUPIED iff at least one active order references it.
// Code is the QR token printed at the table; customers order with the code
// alone, so it is globally unique across restaurants.
type Table struct {
	ID           string
	RestaurantID string
	Code         string
	Seats        int
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NotFoundError indicates the referenced table does not exist.
type NotFoundError struct {
	// Ref is the id or code used for the lookup.
	Ref string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("table %s not found", e.Ref)
}

// UnavailableError indicates the table cannot take orders in its current state.
type UnavailableError struct {
	ID     string
	Status Status
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("table %s is unavailable (status %s)", e.ID, e.Status)
}

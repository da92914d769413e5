package order

import (
	"context"
	"time"

	"github.com/dinehall/orderd/internal/domain/catalog"
	"github.com/dinehall/orderd/internal/domain/table"
)

// Tx is the strongly-typed unit of work the coordinator operates on. All
// reads and writes within one Tx observe a single isolation boundary; the
// whole unit either commits or has no effect.
type Tx interface {
	catalog.Source

	// TableByID loads a table by id. Returns *table.NotFoundError when absent.
	TableByID(ctx context.Context, id string) (*table.Table, error)
	// TableByCode loads a table by its customer-facing code. Codes are
	// globally unique QR tokens. Returns *table.NotFoundError when absent.
	TableByCode(ctx context.Context, code string) (*table.Table, error)
	// UpdateTableStatus sets the occupancy status of a table.
	UpdateTableStatus(ctx context.Context, tableID string, status table.Status) error

	// CountOrdersForDay counts the restaurant's orders created within
	// [start, end). The result seeds the order number proposal; it is an
	// optimistic guess, never trusted without the uniqueness constraint.
	CountOrdersForDay(ctx context.Context, restaurantID string, start, end time.Time) (int, error)
	// InsertOrder persists the order together with its lines and line
	// modifiers. Returns ErrDuplicateNumber (wrapped) when the order number
	// is already taken for the restaurant.
	InsertOrder(ctx context.Context, o *Order) error
	// OrderByIDForUpdate loads an order with its lines and locks the row for
	// the remainder of the unit of work. Returns ErrNotFound when absent.
	OrderByIDForUpdate(ctx context.Context, id string) (*Order, error)
	// UpdateOrder persists the order's status, notes, and updated timestamp.
	UpdateOrder(ctx context.Context, o *Order) error
	// CountActiveTableOrders counts orders on the table in an active status,
	// excluding the given order id.
	CountActiveTableOrders(ctx context.Context, tableID, excludeOrderID string) (int, error)
}

// Store opens units of work. fn runs inside one transaction; a non-nil error
// rolls everything back.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

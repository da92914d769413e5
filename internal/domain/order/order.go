// Package order implements the order lifecycle: creation with priced line
// snapshots, collision-free number allocation, status transitions, and the
// table occupancy rule.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when an order lookup matches nothing.
	ErrNotFound = errors.New("order not found")
	// ErrDuplicateNumber is returned by storage when an insert violates the
	// (restaurant_id, order_number) uniqueness constraint. The coordinator
	// treats it as a retryable allocation conflict.
	ErrDuplicateNumber = errors.New("order number already taken")
	// ErrNumberAllocation is returned when the bounded retry around number
	// allocation is exhausted. It indicates extreme contention or a counting
	// bug and is always surfaced, never degraded.
	ErrNumberAllocation = errors.New("order number allocation failed")
)

// PaymentStatus tracks the payment lifecycle independently of the order status.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

// Order is a customer's confirmed request for menu items at a table. Prices
// are snapshots taken at creation; TotalAmount is never recomputed from
// current catalog data.
type Order struct {
	ID            string
	Number        string
	RestaurantID  string
	TableID       string
	Status        Status
	PaymentStatus PaymentStatus
	TotalAmount   decimal.Decimal
	Notes         string
	Lines         []Line
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Line is one menu item entry within an order. Price is the unit price
// snapshot (item price plus selected modifier prices) at order time.
type Line struct {
	ID          string
	OrderID     string
	MenuItemID  string
	Price       decimal.Decimal
	Quantity    int
	PrepMinutes int
	Notes       string
	Modifiers   []LineModifier
}

// LineModifier snapshots one selected modifier of a line.
type LineModifier struct {
	ID         string
	LineID     string
	ModifierID string
	Price      decimal.Decimal
}

// EstimateMinutes returns a rough ready-time figure for customer trackers:
// the longest line preparation time, scaled by how far the order has
// progressed through the kitchen.
func (o *Order) EstimateMinutes() int {
	longest := 0
	for _, l := range o.Lines {
		if l.PrepMinutes > longest {
			longest = l.PrepMinutes
		}
	}

	switch o.Status {
	case StatusPending:
		return longest + 5 // not yet confirmed, add intake slack
	case StatusConfirmed:
		return longest
	case StatusPreparing:
		return (longest + 1) / 2
	default:
		return 0
	}
}

// InvalidTransitionError indicates a requested status change violates the
// transition table. The stored order is left untouched.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// InvalidAmountError indicates a computed order total failed the sanity
// bounds (non-positive or above the configured ceiling).
type InvalidAmountError struct {
	Amount decimal.Decimal
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid order amount %s", e.Amount)
}

// EventSink receives lifecycle events after a successful commit. Sink
// failures are logged by the coordinator and never roll back the order.
// Production wiring supplies an AMQP publisher; tests supply a recorder.
type EventSink interface {
	OrderCreated(ctx context.Context, o *Order) error
	OrderStatusChanged(ctx context.Context, o *Order, previous Status) error
}

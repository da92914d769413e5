package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Filter narrows order listings. Zero values mean "any".
type Filter struct {
	RestaurantID string
	TableID      string
	Status       Status
	From         time.Time
	To           time.Time
	Limit        int
	Offset       int
}

// Stats are the aggregate figures shown on the restaurant dashboard.
type Stats struct {
	TodayOrders  int
	ActiveOrders int
	// TodayRevenue sums totals of today's non-cancelled orders.
	TodayRevenue decimal.Decimal
}

// QueryRepository is the read-side storage interface. Implementations must
// return orders with their lines and modifiers populated.
type QueryRepository interface {
	ByID(ctx context.Context, id string) (*Order, error)
	ByNumber(ctx context.Context, restaurantID, number string) (*Order, error)
	List(ctx context.Context, f Filter) ([]Order, error)
	// Kitchen returns the restaurant's orders in an active status, oldest first.
	Kitchen(ctx context.Context, restaurantID string) ([]Order, error)
	Stats(ctx context.Context, restaurantID string, start, end time.Time) (Stats, error)
}

// Queries is the read-only access service. It shares the data model and the
// status vocabulary with the coordinator but performs no writes.
type Queries struct {
	repo QueryRepository
	now  func() time.Time
}

// NewQueries creates the read service. now may be nil for the system clock.
func NewQueries(repo QueryRepository, now func() time.Time) *Queries {
	if now == nil {
		now = time.Now
	}
	return &Queries{repo: repo, now: now}
}

// ByID fetches one order with its lines.
func (q *Queries) ByID(ctx context.Context, id string) (*Order, error) {
	return q.repo.ByID(ctx, id)
}

// ByNumber fetches one order by its human-readable number within a restaurant.
func (q *Queries) ByNumber(ctx context.Context, restaurantID, number string) (*Order, error) {
	return q.repo.ByNumber(ctx, restaurantID, number)
}

// List returns orders matching the filter. A non-positive limit defaults to 50.
func (q *Queries) List(ctx context.Context, f Filter) ([]Order, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	orders, err := q.repo.List(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// Kitchen returns the active orders a kitchen display works through, oldest
// first.
func (q *Queries) Kitchen(ctx context.Context, restaurantID string) ([]Order, error) {
	orders, err := q.repo.Kitchen(ctx, restaurantID)
	if err != nil {
		return nil, errors.Wrap(err, "kitchen orders")
	}
	return orders, nil
}

// Stats returns today's dashboard aggregates for the restaurant.
func (q *Queries) Stats(ctx context.Context, restaurantID string) (Stats, error) {
	start, end := DayBounds(q.now())
	st, err := q.repo.Stats(ctx, restaurantID, start, end)
	if err != nil {
		return Stats{}, errors.Wrap(err, "order stats")
	}
	return st, nil
}

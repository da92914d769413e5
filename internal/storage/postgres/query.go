package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dinehall/orderd/internal/domain/order"
)

const orderColumnsSQL = `SELECT id, order_number, restaurant_id, table_id, status, payment_status,
	total_amount, notes, created_at, updated_at
	FROM orders`

const (
	orderByIDSQL = orderColumnsSQL + ` WHERE id = $1`

	orderByNumberSQL = orderColumnsSQL + ` WHERE restaurant_id = $1 AND order_number = $2`

	kitchenOrdersSQL = orderColumnsSQL + ` WHERE restaurant_id = $1 AND status = ANY($2)
		ORDER BY created_at ASC`

	listOrdersSQL = orderColumnsSQL + ` WHERE restaurant_id = $1
		AND ($2 = '' OR table_id = $2)
		AND ($3 = '' OR status = $3)
		AND ($4::timestamptz IS NULL OR created_at >= $4)
		AND ($5::timestamptz IS NULL OR created_at < $5)
		ORDER BY created_at DESC
		LIMIT $6 OFFSET $7`

	orderStatsSQL = `SELECT
		count(*) FILTER (WHERE created_at >= $2 AND created_at < $3),
		count(*) FILTER (WHERE status = ANY($4)),
		coalesce(sum(total_amount) FILTER (WHERE created_at >= $2 AND created_at < $3 AND status <> 'CANCELLED'), 0)
		FROM orders WHERE restaurant_id = $1`

	linesByOrderIDsSQL = `SELECT id, order_id, menu_item_id, price, quantity, prep_minutes, notes
		FROM order_lines WHERE order_id = ANY($1)`

	modifiersByLineIDsSQL = `SELECT id, line_id, modifier_id, price
		FROM order_line_modifiers WHERE line_id = ANY($1)`
)

var _ order.QueryRepository = (*OrderQueryRepository)(nil)

// OrderQueryRepository implements the read-side order.QueryRepository.
type OrderQueryRepository struct {
	pool *pgxpool.Pool
}

// NewOrderQueryRepository returns a read repository on the given pool.
func NewOrderQueryRepository(pool *pgxpool.Pool) *OrderQueryRepository {
	return &OrderQueryRepository{pool: pool}
}

// querier abstracts pgxpool.Pool and pgx.Tx for the shared line loader.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ByID fetches one order with its lines and modifiers.
func (r *OrderQueryRepository) ByID(ctx context.Context, id string) (*order.Order, error) {
	return r.fetchOne(ctx, orderByIDSQL, id)
}

// ByNumber fetches one order by its human-readable number within a restaurant.
func (r *OrderQueryRepository) ByNumber(ctx context.Context, restaurantID, number string) (*order.Order, error) {
	return r.fetchOne(ctx, orderByNumberSQL, restaurantID, number)
}

func (r *OrderQueryRepository) fetchOne(ctx context.Context, sql string, args ...any) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "getting order")
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrap(err, "getting order")
	}

	if err := attachLines(ctx, r.pool, []*order.Order{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

// List returns orders matching the filter, newest first.
func (r *OrderQueryRepository) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	var from, to *time.Time
	if !f.From.IsZero() {
		from = &f.From
	}
	if !f.To.IsZero() {
		to = &f.To
	}

	rows, err := r.pool.Query(ctx, listOrdersSQL,
		f.RestaurantID, f.TableID, string(f.Status), from, to, f.Limit, f.Offset,
	)
	if err != nil {
		return nil, errors.Wrap(err, "listing orders")
	}
	return r.collectWithLines(ctx, rows)
}

// Kitchen returns the restaurant's active orders, oldest first.
func (r *OrderQueryRepository) Kitchen(ctx context.Context, restaurantID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, kitchenOrdersSQL, restaurantID, statusStrings(order.ActiveStatuses))
	if err != nil {
		return nil, errors.Wrap(err, "listing kitchen orders")
	}
	return r.collectWithLines(ctx, rows)
}

// Stats returns the dashboard aggregates for the given day window.
func (r *OrderQueryRepository) Stats(ctx context.Context, restaurantID string, start, end time.Time) (order.Stats, error) {
	var (
		st      order.Stats
		revenue decimal.Decimal
	)
	err := r.pool.QueryRow(ctx, orderStatsSQL,
		restaurantID, start, end, statusStrings(order.ActiveStatuses),
	).Scan(&st.TodayOrders, &st.ActiveOrders, &revenue)
	if err != nil {
		return order.Stats{}, errors.Wrap(err, "order stats")
	}
	st.TodayRevenue = revenue
	return st, nil
}

func (r *OrderQueryRepository) collectWithLines(ctx context.Context, rows pgx.Rows) ([]order.Order, error) {
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrap(err, "scanning orders")
	}
	if len(orders) == 0 {
		return orders, nil
	}

	refs := make([]*order.Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	if err := attachLines(ctx, r.pool, refs); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachLines batch-loads lines and line modifiers for the given orders and
// attaches them in place. Two queries total, regardless of order count.
func attachLines(ctx context.Context, q querier, orders []*order.Order) error {
	orderIDs := make([]string, len(orders))
	byOrderID := make(map[string]*order.Order, len(orders))
	for i, o := range orders {
		orderIDs[i] = o.ID
		byOrderID[o.ID] = o
	}

	rows, err := q.Query(ctx, linesByOrderIDsSQL, orderIDs)
	if err != nil {
		return errors.Wrap(err, "loading order lines")
	}
	lines, err := pgx.CollectRows(rows, scanLine)
	if err != nil {
		return errors.Wrap(err, "scanning order lines")
	}

	lineIDs := make([]string, len(lines))
	byLineID := make(map[string]int, len(lines))
	for i, l := range lines {
		lineIDs[i] = l.ID
		byLineID[l.ID] = i
	}

	if len(lineIDs) > 0 {
		rows, err := q.Query(ctx, modifiersByLineIDsSQL, lineIDs)
		if err != nil {
			return errors.Wrap(err, "loading line modifiers")
		}
		mods, err := pgx.CollectRows(rows, scanLineModifier)
		if err != nil {
			return errors.Wrap(err, "scanning line modifiers")
		}
		for _, m := range mods {
			i := byLineID[m.LineID]
			lines[i].Modifiers = append(lines[i].Modifiers, m)
		}
	}

	for _, l := range lines {
		o := byOrderID[l.OrderID]
		o.Lines = append(o.Lines, l)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o              order.Order
		status, paySts string
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.RestaurantID, &o.TableID, &status, &paySts,
		&o.TotalAmount, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	o.Status = order.Status(status)
	o.PaymentStatus = order.PaymentStatus(paySts)
	return o, err
}

func scanLine(row pgx.CollectableRow) (order.Line, error) {
	var l order.Line
	err := row.Scan(&l.ID, &l.OrderID, &l.MenuItemID, &l.Price, &l.Quantity, &l.PrepMinutes, &l.Notes)
	return l, err
}

func scanLineModifier(row pgx.CollectableRow) (order.LineModifier, error) {
	var m order.LineModifier
	err := row.Scan(&m.ID, &m.LineID, &m.ModifierID, &m.Price)
	return m, err
}

package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dinehall/orderd/internal/domain/catalog"
	"github.com/dinehall/orderd/internal/domain/order"
	"github.com/dinehall/orderd/internal/domain/table"
)

// uniqueViolation is the SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"

// orderNumberConstraint is the uniqueness constraint the number allocator
// relies on as its source of truth.
const orderNumberConstraint = "orders_restaurant_number_key"

var _ order.Store = (*Store)(nil)

// Store implements order.Store: each unit of work is one pgx transaction.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore returns a Store that opens transactions on the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// WithinTx runs fn inside a single transaction. Any error from fn rolls the
// whole unit back; otherwise it commits.
func (s *Store) WithinTx(ctx context.Context, fn func(tx order.Tx) error) error {
	pgtx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer pgtx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := fn(&unitOfWork{tx: pgtx}); err != nil {
		return err
	}

	if err := pgtx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

// unitOfWork implements order.Tx (including catalog.Source) on one pgx.Tx.
type unitOfWork struct {
	tx pgx.Tx
}

var _ order.Tx = (*unitOfWork)(nil)

const (
	// Table rows are locked for the duration of the unit of work: the
	// occupancy decision is a read-then-conditionally-write on the most
	// contended row in the system.
	tableByIDSQL = `SELECT id, restaurant_id, code, seats, status, created_at, updated_at
		FROM tables WHERE id = $1 FOR UPDATE`

	tableByCodeSQL = `SELECT id, restaurant_id, code, seats, status, created_at, updated_at
		FROM tables WHERE code = $1 FOR UPDATE`

	updateTableStatusSQL = `UPDATE tables SET status = $2, updated_at = now() WHERE id = $1`

	menuItemsByIDsSQL = `SELECT id, restaurant_id, name, price, prep_minutes, is_available
		FROM menu_items
		WHERE restaurant_id = $1 AND id = ANY($2) AND is_available`

	modifiersByIDsSQL = `SELECT m.id, m.group_id, g.menu_item_id, m.name, m.price
		FROM modifiers m
		JOIN modifier_groups g ON g.id = m.group_id
		WHERE g.menu_item_id = ANY($2) AND m.id = ANY($3)
		  AND EXISTS (
			SELECT 1 FROM menu_items mi
			WHERE mi.id = g.menu_item_id AND mi.restaurant_id = $1
		  )`

	countOrdersForDaySQL = `SELECT count(*) FROM orders
		WHERE restaurant_id = $1 AND created_at >= $2 AND created_at < $3`

	insertOrderSQL = `INSERT INTO orders
		(id, order_number, restaurant_id, table_id, status, payment_status, total_amount, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	insertLineSQL = `INSERT INTO order_lines
		(id, order_id, menu_item_id, price, quantity, prep_minutes, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	insertLineModifierSQL = `INSERT INTO order_line_modifiers (id, line_id, modifier_id, price)
		VALUES ($1, $2, $3, $4)`

	orderByIDForUpdateSQL = orderColumnsSQL + ` WHERE id = $1 FOR UPDATE`

	updateOrderSQL = `UPDATE orders
		SET status = $2, payment_status = $3, notes = $4, updated_at = $5
		WHERE id = $1`

	countActiveTableOrdersSQL = `SELECT count(*) FROM orders
		WHERE table_id = $1 AND id <> $2 AND status = ANY($3)`
)

func (u *unitOfWork) TableByID(ctx context.Context, id string) (*table.Table, error) {
	return u.lookupTable(ctx, tableByIDSQL, id)
}

func (u *unitOfWork) TableByCode(ctx context.Context, code string) (*table.Table, error) {
	return u.lookupTable(ctx, tableByCodeSQL, code)
}

func (u *unitOfWork) lookupTable(ctx context.Context, sql, ref string) (*table.Table, error) {
	rows, err := u.tx.Query(ctx, sql, ref)
	if err != nil {
		return nil, errors.Wrapf(err, "getting table %q", ref)
	}

	t, err := pgx.CollectExactlyOneRow(rows, scanTable)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &table.NotFoundError{Ref: ref}
		}
		return nil, errors.Wrapf(err, "getting table %q", ref)
	}
	return &t, nil
}

func (u *unitOfWork) UpdateTableStatus(ctx context.Context, tableID string, status table.Status) error {
	tag, err := u.tx.Exec(ctx, updateTableStatusSQL, tableID, string(status))
	if err != nil {
		return errors.Wrapf(err, "updating table %q status", tableID)
	}
	if tag.RowsAffected() == 0 {
		return &table.NotFoundError{Ref: tableID}
	}
	return nil
}

func (u *unitOfWork) MenuItemsByIDs(ctx context.Context, restaurantID string, ids []string) ([]catalog.MenuItem, error) {
	rows, err := u.tx.Query(ctx, menuItemsByIDsSQL, restaurantID, ids)
	if err != nil {
		return nil, errors.Wrap(err, "getting menu items by ids")
	}
	return pgx.CollectRows(rows, scanMenuItem)
}

func (u *unitOfWork) ModifiersByIDs(ctx context.Context, restaurantID string, menuItemIDs, ids []string) ([]catalog.Modifier, error) {
	rows, err := u.tx.Query(ctx, modifiersByIDsSQL, restaurantID, menuItemIDs, ids)
	if err != nil {
		return nil, errors.Wrap(err, "getting modifiers by ids")
	}
	return pgx.CollectRows(rows, scanModifier)
}

func (u *unitOfWork) CountOrdersForDay(ctx context.Context, restaurantID string, start, end time.Time) (int, error) {
	var count int
	err := u.tx.QueryRow(ctx, countOrdersForDaySQL, restaurantID, start, end).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "counting orders for day")
	}
	return count, nil
}

// InsertOrder persists the whole order graph. A unique violation on the order
// number constraint is reported as order.ErrDuplicateNumber so the
// coordinator can retry with a fresh proposal.
func (u *unitOfWork) InsertOrder(ctx context.Context, o *order.Order) error {
	_, err := u.tx.Exec(ctx, insertOrderSQL,
		o.ID, o.Number, o.RestaurantID, o.TableID,
		string(o.Status), string(o.PaymentStatus),
		o.TotalAmount, o.Notes, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isOrderNumberConflict(err) {
			return errors.Wrapf(order.ErrDuplicateNumber, "inserting order %q", o.Number)
		}
		return errors.Wrapf(err, "inserting order %q", o.Number)
	}

	for _, line := range o.Lines {
		_, err := u.tx.Exec(ctx, insertLineSQL,
			line.ID, o.ID, line.MenuItemID, line.Price, line.Quantity, line.PrepMinutes, line.Notes,
		)
		if err != nil {
			return errors.Wrapf(err, "inserting order line for item %q", line.MenuItemID)
		}

		for _, mod := range line.Modifiers {
			_, err := u.tx.Exec(ctx, insertLineModifierSQL, mod.ID, line.ID, mod.ModifierID, mod.Price)
			if err != nil {
				return errors.Wrapf(err, "inserting line modifier %q", mod.ModifierID)
			}
		}
	}
	return nil
}

func (u *unitOfWork) OrderByIDForUpdate(ctx context.Context, id string) (*order.Order, error) {
	rows, err := u.tx.Query(ctx, orderByIDForUpdateSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting order %q", id)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting order %q", id)
	}

	if err := attachLines(ctx, u.tx, []*order.Order{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

func (u *unitOfWork) UpdateOrder(ctx context.Context, o *order.Order) error {
	tag, err := u.tx.Exec(ctx, updateOrderSQL,
		o.ID, string(o.Status), string(o.PaymentStatus), o.Notes, o.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "updating order %q", o.ID)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (u *unitOfWork) CountActiveTableOrders(ctx context.Context, tableID, excludeOrderID string) (int, error) {
	var count int
	err := u.tx.QueryRow(ctx, countActiveTableOrdersSQL, tableID, excludeOrderID, statusStrings(order.ActiveStatuses)).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "counting active table orders")
	}
	return count, nil
}

// isOrderNumberConflict reports whether err is a unique violation on the
// order number constraint.
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && pgErr.ConstraintName == orderNumberConstraint
}

func statusStrings(statuses []order.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func scanTable(row pgx.CollectableRow) (table.Table, error) {
	var (
		t      table.Table
		status string
	)
	err := row.Scan(&t.ID, &t.RestaurantID, &t.Code, &t.Seats, &status, &t.CreatedAt, &t.UpdatedAt)
	t.Status = table.Status(status)
	return t, err
}

func scanMenuItem(row pgx.CollectableRow) (catalog.MenuItem, error) {
	var it catalog.MenuItem
	err := row.Scan(&it.ID, &it.RestaurantID, &it.Name, &it.Price, &it.PrepMinutes, &it.IsAvailable)
	return it, err
}

func scanModifier(row pgx.CollectableRow) (catalog.Modifier, error) {
	var m catalog.Modifier
	err := row.Scan(&m.ID, &m.GroupID, &m.MenuItemID, &m.Name, &m.Price)
	return m, err
}

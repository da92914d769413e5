package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dinehall/orderd/internal/domain/catalog"
	"github.com/dinehall/orderd/internal/domain/table"
)

// maxNumberAttempts bounds the allocate-and-insert retry loop. Exhausting it
// returns ErrNumberAllocation.
const maxNumberAttempts = 3

// defaultMaxAmount is the sanity ceiling on a single order's total.
var defaultMaxAmount = decimal.NewFromInt(10000)

// ServiceConfig holds tunables and injectable capabilities for the Service.
type ServiceConfig struct {
	// MaxOrderAmount is the sanity ceiling on order totals. Zero means the
	// default of 10000.00.
	MaxOrderAmount decimal.Decimal
	// Now is the clock used for timestamps and day-bucketing order numbers.
	// Nil means time.Now.
	Now func() time.Time
}

// Service is the transaction coordinator: the single atomic entry point for
// order creation and for status updates with their occupancy side effects.
type Service struct {
	store     Store
	sink      EventSink
	now       func() time.Time
	maxAmount decimal.Decimal
}

// NewService creates the order coordinator.
func NewService(store Store, sink EventSink, cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	maxAmount := cfg.MaxOrderAmount
	if maxAmount.IsZero() {
		maxAmount = defaultMaxAmount
	}
	return &Service{
		store:     store,
		sink:      sink,
		now:       now,
		maxAmount: maxAmount,
	}
}

// CreateRequest is the staff-initiated creation input: the table is addressed
// directly by id within a known restaurant.
type CreateRequest struct {
	RestaurantID string
	TableID      string
	Lines        []catalog.RequestedLine
	Notes        string
}

// CreateByCodeRequest is the customer self-service input: the table (and the
// restaurant) is resolved from the code printed at the table.
type CreateByCodeRequest struct {
	TableCode string
	Lines     []catalog.RequestedLine
	Notes     string
}

// Create places a staff-initiated order.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	return s.create(ctx, req.Lines, req.Notes, func(ctx context.Context, tx Tx) (*table.Table, error) {
		t, err := tx.TableByID(ctx, req.TableID)
		if err != nil {
			return nil, err
		}
		if req.RestaurantID != "" && t.RestaurantID != req.RestaurantID {
			return nil, &table.NotFoundError{Ref: req.TableID}
		}
		return t, nil
	})
}

// CreateByCode places a customer self-service order.
func (s *Service) CreateByCode(ctx context.Context, req CreateByCodeRequest) (*Order, error) {
	return s.create(ctx, req.Lines, req.Notes, func(ctx context.Context, tx Tx) (*table.Table, error) {
		return tx.TableByCode(ctx, req.TableCode)
	})
}

// create runs the bounded allocate-and-persist loop. Each attempt is one
// atomic unit: validate table, resolve catalog lines, propose a number,
// insert the order graph, and occupy the table. A duplicate order number
// aborts the attempt and retries with a fresh proposal; any other failure is
// returned as-is. The success event is emitted after commit and never rolls
// the order back.
func (s *Service) create(
	ctx context.Context,
	lines []catalog.RequestedLine,
	notes string,
	lookupTable func(ctx context.Context, tx Tx) (*table.Table, error),
) (*Order, error) {
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		o, err := s.tryCreate(ctx, lines, notes, lookupTable)
		if err != nil {
			if errors.Is(err, ErrDuplicateNumber) {
				zctx.From(ctx).Info("Order number collision, retrying",
					zap.Int("attempt", attempt))
				continue
			}
			return nil, err
		}

		if err := s.sink.OrderCreated(ctx, o); err != nil {
			zctx.From(ctx).Error("Emit order created event",
				zap.String("order_id", o.ID), zap.Error(err))
		}
		return o, nil
	}

	return nil, ErrNumberAllocation
}

func (s *Service) tryCreate(
	ctx context.Context,
	lines []catalog.RequestedLine,
	notes string,
	lookupTable func(ctx context.Context, tx Tx) (*table.Table, error),
) (*Order, error) {
	var created *Order

	err := s.store.WithinTx(ctx, func(tx Tx) error {
		t, err := lookupTable(ctx, tx)
		if err != nil {
			return err
		}
		if t.Status == table.StatusOutOfService {
			return &table.UnavailableError{ID: t.ID, Status: t.Status}
		}

		res, err := catalog.Resolve(ctx, tx, t.RestaurantID, lines)
		if err != nil {
			return err
		}
		if !res.Total.IsPositive() || res.Total.GreaterThan(s.maxAmount) {
			return &InvalidAmountError{Amount: res.Total}
		}

		now := s.now()
		start, end := DayBounds(now)
		count, err := tx.CountOrdersForDay(ctx, t.RestaurantID, start, end)
		if err != nil {
			return errors.Wrap(err, "count orders for day")
		}

		o := buildOrder(t, res, notes, NumberFor(now, count+1), now)
		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}

		if t.Status == table.StatusAvailable {
			if err := tx.UpdateTableStatus(ctx, t.ID, table.StatusOccupied); err != nil {
				return errors.Wrap(err, "occupy table")
			}
		}

		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// buildOrder assembles the full order graph with fresh ids and price snapshots.
func buildOrder(t *table.Table, res *catalog.Resolution, notes, number string, now time.Time) *Order {
	o := &Order{
		ID:            uuid.New().String(),
		Number:        number,
		RestaurantID:  t.RestaurantID,
		TableID:       t.ID,
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
		TotalAmount:   res.Total,
		Notes:         notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	o.Lines = make([]Line, len(res.Lines))
	for i, rl := range res.Lines {
		line := Line{
			ID:          uuid.New().String(),
			OrderID:     o.ID,
			MenuItemID:  rl.MenuItemID,
			Price:       rl.Price,
			Quantity:    rl.Quantity,
			PrepMinutes: rl.PrepMinutes,
			Notes:       rl.Notes,
		}
		line.Modifiers = make([]LineModifier, len(rl.Modifiers))
		for j, rm := range rl.Modifiers {
			line.Modifiers[j] = LineModifier{
				ID:         uuid.New().String(),
				LineID:     line.ID,
				ModifierID: rm.ModifierID,
				Price:      rm.Price,
			}
		}
		o.Lines[i] = line
	}
	return o
}

// UpdateStatusRequest asks for a status transition, optionally appending notes.
type UpdateStatusRequest struct {
	OrderID string
	Status  Status
	Notes   string
}

// UpdateStatus validates and applies a status transition. The transition
// check, the status write, and the occupancy recomputation all run inside one
// unit of work, so a concurrent creation can never observe a stale AVAILABLE
// table. Illegal transitions mutate nothing.
func (s *Service) UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*Order, error) {
	var (
		updated  *Order
		previous Status
	)

	err := s.store.WithinTx(ctx, func(tx Tx) error {
		o, err := tx.OrderByIDForUpdate(ctx, req.OrderID)
		if err != nil {
			return err
		}
		if !req.Status.Valid() || !CanTransition(o.Status, req.Status) {
			return &InvalidTransitionError{From: o.Status, To: req.Status}
		}

		previous = o.Status
		o.Status = req.Status
		if req.Notes != "" {
			// Append, never overwrite, earlier notes.
			if o.Notes != "" {
				o.Notes += "\n" + req.Notes
			} else {
				o.Notes = req.Notes
			}
		}
		o.UpdatedAt = s.now()

		if err := tx.UpdateOrder(ctx, o); err != nil {
			return errors.Wrap(err, "update order")
		}

		if ReleasesTable(req.Status) {
			// Lock the table row before recounting. Sibling completions
			// only touch their own order rows, so without this lock two of
			// them can each count the other's uncommitted terminal status
			// as still active and both skip the release. The lock also
			// orders the recount after any concurrent creation holding the
			// same row.
			if _, err := tx.TableByID(ctx, o.TableID); err != nil {
				return errors.Wrap(err, "lock table")
			}
			active, err := tx.CountActiveTableOrders(ctx, o.TableID, o.ID)
			if err != nil {
				return errors.Wrap(err, "count active table orders")
			}
			if active == 0 {
				if err := tx.UpdateTableStatus(ctx, o.TableID, table.StatusAvailable); err != nil {
					return errors.Wrap(err, "release table")
				}
			}
		}

		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.sink.OrderStatusChanged(ctx, updated, previous); err != nil {
		zctx.From(ctx).Error("Emit order status event",
			zap.String("order_id", updated.ID), zap.Error(err))
	}
	return updated, nil
}

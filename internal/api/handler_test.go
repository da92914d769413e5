package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinehall/orderd/internal/domain/catalog"
	"github.com/dinehall/orderd/internal/domain/order"
	"github.com/dinehall/orderd/internal/domain/table"
)

// --- Mock implementations ---

type fakeStore struct {
	tables map[string]*table.Table
	items  map[string]catalog.MenuItem
	mods   map[string]catalog.Modifier
	orders map[string]*order.Order
}

func (s *fakeStore) WithinTx(_ context.Context, fn func(tx order.Tx) error) error {
	return fn(&fakeTx{s: s})
}

type fakeTx struct {
	s *fakeStore
}

var _ order.Tx = (*fakeTx)(nil)

func (t *fakeTx) MenuItemsByIDs(_ context.Context, restaurantID string, ids []string) ([]catalog.MenuItem, error) {
	var out []catalog.MenuItem
	for _, id := range ids {
		it, ok := t.s.items[id]
		if ok && it.RestaurantID == restaurantID && it.IsAvailable {
			out = append(out, it)
		}
	}
	return out, nil
}

func (t *fakeTx) ModifiersByIDs(_ context.Context, _ string, menuItemIDs, ids []string) ([]catalog.Modifier, error) {
	requested := make(map[string]bool, len(menuItemIDs))
	for _, id := range menuItemIDs {
		requested[id] = true
	}
	var out []catalog.Modifier
	for _, id := range ids {
		m, ok := t.s.mods[id]
		if ok && requested[m.MenuItemID] {
			out = append(out, m)
		}
	}
	return out, nil
}

func (t *fakeTx) TableByID(_ context.Context, id string) (*table.Table, error) {
	tbl, ok := t.s.tables[id]
	if !ok {
		return nil, &table.NotFoundError{Ref: id}
	}
	cp := *tbl
	return &cp, nil
}

func (t *fakeTx) TableByCode(_ context.Context, code string) (*table.Table, error) {
	for _, tbl := range t.s.tables {
		if tbl.Code == code {
			cp := *tbl
			return &cp, nil
		}
	}
	return nil, &table.NotFoundError{Ref: code}
}

func (t *fakeTx) UpdateTableStatus(_ context.Context, tableID string, status table.Status) error {
	tbl, ok := t.s.tables[tableID]
	if !ok {
		return &table.NotFoundError{Ref: tableID}
	}
	tbl.Status = status
	return nil
}

func (t *fakeTx) CountOrdersForDay(_ context.Context, restaurantID string, start, end time.Time) (int, error) {
	n := 0
	for _, o := range t.s.orders {
		if o.RestaurantID == restaurantID && !o.CreatedAt.Before(start) && o.CreatedAt.Before(end) {
			n++
		}
	}
	return n, nil
}

func (t *fakeTx) InsertOrder(_ context.Context, o *order.Order) error {
	for _, existing := range t.s.orders {
		if existing.RestaurantID == o.RestaurantID && existing.Number == o.Number {
			return errors.Wrap(order.ErrDuplicateNumber, "insert order")
		}
	}
	cp := *o
	t.s.orders[o.ID] = &cp
	return nil
}

func (t *fakeTx) OrderByIDForUpdate(_ context.Context, id string) (*order.Order, error) {
	o, ok := t.s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (t *fakeTx) UpdateOrder(_ context.Context, o *order.Order) error {
	cp := *o
	t.s.orders[o.ID] = &cp
	return nil
}

func (t *fakeTx) CountActiveTableOrders(_ context.Context, tableID, excludeOrderID string) (int, error) {
	n := 0
	for _, o := range t.s.orders {
		if o.TableID == tableID && o.ID != excludeOrderID && order.IsActive(o.Status) {
			n++
		}
	}
	return n, nil
}

type fakeQueryRepo struct {
	orders []order.Order
}

var _ order.QueryRepository = (*fakeQueryRepo)(nil)

func (r *fakeQueryRepo) ByID(_ context.Context, id string) (*order.Order, error) {
	for i := range r.orders {
		if r.orders[i].ID == id {
			return &r.orders[i], nil
		}
	}
	return nil, order.ErrNotFound
}

func (r *fakeQueryRepo) ByNumber(_ context.Context, restaurantID, number string) (*order.Order, error) {
	for i := range r.orders {
		if r.orders[i].RestaurantID == restaurantID && r.orders[i].Number == number {
			return &r.orders[i], nil
		}
	}
	return nil, order.ErrNotFound
}

func (r *fakeQueryRepo) List(_ context.Context, f order.Filter) ([]order.Order, error) {
	var out []order.Order
	for _, o := range r.orders {
		if o.RestaurantID == f.RestaurantID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeQueryRepo) Kitchen(_ context.Context, restaurantID string) ([]order.Order, error) {
	var out []order.Order
	for _, o := range r.orders {
		if o.RestaurantID == restaurantID && order.IsActive(o.Status) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeQueryRepo) Stats(_ context.Context, _ string, _, _ time.Time) (order.Stats, error) {
	return order.Stats{
		TodayOrders:  4,
		ActiveOrders: 2,
		TodayRevenue: decimal.RequireFromString("99.00"),
	}, nil
}

type nopSink struct{}

func (nopSink) OrderCreated(context.Context, *order.Order) error { return nil }
func (nopSink) OrderStatusChanged(context.Context, *order.Order, order.Status) error {
	return nil
}

// --- Helpers ---

func newTestMux(t *testing.T) (*http.ServeMux, *fakeStore, *fakeQueryRepo) {
	t.Helper()

	store := &fakeStore{
		tables: map[string]*table.Table{
			"t1": {ID: "t1", RestaurantID: "r1", Code: "T01", Seats: 4, Status: table.StatusAvailable},
		},
		items: map[string]catalog.MenuItem{
			"i1": {
				ID: "i1", RestaurantID: "r1", Name: "Margherita",
				Price: decimal.RequireFromString("11.50"), PrepMinutes: 15, IsAvailable: true,
			},
		},
		mods:   map[string]catalog.Modifier{},
		orders: map[string]*order.Order{},
	}
	repo := &fakeQueryRepo{}

	svc := order.NewService(store, nopSink{}, order.ServiceConfig{
		Now: func() time.Time { return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC) },
	})
	queries := order.NewQueries(repo, func() time.Time {
		return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	})

	mux := http.NewServeMux()
	NewHandler(svc, queries).Register(mux)
	return mux, store, repo
}

func doJSON(t *testing.T, mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

// --- Tests ---

func TestCreateOrder(t *testing.T) {
	mux, store, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/orders",
		`{"restaurant_id":"r1","table_id":"t1","items":[{"menu_item_id":"i1","quantity":2}],"notes":"window seat"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		ID          string          `json:"id"`
		Number      string          `json:"order_number"`
		Status      string          `json:"status"`
		TotalAmount decimal.Decimal `json:"total_amount"`
		Lines       []struct {
			MenuItemID string `json:"menu_item_id"`
			Quantity   int    `json:"quantity"`
		} `json:"lines"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, "ORD-20250101-0001", resp.Number)
	assert.Equal(t, "PENDING", resp.Status)
	assert.True(t, decimal.RequireFromString("23.00").Equal(resp.TotalAmount))
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, "i1", resp.Lines[0].MenuItemID)
	assert.Equal(t, table.StatusOccupied, store.tables["t1"].Status)
}

func TestCreateOrder_BadJSON(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/orders", `{"table_id":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrder_UnknownField(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/orders",
		`{"restaurant_id":"r1","table_id":"t1","items":[],"surprise":true}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrder_EmptyItems(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/orders",
		`{"restaurant_id":"r1","table_id":"t1","items":[]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrder_TableNotFound(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/orders",
		`{"restaurant_id":"r1","table_id":"missing","items":[{"menu_item_id":"i1","quantity":1}]}`)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body errorBody
	decodeBody(t, rec, &body)
	assert.Equal(t, http.StatusNotFound, body.Code)
	assert.Contains(t, body.Message, "missing")
}

func TestCreateOrder_UnknownMenuItem(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/orders",
		`{"restaurant_id":"r1","table_id":"t1","items":[{"menu_item_id":"nope","quantity":1}]}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateOrder_TableOutOfService(t *testing.T) {
	mux, store, _ := newTestMux(t)
	store.tables["t1"].Status = table.StatusOutOfService

	rec := doJSON(t, mux, http.MethodPost, "/api/orders",
		`{"restaurant_id":"r1","table_id":"t1","items":[{"menu_item_id":"i1","quantity":1}]}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateCustomerOrder(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/public/orders",
		`{"table_code":"T01","items":[{"menu_item_id":"i1","quantity":1}]}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp customerOrderResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "ORD-20250101-0001", resp.Number)
	assert.Equal(t, "PENDING", resp.Status)
	// PENDING adds intake slack on top of the longest prep time.
	assert.Equal(t, 20, resp.EstimatedMinutes)
}

func TestUpdateStatus(t *testing.T) {
	mux, store, _ := newTestMux(t)
	store.orders["o1"] = &order.Order{
		ID: "o1", Number: "ORD-20250101-0001", RestaurantID: "r1", TableID: "t1",
		Status: order.StatusPending, PaymentStatus: order.PaymentPending,
		TotalAmount: decimal.RequireFromString("11.50"),
	}

	rec := doJSON(t, mux, http.MethodPatch, "/api/orders/o1/status",
		`{"status":"CONFIRMED"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Status string `json:"status"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, "CONFIRMED", resp.Status)
	assert.Equal(t, order.StatusConfirmed, store.orders["o1"].Status)
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	mux, store, _ := newTestMux(t)
	store.orders["o1"] = &order.Order{
		ID: "o1", RestaurantID: "r1", TableID: "t1",
		Status: order.StatusPending, PaymentStatus: order.PaymentPending,
		TotalAmount: decimal.RequireFromString("11.50"),
	}

	rec := doJSON(t, mux, http.MethodPatch, "/api/orders/o1/status",
		`{"status":"READY"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, order.StatusPending, store.orders["o1"].Status)
}

func TestUpdateStatus_NotFound(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPatch, "/api/orders/missing/status",
		`{"status":"CONFIRMED"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrder(t *testing.T) {
	mux, _, repo := newTestMux(t)
	repo.orders = []order.Order{{
		ID: "o1", Number: "ORD-20250101-0001", RestaurantID: "r1", TableID: "t1",
		Status: order.StatusPending, PaymentStatus: order.PaymentPending,
		TotalAmount: decimal.RequireFromString("11.50"),
	}}

	rec := doJSON(t, mux, http.MethodGet, "/api/orders/o1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, "o1", resp.ID)
}

func TestGetOrder_NotFound(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodGet, "/api/orders/missing", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrderByNumber(t *testing.T) {
	mux, _, repo := newTestMux(t)
	repo.orders = []order.Order{{
		ID: "o1", Number: "ORD-20250101-0001", RestaurantID: "r1", TableID: "t1",
		Status: order.StatusPending, PaymentStatus: order.PaymentPending,
		TotalAmount: decimal.RequireFromString("11.50"),
	}}

	rec := doJSON(t, mux, http.MethodGet,
		"/api/orders/number/ORD-20250101-0001?restaurant_id=r1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/api/orders/number/ORD-20250101-0001", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListOrders_RequiresRestaurantID(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodGet, "/api/orders", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListOrders_InvalidTimestamp(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodGet, "/api/orders?restaurant_id=r1&from=yesterday", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestKitchenOrders(t *testing.T) {
	mux, _, repo := newTestMux(t)
	repo.orders = []order.Order{
		{ID: "o1", RestaurantID: "r1", Status: order.StatusPreparing, TotalAmount: decimal.Zero},
		{ID: "o2", RestaurantID: "r1", Status: order.StatusCompleted, TotalAmount: decimal.Zero},
	}

	rec := doJSON(t, mux, http.MethodGet, "/api/kitchen/orders?restaurant_id=r1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &resp)
	require.Len(t, resp, 1)
	assert.Equal(t, "o1", resp[0].ID)
}

func TestStats(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodGet, "/api/stats?restaurant_id=r1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp statsResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, 4, resp.TodayOrders)
	assert.Equal(t, 2, resp.ActiveOrders)
	assert.True(t, decimal.RequireFromString("99.00").Equal(resp.TodayRevenue))
}

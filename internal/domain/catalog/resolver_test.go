package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockSource struct {
	items map[string]MenuItem
	mods  map[string]Modifier

	itemCalls     int
	modifierCalls int
}

func (m *mockSource) MenuItemsByIDs(_ context.Context, restaurantID string, ids []string) ([]MenuItem, error) {
	m.itemCalls++
	var out []MenuItem
	for _, id := range ids {
		it, ok := m.items[id]
		if ok && it.RestaurantID == restaurantID && it.IsAvailable {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *mockSource) ModifiersByIDs(_ context.Context, _ string, menuItemIDs, ids []string) ([]Modifier, error) {
	m.modifierCalls++
	requested := make(map[string]bool, len(menuItemIDs))
	for _, id := range menuItemIDs {
		requested[id] = true
	}
	var out []Modifier
	for _, id := range ids {
		mod, ok := m.mods[id]
		if ok && requested[mod.MenuItemID] {
			out = append(out, mod)
		}
	}
	return out, nil
}

// --- Helpers ---

func newItem(id, restaurantID, price string) MenuItem {
	return MenuItem{
		ID:           id,
		RestaurantID: restaurantID,
		Name:         id,
		Price:        decimal.RequireFromString(price),
		PrepMinutes:  10,
		IsAvailable:  true,
	}
}

func newModifier(id, itemID, price string) Modifier {
	return Modifier{
		ID:         id,
		GroupID:    "g-" + itemID,
		MenuItemID: itemID,
		Name:       id,
		Price:      decimal.RequireFromString(price),
	}
}

func newSource(items []MenuItem, mods []Modifier) *mockSource {
	src := &mockSource{
		items: make(map[string]MenuItem, len(items)),
		mods:  make(map[string]Modifier, len(mods)),
	}
	for _, it := range items {
		src.items[it.ID] = it
	}
	for _, m := range mods {
		src.mods[m.ID] = m
	}
	return src
}

// --- Tests ---

func TestResolve_EmptyLines(t *testing.T) {
	_, err := Resolve(context.Background(), newSource(nil, nil), "r1", nil)
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestResolve_InvalidQuantity(t *testing.T) {
	src := newSource([]MenuItem{newItem("i1", "r1", "10.00")}, nil)

	_, err := Resolve(context.Background(), src, "r1", []RequestedLine{
		{MenuItemID: "i1", Quantity: 0},
	})

	var qErr *InvalidQuantityError
	require.ErrorAs(t, err, &qErr)
	assert.Equal(t, "i1", qErr.MenuItemID)
}

func TestResolve_MissingItem(t *testing.T) {
	src := newSource([]MenuItem{newItem("i1", "r1", "10.00")}, nil)

	_, err := Resolve(context.Background(), src, "r1", []RequestedLine{
		{MenuItemID: "missing", Quantity: 1},
	})

	var uErr *MenuItemUnavailableError
	require.ErrorAs(t, err, &uErr)
	assert.Equal(t, "missing", uErr.MenuItemID)
}

func TestResolve_ItemFromOtherRestaurant(t *testing.T) {
	// The id exists, but belongs to a different restaurant; it must be
	// reported unavailable rather than priced.
	src := newSource([]MenuItem{newItem("i1", "r2", "10.00")}, nil)

	_, err := Resolve(context.Background(), src, "r1", []RequestedLine{
		{MenuItemID: "i1", Quantity: 1},
	})

	var uErr *MenuItemUnavailableError
	require.ErrorAs(t, err, &uErr)
	assert.Equal(t, "i1", uErr.MenuItemID)
}

func TestResolve_UnavailableItem(t *testing.T) {
	it := newItem("i1", "r1", "10.00")
	it.IsAvailable = false
	src := newSource([]MenuItem{it}, nil)

	_, err := Resolve(context.Background(), src, "r1", []RequestedLine{
		{MenuItemID: "i1", Quantity: 1},
	})

	var uErr *MenuItemUnavailableError
	require.ErrorAs(t, err, &uErr)
}

func TestResolve_UnknownModifier(t *testing.T) {
	src := newSource([]MenuItem{newItem("i1", "r1", "10.00")}, nil)

	_, err := Resolve(context.Background(), src, "r1", []RequestedLine{
		{MenuItemID: "i1", Quantity: 1, ModifierIDs: []string{"m9"}},
	})

	var mErr *InvalidModifierError
	require.ErrorAs(t, err, &mErr)
	assert.Equal(t, "m9", mErr.ModifierID)
}

func TestResolve_ModifierForOtherItem(t *testing.T) {
	// The modifier exists but belongs to an item outside the requested set.
	src := newSource(
		[]MenuItem{newItem("i1", "r1", "10.00")},
		[]Modifier{newModifier("m1", "i2", "1.50")},
	)

	_, err := Resolve(context.Background(), src, "r1", []RequestedLine{
		{MenuItemID: "i1", Quantity: 1, ModifierIDs: []string{"m1"}},
	})

	var mErr *InvalidModifierError
	require.ErrorAs(t, err, &mErr)
}

func TestResolve_PriceSnapshot(t *testing.T) {
	src := newSource(
		[]MenuItem{newItem("i1", "r1", "10.00")},
		[]Modifier{newModifier("m1", "i1", "1.50")},
	)

	res, err := Resolve(context.Background(), src, "r1", []RequestedLine{
		{MenuItemID: "i1", Quantity: 2, ModifierIDs: []string{"m1"}},
	})

	require.NoError(t, err)
	require.Len(t, res.Lines, 1)
	line := res.Lines[0]
	assert.True(t, decimal.RequireFromString("11.50").Equal(line.Price))
	assert.Equal(t, 2, line.Quantity)
	require.Len(t, line.Modifiers, 1)
	assert.True(t, decimal.RequireFromString("1.50").Equal(line.Modifiers[0].Price))
	assert.True(t, decimal.RequireFromString("23.00").Equal(res.Total))
}

func TestResolve_MultipleLines(t *testing.T) {
	src := newSource([]MenuItem{
		newItem("i1", "r1", "11.50"),
		newItem("i2", "r1", "8.50"),
	}, nil)

	res, err := Resolve(context.Background(), src, "r1", []RequestedLine{
		{MenuItemID: "i1", Quantity: 2},
		{MenuItemID: "i2", Quantity: 1},
	})

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("31.50").Equal(res.Total))
	assert.Len(t, res.Lines, 2)
}

func TestResolve_SingleBatchLookups(t *testing.T) {
	src := newSource(
		[]MenuItem{newItem("i1", "r1", "10.00"), newItem("i2", "r1", "5.00")},
		[]Modifier{newModifier("m1", "i1", "1.00")},
	)

	_, err := Resolve(context.Background(), src, "r1", []RequestedLine{
		{MenuItemID: "i1", Quantity: 1, ModifierIDs: []string{"m1"}},
		{MenuItemID: "i2", Quantity: 3},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, src.itemCalls)
	assert.Equal(t, 1, src.modifierCalls)
}

func TestResolve_NoModifiersSkipsLookup(t *testing.T) {
	src := newSource([]MenuItem{newItem("i1", "r1", "10.00")}, nil)

	_, err := Resolve(context.Background(), src, "r1", []RequestedLine{
		{MenuItemID: "i1", Quantity: 1},
	})

	require.NoError(t, err)
	assert.Equal(t, 0, src.modifierCalls)
}

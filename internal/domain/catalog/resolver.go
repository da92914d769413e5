package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// RequestedLine is one cart entry to be resolved against the catalog.
type RequestedLine struct {
	MenuItemID  string
	Quantity    int
	ModifierIDs []string
	Notes       string
}

// ResolvedModifier snapshots a modifier's price at resolution time.
type ResolvedModifier struct {
	ModifierID string
	Name       string
	Price      decimal.Decimal
}

// ResolvedLine carries everything needed to persist one order line: the item
// reference, the unit price snapshot (item price plus selected modifiers),
// and the resolved modifier snapshots.
type ResolvedLine struct {
	MenuItemID  string
	Name        string
	Price       decimal.Decimal
	Quantity    int
	PrepMinutes int
	Notes       string
	Modifiers   []ResolvedModifier
}

// Subtotal returns the line's unit price multiplied by its quantity.
func (l ResolvedLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Resolution is the priced outcome of resolving a set of requested lines.
type Resolution struct {
	Lines []ResolvedLine
	Total decimal.Decimal
}

// Resolve validates the requested lines against a consistent catalog snapshot
// and prices them. It performs exactly one batch lookup for menu items and,
// when any modifiers are requested, one for modifiers. Resolution is
// read-only; it never mutates catalog state.
func Resolve(ctx context.Context, src Source, restaurantID string, lines []RequestedLine) (*Resolution, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyItems
	}

	itemIDs := make([]string, 0, len(lines))
	var modifierIDs []string
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, &InvalidQuantityError{MenuItemID: line.MenuItemID}
		}
		itemIDs = append(itemIDs, line.MenuItemID)
		modifierIDs = append(modifierIDs, line.ModifierIDs...)
	}

	fetched, err := src.MenuItemsByIDs(ctx, restaurantID, itemIDs)
	if err != nil {
		return nil, errors.Wrap(err, "get menu items")
	}
	items := make(map[string]MenuItem, len(fetched))
	for _, it := range fetched {
		items[it.ID] = it
	}

	modifiers := make(map[string]Modifier)
	if len(modifierIDs) > 0 {
		fetchedMods, err := src.ModifiersByIDs(ctx, restaurantID, itemIDs, modifierIDs)
		if err != nil {
			return nil, errors.Wrap(err, "get modifiers")
		}
		for _, m := range fetchedMods {
			modifiers[m.ID] = m
		}
	}

	resolved := make([]ResolvedLine, 0, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		item, ok := items[line.MenuItemID]
		if !ok {
			return nil, &MenuItemUnavailableError{MenuItemID: line.MenuItemID}
		}

		unit := item.Price
		mods := make([]ResolvedModifier, 0, len(line.ModifierIDs))
		for _, id := range line.ModifierIDs {
			mod, ok := modifiers[id]
			if !ok {
				return nil, &InvalidModifierError{ModifierID: id}
			}
			unit = unit.Add(mod.Price)
			mods = append(mods, ResolvedModifier{
				ModifierID: mod.ID,
				Name:       mod.Name,
				Price:      mod.Price,
			})
		}

		rl := ResolvedLine{
			MenuItemID:  item.ID,
			Name:        item.Name,
			Price:       unit,
			Quantity:    line.Quantity,
			PrepMinutes: item.PrepMinutes,
			Notes:       line.Notes,
			Modifiers:   mods,
		}
		total = total.Add(rl.Subtotal())
		resolved = append(resolved, rl)
	}

	// Round once on the total, not per line, to avoid accumulating
	// per-line rounding drift.
	return &Resolution{
		Lines: resolved,
		Total: total.Round(2),
	}, nil
}

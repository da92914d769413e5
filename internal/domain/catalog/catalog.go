// Package catalog resolves requested order lines against live menu data and
// computes price snapshots.
package catalog

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrEmptyItems is returned when a resolution is requested with no lines.
var ErrEmptyItems = errors.New("items required")

// MenuItem is a read-only catalog entry owned by a restaurant.
type MenuItem struct {
	ID           string
	RestaurantID string
	Name         string
	Price        decimal.Decimal
	PrepMinutes  int
	IsAvailable  bool
}

// Modifier is a priced customization attached to a menu item through a
// modifier group.
type Modifier struct {
	ID         string
	GroupID    string
	MenuItemID string
	Name       string
	Price      decimal.Decimal
}

// Source provides batched, restaurant-scoped catalog lookups. The postgres
// unit of work implements it, so resolution can run inside the write
// transaction and observe a consistent snapshot.
type Source interface {
	// MenuItemsByIDs returns available menu items matching the ids, filtered
	// to the given restaurant. Missing, unavailable, or foreign items are
	// simply absent from the result.
	MenuItemsByIDs(ctx context.Context, restaurantID string, ids []string) ([]MenuItem, error)
	// ModifiersByIDs returns modifiers matching the ids whose groups belong
	// to one of the given menu items of the restaurant.
	ModifiersByIDs(ctx context.Context, restaurantID string, menuItemIDs, ids []string) ([]Modifier, error)
}

// MenuItemUnavailableError indicates a requested menu item is missing,
// unavailable, or belongs to a different restaurant.
type MenuItemUnavailableError struct {
	MenuItemID string
}

func (e *MenuItemUnavailableError) Error() string {
	return fmt.Sprintf("menu item %s is not available", e.MenuItemID)
}

// InvalidModifierError indicates a requested modifier does not exist or does
// not belong to any of the requested items.
type InvalidModifierError struct {
	ModifierID string
}

func (e *InvalidModifierError) Error() string {
	return fmt.Sprintf("modifier %s is not valid for the requested items", e.ModifierID)
}

// InvalidQuantityError indicates a line has a non-positive quantity.
type InvalidQuantityError struct {
	MenuItemID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for menu item %s", e.MenuItemID)
}

// Command seed-db provisions a demo restaurant with tables, menu items, and
// modifiers for local development.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dinehall/orderd/internal/storage/postgres"
)

type menuItemSeed struct {
	id          string
	name        string
	price       string
	prepMinutes int
}

type modifierSeed struct {
	id      string
	groupID string
	name    string
	price   string
}

const restaurantID = "demo"

var tableSeeds = []struct {
	id    string
	code  string
	seats int
}{
	{"t-01", "T01", 2},
	{"t-02", "T02", 2},
	{"t-03", "T03", 4},
	{"t-04", "T04", 4},
	{"t-05", "T05", 6},
}

var menuItemSeeds = []menuItemSeed{
	{"mi-margherita", "Margherita Pizza", "11.50", 15},
	{"mi-pepperoni", "Pepperoni Pizza", "13.00", 15},
	{"mi-carbonara", "Spaghetti Carbonara", "12.00", 12},
	{"mi-caesar", "Caesar Salad", "8.50", 8},
	{"mi-tiramisu", "Tiramisu", "6.00", 5},
	{"mi-espresso", "Espresso", "2.50", 3},
}

var modifierGroupSeeds = []struct {
	id     string
	itemID string
	name   string
}{
	{"mg-pizza-extras", "mi-margherita", "Extras"},
	{"mg-pepperoni-extras", "mi-pepperoni", "Extras"},
	{"mg-salad-extras", "mi-caesar", "Extras"},
}

var modifierSeeds = []modifierSeed{
	{"mod-extra-cheese", "mg-pizza-extras", "Extra cheese", "1.50"},
	{"mod-olives", "mg-pizza-extras", "Olives", "1.00"},
	{"mod-double-pepperoni", "mg-pepperoni-extras", "Double pepperoni", "2.50"},
	{"mod-chicken", "mg-salad-extras", "Grilled chicken", "3.00"},
}

func main() {
	var databaseURL string
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seed(ctx, pool); err != nil {
		return err
	}
	return nil
}

func seed(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo restaurant", slog.String("id", restaurantID))

	_, err := pool.Exec(ctx,
		`INSERT INTO restaurants (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		restaurantID, "Demo Trattoria",
	)
	if err != nil {
		return errors.Wrap(err, "seed restaurant")
	}

	for _, t := range tableSeeds {
		_, err := pool.Exec(ctx,
			`INSERT INTO tables (id, restaurant_id, code, seats)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO UPDATE SET code = excluded.code, seats = excluded.seats`,
			t.id, restaurantID, t.code, t.seats,
		)
		if err != nil {
			return errors.Wrapf(err, "seed table %s", t.code)
		}
		slog.Info("seeded table", slog.String("code", t.code))
	}

	for _, it := range menuItemSeeds {
		_, err := pool.Exec(ctx,
			`INSERT INTO menu_items (id, restaurant_id, name, price, prep_minutes)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO UPDATE SET name = excluded.name, price = excluded.price,
				prep_minutes = excluded.prep_minutes, is_available = true`,
			it.id, restaurantID, it.name, it.price, it.prepMinutes,
		)
		if err != nil {
			return errors.Wrapf(err, "seed menu item %s", it.id)
		}
		slog.Info("seeded menu item", slog.String("name", it.name), slog.String("price", it.price))
	}

	for _, g := range modifierGroupSeeds {
		_, err := pool.Exec(ctx,
			`INSERT INTO modifier_groups (id, menu_item_id, name) VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO UPDATE SET name = excluded.name`,
			g.id, g.itemID, g.name,
		)
		if err != nil {
			return errors.Wrapf(err, "seed modifier group %s", g.id)
		}
	}

	for _, m := range modifierSeeds {
		_, err := pool.Exec(ctx,
			`INSERT INTO modifiers (id, group_id, name, price) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO UPDATE SET name = excluded.name, price = excluded.price`,
			m.id, m.groupID, m.name, m.price,
		)
		if err != nil {
			return errors.Wrapf(err, "seed modifier %s", m.id)
		}
		slog.Info("seeded modifier", slog.String("name", m.name), slog.String("price", m.price))
	}

	return nil
}

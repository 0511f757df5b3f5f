// Command seed-db loads the demo catalog (categories, products, users) into
// PostgreSQL. It is idempotent: products upsert by SKU and categories by
// name, so reruns refresh rather than duplicate.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/avelier/storefront/internal/domain/product"
	"github.com/avelier/storefront/internal/domain/user"
	"github.com/avelier/storefront/internal/repository"
)

type catalogJSON struct {
	Categories []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"categories"`
	Products []struct {
		Name          string          `json:"name"`
		Description   string          `json:"description"`
		Price         decimal.Decimal `json:"price"`
		StockQuantity int             `json:"stockQuantity"`
		SKU           string          `json:"sku"`
		Category      string          `json:"category"`
	} `json:"products"`
	Users []struct {
		Email        string `json:"email"`
		PasswordHash string `json:"passwordHash"`
		FirstName    string `json:"firstName"`
		LastName     string `json:"lastName"`
		PhoneNumber  string `json:"phoneNumber"`
	} `json:"users"`
}

func main() {
	var (
		databaseURL string
		catalogFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file")
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

	if err := run(ctx, databaseURL, catalogFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("reading catalog file", slog.String("path", catalogFile))

	data, err := os.ReadFile(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}

	var catalog catalogJSON
	if err := json.Unmarshal(data, &catalog); err != nil {
		return errors.Wrap(err, "parse catalog JSON")
	}

	categories := repository.NewCategoryRepository(pool)
	products := repository.NewProductRepository(pool)
	users := repository.NewUserRepository(pool)

	categoryIDs := make(map[string]int64, len(catalog.Categories))
	for _, c := range catalog.Categories {
		id, err := categories.EnsureByName(ctx, c.Name)
		if err != nil {
			return errors.Wrapf(err, "ensure category %s", c.Name)
		}
		categoryIDs[c.Name] = id
		slog.Info("ensured category", slog.String("name", c.Name), slog.Int64("id", id))
	}

	now := time.Now().UTC()
	for _, pj := range catalog.Products {
		categoryID, ok := categoryIDs[pj.Category]
		if !ok {
			id, err := categories.EnsureByName(ctx, pj.Category)
			if err != nil {
				return errors.Wrapf(err, "ensure category %s", pj.Category)
			}
			categoryIDs[pj.Category] = id
			categoryID = id
		}

		p := &product.Product{
			Name:          pj.Name,
			Description:   pj.Description,
			Price:         pj.Price,
			StockQuantity: pj.StockQuantity,
			SKU:           pj.SKU,
			CategoryID:    categoryID,
			Active:        true,
			CreatedAt:     now,
		}
		if vs := p.Validate(); len(vs) > 0 {
			return errors.Errorf("invalid seed product %s: %s", pj.SKU, vs.Error())
		}
		if err := products.UpsertBySKU(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert product %s", pj.SKU)
		}

		slog.Info("upserted product", slog.String("sku", pj.SKU), slog.String("name", pj.Name))
	}

	for _, uj := range catalog.Users {
		if _, err := users.GetByEmail(ctx, uj.Email); err == nil {
			slog.Info("user already seeded", slog.String("email", uj.Email))
			continue
		}

		u := &user.User{
			Email:        uj.Email,
			PasswordHash: uj.PasswordHash,
			FirstName:    uj.FirstName,
			LastName:     uj.LastName,
			Role:         user.RoleCustomer,
			PhoneNumber:  uj.PhoneNumber,
			Active:       true,
			CreatedAt:    now,
			LastLoginAt:  now,
		}
		if vs := u.Validate(); len(vs) > 0 {
			return errors.Errorf("invalid seed user %s: %s", uj.Email, vs.Error())
		}
		id, err := users.Create(ctx, u)
		if err != nil {
			return errors.Wrapf(err, "create user %s", uj.Email)
		}

		slog.Info("created user", slog.String("email", uj.Email), slog.Int64("id", id))
	}

	return nil
}

//go:build integration

package repository

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/avelier/storefront/internal/domain/order"
	"github.com/avelier/storefront/internal/domain/product"
	"github.com/avelier/storefront/internal/domain/purchase"
	"github.com/avelier/storefront/internal/domain/user"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "storefront",
				"POSTGRES_PASSWORD": "storefront",
				"POSTGRES_DB":       "storefront",
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
				wait.ForListeningPort("5432/tcp"),
			),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("start postgres container: %v", err)
	}
	defer func() {
		if err := container.Terminate(context.Background()); err != nil {
			log.Printf("terminate container: %v", err)
		}
	}()

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}

	databaseURL := fmt.Sprintf("postgres://storefront:storefront@%s:%s/storefront?sslmode=disable", host, port.Port())

	testPool, err = NewPool(ctx, databaseURL)
	if err != nil {
		log.Fatalf("create pool: %v", err)
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	return m.Run()
}

// seedProduct inserts a category, a user, and a product, returning the
// product and user IDs. Each call uses distinct natural keys so tests do not
// interfere.
func seedProduct(t *testing.T, stock int, price string) (productID, userID int64) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	categoryID, err := NewCategoryRepository(testPool).EnsureByName(ctx, "Integration")
	require.NoError(t, err)

	userID, err = NewUserRepository(testPool).Create(ctx, &user.User{
		Email:        fmt.Sprintf("buyer-%s@example.com", t.Name()),
		PasswordHash: "x",
		FirstName:    "Integration",
		LastName:     "Buyer",
		Role:         user.RoleCustomer,
		Active:       true,
		CreatedAt:    now,
	})
	require.NoError(t, err)

	productID, err = NewProductRepository(testPool).Create(ctx, &product.Product{
		Name:          "Widget " + t.Name(),
		Description:   "Integration test widget",
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		SKU:           "IT-" + t.Name(),
		CategoryID:    categoryID,
		Active:        true,
		CreatedAt:     now,
	})
	require.NoError(t, err)

	return productID, userID
}

func currentStock(t *testing.T, productID int64) int {
	t.Helper()
	p, err := NewProductRepository(testPool).GetByID(context.Background(), productID)
	require.NoError(t, err)
	return p.StockQuantity
}

func TestProductRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(testPool)

	productID, _ := seedProduct(t, 7, "19.99")

	p, err := repo.GetByID(ctx, productID)
	require.NoError(t, err)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, 7, p.StockQuantity)

	p.Name = "Renamed Widget"
	p.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.Update(ctx, p))

	got, err := repo.GetBySKU(ctx, p.SKU)
	require.NoError(t, err)
	assert.Equal(t, "Renamed Widget", got.Name)

	_, err = repo.GetByID(ctx, 99999999)
	assert.ErrorIs(t, err, product.ErrNotFound)
}

func TestPurchase_Postgres_Scenario(t *testing.T) {
	ctx := context.Background()
	productID, userID := seedProduct(t, 5, "10.00")

	c := purchase.NewCoordinator(NewPurchaseStore(testPool, 5*time.Second))

	o, err := c.Purchase(ctx, productID, userID, 3)
	require.NoError(t, err)
	assert.True(t, o.TotalPrice.Equal(decimal.RequireFromString("30.00")), "total is %s", o.TotalPrice)
	assert.Equal(t, order.StatusConfirmed, o.Status)
	assert.Equal(t, 2, currentStock(t, productID))

	_, err = c.Purchase(ctx, productID, userID, 3)
	var insufficient *purchase.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 3, insufficient.Requested)
	assert.Equal(t, 2, insufficient.Available)
	assert.Equal(t, 2, currentStock(t, productID), "failed purchase must not change stock")

	orders, err := NewOrderRepository(testPool).ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, orders, 1, "no order row for the failed purchase")
}

func TestPurchase_Postgres_ContendedLastUnit(t *testing.T) {
	ctx := context.Background()
	productID, userID := seedProduct(t, 1, "49.99")

	c := purchase.NewCoordinator(NewPurchaseStore(testPool, 5*time.Second))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = c.Purchase(ctx, productID, userID, 1)
		}()
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		var insufficient *purchase.InsufficientStockError
		require.ErrorAs(t, err, &insufficient)
		lost++
	}
	assert.Equal(t, 1, won, "exactly one purchase wins the last unit")
	assert.Equal(t, 1, lost)
	assert.Equal(t, 0, currentStock(t, productID))
}

func TestPurchase_Postgres_LockTimeout(t *testing.T) {
	ctx := context.Background()
	productID, userID := seedProduct(t, 10, "5.00")

	// Hold the row lock in a competing transaction.
	blocker, err := testPool.Begin(ctx)
	require.NoError(t, err)
	defer blocker.Rollback(ctx)

	_, err = blocker.Exec(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, productID)
	require.NoError(t, err)

	c := purchase.NewCoordinator(
		NewPurchaseStore(testPool, 200*time.Millisecond),
		purchase.WithLockTimeout(200*time.Millisecond),
	)

	_, err = c.Purchase(ctx, productID, userID, 1)
	require.ErrorIs(t, err, purchase.ErrLockTimeout)
	require.NoError(t, blocker.Rollback(ctx))

	assert.Equal(t, 10, currentStock(t, productID), "timed out purchase leaves no trace")

	// The lock is free again; the retry succeeds.
	_, err = c.Purchase(ctx, productID, userID, 1)
	require.NoError(t, err)
	assert.Equal(t, 9, currentStock(t, productID))
}

func TestPurchase_Postgres_StockNeverNegative(t *testing.T) {
	ctx := context.Background()
	productID, userID := seedProduct(t, 8, "2.50")

	c := purchase.NewCoordinator(NewPurchaseStore(testPool, 5*time.Second))

	const buyers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for range buyers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Purchase(ctx, productID, userID, 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, succeeded, "every unit sold exactly once")
	assert.Equal(t, 0, currentStock(t, productID))

	orders, err := NewOrderRepository(testPool).ListByUser(ctx, userID)
	require.NoError(t, err)

	total := 0
	for _, o := range orders {
		total += o.Quantity
	}
	assert.Equal(t, 8, total, "order quantities account for all stock")
}

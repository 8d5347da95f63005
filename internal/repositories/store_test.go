package repositories_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"storefront/internal/apperror"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSQLiteStore(t *testing.T) *repositories.GORMStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	store := repositories.NewGORMStore(db)
	require.NoError(t, store.AutoMigrate())
	return store
}

// forEachStore runs the test body against every Store implementation.
func forEachStore(t *testing.T, body func(t *testing.T, store repositories.Store)) {
	t.Run("memory", func(t *testing.T) { body(t, repositories.NewMemoryStore()) })
	t.Run("sqlite", func(t *testing.T) { body(t, newSQLiteStore(t)) })
}

func seedProduct(t *testing.T, store repositories.Store, name string, price int64, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: price, CountInStock: stock, Category: "Electronics"}
	require.NoError(t, store.Products().Create(context.Background(), p))
	return p
}

func TestProductCRUD(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repositories.Store) {
		ctx := context.Background()
		p := seedProduct(t, store, "Laptop", 120000, 5)
		assert.NotEmpty(t, p.ID)

		got, err := store.Products().GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Laptop", got.Name)

		got.Price = 99000
		got.CountInStock = 0
		require.NoError(t, store.Products().Update(ctx, got))
		updated, err := store.Products().GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(99000), updated.Price)
		assert.Equal(t, 0, updated.CountInStock)

		err = store.Products().Update(ctx, &models.Product{ID: "missing", Name: "x"})
		assert.True(t, apperror.Is(err, apperror.NotFound))

		count, err := store.Products().Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		require.NoError(t, store.Products().Delete(ctx, p.ID))
		_, err = store.Products().GetByID(ctx, p.ID)
		assert.True(t, apperror.Is(err, apperror.NotFound))
		assert.True(t, apperror.Is(store.Products().Delete(ctx, p.ID), apperror.NotFound))
	})
}

func TestDecrementStock(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repositories.Store) {
		ctx := context.Background()
		p := seedProduct(t, store, "Mouse", 1500, 3)

		require.NoError(t, store.Products().DecrementStock(ctx, p.ID, 2))

		err := store.Products().DecrementStock(ctx, p.ID, 2)
		var shortage *repositories.StockShortage
		require.True(t, errors.As(err, &shortage))
		assert.Equal(t, 1, shortage.Available)
		assert.Equal(t, 2, shortage.Requested)
		assert.Equal(t, "Mouse", shortage.ProductName)

		got, err := store.Products().GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.CountInStock)

		err = store.Products().DecrementStock(ctx, "missing", 1)
		assert.True(t, apperror.Is(err, apperror.NotFound))
	})
}

func TestCartAddQuantityUpserts(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repositories.Store) {
		ctx := context.Background()
		p := seedProduct(t, store, "Keyboard", 4500, 10)

		line := func(q int) *models.CartItem {
			return &models.CartItem{UserID: "u1", ProductID: p.ID, Name: p.Name, Price: p.Price, Quantity: q}
		}
		require.NoError(t, store.Carts().AddQuantity(ctx, line(2)))
		require.NoError(t, store.Carts().AddQuantity(ctx, line(3)))

		items, err := store.Carts().ListByUser(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, 5, items[0].Quantity)

		require.NoError(t, store.Carts().SetQuantity(ctx, "u1", p.ID, 1))
		item, err := store.Carts().Get(ctx, "u1", p.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, item.Quantity)

		assert.True(t, apperror.Is(store.Carts().SetQuantity(ctx, "u1", "missing", 1), apperror.NotFound))

		require.NoError(t, store.Carts().Delete(ctx, "u1", p.ID))
		require.NoError(t, store.Carts().Delete(ctx, "u1", p.ID))
		items, err = store.Carts().ListByUser(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestOrdersRoundTripAndQueries(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repositories.Store) {
		ctx := context.Background()
		now := time.Now().UTC()
		old := &models.Order{
			ID: "STA000001", UserID: "u1", Status: models.OrderStatusCompleted,
			Items:       []models.OrderItem{{ProductID: "p1", Name: "Laptop", Price: 100, Quantity: 2}},
			Quantity:    2, TotalAmount: 200, CreatedAt: now.Add(-10 * 24 * time.Hour),
		}
		recent := &models.Order{
			ID: "STB000002", UserID: "u1", Status: models.OrderStatusCompleted,
			Items:       []models.OrderItem{{ProductID: "p2", Name: "Mouse", Price: 50, Quantity: 1}},
			Quantity:    1, TotalAmount: 50, CreatedAt: now.Add(-time.Hour),
		}
		require.NoError(t, store.Orders().Create(ctx, old))
		require.NoError(t, store.Orders().Create(ctx, recent))

		dup := *recent
		assert.True(t, apperror.Is(store.Orders().Create(ctx, &dup), apperror.Conflict))

		got, err := store.Orders().GetByID(ctx, old.ID)
		require.NoError(t, err)
		assert.Equal(t, old.Items, got.Items)

		list, err := store.Orders().ListByUser(ctx, "u1", 10)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, recent.ID, list[0].ID)

		since, err := store.Orders().ListSince(ctx, now.Add(-7*24*time.Hour))
		require.NoError(t, err)
		require.Len(t, since, 1)
		assert.Equal(t, recent.ID, since[0].ID)

		total, err := store.Orders().SumTotal(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(250), total)

		require.NoError(t, store.Orders().UpdateStatus(ctx, old.ID, models.OrderStatusShipped))
		got, err = store.Orders().GetByID(ctx, old.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusShipped, got.Status)
		assert.True(t, apperror.Is(store.Orders().UpdateStatus(ctx, "missing", models.OrderStatusShipped), apperror.NotFound))

		n, err := store.Orders().DeleteAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		count, err := store.Orders().Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestUsersUniqueEmail(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repositories.Store) {
		ctx := context.Background()
		u := &models.User{Username: "alice", Email: "alice@example.com"}
		require.NoError(t, store.Users().Create(ctx, u))
		assert.NotEmpty(t, u.ID)

		err := store.Users().Create(ctx, &models.User{Username: "alice2", Email: "alice@example.com"})
		assert.True(t, apperror.Is(err, apperror.Conflict))

		byEmail, err := store.Users().GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, byEmail.ID)

		_, err = store.Users().GetByVerificationToken(ctx, "")
		assert.True(t, apperror.Is(err, apperror.NotFound))

		require.NoError(t, store.Users().Create(ctx, &models.User{Username: "root", Email: "root@example.com", IsAdmin: true}))
		customers, err := store.Users().CountCustomers(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), customers)

		users, err := store.Users().ListByIDs(ctx, []string{u.ID, "missing"})
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "alice", users[0].Username)
	})
}

func TestWithinTransactionRollsBack(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repositories.Store) {
		ctx := context.Background()
		p := seedProduct(t, store, "Monitor", 30000, 4)

		boom := errors.New("boom")
		err := store.WithinTransaction(ctx, func(tx repositories.Store) error {
			if err := tx.Products().DecrementStock(ctx, p.ID, 3); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := store.Products().GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, got.CountInStock)

		err = store.WithinTransaction(ctx, func(tx repositories.Store) error {
			return tx.Products().DecrementStock(ctx, p.ID, 3)
		})
		require.NoError(t, err)
		got, err = store.Products().GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.CountInStock)
	})
}

func TestRollbackKeepsConcurrentWrites(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repositories.Store) {
		ctx := context.Background()
		p := seedProduct(t, store, "Keyboard", 5000, 10)

		var wg sync.WaitGroup
		var outsideErr error
		boom := errors.New("boom")
		err := store.WithinTransaction(ctx, func(tx repositories.Store) error {
			if err := tx.Carts().AddQuantity(ctx, &models.CartItem{UserID: "alice", ProductID: p.ID, Name: p.Name, Price: p.Price, Quantity: 2}); err != nil {
				return err
			}
			if err := tx.Products().DecrementStock(ctx, p.ID, 2); err != nil {
				return err
			}

			// Another request writes while the transaction is still open.
			wg.Add(1)
			go func() {
				defer wg.Done()
				outsideErr = store.Carts().AddQuantity(ctx, &models.CartItem{UserID: "bob", ProductID: p.ID, Name: p.Name, Price: p.Price, Quantity: 1})
			}()
			time.Sleep(50 * time.Millisecond)
			return boom
		})
		assert.ErrorIs(t, err, boom)
		wg.Wait()
		require.NoError(t, outsideErr)

		bob, err := store.Carts().ListByUser(ctx, "bob")
		require.NoError(t, err)
		require.Len(t, bob, 1)
		assert.Equal(t, 1, bob[0].Quantity)

		alice, err := store.Carts().ListByUser(ctx, "alice")
		require.NoError(t, err)
		assert.Empty(t, alice)

		got, err := store.Products().GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 10, got.CountInStock)
	})
}

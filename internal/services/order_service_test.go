package services_test

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
	"storefront/internal/services"
	"storefront/pkg/rabbitmq"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// sequenceIDs hands out ids in order and then keeps repeating the last one.
type sequenceIDs struct {
	mu  sync.Mutex
	ids []string
	i   int
}

func (g *sequenceIDs) GenerateOrderID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.ids[g.i]
	if g.i < len(g.ids)-1 {
		g.i++
	}
	return id
}

type counterIDs struct {
	mu sync.Mutex
	n  int
}

func (g *counterIDs) GenerateOrderID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("STT%06d", g.n)
}

type fixedDelivery struct {
	days int
}

func (d fixedDelivery) EstimateDelivery(now time.Time) time.Time {
	return now.AddDate(0, 0, d.days)
}

var checkoutTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newOrderService(store repositories.Store, publisher services.EventPublisher, opts ...services.OrderOption) *services.OrderService {
	defaults := []services.OrderOption{
		services.WithOrderIDGenerator(&counterIDs{}),
		services.WithDeliveryEstimator(fixedDelivery{days: 3}),
		services.WithClock(func() time.Time { return checkoutTime }),
	}
	return services.NewOrderService(store, publisher, zerolog.Nop(), append(defaults, opts...)...)
}

func fillCart(t *testing.T, store repositories.Store, userID string, lines map[string]int) {
	t.Helper()
	cartService := services.NewCartService(store, zerolog.Nop())
	for productID, qty := range lines {
		_, err := cartService.Add(context.Background(), userID, productID, qty)
		require.NoError(t, err)
	}
}

func orderCount(t *testing.T, store repositories.Store) int64 {
	t.Helper()
	n, err := store.Orders().Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestOrderService_PurchaseSucceeds(t *testing.T) {
	store := repositories.NewMemoryStore()
	createProduct(t, store, "A", "Product A", 100, 5)
	createProduct(t, store, "B", "Product B", 50, 2)
	fillCart(t, store, "u1", map[string]int{"A": 3, "B": 2})
	ctx := context.Background()

	before, err := store.Carts().ListByUser(ctx, "u1")
	require.NoError(t, err)

	orderService := newOrderService(store, nil)
	receipt, err := orderService.Purchase(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, "STT000001", receipt.OrderID)
	assert.Equal(t, int64(400), receipt.TotalAmount)
	assert.Equal(t, 2, receipt.Items)
	assert.Equal(t, 5, receipt.Quantity)
	assert.Equal(t, "Monday, 4 March 2024", receipt.DeliveryDate)

	assert.Equal(t, 2, stockOf(t, store, "A"))
	assert.Equal(t, 0, stockOf(t, store, "B"))

	cart, err := store.Carts().ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, cart)

	order, err := store.Orders().GetByID(ctx, receipt.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.SnapshotCart(before), order.Items)
	assert.Equal(t, models.OrderStatusCompleted, order.Status)
	assert.Equal(t, int64(400), order.TotalAmount)
	assert.Equal(t, "u1", order.UserID)

	// A second purchase on the now empty cart
	_, err = orderService.Purchase(ctx, "u1")
	assert.True(t, apperror.Is(err, apperror.EmptyCart))
	assert.Equal(t, int64(1), orderCount(t, store))
}

func TestOrderService_InsufficientStockChangesNothing(t *testing.T) {
	store := repositories.NewMemoryStore()
	createProduct(t, store, "A", "Product A", 100, 5)
	createProduct(t, store, "B", "Product B", 50, 2)
	fillCart(t, store, "u1", map[string]int{"A": 3, "B": 3})
	ctx := context.Background()

	publisher := new(MockPublisher)
	invalidator := new(MockInvalidator)
	orderService := newOrderService(store, publisher, services.WithInvalidator(invalidator))

	_, err := orderService.Purchase(ctx, "u1")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.InsufficientStock))
	assert.Contains(t, err.Error(), "Product B")
	assert.Contains(t, err.Error(), "Available: 2, Requested: 3")

	var shortage *repositories.StockShortage
	require.True(t, errors.As(err, &shortage))
	assert.Equal(t, "B", shortage.ProductID)

	assert.Equal(t, 5, stockOf(t, store, "A"))
	assert.Equal(t, 2, stockOf(t, store, "B"))
	cart, err := store.Carts().ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, cart, 2)
	for _, line := range cart {
		assert.Equal(t, 3, line.Quantity)
	}
	assert.Zero(t, orderCount(t, store))

	publisher.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
	invalidator.AssertNotCalled(t, "Invalidate")
}

func TestOrderService_EmptyCartWritesNothing(t *testing.T) {
	store := repositories.NewMemoryStore()
	createProduct(t, store, "A", "Product A", 100, 5)
	publisher := new(MockPublisher)
	orderService := newOrderService(store, publisher)

	_, err := orderService.Purchase(context.Background(), "u1")

	assert.True(t, apperror.Is(err, apperror.EmptyCart))
	assert.Zero(t, orderCount(t, store))
	assert.Equal(t, 5, stockOf(t, store, "A"))
	publisher.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
}

func TestOrderService_DeletedProductAbortsPurchase(t *testing.T) {
	store := repositories.NewMemoryStore()
	createProduct(t, store, "A", "Product A", 100, 5)
	createProduct(t, store, "B", "Product B", 50, 5)
	fillCart(t, store, "u1", map[string]int{"A": 1, "B": 1})
	ctx := context.Background()
	require.NoError(t, store.Products().Delete(ctx, "B"))

	_, err := newOrderService(store, nil).Purchase(ctx, "u1")

	assert.True(t, apperror.Is(err, apperror.NotFound))
	assert.Equal(t, 5, stockOf(t, store, "A"))
}

func TestOrderService_RetriesOnOrderIDCollision(t *testing.T) {
	store := repositories.NewMemoryStore()
	createProduct(t, store, "A", "Product A", 100, 5)
	fillCart(t, store, "u1", map[string]int{"A": 2})
	ctx := context.Background()
	require.NoError(t, store.Orders().Create(ctx, &models.Order{ID: "STA000001", UserID: "u0", Status: models.OrderStatusCompleted}))

	ids := &sequenceIDs{ids: []string{"STA000001", "STB000002"}}
	receipt, err := newOrderService(store, nil, services.WithOrderIDGenerator(ids)).Purchase(ctx, "u1")

	require.NoError(t, err)
	assert.Equal(t, "STB000002", receipt.OrderID)
	assert.Equal(t, 3, stockOf(t, store, "A"))
}

func TestOrderService_CollisionRetriesExhausted(t *testing.T) {
	store := repositories.NewMemoryStore()
	createProduct(t, store, "A", "Product A", 100, 5)
	fillCart(t, store, "u1", map[string]int{"A": 2})
	ctx := context.Background()
	require.NoError(t, store.Orders().Create(ctx, &models.Order{ID: "STA000001", UserID: "u0", Status: models.OrderStatusCompleted}))

	ids := &sequenceIDs{ids: []string{"STA000001"}}
	_, err := newOrderService(store, nil, services.WithOrderIDGenerator(ids)).Purchase(ctx, "u1")

	assert.True(t, apperror.Is(err, apperror.Conflict))
	assert.Equal(t, 5, stockOf(t, store, "A"))
	cart, err := store.Carts().ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, cart, 1)
}

type failingClearCarts struct {
	repositories.CartRepository
}

func (failingClearCarts) ClearUser(ctx context.Context, userID string) error {
	return errors.New("disk full")
}

type failingClearStore struct {
	*repositories.MemoryStore
}

func (s failingClearStore) Carts() repositories.CartRepository {
	return failingClearCarts{s.MemoryStore.Carts()}
}

func TestOrderService_CartClearFailureKeepsOrder(t *testing.T) {
	mem := repositories.NewMemoryStore()
	createProduct(t, mem, "A", "Product A", 100, 5)
	fillCart(t, mem, "u1", map[string]int{"A": 1})
	ctx := context.Background()

	receipt, err := newOrderService(failingClearStore{mem}, nil).Purchase(ctx, "u1")

	require.Error(t, err)
	assert.Equal(t, apperror.Internal, apperror.KindOf(err))
	require.NotNil(t, receipt)
	_, getErr := mem.Orders().GetByID(ctx, receipt.OrderID)
	assert.NoError(t, getErr)
	assert.Equal(t, 4, stockOf(t, mem, "A"))
}

func TestOrderService_PublishesAndInvalidates(t *testing.T) {
	store := repositories.NewMemoryStore()
	createProduct(t, store, "A", "Product A", 100, 5)
	fillCart(t, store, "u1", map[string]int{"A": 2})

	publisher := new(MockPublisher)
	publisher.On("PublishJSON", rabbitmq.OrderEventsQueue, mock.MatchedBy(func(e services.OrderEvent) bool {
		return e.Type == services.EventOrderCreated && e.UserID == "u1" && e.TotalAmount == 200
	})).Return(errors.New("broker unavailable")).Once()
	invalidator := new(MockInvalidator)
	invalidator.On("Invalidate").Return().Once()

	_, err := newOrderService(store, publisher, services.WithInvalidator(invalidator)).Purchase(context.Background(), "u1")

	require.NoError(t, err)
	publisher.AssertExpectations(t)
	invalidator.AssertExpectations(t)
}

func TestOrderService_ConcurrentPurchasesNeverOversell(t *testing.T) {
	store := repositories.NewMemoryStore()
	createProduct(t, store, "A", "Product A", 100, 5)
	const buyers = 10
	for i := 0; i < buyers; i++ {
		fillCart(t, store, fmt.Sprintf("u%d", i), map[string]int{"A": 1})
	}
	orderService := newOrderService(store, nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			if _, err := orderService.Purchase(context.Background(), userID); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else {
				assert.True(t, apperror.Is(err, apperror.InsufficientStock))
			}
		}(fmt.Sprintf("u%d", i))
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 0, stockOf(t, store, "A"))
	assert.Equal(t, int64(5), orderCount(t, store))
}

func TestOrderService_ListOrders(t *testing.T) {
	store := repositories.NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		require.NoError(t, store.Orders().Create(ctx, &models.Order{
			ID:          fmt.Sprintf("STH%06d", i),
			UserID:      "u1",
			Status:      models.OrderStatusCompleted,
			TotalAmount: int64(i),
			CreatedAt:   checkoutTime.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, store.Orders().Create(ctx, &models.Order{ID: "STZ000001", UserID: "u2", CreatedAt: checkoutTime}))

	orders, err := newOrderService(store, nil).ListOrders(ctx, "u1")
	require.NoError(t, err)

	require.Len(t, orders, 10)
	assert.Equal(t, "STH000011", orders[0].ID)
	assert.Equal(t, "1 Mar 2024", orders[0].OrderDate)
	for _, o := range orders {
		assert.Equal(t, "u1", o.UserID)
	}
}

func TestOrderService_UpdateOrderStatus(t *testing.T) {
	store := repositories.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Orders().Create(ctx, &models.Order{ID: "STA000001", UserID: "u1", Status: models.OrderStatusCompleted}))

	publisher := new(MockPublisher)
	publisher.On("PublishJSON", rabbitmq.OrderEventsQueue, mock.AnythingOfType("services.OrderEvent")).Return(nil).Once()
	orderService := newOrderService(store, publisher)

	assert.True(t, apperror.Is(orderService.UpdateOrderStatus(ctx, "STA000001", "delivered"), apperror.InvalidInput))
	assert.True(t, apperror.Is(orderService.UpdateOrderStatus(ctx, "missing", "shipped"), apperror.NotFound))
	require.NoError(t, orderService.UpdateOrderStatus(ctx, "STA000001", "shipped"))

	order, err := store.Orders().GetByID(ctx, "STA000001")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, order.Status)
	publisher.AssertExpectations(t)
}

func TestOrderService_ClearOrdersAndListAll(t *testing.T) {
	store := repositories.NewMemoryStore()
	ctx := context.Background()
	orderService := newOrderService(store, nil)

	all, err := orderService.ListAllOrders(ctx)
	require.NoError(t, err)
	assert.NotNil(t, all)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Orders().Create(ctx, &models.Order{ID: fmt.Sprintf("STC%06d", i), UserID: "u1"}))
	}
	all, err = orderService.ListAllOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	deleted, err := orderService.ClearOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.Zero(t, orderCount(t, store))
}

func TestRandomGenerators(t *testing.T) {
	for i := 0; i < 50; i++ {
		id := services.RandomOrderIDs{}.GenerateOrderID()
		assert.Regexp(t, `^ST[A-Z][1-9][0-9]{5}$`, id)

		delivery := services.RandomDelivery{}.EstimateDelivery(checkoutTime)
		days := int(delivery.Sub(checkoutTime).Hours() / 24)
		assert.GreaterOrEqual(t, days, 1)
		assert.LessOrEqual(t, days, 10)
	}
}

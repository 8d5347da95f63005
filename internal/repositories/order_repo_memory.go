package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront/internal/apperror"
	"storefront/internal/models"
)

// MemoryOrderRepository is an in-memory implementation of OrderRepository.
type MemoryOrderRepository struct {
	orders map[string]models.Order
	mu     sync.RWMutex
}

// NewMemoryOrderRepository creates a new instance of MemoryOrderRepository.
func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders: make(map[string]models.Order),
	}
}

// Create adds a new order. The item slice is copied so later changes by the
// caller cannot reach the stored snapshot.
func (r *MemoryOrderRepository) Create(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return apperror.New(apperror.Conflict, "order with ID %s already exists", order.ID)
	}
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	stored := *order
	stored.Items = append([]models.OrderItem(nil), order.Items...)
	r.orders[order.ID] = stored
	return nil
}

// GetByID returns an order by its ID.
func (r *MemoryOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, apperror.New(apperror.NotFound, "order with ID %s not found", id)
	}
	return &order, nil
}

func (r *MemoryOrderRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.Order, error) {
	orders := r.filter(func(o models.Order) bool { return o.UserID == userID })
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (r *MemoryOrderRepository) ListAll(ctx context.Context) ([]models.Order, error) {
	return r.filter(func(models.Order) bool { return true }), nil
}

func (r *MemoryOrderRepository) ListSince(ctx context.Context, since time.Time) ([]models.Order, error) {
	return r.filter(func(o models.Order) bool { return !o.CreatedAt.Before(since) }), nil
}

// filter returns the matching orders, newest first.
func (r *MemoryOrderRepository) filter(keep func(models.Order) bool) []models.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orderList := make([]models.Order, 0)
	for _, order := range r.orders {
		if keep(order) {
			orderList = append(orderList, order)
		}
	}
	sort.Slice(orderList, func(i, j int) bool {
		if !orderList[i].CreatedAt.Equal(orderList[j].CreatedAt) {
			return orderList[i].CreatedAt.After(orderList[j].CreatedAt)
		}
		return orderList[i].ID < orderList[j].ID
	})
	return orderList
}

// UpdateStatus updates the status of an order.
func (r *MemoryOrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return apperror.New(apperror.NotFound, "order with ID %s not found for status update", id)
	}
	order.Status = status
	order.UpdatedAt = time.Now().UTC()
	r.orders[id] = order
	return nil
}

func (r *MemoryOrderRepository) DeleteAll(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.orders))
	r.orders = make(map[string]models.Order)
	return n, nil
}

func (r *MemoryOrderRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.orders)), nil
}

func (r *MemoryOrderRepository) SumTotal(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var total int64
	for _, order := range r.orders {
		total += order.TotalAmount
	}
	return total, nil
}

func (r *MemoryOrderRepository) snapshot() map[string]models.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()
	copied := make(map[string]models.Order, len(r.orders))
	for k, v := range r.orders {
		copied[k] = v
	}
	return copied
}

func (r *MemoryOrderRepository) restore(orders map[string]models.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = orders
}

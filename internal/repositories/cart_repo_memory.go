package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront/internal/apperror"
	"storefront/internal/models"
)

type cartKey struct {
	userID    string
	productID string
}

// MemoryCartRepository is an in-memory implementation of CartRepository.
type MemoryCartRepository struct {
	items map[cartKey]models.CartItem
	mu    sync.RWMutex
}

// NewMemoryCartRepository creates a new instance of MemoryCartRepository.
func NewMemoryCartRepository() *MemoryCartRepository {
	return &MemoryCartRepository{
		items: make(map[cartKey]models.CartItem),
	}
}

func (r *MemoryCartRepository) ListByUser(ctx context.Context, userID string) ([]models.CartItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]models.CartItem, 0)
	for key, item := range r.items {
		if key.userID == userID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ProductID < items[j].ProductID
	})
	return items, nil
}

func (r *MemoryCartRepository) Get(ctx context.Context, userID, productID string) (*models.CartItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[cartKey{userID, productID}]
	if !ok {
		return nil, apperror.New(apperror.NotFound, "item %s not found in cart", productID)
	}
	return &item, nil
}

func (r *MemoryCartRepository) AddQuantity(ctx context.Context, item *models.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := cartKey{item.UserID, item.ProductID}
	now := time.Now().UTC()
	if existing, ok := r.items[key]; ok {
		existing.Quantity += item.Quantity
		existing.UpdatedAt = now
		r.items[key] = existing
		return nil
	}
	item.CreatedAt = now
	item.UpdatedAt = now
	r.items[key] = *item
	return nil
}

func (r *MemoryCartRepository) SetQuantity(ctx context.Context, userID, productID string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := cartKey{userID, productID}
	item, ok := r.items[key]
	if !ok {
		return apperror.New(apperror.NotFound, "item %s not found in cart", productID)
	}
	item.Quantity = quantity
	item.UpdatedAt = time.Now().UTC()
	r.items[key] = item
	return nil
}

func (r *MemoryCartRepository) Delete(ctx context.Context, userID, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, cartKey{userID, productID})
	return nil
}

func (r *MemoryCartRepository) ClearUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.items {
		if key.userID == userID {
			delete(r.items, key)
		}
	}
	return nil
}

func (r *MemoryCartRepository) snapshot() map[cartKey]models.CartItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	copied := make(map[cartKey]models.CartItem, len(r.items))
	for k, v := range r.items {
		copied[k] = v
	}
	return copied
}

func (r *MemoryCartRepository) restore(items map[cartKey]models.CartItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = items
}

package repositories

import (
	"context"
	"time"

	"storefront/internal/models"
)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	// ListByUser returns the newest orders first; limit <= 0 means no limit.
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
	ListSince(ctx context.Context, since time.Time) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error
	DeleteAll(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
	SumTotal(ctx context.Context) (int64, error)
}

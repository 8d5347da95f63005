package repositories

import (
	"context"

	"storefront/internal/models"
)

// CartRepository defines the interface for cart line data access.
type CartRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.CartItem, error)
	Get(ctx context.Context, userID, productID string) (*models.CartItem, error)
	// AddQuantity inserts the line, or adds item.Quantity to the existing one.
	AddQuantity(ctx context.Context, item *models.CartItem) error
	SetQuantity(ctx context.Context, userID, productID string, quantity int) error
	Delete(ctx context.Context, userID, productID string) error
	ClearUser(ctx context.Context, userID string) error
}

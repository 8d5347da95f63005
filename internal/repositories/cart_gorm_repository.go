package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/apperror"
	"storefront/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMCartRepository is a GORM implementation of CartRepository.
type GORMCartRepository struct {
	db *gorm.DB
}

// NewGORMCartRepository creates a new instance of GORMCartRepository.
func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{db: db}
}

func (r *GORMCartRepository) ListByUser(ctx context.Context, userID string) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, product_id ASC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list cart for user %s: %w", userID, err)
	}
	return items, nil
}

func (r *GORMCartRepository) Get(ctx context.Context, userID, productID string) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).First(&item, "user_id = ? AND product_id = ?", userID, productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(apperror.NotFound, "item %s not found in cart", productID)
		}
		return nil, fmt.Errorf("failed to get cart item %s: %w", productID, err)
	}
	return &item, nil
}

// AddQuantity upserts the line; the existing snapshot is kept and only the
// quantity grows.
func (r *GORMCartRepository) AddQuantity(ctx context.Context, item *models.CartItem) error {
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
			"updated_at": now,
		}),
	}).Create(item).Error
	if err != nil {
		return fmt.Errorf("failed to add product %s to cart: %w", item.ProductID, err)
	}
	return nil
}

func (r *GORMCartRepository) SetQuantity(ctx context.Context, userID, productID string, quantity int) error {
	res := r.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Updates(map[string]interface{}{"quantity": quantity, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("failed to update cart item %s: %w", productID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.New(apperror.NotFound, "item %s not found in cart", productID)
	}
	return nil
}

// Delete is idempotent.
func (r *GORMCartRepository) Delete(ctx context.Context, userID, productID string) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.CartItem{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove cart item %s: %w", productID, err)
	}
	return nil
}

func (r *GORMCartRepository) ClearUser(ctx context.Context, userID string) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart for user %s: %w", userID, err)
	}
	return nil
}

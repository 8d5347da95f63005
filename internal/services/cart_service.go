package services

import (
	"context"
	"strings"

	"storefront/internal/apperror"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/rs/zerolog"
)

// CartService manages the per-user cart.
type CartService struct {
	store repositories.Store
	log   zerolog.Logger
}

// NewCartService creates a new CartService.
func NewCartService(store repositories.Store, log zerolog.Logger) *CartService {
	return &CartService{store: store, log: log}
}

// Add puts quantity units of a product into the cart. The stock check here is
// only a hint for the shopper; checkout re-checks every line.
func (s *CartService) Add(ctx context.Context, userID, productID string, quantity int) (*models.Cart, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, apperror.New(apperror.InvalidInput, "valid product ID is required")
	}
	if quantity <= 0 {
		return nil, apperror.New(apperror.InvalidInput, "quantity must be a positive integer")
	}

	product, err := s.store.Products().GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.CountInStock <= 0 {
		return nil, apperror.New(apperror.OutOfStock, "%s is out of stock", product.Name)
	}

	item := &models.CartItem{
		UserID:    userID,
		ProductID: product.ID,
		Name:      product.Name,
		Image:     product.Image,
		Price:     product.Price,
		Quantity:  quantity,
	}
	if err := s.store.Carts().AddQuantity(ctx, item); err != nil {
		return nil, err
	}
	s.log.Debug().Str("user_id", userID).Str("product_id", productID).Int("quantity", quantity).Msg("added to cart")
	return s.List(ctx, userID)
}

// UpdateQuantity sets the exact quantity of a line; zero or less removes it.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*models.Cart, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, apperror.New(apperror.InvalidInput, "valid product ID is required")
	}
	if _, err := s.store.Carts().Get(ctx, userID, productID); err != nil {
		return nil, err
	}

	if quantity <= 0 {
		if err := s.store.Carts().Delete(ctx, userID, productID); err != nil {
			return nil, err
		}
	} else if err := s.store.Carts().SetQuantity(ctx, userID, productID, quantity); err != nil {
		return nil, err
	}
	return s.List(ctx, userID)
}

// Remove deletes a line. Removing a missing line is not an error.
func (s *CartService) Remove(ctx context.Context, userID, productID string) (*models.Cart, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, apperror.New(apperror.InvalidInput, "valid product ID is required")
	}
	if err := s.store.Carts().Delete(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.List(ctx, userID)
}

// List returns the user's cart with its totals.
func (s *CartService) List(ctx context.Context, userID string) (*models.Cart, error) {
	items, err := s.store.Carts().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return models.NewCart(userID, items), nil
}

package services

import (
	"context"
	"strings"

	"storefront/internal/apperror"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/rs/zerolog"
)

// ProductService handles business logic related to products.
type ProductService struct {
	repo        repositories.ProductRepository
	invalidator AnalyticsInvalidator
	log         zerolog.Logger
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, log zerolog.Logger) *ProductService {
	return &ProductService{
		repo:        repo,
		invalidator: noopInvalidator{},
		log:         log,
	}
}

// SetInvalidator registers the analytics cache to drop after catalog changes.
func (s *ProductService) SetInvalidator(inv AnalyticsInvalidator) {
	if inv != nil {
		s.invalidator = inv
	}
}

// ProductUpdate holds the fields an admin may change. Nil fields are left as is.
type ProductUpdate struct {
	Name         *string
	Description  *string
	Image        *string
	Category     *string
	Price        *int64
	CountInStock *int
}

// GetAllProducts retrieves all products.
func (s *ProductService) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.New(apperror.InvalidInput, "product ID is required")
	}
	return s.repo.GetByID(ctx, id)
}

// CreateProduct validates and stores a new product.
func (s *ProductService) CreateProduct(ctx context.Context, product *models.Product) error {
	product.Name = strings.TrimSpace(product.Name)
	if err := validateProduct(product); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return err
	}
	s.log.Info().Str("product_id", product.ID).Str("name", product.Name).Msg("product created")
	s.invalidator.Invalidate(ctx)
	return nil
}

// UpdateProduct applies an admin edit to an existing product.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, update ProductUpdate) (*models.Product, error) {
	product, err := s.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if update.Name != nil {
		product.Name = strings.TrimSpace(*update.Name)
	}
	if update.Description != nil {
		product.Description = *update.Description
	}
	if update.Image != nil {
		product.Image = *update.Image
	}
	if update.Category != nil {
		product.Category = *update.Category
	}
	if update.Price != nil {
		product.Price = *update.Price
	}
	if update.CountInStock != nil {
		product.CountInStock = *update.CountInStock
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	s.log.Info().Str("product_id", product.ID).Msg("product updated")
	return product, nil
}

// DeleteProduct deletes a product by its ID. Orders keep their own snapshot.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("product_id", id).Msg("product deleted")
	s.invalidator.Invalidate(ctx)
	return nil
}

// SeedProducts stores the given catalog when no product exists yet and
// reports how many were created.
func (s *ProductService) SeedProducts(ctx context.Context, products []models.Product) (int, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}
	for i := range products {
		if err := s.repo.Create(ctx, &products[i]); err != nil {
			return i, err
		}
	}
	return len(products), nil
}

func validateProduct(p *models.Product) error {
	fields := map[string]string{}
	if p.Name == "" {
		fields["name"] = "name is required"
	}
	if p.Price < 0 {
		fields["price"] = "price must not be negative"
	}
	if p.CountInStock < 0 {
		fields["countInStock"] = "countInStock must not be negative"
	}
	if len(fields) > 0 {
		return apperror.Validation(fields)
	}
	return nil
}

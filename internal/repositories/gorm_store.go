package repositories

import (
	"context"
	"fmt"

	"storefront/internal/models"

	"gorm.io/gorm"
)

// GORMStore is the database-backed Store.
type GORMStore struct {
	db       *gorm.DB
	products *GORMProductRepository
	carts    *GORMCartRepository
	orders   *GORMOrderRepository
	users    *GORMUserRepository
}

// NewGORMStore binds every repository to db.
func NewGORMStore(db *gorm.DB) *GORMStore {
	return &GORMStore{
		db:       db,
		products: NewGORMProductRepository(db),
		carts:    NewGORMCartRepository(db),
		orders:   NewGORMOrderRepository(db),
		users:    NewGORMUserRepository(db),
	}
}

func (s *GORMStore) Products() ProductRepository { return s.products }
func (s *GORMStore) Carts() CartRepository       { return s.carts }
func (s *GORMStore) Orders() OrderRepository     { return s.orders }
func (s *GORMStore) Users() UserRepository       { return s.users }

// WithinTransaction commits when fn returns nil and rolls back otherwise,
// including when fn panics.
func (s *GORMStore) WithinTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGORMStore(tx))
	})
}

// AutoMigrate creates or updates the schema for every model.
func (s *GORMStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&models.User{}, &models.Product{}, &models.CartItem{}, &models.Order{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

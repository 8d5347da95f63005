package repositories

import (
	"context"
	"fmt"
)

// Store groups the repositories that share one database handle.
type Store interface {
	Products() ProductRepository
	Carts() CartRepository
	Orders() OrderRepository
	Users() UserRepository
	// WithinTransaction runs fn against a Store bound to a single transaction.
	// Returning an error from fn rolls back every write fn made.
	WithinTransaction(ctx context.Context, fn func(tx Store) error) error
}

// StockShortage is returned by DecrementStock when stock cannot cover the request.
type StockShortage struct {
	ProductID   string
	ProductName string
	Available   int
	Requested   int
}

func (e *StockShortage) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (requested: %d, available: %d)", e.ProductID, e.Requested, e.Available)
}

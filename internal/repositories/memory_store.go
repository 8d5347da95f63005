package repositories

import (
	"context"
	"sync"
	"time"

	"storefront/internal/models"
)

// MemoryStore keeps every table in process memory. A transaction holds the
// store exclusively and rolls back by restoring a snapshot; calls made
// outside a transaction wait until it has finished.
type MemoryStore struct {
	gate     sync.RWMutex
	products *MemoryProductRepository
	carts    *MemoryCartRepository
	orders   *MemoryOrderRepository
	users    *MemoryUserRepository
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: NewMemoryProductRepository(),
		carts:    NewMemoryCartRepository(),
		orders:   NewMemoryOrderRepository(),
		users:    NewMemoryUserRepository(),
	}
}

func (s *MemoryStore) Products() ProductRepository { return gatedProducts{s.products, &s.gate} }
func (s *MemoryStore) Carts() CartRepository { return gatedCarts{s.carts, &s.gate} }
func (s *MemoryStore) Orders() OrderRepository { return gatedOrders{s.orders, &s.gate} }
func (s *MemoryStore) Users() UserRepository { return gatedUsers{s.users, &s.gate} }

type memorySnapshot struct {
	products map[string]models.Product
	carts    map[cartKey]models.CartItem
	orders   map[string]models.Order
	users    map[string]models.User
}

func (s *MemoryStore) WithinTransaction(ctx context.Context, fn func(tx Store) error) error {
	s.gate.Lock()
	defer s.gate.Unlock()

	snap := memorySnapshot{
		products: s.products.snapshot(),
		carts:    s.carts.snapshot(),
		orders:   s.orders.snapshot(),
		users:    s.users.snapshot(),
	}
	committed := false
	defer func() {
		if !committed {
			s.products.restore(snap.products)
			s.carts.restore(snap.carts)
			s.orders.restore(snap.orders)
			s.users.restore(snap.users)
		}
	}()

	if err := fn(memoryTx{s}); err != nil {
		return err
	}
	committed = true
	return nil
}

// memoryTx is the view handed to a transaction. The gate is already held,
// so it reaches the repositories directly. Nested transactions join the
// outer one.
type memoryTx struct {
	s *MemoryStore
}

func (t memoryTx) Products() ProductRepository { return t.s.products }
func (t memoryTx) Carts() CartRepository { return t.s.carts }
func (t memoryTx) Orders() OrderRepository { return t.s.orders }
func (t memoryTx) Users() UserRepository { return t.s.users }

func (t memoryTx) WithinTransaction(ctx context.Context, fn func(tx Store) error) error {
	return fn(t)
}

type gatedProducts struct {
	r    *MemoryProductRepository
	gate *sync.RWMutex
}

func (g gatedProducts) GetAll(ctx context.Context) ([]models.Product, error) {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.GetAll(ctx)
}

func (g gatedProducts) GetByID(ctx context.Context, id string) (*models.Product, error) {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.GetByID(ctx, id)
}

func (g gatedProducts) Create(ctx context.Context, product *models.Product) error {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.Create(ctx, product)
}

func (g gatedProducts) Update(ctx context.Context, product *models.Product) error {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.Update(ctx, product)
}

func (g gatedProducts) Delete(ctx context.Context, id string) error {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.Delete(ctx, id)
}

func (g gatedProducts) Count(ctx context.Context) (int64, error) {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.Count(ctx)
}

func (g gatedProducts) DecrementStock(ctx context.Context, id string, quantity int) error {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.DecrementStock(ctx, id, quantity)
}

type gatedCarts struct {
	r    *MemoryCartRepository
	gate *sync.RWMutex
}

func (g gatedCarts) ListByUser(ctx context.Context, userID string) ([]models.CartItem, error) {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.ListByUser(ctx, userID)
}

func (g gatedCarts) Get(ctx context.Context, userID, productID string) (*models.CartItem, error) {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.Get(ctx, userID, productID)
}

func (g gatedCarts) AddQuantity(ctx context.Context, item *models.CartItem) error {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.AddQuantity(ctx, item)
}

func (g gatedCarts) SetQuantity(ctx context.Context, userID, productID string, quantity int) error {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.SetQuantity(ctx, userID, productID, quantity)
}

func (g gatedCarts) Delete(ctx context.Context, userID, productID string) error {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.Delete(ctx, userID, productID)
}

func (g gatedCarts) ClearUser(ctx context.Context, userID string) error {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.ClearUser(ctx, userID)
}

type gatedOrders struct {
	r    *MemoryOrderRepository
	gate *sync.RWMutex
}

func (g gatedOrders) Create(ctx context.Context, order *models.Order) error {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.Create(ctx, order)
}

func (g gatedOrders) GetByID(ctx context.Context, id string) (*models.Order, error) {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.GetByID(ctx, id)
}

func (g gatedOrders) ListByUser(ctx context.Context, userID string, limit int) ([]models.Order, error) {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.ListByUser(ctx, userID, limit)
}

func (g gatedOrders) ListAll(ctx context.Context) ([]models.Order, error) {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.ListAll(ctx)
}

func (g gatedOrders) ListSince(ctx context.Context, since time.Time) ([]models.Order, error) {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.ListSince(ctx, since)
}

func (g gatedOrders) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.UpdateStatus(ctx, id, status)
}

func (g gatedOrders) DeleteAll(ctx context.Context) (int64, error) {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.DeleteAll(ctx)
}

func (g gatedOrders) Count(ctx context.Context) (int64, error) {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.Count(ctx)
}

func (g gatedOrders) SumTotal(ctx context.Context) (int64, error) {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.SumTotal(ctx)
}

type gatedUsers struct {
	r    *MemoryUserRepository
	gate *sync.RWMutex
}

func (g gatedUsers) Create(ctx context.Context, user *models.User) error {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.Create(ctx, user)
}

func (g gatedUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.GetByID(ctx, id)
}

func (g gatedUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.GetByEmail(ctx, email)
}

func (g gatedUsers) GetByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.GetByVerificationToken(ctx, token)
}

func (g gatedUsers) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.GetByGoogleID(ctx, googleID)
}

func (g gatedUsers) Update(ctx context.Context, user *models.User) error {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.Update(ctx, user)
}

func (g gatedUsers) Delete(ctx context.Context, id string) error {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.Delete(ctx, id)
}

func (g gatedUsers) CountCustomers(ctx context.Context) (int64, error) {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.CountCustomers(ctx)
}

func (g gatedUsers) ListByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	g.gate.RLock()
	defer g.gate.RUnlock()
	return g.r.ListByIDs(ctx, ids)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"storefront/internal/apperror"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/pkg/rabbitmq"

	"github.com/rs/zerolog"
)

const (
	// maxOrderIDAttempts bounds retries after an order ID collision.
	maxOrderIDAttempts = 3
	// recentOrdersLimit caps a shopper's order history.
	recentOrdersLimit = 10

	deliveryDateLayout = "Monday, 2 January 2006"
	orderDateLayout    = "2 Jan 2006"
)

// OrderIDGenerator produces human-readable order IDs. Uniqueness is enforced
// by storage, not by the generator.
type OrderIDGenerator interface {
	GenerateOrderID() string
}

// DeliveryEstimator picks the estimated delivery time for an order placed at now.
type DeliveryEstimator interface {
	EstimateDelivery(now time.Time) time.Time
}

// RandomOrderIDs generates IDs such as STK482913.
type RandomOrderIDs struct{}

func (RandomOrderIDs) GenerateOrderID() string {
	letter := rune('A' + rand.Intn(26))
	return fmt.Sprintf("ST%c%06d", letter, 100000+rand.Intn(900000))
}

// RandomDelivery estimates delivery 1 to 10 days out.
type RandomDelivery struct{}

func (RandomDelivery) EstimateDelivery(now time.Time) time.Time {
	return now.AddDate(0, 0, 1+rand.Intn(10))
}

// Receipt is returned by a successful purchase.
type Receipt struct {
	OrderID      string `json:"orderId"`
	DeliveryDate string `json:"deliveryDate"`
	Items        int    `json:"items"`
	Quantity     int    `json:"quantity"`
	TotalAmount  int64  `json:"totalAmount"`
}

// OrderSummary is an order as shown in a shopper's history.
type OrderSummary struct {
	models.Order
	OrderDate string `json:"orderDate"`
}

// OrderService turns carts into orders and manages them afterwards.
type OrderService struct {
	store       repositories.Store
	publisher   EventPublisher
	invalidator AnalyticsInvalidator
	ids         OrderIDGenerator
	delivery    DeliveryEstimator
	now         func() time.Time
	loc         *time.Location
	log         zerolog.Logger
}

// OrderOption customizes an OrderService.
type OrderOption func(*OrderService)

func WithOrderIDGenerator(g OrderIDGenerator) OrderOption {
	return func(s *OrderService) { s.ids = g }
}

func WithDeliveryEstimator(e DeliveryEstimator) OrderOption {
	return func(s *OrderService) { s.delivery = e }
}

func WithClock(now func() time.Time) OrderOption {
	return func(s *OrderService) { s.now = now }
}

// WithLocation sets the time zone used for display dates.
func WithLocation(loc *time.Location) OrderOption {
	return func(s *OrderService) { s.loc = loc }
}

func WithInvalidator(inv AnalyticsInvalidator) OrderOption {
	return func(s *OrderService) { s.invalidator = inv }
}

// NewOrderService creates a new OrderService. publisher may be nil, in which
// case no events are sent.
func NewOrderService(store repositories.Store, publisher EventPublisher, log zerolog.Logger, opts ...OrderOption) *OrderService {
	s := &OrderService{
		store:       store,
		publisher:   publisher,
		invalidator: noopInvalidator{},
		ids:         RandomOrderIDs{},
		delivery:    RandomDelivery{},
		now:         time.Now,
		loc:         time.UTC,
		log:         log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Purchase checks out the user's cart. Stock is decremented and the order is
// stored in one transaction; the cart is emptied once that has committed.
func (s *OrderService) Purchase(ctx context.Context, userID string) (*Receipt, error) {
	if userID == "" {
		return nil, apperror.New(apperror.Unauthorized, "user identity is required")
	}

	var (
		order *models.Order
		err   error
	)
	for attempt := 1; attempt <= maxOrderIDAttempts; attempt++ {
		order, err = s.placeOrder(ctx, userID)
		if err == nil || !apperror.Is(err, apperror.Conflict) {
			break
		}
		s.log.Warn().Err(err).Int("attempt", attempt).Str("user_id", userID).Msg("order ID collision, retrying")
	}
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{
		OrderID:      order.ID,
		DeliveryDate: order.DeliveryDate,
		Items:        len(order.Items),
		Quantity:     order.Quantity,
		TotalAmount:  order.TotalAmount,
	}
	s.log.Info().
		Str("order_id", order.ID).
		Str("user_id", userID).
		Int("items", receipt.Items).
		Int64("total_amount", order.TotalAmount).
		Msg("order placed")

	s.invalidator.Invalidate(ctx)
	s.publish(OrderEvent{
		Type:        EventOrderCreated,
		OrderID:     order.ID,
		UserID:      userID,
		Status:      string(order.Status),
		Items:       receipt.Items,
		Quantity:    order.Quantity,
		TotalAmount: order.TotalAmount,
		OccurredAt:  order.CreatedAt,
	})

	if err := s.store.Carts().ClearUser(ctx, userID); err != nil {
		s.log.Error().Err(err).Str("order_id", order.ID).Str("user_id", userID).Msg("order placed but cart not cleared")
		return receipt, apperror.Wrap(err, apperror.Internal, "order %s was placed but the cart could not be cleared", order.ID)
	}
	return receipt, nil
}

func (s *OrderService) placeOrder(ctx context.Context, userID string) (*models.Order, error) {
	var order *models.Order
	err := s.store.WithinTransaction(ctx, func(tx repositories.Store) error {
		items, err := tx.Carts().ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return apperror.New(apperror.EmptyCart, "Cart is empty")
		}

		// A fixed product order keeps concurrent checkouts from locking rows
		// in opposite orders.
		lines := append([]models.CartItem(nil), items...)
		sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

		var quantity int
		var total int64
		for _, line := range lines {
			if err := tx.Products().DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
				return stockError(line, err)
			}
			quantity += line.Quantity
			total += line.Subtotal()
		}

		now := s.now().UTC()
		o := &models.Order{
			ID:           s.ids.GenerateOrderID(),
			UserID:       userID,
			Items:        models.SnapshotCart(items),
			Quantity:     quantity,
			TotalAmount:  total,
			Status:       models.OrderStatusCompleted,
			DeliveryDate: s.delivery.EstimateDelivery(now).In(s.loc).Format(deliveryDateLayout),
			CreatedAt:    now,
		}
		if err := tx.Orders().Create(ctx, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	return order, err
}

func stockError(line models.CartItem, err error) error {
	var shortage *repositories.StockShortage
	if errors.As(err, &shortage) {
		return apperror.Wrap(err, apperror.InsufficientStock,
			"Insufficient stock for %s. Available: %d, Requested: %d", line.Name, shortage.Available, shortage.Requested)
	}
	if apperror.Is(err, apperror.NotFound) {
		return apperror.Wrap(err, apperror.NotFound, "%s is no longer available", line.Name)
	}
	return err
}

// ListOrders returns the user's most recent orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]OrderSummary, error) {
	orders, err := s.store.Orders().ListByUser(ctx, userID, recentOrdersLimit)
	if err != nil {
		return nil, err
	}
	summaries := make([]OrderSummary, 0, len(orders))
	for _, o := range orders {
		summaries = append(summaries, OrderSummary{
			Order:     o,
			OrderDate: o.CreatedAt.In(s.loc).Format(orderDateLayout),
		})
	}
	return summaries, nil
}

// ListAllOrders returns every order, newest first.
func (s *OrderService) ListAllOrders(ctx context.Context) ([]models.Order, error) {
	orders, err := s.store.Orders().ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// UpdateOrderStatus moves an order to a new status.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	newStatus, ok := models.ParseOrderStatus(status)
	if !ok {
		return apperror.New(apperror.InvalidInput, "invalid order status: %s", status)
	}
	if err := s.store.Orders().UpdateStatus(ctx, orderID, newStatus); err != nil {
		return err
	}

	s.log.Info().Str("order_id", orderID).Str("status", status).Msg("order status updated")
	s.invalidator.Invalidate(ctx)
	s.publish(OrderEvent{
		Type:       EventOrderStatusUpdated,
		OrderID:    orderID,
		Status:     status,
		OccurredAt: s.now().UTC(),
	})
	return nil
}

// ClearOrders deletes every order and reports how many were removed.
func (s *OrderService) ClearOrders(ctx context.Context) (int64, error) {
	deleted, err := s.store.Orders().DeleteAll(ctx)
	if err != nil {
		return 0, err
	}

	s.log.Warn().Int64("deleted", deleted).Msg("all orders cleared")
	s.invalidator.Invalidate(ctx)
	s.publish(OrderEvent{Type: EventOrdersCleared, Deleted: deleted, OccurredAt: s.now().UTC()})
	return deleted, nil
}

// publish is best effort; a broker outage never fails an order operation.
func (s *OrderService) publish(event OrderEvent) {
	if s.publisher == nil {
		s.log.Debug().Str("type", event.Type).Msg("event publisher not configured, skipping")
		return
	}
	if err := s.publisher.PublishJSON(rabbitmq.OrderEventsQueue, event); err != nil {
		s.log.Warn().Err(err).Str("type", event.Type).Str("order_id", event.OrderID).Msg("failed to publish order event")
	}
}

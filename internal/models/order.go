package models

import "time"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ParseOrderStatus maps a string onto a known status.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch status := OrderStatus(s); status {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusShipped, OrderStatusCancelled:
		return status, true
	default:
		return "", false
	}
}

// OrderItem is a single purchased line, frozen at checkout.
type OrderItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Image     string `json:"image,omitempty"`
	Price     int64  `json:"price"` // Price at the time of adding to cart
	Quantity  int    `json:"quantity"`
}

// Revenue is price times quantity for the line.
func (i OrderItem) Revenue() int64 {
	return i.Price * int64(i.Quantity)
}

// Order represents a completed purchase. Items is stored as a JSON text column.
type Order struct {
	ID           string      `json:"orderId" gorm:"primaryKey;type:varchar(20)"`
	UserID       string      `json:"userId" gorm:"type:varchar(36);index;not null"`
	Items        []OrderItem `json:"items" gorm:"serializer:json;type:text;not null"`
	Quantity     int         `json:"quantity" gorm:"not null"`
	TotalAmount  int64       `json:"totalAmount" gorm:"not null"`
	Status       OrderStatus `json:"status" gorm:"type:varchar(20);not null;default:'completed'"`
	DeliveryDate string      `json:"deliveryDate" gorm:"type:varchar(100)"`
	CreatedAt    time.Time   `json:"createdAt" gorm:"index"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// SnapshotCart freezes cart lines into order items.
func SnapshotCart(items []CartItem) []OrderItem {
	snapshot := make([]OrderItem, 0, len(items))
	for _, item := range items {
		snapshot = append(snapshot, OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}
	return snapshot
}

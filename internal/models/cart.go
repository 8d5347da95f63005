package models

import "time"

// CartItem is one line of a user's cart. Name, Image and Price are copied
// from the product when the line is first created.
type CartItem struct {
	UserID    string    `json:"userId" gorm:"primaryKey;type:varchar(36)"`
	ProductID string    `json:"productId" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"name" gorm:"type:varchar(200)"`
	Image     string    `json:"image" gorm:"type:varchar(500)"`
	Price     int64     `json:"price" gorm:"not null"`
	Quantity  int       `json:"quantity" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Subtotal is the line price times quantity.
func (i CartItem) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}

// Cart is the view of all cart lines of one user.
type Cart struct {
	UserID        string     `json:"userId"`
	Items         []CartItem `json:"items"`
	TotalQuantity int        `json:"totalQuantity"`
	TotalAmount   int64      `json:"totalAmount"`
}

// NewCart builds the cart view and its totals.
func NewCart(userID string, items []CartItem) *Cart {
	if items == nil {
		items = []CartItem{}
	}
	cart := &Cart{UserID: userID, Items: items}
	for _, item := range items {
		cart.TotalQuantity += item.Quantity
		cart.TotalAmount += item.Subtotal()
	}
	return cart
}

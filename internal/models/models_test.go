package models_test

import (
	"testing"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestNewCartTotals(t *testing.T) {
	cart := models.NewCart("user-1", []models.CartItem{
		{ProductID: "a", Price: 100, Quantity: 3},
		{ProductID: "b", Price: 50, Quantity: 2},
	})

	assert.Equal(t, 5, cart.TotalQuantity)
	assert.Equal(t, int64(400), cart.TotalAmount)
}

func TestNewCartEmptyHasNonNilItems(t *testing.T) {
	cart := models.NewCart("user-1", nil)

	assert.NotNil(t, cart.Items)
	assert.Zero(t, cart.TotalAmount)
}

func TestParseOrderStatus(t *testing.T) {
	status, ok := models.ParseOrderStatus("shipped")
	assert.True(t, ok)
	assert.Equal(t, models.OrderStatusShipped, status)

	_, ok = models.ParseOrderStatus("delivered")
	assert.False(t, ok)
}

func TestSnapshotCartCopiesLines(t *testing.T) {
	items := []models.CartItem{{UserID: "u", ProductID: "a", Name: "Laptop", Image: "l.png", Price: 1200, Quantity: 2}}

	snapshot := models.SnapshotCart(items)

	assert.Equal(t, []models.OrderItem{{ProductID: "a", Name: "Laptop", Image: "l.png", Price: 1200, Quantity: 2}}, snapshot)
	assert.Equal(t, int64(2400), snapshot[0].Revenue())
}

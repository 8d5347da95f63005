package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for checkout and orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: NewValidator(),
	}
}

// UpdateStatusRequest is the body of an order status change.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending completed shipped cancelled"`
}

// RegisterRoutes registers the shopper's order routes on the cart group.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/purchase", h.HandlePurchase)
	router.Get("/orders", h.HandleGetOrders)
}

// RegisterAdminRoutes registers order management routes on the admin group.
func (h *OrderHandler) RegisterAdminRoutes(router fiber.Router) {
	router.Get("/orders", h.HandleGetAllOrders)
	router.Put("/orders/:id/status", h.HandleUpdateOrderStatus)
	router.Delete("/clear-data", h.HandleClearOrders)
}

// HandlePurchase checks out the current user's cart.
func (h *OrderHandler) HandlePurchase(c *fiber.Ctx) error {
	receipt, err := h.service.Purchase(c.UserContext(), middleware.UserID(c))
	if receipt != nil && err != nil {
		// The order exists; only emptying the cart failed.
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Purchase successful",
			"order":   receipt,
			"warning": "Your cart could not be cleared",
		})
	}
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Purchase successful",
		"order":   receipt,
	})
}

// HandleGetOrders lists the most recent orders of the current user.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListOrders(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(orders)
}

// HandleGetAllOrders lists every order, newest first.
func (h *OrderHandler) HandleGetAllOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListAllOrders(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(orders)
}

// HandleUpdateOrderStatus moves an order to a new status.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	var req UpdateStatusRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}

	orderID := c.Params("id")
	if err := h.service.UpdateOrderStatus(c.UserContext(), orderID, req.Status); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Order status updated",
		"orderId": orderID,
		"status":  req.Status,
	})
}

// HandleClearOrders deletes all orders.
func (h *OrderHandler) HandleClearOrders(c *fiber.Ctx) error {
	deleted, err := h.service.ClearOrders(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "All orders cleared",
		"deleted": deleted,
	})
}

package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CartHandler handles HTTP requests for the shopper's cart.
type CartHandler struct {
	service  *services.CartService
	validate *validator.Validate
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService) *CartHandler {
	return &CartHandler{
		service:  service,
		validate: NewValidator(),
	}
}

// AddToCartRequest is the body of an add request.
type AddToCartRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

// UpdateCartRequest is the body of an update request.
type UpdateCartRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity"`
}

// RegisterRoutes registers the cart routes. router must already require
// an authenticated user.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/", h.HandleGetCart)
	router.Post("/add", h.HandleAdd)
	router.Put("/update", h.HandleUpdate)
	router.Delete("/remove/:productId", h.HandleRemove)
}

// HandleGetCart lists the cart of the current user.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	cart, err := h.service.List(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(cart)
}

// HandleAdd adds a product to the cart. A missing quantity means one.
func (h *CartHandler) HandleAdd(c *fiber.Ctx) error {
	req := AddToCartRequest{Quantity: 1}
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}

	cart, err := h.service.Add(c.UserContext(), middleware.UserID(c), req.ProductID, req.Quantity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Item added to cart",
		"cart":    cart,
	})
}

// HandleUpdate sets the quantity of a cart line. Zero or less removes it.
func (h *CartHandler) HandleUpdate(c *fiber.Ctx) error {
	var req UpdateCartRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}

	cart, err := h.service.UpdateQuantity(c.UserContext(), middleware.UserID(c), req.ProductID, req.Quantity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Cart updated",
		"cart":    cart,
	})
}

// HandleRemove deletes a cart line. Removing a missing line succeeds.
func (h *CartHandler) HandleRemove(c *fiber.Ctx) error {
	cart, err := h.service.Remove(c.UserContext(), middleware.UserID(c), c.Params("productId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Item removed from cart",
		"cart":    cart,
	})
}

package handlers

import (
	"storefront/internal/export"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AdminHandler serves the back office: admin login, reports and the catalog.
type AdminHandler struct {
	authService    *services.AuthService
	productService *services.ProductService
	analytics      services.Analytics
	session        SessionConfig
	validate       *validator.Validate
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(authService *services.AuthService, productService *services.ProductService, analytics services.Analytics, session SessionConfig) *AdminHandler {
	return &AdminHandler{
		authService:    authService,
		productService: productService,
		analytics:      analytics,
		session:        session,
		validate:       NewValidator(),
	}
}

// ProductRequest is the body of a product creation.
type ProductRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	Description  string `json:"description"`
	Image        string `json:"image" validate:"max=500"`
	Category     string `json:"category" validate:"max=100"`
	Price        int64  `json:"price" validate:"gte=0"`
	CountInStock int    `json:"countInStock" validate:"gte=0"`
}

// ProductUpdateRequest is the body of a product edit. Absent fields are kept.
type ProductUpdateRequest struct {
	Name         *string `json:"name" validate:"omitempty,max=200"`
	Description  *string `json:"description"`
	Image        *string `json:"image" validate:"omitempty,max=500"`
	Category     *string `json:"category" validate:"omitempty,max=100"`
	Price        *int64  `json:"price" validate:"omitempty,gte=0"`
	CountInStock *int    `json:"countInStock" validate:"omitempty,gte=0"`
}

// RegisterPublicRoutes registers the admin login. It must be registered
// before the guarded group so the guard does not shadow it.
func (h *AdminHandler) RegisterPublicRoutes(router fiber.Router) {
	router.Post("/login", h.HandleLogin)
}

// RegisterRoutes registers the admin routes on a group that already
// requires an admin.
func (h *AdminHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/sales", h.HandleSales)
	router.Get("/sales/export", h.HandleExportSales)
	router.Get("/analytics", h.HandleAnalytics)
	router.Get("/dashboard", h.HandleDashboard)

	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Post("/", h.HandleCreateProduct)
	productRoutes.Put("/:id", h.HandleUpdateProduct)
	productRoutes.Delete("/:id", h.HandleDeleteProduct)
}

// HandleLogin issues a token to an admin account.
func (h *AdminHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}

	token, user, err := h.authService.AdminLogin(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.session.setCookie(c, token)
	return c.JSON(fiber.Map{
		"message": "Admin login successful",
		"token":   token,
		"user":    user,
	})
}

// HandleSales reports sales per product for ?period=week|month|year.
func (h *AdminHandler) HandleSales(c *fiber.Ctx) error {
	report, err := h.analytics.SalesByPeriod(c.UserContext(), c.Query("period"))
	if err != nil {
		return err
	}
	return c.JSON(report)
}

// HandleExportSales downloads the sales report as a workbook.
func (h *AdminHandler) HandleExportSales(c *fiber.Ctx) error {
	report, err := h.analytics.SalesByPeriod(c.UserContext(), c.Query("period"))
	if err != nil {
		return err
	}

	c.Attachment(export.SalesFilename(report.Period))
	c.Set(fiber.HeaderContentType, export.ContentType)
	return export.WriteSalesReport(c, report)
}

// HandleAnalytics returns revenue by day, top customers and order totals.
func (h *AdminHandler) HandleAnalytics(c *fiber.Ctx) error {
	overview, err := h.analytics.Overview(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(overview)
}

// HandleDashboard returns the whole-table counters.
func (h *AdminHandler) HandleDashboard(c *fiber.Ctx) error {
	summary, err := h.analytics.DashboardSummary(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(summary)
}

// HandleGetProducts lists the catalog.
func (h *AdminHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.productService.GetAllProducts(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(products)
}

// HandleCreateProduct adds a product to the catalog.
func (h *AdminHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var req ProductRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}

	product := &models.Product{
		Name:         req.Name,
		Description:  req.Description,
		Image:        req.Image,
		Category:     req.Category,
		Price:        req.Price,
		CountInStock: req.CountInStock,
	}
	if err := h.productService.CreateProduct(c.UserContext(), product); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct edits a product.
func (h *AdminHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var req ProductUpdateRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}

	product, err := h.productService.UpdateProduct(c.UserContext(), c.Params("id"), services.ProductUpdate{
		Name:         req.Name,
		Description:  req.Description,
		Image:        req.Image,
		Category:     req.Category,
		Price:        req.Price,
		CountInStock: req.CountInStock,
	})
	if err != nil {
		return err
	}
	return c.JSON(product)
}

// HandleDeleteProduct removes a product from the catalog.
func (h *AdminHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.productService.DeleteProduct(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Product deleted successfully",
		"id":      id,
	})
}

package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	session     SessionConfig
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, session SessionConfig) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		session:     session,
		validate:    NewValidator(),
	}
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Username string  `json:"username" validate:"required,max=100"`
	Email    string  `json:"email" validate:"required,storefront_email"`
	Password string  `json:"password" validate:"required,min=6"`
	Address  Address `json:"address"`
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// OAuthCompleteRequest carries the profile of a finished OAuth sign-in.
type OAuthCompleteRequest struct {
	GoogleID string  `json:"googleId" validate:"required"`
	Email    string  `json:"email" validate:"required,storefront_email"`
	Username string  `json:"username"`
	Address  Address `json:"address"`
}

// ProfileRequest holds the profile fields to change.
type ProfileRequest struct {
	Username *string `json:"username" validate:"omitempty,max=100"`
	Address  Address `json:"address"`
}

// RegisterRoutes registers the authentication routes. requireUser guards
// the profile routes and requireAPIKey guards OAuth completion.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, requireUser, requireAPIKey fiber.Handler) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Get("/verify/:token", h.HandleVerifyEmail)
	authRoutes.Post("/oauth/complete", requireAPIKey, h.HandleOAuthComplete)
	authRoutes.Post("/logout", h.HandleLogout)
	authRoutes.Get("/me", requireUser, h.HandleMe)
	authRoutes.Put("/profile", requireUser, h.HandleUpdateProfile)
	authRoutes.Delete("/account", requireUser, h.HandleDeleteAccount)
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	address, err := req.Address.Text()
	if err != nil {
		return err
	}

	user, err := h.authService.RegisterUser(c.UserContext(), services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Address:  address,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully. Please check your email to verify your account.",
		"user":    user,
	})
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}

	token, user, err := h.authService.LoginUser(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.session.setCookie(c, token)
	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

// HandleVerifyEmail confirms the address behind a verification link.
func (h *AuthHandler) HandleVerifyEmail(c *fiber.Ctx) error {
	user, err := h.authService.VerifyEmail(c.UserContext(), c.Params("token"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Email verified successfully",
		"user":    user,
	})
}

// HandleOAuthComplete links or creates the account of an OAuth sign-in.
func (h *AuthHandler) HandleOAuthComplete(c *fiber.Ctx) error {
	var req OAuthCompleteRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	address, err := req.Address.Text()
	if err != nil {
		return err
	}

	token, user, err := h.authService.LinkOAuthAccount(c.UserContext(), services.OAuthProfile{
		GoogleID: req.GoogleID,
		Email:    req.Email,
		Username: req.Username,
		Address:  address,
	})
	if err != nil {
		return err
	}

	h.session.setCookie(c, token)
	return c.JSON(fiber.Map{
		"message": "Registration completed",
		"token":   token,
		"user":    user,
	})
}

// HandleLogout clears the session cookie.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	h.session.clearCookie(c)
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// HandleMe returns the profile of the current user.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	user, err := h.authService.GetUser(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// HandleUpdateProfile changes the username or address of the current user.
func (h *AuthHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	var req ProfileRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}

	update := services.ProfileUpdate{Username: req.Username}
	if req.Address.Set() {
		address, err := req.Address.Text()
		if err != nil {
			return err
		}
		update.Address = &address
	}

	user, err := h.authService.UpdateProfile(c.UserContext(), middleware.UserID(c), update)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Profile updated",
		"user":    user,
	})
}

// HandleDeleteAccount removes the current user. Their orders are kept.
func (h *AuthHandler) HandleDeleteAccount(c *fiber.Ctx) error {
	if err := h.authService.DeleteAccount(c.UserContext(), middleware.UserID(c)); err != nil {
		return err
	}
	h.session.clearCookie(c)
	return c.JSON(fiber.Map{"message": "Account deleted"})
}

package middleware

import (
	"context"
	"crypto/subtle"
	"strings"

	"storefront/internal/apperror"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
)

// Keys of the values AuthRequired stores in the request locals.
const (
	LocalUserID   = "user_id"
	LocalUsername = "username"
	LocalIsAdmin  = "is_admin"
)

// TokenCookie is the cookie an access token may also be sent in.
const TokenCookie = "access_token"

// TokenValidator checks an access token.
type TokenValidator interface {
	ValidateToken(token string) (*services.Claims, error)
}

// UserLookup loads the account a token was issued for.
type UserLookup interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

// AdminChecker looks up whether a user currently is an admin.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// AuthRequired is a Fiber middleware to check for a valid JWT token.
// The token is read from the Authorization header or the access_token cookie.
// Tokens of deleted accounts are rejected even before they expire.
func AuthRequired(tokens TokenValidator, users UserLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := bearerToken(c)
		if err != nil {
			return err
		}

		claims, err := tokens.ValidateToken(tokenString)
		if err != nil {
			return err
		}

		if _, err := users.GetUser(c.UserContext(), claims.UserID); err != nil {
			if apperror.Is(err, apperror.NotFound) {
				return apperror.New(apperror.Unauthorized, "Account no longer exists")
			}
			return err
		}

		// Store claims in Fiber context for subsequent handlers
		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalUsername, claims.Username)
		c.Locals(LocalIsAdmin, claims.IsAdmin)

		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		if cookie := c.Cookies(TokenCookie); cookie != "" {
			return cookie, nil
		}
		return "", apperror.New(apperror.Unauthorized, "Authorization header is required")
	}

	// Expected format: "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if !(len(parts) == 2 && parts[0] == "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperror.New(apperror.Unauthorized, "Authorization header format must be 'Bearer <token>'")
	}
	return strings.TrimSpace(parts[1]), nil
}

// AdminRequired rejects users that are not admins. The flag is re-read from
// the store so a revoked admin loses access before their token expires.
// It must run after AuthRequired.
func AdminRequired(admins AdminChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := UserID(c)
		if userID == "" {
			return apperror.New(apperror.Unauthorized, "Authentication required")
		}
		ok, err := admins.IsAdmin(c.UserContext(), userID)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.New(apperror.Forbidden, "Admin access required")
		}
		return c.Next()
	}
}

// APIKeyRequired checks the X-API-Key header against key. An empty key
// disables the protected routes.
func APIKeyRequired(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if key == "" {
			return apperror.New(apperror.Forbidden, "This endpoint is disabled")
		}
		given := c.Get("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(given), []byte(key)) != 1 {
			return apperror.New(apperror.Unauthorized, "Invalid or missing API key")
		}
		return c.Next()
	}
}

// UserID returns the authenticated user id, or "" outside AuthRequired.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}

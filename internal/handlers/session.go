package handlers

import (
	"bytes"
	"encoding/json"
	"time"

	"storefront/internal/apperror"
	"storefront/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// SessionConfig controls the access token cookie set on login.
type SessionConfig struct {
	Secure bool
	TTL    time.Duration
}

func (s SessionConfig) setCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.TTL),
		HTTPOnly: true,
		Secure:   s.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s SessionConfig) clearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   s.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// Address is a shipping address sent either as a plain string or as a JSON
// object. Objects are stored as their compact JSON text.
type Address json.RawMessage

// UnmarshalJSON keeps the raw value; Text interprets it.
func (a *Address) UnmarshalJSON(data []byte) error {
	*a = append((*a)[:0], data...)
	return nil
}

// Text returns the address as stored on the user.
func (a Address) Text() (string, error) {
	raw := bytes.TrimSpace(a)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", apperror.Wrap(err, apperror.InvalidInput, "Invalid address")
		}
		return s, nil
	case '{':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return "", apperror.Wrap(err, apperror.InvalidInput, "Invalid address")
		}
		return buf.String(), nil
	default:
		return "", apperror.New(apperror.InvalidInput, "Address must be a string or an object")
	}
}

// Set reports whether the field was present in the body.
func (a Address) Set() bool {
	return len(a) > 0
}

package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"storefront/internal/apperror"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test_jwt_secret"

// MockVerificationSender is a mock implementation of services.VerificationSender
type MockVerificationSender struct {
	mock.Mock
}

func (m *MockVerificationSender) SendVerification(ctx context.Context, event services.UserEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

func newAuthService(store repositories.Store, sender services.VerificationSender, requireVerification bool) *services.AuthService {
	return services.NewAuthService(store, sender, services.AuthConfig{
		JWTSecret:                testJWTSecret,
		TokenTTL:                 time.Hour,
		BaseURL:                  "http://shop.local/",
		RequireEmailVerification: requireVerification,
	}, zerolog.Nop())
}

func TestAuthService_RegisterUser(t *testing.T) {
	store := repositories.NewMemoryStore()
	sender := new(MockVerificationSender)
	authService := newAuthService(store, sender, true)
	ctx := context.Background()

	// Test successful registration
	sender.On("SendVerification", mock.MatchedBy(func(e services.UserEvent) bool {
		return e.Type == services.EventUserRegistered &&
			e.Email == "alice@example.com" &&
			strings.HasPrefix(e.VerificationURL, "http://shop.local/api/v1/auth/verify/")
	})).Return(nil).Once()

	user, err := authService.RegisterUser(ctx, services.RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "password123",
		Address:  "12 Baker Street",
	})
	require.NoError(t, err)
	assert.False(t, user.EmailVerified)
	assert.Len(t, user.VerificationToken, 64)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password123")))
	sender.AssertExpectations(t)

	// Test email already registered
	_, err = authService.RegisterUser(ctx, services.RegisterInput{Username: "alice2", Email: "alice@example.com", Password: "password123"})
	assert.True(t, apperror.Is(err, apperror.Conflict))

	// Test invalid email and short password
	_, err = authService.RegisterUser(ctx, services.RegisterInput{Username: "bob", Email: "test@example.com", Password: "password123"})
	assert.True(t, apperror.Is(err, apperror.InvalidInput))
	_, err = authService.RegisterUser(ctx, services.RegisterInput{Username: "bob", Email: "bobby@example.com", Password: "123"})
	assert.True(t, apperror.Is(err, apperror.InvalidInput))
}

func TestAuthService_RegisterUserSurvivesSenderFailure(t *testing.T) {
	store := repositories.NewMemoryStore()
	sender := new(MockVerificationSender)
	sender.On("SendVerification", mock.Anything).Return(errors.New("broker down")).Once()
	authService := newAuthService(store, sender, false)

	user, err := authService.RegisterUser(context.Background(), services.RegisterInput{Username: "carol", Email: "carol@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
}

func TestAuthService_VerifyAndLogin(t *testing.T) {
	store := repositories.NewMemoryStore()
	authService := newAuthService(store, nil, true)
	ctx := context.Background()

	user, err := authService.RegisterUser(ctx, services.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	// Test unverified login refused
	_, _, err = authService.LoginUser(ctx, "alice@example.com", "password123")
	assert.True(t, apperror.Is(err, apperror.Forbidden))

	// Test bad token
	_, err = authService.VerifyEmail(ctx, "nope")
	assert.True(t, apperror.Is(err, apperror.InvalidInput))

	verified, err := authService.VerifyEmail(ctx, user.VerificationToken)
	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)

	// Test token is single use
	_, err = authService.VerifyEmail(ctx, user.VerificationToken)
	assert.Error(t, err)

	token, loggedIn, err := authService.LoginUser(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)

	// Validate the token structure
	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	assert.Equal(t, user.ID, claims["user_id"])
	assert.Equal(t, "alice", claims["username"])
	assert.Equal(t, false, claims["is_admin"])

	// Test invalid credentials (wrong password)
	_, _, err = authService.LoginUser(ctx, "alice@example.com", "wrongpassword")
	assert.True(t, apperror.Is(err, apperror.Unauthorized))
	assert.Contains(t, err.Error(), "Invalid email or password")

	// Test invalid credentials (user not found)
	_, _, err = authService.LoginUser(ctx, "nobody@example.com", "password123")
	assert.True(t, apperror.Is(err, apperror.Unauthorized))
}

func TestAuthService_AdminLogin(t *testing.T) {
	store := repositories.NewMemoryStore()
	authService := newAuthService(store, nil, false)
	ctx := context.Background()

	admin, err := authService.EnsureAdmin(ctx, "owner@example.com", "supersecret", "")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)
	assert.Equal(t, "admin", admin.Username)

	_, err = authService.RegisterUser(ctx, services.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	token, _, err := authService.AdminLogin(ctx, "owner@example.com", "supersecret")
	require.NoError(t, err)
	claims, err := authService.ValidateToken(token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)

	_, _, err = authService.AdminLogin(ctx, "alice@example.com", "password123")
	assert.True(t, apperror.Is(err, apperror.Unauthorized))

	isAdmin, err := authService.IsAdmin(ctx, admin.ID)
	require.NoError(t, err)
	assert.True(t, isAdmin)
	isAdmin, err = authService.IsAdmin(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, isAdmin)

	// Test EnsureAdmin promotes an existing account
	promoted, err := authService.EnsureAdmin(ctx, "alice@example.com", "newpassword", "")
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin)
	assert.Equal(t, "alice", promoted.Username)
}

func TestAuthService_LinkOAuthAccount(t *testing.T) {
	store := repositories.NewMemoryStore()
	authService := newAuthService(store, nil, true)
	ctx := context.Background()

	existing, err := authService.RegisterUser(ctx, services.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	// Test linking by email verifies the account
	_, linked, err := authService.LinkOAuthAccount(ctx, services.OAuthProfile{GoogleID: "g-1", Email: "alice@example.com", Address: "Pune"})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, linked.ID)
	assert.True(t, linked.EmailVerified)
	assert.Equal(t, "Pune", linked.Address)

	// Test linking again by provider ID
	_, again, err := authService.LinkOAuthAccount(ctx, services.OAuthProfile{GoogleID: "g-1", Email: "other@example.com"})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, again.ID)

	// Test new password-less account
	token, created, err := authService.LinkOAuthAccount(ctx, services.OAuthProfile{GoogleID: "g-2", Email: "dave@example.com", Username: "dave"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.False(t, created.HasPassword())
	assert.True(t, created.EmailVerified)

	// Test password login is refused for it
	_, _, err = authService.LoginUser(ctx, "dave@example.com", "")
	assert.True(t, apperror.Is(err, apperror.Unauthorized))

	// Test missing username for a new account
	_, _, err = authService.LinkOAuthAccount(ctx, services.OAuthProfile{GoogleID: "g-3", Email: "erin@example.com"})
	assert.True(t, apperror.Is(err, apperror.InvalidInput))
}

func TestAuthService_ProfileAndDeletion(t *testing.T) {
	store := repositories.NewMemoryStore()
	authService := newAuthService(store, nil, false)
	ctx := context.Background()

	user, err := authService.RegisterUser(ctx, services.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	name := "Alice B"
	address := `{"city":"Pune","zip":"411001"}`
	updated, err := authService.UpdateProfile(ctx, user.ID, services.ProfileUpdate{Username: &name, Address: &address})
	require.NoError(t, err)
	assert.Equal(t, "Alice B", updated.Username)
	assert.Equal(t, address, updated.Address)

	blank := "  "
	_, err = authService.UpdateProfile(ctx, user.ID, services.ProfileUpdate{Username: &blank})
	assert.True(t, apperror.Is(err, apperror.InvalidInput))

	require.NoError(t, store.Carts().AddQuantity(ctx, &models.CartItem{UserID: user.ID, ProductID: "p1", Price: 100, Quantity: 1}))
	require.NoError(t, authService.DeleteAccount(ctx, user.ID))

	_, err = authService.GetUser(ctx, user.ID)
	assert.True(t, apperror.Is(err, apperror.NotFound))
	items, err := store.Carts().ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	assert.True(t, apperror.Is(authService.DeleteAccount(ctx, user.ID), apperror.NotFound))
}

func TestAuthService_AccountChangesInvalidateAnalytics(t *testing.T) {
	store := repositories.NewMemoryStore()
	invalidator := new(MockInvalidator)
	authService := newAuthService(store, nil, false)
	authService.SetInvalidator(invalidator)
	authService.SetInvalidator(nil)
	ctx := context.Background()
	invalidator.On("Invalidate").Return()

	user, err := authService.RegisterUser(ctx, services.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)
	invalidator.AssertNumberOfCalls(t, "Invalidate", 1)

	// Rejected registrations leave the cache alone
	_, err = authService.RegisterUser(ctx, services.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "password123"})
	assert.True(t, apperror.Is(err, apperror.Conflict))
	invalidator.AssertNumberOfCalls(t, "Invalidate", 1)

	// Linking an existing account does not change the customer count
	_, _, err = authService.LinkOAuthAccount(ctx, services.OAuthProfile{GoogleID: "g-1", Email: "alice@example.com"})
	require.NoError(t, err)
	invalidator.AssertNumberOfCalls(t, "Invalidate", 1)

	_, _, err = authService.LinkOAuthAccount(ctx, services.OAuthProfile{GoogleID: "g-2", Email: "dave@example.com", Username: "dave"})
	require.NoError(t, err)
	invalidator.AssertNumberOfCalls(t, "Invalidate", 2)

	require.NoError(t, authService.DeleteAccount(ctx, user.ID))
	invalidator.AssertNumberOfCalls(t, "Invalidate", 3)

	assert.Error(t, authService.DeleteAccount(ctx, user.ID))
	invalidator.AssertNumberOfCalls(t, "Invalidate", 3)
}

func TestAuthService_ValidateToken(t *testing.T) {
	authService := newAuthService(repositories.NewMemoryStore(), nil, false)

	// Generate a valid token
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  "user-123",
		"username": "testuser",
		"exp":      jwt.TimeFunc().Add(time.Hour).Unix(), // Expires in 1 hour
	})
	validTokenString, _ := token.SignedString([]byte(testJWTSecret))

	// Test valid token
	claims, err := authService.ValidateToken(validTokenString)
	assert.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "testuser", claims.Username)
	assert.False(t, claims.IsAdmin)

	// Test malformed token
	_, err = authService.ValidateToken("invalid.token.string")
	assert.True(t, apperror.Is(err, apperror.Unauthorized))

	// Test wrong secret
	forged, _ := token.SignedString([]byte("other_secret"))
	_, err = authService.ValidateToken(forged)
	assert.True(t, apperror.Is(err, apperror.Unauthorized))

	// Test expired token
	expiredToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  "user-123",
		"username": "testuser",
		"exp":      jwt.TimeFunc().Add(-time.Hour).Unix(), // Expired 1 hour ago
	})
	expiredTokenString, _ := expiredToken.SignedString([]byte(testJWTSecret))
	_, err = authService.ValidateToken(expiredTokenString)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid or expired token")
}

func TestValidateEmail(t *testing.T) {
	cases := map[string]string{
		"alice@example.com":  "",
		"not-an-email":       "Invalid email format",
		"ab@example.com":     "Email username must be at least 3 characters",
		"alice@a.io":         "Invalid domain",
		"alice@mail.x.com":   "Invalid domain format",
		"test@example.com":   "Please use a valid email address",
		"bob@fake.com":       "Please use a valid email address",
		"mytemp@example.com": "Please use a valid email address",
	}
	for email, want := range cases {
		assert.Equal(t, want, services.ValidateEmail(email), email)
	}
}

package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/apperror"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// VerificationSender delivers the email verification link of a new account.
type VerificationSender interface {
	SendVerification(ctx context.Context, event UserEvent) error
}

// AuthConfig holds the settings of the AuthService.
type AuthConfig struct {
	JWTSecret                string
	TokenTTL                 time.Duration
	BaseURL                  string
	RequireEmailVerification bool
}

// Claims is the identity carried by an access token.
type Claims struct {
	UserID   string
	Username string
	IsAdmin  bool
}

// RegisterInput is a password registration request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Address  string
}

// OAuthProfile is the account data handed over after an OAuth sign-in.
type OAuthProfile struct {
	GoogleID string
	Email    string
	Username string
	Address  string
}

// ProfileUpdate holds the profile fields a user may change. Nil fields are left as is.
type ProfileUpdate struct {
	Username *string
	Address  *string
}

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	store      repositories.Store
	sender     VerificationSender
	jwtSecret  []byte
	tokenDurat time.Duration // Duration for which JWT is valid
	baseURL    string
	requireVer bool

	// invalidator drops the cached customer counts when accounts come or go.
	invalidator AnalyticsInvalidator
	log         zerolog.Logger
}

// NewAuthService creates a new AuthService. sender may be nil, in which case
// verification links are only logged.
func NewAuthService(store repositories.Store, sender VerificationSender, cfg AuthConfig, log zerolog.Logger) *AuthService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		store:       store,
		sender:      sender,
		jwtSecret:   []byte(cfg.JWTSecret),
		tokenDurat:  ttl,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		requireVer:  cfg.RequireEmailVerification,
		invalidator: noopInvalidator{},
		log:         log,
	}
}

// SetInvalidator registers the analytics cache to drop after account changes.
func (s *AuthService) SetInvalidator(inv AnalyticsInvalidator) {
	if inv != nil {
		s.invalidator = inv
	}
}

// RegisterUser creates an unverified account and sends its verification link.
func (s *AuthService) RegisterUser(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if msg := ValidateEmail(in.Email); msg != "" {
		return nil, apperror.New(apperror.InvalidInput, "%s", msg)
	}
	if in.Username == "" {
		return nil, apperror.New(apperror.InvalidInput, "username is required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperror.New(apperror.InvalidInput, "password must be at least %d characters", minPasswordLength)
	}
	if _, err := s.store.Users().GetByEmail(ctx, in.Email); err == nil {
		return nil, apperror.New(apperror.Conflict, "Email already registered")
	} else if !apperror.Is(err, apperror.NotFound) {
		return nil, err
	}

	// Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	token, err := newVerificationToken()
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:          in.Username,
		Email:             in.Email,
		PasswordHash:      string(hashedPassword),
		Address:           in.Address,
		VerificationToken: token,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	s.invalidator.Invalidate(ctx)

	s.sendVerification(ctx, user)
	return user, nil
}

func (s *AuthService) sendVerification(ctx context.Context, user *models.User) {
	event := UserEvent{
		Type:            EventUserRegistered,
		UserID:          user.ID,
		Username:        user.Username,
		Email:           user.Email,
		VerificationURL: s.VerificationURL(user.VerificationToken),
		OccurredAt:      time.Now().UTC(),
	}
	if s.sender == nil {
		s.log.Info().Str("user_id", user.ID).Str("url", event.VerificationURL).Msg("verification sender not configured")
		return
	}
	// Registration succeeds even when the mail cannot be queued; the link
	// stays valid.
	if err := s.sender.SendVerification(ctx, event); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to send verification email")
	}
}

// VerificationURL is the link that verifies the account owning token.
func (s *AuthService) VerificationURL(token string) string {
	return s.baseURL + "/api/v1/auth/verify/" + token
}

// VerifyEmail marks the account owning token as verified.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	user, err := s.store.Users().GetByVerificationToken(ctx, token)
	if err != nil {
		if apperror.Is(err, apperror.NotFound) {
			return nil, apperror.New(apperror.InvalidInput, "invalid or expired verification token")
		}
		return nil, err
	}
	user.EmailVerified = true
	user.VerificationToken = ""
	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", user.ID).Msg("email verified")
	return user, nil
}

// LoginUser authenticates a user by email and returns a JWT token if successful.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return "", nil, err
	}
	if s.requireVer && !user.EmailVerified {
		return "", nil, apperror.New(apperror.Forbidden, "Please verify your email before logging in. Check your inbox.")
	}
	token, err := s.IssueToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// AdminLogin is LoginUser restricted to administrators.
func (s *AuthService) AdminLogin(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return "", nil, err
	}
	if !user.IsAdmin {
		s.log.Warn().Str("user_id", user.ID).Msg("admin login attempt by non-admin")
		return "", nil, apperror.New(apperror.Unauthorized, "Invalid admin credentials")
	}
	token, err := s.IssueToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *AuthService) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	invalid := apperror.New(apperror.Unauthorized, "Invalid email or password")
	user, err := s.store.Users().GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if apperror.Is(err, apperror.NotFound) {
			return nil, invalid
		}
		return nil, err
	}
	if !user.HasPassword() {
		return nil, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, invalid
	}
	return user, nil
}

// LinkOAuthAccount attaches an OAuth identity to the matching account, by
// provider ID first and email second, or creates a verified account without
// a password.
func (s *AuthService) LinkOAuthAccount(ctx context.Context, profile OAuthProfile) (string, *models.User, error) {
	profile.Email = strings.TrimSpace(profile.Email)
	if profile.GoogleID == "" {
		return "", nil, apperror.New(apperror.InvalidInput, "provider account ID is required")
	}
	if msg := ValidateEmail(profile.Email); msg != "" {
		return "", nil, apperror.New(apperror.InvalidInput, "%s", msg)
	}

	user, err := s.store.Users().GetByGoogleID(ctx, profile.GoogleID)
	if err != nil && !apperror.Is(err, apperror.NotFound) {
		return "", nil, err
	}
	if user == nil {
		user, err = s.store.Users().GetByEmail(ctx, profile.Email)
		if err != nil && !apperror.Is(err, apperror.NotFound) {
			return "", nil, err
		}
	}

	if user != nil {
		user.GoogleID = profile.GoogleID
		user.EmailVerified = true
		if user.Address == "" {
			user.Address = profile.Address
		}
		if err := s.store.Users().Update(ctx, user); err != nil {
			return "", nil, err
		}
		s.log.Info().Str("user_id", user.ID).Msg("oauth account linked")
	} else {
		username := strings.TrimSpace(profile.Username)
		if username == "" {
			return "", nil, apperror.New(apperror.InvalidInput, "username is required")
		}
		user = &models.User{
			Username:      username,
			Email:         profile.Email,
			Address:       profile.Address,
			GoogleID:      profile.GoogleID,
			EmailVerified: true,
		}
		if err := s.store.Users().Create(ctx, user); err != nil {
			return "", nil, err
		}
		s.log.Info().Str("user_id", user.ID).Msg("oauth account created")
		s.invalidator.Invalidate(ctx)
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// GetUser returns the account with the given ID.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.store.Users().GetByID(ctx, userID)
}

// UpdateProfile changes the username and/or address of an account.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*models.User, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if update.Username != nil {
		username := strings.TrimSpace(*update.Username)
		if username == "" {
			return nil, apperror.New(apperror.InvalidInput, "username must not be empty")
		}
		user.Username = username
	}
	if update.Address != nil {
		user.Address = *update.Address
	}
	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteAccount removes the user and their cart. Past orders are kept for
// the sales history.
func (s *AuthService) DeleteAccount(ctx context.Context, userID string) error {
	err := s.store.WithinTransaction(ctx, func(tx repositories.Store) error {
		if err := tx.Carts().ClearUser(ctx, userID); err != nil {
			return err
		}
		return tx.Users().Delete(ctx, userID)
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("user_id", userID).Msg("account deleted")
	s.invalidator.Invalidate(ctx)
	return nil
}

// EnsureAdmin creates the administrator account, or promotes and resets the
// password of an existing account with that email.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password, username string) (*models.User, error) {
	if email == "" || password == "" {
		return nil, apperror.New(apperror.InvalidInput, "admin email and password are required")
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.store.Users().GetByEmail(ctx, email)
	switch {
	case err == nil:
		user.IsAdmin = true
		user.EmailVerified = true
		user.PasswordHash = string(hashedPassword)
		if err := s.store.Users().Update(ctx, user); err != nil {
			return nil, err
		}
	case apperror.Is(err, apperror.NotFound):
		if username == "" {
			username = "admin"
		}
		user = &models.User{
			Username:      username,
			Email:         email,
			PasswordHash:  string(hashedPassword),
			IsAdmin:       true,
			EmailVerified: true,
		}
		if err := s.store.Users().Create(ctx, user); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	s.log.Info().Str("user_id", user.ID).Str("email", email).Msg("admin account ready")
	s.invalidator.Invalidate(ctx)
	return user, nil
}

// IsAdmin re-reads the account so revoked rights apply before the token expires.
func (s *AuthService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		if apperror.Is(err, apperror.NotFound) {
			return false, nil
		}
		return false, err
	}
	return user.IsAdmin, nil
}

// IssueToken signs an access token for user.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"is_admin": user.IsAdmin,
		"exp":      now.Add(s.tokenDurat).Unix(), // Token expiration time
		"iat":      now.Unix(),                   // Issued at time
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the alg is what we expect:
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, apperror.Wrap(err, apperror.Unauthorized, "Invalid or expired token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, apperror.New(apperror.Unauthorized, "Invalid or expired token")
	}
	userID, _ := mapClaims["user_id"].(string)
	if userID == "" {
		return nil, apperror.Wrap(errors.New("missing user_id claim"), apperror.Unauthorized, "Invalid or expired token")
	}
	username, _ := mapClaims["username"].(string)
	isAdmin, _ := mapClaims["is_admin"].(bool)
	return &Claims{UserID: userID, Username: username, IsAdmin: isAdmin}, nil
}

func newVerificationToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate verification token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

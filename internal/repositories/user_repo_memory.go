package repositories

import (
	"context"
	"sync"
	"time"

	"storefront/internal/apperror"
	"storefront/internal/models"

	"github.com/google/uuid"
)

// MemoryUserRepository is an in-memory implementation of UserRepository.
type MemoryUserRepository struct {
	users map[string]models.User
	mu    sync.RWMutex
}

// NewMemoryUserRepository creates a new instance of MemoryUserRepository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[string]models.User),
	}
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return apperror.New(apperror.Conflict, "email '%s' already registered", user.Email)
		}
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) find(column, value string, match func(models.User) bool) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if match(user) {
			found := user
			return &found, nil
		}
	}
	return nil, apperror.New(apperror.NotFound, "user with %s %s not found", column, value)
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.find("id", id, func(u models.User) bool { return u.ID == id })
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find("email", email, func(u models.User) bool { return u.Email == email })
}

func (r *MemoryUserRepository) GetByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperror.New(apperror.NotFound, "verification token not found")
	}
	return r.find("verification_token", token, func(u models.User) bool { return u.VerificationToken == token })
}

func (r *MemoryUserRepository) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	if googleID == "" {
		return nil, apperror.New(apperror.NotFound, "google account not linked")
	}
	return r.find("google_id", googleID, func(u models.User) bool { return u.GoogleID == googleID })
}

func (r *MemoryUserRepository) Update(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[user.ID]
	if !ok {
		return apperror.New(apperror.NotFound, "user with ID %s not found for update", user.ID)
	}
	for id, other := range r.users {
		if id != user.ID && other.Email == user.Email {
			return apperror.New(apperror.Conflict, "email '%s' already registered", user.Email)
		}
	}
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = time.Now().UTC()
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return apperror.New(apperror.NotFound, "user with ID %s not found for deletion", id)
	}
	delete(r.users, id)
	return nil
}

func (r *MemoryUserRepository) CountCustomers(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int64
	for _, user := range r.users {
		if !user.IsAdmin {
			count++
		}
	}
	return count, nil
}

func (r *MemoryUserRepository) ListByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if user, ok := r.users[id]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}

func (r *MemoryUserRepository) snapshot() map[string]models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	copied := make(map[string]models.User, len(r.users))
	for k, v := range r.users {
		copied[k] = v
	}
	return copied
}

func (r *MemoryUserRepository) restore(users map[string]models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = users
}

package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"todo-server/internal/domain"
	"todo-server/internal/ident"
	"todo-server/internal/repository"
)

// timingEqualizationHash is a valid bcrypt hash compared against when the
// username does not exist, so that lookups for unknown and known users take
// comparable time.
const timingEqualizationHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Users is the in-memory user registry shared by all sessions of the
// in-memory backend.
type Users struct {
	seq *ident.Sequence

	mu     sync.RWMutex
	byName map[string]*domain.User
}

func NewUsers(seq *ident.Sequence) *Users {
	return &Users{
		seq:    seq,
		byName: make(map[string]*domain.User),
	}
}

// Seed registers a user from a plaintext password, hashing it first.
func (u *Users) Seed(username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}
	_, err = u.CreateUser(context.Background(), &domain.User{
		Username:     username,
		PasswordHash: string(hash),
	})
	return err
}

func (u *Users) CreateUser(_ context.Context, user *domain.User) (int64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if _, exists := u.byName[user.Username]; exists {
		return 0, repository.ErrDuplicateUser
	}

	now := time.Now().UTC()
	user.ID = u.seq.Next()
	user.CreatedAt = now
	user.UpdatedAt = now

	cp := *user
	u.byName[user.Username] = &cp
	return user.ID, nil
}

func (u *Users) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	user, ok := u.byName[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (u *Users) validate(username, password string) bool {
	u.mu.RLock()
	user, ok := u.byName[username]
	var hash string
	if ok {
		hash = user.PasswordHash
	}
	u.mu.RUnlock()

	if !ok {
		// burn a comparison so unknown usernames are not cheaper to probe
		_ = bcrypt.CompareHashAndPassword([]byte(timingEqualizationHash), []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

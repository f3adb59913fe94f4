package repository

import (
	"context"

	"todo-server/internal/domain"
)

// UserStore defines persistence operations for User entities.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) (int64, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

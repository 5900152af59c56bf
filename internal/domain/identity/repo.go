package identity

import (
	"context"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByRole(ctx context.Context, role string, limit, offset int) ([]*User, int, error)
	ExistsWithRole(ctx context.Context, id uuid.UUID, role string) (bool, error)
}

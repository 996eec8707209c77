package user

import (
	"context"

	"github.com/xraph/enroll/id"
)

// Store is the persistence interface for users.
type Store interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, userID id.UserID) (*User, error)
	GetByExternalID(ctx context.Context, externalID string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, userID id.UserID) error
}

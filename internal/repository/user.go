package repository

import (
	"context"
	"time"

	"social-server/internal/domain"
)

// UserUpdate carries a partial user update; nil fields are left untouched.
type UserUpdate struct {
	Username       *string
	Email          *string
	PasswordHash   *string
	Desc           *string
	City           *string
	From           *string
	Relationship   *int
	ProfilePicture *string
	CoverPicture   *string
}

// UserListOptions controls pagination, sorting and field filtering for List.
type UserListOptions struct {
	Page        int64
	Limit       int64
	SortBy      string
	Order       string
	FilterField string
	FilterValue string
}

// UserRepository defines persistence operations for User documents.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (string, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Update(ctx context.Context, id string, upd UserUpdate) (*domain.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts UserListOptions) ([]domain.User, error)

	// SetFollow mutates both sides of the follow relation inside a single
	// transaction: follow=true links actor->target, follow=false unlinks.
	SetFollow(ctx context.Context, actorID, targetID string, follow bool) error

	// Login bookkeeping for the lockout policy.
	RecordLoginFailure(ctx context.Context, id string, attempts int, lockoutUntil *time.Time) error
	ResetLoginFailures(ctx context.Context, id string) error

	// SetPicture stores the object location of an uploaded profile or cover
	// picture. Field must be "profilePicture" or "coverPicture".
	SetPicture(ctx context.Context, id, field, location string) error
}

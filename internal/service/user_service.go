package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-server/internal/auth"
	"social-server/internal/domain"
	"social-server/internal/repository"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password; the
	// caller must not be able to tell which.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken indicates the registration email is already in use.
	ErrEmailTaken = errors.New("email already exists")
	// ErrUsernameTaken indicates the registration username is already in use.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrInvalidID indicates a malformed identifier, rejected before storage is touched.
	ErrInvalidID = errors.New("invalid id format")
	// ErrNotFound indicates the target entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the caller lacks rights on the target resource.
	ErrForbidden = errors.New("not authorized")
	// ErrSelfFollow rejects following oneself.
	ErrSelfFollow = errors.New("you can't follow yourself")
	// ErrAlreadyFollowing rejects a duplicate follow.
	ErrAlreadyFollowing = errors.New("you already follow this user")
	// ErrNotFollowing rejects an unfollow without a prior follow.
	ErrNotFollowing = errors.New("you are not following this user")
	// ErrValidation covers missing or malformed request fields.
	ErrValidation = errors.New("validation failed")
)

const (
	maxFailedLogins = 5
	lockoutDuration = 15 * time.Minute
)

// UserUpdateInput is the set of profile fields a caller may change.
type UserUpdateInput struct {
	Username     *string
	Email        *string
	Password     *string
	Desc         *string
	City         *string
	From         *string
	Relationship *int
}

// UserService covers registration, authentication and the follow graph.
type UserService interface {
	Register(ctx context.Context, username, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context, opts repository.UserListOptions) ([]domain.User, error)
	Update(ctx context.Context, callerID, targetID string, input UserUpdateInput) (*domain.User, error)
	Delete(ctx context.Context, callerID, targetID string) error
	Follow(ctx context.Context, actorID, targetID string) error
	Unfollow(ctx context.Context, actorID, targetID string) error
	SetPicture(ctx context.Context, callerID, targetID, field, location string) error
}

type userService struct {
	users  repository.UserRepository
	hasher *auth.PasswordHasher
}

func NewUserService(users repository.UserRepository, hasher *auth.PasswordHasher) UserService {
	return &userService{users: users, hasher: hasher}
}

func (s *userService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: username, email, and password are required", ErrValidation)
	}
	if len(username) < 3 || len(username) > 50 {
		return nil, fmt.Errorf("%w: username must be between 3 and 50 characters", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email format", ErrValidation)
	}

	// Two distinct uniqueness checks with distinct messages, as the API
	// contract promises.
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		// The unique index may still fire under a concurrent registration.
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// A locked account answers exactly like a bad password.
	if user.LockoutUntil != nil && user.LockoutUntil.After(time.Now()) {
		return nil, ErrInvalidCredentials
	}

	if err := s.hasher.Verify(password, user.PasswordHash); err != nil {
		attempts := user.FailedAttempts + 1
		var until *time.Time
		if attempts >= maxFailedLogins {
			t := time.Now().Add(lockoutDuration)
			until = &t
		}
		if recErr := s.users.RecordLoginFailure(ctx, user.ID.Hex(), attempts, until); recErr != nil {
			return nil, recErr
		}
		return nil, ErrInvalidCredentials
	}

	if user.FailedAttempts > 0 || user.LockoutUntil != nil {
		if err := s.users.ResetLoginFailures(ctx, user.ID.Hex()); err != nil {
			return nil, err
		}
	}
	return user, nil
}

func (s *userService) Get(ctx context.Context, id string) (*domain.User, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) List(ctx context.Context, opts repository.UserListOptions) ([]domain.User, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = 10
	}
	users, err := s.users.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrNotFound
	}
	return users, nil
}

func (s *userService) Update(ctx context.Context, callerID, targetID string, input UserUpdateInput) (*domain.User, error) {
	if err := validateID(targetID); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, callerID, targetID); err != nil {
		return nil, err
	}

	upd := repository.UserUpdate{
		Username:     input.Username,
		Email:        input.Email,
		Desc:         input.Desc,
		City:         input.City,
		From:         input.From,
		Relationship: input.Relationship,
	}
	// A new password is hashed before it is persisted, same as registration.
	if input.Password != nil {
		hash, err := s.hasher.Hash(*input.Password)
		if err != nil {
			return nil, err
		}
		upd.PasswordHash = &hash
	}

	user, err := s.users.Update(ctx, targetID, upd)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) Delete(ctx context.Context, callerID, targetID string) error {
	if err := validateID(targetID); err != nil {
		return err
	}
	if err := s.authorize(ctx, callerID, targetID); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *userService) Follow(ctx context.Context, actorID, targetID string) error {
	if err := validateID(actorID); err != nil {
		return err
	}
	if err := validateID(targetID); err != nil {
		return err
	}
	if actorID == targetID {
		return ErrSelfFollow
	}

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if contains(actor.Followings, targetID) {
		return ErrAlreadyFollowing
	}

	return s.users.SetFollow(ctx, actorID, targetID, true)
}

func (s *userService) Unfollow(ctx context.Context, actorID, targetID string) error {
	if err := validateID(actorID); err != nil {
		return err
	}
	if err := validateID(targetID); err != nil {
		return err
	}

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if !contains(actor.Followings, targetID) {
		return ErrNotFollowing
	}

	return s.users.SetFollow(ctx, actorID, targetID, false)
}

func (s *userService) SetPicture(ctx context.Context, callerID, targetID, field, location string) error {
	if err := validateID(targetID); err != nil {
		return err
	}
	if err := s.authorize(ctx, callerID, targetID); err != nil {
		return err
	}
	if err := s.users.SetPicture(ctx, targetID, field, location); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// authorize allows the operation when the caller is the target or an admin.
func (s *userService) authorize(ctx context.Context, callerID, targetID string) error {
	if callerID == targetID {
		return nil
	}
	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return ErrForbidden
	}
	if !caller.IsAdmin {
		return ErrForbidden
	}
	return nil
}

func validateID(id string) error {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return ErrInvalidID
	}
	return nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-server/internal/auth"
	"social-server/internal/domain"
	"social-server/internal/repository"
)

// Minimum bcrypt cost keeps the hashing in these tests fast.
const bcryptTestCost = 4

func newUserService(t *testing.T) (UserService, *fakeUserRepo) {
	t.Helper()
	repo := newFakeUserRepo()
	return NewUserService(repo, auth.NewPasswordHasher(bcryptTestCost)), repo
}

func seedUser(repo *fakeUserRepo, username, email string) *domain.User {
	return repo.add(&domain.User{
		ID:       primitive.NewObjectID(),
		Username: username,
		Email:    email,
	})
}

func TestRegisterHashesPasswordAndNormalizesEmail(t *testing.T) {
	svc, repo := newUserService(t)

	user, err := svc.Register(context.Background(), "alice", "  Alice@Example.COM ", "secret123")
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "secret123", user.PasswordHash)

	stored := repo.users[user.ID.Hex()]
	require.NotNil(t, stored)
	assert.NotEmpty(t, stored.PasswordHash)
}

func TestRegisterRejectsDuplicatesWithDistinctErrors(t *testing.T) {
	svc, _ := newUserService(t)

	_, err := svc.Register(context.Background(), "alice", "alice@example.com", "secret123")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "other", "alice@example.com", "secret123")
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.Register(context.Background(), "alice", "fresh@example.com", "secret123")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegisterValidatesInput(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "a@b.com", "pw")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Register(ctx, "ab", "a@b.com", "pw")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Register(ctx, "alice", "not-an-email", "pw")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLoginUniformErrorForUnknownEmailAndBadPassword(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "alice@example.com", "secret123")
	require.NoError(t, err)

	_, unknownErr := svc.Login(ctx, "nobody@example.com", "secret123")
	_, wrongErr := svc.Login(ctx, "alice@example.com", "wrong")

	assert.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	assert.ErrorIs(t, wrongErr, ErrInvalidCredentials)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	svc, repo := newUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "alice@example.com", "secret123")
	require.NoError(t, err)

	for i := 0; i < maxFailedLogins; i++ {
		_, err := svc.Login(ctx, "alice@example.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	stored := repo.users[user.ID.Hex()]
	require.NotNil(t, stored.LockoutUntil)
	assert.True(t, stored.LockoutUntil.After(time.Now()))

	// The right password is refused while the lockout holds, with the same
	// message as a bad one.
	_, err = svc.Login(ctx, "alice@example.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Once the window passes, login succeeds and the counter resets.
	past := time.Now().Add(-time.Minute)
	stored.LockoutUntil = &past

	logged, err := svc.Login(ctx, "alice@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
	assert.Zero(t, repo.users[user.ID.Hex()].FailedAttempts)
	assert.Nil(t, repo.users[user.ID.Hex()].LockoutUntil)
}

func TestLoginSuccessResetsFailureCounter(t *testing.T) {
	svc, repo := newUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "alice@example.com", "secret123")
	require.NoError(t, err)

	_, _ = svc.Login(ctx, "alice@example.com", "wrong")
	_, _ = svc.Login(ctx, "alice@example.com", "wrong")
	assert.Equal(t, 2, repo.users[user.ID.Hex()].FailedAttempts)

	_, err = svc.Login(ctx, "alice@example.com", "secret123")
	require.NoError(t, err)
	assert.Zero(t, repo.users[user.ID.Hex()].FailedAttempts)
}

func TestFollowUnfollowRoundTrip(t *testing.T) {
	svc, repo := newUserService(t)
	ctx := context.Background()

	alice := seedUser(repo, "alice", "alice@example.com")
	bob := seedUser(repo, "bob", "bob@example.com")

	require.NoError(t, svc.Follow(ctx, alice.ID.Hex(), bob.ID.Hex()))
	assert.Contains(t, repo.users[alice.ID.Hex()].Followings, bob.ID.Hex())
	assert.Contains(t, repo.users[bob.ID.Hex()].Followers, alice.ID.Hex())

	assert.ErrorIs(t, svc.Follow(ctx, alice.ID.Hex(), bob.ID.Hex()), ErrAlreadyFollowing)

	require.NoError(t, svc.Unfollow(ctx, alice.ID.Hex(), bob.ID.Hex()))
	assert.NotContains(t, repo.users[alice.ID.Hex()].Followings, bob.ID.Hex())
	assert.NotContains(t, repo.users[bob.ID.Hex()].Followers, alice.ID.Hex())

	assert.ErrorIs(t, svc.Unfollow(ctx, alice.ID.Hex(), bob.ID.Hex()), ErrNotFollowing)
}

func TestFollowRejectsSelfAndMissingTarget(t *testing.T) {
	svc, repo := newUserService(t)
	ctx := context.Background()

	alice := seedUser(repo, "alice", "alice@example.com")

	assert.ErrorIs(t, svc.Follow(ctx, alice.ID.Hex(), alice.ID.Hex()), ErrSelfFollow)
	assert.ErrorIs(t, svc.Follow(ctx, alice.ID.Hex(), primitive.NewObjectID().Hex()), ErrNotFound)
	assert.ErrorIs(t, svc.Follow(ctx, alice.ID.Hex(), "nonsense"), ErrInvalidID)
}

func TestUpdateRequiresSelfOrAdmin(t *testing.T) {
	svc, repo := newUserService(t)
	ctx := context.Background()

	alice := seedUser(repo, "alice", "alice@example.com")
	bob := seedUser(repo, "bob", "bob@example.com")
	admin := seedUser(repo, "root", "root@example.com")
	admin.IsAdmin = true

	city := "Oslo"

	_, err := svc.Update(ctx, bob.ID.Hex(), alice.ID.Hex(), UserUpdateInput{City: &city})
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.Update(ctx, alice.ID.Hex(), alice.ID.Hex(), UserUpdateInput{City: &city})
	require.NoError(t, err)
	assert.Equal(t, "Oslo", updated.City)

	other := "Bergen"
	updated, err = svc.Update(ctx, admin.ID.Hex(), alice.ID.Hex(), UserUpdateInput{City: &other})
	require.NoError(t, err)
	assert.Equal(t, "Bergen", updated.City)
}

func TestUpdateRehashesPassword(t *testing.T) {
	svc, repo := newUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "alice@example.com", "secret123")
	require.NoError(t, err)
	oldHash := repo.users[user.ID.Hex()].PasswordHash

	pw := "newsecret"
	_, err = svc.Update(ctx, user.ID.Hex(), user.ID.Hex(), UserUpdateInput{Password: &pw})
	require.NoError(t, err)

	newHash := repo.users[user.ID.Hex()].PasswordHash
	assert.NotEqual(t, oldHash, newHash)
	assert.NotEqual(t, "newsecret", newHash)

	_, err = svc.Login(ctx, "alice@example.com", "newsecret")
	assert.NoError(t, err)
}

func TestDeleteRequiresSelfOrAdmin(t *testing.T) {
	svc, repo := newUserService(t)
	ctx := context.Background()

	alice := seedUser(repo, "alice", "alice@example.com")
	bob := seedUser(repo, "bob", "bob@example.com")

	assert.ErrorIs(t, svc.Delete(ctx, bob.ID.Hex(), alice.ID.Hex()), ErrForbidden)

	require.NoError(t, svc.Delete(ctx, alice.ID.Hex(), alice.ID.Hex()))
	_, err := svc.Get(ctx, alice.ID.Hex())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListEmptyIsNotFound(t *testing.T) {
	svc, _ := newUserService(t)

	_, err := svc.List(context.Background(), repository.UserListOptions{Page: 1, Limit: 10})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetRejectsMalformedID(t *testing.T) {
	svc, _ := newUserService(t)

	_, err := svc.Get(context.Background(), "not-a-hex-id")
	assert.ErrorIs(t, err, ErrInvalidID)
}

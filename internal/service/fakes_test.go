package service

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-server/internal/domain"
	"social-server/internal/repository"
)

// fakeUserRepo is an in-memory repository.UserRepository for service tests.
type fakeUserRepo struct {
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (r *fakeUserRepo) add(user *domain.User) *domain.User {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.Followers == nil {
		user.Followers = []string{}
	}
	if user.Followings == nil {
		user.Followings = []string{}
	}
	r.users[user.ID.Hex()] = user
	return user
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) (string, error) {
	for _, u := range r.users {
		if u.Email == user.Email || u.Username == user.Username {
			return "", repository.ErrDuplicateKey
		}
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.add(user)
	return user.ID.Hex(), nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, id string, upd repository.UserUpdate) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if upd.Username != nil {
		user.Username = *upd.Username
	}
	if upd.Email != nil {
		user.Email = *upd.Email
	}
	if upd.PasswordHash != nil {
		user.PasswordHash = *upd.PasswordHash
	}
	if upd.Desc != nil {
		user.Desc = *upd.Desc
	}
	if upd.City != nil {
		user.City = *upd.City
	}
	if upd.From != nil {
		user.From = *upd.From
	}
	if upd.Relationship != nil {
		user.Relationship = *upd.Relationship
	}
	if upd.ProfilePicture != nil {
		user.ProfilePicture = *upd.ProfilePicture
	}
	if upd.CoverPicture != nil {
		user.CoverPicture = *upd.CoverPicture
	}
	user.UpdatedAt = time.Now().UTC()
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) List(_ context.Context, opts repository.UserListOptions) ([]domain.User, error) {
	var out []domain.User
	for _, u := range r.users {
		if opts.FilterField == "city" && u.City != opts.FilterValue {
			continue
		}
		if opts.FilterField == "username" && u.Username != opts.FilterValue {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	start := (opts.Page - 1) * opts.Limit
	if start >= int64(len(out)) {
		return []domain.User{}, nil
	}
	end := start + opts.Limit
	if end > int64(len(out)) {
		end = int64(len(out))
	}
	return out[start:end], nil
}

func (r *fakeUserRepo) SetFollow(_ context.Context, actorID, targetID string, follow bool) error {
	actor, ok := r.users[actorID]
	if !ok {
		return repository.ErrNotFound
	}
	target, ok := r.users[targetID]
	if !ok {
		return repository.ErrNotFound
	}
	if follow {
		actor.Followings = appendUnique(actor.Followings, targetID)
		target.Followers = appendUnique(target.Followers, actorID)
	} else {
		actor.Followings = remove(actor.Followings, targetID)
		target.Followers = remove(target.Followers, actorID)
	}
	return nil
}

func (r *fakeUserRepo) RecordLoginFailure(_ context.Context, id string, attempts int, lockoutUntil *time.Time) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.FailedAttempts = attempts
	user.LockoutUntil = lockoutUntil
	return nil
}

func (r *fakeUserRepo) ResetLoginFailures(_ context.Context, id string) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.FailedAttempts = 0
	user.LockoutUntil = nil
	return nil
}

func (r *fakeUserRepo) SetPicture(_ context.Context, id, field, location string) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	switch field {
	case "profilePicture":
		user.ProfilePicture = location
	case "coverPicture":
		user.CoverPicture = location
	}
	return nil
}

// fakePostRepo is an in-memory repository.PostRepository for service tests.
type fakePostRepo struct {
	posts map[string]*domain.Post
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[string]*domain.Post)}
}

func (r *fakePostRepo) Create(_ context.Context, post *domain.Post) (string, error) {
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now
	if post.Likes == nil {
		post.Likes = []string{}
	}
	if post.Comments == nil {
		post.Comments = []domain.Comment{}
	}
	r.posts[post.ID.Hex()] = post
	return post.ID.Hex(), nil
}

func (r *fakePostRepo) GetByID(_ context.Context, id string) (*domain.Post, error) {
	post, ok := r.posts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *post
	return &copied, nil
}

func (r *fakePostRepo) Update(_ context.Context, id string, upd repository.PostUpdate) (*domain.Post, error) {
	post, ok := r.posts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if upd.Desc != nil {
		post.Desc = *upd.Desc
	}
	if upd.Img != nil {
		post.Img = *upd.Img
	}
	if upd.Mentions != nil {
		post.Mentions = upd.Mentions
	}
	post.UpdatedAt = time.Now().UTC()
	copied := *post
	return &copied, nil
}

func (r *fakePostRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.posts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.posts, id)
	return nil
}

func (r *fakePostRepo) List(_ context.Context, opts repository.PostListOptions) ([]domain.Post, int64, error) {
	var out []domain.Post
	for _, p := range r.posts {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))

	start := (opts.Page - 1) * opts.Limit
	if start >= total {
		return []domain.Post{}, total, nil
	}
	end := start + opts.Limit
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (r *fakePostRepo) ListByUser(_ context.Context, userID string) ([]domain.Post, error) {
	out := []domain.Post{}
	for _, p := range r.posts {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakePostRepo) ToggleLike(_ context.Context, postID, userID string) (bool, error) {
	post, ok := r.posts[postID]
	if !ok {
		return false, repository.ErrNotFound
	}
	for _, id := range post.Likes {
		if id == userID {
			post.Likes = remove(post.Likes, userID)
			return false, nil
		}
	}
	post.Likes = append(post.Likes, userID)
	return true, nil
}

func (r *fakePostRepo) ToggleCommentLike(_ context.Context, postID, commentID, userID string) (bool, error) {
	post, ok := r.posts[postID]
	if !ok {
		return false, repository.ErrNotFound
	}
	for i := range post.Comments {
		if post.Comments[i].ID != commentID {
			continue
		}
		for _, id := range post.Comments[i].Likes {
			if id == userID {
				post.Comments[i].Likes = remove(post.Comments[i].Likes, userID)
				return false, nil
			}
		}
		post.Comments[i].Likes = append(post.Comments[i].Likes, userID)
		return true, nil
	}
	return false, repository.ErrNotFound
}

func (r *fakePostRepo) AddComment(_ context.Context, postID string, comment domain.Comment) (*domain.Post, error) {
	post, ok := r.posts[postID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	post.Comments = append(post.Comments, comment)
	copied := *post
	return &copied, nil
}

func (r *fakePostRepo) UpdateCommentText(_ context.Context, postID, commentID, text string) (*domain.Post, error) {
	post, ok := r.posts[postID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for i := range post.Comments {
		if post.Comments[i].ID == commentID {
			post.Comments[i].Text = text
		}
	}
	copied := *post
	return &copied, nil
}

func (r *fakePostRepo) DeleteComment(_ context.Context, postID, commentID string) (*domain.Post, error) {
	post, ok := r.posts[postID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	kept := post.Comments[:0]
	for _, c := range post.Comments {
		if c.ID != commentID {
			kept = append(kept, c)
		}
	}
	post.Comments = kept
	copied := *post
	return &copied, nil
}

func (r *fakePostRepo) AddReply(_ context.Context, postID, commentID string, reply domain.Reply) (*domain.Post, error) {
	post, ok := r.posts[postID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for i := range post.Comments {
		if post.Comments[i].ID == commentID {
			post.Comments[i].Replies = append(post.Comments[i].Replies, reply)
			copied := *post
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakePostRepo) DeleteReply(_ context.Context, postID, commentID, replyID string) (*domain.Post, error) {
	post, ok := r.posts[postID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for i := range post.Comments {
		if post.Comments[i].ID != commentID {
			continue
		}
		kept := post.Comments[i].Replies[:0]
		for _, rep := range post.Comments[i].Replies {
			if rep.ID != replyID {
				kept = append(kept, rep)
			}
		}
		post.Comments[i].Replies = kept
	}
	copied := *post
	return &copied, nil
}

func appendUnique(set []string, v string) []string {
	for _, s := range set {
		if s == v {
			return set
		}
	}
	return append(set, v)
}

func remove(set []string, v string) []string {
	out := set[:0]
	for _, s := range set {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

package repository

import (
	"context"

	"social-server/internal/domain"
)

// PostUpdate carries a partial post update. Mentions, when non-nil, fully
// replaces the stored list.
type PostUpdate struct {
	Desc     *string
	Img      *string
	Mentions []string
}

// PostListOptions controls pagination and sorting for List.
type PostListOptions struct {
	Page   int64
	Limit  int64
	SortBy string
	Order  string
}

// PostRepository exposes persistence operations for Post aggregates and
// their embedded comments and replies.
type PostRepository interface {
	Create(ctx context.Context, post *domain.Post) (string, error)
	GetByID(ctx context.Context, id string) (*domain.Post, error)
	Update(ctx context.Context, id string, upd PostUpdate) (*domain.Post, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts PostListOptions) ([]domain.Post, int64, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Post, error)

	// ToggleLike flips the user's membership in the post's likes set with a
	// single atomic update per branch; returns true when the outcome is a like.
	ToggleLike(ctx context.Context, postID, userID string) (bool, error)
	// ToggleCommentLike does the same against an embedded comment's likes set.
	ToggleCommentLike(ctx context.Context, postID, commentID, userID string) (bool, error)

	AddComment(ctx context.Context, postID string, comment domain.Comment) (*domain.Post, error)
	UpdateCommentText(ctx context.Context, postID, commentID, text string) (*domain.Post, error)
	DeleteComment(ctx context.Context, postID, commentID string) (*domain.Post, error)
	AddReply(ctx context.Context, postID, commentID string, reply domain.Reply) (*domain.Post, error)
	// DeleteReply removes the reply matching both ids; a missing reply under an
	// existing post is a no-op, a missing post is ErrNotFound.
	DeleteReply(ctx context.Context, postID, commentID, replyID string) (*domain.Post, error)
}

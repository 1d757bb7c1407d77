package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"social-server/internal/domain"
	"social-server/internal/repository"
)

var mentionPattern = regexp.MustCompile(`@(\w+)`)

// PostPage is one page of the post listing together with paging metadata.
type PostPage struct {
	Posts       []domain.Post
	TotalPages  int64
	CurrentPage int64
}

// PostService covers post CRUD, the like toggles and the embedded
// comment/reply tree.
type PostService interface {
	Create(ctx context.Context, userID, desc, img string) (*domain.Post, error)
	Get(ctx context.Context, id string) (*domain.Post, error)
	Update(ctx context.Context, id, desc, img string) (*domain.Post, error)
	Delete(ctx context.Context, callerID, postID string) error
	List(ctx context.Context, opts repository.PostListOptions) (*PostPage, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Post, error)
	ToggleLike(ctx context.Context, postID, userID string) (bool, error)
	ToggleCommentLike(ctx context.Context, postID, commentID, userID string) (bool, error)
	AddComment(ctx context.Context, postID, userID, text string) (*domain.Post, error)
	UpdateComment(ctx context.Context, postID, commentID, text string) (*domain.Post, error)
	DeleteComment(ctx context.Context, postID, commentID string) (*domain.Post, error)
	ReplyToComment(ctx context.Context, postID, commentID, userID, text string) (*domain.Post, error)
	DeleteReply(ctx context.Context, postID, commentID, replyID string) (*domain.Post, error)
}

type postService struct {
	posts repository.PostRepository
	users repository.UserRepository
}

func NewPostService(posts repository.PostRepository, users repository.UserRepository) PostService {
	return &postService{posts: posts, users: users}
}

func (s *postService) Create(ctx context.Context, userID, desc, img string) (*domain.Post, error) {
	if userID == "" || desc == "" {
		return nil, fmt.Errorf("%w: userId and desc are required", ErrValidation)
	}
	if err := validateID(userID); err != nil {
		return nil, err
	}

	post := &domain.Post{
		UserID:   userID,
		Desc:     desc,
		Img:      img,
		Mentions: s.resolveMentions(ctx, desc),
	}
	if _, err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *postService) Get(ctx context.Context, id string) (*domain.Post, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return post, nil
}

func (s *postService) Update(ctx context.Context, id, desc, img string) (*domain.Post, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	if desc == "" {
		return nil, fmt.Errorf("%w: desc is required", ErrValidation)
	}

	// Mentions are re-resolved from the new description and fully replace the
	// stored list.
	mentions := s.resolveMentions(ctx, desc)
	upd := repository.PostUpdate{Desc: &desc, Mentions: mentions}
	if img != "" {
		upd.Img = &img
	}

	post, err := s.posts.Update(ctx, id, upd)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return post, nil
}

func (s *postService) Delete(ctx context.Context, callerID, postID string) error {
	if err := validateID(postID); err != nil {
		return err
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if post.UserID != callerID {
		caller, err := s.users.GetByID(ctx, callerID)
		if err != nil || !caller.IsAdmin {
			return ErrForbidden
		}
	}
	if err := s.posts.Delete(ctx, postID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *postService) List(ctx context.Context, opts repository.PostListOptions) (*PostPage, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = 10
	}

	posts, total, err := s.posts.List(ctx, opts)
	if err != nil {
		return nil, err
	}

	totalPages := total / opts.Limit
	if total%opts.Limit != 0 {
		totalPages++
	}
	return &PostPage{Posts: posts, TotalPages: totalPages, CurrentPage: opts.Page}, nil
}

func (s *postService) ListByUser(ctx context.Context, userID string) ([]domain.Post, error) {
	if err := validateID(userID); err != nil {
		return nil, err
	}
	return s.posts.ListByUser(ctx, userID)
}

func (s *postService) ToggleLike(ctx context.Context, postID, userID string) (bool, error) {
	if err := validateID(postID); err != nil {
		return false, err
	}
	liked, err := s.posts.ToggleLike(ctx, postID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrNotFound
		}
		return false, err
	}
	return liked, nil
}

func (s *postService) ToggleCommentLike(ctx context.Context, postID, commentID, userID string) (bool, error) {
	if err := validateID(postID); err != nil {
		return false, err
	}
	liked, err := s.posts.ToggleCommentLike(ctx, postID, commentID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrNotFound
		}
		return false, err
	}
	return liked, nil
}

func (s *postService) AddComment(ctx context.Context, postID, userID, text string) (*domain.Post, error) {
	if err := validateID(postID); err != nil {
		return nil, err
	}
	if userID == "" || text == "" {
		return nil, fmt.Errorf("%w: userId and text are required", ErrValidation)
	}

	// The author's username is snapshotted into the comment at write time and
	// never re-synced on later renames.
	author, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	comment := domain.Comment{
		ID:        uuid.NewString(),
		UserID:    userID,
		Username:  author.Username,
		Text:      text,
		Likes:     []string{},
		Replies:   []domain.Reply{},
		CreatedAt: time.Now().UTC(),
	}

	post, err := s.posts.AddComment(ctx, postID, comment)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return post, nil
}

func (s *postService) UpdateComment(ctx context.Context, postID, commentID, text string) (*domain.Post, error) {
	if err := validateID(postID); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrValidation)
	}
	post, err := s.posts.UpdateCommentText(ctx, postID, commentID, text)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return post, nil
}

func (s *postService) DeleteComment(ctx context.Context, postID, commentID string) (*domain.Post, error) {
	if err := validateID(postID); err != nil {
		return nil, err
	}
	post, err := s.posts.DeleteComment(ctx, postID, commentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return post, nil
}

func (s *postService) ReplyToComment(ctx context.Context, postID, commentID, userID, text string) (*domain.Post, error) {
	if err := validateID(postID); err != nil {
		return nil, err
	}
	if userID == "" || text == "" {
		return nil, fmt.Errorf("%w: userId and text are required", ErrValidation)
	}

	author, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	reply := domain.Reply{
		ID:        uuid.NewString(),
		UserID:    userID,
		Username:  author.Username,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}

	post, err := s.posts.AddReply(ctx, postID, commentID, reply)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return post, nil
}

func (s *postService) DeleteReply(ctx context.Context, postID, commentID, replyID string) (*domain.Post, error) {
	if err := validateID(postID); err != nil {
		return nil, err
	}
	post, err := s.posts.DeleteReply(ctx, postID, commentID, replyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return post, nil
}

// resolveMentions maps each @username token in the text to a user id.
// Unresolvable handles are silently dropped.
func (s *postService) resolveMentions(ctx context.Context, text string) []string {
	ids := []string{}
	for _, match := range mentionPattern.FindAllStringSubmatch(text, -1) {
		user, err := s.users.GetByUsername(ctx, match[1])
		if err != nil {
			continue
		}
		ids = append(ids, user.ID.Hex())
	}
	return ids
}

package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"social-server/internal/domain"
	"social-server/internal/repository"
)

const postsCollection = "posts"

type PostRepository struct {
	posts *mongo.Collection
}

func NewPostRepository(db *mongo.Database) repository.PostRepository {
	return &PostRepository{posts: db.Collection(postsCollection)}
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post) (string, error) {
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	if post.Mentions == nil {
		post.Mentions = []string{}
	}
	if post.Likes == nil {
		post.Likes = []string{}
	}
	if post.Comments == nil {
		post.Comments = []domain.Comment{}
	}

	if _, err := r.posts.InsertOne(ctx, post); err != nil {
		return "", fmt.Errorf("insert post: %w", err)
	}
	return post.ID.Hex(), nil
}

func (r *PostRepository) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	var post domain.Post
	if err := r.posts.FindOne(ctx, bson.M{"_id": oid}).Decode(&post); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find post: %w", err)
	}
	return &post, nil
}

func (r *PostRepository) Update(ctx context.Context, id string, upd repository.PostUpdate) (*domain.Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if upd.Desc != nil {
		set["desc"] = *upd.Desc
	}
	if upd.Img != nil {
		set["img"] = *upd.Img
	}
	if upd.Mentions != nil {
		set["mentions"] = upd.Mentions
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var post domain.Post
	err = r.posts.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("update post: %w", err)
	}
	return &post, nil
}

func (r *PostRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}
	res, err := r.posts.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *PostRepository) List(ctx context.Context, opts repository.PostListOptions) ([]domain.Post, int64, error) {
	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = "createdAt"
	}
	order := -1
	if opts.Order == "asc" {
		order = 1
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: sortBy, Value: order}}).
		SetSkip((opts.Page - 1) * opts.Limit).
		SetLimit(opts.Limit)

	cursor, err := r.posts.Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	defer cursor.Close(ctx)

	posts := []domain.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, 0, fmt.Errorf("decode posts: %w", err)
	}

	total, err := r.posts.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}
	return posts, total, nil
}

func (r *PostRepository) ListByUser(ctx context.Context, userID string) ([]domain.Post, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.posts.Find(ctx, bson.M{"userId": userID}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("list posts by user: %w", err)
	}
	defer cursor.Close(ctx)

	posts := []domain.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	return posts, nil
}

// ToggleLike tries a $pull first; when the user was not in the likes set the
// pull matches nothing and the $addToSet branch runs instead. Each branch is a
// single atomic update, so the user appears at most once.
func (r *PostRepository) ToggleLike(ctx context.Context, postID, userID string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return false, repository.ErrNotFound
	}

	res, err := r.posts.UpdateOne(ctx,
		bson.M{"_id": oid, "likes": userID},
		bson.M{"$pull": bson.M{"likes": userID}},
	)
	if err != nil {
		return false, fmt.Errorf("unlike post: %w", err)
	}
	if res.MatchedCount > 0 {
		return false, nil
	}

	res, err = r.posts.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$addToSet": bson.M{"likes": userID}},
	)
	if err != nil {
		return false, fmt.Errorf("like post: %w", err)
	}
	if res.MatchedCount == 0 {
		return false, repository.ErrNotFound
	}
	return true, nil
}

func (r *PostRepository) ToggleCommentLike(ctx context.Context, postID, commentID, userID string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return false, repository.ErrNotFound
	}

	res, err := r.posts.UpdateOne(ctx,
		bson.M{"_id": oid, "comments": bson.M{"$elemMatch": bson.M{"_id": commentID, "likes": userID}}},
		bson.M{"$pull": bson.M{"comments.$.likes": userID}},
	)
	if err != nil {
		return false, fmt.Errorf("unlike comment: %w", err)
	}
	if res.MatchedCount > 0 {
		return false, nil
	}

	res, err = r.posts.UpdateOne(ctx,
		bson.M{"_id": oid, "comments._id": commentID},
		bson.M{"$addToSet": bson.M{"comments.$.likes": userID}},
	)
	if err != nil {
		return false, fmt.Errorf("like comment: %w", err)
	}
	if res.MatchedCount == 0 {
		return false, repository.ErrNotFound
	}
	return true, nil
}

func (r *PostRepository) AddComment(ctx context.Context, postID string, comment domain.Comment) (*domain.Post, error) {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var post domain.Post
	err = r.posts.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$push": bson.M{"comments": comment}},
		opts,
	).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("add comment: %w", err)
	}
	return &post, nil
}

func (r *PostRepository) UpdateCommentText(ctx context.Context, postID, commentID, text string) (*domain.Post, error) {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetArrayFilters(options.ArrayFilters{
			Filters: []any{bson.M{"comment._id": commentID}},
		})
	var post domain.Post
	err = r.posts.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"comments.$[comment].text": text}},
		opts,
	).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("update comment: %w", err)
	}
	return &post, nil
}

func (r *PostRepository) DeleteComment(ctx context.Context, postID, commentID string) (*domain.Post, error) {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var post domain.Post
	err = r.posts.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$pull": bson.M{"comments": bson.M{"_id": commentID}}},
		opts,
	).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("delete comment: %w", err)
	}
	return &post, nil
}

func (r *PostRepository) AddReply(ctx context.Context, postID, commentID string, reply domain.Reply) (*domain.Post, error) {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var post domain.Post
	err = r.posts.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "comments._id": commentID},
		bson.M{"$push": bson.M{"comments.$.replies": reply}},
		opts,
	).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("add reply: %w", err)
	}
	return &post, nil
}

// DeleteReply pulls the reply matching both parent comment id and reply id.
// A wrong reply id under an existing post leaves the document unchanged and
// is not an error; only a missing post is.
func (r *PostRepository) DeleteReply(ctx context.Context, postID, commentID, replyID string) (*domain.Post, error) {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetArrayFilters(options.ArrayFilters{
			Filters: []any{bson.M{"comment._id": commentID}},
		})
	var post domain.Post
	err = r.posts.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$pull": bson.M{"comments.$[comment].replies": bson.M{"_id": replyID}}},
		opts,
	).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("delete reply: %w", err)
	}
	return &post, nil
}

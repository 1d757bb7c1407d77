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

const usersCollection = "users"

type UserRepository struct {
	client *mongo.Client
	users  *mongo.Collection
}

func NewUserRepository(client *mongo.Client, db *mongo.Database) repository.UserRepository {
	return &UserRepository{
		client: client,
		users:  db.Collection(usersCollection),
	}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (string, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.Followers == nil {
		user.Followers = []string{}
	}
	if user.Followings == nil {
		user.Followings = []string{}
	}

	if _, err := r.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("insert user: %w", repository.ErrDuplicateKey)
		}
		return "", fmt.Errorf("insert user: %w", err)
	}
	return user.ID.Hex(), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var user domain.User
	if err := r.users.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) Update(ctx context.Context, id string, upd repository.UserUpdate) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if upd.Username != nil {
		set["username"] = *upd.Username
	}
	if upd.Email != nil {
		set["email"] = *upd.Email
	}
	if upd.PasswordHash != nil {
		set["password"] = *upd.PasswordHash
	}
	if upd.Desc != nil {
		set["desc"] = *upd.Desc
	}
	if upd.City != nil {
		set["city"] = *upd.City
	}
	if upd.From != nil {
		set["from"] = *upd.From
	}
	if upd.Relationship != nil {
		set["relationship"] = *upd.Relationship
	}
	if upd.ProfilePicture != nil {
		set["profilePicture"] = *upd.ProfilePicture
	}
	if upd.CoverPicture != nil {
		set["coverPicture"] = *upd.CoverPicture
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user domain.User
	err = r.users.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("update user: %w", repository.ErrDuplicateKey)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}
	res, err := r.users.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context, opts repository.UserListOptions) ([]domain.User, error) {
	filter := bson.M{}
	if opts.FilterField != "" && opts.FilterValue != "" {
		filter[opts.FilterField] = opts.FilterValue
	}

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

	cursor, err := r.users.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cursor.Close(ctx)

	users := []domain.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

// SetFollow links or unlinks actor and target on both documents inside one
// transaction, so a crash between the two writes cannot leave the relation
// asymmetric.
func (r *UserRepository) SetFollow(ctx context.Context, actorID, targetID string, follow bool) error {
	actorOID, err := primitive.ObjectIDFromHex(actorID)
	if err != nil {
		return repository.ErrNotFound
	}
	targetOID, err := primitive.ObjectIDFromHex(targetID)
	if err != nil {
		return repository.ErrNotFound
	}

	actorOp, targetOp := "$addToSet", "$addToSet"
	if !follow {
		actorOp, targetOp = "$pull", "$pull"
	}

	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		res, err := r.users.UpdateOne(sc,
			bson.M{"_id": actorOID},
			bson.M{actorOp: bson.M{"followings": targetID}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
		)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, repository.ErrNotFound
		}

		res, err = r.users.UpdateOne(sc,
			bson.M{"_id": targetOID},
			bson.M{targetOp: bson.M{"followers": actorID}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
		)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, repository.ErrNotFound
		}
		return nil, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("update follow relation: %w", err)
	}
	return nil
}

func (r *UserRepository) RecordLoginFailure(ctx context.Context, id string, attempts int, lockoutUntil *time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}
	_, err = r.users.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"failedAttempts": attempts, "lockoutUntil": lockoutUntil}},
	)
	if err != nil {
		return fmt.Errorf("record login failure: %w", err)
	}
	return nil
}

func (r *UserRepository) ResetLoginFailures(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}
	_, err = r.users.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"failedAttempts": 0, "lockoutUntil": nil}},
	)
	if err != nil {
		return fmt.Errorf("reset login failures: %w", err)
	}
	return nil
}

func (r *UserRepository) SetPicture(ctx context.Context, id, field, location string) error {
	if field != "profilePicture" && field != "coverPicture" {
		return fmt.Errorf("unknown picture field %q", field)
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}
	res, err := r.users.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{field: location, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", field, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Relationship status codes carried on a user profile.
const (
	RelationshipSingle      = 1
	RelationshipTaken       = 2
	RelationshipComplicated = 3
)

// User represents a registered account. PasswordHash is never serialized to
// clients; Followers and Followings hold related user ids as hex strings.
type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username       string             `bson:"username" json:"username"`
	Email          string             `bson:"email" json:"email"`
	PasswordHash   string             `bson:"password" json:"-"`
	ProfilePicture string             `bson:"profilePicture" json:"profilePicture"`
	CoverPicture   string             `bson:"coverPicture" json:"coverPicture"`
	Followers      []string           `bson:"followers" json:"followers"`
	Followings     []string           `bson:"followings" json:"followings"`
	IsAdmin        bool               `bson:"isAdmin" json:"isAdmin"`
	Desc           string             `bson:"desc" json:"desc"`
	City           string             `bson:"city" json:"city"`
	From           string             `bson:"from" json:"from"`
	Relationship   int                `bson:"relationship,omitempty" json:"relationship,omitempty"`
	FailedAttempts int                `bson:"failedAttempts" json:"-"`
	LockoutUntil   *time.Time         `bson:"lockoutUntil" json:"-"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

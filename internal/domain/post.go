package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post is a user-authored post with embedded comments. Mentions holds the ids
// of users referenced as @username in the description, resolved at write time.
// Likes holds the ids of users currently liking the post, each at most once.
type Post struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"userId" json:"userId"`
	Desc      string             `bson:"desc" json:"desc"`
	Img       string             `bson:"img,omitempty" json:"img,omitempty"`
	Mentions  []string           `bson:"mentions" json:"mentions"`
	Likes     []string           `bson:"likes" json:"likes"`
	Comments  []Comment          `bson:"comments" json:"comments"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Comment is embedded in a post. Username is a snapshot of the author's name
// at write time and is deliberately not re-synced on later renames.
type Comment struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"userId" json:"userId"`
	Username  string    `bson:"username" json:"username"`
	Text      string    `bson:"text" json:"text"`
	Likes     []string  `bson:"likes" json:"likes"`
	Replies   []Reply   `bson:"replies" json:"replies"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Reply is embedded in a comment, with the same username snapshot rule.
type Reply struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"userId" json:"userId"`
	Username  string    `bson:"username" json:"username"`
	Text      string    `bson:"text" json:"text"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectOptions bounds the startup connection retry loop.
type ConnectOptions struct {
	URI      string
	Database string
	Attempts int
	Delay    time.Duration
}

// Connect dials MongoDB with a bounded number of attempts and a fixed delay
// between them. Exhausting the attempts is fatal for the caller; there is no
// background reconnect beyond what the driver itself does.
func Connect(ctx context.Context, opts ConnectOptions, logger *logrus.Logger) (*mongo.Client, error) {
	if opts.Attempts <= 0 {
		opts.Attempts = 5
	}
	if opts.Delay <= 0 {
		opts.Delay = 5 * time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err = client.Ping(pingCtx, nil)
			cancel()
			if err == nil {
				logger.Info("connected to mongodb")
				return client, nil
			}
			_ = client.Disconnect(ctx)
		}
		lastErr = err
		logger.Warnf("mongodb connect attempt %d/%d failed: %v", attempt, opts.Attempts, err)
		if attempt < opts.Attempts {
			select {
			case <-time.After(opts.Delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("connect to mongodb after %d attempts: %w", opts.Attempts, lastErr)
}

// EnsureIndexes creates the unique indexes the users collection relies on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	users := db.Collection(usersCollection)
	_, err := users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

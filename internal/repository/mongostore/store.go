// Package mongostore implements the portal repositories on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/noah-isme/portal-sabido-api/internal/repository"
	"github.com/noah-isme/portal-sabido-api/pkg/config"
)

// Collection names.
const (
	InstructorsCollection   = "instructors"
	StudentsCollection      = "students"
	AnnouncementsCollection = "announcements"
	AccountsCollection      = "accounts"
	CountersCollection      = "counters"
)

// Connect dials MongoDB and pings the primary.
func Connect(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, client.Database(cfg.Database), nil
}

// EnsureIndexes creates the unique indexes the portal relies on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		InstructorsCollection: {
			{Keys: bson.D{{Key: "instructorCode", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}},
		},
		StudentsCollection: {
			{Keys: bson.D{{Key: "instructorReference", Value: 1}}},
			{Keys: bson.D{{Key: "email", Value: 1}}},
		},
		AnnouncementsCollection: {
			{Keys: bson.D{{Key: "instructorCode", Value: 1}, {Key: "seq", Value: 1}}},
		},
		AccountsCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for name, indexes := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	return err
}

func duplicate(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrDuplicate
	}
	return err
}

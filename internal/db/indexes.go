package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the inquiry subsystem depends on for
// correctness, not just speed:
//
//   - at most one unresolved inquiry per ordered (sender, recipient) pair,
//     enforced with a partial unique index on {resolved: false};
//   - a unique (inquiry_id, log_type, seq) key on the lifecycle log, which is
//     the storage-level exactly-once guard for escalation actions;
//   - one quota account per user.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := database.Collection("inquiries").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "recipient_id", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"resolved": bson.M{"$eq": false}}),
	})
	if err != nil {
		return fmt.Errorf("failed to create active-inquiry index: %w", err)
	}

	_, err = database.Collection("inquiry_logs").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "inquiry_id", Value: 1}, {Key: "log_type", Value: 1}, {Key: "seq", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create inquiry-log indexes: %w", err)
	}

	_, err = database.Collection("quota_accounts").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create quota-account index: %w", err)
	}

	_, err = database.Collection("notifications").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "event_type", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create notification index: %w", err)
	}

	return nil
}

package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// EnsureIndexes creates the indexes every collection relies on. Called once
// at startup.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	repos := []interface {
		EnsureIndexes(ctx context.Context) error
	}{
		&messageRepository{db: database},
		&meetingRepository{db: database},
		&chatAuditLogRepository{db: database},
	}

	for _, r := range repos {
		if err := r.EnsureIndexes(ctx); err != nil {
			return err
		}
	}

	return nil
}

package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/viewcall/chatrelay/internal/domain"
	"github.com/viewcall/chatrelay/internal/persistence/db"
)

type chatAuditLogRepository struct {
	db *mongo.Database
}

func NewChatAuditLogRepository(db *mongo.Database) domain.AuditRepository {
	return &chatAuditLogRepository{
		db: db,
	}
}

func (r *chatAuditLogRepository) Log(ctx context.Context, log *domain.ChatAuditLog) error {
	collection := r.db.Collection(db.ChatAuditLogsCollection)

	_, err := collection.InsertOne(ctx, log)
	return err
}

func (r *chatAuditLogRepository) ByRoomID(ctx context.Context, roomID string, limit int) ([]domain.ChatAuditLog, error) {
	collection := r.db.Collection(db.ChatAuditLogsCollection)

	filter := bson.M{"room_id": roomID}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []domain.ChatAuditLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}

	return logs, nil
}

func (r *chatAuditLogRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(db.ChatAuditLogsCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "room_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		{
			Keys:    bson.D{{Key: "timestamp", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(7776000), // 90 days TTL
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

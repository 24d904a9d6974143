package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/viewcall/chatrelay/internal/domain"
	"github.com/viewcall/chatrelay/internal/persistence/db"
)

type messageRepository struct {
	db *mongo.Database
}

func NewMessageRepository(db *mongo.Database) domain.MessageRepository {
	return &messageRepository{
		db: db,
	}
}

func (r *messageRepository) Append(ctx context.Context, msg *domain.Message) error {
	collection := r.db.Collection(db.MessagesCollection)

	_, err := collection.InsertOne(ctx, msg)
	return err
}

func (r *messageRepository) RecentByRoomID(ctx context.Context, roomID string, limit int) ([]domain.Message, error) {
	collection := r.db.Collection(db.MessagesCollection)

	filter := bson.M{"room_id": roomID}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []domain.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	// query returns newest first, callers expect chronological order
	reverse(messages)

	return messages, nil
}

func (r *messageRepository) ByRoomBefore(ctx context.Context, roomID string, before time.Time, limit int) ([]domain.Message, error) {
	collection := r.db.Collection(db.MessagesCollection)

	filter := bson.M{
		"room_id":    roomID,
		"created_at": bson.M{"$lt": before},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []domain.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	reverse(messages)

	return messages, nil
}

func (r *messageRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(db.MessagesCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "room_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func reverse(messages []domain.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}

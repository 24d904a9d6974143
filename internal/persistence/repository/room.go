package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/viewcall/chatrelay/internal/domain"
	"github.com/viewcall/chatrelay/internal/persistence/db"
)

type roomRepository struct {
	db *mongo.Database
}

func NewRoomRepository(db *mongo.Database) domain.RoomRepository {
	return &roomRepository{
		db: db,
	}
}

func (r *roomRepository) Upsert(ctx context.Context, room *domain.Room) error {
	collection := r.db.Collection(db.RoomsCollection)

	update := bson.M{
		"$set": bson.M{
			"name":       room.Name,
			"is_private": room.IsPrivate,
			"meta":       room.Meta,
		},
		"$setOnInsert": bson.M{
			"created_at": time.Now().UTC(),
		},
	}

	_, err := collection.UpdateOne(ctx,
		bson.M{"_id": room.ID},
		update,
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *roomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	collection := r.db.Collection(db.RoomsCollection)

	var room domain.Room
	err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&room)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}

	return &room, nil
}

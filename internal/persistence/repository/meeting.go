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

type meetingRepository struct {
	db *mongo.Database
}

func NewMeetingRepository(db *mongo.Database) domain.MeetingRepository {
	return &meetingRepository{
		db: db,
	}
}

// AddParticipant upserts the meeting document and folds the participant
// into its set, keyed by user id. Two updates: the first creates the
// meeting if absent, the second appends only when no entry with that
// user id exists yet.
func (r *meetingRepository) AddParticipant(ctx context.Context, meetingID string, p domain.Participant) error {
	collection := r.db.Collection(db.MeetingsCollection)

	now := time.Now().UTC()

	_, err := collection.UpdateOne(ctx,
		bson.M{"meeting_id": meetingID},
		bson.M{"$setOnInsert": bson.M{
			"meeting_id":   meetingID,
			"date":         now,
			"duration":     int64(0),
			"participants": []domain.Participant{},
			"created_at":   now,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return err
	}

	_, err = collection.UpdateOne(ctx,
		bson.M{
			"meeting_id":           meetingID,
			"participants.user_id": bson.M{"$ne": p.UserID},
		},
		bson.M{"$push": bson.M{"participants": p}},
	)
	return err
}

func (r *meetingRepository) End(ctx context.Context, meetingID string, duration int64, live []domain.Participant) (*domain.Meeting, error) {
	collection := r.db.Collection(db.MeetingsCollection)

	now := time.Now().UTC()

	_, err := collection.UpdateOne(ctx,
		bson.M{"meeting_id": meetingID},
		bson.M{"$setOnInsert": bson.M{
			"meeting_id":   meetingID,
			"date":         now,
			"participants": []domain.Participant{},
			"created_at":   now,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return nil, err
	}

	for _, p := range live {
		_, err = collection.UpdateOne(ctx,
			bson.M{
				"meeting_id":           meetingID,
				"participants.user_id": bson.M{"$ne": p.UserID},
			},
			bson.M{"$push": bson.M{"participants": p}},
		)
		if err != nil {
			return nil, err
		}
	}

	_, err = collection.UpdateOne(ctx,
		bson.M{"meeting_id": meetingID},
		bson.M{"$set": bson.M{"duration": duration}},
	)
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, meetingID)
}

func (r *meetingRepository) GetByID(ctx context.Context, meetingID string) (*domain.Meeting, error) {
	collection := r.db.Collection(db.MeetingsCollection)

	var meeting domain.Meeting
	err := collection.FindOne(ctx, bson.M{"meeting_id": meetingID}).Decode(&meeting)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrMeetingNotFound
		}
		return nil, err
	}

	return &meeting, nil
}

func (r *meetingRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(db.MeetingsCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "meeting_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

package domain

import (
	"context"
	"time"
)

// Participant is one entry in a meeting's aggregate participant set,
// keyed by UserID.
type Participant struct {
	UserID string `json:"userId" bson:"user_id"`
	Name   string `json:"name" bson:"name"`
}

// Meeting is the durable aggregate of everyone who ever joined a room id,
// plus a duration. It shares its id with the room.
type Meeting struct {
	MeetingID    string        `json:"meetingId" bson:"meeting_id"`
	Name         string        `json:"name,omitempty" bson:"name,omitempty"`
	Date         time.Time     `json:"date" bson:"date"`
	Duration     int64         `json:"duration" bson:"duration"` // seconds
	Participants []Participant `json:"participants" bson:"participants"`
	CreatedAt    time.Time     `json:"createdAt" bson:"created_at"`
}

// HasParticipant reports whether the set already contains the user id.
func (m *Meeting) HasParticipant(userID string) bool {
	for _, p := range m.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// AddParticipant unions the participant into the set. Re-adding an existing
// user id is a no-op, never a duplicate.
func (m *Meeting) AddParticipant(p Participant) {
	if m.HasParticipant(p.UserID) {
		return
	}
	m.Participants = append(m.Participants, p)
}

type MeetingRepository interface {
	// AddParticipant upserts the meeting (duration 0, current date when
	// absent) and unions the participant into its set.
	AddParticipant(ctx context.Context, meetingID string, p Participant) error

	// End overwrites the meeting's duration, unions the live participants
	// into the stored set and returns the updated record. Ending a meeting
	// more than once is allowed; participants are only ever added.
	End(ctx context.Context, meetingID string, duration int64, live []Participant) (*Meeting, error)

	GetByID(ctx context.Context, meetingID string) (*Meeting, error)
}

package domain

import (
	"context"
	"time"
)

// Room is the optional stored record behind a room id. Membership never
// depends on it: any room id is valid at join time, a room "exists" as soon
// as connections or messages reference it. The document only carries display
// metadata for clients.
type Room struct {
	ID        string         `json:"id" bson:"_id"`
	Name      string         `json:"name,omitempty" bson:"name,omitempty"`
	IsPrivate bool           `json:"isPrivate" bson:"is_private"`
	Meta      map[string]any `json:"meta,omitempty" bson:"meta,omitempty"`
	CreatedAt time.Time      `json:"createdAt" bson:"created_at"`
}

type RoomRepository interface {
	Upsert(ctx context.Context, room *Room) error
	GetByID(ctx context.Context, id string) (*Room, error)
}

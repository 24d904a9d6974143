package chat

import "github.com/viewcall/chatrelay/internal/domain"

type upsertRoomRequest struct {
	RoomID    string         `json:"roomId"`
	Name      string         `json:"name"`
	IsPrivate bool           `json:"isPrivate"`
	Meta      map[string]any `json:"meta,omitempty"`
}

type upsertRoomResponse struct {
	Room *domain.Room `json:"room"`
}

type messagesResponse struct {
	RoomID   string           `json:"roomId"`
	Messages []domain.Message `json:"messages"`
}

package repository

import (
	"context"
	"sync"
	"time"

	"github.com/viewcall/chatrelay/internal/domain"
)

type roomRepository struct {
	rooms map[string]*domain.Room
	mu    sync.RWMutex
}

func NewRoomRepository() domain.RoomRepository {
	return &roomRepository{
		rooms: make(map[string]*domain.Room),
	}
}

func (r *roomRepository) Upsert(ctx context.Context, room *domain.Room) error {
	if room == nil || room.ID == "" {
		return domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.rooms[room.ID]; ok {
		existing.Name = room.Name
		existing.IsPrivate = room.IsPrivate
		if room.Meta != nil {
			existing.Meta = room.Meta
		}
		*room = *existing
		return nil
	}

	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC()
	}

	cpy := *room
	r.rooms[room.ID] = &cpy

	return nil
}

func (r *roomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}

	cpy := *room
	return &cpy, nil
}

// Package repository holds bounded in-memory implementations of the domain
// repositories. They back the server when no Mongo URI is configured and
// double as fakes in tests. Oldest entries are evicted when capacity is
// exceeded, so the history-replay contract still holds for recent messages.
package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viewcall/chatrelay/internal/domain"
)

type messageRepository struct {
	messages map[string][]domain.Message // roomID -> append-ordered log
	capacity uint
	mu       sync.RWMutex
}

func NewMessageRepository(capacity uint) domain.MessageRepository {
	if capacity == 0 {
		capacity = 500 // sane default
	}
	return &messageRepository{
		capacity: capacity,
		messages: make(map[string][]domain.Message),
	}
}

func (r *messageRepository) Append(ctx context.Context, message *domain.Message) error {
	if message == nil || message.RoomID == "" || message.Text == "" {
		return domain.ErrInvalidInput
	}

	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	log := append(r.messages[message.RoomID], *message)

	// Evict oldest if over capacity
	if len(log) > int(r.capacity) {
		log = log[len(log)-int(r.capacity):]
	}

	r.messages[message.RoomID] = log

	return nil
}

func (r *messageRepository) RecentByRoomID(ctx context.Context, roomID string, limit int) ([]domain.Message, error) {
	if roomID == "" {
		return nil, domain.ErrInvalidInput
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	log := r.messages[roomID]
	if limit > 0 && len(log) > limit {
		log = log[len(log)-limit:]
	}

	cpy := make([]domain.Message, len(log))
	copy(cpy, log)

	return cpy, nil
}

func (r *messageRepository) ByRoomBefore(ctx context.Context, roomID string, before time.Time, limit int) ([]domain.Message, error) {
	if roomID == "" {
		return nil, domain.ErrInvalidInput
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Message
	for _, m := range r.messages[roomID] {
		if !before.IsZero() && !m.CreatedAt.Before(before) {
			continue
		}
		out = append(out, m)
	}

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}

	return out, nil
}

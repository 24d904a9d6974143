package repository

import (
	"context"
	"sync"

	"github.com/viewcall/chatrelay/internal/domain"
)

type auditRepository struct {
	mu      sync.RWMutex
	entries []domain.ChatAuditLog
}

func NewAuditRepository() domain.AuditRepository {
	return &auditRepository{}
}

func (r *auditRepository) Log(_ context.Context, entry *domain.ChatAuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, *entry)

	return nil
}

func (r *auditRepository) ByRoomID(_ context.Context, roomID string, limit int) ([]domain.ChatAuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ChatAuditLog, 0, limit)
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.entries[i].RoomID == roomID {
			out = append(out, r.entries[i])
		}
	}

	return out, nil
}

func (r *auditRepository) EnsureIndexes(context.Context) error {
	return nil
}

package ws

import (
	"sync"

	"github.com/samber/lo"

	"github.com/viewcall/chatrelay/internal/domain"
	"github.com/viewcall/chatrelay/internal/infrastructure/metrics"
)

// Registry tracks every live session and which rooms each belongs to.
// It is the single source of truth for membership; all maps are guarded
// by one RWMutex so roster snapshots stay consistent.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	rooms    map[string]map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		rooms:    make(map[string]map[string]*Session),
	}
}

// Add registers a new session.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[s.ID] = s
	metrics.ActiveConnections.Set(float64(len(r.sessions)))
}

// Remove drops the session from every room and from the registry, closing
// its outbound queue. It returns the ids of rooms the session belonged to
// so the caller can notify the remaining members.
func (r *Registry) Remove(s *Session) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.ID]; !ok {
		return nil
	}

	delete(r.sessions, s.ID)
	metrics.ActiveConnections.Set(float64(len(r.sessions)))

	var affected []string
	for roomID, members := range r.rooms {
		if _, ok := members[s.ID]; !ok {
			continue
		}

		delete(members, s.ID)
		affected = append(affected, roomID)
		metrics.RoomMembers.WithLabelValues(roomID).Set(float64(len(members)))

		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
	}

	s.CloseSend()

	return affected
}

// Join adds the session to a room. It reports false when the session was
// already a member, making repeated joins harmless.
func (r *Registry) Join(s *Session, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[string]*Session)
		r.rooms[roomID] = members
	}

	if _, ok := members[s.ID]; ok {
		return false
	}

	members[s.ID] = s
	metrics.RoomMembers.WithLabelValues(roomID).Set(float64(len(members)))

	return true
}

// Leave removes the session from a room, reporting whether it was a member.
func (r *Registry) Leave(s *Session, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomID]
	if !ok {
		return false
	}

	if _, ok := members[s.ID]; !ok {
		return false
	}

	delete(members, s.ID)
	metrics.RoomMembers.WithLabelValues(roomID).Set(float64(len(members)))

	if len(members) == 0 {
		delete(r.rooms, roomID)
	}

	return true
}

// InRoom reports whether the session currently belongs to the room.
func (r *Registry) InRoom(sessionID, roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.rooms[roomID]
	if !ok {
		return false
	}

	_, ok = members[sessionID]

	return ok
}

// SessionsInRoom returns a snapshot of the room's members.
func (r *Registry) SessionsInRoom(roomID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[roomID]
	out := make([]*Session, 0, len(members))
	for _, s := range members {
		out = append(out, s)
	}

	return out
}

// All returns a snapshot of every live session.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}

	return out
}

// Roster derives the deduplicated identity set of a room's members. Two
// sessions bound to the same user collapse into one entry.
func (r *Registry) Roster(roomID string) []domain.Identity {
	sessions := r.SessionsInRoom(roomID)

	users := lo.Map(sessions, func(s *Session, _ int) domain.Identity {
		return s.Identity()
	})

	return lo.UniqBy(users, func(u domain.Identity) string {
		return u.ID
	})
}

// RoomsOf returns the ids of every room the session belongs to.
func (r *Registry) RoomsOf(s *Session) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for roomID, members := range r.rooms {
		if _, ok := members[s.ID]; ok {
			out = append(out, roomID)
		}
	}

	return out
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}

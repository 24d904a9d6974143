package repository

import (
	"context"
	"sync"
	"time"

	"github.com/viewcall/chatrelay/internal/domain"
)

type meetingRepository struct {
	meetings map[string]*domain.Meeting // meetingID -> record
	mu       sync.RWMutex
}

func NewMeetingRepository() domain.MeetingRepository {
	return &meetingRepository{
		meetings: make(map[string]*domain.Meeting),
	}
}

// upsertLocked returns the stored meeting, creating it with duration 0 and
// the current date when absent. Caller must hold the write lock.
func (r *meetingRepository) upsertLocked(meetingID string) *domain.Meeting {
	if m, ok := r.meetings[meetingID]; ok {
		return m
	}

	now := time.Now().UTC()
	m := &domain.Meeting{
		MeetingID: meetingID,
		Date:      now,
		Duration:  0,
		CreatedAt: now,
	}
	r.meetings[meetingID] = m

	return m
}

func (r *meetingRepository) AddParticipant(ctx context.Context, meetingID string, p domain.Participant) error {
	if meetingID == "" || p.UserID == "" {
		return domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.upsertLocked(meetingID).AddParticipant(p)

	return nil
}

func (r *meetingRepository) End(ctx context.Context, meetingID string, duration int64, live []domain.Participant) (*domain.Meeting, error) {
	if meetingID == "" {
		return nil, domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.upsertLocked(meetingID)
	m.Duration = duration
	m.Date = time.Now().UTC()
	for _, p := range live {
		m.AddParticipant(p)
	}

	cpy := *m
	cpy.Participants = append([]domain.Participant(nil), m.Participants...)

	return &cpy, nil
}

func (r *meetingRepository) GetByID(ctx context.Context, meetingID string) (*domain.Meeting, error) {
	if meetingID == "" {
		return nil, domain.ErrInvalidInput
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.meetings[meetingID]
	if !ok {
		return nil, domain.ErrMeetingNotFound
	}

	cpy := *m
	cpy.Participants = append([]domain.Participant(nil), m.Participants...)

	return &cpy, nil
}

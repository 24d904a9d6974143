package meetings

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/viewcall/chatrelay/internal/domain"
	"github.com/viewcall/chatrelay/internal/infrastructure/json"
	"github.com/viewcall/chatrelay/internal/infrastructure/validate"
)

var validateMeetingID = validate.Field("meetingId",
	validate.Required(),
	validate.MaxLength(128),
	validate.NoSpaces(),
)

type Handler struct {
	meetings domain.MeetingRepository
}

func NewHandler(meetings domain.MeetingRepository) *Handler {
	return &Handler{
		meetings: meetings,
	}
}

// CreateMeetingHandler records a meeting with the given duration. The
// record is upserted, so posting an id that was already populated by live
// joins just sets its duration.
func (h *Handler) CreateMeetingHandler(w http.ResponseWriter, r *http.Request) {
	var req createMeetingRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	if err := validateMeetingID(req.MeetingID); err != nil {
		json.WriteValidationError(w, err)
		return
	}
	if req.Duration < 0 {
		json.WriteBadRequestError(w, "duration must not be negative")
		return
	}

	meeting, err := h.meetings.End(r.Context(), req.MeetingID, req.Duration, nil)
	if err != nil {
		json.WriteInternalError(w, err)
		return
	}

	json.Write(w, http.StatusCreated, meetingResponse{Meeting: meeting})
}

// GetMeetingHandler returns a meeting record by id.
func (h *Handler) GetMeetingHandler(w http.ResponseWriter, r *http.Request) {
	meetingID := chi.URLParam(r, "meetingId")
	if err := validateMeetingID(meetingID); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	meeting, err := h.meetings.GetByID(r.Context(), meetingID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMeetingNotFound):
			json.WriteError(w, http.StatusNotFound, err, "Meeting not found")
		default:
			json.WriteInternalError(w, err)
		}
		return
	}

	json.Write(w, http.StatusOK, meetingResponse{Meeting: meeting})
}

package chat

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/viewcall/chatrelay/internal/domain"
	"github.com/viewcall/chatrelay/internal/infrastructure/json"
	"github.com/viewcall/chatrelay/internal/infrastructure/validate"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

var validateRoomID = validate.Field("roomId",
	validate.Required(),
	validate.MaxLength(128),
	validate.NoSpaces(),
)

var validateRoomName = validate.Field("name",
	validate.LengthBetween(1, 100),
)

type Handler struct {
	rooms    domain.RoomRepository
	messages domain.MessageRepository
}

func NewHandler(rooms domain.RoomRepository, messages domain.MessageRepository) *Handler {
	return &Handler{
		rooms:    rooms,
		messages: messages,
	}
}

// GetRoomMessagesHandler returns recent messages for a room, oldest first.
// Accepts ?limit= and ?before= (RFC3339) for paging.
func (h *Handler) GetRoomMessagesHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if err := validateRoomID(roomID); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			json.WriteBadRequestError(w, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	var (
		messages []domain.Message
		err      error
	)

	if raw := r.URL.Query().Get("before"); raw != "" {
		before, parseErr := time.Parse(time.RFC3339, raw)
		if parseErr != nil {
			json.WriteBadRequestError(w, "before must be an RFC3339 timestamp")
			return
		}
		messages, err = h.messages.ByRoomBefore(r.Context(), roomID, before, limit)
	} else {
		messages, err = h.messages.RecentByRoomID(r.Context(), roomID, limit)
	}

	if err != nil {
		json.WriteInternalError(w, err)
		return
	}

	if messages == nil {
		messages = []domain.Message{}
	}

	json.Write(w, http.StatusOK, messagesResponse{
		RoomID:   roomID,
		Messages: messages,
	})
}

// UpsertRoomHandler creates or updates a room document. Rooms are optional
// metadata; joining a room never requires one to exist.
func (h *Handler) UpsertRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req upsertRoomRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	if err := validateRoomID(req.RoomID); err != nil {
		json.WriteValidationError(w, err)
		return
	}
	if req.Name != "" {
		if err := validateRoomName(req.Name); err != nil {
			json.WriteValidationError(w, err)
			return
		}
	}

	room := &domain.Room{
		ID:        req.RoomID,
		Name:      req.Name,
		IsPrivate: req.IsPrivate,
		Meta:      req.Meta,
	}

	if err := h.rooms.Upsert(r.Context(), room); err != nil {
		json.WriteInternalError(w, err)
		return
	}

	json.Write(w, http.StatusCreated, upsertRoomResponse{Room: room})
}

// GetRoomHandler returns a room document by id.
func (h *Handler) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if err := validateRoomID(roomID); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	room, err := h.rooms.GetByID(r.Context(), roomID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRoomNotFound):
			json.WriteError(w, http.StatusNotFound, err, "Room not found")
		default:
			json.WriteInternalError(w, err)
		}
		return
	}

	json.Write(w, http.StatusOK, upsertRoomResponse{Room: room})
}

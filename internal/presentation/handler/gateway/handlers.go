package gateway

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/viewcall/chatrelay/internal/infrastructure/logging"
	"github.com/viewcall/chatrelay/internal/infrastructure/ws"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type Handler struct {
	coordinator *ws.Coordinator
	log         logging.Logger
	sendBuffer  int
}

func NewHandler(coordinator *ws.Coordinator, log logging.Logger, sendBuffer int) *Handler {
	return &Handler{
		coordinator: coordinator,
		log:         log,
		sendBuffer:  sendBuffer,
	}
}

// ConnectHandler upgrades the request and starts the session pumps. A
// token or username in the query string binds an identity up front, so
// clients that cannot send an auth frame first still get one.
func (h *Handler) ConnectHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(logging.WebSocket, logging.Transport, "upgrade failed", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
			logging.ClientIp:     r.RemoteAddr,
		})
		return
	}

	session := ws.NewSession(ws.NewConn(conn), h.log, h.sendBuffer)
	h.coordinator.Register(session)

	query := r.URL.Query()
	if token, username := query.Get("token"), query.Get("username"); token != "" || username != "" {
		h.coordinator.HandleAuth(r.Context(), session, ws.AuthPayload{
			Token:    token,
			Username: username,
		})
	}

	go session.WritePump()
	go session.ReadPump(h.coordinator)
}

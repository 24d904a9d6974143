package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Conn is the slice of websocket behavior a Session needs. The indirection
// keeps session and coordinator logic testable without a real upgrade.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v any) error
	Close() error
}

type connWrapper struct {
	conn  *websocket.Conn
	mutex sync.Mutex
}

// NewConn wraps a gorilla connection so concurrent writers cannot interleave
// frames.
func NewConn(c *websocket.Conn) Conn {
	return &connWrapper{conn: c}
}

func (w *connWrapper) ReadMessage() (int, []byte, error) {
	return w.conn.ReadMessage()
}

func (w *connWrapper) WriteJSON(v any) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.conn.WriteJSON(v)
}

func (w *connWrapper) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.conn.Close()
}

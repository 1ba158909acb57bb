package interview

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans confidence updates out to the websocket clients watching a
// session. Writes are fire-and-forget: a client that cannot keep up is
// dropped.
type Hub struct {
	mu    sync.Mutex
	conns map[string]map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]map[*websocket.Conn]bool)}
}

// Broadcast sends payload as JSON to every connection subscribed to the
// session. Connections are snapshotted under the lock and written outside
// it, so one slow client cannot stall the hub.
func (h *Hub) Broadcast(sessionID string, payload any) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns[sessionID]))
	for conn := range h.conns[sessionID] {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(payload); err != nil {
			log.Printf("stream: websocket write: %v", err)
			conn.Close()
			h.remove(sessionID, conn)
		}
	}
}

func (h *Hub) add(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[sessionID] == nil {
		h.conns[sessionID] = make(map[*websocket.Conn]bool)
	}
	h.conns[sessionID][conn] = true
}

func (h *Hub) remove(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns[sessionID], conn)
	if len(h.conns[sessionID]) == 0 {
		delete(h.conns, sessionID)
	}
}

// ServeStream upgrades the request and keeps the connection subscribed until
// the client goes away. The read loop exists only to detect closure.
func (h *Hub) ServeStream(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("stream: websocket upgrade: %v", err)
		return
	}
	h.add(sessionID, conn)
	defer func() {
		h.remove(sessionID, conn)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("stream: websocket read: %v", err)
			}
			return
		}
	}
}

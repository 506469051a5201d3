package runner

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message types sent to websocket subscribers.
const (
	TypeLog      = "log"
	TypeProgress = "progress"
	TypeStatus   = "status"
)

// Message is one websocket frame about a run.
type Message struct {
	Type    string `json:"type"`
	RunID   string `json:"run_id"`
	Line    string `json:"line,omitempty"`
	Status  string `json:"status,omitempty"`
	Current int    `json:"current,omitempty"`
	Total   int    `json:"total,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Client is one websocket subscriber of one run.
type Client struct {
	runID string
	conn  *websocket.Conn
	send  chan []byte
}

// maxFinished bounds how many final status messages the hub remembers.
const maxFinished = 1024

// Hub fans run messages out to the websocket clients subscribed to that run.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*Client]bool
	finished map[string][]byte
	order    []string
	buffer   int
}

// NewHub returns a hub whose clients buffer up to buffer messages before dropping.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 256
	}
	return &Hub{
		clients:  make(map[string]map[*Client]bool),
		finished: make(map[string][]byte),
		buffer:   buffer,
	}
}

// Register subscribes c to its run. If the run has already been closed, c instead gets
// the run's final status, its send channel is closed and Register returns false.
func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if final, ok := h.finished[c.runID]; ok {
		select {
		case c.send <- final:
		default:
		}
		close(c.send)
		return false
	}
	if h.clients[c.runID] == nil {
		h.clients[c.runID] = make(map[*Client]bool)
	}
	h.clients[c.runID][c] = true
	return true
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[c.runID]; ok && set[c] {
		delete(set, c)
		close(c.send)
		if len(set) == 0 {
			delete(h.clients, c.runID)
		}
	}
}

// Publish sends msg to every client of msg.RunID.
func (h *Hub) Publish(msg Message) {
	raw, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[Hub] marshal %s message: %v", msg.Type, err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[msg.RunID] {
		select {
		case c.send <- raw:
		default:
			log.Printf("[Hub] client buffer full for run %s, dropping message", msg.RunID)
		}
	}
}

// CloseRun sends final to every client of final.RunID and disconnects them. The hub
// remembers final so that clients registering afterwards still receive it.
func (h *Hub) CloseRun(final Message) {
	raw, err := json.Marshal(final)
	if err != nil {
		log.Printf("[Hub] marshal %s message: %v", final.Type, err)
		raw = nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[final.RunID] {
		if raw != nil {
			select {
			case c.send <- raw:
			default:
				log.Printf("[Hub] client buffer full for run %s, dropping final status", final.RunID)
			}
		}
		close(c.send)
	}
	delete(h.clients, final.RunID)
	if raw == nil {
		return
	}
	if _, ok := h.finished[final.RunID]; !ok {
		h.order = append(h.order, final.RunID)
	}
	h.finished[final.RunID] = raw
	for len(h.order) > maxFinished {
		delete(h.finished, h.order[0])
		h.order = h.order[1:]
	}
}

// ClientCount returns the number of clients subscribed to runID.
func (h *Hub) ClientCount(runID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[runID])
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request, replays backlog as log messages and then streams the run's
// live messages. When done is set, or the run closes before the client registers, the run
// has already finished: the backlog and a final status message are sent and the
// connection is closed.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, runID string, backlog []string, done *Message) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Hub] websocket upgrade error: %v", err)
		return
	}
	c := &Client{runID: runID, conn: conn, send: make(chan []byte, h.buffer+len(backlog)+1)}
	for _, line := range backlog {
		if raw, err := json.Marshal(Message{Type: TypeLog, RunID: runID, Line: line}); err == nil {
			c.send <- raw
		}
	}
	if done != nil {
		if raw, err := json.Marshal(done); err == nil {
			c.send <- raw
		}
		close(c.send)
		c.writePump()
		return
	}

	if !h.Register(c) {
		c.writePump()
		return
	}
	go c.writePump()
	h.readPump(c)
}

// readPump discards client frames and unregisters the client when it goes away.
func (h *Hub) readPump(c *Client) {
	defer h.Unregister(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Hub] websocket read error: %v", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}

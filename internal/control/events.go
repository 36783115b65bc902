package control

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-typer/internal/observability"
	"github.com/lexiqai/voice-typer/internal/recognition"
)

const (
	clientBufferSize = 64
	writeTimeout     = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// EventMessage is the JSON form of a recognizer notification on the
// event feed.
type EventMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Timestamp string `json:"timestamp"`
	Old       string `json:"old,omitempty"`
	New       string `json:"new,omitempty"`
	Text      string `json:"text,omitempty"`
	Action    string `json:"action,omitempty"`
	Error     string `json:"error,omitempty"`
}

func newEventMessage(n recognition.Notification) EventMessage {
	msg := EventMessage{
		Type:      string(n.Kind),
		SessionID: n.SessionID,
		Timestamp: n.Time.UTC().Format(time.RFC3339Nano),
		Text:      n.Text,
		Action:    n.Action,
	}
	if n.Kind == recognition.NotifyStateChange {
		msg.Old = n.Old.String()
		msg.New = n.New.String()
	}
	if n.Err != nil {
		msg.Error = n.Err.Error()
	}
	return msg
}

type eventClient struct {
	id   string
	conn *websocket.Conn
	send chan EventMessage
}

// EventHub streams recognizer notifications to websocket clients. A client
// that falls behind is disconnected so a slow reader never delays the
// recognizer.
type EventHub struct {
	mu      sync.Mutex
	clients map[string]*eventClient
	closed  bool
	logger  zerolog.Logger
}

// NewEventHub creates an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[string]*eventClient),
		logger:  observability.Component("events"),
	}
}

// Notify implements recognition.Observer.
func (h *EventHub) Notify(n recognition.Notification) {
	msg := newEventMessage(n)

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn().Str("client_id", id).Msg("Event client too slow, disconnecting")
			h.removeLocked(c)
		}
	}
}

// Clients returns the number of connected clients.
func (h *EventHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams events until the client goes
// away.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to upgrade event feed connection")
		return
	}

	c := &eventClient{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan EventMessage, clientBufferSize),
	}
	if !h.add(c) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}
	h.logger.Info().Str("client_id", c.id).Str("remote", r.RemoteAddr).Msg("Event client connected")

	go h.writeLoop(c)

	// The feed is one-way; reading only detects the client going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Str("client_id", c.id).Msg("Event client read error")
			}
			break
		}
	}

	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
	h.logger.Info().Str("client_id", c.id).Msg("Event client disconnected")
}

// Close disconnects every client and refuses new ones.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for _, c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *EventHub) add(c *eventClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.clients[c.id] = c
	observability.SetEventClients(len(h.clients))
	return true
}

// removeLocked unregisters c and ends its write loop. The caller holds mu.
func (h *EventHub) removeLocked(c *eventClient) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	close(c.send)
	observability.SetEventClients(len(h.clients))
}

func (h *EventHub) writeLoop(c *eventClient) {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(msg); err != nil {
			h.logger.Debug().Err(err).Str("client_id", c.id).Msg("Event client write failed")
			return
		}
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

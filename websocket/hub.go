package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client represents a connected WebSocket client
type Client struct {
	Hub    *Hub
	UserID uint
	Conn   *websocket.Conn
	Send   chan []byte
	once   sync.Once
}

// Hub tracks connections per user room and delivers events to them.
type Hub struct {
	// rooms maps "user_<id>" to every open connection of that user
	rooms map[string]map[*Client]bool

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// done is closed once Run returns
	done chan struct{}

	sendBuffer int
	log        *zap.SugaredLogger
	mu         sync.RWMutex
}

// Message is the envelope written to clients
type Message struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// UserRoom names the logical channel of a user
func UserRoom(userID uint) string {
	return fmt.Sprintf("user_%d", userID)
}

// NewHub creates a new WebSocket hub
func NewHub(sendBuffer int, log *zap.SugaredLogger) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
		sendBuffer: sendBuffer,
		log:        log,
	}
}

// Run starts the hub's main loop. It returns when ctx is done, after
// closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.Register:
			room := UserRoom(client.UserID)
			h.mu.Lock()
			if h.rooms[room] == nil {
				h.rooms[room] = make(map[*Client]bool)
			}
			h.rooms[room][client] = true
			n := len(h.rooms[room])
			h.mu.Unlock()
			h.log.Infow("Client registered", "room", room, "connections", n)

		case client := <-h.Unregister:
			h.remove(client)
			h.log.Infow("Client unregistered", "room", UserRoom(client.UserID))

		case <-ctx.Done():
			h.mu.Lock()
			for room, clients := range h.rooms {
				for client := range clients {
					client.closeSend()
				}
				delete(h.rooms, room)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	room := UserRoom(client.UserID)
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.rooms[room]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			client.closeSend()
		}
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
}

// PushToUser sends an event to every connection in the user's room. An
// offline user is not an error. It fails only when the event could not be
// queued on any of the user's connections.
func (h *Hub) PushToUser(userID uint, event string, payload interface{}) error {
	data, err := json.Marshal(&Message{Event: event, Data: payload, Timestamp: time.Now()})
	if err != nil {
		return errors.Wrapf(err, "failed to marshal %s event", event)
	}

	room := UserRoom(userID)
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := h.rooms[room]
	if len(clients) == 0 {
		h.log.Debugw("User not connected, event kept for later fetch", "room", room, "event", event)
		return nil
	}

	delivered := 0
	for client := range clients {
		select {
		case client.Send <- data:
			delivered++
		default:
			h.log.Warnw("Client send buffer is full", "room", room, "event", event)
		}
	}
	if delivered == 0 {
		return errors.Wrapf(ErrClientBufferFull, "room %s", room)
	}
	return nil
}

// ConnectedUsers returns the ids of users with at least one open connection
func (h *Hub) ConnectedUsers() []uint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]uint, 0, len(h.rooms))
	for _, clients := range h.rooms {
		for client := range clients {
			users = append(users, client.UserID)
			break
		}
	}
	return users
}

// IsUserConnected checks if a user is currently connected
func (h *Hub) IsUserConnected(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[UserRoom(userID)]) > 0
}

func (c *Client) closeSend() {
	c.once.Do(func() { close(c.Send) })
}

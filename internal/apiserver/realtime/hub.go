package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Message is the envelope exchanged over the websocket.
type Message struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

// Client wraps a websocket connection with the authenticated identity.
type Client struct {
	UserID   uint
	Username string

	conn *websocket.Conn
	// gorilla connections allow only one concurrent writer
	writeMu sync.Mutex
}

func (c *Client) send(msg *Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(msg)
}

func (c *Client) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// Hub tracks websocket clients and the project rooms they joined.
type Hub struct {
	logger  *zap.Logger
	mutex   sync.RWMutex
	clients map[*Client]bool
	rooms   map[uint]map[*Client]bool
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger.Named("realtime"),
		clients: make(map[*Client]bool),
		rooms:   make(map[uint]map[*Client]bool),
	}
}

// Register wraps conn in a Client and starts tracking it.
func (h *Hub) Register(conn *websocket.Conn, userID uint, username string) *Client {
	client := &Client{UserID: userID, Username: username, conn: conn}

	h.mutex.Lock()
	h.clients[client] = true
	h.mutex.Unlock()

	h.logger.Info("websocket client connected",
		zap.Uint("userId", userID),
		zap.String("username", username))
	return client
}

// Unregister removes the client from every room and stops tracking it.
// The caller owns closing the underlying connection.
func (h *Hub) Unregister(client *Client) {
	h.mutex.Lock()
	delete(h.clients, client)
	for projectID, room := range h.rooms {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, projectID)
		}
	}
	h.mutex.Unlock()

	h.logger.Info("websocket client disconnected",
		zap.Uint("userId", client.UserID),
		zap.String("username", client.Username))
}

// Join subscribes the client to a project room.
func (h *Hub) Join(projectID uint, client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.clients[client] {
		return
	}
	room, ok := h.rooms[projectID]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[projectID] = room
	}
	room[client] = true
}

// Publish sends an event to every client in the project room. Delivery is
// best effort; clients whose write fails are closed and evicted. An empty
// room is a no-op.
func (h *Hub) Publish(projectID uint, event string, data map[string]any) {
	h.PublishExcept(projectID, nil, event, data)
}

// PublishExcept is Publish minus the sender, for echoing client-originated
// updates to everyone else in the room.
func (h *Hub) PublishExcept(projectID uint, sender *Client, event string, data map[string]any) {
	msg := &Message{Event: event, Data: data}

	h.mutex.RLock()
	recipients := make([]*Client, 0, len(h.rooms[projectID]))
	for client := range h.rooms[projectID] {
		if client != sender {
			recipients = append(recipients, client)
		}
	}
	h.mutex.RUnlock()

	for _, client := range recipients {
		if err := client.send(msg); err != nil {
			h.logger.Debug("websocket write failed, evicting client",
				zap.Uint("userId", client.UserID), zap.Error(err))
			client.conn.Close()
			h.Unregister(client)
		}
	}
}

// Run sends periodic pings to all clients until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.pingAll()
		}
	}
}

func (h *Hub) pingAll() {
	h.mutex.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.RUnlock()

	for _, client := range clients {
		if err := client.ping(); err != nil {
			h.logger.Debug("ping failed, evicting client",
				zap.Uint("userId", client.UserID), zap.Error(err))
			client.conn.Close()
			h.Unregister(client)
		}
	}
}

// ConnectionCount returns the number of tracked clients.
func (h *Hub) ConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// RoomSize returns the number of clients subscribed to a project.
func (h *Hub) RoomSize(projectID uint) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.rooms[projectID])
}

// CloseAll closes every connection and clears the registry.
func (h *Hub) CloseAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		client.conn.Close()
	}
	h.clients = make(map[*Client]bool)
	h.rooms = make(map[uint]map[*Client]bool)
}

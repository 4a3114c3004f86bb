package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// sendBuffer is how many frames a client may lag before frames are dropped.
const sendBuffer = 16

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSClient is one connected WebSocket subscriber.
type WSClient struct {
	ID   uuid.UUID
	Conn *websocket.Conn

	Send chan []byte
	Done chan struct{}
	once sync.Once
}

// Hub tracks WebSocket clients and fans frames out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*WSClient
	closed  bool
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[uuid.UUID]*WSClient)}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(conn *websocket.Conn) *WSClient {
	client := &WSClient{
		ID:   uuid.New(),
		Conn: conn,
		Send: make(chan []byte, sendBuffer),
		Done: make(chan struct{}),
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		client.close()
		return client
	}
	h.clients[client.ID] = client
	h.mu.Unlock()

	go h.readPump(client)
	go client.writePump()
	return client
}

func (h *Hub) unregister(client *WSClient) {
	h.mu.Lock()
	delete(h.clients, client.ID)
	h.mu.Unlock()
	client.close()
}

// Broadcast marshals v once and queues it for every client. A client whose
// buffer is full misses the frame.
func (h *Hub) Broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logrus.Errorf("Failed to marshal WebSocket frame: %v", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Send <- data:
		default:
			logrus.Debugf("WebSocket client %s is lagging, frame dropped", client.ID)
		}
	}
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[uuid.UUID]*WSClient)
	h.closed = true
	h.mu.Unlock()
	for _, client := range clients {
		client.close()
	}
}

// readPump discards inbound messages; its only job is noticing disconnects.
func (h *Hub) readPump(client *WSClient) {
	defer h.unregister(client)
	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.Debugf("WebSocket client %s: %v", client.ID, err)
			}
			return
		}
	}
}

func (c *WSClient) writePump() {
	for {
		select {
		case message := <-c.Send:
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.close()
				return
			}
		case <-c.Done:
			return
		}
	}
}

// send queues v for this client only, dropping it if the buffer is full.
func (c *WSClient) send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logrus.Errorf("Failed to marshal WebSocket frame: %v", err)
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

func (c *WSClient) close() {
	c.once.Do(func() {
		close(c.Done)
		_ = c.Conn.Close()
	})
}

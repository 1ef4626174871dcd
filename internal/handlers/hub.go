package handlers

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"chatroom-backend/internal/observability"
	"chatroom-backend/internal/services"
)

// Client is one websocket connection owned by this worker. The connection
// id doubles as the user id for its lifetime.
type Client struct {
	UserID string
	Conn   *websocket.Conn

	mu sync.Mutex
}

// Send delivers one event to this client. Serialized because the hub loop
// and the dispatch goroutine both write to the connection.
func (c *Client) Send(event string, data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteJSON(outboundEvent{Event: event, Data: data})
}

func (c *Client) sendRaw(ev services.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteJSON(ev)
}

type outboundEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub tracks the clients attached to this worker and fans relay events out
// to them. Other workers' clients are reached through the relay, never
// directly.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan services.Event
	kick       chan string
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan services.Event, 256),
		kick:       make(chan string, 16),
	}
}

func (h *Hub) Register(client *Client)   { h.register <- client }
func (h *Hub) Unregister(client *Client) { h.unregister <- client }

// Broadcast forwards a relay event to every local client.
func (h *Hub) Broadcast(ev services.Event) { h.broadcast <- ev }

// Kick force-closes the local connection of a user, if this worker owns it.
func (h *Hub) Kick(userID string) { h.kick <- userID }

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client.UserID] = client
			observability.ConnectedClients.Inc()

		case client := <-h.unregister:
			if _, ok := h.clients[client.UserID]; ok {
				delete(h.clients, client.UserID)
				observability.ConnectedClients.Dec()
			}

		case ev := <-h.broadcast:
			for _, client := range h.clients {
				if err := client.sendRaw(ev); err != nil {
					log.Printf("hub: write to %s failed: %v", client.UserID, err)
				}
			}

		case userID := <-h.kick:
			if client, ok := h.clients[userID]; ok {
				// Closing the connection unwinds the read loop, which
				// runs the normal disconnect cleanup.
				client.Conn.Close()
			}
		}
	}
}

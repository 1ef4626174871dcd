package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chatroom-backend/internal/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	hub    *Hub
	chat   *services.ChatService
	router *Router
}

func NewWebSocketHandler(hub *Hub, chat *services.ChatService, router *Router) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		chat:   chat,
		router: router,
	}
}

type inboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("failed to upgrade to websocket: %v", err)
		return
	}

	ctx := context.Background()
	client := &Client{
		UserID: uuid.New().String(),
		Conn:   conn,
	}

	user, snapshot, err := h.chat.Connect(ctx, client.UserID)
	if err != nil {
		log.Printf("failed to register connection: %v", err)
		conn.Close()
		return
	}

	h.hub.Register(client)

	defer func() {
		h.hub.Unregister(client)
		if err := h.chat.Disconnect(ctx, client.UserID); err != nil {
			log.Printf("disconnect cleanup for %s failed: %v", client.UserID, err)
		}
		conn.Close()
	}()

	client.Send("init", gin.H{
		"self":     user,
		"users":    snapshot.Users,
		"messages": snapshot.Messages,
	})

	for {
		var ev inboundEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error: %v", err)
			}
			break
		}

		h.router.Dispatch(ctx, client, ev.Event, ev.Data)
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chatroom-backend/internal/models"
	"chatroom-backend/internal/store"
)

// ChatService owns the plain chat concerns: the user roster, the bounded
// message log, and the ephemeral fun broadcasts. The activity engines post
// their announcement messages through it.
type ChatService struct {
	store *store.Store
	pub   Publisher
}

func NewChatService(s *store.Store, pub Publisher) *ChatService {
	return &ChatService{store: s, pub: pub}
}

// InitSnapshot is the state a freshly connected client renders first.
type InitSnapshot struct {
	Users    []models.User    `json:"users"`
	Messages []models.Message `json:"messages"`
}

// Connect registers a new anonymous user for a connection and returns the
// room snapshot for the init event.
func (c *ChatService) Connect(ctx context.Context, userID string) (*models.User, *InitSnapshot, error) {
	user := &models.User{
		ID:       userID,
		Name:     models.NewGuestName(),
		JoinedAt: time.Now().UnixMilli(),
		Money:    models.StartingMoney,
	}

	if err := c.store.AddUser(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("failed to register user: %v", err)
	}

	users, err := c.store.GetAllUsers(ctx)
	if err != nil {
		return nil, nil, err
	}
	messages, err := c.store.GetMessages(ctx)
	if err != nil {
		return nil, nil, err
	}

	c.pub.Publish(ctx, EventUserJoined, user)

	return user, &InitSnapshot{Users: users, Messages: messages}, nil
}

// Disconnect removes the user record; their balance is gone with it. A user
// already removed (kicked) produces no second userLeft broadcast.
func (c *ChatService) Disconnect(ctx context.Context, userID string) error {
	if _, err := c.store.GetUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := c.store.RemoveUser(ctx, userID); err != nil {
		return err
	}
	return c.pub.Publish(ctx, EventUserLeft, userID)
}

func (c *ChatService) UpdateName(ctx context.Context, userID, name string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > models.MaxNameLength {
		return nil, fmt.Errorf("name must be 1-%d characters", models.MaxNameLength)
	}

	user, err := c.store.UpdateUser(ctx, userID, func(u *models.User) {
		u.Name = name
	})
	if err != nil {
		return nil, err
	}

	c.pub.Publish(ctx, EventUserUpdated, user)
	return user, nil
}

func (c *ChatService) SendMessage(ctx context.Context, userID string, req *models.SendMessageRequest) (*models.Message, error) {
	if strings.TrimSpace(req.Text) == "" && req.Image == "" {
		return nil, fmt.Errorf("message is empty")
	}

	user, err := c.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:         models.NewMessageID(),
		Text:       req.Text,
		Image:      req.Image,
		Quote:      req.Quote,
		Mentions:   req.Mentions,
		SenderID:   user.ID,
		SenderName: user.Name,
		Timestamp:  time.Now().UnixMilli(),
		Type:       models.MessageTypeUser,
	}

	if err := c.Post(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Post appends a message to the log and broadcasts it everywhere.
func (c *ChatService) Post(ctx context.Context, msg *models.Message) error {
	if err := c.store.AppendMessage(ctx, msg); err != nil {
		return err
	}
	return c.pub.Publish(ctx, EventNewMessage, msg)
}

// PostSystem announces service-originated text (kick results and the like).
func (c *ChatService) PostSystem(ctx context.Context, text string) error {
	return c.Post(ctx, &models.Message{
		ID:         models.NewMessageID(),
		Text:       text,
		SenderID:   models.SystemSenderID,
		SenderName: models.SystemSenderName,
		Timestamp:  time.Now().UnixMilli(),
		Type:       models.MessageTypeSystem,
	})
}

// Fireworks and Cheers carry no state; they are pure broadcasts.
func (c *ChatService) Fireworks(ctx context.Context) error {
	return c.pub.Publish(ctx, EventFireworks, struct{}{})
}

func (c *ChatService) Cheers(ctx context.Context) error {
	return c.pub.Publish(ctx, EventCheers, struct{}{})
}

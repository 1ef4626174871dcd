package services

import (
	"context"
	"time"

	"chatroom-backend/internal/models"
	"chatroom-backend/internal/store"
)

// ToastEngine records toast cards. Toasts carry no votes or balances; they
// only exist so the card survives reconnects until swept.
type ToastEngine struct {
	store  *store.Store
	toasts *store.Registry[models.Toast]
	chat   *ChatService
}

func NewToastEngine(s *store.Store, chat *ChatService) *ToastEngine {
	return &ToastEngine{
		store:  s,
		toasts: store.NewRegistry[models.Toast](s, models.EntityToast),
		chat:   chat,
	}
}

func (e *ToastEngine) Registry() *store.Registry[models.Toast] {
	return e.toasts
}

func (e *ToastEngine) Send(ctx context.Context, creatorID string, req *models.SendToastRequest) (*models.Toast, error) {
	user, err := e.store.GetUser(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	toast := &models.Toast{
		ID:          models.NewEntityID(),
		CreatorID:   user.ID,
		CreatorName: user.Name,
		Image:       req.Image,
		Timestamp:   time.Now().UnixMilli(),
	}

	if err := e.toasts.Create(ctx, toast.ID, toast); err != nil {
		return nil, err
	}

	err = e.chat.Post(ctx, &models.Message{
		ID:         models.NewMessageID(),
		Text:       "raised a toast",
		SenderID:   user.ID,
		SenderName: user.Name,
		Timestamp:  time.Now().UnixMilli(),
		Type:       models.MessageTypeToast,
		ToastID:    toast.ID,
		ToastData:  &models.ToastSnapshot{Image: toast.Image},
	})
	if err != nil {
		return nil, err
	}

	return toast, nil
}

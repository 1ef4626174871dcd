package services

import (
	"context"
	"time"

	"chatroom-backend/internal/models"
	"chatroom-backend/internal/store"
)

const defaultPacketGreeting = "Best wishes, grab your luck!"

// RedPacketEngine executes the lucky-money flows. The grab itself runs as
// one server-side transaction in the store; the sender debit and grabber
// credit are separate single-key writes, so a worker dying between the two
// steps leaves a partially applied state. That gap is inherited from the
// original design and deliberately kept.
type RedPacketEngine struct {
	store   *store.Store
	packets *store.Registry[models.RedPacket]
	chat    *ChatService
	pub     Publisher
}

func NewRedPacketEngine(s *store.Store, chat *ChatService, pub Publisher) *RedPacketEngine {
	return &RedPacketEngine{
		store:   s,
		packets: store.NewRegistry[models.RedPacket](s, models.EntityRedPacket),
		chat:    chat,
		pub:     pub,
	}
}

func (e *RedPacketEngine) Registry() *store.Registry[models.RedPacket] {
	return e.packets
}

// Send debits the sender and creates the packet. Fails without mutating
// anything when a precondition does not hold.
func (e *RedPacketEngine) Send(ctx context.Context, senderID string, req *models.SendRedPacketRequest) (*models.RedPacket, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sender, err := e.store.GetUser(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if sender.Money < req.Amount {
		return nil, ErrInsufficientFunds
	}

	updated, err := e.store.UpdateUser(ctx, senderID, func(u *models.User) {
		u.Money = models.RoundCents(u.Money - req.Amount)
	})
	if err != nil {
		return nil, err
	}
	e.pub.Publish(ctx, EventUserUpdated, updated)

	greeting := req.Message
	if greeting == "" {
		greeting = defaultPacketGreeting
	}

	packet := &models.RedPacket{
		ID:              models.NewEntityID(),
		SenderID:        sender.ID,
		SenderName:      sender.Name,
		TotalAmount:     req.Amount,
		TotalCount:      req.Count,
		RemainingAmount: req.Amount,
		RemainingCount:  req.Count,
		Message:         greeting,
		GrabbedList:     []models.GrabRecord{},
		Timestamp:       time.Now().UnixMilli(),
	}

	if err := e.packets.Create(ctx, packet.ID, packet); err != nil {
		return nil, err
	}

	err = e.chat.Post(ctx, &models.Message{
		ID:          models.NewMessageID(),
		Text:        packet.Message,
		SenderID:    sender.ID,
		SenderName:  sender.Name,
		Timestamp:   time.Now().UnixMilli(),
		Type:        models.MessageTypeRedPacket,
		RedPacketID: packet.ID,
	})
	if err != nil {
		return nil, err
	}

	return packet, nil
}

// Grab attempts the atomic grab and, on success, credits the grabber. The
// credit is a separate write after the packet mutation.
func (e *RedPacketEngine) Grab(ctx context.Context, userID string, packetID string) (*store.GrabOutcome, error) {
	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	outcome, err := e.store.GrabRedPacket(ctx, packetID, user.ID, user.Name)
	if err != nil {
		return nil, err
	}

	if outcome.Success {
		updated, err := e.store.UpdateUser(ctx, userID, func(u *models.User) {
			u.Money = models.RoundCents(u.Money + outcome.Amount)
		})
		if err == nil {
			e.pub.Publish(ctx, EventUserUpdated, updated)
		}
		e.pub.Publish(ctx, EventRedPacketGrabbed, outcome.Detail)
	}

	return outcome, nil
}

func (e *RedPacketEngine) Detail(ctx context.Context, packetID string) (*models.RedPacket, error) {
	return e.packets.Get(ctx, packetID)
}

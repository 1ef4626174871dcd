package services

import (
	"context"
	"math/rand"
	"time"

	"chatroom-backend/internal/models"
	"chatroom-backend/internal/store"
)

// LotteryEngine draws the winner inside the same transform that appends the
// final participant, so the draw happens exactly once and the status flip is
// one-way. Contact info stays hidden until the draw.
type LotteryEngine struct {
	store     *store.Store
	lotteries *store.Registry[models.Lottery]
	chat      *ChatService
	pub       Publisher

	// pick chooses the winning index among n participants.
	pick func(n int) int
}

func NewLotteryEngine(s *store.Store, chat *ChatService, pub Publisher) *LotteryEngine {
	return &LotteryEngine{
		store:     s,
		lotteries: store.NewRegistry[models.Lottery](s, models.EntityLottery),
		chat:      chat,
		pub:       pub,
		pick:      rand.Intn,
	}
}

func (e *LotteryEngine) Registry() *store.Registry[models.Lottery] {
	return e.lotteries
}

// SetPick replaces the winner draw for deterministic tests.
func (e *LotteryEngine) SetPick(pick func(n int) int) {
	e.pick = pick
}

func (e *LotteryEngine) Create(ctx context.Context, creatorID string, req *models.SendLotteryRequest) (*models.Lottery, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := e.store.GetUser(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	lottery := &models.Lottery{
		ID:              models.NewEntityID(),
		CreatorID:       user.ID,
		CreatorName:     user.Name,
		PrizeImage:      req.PrizeImage,
		ContactInfo:     req.ContactInfo,
		MaxParticipants: req.MaxParticipants,
		Participants:    []models.LotteryParticipant{},
		Status:          models.StatusActive,
		Timestamp:       time.Now().UnixMilli(),
	}

	if err := e.lotteries.Create(ctx, lottery.ID, lottery); err != nil {
		return nil, err
	}

	err = e.chat.Post(ctx, &models.Message{
		ID:          models.NewMessageID(),
		Text:        "started a lottery",
		SenderID:    user.ID,
		SenderName:  user.Name,
		Timestamp:   time.Now().UnixMilli(),
		Type:        models.MessageTypeLottery,
		LotteryID:   lottery.ID,
		LotteryData: lottery.Snapshot(),
	})
	if err != nil {
		return nil, err
	}

	return lottery, nil
}

func (e *LotteryEngine) Join(ctx context.Context, userID string, lotteryID string) (*models.Lottery, error) {
	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	lottery, err := e.lotteries.Update(ctx, lotteryID, func(l *models.Lottery) error {
		if l.Status != models.StatusActive {
			return ErrAlreadyDone
		}
		for _, p := range l.Participants {
			if p.UserID == user.ID {
				return ErrAlreadyDone
			}
		}
		l.Participants = append(l.Participants, models.LotteryParticipant{
			UserID:    user.ID,
			UserName:  user.Name,
			Timestamp: time.Now().UnixMilli(),
		})

		if len(l.Participants) >= l.MaxParticipants {
			winner := l.Participants[e.pick(len(l.Participants))]
			l.WinnerID = winner.UserID
			l.WinnerName = winner.UserName
			l.Status = models.StatusFinished
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.pub.Publish(ctx, EventLotteryUpdated, map[string]any{
		"lotteryId":   lottery.ID,
		"lotteryData": lottery.Snapshot(),
	})
	return lottery, nil
}

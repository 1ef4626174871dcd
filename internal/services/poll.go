package services

import (
	"context"
	"fmt"
	"time"

	"chatroom-backend/internal/models"
	"chatroom-backend/internal/store"
)

// PollEngine has no terminal state; polls just expire with the sweeper.
type PollEngine struct {
	store *store.Store
	polls *store.Registry[models.Poll]
	chat  *ChatService
	pub   Publisher
}

func NewPollEngine(s *store.Store, chat *ChatService, pub Publisher) *PollEngine {
	return &PollEngine{
		store: s,
		polls: store.NewRegistry[models.Poll](s, models.EntityPoll),
		chat:  chat,
		pub:   pub,
	}
}

func (e *PollEngine) Registry() *store.Registry[models.Poll] {
	return e.polls
}

func (e *PollEngine) Create(ctx context.Context, creatorID string, req *models.CreatePollRequest) (*models.Poll, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := e.store.GetUser(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	options := make([]models.PollOption, len(req.Options))
	for i, text := range req.Options {
		options[i] = models.PollOption{ID: i, Text: text}
	}

	poll := &models.Poll{
		ID:          models.NewEntityID(),
		CreatorID:   user.ID,
		CreatorName: user.Name,
		Title:       req.Title,
		Options:     options,
		Voters:      map[string]int{},
		Timestamp:   time.Now().UnixMilli(),
	}

	if err := e.polls.Create(ctx, poll.ID, poll); err != nil {
		return nil, err
	}

	err = e.chat.Post(ctx, &models.Message{
		ID:         models.NewMessageID(),
		Text:       "started a poll",
		SenderID:   user.ID,
		SenderName: user.Name,
		Timestamp:  time.Now().UnixMilli(),
		Type:       models.MessageTypePoll,
		PollID:     poll.ID,
		PollData:   poll.Snapshot(),
	})
	if err != nil {
		return nil, err
	}

	return poll, nil
}

// Vote records one vote per user; the duplicate check and the count
// increment run in the same transform so the count always equals the
// number of voters.
func (e *PollEngine) Vote(ctx context.Context, userID string, req *models.VotePollRequest) (*models.Poll, error) {
	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	poll, err := e.polls.Update(ctx, req.PollID, func(p *models.Poll) error {
		if _, voted := p.Voters[user.ID]; voted {
			return ErrAlreadyDone
		}
		for i := range p.Options {
			if p.Options[i].ID == req.OptionID {
				p.Options[i].Count++
				p.Voters[user.ID] = req.OptionID
				return nil
			}
		}
		return fmt.Errorf("unknown poll option %d", req.OptionID)
	})
	if err != nil {
		return nil, err
	}

	e.pub.Publish(ctx, EventPollUpdated, map[string]any{
		"pollId":   poll.ID,
		"pollData": poll.Snapshot(),
	})
	return poll, nil
}

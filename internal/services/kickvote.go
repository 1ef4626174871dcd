package services

import (
	"context"
	"fmt"
	"time"

	"chatroom-backend/internal/models"
	"chatroom-backend/internal/store"
)

// KickVoteEngine runs the forced-removal vote. The one-active-vote-per-
// target invariant is held by a dedicated lock key with a TTL instead of
// scanning all votes.
type KickVoteEngine struct {
	store *store.Store
	votes *store.Registry[models.KickVote]
	chat  *ChatService
	pub   Publisher
}

func NewKickVoteEngine(s *store.Store, chat *ChatService, pub Publisher) *KickVoteEngine {
	return &KickVoteEngine{
		store: s,
		votes: store.NewRegistry[models.KickVote](s, models.EntityKickVote),
		chat:  chat,
		pub:   pub,
	}
}

func (e *KickVoteEngine) Registry() *store.Registry[models.KickVote] {
	return e.votes
}

// Initiate opens a vote against a connected user. The initiator's own vote
// counts toward the threshold.
func (e *KickVoteEngine) Initiate(ctx context.Context, initiatorID, targetUserID string) (*models.KickVote, error) {
	if initiatorID == targetUserID {
		return nil, ErrSelfTarget
	}

	initiator, err := e.store.GetUser(ctx, initiatorID)
	if err != nil {
		return nil, err
	}
	target, err := e.store.GetUser(ctx, targetUserID)
	if err != nil {
		return nil, err
	}

	vote := &models.KickVote{
		ID:             models.NewEntityID(),
		TargetUserID:   target.ID,
		TargetUserName: target.Name,
		InitiatorID:    initiator.ID,
		Votes:          []string{initiator.ID},
		RequiredVotes:  models.RequiredKickVotes,
		Status:         models.StatusActive,
		Timestamp:      time.Now().UnixMilli(),
	}

	acquired, err := e.store.AcquireKickVoteLock(ctx, target.ID, vote.ID)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrVoteInProgress
	}

	if err := e.votes.Create(ctx, vote.ID, vote); err != nil {
		e.store.ReleaseKickVoteLock(ctx, target.ID)
		return nil, err
	}

	err = e.chat.Post(ctx, &models.Message{
		ID:           models.NewMessageID(),
		Text:         fmt.Sprintf("%s started a vote to remove %s", initiator.Name, target.Name),
		SenderID:     models.SystemSenderID,
		SenderName:   models.SystemSenderName,
		Timestamp:    time.Now().UnixMilli(),
		Type:         models.MessageTypeKickVote,
		KickVoteID:   vote.ID,
		KickVoteData: vote.Snapshot(),
	})
	if err != nil {
		// Undo, or the target stays vote-locked for the full lock TTL with
		// no vote anyone can act on.
		e.votes.Remove(ctx, vote.ID)
		e.store.ReleaseKickVoteLock(ctx, target.ID)
		return nil, err
	}

	return vote, nil
}

// Vote appends one supporting vote. The duplicate check, the self-vote
// rejection and the active->success flip all run inside the same transform,
// so the threshold fires exactly once.
func (e *KickVoteEngine) Vote(ctx context.Context, userID, voteID string) (*models.KickVote, error) {
	vote, err := e.votes.Update(ctx, voteID, func(v *models.KickVote) error {
		if v.Status != models.StatusActive {
			return ErrAlreadyDone
		}
		if v.TargetUserID == userID {
			return ErrSelfTarget
		}
		for _, id := range v.Votes {
			if id == userID {
				return ErrAlreadyDone
			}
		}
		v.Votes = append(v.Votes, userID)
		if len(v.Votes) >= v.RequiredVotes {
			v.Status = models.StatusSuccess
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.pub.Publish(ctx, EventKickVoteUpdated, map[string]any{
		"kickVoteId":   vote.ID,
		"kickVoteData": vote.Snapshot(),
	})

	if vote.Status == models.StatusSuccess {
		if err := e.executeKick(ctx, vote); err != nil {
			return vote, err
		}
	}
	return vote, nil
}

func (e *KickVoteEngine) executeKick(ctx context.Context, vote *models.KickVote) error {
	defer e.store.ReleaseKickVoteLock(ctx, vote.TargetUserID)
	return e.Kick(ctx, vote.TargetUserID, "was voted out of the room")
}

// AdminKick removes a user without a vote.
func (e *KickVoteEngine) AdminKick(ctx context.Context, callerID, targetUserID string) error {
	if callerID == targetUserID {
		return ErrSelfTarget
	}
	return e.Kick(ctx, targetUserID, "was removed by an admin")
}

// Kick tombstones the target's messages on every client, forces their
// connections closed on whichever workers own them, and deletes the user
// record.
func (e *KickVoteEngine) Kick(ctx context.Context, targetUserID, reason string) error {
	target, err := e.store.GetUser(ctx, targetUserID)
	if err != nil && err != ErrNotFound {
		return err
	}

	e.pub.Publish(ctx, EventClearUserMessages, targetUserID)
	e.pub.Publish(ctx, EventForceDisconnect, ForceDisconnectPayload{
		UserID: targetUserID,
		Reason: reason,
	})

	if target == nil {
		return nil
	}

	if err := e.store.RemoveUser(ctx, targetUserID); err != nil {
		return err
	}
	e.pub.Publish(ctx, EventUserLeft, targetUserID)

	return e.chat.PostSystem(ctx, fmt.Sprintf("%s %s", target.Name, reason))
}

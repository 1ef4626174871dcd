package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"chatroom-backend/internal/observability"
	"chatroom-backend/internal/store"
)

// Outbound event names. Every state-changing operation ends by publishing
// one of these through the relay; each worker forwards them to its own
// connected clients.
const (
	EventUserJoined        = "userJoined"
	EventUserUpdated       = "userUpdated"
	EventUserLeft          = "userLeft"
	EventNewMessage        = "newMessage"
	EventRedPacketGrabbed  = "redPacketGrabbed"
	EventDiceGameUpdated   = "diceGameUpdated"
	EventPollUpdated       = "pollUpdated"
	EventLotteryUpdated    = "lotteryUpdated"
	EventKickVoteUpdated   = "kickVoteUpdated"
	EventClearUserMessages = "clearUserMessages"
	EventFireworks         = "fireworks"
	EventCheers            = "cheers"

	// EventForceDisconnect is worker-to-worker only: every worker closes
	// its local connections for the target user instead of forwarding the
	// event to clients.
	EventForceDisconnect = "forceDisconnect"
)

// Event is the envelope carried over the relay and down to clients.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type ForceDisconnectPayload struct {
	UserID string `json:"userId"`
	Reason string `json:"reason,omitempty"`
}

// Publisher pushes an event to every worker process, including the one
// publishing.
type Publisher interface {
	Publish(ctx context.Context, event string, data any) error
}

// Relay is the Redis pub/sub broadcast fabric.
type Relay struct {
	s *store.Store
}

func NewRelay(s *store.Store) *Relay {
	return &Relay{s: s}
}

func (r *Relay) Publish(ctx context.Context, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %v", event, err)
	}

	envelope, err := json.Marshal(Event{Event: event, Data: payload})
	if err != nil {
		return err
	}

	observability.EventsPublished.WithLabelValues(event).Inc()
	return r.s.Client().Publish(ctx, store.ChannelEvents, envelope).Err()
}

// Subscribe pumps relay events into handle until ctx is cancelled. Runs in
// its own goroutine; decode failures are logged and skipped.
func (r *Relay) Subscribe(ctx context.Context, handle func(Event)) {
	sub := r.s.Client().Subscribe(ctx, store.ChannelEvents)

	go func() {
		defer sub.Close()
		ch := sub.Channel()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Printf("relay: dropping undecodable event: %v", err)
					continue
				}
				observability.EventsReceived.WithLabelValues(ev.Event).Inc()
				handle(ev)
			}
		}
	}()
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"chatroom-backend/internal/models"
	"chatroom-backend/internal/observability"
	"chatroom-backend/internal/services"
)

// EventHandler processes one inbound client event. Results the caller alone
// should see are sent straight back on the client; everything else goes out
// through the relay inside the engines.
type EventHandler func(ctx context.Context, client *Client, data json.RawMessage) error

// Router maps inbound event names to handlers.
type Router struct {
	chat      *services.ChatService
	packets   *services.RedPacketEngine
	dice      *services.DiceEngine
	polls     *services.PollEngine
	lotteries *services.LotteryEngine
	kicks     *services.KickVoteEngine
	toasts    *services.ToastEngine

	handlers map[string]EventHandler
}

func NewRouter(
	chat *services.ChatService,
	packets *services.RedPacketEngine,
	dice *services.DiceEngine,
	polls *services.PollEngine,
	lotteries *services.LotteryEngine,
	kicks *services.KickVoteEngine,
	toasts *services.ToastEngine,
) *Router {
	r := &Router{
		chat:      chat,
		packets:   packets,
		dice:      dice,
		polls:     polls,
		lotteries: lotteries,
		kicks:     kicks,
		toasts:    toasts,
	}

	r.handlers = map[string]EventHandler{
		"updateName":         r.handleUpdateName,
		"sendMessage":        r.handleSendMessage,
		"sendRedPacket":      r.handleSendRedPacket,
		"grabRedPacket":      r.handleGrabRedPacket,
		"getRedPacketDetail": r.handleGetRedPacketDetail,
		"createDiceGame":     r.handleCreateDiceGame,
		"joinDiceGame":       r.handleJoinDiceGame,
		"createPoll":         r.handleCreatePoll,
		"votePoll":           r.handleVotePoll,
		"sendLottery":        r.handleSendLottery,
		"joinLottery":        r.handleJoinLottery,
		"sendToast":          r.handleSendToast,
		"sendCheers":         r.handleSendCheers,
		"sendFireworks":      r.handleSendFireworks,
		"initiateKickVote":   r.handleInitiateKickVote,
		"voteKick":           r.handleVoteKick,
		"adminKick":          r.handleAdminKick,
	}

	return r
}

// Dispatch runs the handler for an event and reports failures back to the
// initiating client only.
func (r *Router) Dispatch(ctx context.Context, client *Client, event string, data json.RawMessage) {
	handler, ok := r.handlers[event]
	if !ok {
		observability.ClientEvents.WithLabelValues(event, "unknown").Inc()
		client.Send("error", fmt.Sprintf("unknown event: %s", event))
		return
	}

	if err := handler(ctx, client, data); err != nil {
		observability.ClientEvents.WithLabelValues(event, "error").Inc()
		client.Send("error", userFacing(err))
		return
	}
	observability.ClientEvents.WithLabelValues(event, "ok").Inc()
}

// userFacing translates the error taxonomy into the strings clients show.
func userFacing(err error) string {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return "not found or expired"
	case errors.Is(err, services.ErrInsufficientFunds):
		return "insufficient balance"
	case errors.Is(err, services.ErrAlreadyDone):
		return "already done"
	case errors.Is(err, services.ErrVoteInProgress):
		return "a kick vote against this user is already running"
	case errors.Is(err, services.ErrSelfTarget):
		return "you cannot target yourself"
	default:
		log.Printf("event failed: %v", err)
		return err.Error()
	}
}

func decode[T any](data json.RawMessage) (*T, error) {
	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("malformed payload: %v", err)
	}
	return v, nil
}

// decodeString accepts the scalar payloads (updateName, grabRedPacket,
// joinLottery, getRedPacketDetail carry a bare JSON string).
func decodeString(data json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", fmt.Errorf("malformed payload: %v", err)
	}
	return s, nil
}

func (r *Router) handleUpdateName(ctx context.Context, client *Client, data json.RawMessage) error {
	name, err := decodeString(data)
	if err != nil {
		return err
	}
	_, err = r.chat.UpdateName(ctx, client.UserID, name)
	return err
}

func (r *Router) handleSendMessage(ctx context.Context, client *Client, data json.RawMessage) error {
	// Plain strings are accepted for compatibility with minimal clients.
	if text, err := decodeString(data); err == nil {
		_, err := r.chat.SendMessage(ctx, client.UserID, &models.SendMessageRequest{Text: text})
		return err
	}

	req, err := decode[models.SendMessageRequest](data)
	if err != nil {
		return err
	}
	_, err = r.chat.SendMessage(ctx, client.UserID, req)
	return err
}

func (r *Router) handleSendRedPacket(ctx context.Context, client *Client, data json.RawMessage) error {
	req, err := decode[models.SendRedPacketRequest](data)
	if err != nil {
		return err
	}
	_, err = r.packets.Send(ctx, client.UserID, req)
	return err
}

func (r *Router) handleGrabRedPacket(ctx context.Context, client *Client, data json.RawMessage) error {
	packetID, err := decodeString(data)
	if err != nil {
		return err
	}

	outcome, err := r.packets.Grab(ctx, client.UserID, packetID)
	if err != nil {
		return err
	}
	return client.Send("grabResult", outcome)
}

func (r *Router) handleGetRedPacketDetail(ctx context.Context, client *Client, data json.RawMessage) error {
	packetID, err := decodeString(data)
	if err != nil {
		return err
	}

	packet, err := r.packets.Detail(ctx, packetID)
	if err != nil {
		return err
	}
	return client.Send("redPacketDetail", packet)
}

func (r *Router) handleCreateDiceGame(ctx context.Context, client *Client, _ json.RawMessage) error {
	_, err := r.dice.Create(ctx, client.UserID)
	return err
}

func (r *Router) handleJoinDiceGame(ctx context.Context, client *Client, data json.RawMessage) error {
	req, err := decode[models.JoinDiceGameRequest](data)
	if err != nil {
		return err
	}
	_, err = r.dice.Join(ctx, client.UserID, req)
	return err
}

func (r *Router) handleCreatePoll(ctx context.Context, client *Client, data json.RawMessage) error {
	req, err := decode[models.CreatePollRequest](data)
	if err != nil {
		return err
	}
	_, err = r.polls.Create(ctx, client.UserID, req)
	return err
}

func (r *Router) handleVotePoll(ctx context.Context, client *Client, data json.RawMessage) error {
	req, err := decode[models.VotePollRequest](data)
	if err != nil {
		return err
	}
	_, err = r.polls.Vote(ctx, client.UserID, req)
	return err
}

func (r *Router) handleSendLottery(ctx context.Context, client *Client, data json.RawMessage) error {
	req, err := decode[models.SendLotteryRequest](data)
	if err != nil {
		return err
	}
	_, err = r.lotteries.Create(ctx, client.UserID, req)
	return err
}

func (r *Router) handleJoinLottery(ctx context.Context, client *Client, data json.RawMessage) error {
	lotteryID, err := decodeString(data)
	if err != nil {
		return err
	}
	_, err = r.lotteries.Join(ctx, client.UserID, lotteryID)
	return err
}

func (r *Router) handleSendToast(ctx context.Context, client *Client, data json.RawMessage) error {
	req, err := decode[models.SendToastRequest](data)
	if err != nil {
		return err
	}
	_, err = r.toasts.Send(ctx, client.UserID, req)
	return err
}

func (r *Router) handleSendCheers(ctx context.Context, client *Client, _ json.RawMessage) error {
	return r.chat.Cheers(ctx)
}

func (r *Router) handleSendFireworks(ctx context.Context, client *Client, _ json.RawMessage) error {
	return r.chat.Fireworks(ctx)
}

func (r *Router) handleInitiateKickVote(ctx context.Context, client *Client, data json.RawMessage) error {
	req, err := decode[models.KickVoteRequest](data)
	if err != nil {
		return err
	}
	_, err = r.kicks.Initiate(ctx, client.UserID, req.TargetUserID)
	return err
}

func (r *Router) handleVoteKick(ctx context.Context, client *Client, data json.RawMessage) error {
	req, err := decode[models.VoteKickRequest](data)
	if err != nil {
		return err
	}
	_, err = r.kicks.Vote(ctx, client.UserID, req.KickVoteID)
	return err
}

func (r *Router) handleAdminKick(ctx context.Context, client *Client, data json.RawMessage) error {
	req, err := decode[models.KickVoteRequest](data)
	if err != nil {
		return err
	}
	return r.kicks.AdminKick(ctx, client.UserID, req.TargetUserID)
}

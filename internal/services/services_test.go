package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"chatroom-backend/internal/config"
	"chatroom-backend/internal/models"
	"chatroom-backend/internal/services"
	"chatroom-backend/internal/store"
)

// capturePublisher records events instead of pushing them through Redis so
// assertions can look at what would have been broadcast.
type capturePublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

type capturedEvent struct {
	Event string
	Data  any
}

func (p *capturePublisher) Publish(_ context.Context, event string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, capturedEvent{Event: event, Data: data})
	return nil
}

func (p *capturePublisher) count(event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ev := range p.events {
		if ev.Event == event {
			n++
		}
	}
	return n
}

// failPublisher rejects every publish to exercise error unwinding.
type failPublisher struct{}

func (failPublisher) Publish(context.Context, string, any) error {
	return errors.New("relay unavailable")
}

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()

	cfg := &config.Config{
		RedisAddr: "localhost:6379",
		RedisDB:   0,
	}

	s, err := store.New(cfg)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func addTestUser(t *testing.T, s *store.Store, id, name string, money float64) {
	t.Helper()
	ctx := context.Background()

	err := s.AddUser(ctx, &models.User{
		ID:       id,
		Name:     name,
		JoinedAt: time.Now().UnixMilli(),
		Money:    money,
	})
	if err != nil {
		t.Fatalf("failed to add test user %s: %v", id, err)
	}
	t.Cleanup(func() { s.RemoveUser(ctx, id) })
}

func TestRedPacketEndToEnd(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	pub := &capturePublisher{}

	chat := services.NewChatService(s, pub)
	engine := services.NewRedPacketEngine(s, chat, pub)

	addTestUser(t, s, "rp-sender", "Sender", 1000)
	addTestUser(t, s, "rp-grabber", "Grabber", 1000)
	addTestUser(t, s, "rp-late", "Late", 1000)

	packet, err := engine.Send(ctx, "rp-sender", &models.SendRedPacketRequest{
		Amount: 10,
		Count:  1,
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	t.Cleanup(func() { engine.Registry().Remove(ctx, packet.ID) })

	sender, _ := s.GetUser(ctx, "rp-sender")
	if sender.Money != 990 {
		t.Errorf("sender should hold 990 after sending, got %v", sender.Money)
	}

	outcome, err := engine.Grab(ctx, "rp-grabber", packet.ID)
	if err != nil {
		t.Fatalf("grab failed: %v", err)
	}
	if !outcome.Success || outcome.Amount != 10 {
		t.Fatalf("expected the single recipient to take 10, got %+v", outcome)
	}

	grabber, _ := s.GetUser(ctx, "rp-grabber")
	if grabber.Money != 1010 {
		t.Errorf("grabber should hold 1010 after the grab, got %v", grabber.Money)
	}

	late, err := engine.Grab(ctx, "rp-late", packet.ID)
	if err != nil {
		t.Fatalf("late grab errored: %v", err)
	}
	if late.Success || late.Reason != store.GrabReasonDepleted {
		t.Errorf("expected Depleted for the late grabber, got %+v", late)
	}

	if pub.count(services.EventNewMessage) != 1 {
		t.Error("sending a packet should post exactly one chat message")
	}
	if pub.count(services.EventRedPacketGrabbed) != 1 {
		t.Error("only the successful grab should broadcast redPacketGrabbed")
	}
}

func TestRedPacketSendRejectsBadInput(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	pub := &capturePublisher{}

	chat := services.NewChatService(s, pub)
	engine := services.NewRedPacketEngine(s, chat, pub)

	addTestUser(t, s, "rp-poor", "Poor", 5)

	if _, err := engine.Send(ctx, "rp-poor", &models.SendRedPacketRequest{Amount: 10, Count: 2}); !errors.Is(err, services.ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}

	user, _ := s.GetUser(ctx, "rp-poor")
	if user.Money != 5 {
		t.Errorf("a rejected send must not touch the balance, got %v", user.Money)
	}

	if _, err := engine.Send(ctx, "rp-poor", &models.SendRedPacketRequest{Amount: 0, Count: 2}); err == nil {
		t.Error("zero amount should be rejected")
	}
	if _, err := engine.Send(ctx, "rp-poor", &models.SendRedPacketRequest{Amount: 1, Count: 0}); err == nil {
		t.Error("zero count should be rejected")
	}
}

func TestDiceGameSettlement(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	pub := &capturePublisher{}

	chat := services.NewChatService(s, pub)
	engine := services.NewDiceEngine(s, chat, pub)
	engine.SetRoll(func() int { return 2 })

	addTestUser(t, s, "dice-a", "A", 1000)
	addTestUser(t, s, "dice-b", "B", 1000)
	addTestUser(t, s, "dice-c", "C", 1000)

	game, err := engine.Create(ctx, "dice-a")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	t.Cleanup(func() { engine.Registry().Remove(ctx, game.ID) })

	if _, err := engine.Join(ctx, "dice-a", &models.JoinDiceGameRequest{
		DiceGameID: game.ID, BetType: models.BetLeopard, Amount: 10,
	}); err != nil {
		t.Fatalf("join a failed: %v", err)
	}

	// Duplicate join is rejected without touching the balance again.
	if _, err := engine.Join(ctx, "dice-a", &models.JoinDiceGameRequest{
		DiceGameID: game.ID, BetType: models.BetBig, Amount: 10,
	}); !errors.Is(err, services.ErrAlreadyDone) {
		t.Errorf("expected ErrAlreadyDone for a duplicate join, got %v", err)
	}

	if _, err := engine.Join(ctx, "dice-b", &models.JoinDiceGameRequest{
		DiceGameID: game.ID, BetType: models.BetBig, Amount: 10,
	}); err != nil {
		t.Fatalf("join b failed: %v", err)
	}

	final, err := engine.Join(ctx, "dice-c", &models.JoinDiceGameRequest{
		DiceGameID: game.ID, BetType: models.BetSmall, Amount: 10,
	})
	if err != nil {
		t.Fatalf("join c failed: %v", err)
	}

	if final.Status != models.StatusFinished {
		t.Fatal("third join must settle the game")
	}
	if final.Result == nil || final.Result.Result != models.BetLeopard {
		t.Fatalf("roll (2,2,2) must classify as leopard, got %+v", final.Result)
	}
	if len(final.Result.Winners) != 1 || final.Result.Winners[0].UserID != "dice-a" {
		t.Fatalf("expected only the leopard bettor to win, got %+v", final.Result.Winners)
	}
	if final.Result.Winners[0].WinAmount != 250 {
		t.Errorf("leopard stake 10 must pay 250 total, got %v", final.Result.Winners[0].WinAmount)
	}

	a, _ := s.GetUser(ctx, "dice-a")
	if a.Money != 1240 {
		t.Errorf("winner balance should be 1240 (1000 - 10 + 250), got %v", a.Money)
	}
	b, _ := s.GetUser(ctx, "dice-b")
	if b.Money != 990 {
		t.Errorf("loser balance should be 990, got %v", b.Money)
	}

	// Joining a finished game is rejected, and the status never reverts.
	if _, err := engine.Join(ctx, "dice-b", &models.JoinDiceGameRequest{
		DiceGameID: game.ID, BetType: models.BetBig, Amount: 10,
	}); !errors.Is(err, services.ErrAlreadyDone) {
		t.Errorf("expected ErrAlreadyDone after settlement, got %v", err)
	}
	reread, _ := engine.Registry().Get(ctx, game.ID)
	if reread.Status != models.StatusFinished {
		t.Error("settled game must stay finished")
	}
}

func TestDiceJoinRejectsFullActiveGame(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	pub := &capturePublisher{}

	chat := services.NewChatService(s, pub)
	engine := services.NewDiceEngine(s, chat, pub)

	addTestUser(t, s, "dice-4th", "Fourth", 1000)

	// An active game already holding three participants: the state another
	// worker sees between the third join landing and settlement flipping the
	// status.
	game := &models.DiceGame{
		ID:          "dice-full-game",
		CreatorID:   "dice-p1",
		CreatorName: "P1",
		Participants: []models.DiceParticipant{
			{UserID: "dice-p1", UserName: "P1", BetType: models.BetBig, BetAmount: 10},
			{UserID: "dice-p2", UserName: "P2", BetType: models.BetSmall, BetAmount: 10},
			{UserID: "dice-p3", UserName: "P3", BetType: models.BetLeopard, BetAmount: 10},
		},
		Status:    models.StatusActive,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := engine.Registry().Create(ctx, game.ID, game); err != nil {
		t.Fatalf("failed to seed game: %v", err)
	}
	t.Cleanup(func() { engine.Registry().Remove(ctx, game.ID) })

	_, err := engine.Join(ctx, "dice-4th", &models.JoinDiceGameRequest{
		DiceGameID: game.ID, BetType: models.BetBig, Amount: 10,
	})
	if !errors.Is(err, services.ErrAlreadyDone) {
		t.Fatalf("expected ErrAlreadyDone for a join on a full game, got %v", err)
	}

	reread, _ := engine.Registry().Get(ctx, game.ID)
	if len(reread.Participants) != 3 {
		t.Errorf("participant cap breached: %d participants", len(reread.Participants))
	}
	fourth, _ := s.GetUser(ctx, "dice-4th")
	if fourth.Money != 1000 {
		t.Errorf("rejected join must not debit the stake, got %v", fourth.Money)
	}
}

func TestDiceJoinRequiresFunds(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	pub := &capturePublisher{}

	chat := services.NewChatService(s, pub)
	engine := services.NewDiceEngine(s, chat, pub)

	addTestUser(t, s, "dice-broke", "Broke", 1)

	game, err := engine.Create(ctx, "dice-broke")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	t.Cleanup(func() { engine.Registry().Remove(ctx, game.ID) })

	_, err = engine.Join(ctx, "dice-broke", &models.JoinDiceGameRequest{
		DiceGameID: game.ID, BetType: models.BetBig, Amount: 100,
	})
	if !errors.Is(err, services.ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestPollVoting(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	pub := &capturePublisher{}

	chat := services.NewChatService(s, pub)
	engine := services.NewPollEngine(s, chat, pub)

	addTestUser(t, s, "poll-owner", "Owner", 1000)
	addTestUser(t, s, "poll-voter", "Voter", 1000)

	poll, err := engine.Create(ctx, "poll-owner", &models.CreatePollRequest{
		Title:   "tea or coffee",
		Options: []string{"tea", "coffee"},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	t.Cleanup(func() { engine.Registry().Remove(ctx, poll.ID) })

	voted, err := engine.Vote(ctx, "poll-voter", &models.VotePollRequest{PollID: poll.ID, OptionID: 1})
	if err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	if voted.Options[1].Count != 1 || voted.Voters["poll-voter"] != 1 {
		t.Errorf("vote not recorded: %+v", voted)
	}

	if _, err := engine.Vote(ctx, "poll-voter", &models.VotePollRequest{PollID: poll.ID, OptionID: 0}); !errors.Is(err, services.ErrAlreadyDone) {
		t.Errorf("expected ErrAlreadyDone for a second vote, got %v", err)
	}

	if _, err := engine.Vote(ctx, "poll-owner", &models.VotePollRequest{PollID: poll.ID, OptionID: 9}); err == nil {
		t.Error("unknown option should be rejected")
	}

	final, _ := engine.Registry().Get(ctx, poll.ID)
	totalCount := 0
	for _, opt := range final.Options {
		totalCount += opt.Count
	}
	if totalCount != len(final.Voters) {
		t.Errorf("option counts (%d) must equal voter count (%d)", totalCount, len(final.Voters))
	}
}

func TestLotteryDraw(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	pub := &capturePublisher{}

	chat := services.NewChatService(s, pub)
	engine := services.NewLotteryEngine(s, chat, pub)
	engine.SetPick(func(n int) int { return 0 })

	addTestUser(t, s, "lot-owner", "Owner", 1000)
	addTestUser(t, s, "lot-p1", "P1", 1000)
	addTestUser(t, s, "lot-p2", "P2", 1000)
	addTestUser(t, s, "lot-late", "Late", 1000)

	lottery, err := engine.Create(ctx, "lot-owner", &models.SendLotteryRequest{
		PrizeImage:      "prize.png",
		ContactInfo:     "room 404",
		MaxParticipants: 2,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	t.Cleanup(func() { engine.Registry().Remove(ctx, lottery.ID) })

	if _, err := engine.Join(ctx, "lot-p1", lottery.ID); err != nil {
		t.Fatalf("first join failed: %v", err)
	}

	if _, err := engine.Join(ctx, "lot-p1", lottery.ID); !errors.Is(err, services.ErrAlreadyDone) {
		t.Errorf("expected ErrAlreadyDone for a repeat join, got %v", err)
	}

	full, err := engine.Join(ctx, "lot-p2", lottery.ID)
	if err != nil {
		t.Fatalf("final join failed: %v", err)
	}
	if full.Status != models.StatusFinished {
		t.Fatal("reaching maxParticipants must finish the lottery")
	}
	if full.WinnerID != "lot-p1" {
		t.Errorf("pick(0) should make the first participant win, got %s", full.WinnerID)
	}
	if snap := full.Snapshot(); snap.ContactInfo != "room 404" {
		t.Error("contact info must be revealed after the draw")
	}

	if _, err := engine.Join(ctx, "lot-late", lottery.ID); !errors.Is(err, services.ErrAlreadyDone) {
		t.Errorf("expected ErrAlreadyDone after the draw, got %v", err)
	}
}

func TestKickVoteFlow(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	pub := &capturePublisher{}

	chat := services.NewChatService(s, pub)
	engine := services.NewKickVoteEngine(s, chat, pub)

	addTestUser(t, s, "kick-a", "A", 1000)
	addTestUser(t, s, "kick-b", "B", 1000)
	addTestUser(t, s, "kick-c", "C", 1000)
	addTestUser(t, s, "kick-d", "D", 1000)
	t.Cleanup(func() { s.ReleaseKickVoteLock(ctx, "kick-b") })

	if _, err := engine.Initiate(ctx, "kick-a", "kick-a"); !errors.Is(err, services.ErrSelfTarget) {
		t.Errorf("expected ErrSelfTarget, got %v", err)
	}

	vote, err := engine.Initiate(ctx, "kick-a", "kick-b")
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	t.Cleanup(func() { engine.Registry().Remove(ctx, vote.ID) })

	if len(vote.Votes) != 1 || vote.Votes[0] != "kick-a" {
		t.Fatalf("initiator's vote must count, got %+v", vote.Votes)
	}

	// A second vote against the same target is blocked by the lock.
	if _, err := engine.Initiate(ctx, "kick-c", "kick-b"); !errors.Is(err, services.ErrVoteInProgress) {
		t.Errorf("expected ErrVoteInProgress, got %v", err)
	}

	// The target cannot vote for their own removal.
	if _, err := engine.Vote(ctx, "kick-b", vote.ID); !errors.Is(err, services.ErrSelfTarget) {
		t.Errorf("expected ErrSelfTarget for the target's vote, got %v", err)
	}

	// Duplicate votes are rejected.
	if _, err := engine.Vote(ctx, "kick-a", vote.ID); !errors.Is(err, services.ErrAlreadyDone) {
		t.Errorf("expected ErrAlreadyDone for a duplicate vote, got %v", err)
	}

	if _, err := engine.Vote(ctx, "kick-c", vote.ID); err != nil {
		t.Fatalf("second vote failed: %v", err)
	}

	final, err := engine.Vote(ctx, "kick-d", vote.ID)
	if err != nil {
		t.Fatalf("third vote failed: %v", err)
	}
	if final.Status != models.StatusSuccess {
		t.Fatal("third vote must flip the vote to success")
	}

	if _, err := s.GetUser(ctx, "kick-b"); !errors.Is(err, store.ErrNotFound) {
		t.Error("target must be removed from the user roster")
	}
	if n := pub.count(services.EventForceDisconnect); n != 1 {
		t.Errorf("target must be force-disconnected exactly once, got %d", n)
	}
	if n := pub.count(services.EventClearUserMessages); n != 1 {
		t.Errorf("target's messages must be tombstoned exactly once, got %d", n)
	}

	// The forced close unwinds the target's read loop, which runs the normal
	// disconnect cleanup. The record is already gone, so no second userLeft.
	if err := chat.Disconnect(ctx, "kick-b"); err != nil {
		t.Fatalf("cleanup after the forced close errored: %v", err)
	}
	if n := pub.count(services.EventUserLeft); n != 1 {
		t.Errorf("a kicked user must produce exactly one userLeft, got %d", n)
	}

	// Voting on a resolved vote is rejected and the status never reverts.
	if _, err := engine.Vote(ctx, "kick-c", vote.ID); !errors.Is(err, services.ErrAlreadyDone) {
		t.Errorf("expected ErrAlreadyDone on a resolved vote, got %v", err)
	}
	reread, _ := engine.Registry().Get(ctx, vote.ID)
	if reread.Status != models.StatusSuccess {
		t.Error("resolved vote must stay successful")
	}
}

func TestKickVoteInitiateFailureReleasesLock(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	// Posting the announcement fails, so the initiate must unwind: no vote
	// entity left behind and no lock still blocking the target.
	brokenChat := services.NewChatService(s, failPublisher{})
	broken := services.NewKickVoteEngine(s, brokenChat, failPublisher{})

	addTestUser(t, s, "kick-fail-a", "A", 1000)
	addTestUser(t, s, "kick-fail-b", "B", 1000)
	t.Cleanup(func() { s.ReleaseKickVoteLock(ctx, "kick-fail-b") })

	if _, err := broken.Initiate(ctx, "kick-fail-a", "kick-fail-b"); err == nil {
		t.Fatal("initiate should fail when the announcement cannot be posted")
	}

	pub := &capturePublisher{}
	chat := services.NewChatService(s, pub)
	engine := services.NewKickVoteEngine(s, chat, pub)

	vote, err := engine.Initiate(ctx, "kick-fail-a", "kick-fail-b")
	if err != nil {
		t.Fatalf("target should not stay locked after a failed initiate: %v", err)
	}
	t.Cleanup(func() { engine.Registry().Remove(ctx, vote.ID) })

	all, err := engine.Registry().All(ctx)
	if err != nil {
		t.Fatalf("failed to list votes: %v", err)
	}
	for _, v := range all {
		if v.TargetUserID == "kick-fail-b" && v.ID != vote.ID {
			t.Errorf("failed initiate left a stray vote behind: %s", v.ID)
		}
	}
}

func TestChatService(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	pub := &capturePublisher{}

	chat := services.NewChatService(s, pub)

	user, snapshot, err := chat.Connect(ctx, "chat-conn-1")
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	t.Cleanup(func() { s.RemoveUser(ctx, "chat-conn-1") })

	if user.Money != models.StartingMoney {
		t.Errorf("new user should start with %v, got %v", models.StartingMoney, user.Money)
	}
	if snapshot == nil {
		t.Fatal("connect must return an init snapshot")
	}

	if _, err := chat.UpdateName(ctx, user.ID, "Fresh Name"); err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if _, err := chat.UpdateName(ctx, user.ID, ""); err == nil {
		t.Error("empty name should be rejected")
	}
	if _, err := chat.UpdateName(ctx, user.ID, "this name is far longer than twenty characters"); err == nil {
		t.Error("overlong name should be rejected")
	}

	msg, err := chat.SendMessage(ctx, user.ID, &models.SendMessageRequest{Text: "hello"})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if msg.SenderName != "Fresh Name" {
		t.Errorf("message should carry the updated name, got %q", msg.SenderName)
	}

	if _, err := chat.SendMessage(ctx, user.ID, &models.SendMessageRequest{Text: "   "}); err == nil {
		t.Error("blank message should be rejected")
	}

	if err := chat.Disconnect(ctx, user.ID); err != nil {
		t.Fatalf("disconnect failed: %v", err)
	}
	if _, err := s.GetUser(ctx, user.ID); !errors.Is(err, store.ErrNotFound) {
		t.Error("disconnect must remove the user record")
	}
}

func TestSweeperEvictsExpired(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	toasts := store.NewRegistry[models.Toast](s, models.EntityToast)
	old := &models.Toast{ID: "sweep-old-toast", Timestamp: time.Now().Add(-time.Hour).UnixMilli()}
	if err := toasts.Create(ctx, old.ID, old); err != nil {
		t.Fatalf("failed to seed toast: %v", err)
	}
	t.Cleanup(func() { toasts.Remove(ctx, old.ID) })

	sweeper := services.NewSweeper(s, "test-worker", 30*time.Minute, time.Minute, toasts)
	sweeper.SweepOnce(ctx)

	if _, err := toasts.Get(ctx, old.ID); !errors.Is(err, store.ErrNotFound) {
		t.Error("sweeper should have evicted the stale toast")
	}
}

// Companion event payloads must marshal cleanly; a broken envelope would
// silently strand every other worker.
func TestEventEnvelopeRoundTrip(t *testing.T) {
	payload, err := json.Marshal(services.ForceDisconnectPayload{UserID: "u1", Reason: "voted out"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded services.ForceDisconnectPayload
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.UserID != "u1" || decoded.Reason != "voted out" {
		t.Errorf("round-trip mismatch: %+v", decoded)
	}
}

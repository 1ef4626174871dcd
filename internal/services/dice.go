package services

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"chatroom-backend/internal/models"
	"chatroom-backend/internal/store"
)

// DiceEngine runs the three-player big/small settlement game. Joining is
// guarded inside the registry transform; settlement fires exactly once when
// the third participant lands, guarded by the active->finished flip in the
// same transform.
type DiceEngine struct {
	store *store.Store
	games *store.Registry[models.DiceGame]
	chat  *ChatService
	pub   Publisher

	// roll returns one die in [1,6]; swapped out in tests.
	roll func() int
}

func NewDiceEngine(s *store.Store, chat *ChatService, pub Publisher) *DiceEngine {
	return &DiceEngine{
		store: s,
		games: store.NewRegistry[models.DiceGame](s, models.EntityDiceGame),
		chat:  chat,
		pub:   pub,
		roll:  func() int { return rand.Intn(6) + 1 },
	}
}

func (e *DiceEngine) Registry() *store.Registry[models.DiceGame] {
	return e.games
}

// SetRoll replaces the die for deterministic settlement in tests.
func (e *DiceEngine) SetRoll(roll func() int) {
	e.roll = roll
}

func (e *DiceEngine) Create(ctx context.Context, creatorID string) (*models.DiceGame, error) {
	user, err := e.store.GetUser(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	game := &models.DiceGame{
		ID:           models.NewEntityID(),
		CreatorID:    user.ID,
		CreatorName:  user.Name,
		Participants: []models.DiceParticipant{},
		Status:       models.StatusActive,
		Timestamp:    time.Now().UnixMilli(),
	}

	if err := e.games.Create(ctx, game.ID, game); err != nil {
		return nil, err
	}

	err = e.chat.Post(ctx, &models.Message{
		ID:           models.NewMessageID(),
		Text:         "started a big/small dice game",
		SenderID:     user.ID,
		SenderName:   user.Name,
		Timestamp:    time.Now().UnixMilli(),
		Type:         models.MessageTypeDiceGame,
		DiceGameID:   game.ID,
		DiceGameData: game.Snapshot(),
	})
	if err != nil {
		return nil, err
	}

	return game, nil
}

// Join debits the bettor and appends them to the game. The third distinct
// participant triggers settlement.
func (e *DiceEngine) Join(ctx context.Context, userID string, req *models.JoinDiceGameRequest) (*models.DiceGame, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Money < req.Amount {
		return nil, ErrInsufficientFunds
	}

	game, err := e.games.Update(ctx, req.DiceGameID, func(g *models.DiceGame) error {
		if g.Status != models.StatusActive {
			return ErrAlreadyDone
		}
		// The cap check must live in the transform too: between the third
		// join's commit and the settle flip on another worker, the game is
		// still active but already full.
		if len(g.Participants) >= models.MaxDiceParticipants {
			return ErrAlreadyDone
		}
		for _, p := range g.Participants {
			if p.UserID == user.ID {
				return ErrAlreadyDone
			}
		}
		g.Participants = append(g.Participants, models.DiceParticipant{
			UserID:    user.ID,
			UserName:  user.Name,
			BetType:   req.BetType,
			BetAmount: req.Amount,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The stake debit is a separate write after the join; see the engine
	// doc comment for the accepted crash window.
	updated, err := e.store.UpdateUser(ctx, userID, func(u *models.User) {
		u.Money = models.RoundCents(u.Money - req.Amount)
	})
	if err != nil {
		return nil, err
	}
	e.pub.Publish(ctx, EventUserUpdated, updated)

	e.publishGameUpdate(ctx, game)

	if len(game.Participants) >= models.MaxDiceParticipants {
		return e.settle(ctx, game.ID)
	}
	return game, nil
}

// settle rolls the dice, flips the game to finished and credits the
// winners. The status guard runs inside the same transform as the flip, so
// two racing joins cannot settle twice.
func (e *DiceEngine) settle(ctx context.Context, gameID string) (*models.DiceGame, error) {
	game, err := e.games.Update(ctx, gameID, func(g *models.DiceGame) error {
		if g.Status != models.StatusActive {
			return ErrAlreadyDone
		}
		g.Status = models.StatusFinished

		dice := [3]int{e.roll(), e.roll(), e.roll()}
		result := ClassifyDice(dice)

		winners := []models.DiceWinner{}
		for _, p := range g.Participants {
			win := DicePayout(p.BetType, p.BetAmount, result)
			if win > 0 {
				winners = append(winners, models.DiceWinner{
					UserID:    p.UserID,
					UserName:  p.UserName,
					BetType:   p.BetType,
					BetAmount: p.BetAmount,
					WinAmount: win,
				})
			}
		}

		g.Result = &models.DiceResult{
			Dice:    dice,
			Total:   dice[0] + dice[1] + dice[2],
			Result:  result,
			Winners: winners,
		}
		return nil
	})
	if errors.Is(err, ErrAlreadyDone) {
		// Lost the settlement race; the other worker pays out.
		return e.games.Get(ctx, gameID)
	}
	if err != nil {
		return nil, err
	}

	for _, w := range game.Result.Winners {
		// A winner who disconnected before settlement has no user record
		// left and forfeits the payout. Inherited behavior, kept as-is.
		updated, err := e.store.UpdateUser(ctx, w.UserID, func(u *models.User) {
			u.Money = models.RoundCents(u.Money + w.WinAmount)
		})
		if err != nil {
			continue
		}
		e.pub.Publish(ctx, EventUserUpdated, updated)
	}

	e.publishGameUpdate(ctx, game)
	return game, nil
}

func (e *DiceEngine) publishGameUpdate(ctx context.Context, game *models.DiceGame) {
	e.pub.Publish(ctx, EventDiceGameUpdated, map[string]any{
		"diceGameId":   game.ID,
		"diceGameData": game.Snapshot(),
	})
}

// ClassifyDice maps a roll to its outcome: three equal dice are a leopard,
// totals 4-10 are small and 11-17 are big. Totals 3 and 18 only occur as
// leopards, so every roll classifies.
func ClassifyDice(dice [3]int) models.BetType {
	if dice[0] == dice[1] && dice[1] == dice[2] {
		return models.BetLeopard
	}
	total := dice[0] + dice[1] + dice[2]
	if total <= 10 {
		return models.BetSmall
	}
	return models.BetBig
}

// DicePayout returns the total credited to a bettor for a result: 25x the
// stake for a matching leopard, 2x for matching big/small (stake returned
// plus equal winnings), zero otherwise.
func DicePayout(bet models.BetType, stake float64, result models.BetType) float64 {
	if bet != result {
		return 0
	}
	if result == models.BetLeopard {
		return stake * 25
	}
	return stake * 2
}

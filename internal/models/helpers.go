package models

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

func NewEntityID() string {
	return fmt.Sprintf("%d_%d", time.Now().UnixMilli(), uuid.New().ID())
}

func NewMessageID() string {
	return fmt.Sprintf("msg_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

var guestAdjectives = []string{
	"Quiet", "Witty", "Brave", "Sleepy", "Lucky", "Salty",
	"Dizzy", "Merry", "Sunny", "Grumpy", "Nimble", "Mellow",
}

var guestNouns = []string{
	"Otter", "Falcon", "Panda", "Badger", "Tiger", "Sparrow",
	"Walrus", "Lynx", "Heron", "Beaver", "Magpie", "Marmot",
}

// NewGuestName produces the throwaway display name a connection starts with.
func NewGuestName() string {
	return fmt.Sprintf("%s%s-%03d",
		guestAdjectives[rand.Intn(len(guestAdjectives))],
		guestNouns[rand.Intn(len(guestNouns))],
		rand.Intn(1000))
}

// RoundCents rounds half-up to two decimal places.
func RoundCents(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

// FloorCents truncates to two decimal places.
func FloorCents(v float64) float64 {
	return math.Floor(v*100) / 100
}

func (r *SendRedPacketRequest) Validate() error {
	if r.Amount <= 0 {
		return fmt.Errorf("amount must be greater than zero")
	}
	if r.Count <= 0 {
		return fmt.Errorf("count must be greater than zero")
	}
	return nil
}

func (r *JoinDiceGameRequest) Validate() error {
	if r.Amount <= 0 {
		return fmt.Errorf("bet amount must be greater than zero")
	}
	switch r.BetType {
	case BetBig, BetSmall, BetLeopard:
	default:
		return fmt.Errorf("invalid bet type: %s", r.BetType)
	}
	return nil
}

func (r *CreatePollRequest) Validate() error {
	if r.Title == "" {
		return fmt.Errorf("poll title is required")
	}
	if len(r.Options) < 2 {
		return fmt.Errorf("poll needs at least 2 options")
	}
	return nil
}

func (r *SendLotteryRequest) Validate() error {
	if r.MaxParticipants <= 0 {
		return fmt.Errorf("maxParticipants must be greater than zero")
	}
	return nil
}

package models

// EntityType tags one of the shared mutable record kinds. Each type maps to
// its own hash in the store.
type EntityType string

const (
	EntityRedPacket EntityType = "redPacket"
	EntityDiceGame  EntityType = "diceGame"
	EntityPoll      EntityType = "poll"
	EntityLottery   EntityType = "lottery"
	EntityToast     EntityType = "toast"
	EntityKickVote  EntityType = "kickVote"
)

// Entity is implemented by every shared record so the sweeper can evict by age.
type Entity interface {
	CreatedAtMillis() int64
}

type Status string

const (
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
	StatusSuccess  Status = "success"
)

// RedPacket is a lucky-money disbursement. Conservation invariant:
// RemainingAmount + sum(GrabbedList[].Amount) == TotalAmount to the cent,
// and RemainingCount == TotalCount - len(GrabbedList). Mutated only through
// the atomic grab script.
type RedPacket struct {
	ID              string       `json:"id"`
	SenderID        string       `json:"senderId"`
	SenderName      string       `json:"senderName"`
	TotalAmount     float64      `json:"totalAmount"`
	TotalCount      int          `json:"totalCount"`
	RemainingAmount float64      `json:"remainingAmount"`
	RemainingCount  int          `json:"remainingCount"`
	Message         string       `json:"message"`
	GrabbedList     []GrabRecord `json:"grabbedList"`
	Timestamp       int64        `json:"timestamp"`
}

type GrabRecord struct {
	UserID    string  `json:"userId"`
	UserName  string  `json:"userName"`
	Amount    float64 `json:"amount"`
	Timestamp int64   `json:"timestamp"`
}

func (p RedPacket) CreatedAtMillis() int64 { return p.Timestamp }

type BetType string

const (
	BetBig     BetType = "big"
	BetSmall   BetType = "small"
	BetLeopard BetType = "leopard"
)

// DiceGame settles automatically when the 3rd distinct participant joins.
type DiceGame struct {
	ID           string            `json:"id"`
	CreatorID    string            `json:"creatorId"`
	CreatorName  string            `json:"creatorName"`
	Participants []DiceParticipant `json:"participants"`
	Status       Status            `json:"status"`
	Result       *DiceResult       `json:"result,omitempty"`
	Timestamp    int64             `json:"timestamp"`
}

type DiceParticipant struct {
	UserID    string  `json:"userId"`
	UserName  string  `json:"userName"`
	BetType   BetType `json:"betType"`
	BetAmount float64 `json:"betAmount"`
}

type DiceResult struct {
	Dice    [3]int       `json:"dice"`
	Total   int          `json:"total"`
	Result  BetType      `json:"result"`
	Winners []DiceWinner `json:"winners"`
}

type DiceWinner struct {
	UserID    string  `json:"userId"`
	UserName  string  `json:"userName"`
	BetType   BetType `json:"betType"`
	BetAmount float64 `json:"betAmount"`
	WinAmount float64 `json:"winAmount"`
}

func (g DiceGame) CreatedAtMillis() int64 { return g.Timestamp }

// MaxDiceParticipants triggers settlement when reached.
const MaxDiceParticipants = 3

type Poll struct {
	ID          string       `json:"id"`
	CreatorID   string       `json:"creatorId"`
	CreatorName string       `json:"creatorName"`
	Title       string       `json:"title"`
	Options     []PollOption `json:"options"`
	// Voters maps user id to the option id they picked; a user appears at
	// most once, so sum(Options[].Count) == len(Voters).
	Voters    map[string]int `json:"voters"`
	Timestamp int64          `json:"timestamp"`
}

type PollOption struct {
	ID    int    `json:"id"`
	Text  string `json:"text"`
	Count int    `json:"count"`
}

func (p Poll) CreatedAtMillis() int64 { return p.Timestamp }

type Lottery struct {
	ID              string               `json:"id"`
	CreatorID       string               `json:"creatorId"`
	CreatorName     string               `json:"creatorName"`
	PrizeImage      string               `json:"prizeImage"`
	ContactInfo     string               `json:"contactInfo"`
	MaxParticipants int                  `json:"maxParticipants"`
	Participants    []LotteryParticipant `json:"participants"`
	WinnerID        string               `json:"winnerId,omitempty"`
	WinnerName      string               `json:"winnerName,omitempty"`
	Status          Status               `json:"status"`
	Timestamp       int64                `json:"timestamp"`
}

type LotteryParticipant struct {
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Timestamp int64  `json:"timestamp"`
}

func (l Lottery) CreatedAtMillis() int64 { return l.Timestamp }

type Toast struct {
	ID          string `json:"id"`
	CreatorID   string `json:"creatorId"`
	CreatorName string `json:"creatorName"`
	Image       string `json:"image"`
	Timestamp   int64  `json:"timestamp"`
}

func (t Toast) CreatedAtMillis() int64 { return t.Timestamp }

type KickVote struct {
	ID             string   `json:"id"`
	TargetUserID   string   `json:"targetUserId"`
	TargetUserName string   `json:"targetUserName"`
	InitiatorID    string   `json:"initiatorId"`
	Votes          []string `json:"votes"`
	RequiredVotes  int      `json:"requiredVotes"`
	Status         Status   `json:"status"`
	Timestamp      int64    `json:"timestamp"`
}

func (v KickVote) CreatedAtMillis() int64 { return v.Timestamp }

// RequiredKickVotes is the fixed threshold for a kick vote to succeed.
const RequiredKickVotes = 3

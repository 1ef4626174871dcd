package models

type MessageType string

const (
	MessageTypeUser      MessageType = "user"
	MessageTypeSystem    MessageType = "system"
	MessageTypeRedPacket MessageType = "redPacket"
	MessageTypeDiceGame  MessageType = "diceGame"
	MessageTypePoll      MessageType = "poll"
	MessageTypeLottery   MessageType = "lottery"
	MessageTypeToast     MessageType = "toast"
	MessageTypeKickVote  MessageType = "kickVote"
)

const (
	SystemSenderID   = "system"
	SystemSenderName = "System"
)

// Message is one entry of the append-only chat log. Entries are immutable
// once appended; live activity cards (poll/lottery/dice/kick-vote) are
// refreshed on the client through companion "updated" events instead of
// rewriting the log.
type Message struct {
	ID         string      `json:"id"`
	Text       string      `json:"text"`
	Image      string      `json:"image,omitempty"`
	Quote      *Quote      `json:"quote,omitempty"`
	Mentions   []string    `json:"mentions,omitempty"`
	SenderID   string      `json:"senderId"`
	SenderName string      `json:"senderName"`
	Timestamp  int64       `json:"timestamp"`
	Type       MessageType `json:"type"`

	RedPacketID  string            `json:"redPacketId,omitempty"`
	DiceGameID   string            `json:"diceGameId,omitempty"`
	DiceGameData *DiceGameSnapshot `json:"diceGameData,omitempty"`
	PollID       string            `json:"pollId,omitempty"`
	PollData     *PollSnapshot     `json:"pollData,omitempty"`
	LotteryID    string            `json:"lotteryId,omitempty"`
	LotteryData  *LotterySnapshot  `json:"lotteryData,omitempty"`
	ToastID      string            `json:"toastId,omitempty"`
	ToastData    *ToastSnapshot    `json:"toastData,omitempty"`
	KickVoteID   string            `json:"kickVoteId,omitempty"`
	KickVoteData *KickVoteSnapshot `json:"kickVoteData,omitempty"`
}

// Quote references an earlier message inside a reply.
type Quote struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	SenderName string `json:"senderName"`
}

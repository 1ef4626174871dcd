package models

// Inbound websocket event payloads.

type SendMessageRequest struct {
	Text     string   `json:"text"`
	Image    string   `json:"image,omitempty"`
	Quote    *Quote   `json:"quote,omitempty"`
	Mentions []string `json:"mentions,omitempty"`
}

type UpdateNameRequest struct {
	Name string `json:"name"`
}

type SendRedPacketRequest struct {
	Amount  float64 `json:"amount"`
	Count   int     `json:"count"`
	Message string  `json:"message"`
}

type GrabRedPacketRequest struct {
	RedPacketID string `json:"redPacketId"`
}

type JoinDiceGameRequest struct {
	DiceGameID string  `json:"gameId"`
	BetType    BetType `json:"betType"`
	Amount     float64 `json:"amount"`
}

type CreatePollRequest struct {
	Title   string   `json:"title"`
	Options []string `json:"options"`
}

type VotePollRequest struct {
	PollID   string `json:"pollId"`
	OptionID int    `json:"optionId"`
}

type SendLotteryRequest struct {
	PrizeImage      string `json:"prizeImage"`
	ContactInfo     string `json:"contactInfo"`
	MaxParticipants int    `json:"maxParticipants"`
}

type JoinLotteryRequest struct {
	LotteryID string `json:"lotteryId"`
}

type SendToastRequest struct {
	Image string `json:"image"`
}

type KickVoteRequest struct {
	TargetUserID string `json:"targetUserId"`
}

type VoteKickRequest struct {
	KickVoteID string `json:"voteId"`
}

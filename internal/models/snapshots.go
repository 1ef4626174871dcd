package models

// Snapshots are the denormalized activity summaries embedded in chat
// messages and in the companion "updated" broadcasts. They carry only what
// clients render, never server-side secrets (a lottery's contact info is
// withheld until the draw finishes).

type DiceGameSnapshot struct {
	Participants []DiceParticipant `json:"participants"`
	Status       Status            `json:"status"`
	Result       *DiceResult       `json:"result,omitempty"`
}

type PollSnapshot struct {
	Title      string       `json:"title"`
	Options    []PollOption `json:"options"`
	TotalVotes int          `json:"totalVotes"`
	Voters     []string     `json:"voters,omitempty"`
}

type LotterySnapshot struct {
	PrizeImage          string `json:"prizeImage,omitempty"`
	MaxParticipants     int    `json:"maxParticipants"`
	CurrentParticipants int    `json:"currentParticipants"`
	Status              Status `json:"status"`
	WinnerID            string `json:"winnerId,omitempty"`
	WinnerName          string `json:"winnerName,omitempty"`
	ContactInfo         string `json:"contactInfo,omitempty"`
}

type ToastSnapshot struct {
	Image string `json:"image"`
}

type KickVoteSnapshot struct {
	TargetUserID   string   `json:"targetUserId"`
	TargetUserName string   `json:"targetUserName"`
	Votes          []string `json:"votes"`
	RequiredVotes  int      `json:"requiredVotes"`
	Status         Status   `json:"status"`
}

func (g *DiceGame) Snapshot() *DiceGameSnapshot {
	return &DiceGameSnapshot{
		Participants: g.Participants,
		Status:       g.Status,
		Result:       g.Result,
	}
}

func (p *Poll) Snapshot() *PollSnapshot {
	voters := make([]string, 0, len(p.Voters))
	for id := range p.Voters {
		voters = append(voters, id)
	}
	return &PollSnapshot{
		Title:      p.Title,
		Options:    p.Options,
		TotalVotes: len(p.Voters),
		Voters:     voters,
	}
}

// Snapshot hides ContactInfo and PrizeImage details appropriately: the
// contact info is only revealed once the lottery has finished.
func (l *Lottery) Snapshot() *LotterySnapshot {
	s := &LotterySnapshot{
		PrizeImage:          l.PrizeImage,
		MaxParticipants:     l.MaxParticipants,
		CurrentParticipants: len(l.Participants),
		Status:              l.Status,
		WinnerID:            l.WinnerID,
		WinnerName:          l.WinnerName,
	}
	if l.Status == StatusFinished {
		s.ContactInfo = l.ContactInfo
	}
	return s
}

func (v *KickVote) Snapshot() *KickVoteSnapshot {
	return &KickVoteSnapshot{
		TargetUserID:   v.TargetUserID,
		TargetUserName: v.TargetUserName,
		Votes:          v.Votes,
		RequiredVotes:  v.RequiredVotes,
		Status:         v.Status,
	}
}

package models

// User is the shared record for one live connection. It exists in the
// store only while the connection is open and is removed on disconnect.
type User struct {
	ID       string  `json:"id" redis:"id"`
	Name     string  `json:"name" redis:"name"`
	JoinedAt int64   `json:"joinedAt" redis:"joined_at"`
	Money    float64 `json:"money" redis:"money"`
}

const StartingMoney float64 = 1000

const MaxNameLength = 20

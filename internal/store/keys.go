package store

import "time"

const (
	KeyUsers      = "chat:users"    // hash: userID -> JSON
	KeyMessages   = "chat:messages" // list of JSON, newest at the tail
	KeyEntityHash = "chat:%ss"      // hash per entity type: id -> JSON

	KeyKickVoteLock = "chat:kickvote:lock:%s" // string: targetUserID -> voteID, with TTL
	KeySweepLock    = "chat:sweep:lock"       // string: sweeper election, with TTL

	ChannelEvents = "chat:events" // pub/sub relay between workers
)

const (
	// MaxMessages bounds the chat log; the list is trimmed on every append.
	MaxMessages = 500

	// TTLKickVoteLock bounds how long a kick vote can block a new one
	// against the same target.
	TTLKickVoteLock = 5 * time.Minute

	// TTLSweepLock elects one sweeping process per tick.
	TTLSweepLock = 55 * time.Second
)

package services

import (
	"errors"

	"chatroom-backend/internal/store"
)

// The error taxonomy the engines report back to clients. Validation errors
// are plain fmt.Errorf values built at the rejection site.
var (
	// ErrNotFound: entity missing or already swept.
	ErrNotFound = store.ErrNotFound

	// ErrInsufficientFunds: balance too low; nothing was mutated.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAlreadyDone: duplicate grab/vote/join, or an operation against a
	// finished state machine. Idempotent-but-rejected: the caller is told
	// so instead of the operation repeating.
	ErrAlreadyDone = errors.New("already done")

	// ErrVoteInProgress: an active kick vote already targets that user.
	ErrVoteInProgress = errors.New("kick vote already in progress")

	// ErrSelfTarget: a user tried to start a kick vote against themselves.
	ErrSelfTarget = errors.New("cannot target yourself")
)

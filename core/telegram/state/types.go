package state

import (
	"context"
	"time"
)

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
)

// Session stores conversation state and its payload for one user.
type Session[T any] struct {
	State     State     `json:"state"`
	Data      T         `json:"data"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Idle reports whether the session carries no active conversation.
func (s Session[T]) Idle() bool {
	return s.State == "" || s.State == StateIdle
}

// Store keeps one session per user id.
// Get never fails for a missing user: it returns an idle zero session.
type Store[T any] interface {
	Get(ctx context.Context, userID int64) (Session[T], error)
	Put(ctx context.Context, userID int64, s Session[T]) error
	Clear(ctx context.Context, userID int64) error
	InProgress(ctx context.Context, userID int64) bool
}

func idle[T any]() Session[T] {
	return Session[T]{State: StateIdle}
}

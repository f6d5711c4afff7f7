package storefront

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"strings"
	"sync"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/internal/apperr"
	"github.com/m3rciful/shopbot/internal/conversation"
)

// StateAwaitingPassword marks a user who ran /admin and owes the password.
const StateAwaitingPassword state.State = "awaiting_password"

// Auth runs the /admin password challenge and remembers who passed it.
// Operator status lives in process memory only.
type Auth struct {
	sessions state.Store[conversation.Draft]
	locks    *state.Locker
	password []byte
	adminID  int64

	mu        sync.RWMutex
	operators map[int64]struct{}
}

// NewAuth builds an Auth. adminID, when non-zero, is an operator from the start.
// locks must be the Locker shared with the conversation engine.
func NewAuth(sessions state.Store[conversation.Draft], locks *state.Locker, password string, adminID int64) *Auth {
	if locks == nil {
		locks = state.NewLocker()
	}
	return &Auth{
		sessions:  sessions,
		locks:     locks,
		password:  []byte(password),
		adminID:   adminID,
		operators: make(map[int64]struct{}),
	}
}

// IsOperator reports whether userID may use the operator menu.
func (a *Auth) IsOperator(userID int64) bool {
	if userID == 0 {
		return false
	}
	if a.adminID != 0 && userID == a.adminID {
		return true
	}
	a.mu.RLock()
	_, ok := a.operators[userID]
	a.mu.RUnlock()
	return ok
}

// Challenge puts the user into the password stage. Any unfinished draft is dropped.
func (a *Auth) Challenge(ctx context.Context, userID int64) error {
	unlock := a.locks.Lock(userID)
	defer unlock()

	err := a.sessions.Put(ctx, userID, state.Session[conversation.Draft]{State: StateAwaitingPassword})
	if err != nil {
		return apperr.Storage("session_write", err)
	}
	logger.Info(ctx, logger.CompStorefront, "admin.challenge",
		slog.Int64("user_id", userID),
	)
	return nil
}

// Challenged reports whether the user owes the password.
func (a *Auth) Challenged(ctx context.Context, userID int64) bool {
	sess, err := a.sessions.Get(ctx, userID)
	return err == nil && sess.State == StateAwaitingPassword
}

// Answer consumes the challenge and checks text against the password.
// It reports false without error when the user was not challenged.
func (a *Auth) Answer(ctx context.Context, userID int64, text string) (bool, error) {
	unlock := a.locks.Lock(userID)
	defer unlock()

	sess, err := a.sessions.Get(ctx, userID)
	if err != nil {
		return false, apperr.Storage("session_read", err)
	}
	if sess.State != StateAwaitingPassword {
		return false, nil
	}
	if err := a.sessions.Clear(ctx, userID); err != nil {
		return false, apperr.Storage("session_clear", err)
	}

	answer := []byte(strings.TrimSpace(text))
	if len(a.password) == 0 || subtle.ConstantTimeCompare(answer, a.password) != 1 {
		logger.Warn(ctx, logger.CompStorefront, "admin.auth",
			slog.Int64("user_id", userID),
			slog.String("outcome", "denied"),
		)
		return false, nil
	}

	a.mu.Lock()
	a.operators[userID] = struct{}{}
	a.mu.Unlock()
	logger.Info(ctx, logger.CompStorefront, "admin.auth",
		slog.Int64("user_id", userID),
		slog.String("outcome", "granted"),
	)
	return true, nil
}

// Withdraw drops a pending challenge. It reports whether one was pending.
func (a *Auth) Withdraw(ctx context.Context, userID int64) (bool, error) {
	unlock := a.locks.Lock(userID)
	defer unlock()

	sess, err := a.sessions.Get(ctx, userID)
	if err != nil {
		return false, apperr.Storage("session_read", err)
	}
	if sess.State != StateAwaitingPassword {
		return false, nil
	}
	if err := a.sessions.Clear(ctx, userID); err != nil {
		return false, apperr.Storage("session_clear", err)
	}
	return true, nil
}

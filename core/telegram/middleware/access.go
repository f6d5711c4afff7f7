package middleware

import (
	"log/slog"

	"github.com/m3rciful/shopbot/core/logger"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Predicate decides whether a sender id may run a guarded handler.
type Predicate func(userID int64) bool

// OperatorOptions defines how operator-only checks should behave.
type OperatorOptions struct {
	Allow    Predicate
	OnReject tele.HandlerFunc
}

// OperatorOnly ensures that only senders accepted by opts.Allow can invoke downstream handlers.
// A nil predicate rejects everyone.
func OperatorOnly(opts OperatorOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user != nil && opts.Allow != nil && opts.Allow(user.ID) {
				return next(c)
			}
			var userID int64
			if user != nil {
				userID = user.ID
			}
			logger.Warn(tghelpers.BuildContext(c), logger.CompTG, "access.denied",
				slog.Int64("user_id", userID),
			)
			if opts.OnReject != nil {
				return opts.OnReject(c)
			}
			if c.Callback() != nil {
				return c.Respond()
			}
			return nil
		}
	}
}

package router

import (
	"context"
	"log/slog"

	"github.com/m3rciful/shopbot/core/logger"
	tg "github.com/m3rciful/shopbot/core/telegram"
	"github.com/m3rciful/shopbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandHandlers prepares command handlers keyed by canonical name.
// Commands flagged AdminOnly are wrapped with the operator guard.
func CommandHandlers(reg *tg.Registry, guard middleware.OperatorOptions) map[string]tele.HandlerFunc {
	if reg == nil {
		return nil
	}

	handlers := make(map[string]tele.HandlerFunc, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		h := def.Handler
		if def.AdminOnly {
			h = middleware.OperatorOnly(guard)(h)
		}
		handlers[cmd] = h
	}

	logger.Info(context.Background(), logger.CompTGWire, "complete",
		slog.Int("commands", len(handlers)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return handlers
}

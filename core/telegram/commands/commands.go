// Package commands describes slash commands registered with the bot.
package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command represents a bot command with its handler, description, and metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly commands run only for senders accepted by the operator guard
	// and are left out of the public command menu.
	AdminOnly bool
	Hidden    bool
	Aliases   []string
}

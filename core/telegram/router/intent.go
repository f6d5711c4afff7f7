package router

import (
	"context"
	"strings"

	"github.com/m3rciful/shopbot/core/telegram/callbacks"
	"github.com/m3rciful/shopbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// Kind tags the route an inbound update takes.
type Kind int

const (
	KindUnmatched Kind = iota
	KindCommand
	KindCallback
	KindConversation
	KindBroadcast
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindCallback:
		return "callback"
	case KindConversation:
		return "conversation"
	case KindBroadcast:
		return "broadcast"
	default:
		return "unmatched"
	}
}

// Event is the routing-relevant view of one inbound update.
type Event struct {
	SenderID    int64
	Text        string
	HasPhoto    bool
	IsCallback  bool
	CallbackKey string
}

// EventFrom extracts an Event from a telebot context.
func EventFrom(c tele.Context) Event {
	var ev Event
	if u := c.Sender(); u != nil {
		ev.SenderID = u.ID
	}
	if cb := c.Callback(); cb != nil {
		ev.IsCallback = true
		ev.CallbackKey, _ = callbacks.ParseCallbackData(cb)
		return ev
	}
	if m := c.Message(); m != nil {
		ev.Text = m.Text
		ev.HasPhoto = m.Photo != nil
	}
	return ev
}

// Intent is the outcome of classification. Command holds the canonical command key.
type Intent struct {
	Kind    Kind
	Command string
}

// CommandLookup resolves text to a registered command.
type CommandLookup interface {
	LookupCommand(text string) (string, commands.Command, bool)
}

// BroadcastState reports whether a broadcast capture is armed for the sender.
type BroadcastState interface {
	Armed(senderID int64) bool
}

// ConversationState reports whether the sender has a dialogue in progress.
type ConversationState interface {
	Active(ctx context.Context, userID int64) bool
}

// Classifier turns events into intents. Nil state checks never match.
type Classifier struct {
	Commands     CommandLookup
	Broadcast    BroadcastState
	Conversation ConversationState
}

// Classify runs once per update. Order: callback, registered command,
// armed broadcast for this sender (text only), dialogue in progress, unmatched.
func (cl Classifier) Classify(ctx context.Context, ev Event) Intent {
	if ev.IsCallback {
		return Intent{Kind: KindCallback}
	}
	if !ev.HasPhoto && strings.HasPrefix(strings.TrimSpace(ev.Text), "/") && cl.Commands != nil {
		if key, _, ok := cl.Commands.LookupCommand(ev.Text); ok {
			return Intent{Kind: KindCommand, Command: key}
		}
	}
	if !ev.HasPhoto && ev.Text != "" && cl.Broadcast != nil && cl.Broadcast.Armed(ev.SenderID) {
		return Intent{Kind: KindBroadcast}
	}
	if (ev.HasPhoto || ev.Text != "") && cl.Conversation != nil && cl.Conversation.Active(ctx, ev.SenderID) {
		return Intent{Kind: KindConversation}
	}
	return Intent{Kind: KindUnmatched}
}

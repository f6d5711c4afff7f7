package router

import (
	"log/slog"
	"time"

	"github.com/m3rciful/shopbot/core/logger"
	tg "github.com/m3rciful/shopbot/core/telegram"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"
	"github.com/m3rciful/shopbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Options wires the message routes.
type Options struct {
	Registry     *tg.Registry
	Broadcast    BroadcastState
	Conversation ConversationState

	OnBroadcast    tele.HandlerFunc
	OnConversation tele.HandlerFunc
	OnUnmatched    tele.HandlerFunc

	// Guard protects AdminOnly commands.
	Guard middleware.OperatorOptions
}

// MessageRoutes builds the OnText and OnPhoto handlers. Every message is
// classified once and dispatched to exactly one handler.
// Commands must be registered before calling it.
func MessageRoutes(opts Options) []tg.Route {
	cl := Classifier{
		Broadcast:    opts.Broadcast,
		Conversation: opts.Conversation,
	}
	if opts.Registry != nil {
		cl.Commands = opts.Registry
	}
	cmdHandlers := CommandHandlers(opts.Registry, opts.Guard)

	handler := func(c tele.Context) error {
		start := time.Now()
		ev := EventFrom(c)
		intent := cl.Classify(tghelpers.BuildContext(c), ev)
		tghelpers.StoreContext(c, logger.WithIntent(tghelpers.BuildContext(c), intent.Kind.String()))
		extras := []slog.Attr{slog.String("intent", intent.Kind.String())}

		var (
			name string
			h    tele.HandlerFunc
		)
		switch intent.Kind {
		case KindCommand:
			name, h = normalizeHandlerName(intent.Command), cmdHandlers[intent.Command]
		case KindBroadcast:
			name, h = "broadcast.capture", opts.OnBroadcast
		case KindConversation:
			name, h = "conversation", opts.OnConversation
		default:
			name, h = "unmatched", opts.OnUnmatched
		}

		if h == nil {
			logHandlerSummary(c, name, start, "skip", "ok", nil, extras...)
			return nil
		}
		return handleWithSummary(c, name, start, "", "", func() error {
			return h(c)
		}, extras...)
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: handler},
		{Endpoint: tele.OnPhoto, Handler: handler},
	}
}

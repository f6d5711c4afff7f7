package storefront

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/shopbot/core/logger"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"
	"github.com/m3rciful/shopbot/internal/catalog"

	tele "gopkg.in/telebot.v4"
)

// RecipientTracker registers every sender as a broadcast recipient, once per process.
type RecipientTracker struct {
	store catalog.Store
	seen  sync.Map
	now   func() time.Time
}

// NewRecipientTracker builds a tracker over store.
func NewRecipientTracker(store catalog.Store) *RecipientTracker {
	return &RecipientTracker{store: store, now: time.Now}
}

// Track registers the sender of c with the given first action.
// Failures are logged and retried on the next update.
func (t *RecipientTracker) Track(c tele.Context, action string) {
	u := c.Sender()
	if u == nil || u.IsBot {
		return
	}
	if _, ok := t.seen.Load(u.ID); ok {
		return
	}
	ctx := tghelpers.BuildContext(c)
	err := t.store.RegisterRecipient(ctx, catalog.Recipient{
		ID:          u.ID,
		Username:    u.Username,
		FirstName:   u.FirstName,
		FirstAction: action,
		FirstSeenAt: t.now(),
	})
	if err != nil {
		logger.Warn(ctx, logger.CompStorefront, "recipient.register.fail",
			slog.Int64("user_id", u.ID),
			logger.ErrAttr(err),
		)
		return
	}
	t.seen.Store(u.ID, struct{}{})
}

// Middleware tracks first contact of any kind before the handler runs.
func (t *RecipientTracker) Middleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		action := "message"
		switch {
		case c.Callback() != nil:
			action = "callback"
		case strings.HasPrefix(c.Text(), "/start"):
			action = "start"
		}
		t.Track(c, action)
		return next(c)
	}
}

package storefront

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"
	"github.com/m3rciful/shopbot/internal/apperr"
	"github.com/m3rciful/shopbot/internal/broadcast"
	"github.com/m3rciful/shopbot/internal/catalog"
	"github.com/m3rciful/shopbot/internal/conversation"

	tele "gopkg.in/telebot.v4"
)

// Handlers holds the telebot handlers of the storefront.
type Handlers struct {
	store      catalog.Store
	engine     *conversation.Engine
	broadcast  *broadcast.Session
	auth       *Auth
	showcase   *Showcase
	recipients *RecipientTracker
}

// Start registers the visitor and shows the catalog.
func (h *Handlers) Start(c tele.Context) error {
	h.recipients.Track(c, "start")
	_, err := h.showcase.Show(c)
	return err
}

// Admin opens the operator menu for operators and challenges everybody else.
func (h *Handlers) Admin(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	uid := tghelpers.SenderID(c)
	if h.auth.IsOperator(uid) {
		return tghelpers.SendText(c, ReplyAdminMenu, &tele.SendOptions{ReplyMarkup: AdminMenu()})
	}
	if err := h.auth.Challenge(ctx, uid); err != nil {
		return err
	}
	return tghelpers.SendText(c, ReplyEnterPassword)
}

// Debug lists every product as plain text.
func (h *Handlers) Debug(c tele.Context) error {
	products, err := h.store.ListProducts(tghelpers.BuildContext(c))
	if err != nil {
		_ = tghelpers.SendText(c, ReplyCatalogFailed)
		return err
	}
	return tghelpers.SendText(c, DebugListing(products))
}

// Cancel abandons an armed broadcast, a draft or a pending password challenge.
func (h *Handlers) Cancel(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	uid := tghelpers.SenderID(c)

	cancelled := h.broadcast.Cancel(uid)
	dropped, err := h.engine.Cancel(ctx, uid)
	if err != nil {
		return err
	}
	withdrawn, err := h.auth.Withdraw(ctx, uid)
	if err != nil {
		return err
	}
	if cancelled || dropped || withdrawn {
		return tghelpers.SendText(c, ReplyCancelled)
	}
	return tghelpers.SendText(c, ReplyNothingToCancel)
}

// AddProduct starts the product dialogue.
func (h *Handlers) AddProduct(c tele.Context) error {
	reply, err := h.engine.Start(tghelpers.BuildContext(c), tghelpers.SenderID(c))
	if reply.Text != "" {
		if sendErr := tghelpers.SendText(c, reply.Text); err == nil {
			err = sendErr
		}
	}
	return err
}

// BeginBroadcast arms the broadcast capture for the operator.
func (h *Handlers) BeginBroadcast(c tele.Context) error {
	if _, err := h.broadcast.Begin(tghelpers.SenderID(c)); err != nil {
		if errors.Is(err, broadcast.ErrAlreadyActive) {
			return tghelpers.SendText(c, ReplyBroadcastBusy)
		}
		return err
	}
	return tghelpers.SendText(c, ReplyBroadcastPrompt)
}

// Conversation handles a text or photo from a user with a session in progress.
func (h *Handlers) Conversation(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	uid := tghelpers.SenderID(c)

	if h.auth.Challenged(ctx, uid) {
		return h.answerChallenge(ctx, c, uid)
	}

	var in conversation.Input
	if m := c.Message(); m != nil {
		if m.Photo != nil {
			// telebot keeps the largest size in Message.Photo.
			in.Attachment = m.Photo.FileID
		} else {
			in.Text = m.Text
		}
	}

	reply, err := h.engine.Handle(ctx, uid, in)
	if errors.Is(err, conversation.ErrNotActive) {
		return nil
	}
	if reply.Text != "" {
		if sendErr := tghelpers.SendText(c, reply.Text); sendErr != nil && err == nil {
			err = sendErr
		}
	}
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindResolution:
		// the user has been re-prompted
		return nil
	}
	return err
}

func (h *Handlers) answerChallenge(ctx context.Context, c tele.Context, uid int64) error {
	var text string
	if m := c.Message(); m != nil {
		text = m.Text
	}
	ok, err := h.auth.Answer(ctx, uid, text)
	if err != nil || !ok {
		return err
	}
	return tghelpers.SendText(c, ReplyAdminMenu, &tele.SendOptions{ReplyMarkup: AdminMenu()})
}

// Broadcast fans the captured text out and acknowledges the operator once every send has finished.
func (h *Handlers) Broadcast(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	uid := tghelpers.SenderID(c)

	rep, err := h.broadcast.Capture(ctx, uid, c.Text())
	switch {
	case errors.Is(err, broadcast.ErrNotArmed):
		return nil
	case apperr.Is(err, apperr.KindValidation):
		return tghelpers.SendText(c, ReplyBroadcastEmpty)
	case err != nil:
		_ = tghelpers.SendText(c, ReplyBroadcastFailed)
		return err
	}

	return tghelpers.SendText(c, ReplyBroadcastDone+"\n"+fmt.Sprintf(ReplyBroadcastStats, rep.Delivered, rep.Total))
}

// ListProducts is the operator menu variant of /debug.
func (h *Handlers) ListProducts(c tele.Context) error {
	return h.Debug(c)
}

// Unmatched answers unknown slash commands and ignores everything else.
func (h *Handlers) Unmatched(c tele.Context) error {
	m := c.Message()
	if m == nil || m.Photo != nil || !strings.HasPrefix(strings.TrimSpace(m.Text), "/") {
		return nil
	}
	return tghelpers.SendText(c, ReplyUnknownCommand)
}

// UnknownCallback answers a button that is no longer wired.
func (h *Handlers) UnknownCallback(c tele.Context) error {
	return c.Respond(&tele.CallbackResponse{Text: ReplyUnsupportedAction})
}

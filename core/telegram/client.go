package telegram

import (
	"context"
	"strings"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/telegram/keyboard"
	"github.com/m3rciful/shopbot/internal/apperr"

	tele "gopkg.in/telebot.v4"
)

// BuyButtonText labels the link button attached to catalog photos.
const BuyButtonText = "Купить"

// BotAPI is the subset of *tele.Bot used by Client.
type BotAPI interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	FileByID(fileID string) (tele.File, error)
}

// Client delivers messages to arbitrary chats and resolves received attachments.
type Client struct {
	api BotAPI
}

// NewClient wraps a bot (or a fake in tests).
func NewClient(api BotAPI) *Client {
	return &Client{api: api}
}

// SendText sends plain text to recipientID.
func (c *Client) SendText(ctx context.Context, recipientID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return apperr.Delivery("send_text", err)
	}
	if _, err := c.api.Send(tele.ChatID(recipientID), text); err != nil {
		return apperr.Delivery("send_text", err)
	}
	return nil
}

// SendPhoto sends one photo with an HTML caption and, when actionLink is set, a buy button.
// ref is either a Telegram file id or an http(s) URL. The caption is sent as is;
// callers fit it to the caption limit before escaping.
func (c *Client) SendPhoto(ctx context.Context, recipientID int64, ref, caption, actionLink string) error {
	if err := ctx.Err(); err != nil {
		return apperr.Delivery("send_photo", err)
	}
	if strings.TrimSpace(ref) == "" {
		return apperr.Delivery("empty_photo_ref", nil)
	}
	photo := &tele.Photo{Caption: caption}
	if isURL(ref) {
		photo.File = tele.FromURL(ref)
	} else {
		photo.File = tele.File{FileID: ref}
	}
	opts := &tele.SendOptions{ParseMode: tele.ModeHTML}
	if markup := keyboard.LinkButton(BuyButtonText, actionLink); markup != nil {
		opts.ReplyMarkup = markup
	}
	if _, err := c.api.Send(tele.ChatID(recipientID), photo, opts); err != nil {
		return apperr.Delivery("send_photo", err)
	}
	return nil
}

// ResolveAttachment confirms the file behind token is retrievable and returns its
// stable reference. The file id is kept rather than a download URL so the bot
// token never ends up in storage.
func (c *Client) ResolveAttachment(ctx context.Context, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", apperr.Resolution("empty_token", nil)
	}
	if err := ctx.Err(); err != nil {
		return "", apperr.Resolution("get_file", err)
	}
	file, err := c.api.FileByID(token)
	if err != nil {
		logger.Warn(ctx, logger.CompTG, "attachment.resolve.fail",
			logger.ErrAttr(err),
		)
		return "", apperr.Resolution("get_file", err)
	}
	if file.FileID == "" {
		return "", apperr.Resolution("empty_reference", nil)
	}
	return file.FileID, nil
}

func isURL(ref string) bool {
	return strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "http://")
}

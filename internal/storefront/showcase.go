package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/m3rciful/shopbot/core/logger"
	tg "github.com/m3rciful/shopbot/core/telegram"
	"github.com/m3rciful/shopbot/core/telegram/format"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"
	"github.com/m3rciful/shopbot/core/telegram/keyboard"
	"github.com/m3rciful/shopbot/core/telegram/middleware"
	"github.com/m3rciful/shopbot/internal/catalog"

	tele "gopkg.in/telebot.v4"
)

// PhotoSender delivers one catalog photo to a chat.
type PhotoSender interface {
	SendPhoto(ctx context.Context, recipientID int64, ref, caption, actionLink string) error
}

// Showcase renders the catalog to a visitor.
type Showcase struct {
	store   catalog.Store
	photos  PhotoSender
	buyLink string
}

// ShowResult summarizes one rendering.
type ShowResult struct {
	Products int
	Photos   int
	Failed   int
}

// NewShowcase builds a Showcase. An empty manager disables the buy button.
func NewShowcase(store catalog.Store, photos PhotoSender, manager string) *Showcase {
	var link string
	if manager = strings.TrimPrefix(strings.TrimSpace(manager), "@"); manager != "" {
		link = "https://t.me/" + manager
	}
	return &Showcase{store: store, photos: photos, buyLink: link}
}

// Show sends the whole catalog to the chat of c. Each photo is its own message
// with the caption on the first one; photo failures do not stop the listing and
// are summarized in one notice at the end.
func (s *Showcase) Show(c tele.Context) (ShowResult, error) {
	ctx := tghelpers.BuildContext(c)
	start := time.Now()
	var res ShowResult

	products, err := catalog.Browse(ctx, s.store)
	if errors.Is(err, catalog.ErrNoProducts) {
		return res, tghelpers.SendText(c, ReplyNoProducts)
	}
	if err != nil {
		_ = tghelpers.SendText(c, ReplyCatalogFailed)
		return res, err
	}

	if err := tghelpers.SendText(c, fmt.Sprintf(ReplyFoundProducts, len(products))); err != nil {
		return res, err
	}

	chatID := c.Chat().ID
	for _, p := range products {
		res.Products++
		caption := Caption(p)
		if !p.HasPhotos() {
			if err := tghelpers.SendHTML(c, caption, keyboard.LinkButton(tg.BuyButtonText, s.buyLink)); err != nil {
				return res, err
			}
			continue
		}
		for i, ref := range p.Photos {
			text := ""
			if i == 0 {
				text = caption
			}
			if err := s.photos.SendPhoto(ctx, chatID, ref, text, s.buyLink); err != nil {
				res.Failed++
				logger.Warn(ctx, logger.CompStorefront, "showcase.photo.fail",
					slog.Int64("product_id", p.ID),
					slog.Int("position", i),
					logger.ErrAttr(err),
				)
				continue
			}
			res.Photos++
		}
	}
	middleware.AddSent(c, res.Photos, res.Photos)

	if res.Failed > 0 {
		if err := tghelpers.SendText(c, fmt.Sprintf(ReplyPhotosFailed, res.Failed)); err != nil {
			return res, err
		}
	}

	logger.Info(ctx, logger.CompStorefront, "showcase.done",
		slog.Int("products", res.Products),
		slog.Int("photos", res.Photos),
		slog.Int("failed", res.Failed),
		slog.Int64("duration_ms", logger.Took(start).Milliseconds()),
	)
	return res, nil
}

// Caption renders a product as an HTML caption. Fields are cut as plain text
// before escaping so the rendered caption stays within format.CaptionLimit.
func Caption(p catalog.Product) string {
	name := format.Truncate(p.Name, captionNameLimit)
	category := format.Truncate(strings.TrimSpace(p.Category), captionCategoryLimit)
	price := labelPrice + format.Price(p.Price)

	used := utf8.RuneCountInString(name) + utf8.RuneCountInString(price) + 1
	if category != "" {
		used += utf8.RuneCountInString(labelCategory+category) + 1
	}
	description := p.Description
	if budget := format.CaptionLimit - used - 1; budget > 0 {
		description = format.Truncate(description, budget)
	} else {
		description = ""
	}

	if category != "" {
		category = labelCategory + format.Escape(category)
	}
	return format.Lines(
		format.Bold(name),
		format.Escape(description),
		category,
		price,
	)
}

// DebugListing renders every product as one "id) name — price [category]" line.
func DebugListing(products []catalog.Product) string {
	if len(products) == 0 {
		return ReplyDebugEmpty
	}
	lines := make([]string, 0, len(products)+1)
	lines = append(lines, ReplyDebugHeader)
	for _, p := range products {
		lines = append(lines, fmt.Sprintf("%d) %s — %s [%s]", p.ID, p.Name, format.Price(p.Price), p.Category))
	}
	return strings.Join(lines, "\n")
}

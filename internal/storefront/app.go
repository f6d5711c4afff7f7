// Package storefront wires the catalog, the product dialogue and the broadcast
// session into telebot handlers.
package storefront

import (
	"context"
	"fmt"

	coreconfig "github.com/m3rciful/shopbot/core/config"
	tg "github.com/m3rciful/shopbot/core/telegram"
	"github.com/m3rciful/shopbot/core/telegram/commands"
	"github.com/m3rciful/shopbot/core/telegram/middleware"
	"github.com/m3rciful/shopbot/core/telegram/router"
	tgsender "github.com/m3rciful/shopbot/core/telegram/sender"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/internal/broadcast"
	"github.com/m3rciful/shopbot/internal/catalog"
	"github.com/m3rciful/shopbot/internal/conversation"

	tele "gopkg.in/telebot.v4"
)

// Platform is what the storefront needs from the chat platform outside of a handler context.
type Platform interface {
	SendText(ctx context.Context, recipientID int64, text string) error
	SendPhoto(ctx context.Context, recipientID int64, ref, caption, actionLink string) error
	ResolveAttachment(ctx context.Context, token string) (string, error)
}

// Deps are the collaborators of an App.
type Deps struct {
	Config   *coreconfig.Config
	Store    catalog.Store
	Sessions state.Store[conversation.Draft]
	Platform Platform
	// Bot is handed to RunTelegram; nil lets it build one.
	Bot  *tele.Bot
	Pool *tgsender.Pool
}

// App is the assembled storefront.
type App struct {
	cfg      *coreconfig.Config
	bot      *tele.Bot
	pool     *tgsender.Pool
	registry *tg.Registry
	guard    middleware.OperatorOptions

	Engine    *conversation.Engine
	Broadcast *broadcast.Session
	Auth      *Auth
	Handlers  *Handlers
	Tracker   *RecipientTracker
}

// New assembles the storefront and registers its commands and callbacks.
func New(d Deps) (*App, error) {
	if d.Config == nil || d.Store == nil || d.Sessions == nil || d.Platform == nil {
		return nil, fmt.Errorf("storefront: config, store, sessions and platform are required")
	}
	cfg := d.Config
	pool := d.Pool
	if pool == nil {
		pool = tgsender.NewPool(tgsender.Options{Workers: cfg.Broadcast.Workers})
	}
	locks := state.NewLocker()

	engine, err := conversation.New(conversation.Options{
		Sessions:         d.Sessions,
		Catalog:          d.Store,
		Resolver:         d.Platform,
		Locker:           locks,
		AllowEmptyPhotos: cfg.Shop.EmptyPhotosAllowed(),
		DoneWords:        cfg.Shop.DoneWords,
	})
	if err != nil {
		return nil, fmt.Errorf("storefront: %w", err)
	}
	session, err := broadcast.New(broadcast.Options{
		Recipients: d.Store,
		Sender:     d.Platform,
		Pool:       pool,
	})
	if err != nil {
		return nil, fmt.Errorf("storefront: %w", err)
	}

	auth := NewAuth(d.Sessions, locks, cfg.Shop.AdminPassword, cfg.Telegram.AdminID)
	tracker := NewRecipientTracker(d.Store)
	a := &App{
		cfg:      cfg,
		bot:      d.Bot,
		pool:     pool,
		registry: tg.NewRegistry(),
		guard:    middleware.OperatorOptions{Allow: auth.IsOperator},

		Engine:    engine,
		Broadcast: session,
		Auth:      auth,
		Tracker:   tracker,
		Handlers: &Handlers{
			store:      d.Store,
			engine:     engine,
			broadcast:  session,
			auth:       auth,
			showcase:   NewShowcase(d.Store, d.Platform, cfg.Shop.ManagerUsername),
			recipients: tracker,
		},
	}
	if err := a.register(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) register() error {
	h := a.Handlers
	a.registry.RegisterCommand("/start", commands.Command{Handler: h.Start, Description: "Каталог товаров"})
	a.registry.RegisterCommand("/admin", commands.Command{Handler: h.Admin, Description: "Вход для администратора"})
	a.registry.RegisterCommand("/cancel", commands.Command{Handler: h.Cancel, Description: "Отменить текущее действие"})
	a.registry.RegisterCommand("/debug", commands.Command{Handler: h.Debug, Description: "Список товаров", AdminOnly: true})
	a.registry.SetCallbackNotFound(h.UnknownCallback)

	guarded := middleware.OperatorOnly(a.guard)
	callbacks := map[string]tele.HandlerFunc{
		CallbackAddProduct:   h.AddProduct,
		CallbackListProducts: h.ListProducts,
		CallbackBroadcast:    h.BeginBroadcast,
	}
	for key, fn := range callbacks {
		if err := a.registry.RegisterCallback(key, guarded(fn)); err != nil {
			return fmt.Errorf("storefront: %w", err)
		}
	}
	return nil
}

// Registry exposes the command and callback registry.
func (a *App) Registry() *tg.Registry {
	return a.registry
}

// CoreConfig returns the configuration the app was built with.
func (a *App) CoreConfig() *coreconfig.Config {
	return a.cfg
}

// Routes builds the message and callback routes.
func (a *App) Routes() []tg.Route {
	routes := router.MessageRoutes(router.Options{
		Registry:       a.registry,
		Broadcast:      a.Broadcast,
		Conversation:   a.Engine,
		OnBroadcast:    a.Handlers.Broadcast,
		OnConversation: a.Handlers.Conversation,
		OnUnmatched:    a.Handlers.Unmatched,
		Guard:          a.guard,
	})
	return append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{
		NotFound: a.Handlers.UnknownCallback,
	}))
}

// TelegramRunOptions builds the options RunTelegram starts the bot with.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	return tg.RunOptions{
		Config:   a.cfg,
		Registry: a.registry,
		Bot:      a.bot,
		Pool:     a.pool,
		Middlewares: tg.DefaultMiddlewares(a.cfg, nil,
			tg.Middleware{Name: "recipients", Use: a.Tracker.Middleware},
		),
		Routes: a.Routes(),
	}, nil
}

// Command shopbot runs the storefront Telegram bot.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/m3rciful/shopbot/core/bootstrap"
	corecmd "github.com/m3rciful/shopbot/core/cmd"
	coreconfig "github.com/m3rciful/shopbot/core/config"
	tg "github.com/m3rciful/shopbot/core/telegram"
	tgsender "github.com/m3rciful/shopbot/core/telegram/sender"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/internal/catalog"
	"github.com/m3rciful/shopbot/internal/conversation"
	"github.com/m3rciful/shopbot/internal/storefront"
)

const janitorInterval = time.Minute

type application struct {
	*storefront.App
	infra *bootstrap.Result
}

func (a application) Close() error {
	return a.infra.Close()
}

func main() {
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return coreconfig.Load(path)
		},
		Bootstrap: bootstrapApp,
	})
	if err != nil {
		log.Fatal(err)
	}
}

func bootstrapApp(ctx context.Context, carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg := carrier.CoreConfig()

	infra, err := bootstrap.Run(ctx, bootstrap.Options{Config: cfg})
	if err != nil {
		return nil, err
	}

	bot, err := tg.NewBot(cfg)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}

	app, err := storefront.New(storefront.Deps{
		Config:   cfg,
		Store:    catalog.NewPostgresStore(infra.DB),
		Sessions: newSessionStore(ctx, cfg, infra),
		Platform: tg.NewClient(bot),
		Bot:      bot,
		Pool:     tgsender.NewPool(tgsender.Options{Workers: cfg.Broadcast.Workers}),
	})
	if err != nil {
		_ = infra.Close()
		return nil, fmt.Errorf("shopbot: %w", err)
	}
	return application{App: app, infra: infra}, nil
}

func newSessionStore(ctx context.Context, cfg *coreconfig.Config, infra *bootstrap.Result) state.Store[conversation.Draft] {
	if cfg.Session.Backend == coreconfig.SessionRedis && infra.Redis != nil {
		return state.NewRedisStore[conversation.Draft](infra.Redis, cfg.Session.Prefix, cfg.Session.TTL)
	}
	mem := state.NewMemoryStore[conversation.Draft](cfg.Session.TTL)
	go mem.RunJanitor(ctx, janitorInterval)
	return mem
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{Token: "123:abc"},
		Shop:     ShopConfig{AdminPassword: "secret"},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, Normalize(cfg))

	require.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	require.Equal(t, SessionMemory, cfg.Session.Backend)
	require.Equal(t, defaultSessionTTL, cfg.Session.TTL)
	require.Equal(t, defaultSessionPrefix, cfg.Session.Prefix)
	require.Equal(t, defaultBroadcastWorkers, cfg.Broadcast.Workers)
	require.Equal(t, []string{"done", "готово"}, cfg.Shop.DoneWords)
	require.True(t, cfg.Shop.EmptyPhotosAllowed())
	require.Equal(t, "disable", cfg.Database.SSLMode)
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	cases := map[string]func(*Config){
		"missing token":    func(c *Config) { c.Telegram.Token = "" },
		"missing password": func(c *Config) { c.Shop.AdminPassword = "  " },
		"bad run mode":     func(c *Config) { c.Telegram.RunMode = "carrier-pigeon" },
		"webhook no url":   func(c *Config) { c.Telegram.RunMode = RunModeWebhook },
		"redis no addr":    func(c *Config) { c.Session.Backend = SessionRedis },
		"bad backend":      func(c *Config) { c.Session.Backend = "etcd" },
		"negative ttl":     func(c *Config) { c.Session.TTL = -time.Second },
		"bad exclude":      func(c *Config) { c.RateLimit.ExcludeUpdates = []string{"poll"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(cfg)
			require.Error(t, Normalize(cfg))
		})
	}
}

func TestNormalizeShopValues(t *testing.T) {
	cfg := validConfig()
	deny := false
	cfg.Shop.ManagerUsername = " @shop_manager "
	cfg.Shop.DoneWords = []string{" FINISH ", ""}
	cfg.Shop.AllowEmptyPhotos = &deny
	cfg.RateLimit.ExcludeUpdates = []string{" Callback "}

	require.NoError(t, Normalize(cfg))
	require.Equal(t, "shop_manager", cfg.Shop.ManagerUsername)
	require.Equal(t, []string{"finish"}, cfg.Shop.DoneWords)
	require.False(t, cfg.Shop.EmptyPhotosAllowed())
	require.Equal(t, []string{UpdateCallback}, cfg.RateLimit.ExcludeUpdates)
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
telegram:
  token: "from-yaml"
shop:
  admin_password: "pw"
session:
  backend: redis
  ttl: 30m
redis:
  addr: "localhost:6379"
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	t.Setenv("BOT_TOKEN", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Telegram.Token)
	require.Equal(t, SessionRedis, cfg.Session.Backend)
	require.Equal(t, 30*time.Minute, cfg.Session.TTL)
}

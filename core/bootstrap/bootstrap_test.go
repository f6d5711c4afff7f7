package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/shopbot/core/config"
)

func TestRunRequiresConfig(t *testing.T) {
	_, err := Run(context.Background(), Options{})
	require.Error(t, err)
}

func TestRunOrderAndRedisSkip(t *testing.T) {
	var steps []string
	cfg := &coreconfig.Config{Session: coreconfig.SessionConfig{Backend: coreconfig.SessionMemory}}
	res, err := Run(context.Background(), Options{
		Config:     cfg,
		LoggerInit: func(*coreconfig.Config) error { steps = append(steps, "logger"); return nil },
		Connect: func(context.Context, coreconfig.DatabaseConfig) (*sqlx.DB, error) {
			steps = append(steps, "connect")
			return nil, nil
		},
		Migrate: func(context.Context, coreconfig.DatabaseConfig) error {
			steps = append(steps, "migrate")
			return nil
		},
		ConnectRedis: func(context.Context, coreconfig.RedisConfig) (*redis.Client, error) {
			steps = append(steps, "redis")
			return nil, nil
		},
	})
	require.NoError(t, err)
	require.Nil(t, res.Redis)
	require.Equal(t, []string{"logger", "connect", "migrate"}, steps)
}

func TestRunStopsOnMigrationFailure(t *testing.T) {
	boom := errors.New("boom")
	cfg := &coreconfig.Config{Session: coreconfig.SessionConfig{Backend: coreconfig.SessionRedis}}
	redisCalled := false
	_, err := Run(context.Background(), Options{
		Config:     cfg,
		LoggerInit: func(*coreconfig.Config) error { return nil },
		Connect: func(context.Context, coreconfig.DatabaseConfig) (*sqlx.DB, error) {
			return nil, nil
		},
		Migrate: func(context.Context, coreconfig.DatabaseConfig) error { return boom },
		ConnectRedis: func(context.Context, coreconfig.RedisConfig) (*redis.Client, error) {
			redisCalled = true
			return nil, nil
		},
	})
	require.ErrorIs(t, err, boom)
	require.False(t, redisCalled)
}

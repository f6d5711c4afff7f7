package telegram

import (
	"testing"

	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/shopbot/core/config"
)

func middlewareNames(mws []Middleware) []string {
	names := make([]string, 0, len(mws))
	for _, mw := range mws {
		names = append(names, mw.Name)
	}
	return names
}

func TestDefaultMiddlewaresOrder(t *testing.T) {
	cfg := &coreconfig.Config{}
	require.Equal(t, []string{"recover", "logger", "metrics"}, middlewareNames(DefaultMiddlewares(cfg, nil)))

	cfg.RateLimit.IntervalMS = 500
	extra := Middleware{Name: "recipients"}
	require.Equal(t,
		[]string{"recover", "rate_limit", "logger", "metrics", "recipients"},
		middlewareNames(DefaultMiddlewares(cfg, nil, extra)),
	)
}

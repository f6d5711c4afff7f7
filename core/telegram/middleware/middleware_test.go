package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/shopbot/core/config"
	"github.com/m3rciful/shopbot/core/telegram/teletest"
)

func TestOperatorOnly(t *testing.T) {
	called := 0
	next := func(tele.Context) error { called++; return nil }
	guard := OperatorOnly(OperatorOptions{Allow: func(id int64) bool { return id == 1 }})

	require.NoError(t, guard(next)(teletest.NewMessage(1, "/debug")))
	require.Equal(t, 1, called)

	cb := teletest.NewCallback(2, "broadcast", "")
	require.NoError(t, guard(next)(cb))
	require.Equal(t, 1, called)
	require.Len(t, cb.Responses(), 1)

	require.NoError(t, OperatorOnly(OperatorOptions{})(next)(teletest.NewMessage(1, "x")))
	require.Equal(t, 1, called)
}

func TestOperatorOnlyOnReject(t *testing.T) {
	rejected := false
	guard := OperatorOnly(OperatorOptions{
		Allow:    func(int64) bool { return false },
		OnReject: func(tele.Context) error { rejected = true; return nil },
	})
	require.NoError(t, guard(func(tele.Context) error { return nil })(teletest.NewMessage(3, "x")))
	require.True(t, rejected)
}

func TestRateLimitMiddleware(t *testing.T) {
	clock := time.Unix(0, 0)
	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		Exclude:   map[string]struct{}{coreconfig.UpdateCallback: {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
		now:       func() time.Time { return clock },
	})
	passed := 0
	h := mw(func(tele.Context) error { passed++; return nil })

	require.NoError(t, h(teletest.NewMessage(1, "a")))
	require.NoError(t, h(teletest.NewMessage(1, "b")))
	require.NoError(t, h(teletest.NewMessage(2, "c")))
	require.NoError(t, h(teletest.NewCallback(1, "list_products", "")))
	clock = clock.Add(2 * time.Second)
	require.NoError(t, h(teletest.NewMessage(1, "d")))

	require.Equal(t, 4, passed)
	require.Equal(t, 1, limited)
}

func TestRecoverMiddlewareTurnsPanicIntoError(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	err := h(teletest.NewMessage(1, "x"))
	require.ErrorContains(t, err, "boom")

	want := errors.New("plain")
	require.ErrorIs(t, RecoverMiddleware(func(tele.Context) error { return want })(teletest.NewMessage(1, "x")), want)
}

func TestMessageMetricsMiddlewareCounts(t *testing.T) {
	c := teletest.NewMessage(1, "x")
	h := MessageMetricsMiddleware(func(c tele.Context) error {
		_ = c.Send("one")
		_ = c.Send(&tele.Photo{File: tele.File{FileID: "f"}}, &tele.ReplyMarkup{})
		AddSent(c, 2, 1)
		return nil
	})
	require.NoError(t, h(c))

	msgs, kb := GetCounters(c)
	require.Equal(t, 4, msgs)
	require.True(t, kb)
	require.Equal(t, 2, GetPhotoCount(c))
}

func TestLoggerMiddlewareSetsRID(t *testing.T) {
	c := teletest.NewMessage(5, "hello")
	require.NoError(t, LoggerMiddleware(func(tele.Context) error { return nil })(c))
	rid, _ := c.Get("rid").(string)
	require.NotEmpty(t, rid)
}

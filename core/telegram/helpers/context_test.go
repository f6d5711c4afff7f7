package helpers

import (
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/telegram/teletest"
)

func TestBuildContextCarriesUpdateMeta(t *testing.T) {
	c := teletest.NewMessage(42, "hi")
	ctx := BuildContext(c)

	require.Equal(t, int64(42), logger.UserIDFrom(ctx))
	require.Equal(t, int64(42), logger.ChatIDFrom(ctx))
	require.NotEmpty(t, logger.RIDFrom(ctx))

	again, ok := ContextFrom(c)
	require.True(t, ok)
	require.Equal(t, ctx, again)
}

func TestWithHandlerStoresHandler(t *testing.T) {
	c := teletest.NewCallback(7, "broadcast", "")
	ctx := WithHandler(c, "callback.broadcast")
	require.Equal(t, "callback.broadcast", logger.HandlerFrom(ctx))
}

func TestSendHTMLUsesParseMode(t *testing.T) {
	c := teletest.NewMessage(1, "x")
	require.NoError(t, SendHTML(c, "<b>hi</b>"))

	sent := c.Sent()
	require.Len(t, sent, 1)
	opts, ok := sent[0].Opts[0].(*tele.SendOptions)
	require.True(t, ok)
	require.Equal(t, tele.ModeHTML, opts.ParseMode)
}

func TestSenderID(t *testing.T) {
	require.Equal(t, int64(9), SenderID(teletest.NewCallback(9, "x", "")))
	require.Equal(t, int64(4), SenderID(teletest.NewMessage(4, "hi")))
	require.Zero(t, SenderID(nil))
}

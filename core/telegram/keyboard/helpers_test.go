package keyboard

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInlineButtonsOnePerRow(t *testing.T) {
	m := InlineButtons([]InlineBtn{
		{Text: "Add", Unique: "add_product"},
		{Text: "Site", URL: "https://t.me/shop"},
	})
	require.Len(t, m.InlineKeyboard, 2)
	require.Equal(t, "add_product", m.InlineKeyboard[0][0].Unique)
	require.Equal(t, "https://t.me/shop", m.InlineKeyboard[1][0].URL)
}

func TestLinkButton(t *testing.T) {
	require.Nil(t, LinkButton("Buy", ""))
	m := LinkButton("Buy", "https://t.me/manager")
	require.Equal(t, "Buy", m.InlineKeyboard[0][0].Text)
	require.Equal(t, "https://t.me/manager", m.InlineKeyboard[0][0].URL)
}

package callbacks

import (
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackData(t *testing.T) {
	cases := []struct {
		cb           *tele.Callback
		key, payload string
	}{
		{nil, "", ""},
		{&tele.Callback{Data: "\fbroadcast"}, "broadcast", ""},
		{&tele.Callback{Data: "\flist_products|page=2"}, "list_products", "page=2"},
		{&tele.Callback{Unique: "add_product", Data: "x"}, "add_product", "x"},
		{&tele.Callback{Data: "plain"}, "plain", ""},
	}
	for _, tc := range cases {
		key, payload := ParseCallbackData(tc.cb)
		require.Equal(t, tc.key, key)
		require.Equal(t, tc.payload, payload)
	}
}

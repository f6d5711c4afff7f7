package format

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestEscapeAndBold(t *testing.T) {
	require.Equal(t, "a &lt;b&gt; &amp; c", Escape("a <b> & c"))
	require.Equal(t, "<b>Tom &amp; Jerry</b>", Bold("Tom & Jerry"))
}

func TestPrice(t *testing.T) {
	require.Equal(t, "0₽", Price(0))
	require.Equal(t, "1500₽", Price(1500))
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", Truncate("short", 10))
	out := Truncate("привет мир и все остальные", 10)
	require.LessOrEqual(t, utf8.RuneCountInString(out), 10)
	require.Equal(t, "привет ми…", out)
}

func TestLinesSkipsEmpty(t *testing.T) {
	require.Equal(t, "a\nc", Lines("a", "", "c"))
}

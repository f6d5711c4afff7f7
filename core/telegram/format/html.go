// Package format renders text for Telegram's HTML parse mode.
package format

import (
	"html"
	"strconv"
	"strings"
	"unicode/utf8"
)

// CaptionLimit is the maximum caption length Telegram accepts, in characters.
const CaptionLimit = 1024

// Escape makes s safe inside an HTML-mode message.
func Escape(s string) string {
	return html.EscapeString(s)
}

// Bold wraps escaped s in <b>.
func Bold(s string) string {
	return "<b>" + Escape(s) + "</b>"
}

// Price renders an amount in the smallest currency unit with the ruble sign.
func Price(amount int64) string {
	return strconv.FormatInt(amount, 10) + "₽"
}

// Truncate cuts s to at most limit runes, ending with an ellipsis when cut.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimRightFunc(string(runes[:limit-1]), func(r rune) bool { return r == ' ' }) + "…"
}

// Lines joins the non-empty parts with newlines.
func Lines(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n")
}

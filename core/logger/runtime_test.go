package logger

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestUpdateMetaAccumulates(t *testing.T) {
	ctx := WithRID(nil, "1:2:3") //nolint:staticcheck // nil context is tolerated
	ctx = WithUpdateMeta(ctx, 1, 3, 2)
	ctx = WithHandler(ctx, "conversation")
	ctx = WithIntent(ctx, "conversation")
	ctx = WithHandler(ctx, "")
	ctx = WithIntent(ctx, "")

	if got := RIDFrom(ctx); got != "1:2:3" {
		t.Fatalf("rid = %q", got)
	}
	if UpdateIDFrom(ctx) != 1 || UserIDFrom(ctx) != 3 || ChatIDFrom(ctx) != 2 {
		t.Fatalf("unexpected ids: %+v", metaFrom(ctx))
	}
	if HandlerFrom(ctx) != "conversation" || IntentFrom(ctx) != "conversation" {
		t.Fatalf("empty values must not overwrite: %+v", metaFrom(ctx))
	}
}

func TestUpdateMetaDoesNotLeakToParent(t *testing.T) {
	parent := WithIntent(context.Background(), "broadcast")
	child := WithIntent(parent, "command")
	if IntentFrom(parent) != "broadcast" || IntentFrom(child) != "command" {
		t.Fatalf("parent=%q child=%q", IntentFrom(parent), IntentFrom(child))
	}
	if IntentFrom(nil) != "" || UserIDFrom(context.Background()) != 0 { //nolint:staticcheck // nil context is tolerated
		t.Fatal("empty context must yield zero values")
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if FromContext(context.Background()) != L {
		t.Fatal("expected global logger")
	}
	l := Component(CompApp)
	if FromContext(WithLogger(context.Background(), l)) != l {
		t.Fatal("expected stored logger")
	}
}

func TestSanitize(t *testing.T) {
	in := "Lamp\x00\u200b\x7f\tred\nblue"
	if got := Sanitize(in); got != "Lamp\tred\nblue" {
		t.Fatalf("Sanitize = %q", got)
	}
	long := strings.Repeat("ж", 40)
	if got := SanitizeLimit(long, 10); utf8.RuneCountInString(got) != 10 {
		t.Fatalf("SanitizeLimit kept %d runes", utf8.RuneCountInString(got))
	}
	if SanitizeLimit("x", 0) != "" {
		t.Fatal("zero limit must yield empty string")
	}
}

func TestBuildAndCompactRID(t *testing.T) {
	rid := BuildRID(42, -100, 7)
	if rid != "42:-100:7" {
		t.Fatalf("BuildRID = %q", rid)
	}
	if got := CompactRID(rid); got != "16.-2s.7" {
		t.Fatalf("CompactRID = %q", got)
	}
	for _, in := range []string{"", "abc", "1:2", "1:x:3"} {
		if got := CompactRID(in); got != in {
			t.Fatalf("CompactRID(%q) = %q", in, got)
		}
	}
}

package logger

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

type closeRecorder struct {
	bytes.Buffer
	closed bool
	err    error
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return c.err
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestAsyncWriterClosesOwnedSinksOnly(t *testing.T) {
	stdout := &closeRecorder{}
	file := &closeRecorder{}
	aw := newAsyncWriter([]io.Writer{stdout, file}, []io.Closer{file}, 16)

	if err := aw.Write([]byte("line\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if stdout.String() != "line\n" || file.String() != "line\n" {
		t.Fatalf("unexpected sink contents %q %q", stdout.String(), file.String())
	}
	if stdout.closed {
		t.Fatalf("stdout must not be closed")
	}
	if !file.closed {
		t.Fatalf("owned sink was not closed")
	}
}

func TestAsyncWriterReportsFailures(t *testing.T) {
	file := &closeRecorder{err: errors.New("close failed")}
	aw := newAsyncWriter([]io.Writer{failingWriter{}, file}, []io.Closer{file}, 16)

	_ = aw.Write([]byte("line\n"))
	err := aw.Close()
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
	for _, want := range []string{"disk full", "close failed"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %q", err, want)
		}
	}
	if werr := aw.Write([]byte("more")); werr == nil {
		t.Fatalf("write after sink failure should fail")
	}
}

func TestEventSamplerCountsPerEvent(t *testing.T) {
	s := newEventSampler(1, 3)
	var sends, updates int
	for i := 0; i < 9; i++ {
		if s.Allow("send.ok") {
			sends++
		}
	}
	if s.Allow("update.received") {
		updates++
	}
	if sends != 3 {
		t.Fatalf("send.ok passed %d times, want 3", sends)
	}
	if updates != 1 {
		t.Fatalf("first update.received must pass")
	}

	s.Set(0, 0)
	if !s.Allow("send.ok") {
		t.Fatalf("disabled sampler must pass everything")
	}
}

func TestParseRatioSpec(t *testing.T) {
	cases := map[string][2]int{
		"1/50": {1, 50},
		"10":   {1, 10},
		"off":  {0, 0},
		"0":    {0, 0},
		"x/y":  {-1, -1},
		"abc":  {-1, -1},
	}
	for spec, want := range cases {
		num, den := parseRatioSpec(spec)
		if num != want[0] || den != want[1] {
			t.Fatalf("parseRatioSpec(%q) = %d/%d, want %d/%d", spec, num, den, want[0], want[1])
		}
	}
}

func TestErrAttr(t *testing.T) {
	attr := ErrAttr(errors.New("boom\x00" + strings.Repeat("x", 400)))
	if attr.Key != "err" {
		t.Fatalf("unexpected key %q", attr.Key)
	}
	v := attr.Value.String()
	if strings.Contains(v, "\x00") || len([]rune(v)) != errAttrLimit {
		t.Fatalf("err attr not sanitized or limited: %d runes", len([]rune(v)))
	}
}

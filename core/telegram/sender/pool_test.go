package sender

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestFanOutIsolatesFailures(t *testing.T) {
	pool := NewPool(Options{Workers: 3})
	recipients := []int64{1, 2, 3, 4, 5}

	var (
		mu   sync.Mutex
		seen []int64
	)
	rep := pool.FanOut(context.Background(), "broadcast", recipients, func(_ context.Context, id int64) error {
		mu.Lock()
		seen = append(seen, id)
		mu.Unlock()
		if id == 3 {
			return errors.New("blocked")
		}
		return nil
	})

	require.Equal(t, 5, rep.Total)
	require.Equal(t, 4, rep.Delivered)
	require.Equal(t, 1, rep.Failed)
	require.ErrorContains(t, rep.Err, "recipient 3")
	require.ElementsMatch(t, recipients, seen)
	require.Equal(t, uint64(1), pool.ErrorCount())
}

func TestFanOutRecoversPanics(t *testing.T) {
	pool := NewPool(Options{Workers: 2})
	rep := pool.FanOut(context.Background(), "broadcast", []int64{1, 2}, func(_ context.Context, id int64) error {
		if id == 1 {
			panic("boom")
		}
		return nil
	})
	require.Equal(t, 1, rep.Delivered)
	require.Equal(t, 1, rep.Failed)

	var merr *multierror.Error
	require.True(t, errors.As(rep.Err, &merr))
	require.Len(t, merr.Errors, 1)
}

func TestFanOutJoinsBeforeReturning(t *testing.T) {
	pool := NewPool(Options{Workers: 4})
	var done atomic.Int32
	rep := pool.FanOut(context.Background(), "broadcast", []int64{1, 2, 3, 4, 5, 6, 7, 8}, func(context.Context, int64) error {
		time.Sleep(5 * time.Millisecond)
		done.Add(1)
		return nil
	})
	require.Equal(t, int32(8), done.Load())
	require.Equal(t, 8, rep.Delivered)
	require.NoError(t, rep.Err)
}

func TestFanOutBoundsParallelism(t *testing.T) {
	pool := NewPool(Options{Workers: 2})
	var inflight, peak atomic.Int32
	pool.FanOut(context.Background(), "broadcast", []int64{1, 2, 3, 4, 5, 6}, func(context.Context, int64) error {
		n := inflight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inflight.Add(-1)
		return nil
	})
	require.LessOrEqual(t, peak.Load(), int32(2))
}

func TestFanOutEmpty(t *testing.T) {
	rep := NewPool(Options{}).FanOut(context.Background(), "broadcast", nil, func(context.Context, int64) error {
		t.Fatal("must not be called")
		return nil
	})
	require.Equal(t, Report{}, rep)
}

func TestFanOutCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls atomic.Int32
	rep := NewPool(Options{Workers: 1}).FanOut(ctx, "broadcast", []int64{1, 2}, func(context.Context, int64) error {
		calls.Add(1)
		return nil
	})
	require.Equal(t, int32(0), calls.Load())
	require.Equal(t, 2, rep.Failed)
}

func TestClassifyError(t *testing.T) {
	require.Equal(t, "", classifyError(nil))
	require.Equal(t, "timeout", classifyError(fmt.Errorf("send: %w", context.DeadlineExceeded)))
	require.Equal(t, "blocked", classifyError(fmt.Errorf("send: %w", tele.ErrBlockedByUser)))
	require.Equal(t, "http_4xx", classifyError(errors.New("telegram: Bad Request: message is too long (400)")))
	require.Equal(t, "http_5xx", classifyError(errors.New("telegram: Internal Server Error (502)")))
	require.Equal(t, "unknown", classifyError(errors.New("weird")))
}

func TestSanitizeErrorRedactsToken(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AAbb-cc_DD/sendMessage": EOF`)
	require.Equal(t, `Post "https://api.telegram.org/bot<redacted>/sendMessage": EOF`, SanitizeError(err))
	require.Equal(t, "", SanitizeError(nil))
}

func TestPoolWorkersDefault(t *testing.T) {
	require.Equal(t, defaultWorkers, NewPool(Options{}).Workers())
	require.Equal(t, 7, NewPool(Options{Workers: 7}).Workers())
}

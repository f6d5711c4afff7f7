package broadcast

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/shopbot/core/telegram/sender"
	"github.com/m3rciful/shopbot/internal/apperr"
)

type fakeRecipients struct {
	ids []int64
	err error
}

func (f fakeRecipients) ListRecipientIDs(context.Context) ([]int64, error) {
	return f.ids, f.err
}

type fakeSender struct {
	mu     sync.Mutex
	failOn map[int64]bool
	got    map[int64]string
}

func (f *fakeSender) SendText(_ context.Context, id int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[id] {
		return apperr.Delivery("send_text", errors.New("Forbidden: bot was blocked by the user"))
	}
	if f.got == nil {
		f.got = make(map[int64]string)
	}
	f.got[id] = text
	return nil
}

func newSession(t *testing.T, rec Recipients, snd TextSender) *Session {
	t.Helper()
	s, err := New(Options{Recipients: rec, Sender: snd, Pool: sender.NewPool(sender.Options{Workers: 3})})
	require.NoError(t, err)
	return s
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}

func TestCaptureFansOutAndIsolatesFailures(t *testing.T) {
	ids := []int64{10, 11, 12, 13, 14}
	snd := &fakeSender{failOn: map[int64]bool{12: true}}
	s := newSession(t, fakeRecipients{ids: ids}, snd)

	c, err := s.Begin(1)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, c.Token)
	require.True(t, s.Armed(1))

	rep, err := s.Capture(context.Background(), 1, "Sale today")
	require.NoError(t, err)
	require.Equal(t, c.Token, rep.Token)
	require.Equal(t, 5, rep.Total)
	require.Equal(t, 4, rep.Delivered)
	require.Equal(t, 1, rep.Failed)
	require.Error(t, rep.Err)
	require.Len(t, snd.got, 4)
	for _, id := range []int64{10, 11, 13, 14} {
		require.Equal(t, "Sale today", snd.got[id])
	}

	require.False(t, s.Armed(1))
	_, active := s.Active()
	require.False(t, active)
}

func TestBeginAtMostOne(t *testing.T) {
	s := newSession(t, fakeRecipients{}, &fakeSender{})
	_, err := s.Begin(1)
	require.NoError(t, err)
	_, err = s.Begin(1)
	require.ErrorIs(t, err, ErrAlreadyActive)
	_, err = s.Begin(2)
	require.ErrorIs(t, err, ErrAlreadyActive)
}

func TestBeginConcurrentOnlyOneWins(t *testing.T) {
	s := newSession(t, fakeRecipients{}, &fakeSender{})
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := int64(1); i <= 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if _, err := s.Begin(id); err == nil {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()
	require.Equal(t, int32(1), wins.Load())
}

func TestCaptureIsScopedToOperator(t *testing.T) {
	snd := &fakeSender{}
	s := newSession(t, fakeRecipients{ids: []int64{10}}, snd)
	_, err := s.Begin(1)
	require.NoError(t, err)

	require.False(t, s.Armed(2))
	_, err = s.Capture(context.Background(), 2, "not yours")
	require.ErrorIs(t, err, ErrNotArmed)
	require.True(t, s.Armed(1))
	require.Empty(t, snd.got)

	_, err = s.Capture(context.Background(), 1, "yours")
	require.NoError(t, err)
	require.Equal(t, "yours", snd.got[10])
}

func TestCaptureFiresOnce(t *testing.T) {
	snd := &fakeSender{}
	s := newSession(t, fakeRecipients{ids: []int64{10}}, snd)
	_, err := s.Begin(1)
	require.NoError(t, err)

	var fired atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Capture(context.Background(), 1, "once"); err == nil {
				fired.Add(1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), fired.Load())
}

func TestCaptureEmptyTextStaysArmed(t *testing.T) {
	s := newSession(t, fakeRecipients{}, &fakeSender{})
	_, err := s.Begin(1)
	require.NoError(t, err)
	_, err = s.Capture(context.Background(), 1, "  ")
	require.True(t, apperr.Is(err, apperr.KindValidation))
	require.True(t, s.Armed(1))
}

func TestRecipientListFailureEndsCapture(t *testing.T) {
	s := newSession(t, fakeRecipients{err: errors.New("db down")}, &fakeSender{})
	_, err := s.Begin(1)
	require.NoError(t, err)

	_, err = s.Capture(context.Background(), 1, "hello")
	require.True(t, apperr.Is(err, apperr.KindStorage))
	require.False(t, s.Armed(1))

	_, err = s.Begin(1)
	require.NoError(t, err)
}

func TestCancel(t *testing.T) {
	s := newSession(t, fakeRecipients{}, &fakeSender{})
	require.False(t, s.Cancel(1))

	_, err := s.Begin(1)
	require.NoError(t, err)
	require.False(t, s.Cancel(2))
	require.True(t, s.Cancel(1))
	require.False(t, s.Armed(1))

	_, err = s.Begin(2)
	require.NoError(t, err)
}

func TestCaptureNoRecipients(t *testing.T) {
	s := newSession(t, fakeRecipients{}, &fakeSender{})
	_, err := s.Begin(1)
	require.NoError(t, err)
	rep, err := s.Capture(context.Background(), 1, "hello")
	require.NoError(t, err)
	require.Equal(t, 0, rep.Total)
}

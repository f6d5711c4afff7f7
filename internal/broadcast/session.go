// Package broadcast captures one message from the operator and fans it out to every recipient.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/telegram/sender"
	"github.com/m3rciful/shopbot/internal/apperr"
)

var (
	// ErrAlreadyActive is returned by Begin while another capture is armed or firing.
	ErrAlreadyActive = errors.New("broadcast: a capture is already active")
	// ErrNotArmed is returned by Capture when no capture is armed for the sender.
	ErrNotArmed = errors.New("broadcast: no capture armed for sender")
)

// Capture identifies one armed broadcast. Only OperatorID's next text is taken.
type Capture struct {
	Token      uuid.UUID
	OperatorID int64
	StartedAt  time.Time
}

// Recipients lists everyone eligible for a broadcast.
type Recipients interface {
	ListRecipientIDs(ctx context.Context) ([]int64, error)
}

// TextSender delivers a text to one recipient.
type TextSender interface {
	SendText(ctx context.Context, recipientID int64, text string) error
}

// FanOut runs a send for every recipient and joins before returning.
type FanOut interface {
	FanOut(ctx context.Context, action string, recipients []int64, send sender.SendFunc) sender.Report
}

// Options configures a Session.
type Options struct {
	Recipients Recipients
	Sender     TextSender
	// Pool defaults to a sender.Pool with default workers.
	Pool FanOut
}

// Report is the outcome of one fired capture.
type Report struct {
	Token uuid.UUID
	sender.Report
}

type phase int

const (
	phaseIdle phase = iota
	phaseArmed
	phaseFiring
)

// Session holds at most one capture process-wide. Its phase changes under one
// mutex, so Begin, Armed and Capture observe a consistent view.
type Session struct {
	recipients Recipients
	sender     TextSender
	pool       FanOut

	mu      sync.Mutex
	phase   phase
	capture Capture
	now     func() time.Time
}

// New builds a Session.
func New(opts Options) (*Session, error) {
	if opts.Recipients == nil || opts.Sender == nil {
		return nil, fmt.Errorf("broadcast: recipients and sender are required")
	}
	pool := opts.Pool
	if pool == nil {
		pool = sender.NewPool(sender.Options{})
	}
	return &Session{
		recipients: opts.Recipients,
		sender:     opts.Sender,
		pool:       pool,
		now:        time.Now,
	}, nil
}

// Begin arms a capture for operatorID.
func (s *Session) Begin(operatorID int64) (Capture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != phaseIdle {
		return Capture{}, ErrAlreadyActive
	}
	s.phase = phaseArmed
	s.capture = Capture{Token: uuid.New(), OperatorID: operatorID, StartedAt: s.now()}
	logger.Info(context.Background(), logger.CompBroadcast, "capture.begin",
		slog.String("token", s.capture.Token.String()),
		slog.Int64("operator_id", operatorID),
	)
	return s.capture, nil
}

// Armed reports whether a capture is waiting for senderID's next text.
func (s *Session) Armed(senderID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase == phaseArmed && s.capture.OperatorID == senderID
}

// Active returns the current capture, armed or firing.
func (s *Session) Active() (Capture, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capture, s.phase != phaseIdle
}

// Capture takes text as the payload of senderID's armed capture and delivers it to
// every recipient. It returns once all deliveries settled; per-recipient failures
// are counted in the report, never returned. The capture ends either way.
func (s *Session) Capture(ctx context.Context, senderID int64, text string) (Report, error) {
	if strings.TrimSpace(text) == "" {
		return Report{}, apperr.Validation("empty_broadcast")
	}

	s.mu.Lock()
	if s.phase != phaseArmed || s.capture.OperatorID != senderID {
		s.mu.Unlock()
		return Report{}, ErrNotArmed
	}
	s.phase = phaseFiring
	c := s.capture
	s.mu.Unlock()
	defer s.End()

	rep := Report{Token: c.Token}
	start := time.Now()

	ids, err := s.recipients.ListRecipientIDs(ctx)
	if err != nil {
		if apperr.KindOf(err) == "" {
			err = apperr.Storage("list_recipients", err)
		}
		logger.Error(ctx, logger.CompBroadcast, "capture.fire",
			slog.String("token", c.Token.String()),
			slog.String("outcome", "fail"),
			logger.ErrAttr(err),
		)
		return rep, err
	}

	rep.Report = s.pool.FanOut(ctx, "broadcast", ids, func(ctx context.Context, id int64) error {
		return s.sender.SendText(ctx, id, text)
	})

	outcome := "ok"
	if rep.Failed > 0 {
		outcome = "partial"
	}
	attrs := []slog.Attr{
		slog.String("token", c.Token.String()),
		slog.Int64("operator_id", c.OperatorID),
		slog.String("outcome", outcome),
		slog.Int("recipients", rep.Total),
		slog.Int("delivered", rep.Delivered),
		slog.Int("failed", rep.Failed),
		slog.Int64("duration_ms", logger.Took(start).Milliseconds()),
	}
	if rep.Err != nil {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(rep.Err.Error(), 512)))
	}
	logger.Info(ctx, logger.CompBroadcast, "capture.fire", attrs...)
	return rep, nil
}

// Cancel disarms operatorID's capture. A firing capture cannot be cancelled.
func (s *Session) Cancel(operatorID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != phaseArmed || s.capture.OperatorID != operatorID {
		return false
	}
	logger.Info(context.Background(), logger.CompBroadcast, "capture.cancel",
		slog.String("token", s.capture.Token.String()),
		slog.Int64("operator_id", operatorID),
		slog.String("outcome", "cancelled"),
	)
	s.phase = phaseIdle
	s.capture = Capture{}
	return true
}

// End drops the capture whatever its phase.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = phaseIdle
	s.capture = Capture{}
}

// Package sender runs outbound Telegram calls for many recipients at once.
package sender

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/m3rciful/shopbot/core/logger"
)

const (
	defaultWorkers        = 8
	defaultPerSendTimeout = 15 * time.Second
)

// Options controls the behaviour of the fan-out pool.
type Options struct {
	Workers int
	// PerSendTimeout bounds a single delivery attempt.
	PerSendTimeout time.Duration
}

// SendFunc delivers one message to one recipient.
type SendFunc func(ctx context.Context, recipientID int64) error

// Report summarizes one fan-out. Err aggregates per-recipient failures and is meant for logs.
type Report struct {
	Total     int
	Delivered int
	Failed    int
	Err       error
}

// Pool fans a SendFunc out to recipients with bounded parallelism.
// A failing or panicking send never cancels its siblings.
type Pool struct {
	opts Options
	errs atomic.Uint64
}

// NewPool returns a pool with sane defaults if options are zeroed.
func NewPool(opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.PerSendTimeout <= 0 {
		opts.PerSendTimeout = defaultPerSendTimeout
	}
	return &Pool{opts: opts}
}

// FanOut calls send once per recipient and returns after every call has settled.
func (p *Pool) FanOut(ctx context.Context, action string, recipients []int64, send SendFunc) Report {
	rep := Report{Total: len(recipients)}
	if len(recipients) == 0 || send == nil {
		return rep
	}
	if ctx == nil {
		ctx = context.Background()
	}

	workers := p.opts.Workers
	if workers > len(recipients) {
		workers = len(recipients)
	}

	start := time.Now()
	logger.Debug(ctx, logger.CompTGSender, "fanout.start",
		slog.String("action", action),
		slog.Int("recipients", len(recipients)),
		slog.Int("workers", workers),
	)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		merr      *multierror.Error
		delivered atomic.Int64
		jobs      = make(chan int64)
	)

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for id := range jobs {
				if err := p.sendOne(ctx, action, id, send); err != nil {
					mu.Lock()
					merr = multierror.Append(merr, fmt.Errorf("recipient %d: %w", id, err))
					mu.Unlock()
					continue
				}
				delivered.Add(1)
			}
		}()
	}

	for _, id := range recipients {
		jobs <- id
	}
	close(jobs)
	wg.Wait()

	rep.Delivered = int(delivered.Load())
	rep.Failed = rep.Total - rep.Delivered
	if merr != nil {
		rep.Err = merr.ErrorOrNil()
	}

	outcome := "ok"
	if rep.Failed > 0 {
		outcome = "partial"
	}
	logger.Info(ctx, logger.CompTGSender, "fanout.done",
		slog.String("action", action),
		slog.String("outcome", outcome),
		slog.Int("recipients", rep.Total),
		slog.Int("delivered", rep.Delivered),
		slog.Int("failed", rep.Failed),
		slog.Int("elapsed_ms", durationToMS(time.Since(start))),
	)
	return rep
}

// Workers reports the fan-out parallelism.
func (p *Pool) Workers() int {
	return p.opts.Workers
}

// ErrorCount returns the number of failed sends over the pool lifetime.
func (p *Pool) ErrorCount() uint64 {
	return p.errs.Load()
}

func (p *Pool) sendOne(ctx context.Context, action string, id int64, send SendFunc) (err error) {
	sendCtx, cancel := context.WithTimeout(ctx, p.opts.PerSendTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			p.errs.Add(1)
			logSendFailure(ctx, action, id, err, time.Since(start))
			return
		}
		if logger.ShouldSampleDebug("send.ok") {
			logger.Debug(ctx, logger.CompTGSender, "send.ok",
				slog.String("action", action),
				slog.Int64("user_id", id),
				slog.Int("elapsed_ms", durationToMS(time.Since(start))),
			)
		}
	}()

	if err := sendCtx.Err(); err != nil {
		return err
	}
	return send(sendCtx, id)
}

func logSendFailure(ctx context.Context, action string, id int64, err error, elapsed time.Duration) {
	logger.Warn(ctx, logger.CompTGSender, "send.fail",
		slog.String("action", action),
		slog.Int64("user_id", id),
		slog.String("err", SanitizeError(err)),
		slog.String("error_kind", classifyError(err)),
		slog.Int("elapsed_ms", durationToMS(elapsed)),
	)
}

func durationToMS(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(logger.RoundMS(d) / time.Millisecond)
}

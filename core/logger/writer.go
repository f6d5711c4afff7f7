package logger

import (
	"bufio"
	"io"
	"sync"

	"github.com/hashicorp/go-multierror"
)

const writerQueueSize = 256

// sink is one output. closer is nil for outputs the logger does not own, such as stdout.
type sink struct {
	buf    *bufio.Writer
	closer io.Closer
}

// asyncWriter moves formatting off the hot path: records are queued and a single
// goroutine writes them to every sink. A full queue blocks rather than drops.
type asyncWriter struct {
	queue    chan []byte
	flushReq chan chan error
	done     chan struct{}
	once     sync.Once

	mu       sync.Mutex
	sinks    []sink
	writeErr error
}

func newAsyncWriter(outputs []io.Writer, owned []io.Closer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	closers := make(map[io.Writer]io.Closer, len(owned))
	for _, c := range owned {
		if w, ok := c.(io.Writer); ok {
			closers[w] = c
		}
	}
	sinks := make([]sink, 0, len(outputs))
	for _, w := range outputs {
		if w == nil {
			continue
		}
		sinks = append(sinks, sink{buf: bufio.NewWriterSize(w, bufSize), closer: closers[w]})
	}
	aw := &asyncWriter{
		queue:    make(chan []byte, writerQueueSize),
		flushReq: make(chan chan error),
		done:     make(chan struct{}),
		sinks:    sinks,
	}
	go aw.loop()
	return aw
}

func (w *asyncWriter) loop() {
	defer close(w.done)
	for {
		select {
		case data, ok := <-w.queue:
			if !ok {
				return
			}
			w.setErr(w.writeAll(data))
		case ack := <-w.flushReq:
			ack <- w.flushAll()
		}
	}
}

// Write enqueues a copy of p. It fails only after a sink has failed.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.err(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	w.queue <- append([]byte(nil), p...)
	return nil
}

// Flush waits until everything queued so far reached the sinks.
func (w *asyncWriter) Flush() error {
	if err := w.err(); err != nil {
		return err
	}
	ack := make(chan error, 1)
	w.flushReq <- ack
	return <-ack
}

// Close drains the queue, flushes and closes owned sinks. Every failure is reported.
func (w *asyncWriter) Close() error {
	w.once.Do(func() { close(w.queue) })
	<-w.done

	var result *multierror.Error
	if err := w.err(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := w.flushAll(); err != nil {
		result = multierror.Append(result, err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range w.sinks {
		if s.closer == nil {
			continue
		}
		if err := s.closer.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (w *asyncWriter) writeAll(p []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range w.sinks {
		if _, err := s.buf.Write(p); err != nil {
			return err
		}
		if err := s.buf.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (w *asyncWriter) flushAll() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var result *multierror.Error
	for _, s := range w.sinks {
		if err := s.buf.Flush(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (w *asyncWriter) err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeErr
}

func (w *asyncWriter) setErr(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.writeErr == nil {
		w.writeErr = err
	}
}

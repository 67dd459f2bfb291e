package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Closer flushes and stops the async handler.
type Closer interface {
	Close()
	// Dropped reports how many records were discarded under backpressure.
	Dropped() int64
}

// nopCloser is the Closer for synchronous mode.
type nopCloser struct{}

func (nopCloser) Close()         {}
func (nopCloser) Dropped() int64 { return 0 }

// warnWait bounds how long a warning or error waits for buffer space before
// it is dropped. Lower levels never wait.
const warnWait = 100 * time.Millisecond

// queue is shared by an AsyncHandler and every handler derived from it.
type queue struct {
	ch      chan pending
	wg      sync.WaitGroup
	dropped atomic.Int64

	mu     sync.RWMutex // held for reading while sending; Close takes it to close ch
	closed bool
	once   sync.Once
}

type pending struct {
	inner slog.Handler
	rec   slog.Record
}

// AsyncHandler hands records to background workers so request handlers do
// not block on a slow log sink. Debug and info records are dropped when the
// buffer is full; warnings and errors wait up to warnWait first. Records
// logged after Close are written synchronously.
type AsyncHandler struct {
	inner slog.Handler
	q     *queue
}

// NewAsyncHandler creates an AsyncHandler with the given buffer size and worker count.
func NewAsyncHandler(inner slog.Handler, bufferSize, workers int) *AsyncHandler {
	q := &queue{ch: make(chan pending, bufferSize)}
	for range max(workers, 1) {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for p := range q.ch {
				_ = p.inner.Handle(context.Background(), p.rec)
			}
		}()
	}
	return &AsyncHandler{inner: inner, q: q}
}

// Enabled delegates to the inner handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues the record.
func (h *AsyncHandler) Handle(ctx context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	h.q.mu.RLock()
	defer h.q.mu.RUnlock()
	if h.q.closed {
		return h.inner.Handle(ctx, rec)
	}

	p := pending{inner: h.inner, rec: rec}
	select {
	case h.q.ch <- p:
		return nil
	default:
	}

	if rec.Level < slog.LevelWarn {
		h.q.dropped.Add(1)
		return nil
	}
	timer := time.NewTimer(warnWait)
	defer timer.Stop()
	select {
	case h.q.ch <- p:
	case <-timer.C:
		h.q.dropped.Add(1)
	}
	return nil
}

// WithAttrs returns a handler on the same queue with attrs added.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithAttrs(attrs), q: h.q}
}

// WithGroup returns a handler on the same queue with the group opened.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithGroup(name), q: h.q}
}

// Dropped returns the number of records discarded so far.
func (h *AsyncHandler) Dropped() int64 {
	return h.q.dropped.Load()
}

// Close drains the buffer, stops the workers and reports drops through the
// inner handler. It is safe to call more than once.
func (h *AsyncHandler) Close() {
	h.q.once.Do(func() {
		h.q.mu.Lock()
		h.q.closed = true
		close(h.q.ch)
		h.q.mu.Unlock()
		h.q.wg.Wait()

		if n := h.q.dropped.Load(); n > 0 {
			rec := slog.NewRecord(time.Now(), slog.LevelWarn, "async log buffer overflowed", 0)
			rec.AddAttrs(slog.Int64("dropped", n))
			_ = h.inner.Handle(context.Background(), rec)
		}
	})
}

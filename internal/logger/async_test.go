package logger

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// recordingHandler collects slog.Records for test assertions.
type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
	delay   time.Duration // optional per-record processing delay
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	h.mu.Lock()
	h.records = append(h.records, rec)
	h.mu.Unlock()
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

func TestAsyncHandler_BasicWrite(t *testing.T) {
	inner := &recordingHandler{}
	ah := NewAsyncHandler(inner, 100, 1)

	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "hello", 0)
	if err := ah.Handle(context.Background(), rec); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	ah.Close()

	if got := inner.count(); got != 1 {
		t.Fatalf("expected 1 record, got %d", got)
	}
}

func TestAsyncHandler_ConcurrentWrites(t *testing.T) {
	const goroutines = 100
	const perGoroutine = 100
	total := goroutines * perGoroutine

	inner := &recordingHandler{}
	ah := NewAsyncHandler(inner, 10000, 4)

	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perGoroutine {
				rec := slog.NewRecord(time.Now(), slog.LevelInfo, "concurrent", 0)
				_ = ah.Handle(context.Background(), rec)
			}
		}()
	}
	wg.Wait()
	ah.Close()

	if got := inner.count(); got != total {
		t.Fatalf("expected %d records, got %d", total, got)
	}
}

func TestAsyncHandler_ChannelFullDrops(t *testing.T) {
	// Use a slow inner handler with a tiny channel to force drops.
	inner := &recordingHandler{delay: 10 * time.Millisecond}
	ah := NewAsyncHandler(inner, 1, 1)

	// Rapidly enqueue more records than the channel can hold.
	for range 50 {
		rec := slog.NewRecord(time.Now(), slog.LevelInfo, "flood", 0)
		_ = ah.Handle(context.Background(), rec)
	}

	ah.Close()

	dropped := ah.Dropped()
	if dropped == 0 {
		t.Fatal("expected some records to be dropped, got 0")
	}
	t.Logf("dropped %d out of 50 records", dropped)
}

func TestAsyncHandler_CloseFlushesRemaining(t *testing.T) {
	inner := &recordingHandler{}
	ah := NewAsyncHandler(inner, 1000, 2)

	const total = 200
	for range total {
		rec := slog.NewRecord(time.Now(), slog.LevelInfo, "flush-test", 0)
		_ = ah.Handle(context.Background(), rec)
	}

	// Close should block until all enqueued records are drained.
	ah.Close()

	if got := inner.count(); got != total {
		t.Fatalf("expected %d records after close, got %d", total, got)
	}
}

func TestAsyncHandler_CloseReportsDrops(t *testing.T) {
	inner := &recordingHandler{delay: 5 * time.Millisecond}
	ah := NewAsyncHandler(inner, 1, 1)

	for range 20 {
		_ = ah.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "flood", 0))
	}
	ah.Close()

	if ah.Dropped() == 0 {
		t.Skip("no records dropped on this machine")
	}
	inner.mu.Lock()
	last := inner.records[len(inner.records)-1]
	inner.mu.Unlock()
	if last.Message != "async log buffer overflowed" || last.Level != slog.LevelWarn {
		t.Fatalf("expected overflow warning as last record, got %q at %s", last.Message, last.Level)
	}
}

func TestAsyncHandler_WarningsWaitForSpace(t *testing.T) {
	inner := &recordingHandler{delay: 5 * time.Millisecond}
	ah := NewAsyncHandler(inner, 1, 1)

	for range 5 {
		_ = ah.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelWarn, "sign in failed", 0))
	}
	ah.Close()

	if ah.Dropped() != 0 {
		t.Fatalf("warnings should wait for space, dropped %d", ah.Dropped())
	}
	if got := inner.count(); got != 5 {
		t.Fatalf("expected 5 records, got %d", got)
	}
}

func TestAsyncHandler_HandleAfterCloseWritesThrough(t *testing.T) {
	inner := &recordingHandler{}
	ah := NewAsyncHandler(inner, 10, 1)
	ah.Close()
	ah.Close()

	if err := ah.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "shutting down server", 0)); err != nil {
		t.Fatalf("Handle after Close: %v", err)
	}
	if got := inner.count(); got != 1 {
		t.Fatalf("expected record written synchronously, got %d", got)
	}
}

func TestAsyncHandler_DerivedHandlersShareQueue(t *testing.T) {
	inner := &recordingHandler{}
	ah := NewAsyncHandler(inner, 100, 1)
	child := ah.WithAttrs([]slog.Attr{slog.String("table", "asset_managers")}).WithGroup("fetch")

	_ = child.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "cache miss", 0))
	_ = ah.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "panel built", 0))
	ah.Close()

	if got := inner.count(); got != 2 {
		t.Fatalf("closing the root should flush derived handlers, got %d", got)
	}
}

func TestFrom_AddsRequestID(t *testing.T) {
	inner := &attrHandler{}
	base := slog.New(inner)

	From(context.Background(), base).Info("no id")
	From(WithRequestID(context.Background(), "req-9"), base).Info("with id")

	if len(inner.attrs) != 1 || inner.attrs[0].Key != "request_id" || inner.attrs[0].Value.String() != "req-9" {
		t.Fatalf("unexpected attrs %v", inner.attrs)
	}
}

// attrHandler records attributes attached through WithAttrs.
type attrHandler struct {
	attrs []slog.Attr
}

func (h *attrHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *attrHandler) Handle(context.Context, slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	return nil
}

func (h *attrHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.attrs = append(h.attrs, attrs...)
	return h
}

func (h *attrHandler) WithGroup(string) slog.Handler { return h }

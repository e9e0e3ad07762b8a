package event

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/messages"
)

// DecisionSink persists decisions; influx.Store is the production sink.
type DecisionSink interface {
	WriteDecision(ctx context.Context, d messages.IrrigationDecision) error
}

// Writer wraps a DecisionSink and remembers the last write error for /healthz and /readyz.
type Writer struct {
	sink    DecisionSink
	log     *zap.SugaredLogger
	now     func() time.Time
	mu      sync.RWMutex
	lastErr time.Time
	counts  map[string]int64
}

func NewWriter(sink DecisionSink, log *zap.SugaredLogger) *Writer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Writer{sink: sink, log: log, now: time.Now, counts: make(map[string]int64)}
}

func (w *Writer) Write(ctx context.Context, d messages.IrrigationDecision) error {
	if err := w.sink.WriteDecision(ctx, d); err != nil {
		w.mu.Lock()
		w.lastErr = w.now()
		w.mu.Unlock()
		w.log.Warnw("event: write failed", "field", d.FieldID, "err", err)
		return err
	}
	w.mu.Lock()
	w.counts[string(d.Decision)]++
	w.mu.Unlock()
	return nil
}

// LastErrorAge is the time since the last failed write. It reports a large
// age when no write has ever failed.
func (w *Writer) LastErrorAge() time.Duration {
	w.mu.RLock()
	t := w.lastErr
	w.mu.RUnlock()
	if t.IsZero() {
		return 99999 * time.Hour
	}
	return w.now().Sub(t)
}

// Count returns how many decisions of the given kind were stored.
func (w *Writer) Count(decision string) int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.counts[decision]
}

package limiter

import (
	"context"
	"sync"
	"time"
)

// Result of a windowed check. RetryAfter is only meaningful when Allowed is false.
type Result struct {
	Allowed    bool
	RetryAfter time.Duration
}

// WindowLimiter counts attempts per key over a fixed window. Implementations
// must be safe for concurrent use by requests sharing the same key.
type WindowLimiter interface {
	Check(ctx context.Context, key string, max int, window time.Duration) (Result, error)
}

type windowRecord struct {
	start  time.Time
	window time.Duration
	count  int
}

func (r *windowRecord) expired(now time.Time) bool {
	return !now.Before(r.start.Add(r.window))
}

// MemoryWindow keeps counters in process memory. Suitable for a single instance only.
type MemoryWindow struct {
	mu        sync.Mutex
	records   map[string]*windowRecord
	now       func() time.Time
	lastSweep time.Time
	sweepEach time.Duration
}

func NewMemoryWindow(now func() time.Time) *MemoryWindow {
	if now == nil {
		now = time.Now
	}

	return &MemoryWindow{
		records:   make(map[string]*windowRecord),
		now:       now,
		lastSweep: now(),
		sweepEach: time.Minute,
	}
}

// Check admits up to max attempts per window; the attempt that would exceed max is
// rejected without being counted.
func (l *MemoryWindow) Check(_ context.Context, key string, max int, window time.Duration) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	rec, ok := l.records[key]
	if !ok || rec.expired(now) {
		rec = &windowRecord{start: now, window: window}
		l.records[key] = rec
	}

	if rec.count >= max {
		return Result{Allowed: false, RetryAfter: rec.start.Add(rec.window).Sub(now)}, nil
	}

	rec.count++

	return Result{Allowed: true}, nil
}

func (l *MemoryWindow) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.sweepEach {
		return
	}
	l.lastSweep = now

	for key, rec := range l.records {
		if rec.expired(now) {
			delete(l.records, key)
		}
	}
}

func (l *MemoryWindow) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

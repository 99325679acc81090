package stats

import (
	"context"
	"log"
	"time"

	"github.com/good-yellow-bee/firewatch/internal/clock"
	"github.com/good-yellow-bee/firewatch/internal/models"
	"github.com/good-yellow-bee/firewatch/internal/storage"
)

// DefaultFlushInterval is how often counters are drained into storage.
const DefaultFlushInterval = time.Minute

// Flusher periodically drains the model-call and notification counters
// into the daily_stats table. Exactly one Flusher runs per process; it is
// the only drainer, which keeps the drains race-free.
type Flusher struct {
	modelCalls    *Counter
	notifications *Counter
	stats         storage.StatsRepository
	clock         clock.Clock
	interval      time.Duration
}

// NewFlusher creates a flusher over the two shared counters.
func NewFlusher(modelCalls, notifications *Counter, stats storage.StatsRepository, clk clock.Clock, interval time.Duration) *Flusher {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &Flusher{
		modelCalls:    modelCalls,
		notifications: notifications,
		stats:         stats,
		clock:         clk,
		interval:      interval,
	}
}

// Run drains on every tick until ctx is done, then performs one final
// drain so shutdown does not lose the tail counts.
func (f *Flusher) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.Flush(ctx)
		case <-ctx.Done():
			// Final drain with a fresh context; the run context is gone.
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			f.Flush(flushCtx)
			cancel()
			return nil
		}
	}
}

// Flush drains both counters and applies the deltas to today's row. A
// storage failure is logged and the deltas are put back so the next flush
// retries them; a missed stat update never blocks anything else.
func (f *Flusher) Flush(ctx context.Context) {
	calls := f.modelCalls.Drain()
	sent := f.notifications.Drain()
	if calls == 0 && sent == 0 {
		return
	}

	day := models.DayKey(f.clock.Now())
	if err := f.stats.AddCounters(ctx, day, calls, sent); err != nil {
		log.Printf("stats: flush failed, re-queueing %d/%d: %v", calls, sent, err)
		f.modelCalls.add(calls)
		f.notifications.add(sent)
	}
}

// add restores a drained delta after a failed flush.
func (c *Counter) add(n int64) {
	c.mu.Lock()
	c.n += n
	c.mu.Unlock()
}

package driver

import (
	"context"
	"time"
)

// Ticker is a Clock backed by time.Ticker. time.Ticker drops ticks for
// slow receivers, so the number of elapsed intervals is derived from the
// wall clock instead of counting deliveries.
type Ticker struct {
	interval time.Duration
	ticker   *time.Ticker
	last     time.Time
}

func NewTicker(interval time.Duration) *Ticker {
	return &Ticker{
		interval: interval,
		ticker:   time.NewTicker(interval),
		last:     time.Now(),
	}
}

func (t *Ticker) Wait(ctx context.Context) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()

	case now := <-t.ticker.C:
		n := int(now.Sub(t.last) / t.interval)
		if n < 1 {
			n = 1
		}
		t.last = t.last.Add(time.Duration(n) * t.interval)
		return n, nil
	}
}

func (t *Ticker) Stop() {
	t.ticker.Stop()
}

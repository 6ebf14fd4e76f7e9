package crawl

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"
)

// pause sleeps a random duration inside the configured delay window,
// returning early if the context ends. A non-positive MaxDelay skips
// the pause; the delay is a courtesy throttle, not a correctness
// requirement.
func (d *Driver) pause(ctx context.Context) error {
	if d.cfg.MaxDelay <= 0 {
		return nil
	}
	delay := d.cfg.MinDelay + randomJitter(d.cfg.MaxDelay-d.cfg.MinDelay)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	bound := big.NewInt(int64(limit))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

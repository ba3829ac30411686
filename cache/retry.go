package cache

import (
	"context"
	"time"
)

// backoffDelay follows the product SLA: exponential from one second, capped
// at thirty.
func backoffDelay(attempt int) time.Duration {
	d := time.Duration(1000*(1<<attempt)) * time.Millisecond
	if d > 30*time.Second {
		return 30 * time.Second
	}
	return d
}

// withRetry runs f up to retries+1 times, sleeping the backoff between
// attempts. The last error wins.
func (c *Client) withRetry(ctx context.Context, retries int, f func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = f(); err == nil {
			return nil
		}
		if attempt >= retries {
			return err
		}
		if serr := c.opts.Sleep(ctx, backoffDelay(attempt)); serr != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package workflow

import (
	"context"
	"time"
)

// DefaultPollInterval matches the dashboard's background refresh cadence.
const DefaultPollInterval = 30 * time.Second

// Run refreshes immediately and then every interval until ctx is done.
// Refresh failures are logged and do not stop the loop.
func (c *Controller) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	_ = c.Refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_ = c.Refresh(ctx)
		}
	}
}

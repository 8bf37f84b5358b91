package storage

import (
	"context"
	"log/slog"
	"time"
)

// defaultJanitorInterval is how often the sweep runs when no interval is
// configured.
const defaultJanitorInterval = 15 * time.Minute

// StartJanitor runs a background goroutine that periodically deletes stale
// tab state from backends that accumulate rows. Stale here means hygiene
// only: validity and cooldown are always recomputed from stored timestamps
// on read, so a missed sweep never changes behavior.
//
// If the store does not implement Sweeper the janitor exits immediately.
func StartJanitor(ctx context.Context, store Store, interval, retention time.Duration) {
	sweeper, ok := store.(Sweeper)
	if !ok {
		slog.Info("Storage backend has native expiry, janitor not needed")
		return
	}

	if interval <= 0 {
		interval = defaultJanitorInterval
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Storage janitor started", "interval", interval, "retention", retention)

		for {
			select {
			case <-ticker.C:
				sweep(ctx, sweeper, retention)
			case <-ctx.Done():
				slog.Info("Storage janitor shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweep(ctx context.Context, sweeper Sweeper, retention time.Duration) {
	deleted, err := sweeper.DeleteOlderThan(ctx, retention)
	if err != nil {
		slog.Error("Storage janitor sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Storage janitor removed stale entries", "count", deleted)
	}
}

// Package cooldown enforces the retry lockout for guests who have exhausted
// their trial time. The record is global for the device, not per activity:
// one exhausted window blocks all new timed activities until it lapses.
package cooldown

import (
	"context"
	"math"
	"time"

	"github.com/parlohq/parlo-server/internal/storage"
)

// Window is how long a guest stays blocked after exhausting a time limit.
const Window = 30 * time.Minute

// Tracker is a three-state machine per guest device:
// unrestricted -> expired -> (after Window) unrestricted.
//
// The reset back to unrestricted is lazy: it happens on the next read after
// the window lapses, never via a background timer, so the authoritative
// state is always recomputed from the stored timestamp.
type Tracker struct {
	bag   *storage.Bag
	clock func() time.Time
}

// NewTracker creates a Tracker over the given state bag.
func NewTracker(bag *storage.Bag) *Tracker {
	return NewTrackerWithClock(bag, time.Now)
}

// NewTrackerWithClock creates a Tracker with a custom clock for tests.
func NewTrackerWithClock(bag *storage.Bag, clock func() time.Time) *Tracker {
	if clock == nil {
		clock = time.Now
	}
	return &Tracker{bag: bag, clock: clock}
}

// SetExpired records that the guest hit their time limit, starting the
// cooldown window. Calling it again while a window is already running keeps
// the original timestamp, so repeated expiry signals do not extend the
// lockout.
func (t *Tracker) SetExpired(ctx context.Context) {
	if t.bag.Flag(ctx, storage.KeyGuestTimeExpired) == storage.FlagTrue {
		if ms, ok := t.bag.EpochMillis(ctx, storage.KeyGuestTimeExpiredAt); ok {
			if t.elapsed(ms) < Window {
				return
			}
		}
	}

	t.bag.SetFlag(ctx, storage.KeyGuestTimeExpired, true)
	t.bag.SetEpochMillis(ctx, storage.KeyGuestTimeExpiredAt, t.clock().UnixMilli())
}

// IsExpired reports whether the guest is currently blocked. Once the window
// has fully lapsed the persisted record is cleared as a side effect and the
// guest is unrestricted again; the reset happens exactly at the boundary,
// not after it.
func (t *Tracker) IsExpired(ctx context.Context) bool {
	if t.bag.Flag(ctx, storage.KeyGuestTimeExpired) != storage.FlagTrue {
		return false
	}

	ms, ok := t.bag.EpochMillis(ctx, storage.KeyGuestTimeExpiredAt)
	if !ok {
		// Flag without a timestamp is unreadable state; clear it rather
		// than block the guest forever.
		t.Reset(ctx)
		return false
	}

	if t.elapsed(ms) >= Window {
		t.Reset(ctx)
		return false
	}
	return true
}

// RemainingMinutes returns the whole minutes left in the cooldown, rounded
// up. 0 when the guest is not blocked.
func (t *Tracker) RemainingMinutes(ctx context.Context) int {
	if !t.IsExpired(ctx) {
		return 0
	}

	ms, ok := t.bag.EpochMillis(ctx, storage.KeyGuestTimeExpiredAt)
	if !ok {
		return 0
	}

	elapsedMinutes := float64(t.clock().UnixMilli()-ms) / 60000.0
	remaining := int(math.Ceil(Window.Minutes() - elapsedMinutes))
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset clears the cooldown record regardless of elapsed time, for explicit
// operator or flow overrides.
func (t *Tracker) Reset(ctx context.Context) {
	t.bag.Delete(ctx, storage.KeyGuestTimeExpired)
	t.bag.Delete(ctx, storage.KeyGuestTimeExpiredAt)
}

func (t *Tracker) elapsed(expiredAtMillis int64) time.Duration {
	return time.Duration(t.clock().UnixMilli()-expiredAtMillis) * time.Millisecond
}

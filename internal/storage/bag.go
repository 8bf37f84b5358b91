package storage

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"
)

// Flag is the tri-state value of a boolean marker key. The web client
// historically stored these as the literal string "true" or left the key
// absent; Flag makes that distinction explicit instead of comparing strings
// at every call site.
type Flag int

const (
	// FlagUnset means the key is absent.
	FlagUnset Flag = iota
	// FlagTrue means the key holds a truthy value.
	FlagTrue
	// FlagFalse means the key holds an explicit falsy value.
	FlagFalse
)

// Bool reduces the tri-state to a bool, treating FlagUnset as false.
func (f Flag) Bool() bool {
	return f == FlagTrue
}

// Bag provides typed access to one scope of a Store. Storage failures are
// absorbed here: reads degrade to the zero value and writes are logged and
// dropped, so no caller above this layer ever handles a storage error.
type Bag struct {
	store Store
	scope Scope
}

// NewBag binds a store and a scope.
func NewBag(store Store, scope Scope) *Bag {
	return &Bag{store: store, scope: scope}
}

// Scope returns the scope this bag is bound to.
func (b *Bag) Scope() Scope {
	return b.scope
}

// Get returns the raw string value for a key, or "" and false when the key
// is absent or the backend failed.
func (b *Bag) Get(ctx context.Context, key string) (string, bool) {
	v, err := b.store.Get(ctx, b.scope, key)
	if err != nil {
		if err != ErrNotFound {
			slog.Warn("Storage read failed, treating as absent", "key", key, "error", err)
		}
		return "", false
	}
	return v, true
}

// Set writes a raw string value. Failures are logged and dropped.
func (b *Bag) Set(ctx context.Context, key, value string) {
	if err := b.store.Set(ctx, b.scope, key, value); err != nil {
		slog.Warn("Storage write failed", "key", key, "error", err)
	}
}

// Delete removes a key. Failures are logged and dropped.
func (b *Bag) Delete(ctx context.Context, key string) {
	if err := b.store.Delete(ctx, b.scope, key); err != nil {
		slog.Warn("Storage delete failed", "key", key, "error", err)
	}
}

// Flag reads a tri-state marker flag.
func (b *Bag) Flag(ctx context.Context, key string) Flag {
	v, ok := b.Get(ctx, key)
	if !ok {
		return FlagUnset
	}
	if v == "true" {
		return FlagTrue
	}
	return FlagFalse
}

// SetFlag writes a marker flag as "true" or "false".
func (b *Bag) SetFlag(ctx context.Context, key string, value bool) {
	b.Set(ctx, key, strconv.FormatBool(value))
}

// TakeFlag reads a marker flag and clears it in the same call, for
// consume-once markers such as intentionalNavigation.
func (b *Bag) TakeFlag(ctx context.Context, key string) Flag {
	f := b.Flag(ctx, key)
	if f != FlagUnset {
		b.Delete(ctx, key)
	}
	return f
}

// Counter reads a string-encoded integer counter. Absent or malformed
// values read as 0.
func (b *Bag) Counter(ctx context.Context, key string) int {
	v, ok := b.Get(ctx, key)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("Malformed counter value, treating as 0", "key", key, "value", v)
		return 0
	}
	return n
}

// SetCounter writes an integer counter.
func (b *Bag) SetCounter(ctx context.Context, key string, n int) {
	b.Set(ctx, key, strconv.Itoa(n))
}

// IncrCounter increments a counter and returns the new value.
func (b *Bag) IncrCounter(ctx context.Context, key string) int {
	n := b.Counter(ctx, key) + 1
	b.SetCounter(ctx, key, n)
	return n
}

// Time reads an RFC3339 timestamp. Returns the zero time and false when the
// key is absent or the value does not parse; a malformed timestamp must read
// as missing, never crash a caller.
func (b *Bag) Time(ctx context.Context, key string) (time.Time, bool) {
	v, ok := b.Get(ctx, key)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		slog.Warn("Malformed timestamp, treating as absent", "key", key, "value", v)
		return time.Time{}, false
	}
	return t, true
}

// SetTime writes a timestamp as RFC3339.
func (b *Bag) SetTime(ctx context.Context, key string, t time.Time) {
	b.Set(ctx, key, t.Format(time.RFC3339))
}

// EpochMillis reads a string-encoded epoch-millisecond timestamp.
func (b *Bag) EpochMillis(ctx context.Context, key string) (int64, bool) {
	v, ok := b.Get(ctx, key)
	if !ok {
		return 0, false
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("Malformed epoch timestamp, treating as absent", "key", key, "value", v)
		return 0, false
	}
	return ms, true
}

// SetEpochMillis writes an epoch-millisecond timestamp.
func (b *Bag) SetEpochMillis(ctx context.Context, key string, ms int64) {
	b.Set(ctx, key, strconv.FormatInt(ms, 10))
}

// JSON reads a JSON-serialized value into dest. Returns false when the key
// is absent or the payload does not decode.
func (b *Bag) JSON(ctx context.Context, key string, dest interface{}) bool {
	v, ok := b.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(v), dest); err != nil {
		slog.Warn("Malformed JSON value, treating as absent", "key", key, "error", err)
		return false
	}
	return true
}

// SetJSON writes a value as JSON, overwriting any prior value.
func (b *Bag) SetJSON(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Failed to serialize value for storage", "key", key, "error", err)
		return
	}
	b.Set(ctx, key, string(data))
}

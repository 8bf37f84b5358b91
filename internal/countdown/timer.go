// Package countdown implements the UI-independent countdown that enforces a
// time budget during an active step. The tick source is injected so tests
// drive time deterministically instead of sleeping.
package countdown

import (
	"sync"
	"time"
)

// DefaultWarningThreshold is the remaining-seconds mark at which the
// warning event fires when no threshold is configured.
const DefaultWarningThreshold = 30

// State is the lifecycle state of a Timer.
type State int

const (
	// StateIdle means the timer has not started; remaining equals the budget.
	StateIdle State = iota
	// StateActive means the timer is counting down (possibly paused).
	StateActive
	// StateExpired means the budget ran out; the terminal event has fired.
	StateExpired
)

// Ticker is the tick source driving a Timer. The real implementation wraps
// time.Ticker; tests use ManualTicker.
type Ticker interface {
	// C delivers ticks.
	C() <-chan time.Time
	// Stop releases the tick source. No tick is delivered after Stop.
	Stop()
}

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// ManualTicker is a hand-driven Ticker for deterministic tests.
type ManualTicker struct {
	ch chan time.Time
}

// NewManualTicker creates a ManualTicker.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{ch: make(chan time.Time)}
}

// C delivers ticks pushed by Tick.
func (m *ManualTicker) C() <-chan time.Time { return m.ch }

// Stop is a no-op; the driving test controls delivery.
func (m *ManualTicker) Stop() {}

// Tick delivers one tick and blocks until the timer goroutine accepts it,
// so a tick's effects are committed before the test proceeds.
func (m *ManualTicker) Tick() {
	m.ch <- time.Now()
}

// Config configures a Timer.
type Config struct {
	// Budget is the initial remaining time in seconds.
	Budget int

	// WarningThreshold is the remaining value at which OnWarning fires.
	// Zero means DefaultWarningThreshold.
	WarningThreshold int

	// OnWarning fires exactly once per run when remaining reaches the
	// threshold. Must not call back into the Timer.
	OnWarning func()

	// OnExpired fires exactly once per run when remaining reaches zero.
	// Must not call back into the Timer.
	OnExpired func()

	// NewTicker builds the tick source. Nil means a real 1-second ticker.
	NewTicker func(d time.Duration) Ticker
}

// Timer counts a seconds budget down on an injected tick source.
//
// A single goroutine consumes ticks, so tick N's effects are visible before
// tick N+1 is processed; overlapping ticks cannot occur. After Stop no
// callback fires, guaranteed by taking the timer lock for both callbacks
// and teardown.
type Timer struct {
	mu               sync.Mutex
	remaining        int
	warningThreshold int
	warned           bool
	expired          bool
	started          bool
	paused           bool
	stopped          bool

	onWarning func()
	onExpired func()

	newTicker func(d time.Duration) Ticker
	stop      chan struct{}
	stopOnce  sync.Once
}

// New creates a Timer in the idle state.
func New(cfg Config) *Timer {
	threshold := cfg.WarningThreshold
	if threshold <= 0 {
		threshold = DefaultWarningThreshold
	}
	newTicker := cfg.NewTicker
	if newTicker == nil {
		newTicker = func(d time.Duration) Ticker { return realTicker{t: time.NewTicker(d)} }
	}
	return &Timer{
		remaining:        cfg.Budget,
		warningThreshold: threshold,
		onWarning:        cfg.OnWarning,
		onExpired:        cfg.OnExpired,
		newTicker:        newTicker,
		stop:             make(chan struct{}),
	}
}

// Start transitions Idle -> Active and begins consuming ticks. Calling
// Start again is a no-op.
func (t *Timer) Start() {
	t.mu.Lock()
	if t.started || t.stopped {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.mu.Unlock()

	ticker := t.newTicker(time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C():
				t.tick()
			case <-t.stop:
				return
			}
		}
	}()
}

// tick applies one 1-second step.
func (t *Timer) tick() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped || t.paused || t.expired {
		return
	}

	t.remaining--
	if t.remaining < 0 {
		t.remaining = 0
	}

	if t.remaining == t.warningThreshold && !t.warned {
		t.warned = true
		if t.onWarning != nil {
			t.onWarning()
		}
	}

	if t.remaining == 0 {
		t.expired = true
		if t.onExpired != nil {
			t.onExpired()
		}
	}
}

// Pause suspends ticking without resetting remaining or the warned flag.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paused = true
}

// Resume continues from the paused value; it is not a restart.
func (t *Timer) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paused = false
}

// SetBudget resets remaining to a new budget and clears the warned and
// expired marks, beginning a new run on the same tick source.
func (t *Timer) SetBudget(seconds int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.remaining = seconds
	t.warned = false
	t.expired = false
}

// Remaining returns the seconds left.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// State returns the current lifecycle state.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.expired:
		return StateExpired
	case t.started:
		return StateActive
	default:
		return StateIdle
	}
}

// Stop tears the timer down and releases the tick source. No warning or
// expiry callback fires after Stop returns. Safe to call more than once.
func (t *Timer) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()

	t.stopOnce.Do(func() { close(t.stop) })
}

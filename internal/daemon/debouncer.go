package daemon

import (
	"context"
	"time"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Trigger describes one debounced rebuild.
type Trigger struct {
	RequestCount int
	LastReason   string // path of the last changed file
	Cause        string // quiet | max_delay | after_running
}

type DebouncerConfig struct {
	QuietWindow time.Duration
	MaxDelay    time.Duration

	// BuildRunning holds a trigger back until the current build finishes.
	BuildRunning func() bool
	PollInterval time.Duration

	Fire func(ctx context.Context, t Trigger)
}

// Debouncer turns a burst of file change events into one rebuild. It fires
// after QuietWindow without changes, or MaxDelay after the first change of
// the burst, and never while a build is running.
type Debouncer struct {
	cfg     DebouncerConfig
	changes chan string
}

func NewDebouncer(cfg DebouncerConfig) (*Debouncer, error) {
	if cfg.QuietWindow <= 0 || cfg.MaxDelay <= 0 {
		return nil, ferrors.ValidationError("quiet window and max delay must be positive").
			WithContext("quiet_window", cfg.QuietWindow).
			WithContext("max_delay", cfg.MaxDelay).
			Build()
	}
	if cfg.Fire == nil {
		return nil, ferrors.ValidationError("fire callback is required").Build()
	}
	if cfg.BuildRunning == nil {
		cfg.BuildRunning = func() bool { return false }
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}
	return &Debouncer{cfg: cfg, changes: make(chan string, 64)}, nil
}

// Request records a changed path. It never blocks; a full buffer already
// guarantees a rebuild, so the change is dropped.
func (d *Debouncer) Request(path string) {
	select {
	case d.changes <- path:
	default:
	}
}

// Run owns the pending burst and calls Fire from its own goroutine, so
// changes arriving during a rebuild start the next burst.
func (d *Debouncer) Run(ctx context.Context) error {
	var (
		pending  Trigger
		quiet    <-chan time.Time
		maxDelay <-chan time.Time
		poll     <-chan time.Time
	)
	fire := func(cause string) {
		if pending.RequestCount == 0 {
			return
		}
		if d.cfg.BuildRunning() {
			if poll == nil {
				poll = time.After(d.cfg.PollInterval)
			}
			return
		}
		t := pending
		t.Cause = cause
		pending, quiet, maxDelay, poll = Trigger{}, nil, nil, nil
		d.cfg.Fire(ctx, t)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case path := <-d.changes:
			if pending.RequestCount == 0 {
				maxDelay = time.After(d.cfg.MaxDelay)
			}
			pending.RequestCount++
			pending.LastReason = path
			quiet = time.After(d.cfg.QuietWindow)
		case <-quiet:
			quiet = nil
			fire("quiet")
		case <-maxDelay:
			maxDelay = nil
			fire("max_delay")
		case <-poll:
			poll = nil
			fire("after_running")
		}
	}
}

package chrono

import (
	"context"
	"sync"
	"time"
)

// API is the clock every timed component depends on, the polling waits read
// elapsed time and sleep through it so tests can run them without real delays.
type API interface {
	Now() time.Time
	// Sleep blocks for `d` or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
}

// StandardImpl is the wall clock, pinned to UTC because timestamps end up in
// artifacts that are read from runners in different zones.
type StandardImpl struct{}

func (StandardImpl) Now() time.Time {
	return time.Now().UTC()
}

func (StandardImpl) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fake is a manual clock, Sleep advances it instantly.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.Advance(d)
	return nil
}

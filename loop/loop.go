// Package loop provides the single-threaded event queue that every playback
// component runs on.
package loop

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStopped is returned by Call once Run has returned.
var ErrStopped = errors.New("loop stopped")

// A Timer is a pending callback that can be cancelled.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the timer before it ran.
	Stop() bool
}

// Loop runs posted callbacks, timer firings and display-refresh ticks one at a time
// on a single goroutine.
type Loop struct {
	queue         chan func()
	frameInterval time.Duration
	stopped       chan struct{}
	stopOnce      sync.Once

	mu       sync.Mutex
	frameReq []func()
}

// New creates a Loop that delivers refresh ticks every frameInterval.
func New(frameInterval time.Duration) *Loop {
	l := new(Loop)
	l.queue = make(chan func(), 256)
	l.frameInterval = frameInterval
	l.stopped = make(chan struct{})
	return l
}

// Post queues fn to run on the loop. Safe to call from any goroutine. Once the loop
// has stopped fn is dropped.
func (l *Loop) Post(fn func()) {
	select {
	case l.queue <- fn:
	case <-l.stopped:
	}
}

// Call runs fn on the loop and waits for it to finish, for ctx to end or for the
// loop to stop.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	select {
	case <-l.stopped:
		return ErrStopped
	default:
	}

	done := make(chan struct{})
	select {
	case l.queue <- func() { fn(); close(done) }:
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-l.stopped:
		select {
		case <-done:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Now returns the current time.
func (l *Loop) Now() time.Time {
	return time.Now()
}

// RequestFrame queues fn for the next refresh tick.
func (l *Loop) RequestFrame(fn func()) {
	l.mu.Lock()
	l.frameReq = append(l.frameReq, fn)
	l.mu.Unlock()
}

type loopTimer struct {
	l       *Loop
	t       *time.Timer
	mu      sync.Mutex
	stopped bool
	fired   bool
}

// AfterFunc runs fn on the loop after d. Stop is honoured even when the underlying
// timer has already fired but fn has not yet been dequeued.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	lt := &loopTimer{l: l}
	lt.t = time.AfterFunc(d, func() {
		l.Post(func() {
			lt.mu.Lock()
			if lt.stopped {
				lt.mu.Unlock()
				return
			}
			lt.fired = true
			lt.mu.Unlock()
			fn()
		})
	})
	return lt
}

func (lt *loopTimer) Stop() bool {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	lt.t.Stop()
	if lt.stopped || lt.fired {
		return false
	}
	lt.stopped = true
	return true
}

// Run processes the queue until ctx is cancelled. A Loop can only be run once.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.frameInterval)
	defer ticker.Stop()
	defer l.stopOnce.Do(func() { close(l.stopped) })

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.queue:
			fn()
		case <-ticker.C:
			l.mu.Lock()
			batch := l.frameReq
			l.frameReq = nil
			l.mu.Unlock()
			for _, fn := range batch {
				fn()
			}
		}
	}
}

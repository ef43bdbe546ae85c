package loop

import (
	"sort"
	"time"
)

// Manual is a deterministic scheduler driven by hand. Time only moves on Advance and
// refresh ticks only happen on Frame. It is used by tests and by offline simulation.
//
// Manual is not safe for concurrent use.
type Manual struct {
	now      time.Time
	queue    []func()
	frameReq []func()
	timers   []*manualTimer
	seq      int
}

type manualTimer struct {
	m       *Manual
	at      time.Time
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

// NewManual creates a Manual scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	m := new(Manual)
	m.now = start
	return m
}

// Post queues fn. It runs on the next Drain, Advance or Frame.
func (m *Manual) Post(fn func()) {
	m.queue = append(m.queue, fn)
}

// Now returns the virtual time.
func (m *Manual) Now() time.Time {
	return m.now
}

// RequestFrame queues fn for the next Frame.
func (m *Manual) RequestFrame(fn func()) {
	m.frameReq = append(m.frameReq, fn)
}

// AfterFunc schedules fn at the virtual time now+d.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	m.seq++
	t := &manualTimer{m: m, at: m.now.Add(d), seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Drain runs queued callbacks until the queue is empty.
func (m *Manual) Drain() {
	for len(m.queue) > 0 {
		fn := m.queue[0]
		m.queue = m.queue[1:]
		fn()
	}
}

// Frame delivers one refresh tick to every callback requested before the call.
func (m *Manual) Frame() {
	m.Drain()
	batch := m.frameReq
	m.frameReq = nil
	for _, fn := range batch {
		fn()
	}
	m.Drain()
}

// PendingFrames reports how many callbacks wait for the next refresh tick.
func (m *Manual) PendingFrames() int {
	return len(m.frameReq)
}

// PendingTimers reports how many timers are armed and not yet fired.
func (m *Manual) PendingTimers() int {
	n := 0
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, firing due timers in time order and draining
// the queue after each one.
func (m *Manual) Advance(d time.Duration) {
	end := m.now.Add(d)
	m.Drain()
	for {
		next := m.nextDue(end)
		if next == nil {
			break
		}
		if next.at.After(m.now) {
			m.now = next.at
		}
		next.fired = true
		next.fn()
		m.Drain()
	}
	m.now = end
}

func (m *Manual) nextDue(end time.Time) *manualTimer {
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	m.timers = live

	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].at.Equal(m.timers[j].at) {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].at.Before(m.timers[j].at)
	})
	if len(m.timers) == 0 || m.timers[0].at.After(end) {
		return nil
	}
	return m.timers[0]
}

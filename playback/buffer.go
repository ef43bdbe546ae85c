package playback

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/matt-g-everett/framescroll/loop"
)

// FrameState is the lifecycle state of a single frame.
type FrameState int

const (
	Absent FrameState = iota
	Loading
	Resident
	Upgraded
)

func (s FrameState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Resident:
		return "resident"
	case Upgraded:
		return "upgraded"
	default:
		return "absent"
	}
}

type frame struct {
	state   FrameState
	element Element
	// inflight outlives the Loading state: an evicted frame keeps its load here so a
	// later request reuses it instead of starting a second one.
	inflight *loop.Future[Asset]
}

// BufferManager keeps the frames around the current one resident and evicts the rest.
type BufferManager struct {
	seq    *Sequence
	view   View
	loader AssetLoader
	log    logrus.FieldLogger

	frames []frame
	live   map[int]struct{}

	shown     int
	target    int
	buffering int
	loads     int

	onShown       func(frame int)
	onIdle        func()
	markPreloaded func(frame int)
}

// NewBufferManager creates a BufferManager for seq with every frame absent.
func NewBufferManager(seq *Sequence, view View, loader AssetLoader, log logrus.FieldLogger) *BufferManager {
	b := new(BufferManager)
	b.seq = seq
	b.view = view
	b.loader = loader
	b.log = log.WithField("component", "buffer")
	b.frames = make([]frame, seq.Len()+1)
	b.live = make(map[int]struct{})
	return b
}

// OnShown sets the callback fired every time a frame is made visible.
func (b *BufferManager) OnShown(fn func(frame int)) { b.onShown = fn }

// OnIdle sets the callback fired when the last pending EnsureFrame load settles.
func (b *BufferManager) OnIdle(fn func()) { b.onIdle = fn }

// RecordPreloaded sets the callback used to report every frame the buffer starts loading.
func (b *BufferManager) RecordPreloaded(fn func(frame int)) { b.markPreloaded = fn }

// State returns the state of a frame. Out of range indices are Absent.
func (b *BufferManager) State(index int) FrameState {
	if !b.seq.Contains(index) {
		return Absent
	}
	return b.frames[index].state
}

// Shown returns the visible frame, or 0 before any frame has been shown.
func (b *BufferManager) Shown() int { return b.shown }

// Buffering reports whether an EnsureFrame load is pending.
func (b *BufferManager) Buffering() bool { return b.buffering > 0 }

// Loads returns the number of low resolution loads issued so far.
func (b *BufferManager) Loads() int { return b.loads }

// InFlight reports whether a low resolution load for index has not settled yet.
func (b *BufferManager) InFlight(index int) bool {
	return b.seq.Contains(index) && b.frames[index].inflight != nil
}

// Live returns the sorted indices of every frame that is loading, resident or upgraded.
func (b *BufferManager) Live() []int {
	out := make([]int, 0, len(b.live))
	for i := range b.live {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func (b *BufferManager) setState(index int, s FrameState) {
	b.frames[index].state = s
	if s == Absent {
		delete(b.live, index)
	} else {
		b.live[index] = struct{}{}
	}
}

// EnsureFrame makes index resident and visible. A resident frame is shown right away
// and the returned Future is already resolved. Otherwise the Future resolves once the
// frame loaded and was shown, or fails with a *FrameLoadError, ErrFrameSuperseded or
// ErrFrameOutOfRange.
func (b *BufferManager) EnsureFrame(index int) *loop.Future[int] {
	if !b.seq.Contains(index) {
		return loop.Failed[int](ErrFrameOutOfRange)
	}
	b.target = index

	f := &b.frames[index]
	if f.state == Resident || f.state == Upgraded {
		b.show(index)
		b.Rebalance(index)
		return loop.Resolved(index)
	}

	if f.state == Absent {
		b.setState(index, Loading)
		if b.markPreloaded != nil {
			b.markPreloaded(index)
		}
	}

	out := loop.NewFuture[int]()
	b.buffering++
	b.fetch(index).OnComplete(func(_ Asset, err error) {
		b.buffering--

		state := b.frames[index].state
		switch {
		case err != nil:
			out.Reject(&FrameLoadError{Index: index, Err: err})
		case b.target != index || (state != Resident && state != Upgraded):
			out.Reject(ErrFrameSuperseded)
		default:
			b.show(index)
			b.Rebalance(index)
			out.Resolve(index)
		}

		if b.buffering == 0 && b.onIdle != nil {
			b.onIdle()
		}
	})
	return out
}

// Prefetch loads the low resolution asset of index without making it resident unless
// the frame is requested meanwhile. It shares the in-flight load of the frame if one
// exists and does nothing for frames that are already resident.
func (b *BufferManager) Prefetch(index int) *loop.Future[Asset] {
	if !b.seq.Contains(index) {
		return loop.Failed[Asset](ErrFrameOutOfRange)
	}
	if s := b.frames[index].state; s == Resident || s == Upgraded {
		return loop.Resolved[Asset](nil)
	}
	return b.fetch(index)
}

func (b *BufferManager) fetch(index int) *loop.Future[Asset] {
	f := &b.frames[index]
	if f.inflight != nil {
		return f.inflight
	}

	fut := b.loader.LoadAsset(b.seq.URL(index, Low))
	b.loads++
	f.inflight = fut
	fut.OnComplete(func(a Asset, err error) {
		b.settle(index, fut, a, err)
	})
	return fut
}

func (b *BufferManager) settle(index int, fut *loop.Future[Asset], a Asset, err error) {
	f := &b.frames[index]
	if f.inflight == fut {
		f.inflight = nil
	}
	if f.state != Loading {
		// Evicted while loading, or fetched for preloading only.
		return
	}

	if err != nil {
		b.log.WithError(err).WithField("frame", index).Warn("Frame load failed")
		b.setState(index, Absent)
		return
	}

	f.element = b.view.CreateFrame(index, Low, a)
	b.setState(index, Resident)
}

func (b *BufferManager) show(index int) {
	if b.shown != 0 && b.shown != index {
		if prev := b.frames[b.shown].element; prev != nil {
			b.view.Hide(prev)
		}
	}

	b.view.Show(b.frames[index].element)
	b.shown = index
	if b.onShown != nil {
		b.onShown(index)
	}
}

// Rebalance evicts every frame outside the buffer window of center, then starts loads
// for every absent frame inside it.
func (b *BufferManager) Rebalance(center int) {
	if !b.seq.Contains(center) {
		return
	}
	lo, hi := b.seq.Window(center)

	for _, i := range b.Live() {
		if i < lo || i > hi {
			b.evict(i)
		}
	}

	for i := lo; i <= hi; i++ {
		if b.frames[i].state != Absent {
			continue
		}
		b.setState(i, Loading)
		if b.markPreloaded != nil {
			b.markPreloaded(i)
		}
		b.fetch(i)
	}
}

func (b *BufferManager) evict(index int) {
	f := &b.frames[index]
	switch f.state {
	case Resident, Upgraded:
		b.view.Remove(f.element)
		f.element = nil
	case Loading:
	default:
		return
	}

	b.setState(index, Absent)
	if b.shown == index {
		b.shown = 0
	}
}

// loading returns the low resolution load of index while the frame is Loading.
func (b *BufferManager) loading(index int) *loop.Future[Asset] {
	if b.State(index) != Loading {
		return nil
	}
	return b.frames[index].inflight
}

// swapHighRes replaces the low resolution element of a resident frame. It reports
// false when the frame is no longer resident.
func (b *BufferManager) swapHighRes(index int, a Asset) bool {
	if !b.seq.Contains(index) {
		return false
	}
	f := &b.frames[index]
	if f.state != Resident {
		return false
	}

	el := b.view.CreateFrame(index, High, a)
	if b.shown == index {
		b.view.Show(el)
	}
	b.view.Remove(f.element)
	f.element = el
	b.setState(index, Upgraded)
	return true
}

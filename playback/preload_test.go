package playback

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matt-g-everett/framescroll/loop"
)

type preloadRig struct {
	sched    *loop.Manual
	buffer   *BufferManager
	preload  *Preloader
	loader   *fakeLoader
	seq      *Sequence
	busy     bool
	complete int
}

func newPreloadRig(t *testing.T, n, radius int, enabled bool) *preloadRig {
	t.Helper()
	r := &preloadRig{}
	o := testOptions(n, radius)
	o.EnablePreload = enabled
	o.OnPreloadComplete = func() { r.complete++ }
	r.seq = mustSequence(t, o)

	m := newManual()
	r.sched = m
	r.loader = newFakeLoader()
	r.buffer = NewBufferManager(r.seq, &fakeView{}, r.loader, testLogger())
	r.preload = NewPreloader(r.seq, m, r.buffer, func() bool { return r.busy }, testLogger())
	r.buffer.RecordPreloaded(r.preload.MarkPreloaded)
	return r
}

func TestPreloaderDisabledDoesNothing(t *testing.T) {
	r := newPreloadRig(t, 5, 0, false)
	r.preload.Tick()
	r.sched.Advance(time.Second)
	assert.Empty(t, r.loader.order)
	assert.False(t, r.preload.Complete())
}

func TestPreloaderLoadsInOrderOneAtATime(t *testing.T) {
	r := newPreloadRig(t, 4, 0, true)

	r.preload.Tick()
	require.Equal(t, []string{lowURL(r.seq, 1)}, r.loader.order)

	// A second tick while a load is running does not start another one.
	r.preload.Tick()
	r.sched.Advance(50 * time.Millisecond)
	assert.Equal(t, 1, r.loader.openTotal())

	for i := 1; i <= 4; i++ {
		r.loader.resolve(t, lowURL(r.seq, i))
		assert.True(t, r.preload.Preloaded(i))
		r.sched.Advance(time.Millisecond)
		assert.LessOrEqual(t, r.loader.openTotal(), 1)
	}

	assert.Equal(t, []string{
		lowURL(r.seq, 1), lowURL(r.seq, 2), lowURL(r.seq, 3), lowURL(r.seq, 4),
	}, r.loader.order)
	assert.True(t, r.preload.Complete())
	assert.Equal(t, 1, r.complete)

	// Preloaded frames outside any buffer window are not kept resident.
	assert.Empty(t, r.buffer.Live())

	r.preload.Tick()
	r.sched.Advance(time.Second)
	assert.Equal(t, 1, r.complete)
	assert.Len(t, r.loader.order, 4)
}

func TestPreloaderWaitsWhileBusy(t *testing.T) {
	r := newPreloadRig(t, 3, 0, true)
	r.loader.auto = true
	r.busy = true

	r.preload.Tick()
	r.sched.Advance(100 * time.Millisecond)
	assert.Empty(t, r.loader.order, "no preload while animating")

	r.busy = false
	r.sched.Advance(DefaultPreloadDelay)
	assert.Len(t, r.loader.order, 3)
	assert.True(t, r.preload.Complete())
	assert.Equal(t, 1, r.complete)
}

func TestPreloaderWaitsWhileBuffering(t *testing.T) {
	r := newPreloadRig(t, 10, 0, true)

	r.buffer.EnsureFrame(5)
	require.True(t, r.buffer.Buffering())

	r.preload.Tick()
	r.sched.Advance(100 * time.Millisecond)
	assert.Equal(t, []string{lowURL(r.seq, 5)}, r.loader.order)

	r.loader.resolve(t, lowURL(r.seq, 5))
	r.sched.Advance(DefaultPreloadDelay)
	assert.Equal(t, lowURL(r.seq, 1), r.loader.order[len(r.loader.order)-1])
}

func TestPreloaderSkipsWindowFrames(t *testing.T) {
	r := newPreloadRig(t, 6, 1, true)
	r.loader.auto = true

	r.buffer.EnsureFrame(2)
	assert.Equal(t, 3, r.preload.Count())

	r.preload.Tick()
	r.sched.Advance(time.Second)

	assert.True(t, r.preload.Complete())
	for i := 1; i <= 6; i++ {
		assert.Equal(t, 1, r.loader.requests[lowURL(r.seq, i)], "frame %d", i)
	}
	assert.Equal(t, []int{1, 2, 3}, r.buffer.Live())
}

func TestPreloaderCountsFailures(t *testing.T) {
	r := newPreloadRig(t, 3, 0, true)
	r.loader.auto = true
	r.loader.fail[lowURL(r.seq, 2)] = errors.New("missing")

	r.preload.Tick()
	r.sched.Advance(time.Second)

	assert.True(t, r.preload.Complete())
	assert.Equal(t, 3, r.preload.Count())
	assert.Equal(t, 1, r.loader.requests[lowURL(r.seq, 2)])
}

func TestPreloaderSetOnlyGrows(t *testing.T) {
	r := newPreloadRig(t, 8, 0, true)

	last := 0
	r.preload.Tick()
	for step := 0; step < 20 && !r.preload.Complete(); step++ {
		r.loader.resolveAll()
		r.sched.Advance(time.Millisecond)
		require.GreaterOrEqual(t, r.preload.Count(), last)
		last = r.preload.Count()
	}
	assert.Equal(t, 8, last)
	assert.Equal(t, 1, r.complete)
}

package playback

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/matt-g-everett/framescroll/loop"
)

// Preloader loads the whole sequence in the background, one frame at a time, while
// playback is idle.
type Preloader struct {
	seq     *Sequence
	sched   Scheduler
	buffer  *BufferManager
	busy    func() bool
	log     logrus.FieldLogger
	enabled bool
	delay   time.Duration

	preloaded []bool
	count     int
	complete  bool
	inflight  bool
	timer     loop.Timer

	onComplete func()
}

// NewPreloader creates a Preloader. busy reports whether playback is animating; the
// buffer's own loading state is checked separately.
func NewPreloader(seq *Sequence, sched Scheduler, buffer *BufferManager, busy func() bool, log logrus.FieldLogger) *Preloader {
	p := new(Preloader)
	p.seq = seq
	p.sched = sched
	p.buffer = buffer
	p.busy = busy
	p.log = log.WithField("component", "preload")
	p.enabled = seq.Options().EnablePreload
	p.delay = seq.Options().PreloadDelay
	p.preloaded = make([]bool, seq.Len()+1)
	p.onComplete = seq.Options().OnPreloadComplete
	return p
}

// MarkPreloaded records index as preloaded.
func (p *Preloader) MarkPreloaded(index int) {
	if !p.seq.Contains(index) || p.preloaded[index] {
		return
	}
	p.preloaded[index] = true
	p.count++
}

// Preloaded reports whether index has been preloaded.
func (p *Preloader) Preloaded(index int) bool {
	return p.seq.Contains(index) && p.preloaded[index]
}

// Count returns the number of preloaded frames.
func (p *Preloader) Count() int { return p.count }

// Complete reports whether every frame has been preloaded.
func (p *Preloader) Complete() bool { return p.complete }

// Tick does one step of background preloading.
func (p *Preloader) Tick() {
	if !p.enabled || p.complete {
		return
	}

	if p.count >= p.seq.Len() {
		p.complete = true
		p.stopTimer()
		p.log.WithField("frames", p.count).Info("All frames preloaded")
		if p.onComplete != nil {
			p.onComplete()
		}
		return
	}

	if p.inflight {
		return
	}

	if p.busy() || p.buffer.Buffering() {
		p.schedule(p.delay)
		return
	}

	index := p.next()
	p.inflight = true
	p.buffer.Prefetch(index).OnComplete(func(_ Asset, err error) {
		p.inflight = false
		if err != nil {
			p.log.WithError(err).WithField("frame", index).Warn("Preload failed")
		}
		p.MarkPreloaded(index)
		p.schedule(0)
	})
}

func (p *Preloader) next() int {
	for i := 1; i <= p.seq.Len(); i++ {
		if !p.preloaded[i] {
			return i
		}
	}
	return 0
}

func (p *Preloader) schedule(d time.Duration) {
	if p.timer != nil {
		return
	}
	p.timer = p.sched.AfterFunc(d, func() {
		p.timer = nil
		p.Tick()
	})
}

func (p *Preloader) stopTimer() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

package playback

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/matt-g-everett/framescroll/loop"
)

// Status is a point-in-time view of the player.
type Status struct {
	CurrentFrame      int   `json:"currentFrame"`
	ShownFrame        int   `json:"shownFrame"`
	Animating         bool  `json:"animating"`
	Buffering         bool  `json:"buffering"`
	Live              []int `json:"live"`
	Preloaded         int   `json:"preloaded"`
	PreloadComplete   bool  `json:"preloadComplete"`
	PendingUpgrade    int   `json:"pendingUpgrade"`
	UpgradesApplied   int   `json:"upgradesApplied"`
	LowResLoadsIssued int   `json:"lowResLoadsIssued"`
}

// Controller maps scroll activity onto frames. It is Idle until a scroll signal
// arrives, Animating while the frame follows the scroll position, and Idle again
// once the position stops moving.
type Controller struct {
	seq    *Sequence
	sched  Scheduler
	scroll ScrollSource
	log    logrus.FieldLogger

	buffer   *BufferManager
	preload  *Preloader
	upgrader *ResolutionUpgrader

	currentFrame int
	lastFrame    int
	animating    bool
	frameQueued  bool
	settleTimer  loop.Timer
	settleAfter  time.Duration
}

// NewController creates an instance of a Controller and its buffer, preloader and
// upgrader. It must be started on the loop goroutine with Start.
func NewController(seq *Sequence, sched Scheduler, scroll ScrollSource, view View,
	loader AssetLoader, log logrus.FieldLogger) *Controller {

	c := new(Controller)
	c.seq = seq
	c.sched = sched
	c.scroll = scroll
	c.log = log.WithField("component", "controller")
	c.settleAfter = seq.Options().SettleAfter
	c.currentFrame = 1
	c.lastFrame = 1

	c.buffer = NewBufferManager(seq, view, loader, log)
	c.preload = NewPreloader(seq, sched, c.buffer, c.Animating, log)
	c.upgrader = NewResolutionUpgrader(seq, c.buffer, loader, log)

	c.buffer.RecordPreloaded(c.preload.MarkPreloaded)
	c.buffer.OnIdle(c.preload.Tick)
	if fn := seq.Options().OnFramesShown; fn != nil {
		c.buffer.OnShown(fn)
	}

	return c
}

// Buffer returns the controller's BufferManager.
func (c *Controller) Buffer() *BufferManager { return c.buffer }

// Preloader returns the controller's Preloader.
func (c *Controller) Preloader() *Preloader { return c.preload }

// Upgrader returns the controller's ResolutionUpgrader.
func (c *Controller) Upgrader() *ResolutionUpgrader { return c.upgrader }

// CurrentFrame returns the frame matching the last observed scroll position.
func (c *Controller) CurrentFrame() int { return c.currentFrame }

// Animating reports whether the animation loop is running.
func (c *Controller) Animating() bool { return c.animating }

// Start shows the frame for the current scroll position and upgrades it when
// upgrades are enabled.
func (c *Controller) Start() {
	c.currentFrame = c.calculateFrame()
	c.lastFrame = c.currentFrame
	c.log.WithField("frame", c.currentFrame).Info("Starting playback")

	c.ShowFrameWhenReady(c.currentFrame).OnComplete(func(int, error) {
		c.preload.Tick()
	})
	c.UpgradeFrame(c.currentFrame)
}

// ShowFrameWhenReady makes index resident and visible as soon as it is loaded.
func (c *Controller) ShowFrameWhenReady(index int) *loop.Future[int] {
	fut := c.buffer.EnsureFrame(index)
	fut.OnComplete(func(_ int, err error) {
		if err == nil {
			return
		}
		entry := c.log.WithError(err).WithField("frame", index)
		if errors.Is(err, ErrFrameSuperseded) {
			entry.Debug("Frame superseded before it was shown")
		} else {
			entry.Warn("Could not show frame")
		}
	})
	return fut
}

// UpgradeFrame swaps index for its high resolution asset when upgrades are enabled.
func (c *Controller) UpgradeFrame(index int) {
	c.upgrader.Upgrade(index)
}

// OnScroll handles a scroll signal.
func (c *Controller) OnScroll() {
	if !c.animating {
		c.animating = true
		c.lastFrame = c.currentFrame
		c.requestFrame()
	}

	if c.settleTimer != nil {
		c.settleTimer.Stop()
	}
	c.settleTimer = c.sched.AfterFunc(c.settleAfter, c.checkSettled)
}

func (c *Controller) animate() {
	if !c.animating {
		return
	}

	frame := c.calculateFrame()
	if frame == c.currentFrame {
		c.animating = false
		return
	}

	c.currentFrame = frame
	c.ShowFrameWhenReady(frame)
	c.requestFrame()
}

// requestFrame queues animate for the next refresh tick unless it is already queued.
func (c *Controller) requestFrame() {
	if c.frameQueued {
		return
	}
	c.frameQueued = true
	c.sched.RequestFrame(func() {
		c.frameQueued = false
		c.animate()
	})
}

func (c *Controller) checkSettled() {
	c.settleTimer = nil

	if frame := c.calculateFrame(); frame != c.currentFrame {
		// The position moved after the loop last looked at it.
		c.log.WithField("frame", frame).Debug("Scroll moved without a signal")
		c.OnScroll()
		return
	}

	c.animating = false
	c.log.WithFields(logrus.Fields{
		"from":  c.lastFrame,
		"frame": c.currentFrame,
	}).Debug("Scrolling settled")
	c.preload.Tick()
	c.UpgradeFrame(c.currentFrame)
}

func (c *Controller) calculateFrame() int {
	frame, err := FrameAt(c.scroll.ScrollPosition(), c.seq.Len())
	if err != nil {
		c.log.WithError(err).Debug("Using first frame")
	}
	return frame
}

// Snapshot returns the current Status. It must be called on the loop goroutine.
func (c *Controller) Snapshot() Status {
	return Status{
		CurrentFrame:      c.currentFrame,
		ShownFrame:        c.buffer.Shown(),
		Animating:         c.animating,
		Buffering:         c.buffer.Buffering(),
		Live:              c.buffer.Live(),
		Preloaded:         c.preload.Count(),
		PreloadComplete:   c.preload.Complete(),
		PendingUpgrade:    c.upgrader.Pending(),
		UpgradesApplied:   c.upgrader.Applied(),
		LowResLoadsIssued: c.buffer.Loads(),
	}
}

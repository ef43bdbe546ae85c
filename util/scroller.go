package util

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/matt-g-everett/framescroll/playback"
)

// A Poster delivers callbacks onto the loop goroutine.
type Poster interface {
	Post(fn func())
}

// Scroller stands in for a user scrolling a page. It walks a precomputed path of
// scroll fractions, posting one scroll signal per step.
type Scroller struct {
	post     Poster
	path     []float64
	interval time.Duration
	pause    time.Duration
	log      logrus.FieldLogger

	// Owned by the loop goroutine.
	pos      playback.ScrollPosition
	onScroll func()
}

// NewScroller creates a Scroller stepping through path every interval and resting for
// pause at both ends of the page.
func NewScroller(post Poster, path []float64, interval, pause time.Duration, log logrus.FieldLogger) *Scroller {
	s := new(Scroller)
	s.post = post
	s.path = path
	s.interval = interval
	s.pause = pause
	s.log = log.WithField("component", "scroller")
	s.pos = playback.FractionPosition(0)
	return s
}

// OnScroll sets the function called on the loop for every step.
func (s *Scroller) OnScroll(fn func()) {
	s.onScroll = fn
}

// ScrollPosition returns the simulated position. It is read on the loop.
func (s *Scroller) ScrollPosition() playback.ScrollPosition {
	return s.pos
}

// Run walks the path repeatedly until ctx is cancelled.
func (s *Scroller) Run(ctx context.Context) error {
	publishTimer := time.NewTicker(s.interval)
	defer publishTimer.Stop()

	for i := 0; ; i = (i + 1) % len(s.path) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-publishTimer.C:
		}

		fraction := s.path[i]
		s.post.Post(func() {
			s.pos = playback.FractionPosition(fraction)
			if s.onScroll != nil {
				s.onScroll()
			}
		})

		if s.pause > 0 && (fraction == 0 || fraction == 1) && i > 0 {
			s.log.WithField("fraction", fraction).Debug("Resting")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.pause):
			}
		}
	}
}

package util

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/fogleman/ease"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matt-g-everett/framescroll/playback"
)

func TestGenerateLut(t *testing.T) {
	lut := GenerateLut(5, ease.Linear)
	assert.Equal(t, []float64{0, 0.5, 1, 0.5, 0}, lut)

	lut = GenerateLut(101, ease.InOutQuad)
	require.Len(t, lut, 101)
	assert.Equal(t, 0.0, lut[0])
	assert.Equal(t, 1.0, lut[50])
	assert.Equal(t, 0.0, lut[100])
	for i := 1; i <= 50; i++ {
		assert.GreaterOrEqual(t, lut[i], lut[i-1], "not rising at %d", i)
		assert.Equal(t, lut[i], lut[100-i])
	}

	assert.Equal(t, []float64{0}, GenerateLut(1, ease.Linear))
}

func TestEasing(t *testing.T) {
	fn, err := Easing("inOutCubic")
	require.NoError(t, err)
	assert.Equal(t, 1.0, fn(1))

	_, err = Easing("wobble")
	assert.Error(t, err)
}

type syncPoster struct {
	mu  sync.Mutex
	fns []func()
}

func (p *syncPoster) Post(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fns = append(p.fns, fn)
}

func (p *syncPoster) drain() int {
	p.mu.Lock()
	fns := p.fns
	p.fns = nil
	p.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

func TestScrollerWalksPath(t *testing.T) {
	l := logrus.New()
	l.SetOutput(io.Discard)

	post := &syncPoster{}
	s := NewScroller(post, []float64{0, 0.5, 1, 0.5}, time.Millisecond, 0, l)
	var seen []float64
	s.OnScroll(func() { seen = append(seen, s.ScrollPosition().Top) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for len(seen) < 6 && time.Now().Before(deadline) {
		post.drain()
		time.Sleep(time.Millisecond)
	}
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	post.drain()

	require.GreaterOrEqual(t, len(seen), 6)
	assert.Equal(t, []float64{0, 0.5, 1, 0.5, 0, 0.5}, seen[:6])
	assert.Equal(t, playback.FractionPosition(seen[len(seen)-1]), s.ScrollPosition())
}

package playback

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/matt-g-everett/framescroll/loop"
)

type fakeElement struct {
	index   int
	res     Resolution
	asset   Asset
	visible bool
	removed bool
}

type fakeView struct {
	elements []*fakeElement
	shows    int
}

func (v *fakeView) CreateFrame(index int, res Resolution, asset Asset) Element {
	e := &fakeElement{index: index, res: res, asset: asset}
	v.elements = append(v.elements, e)
	return e
}

func (v *fakeView) Show(e Element) {
	e.(*fakeElement).visible = true
	v.shows++
}

func (v *fakeView) Hide(e Element) { e.(*fakeElement).visible = false }

func (v *fakeView) Remove(e Element) {
	fe := e.(*fakeElement)
	fe.visible = false
	fe.removed = true
}

func (v *fakeView) visible() []*fakeElement {
	var out []*fakeElement
	for _, e := range v.elements {
		if e.visible && !e.removed {
			out = append(out, e)
		}
	}
	return out
}

func (v *fakeView) live() int {
	n := 0
	for _, e := range v.elements {
		if !e.removed {
			n++
		}
	}
	return n
}

// fakeLoader hands out pending futures unless auto is set, in which case every load
// succeeds synchronously.
type fakeLoader struct {
	auto     bool
	fail     map[string]error
	requests map[string]int
	pending  map[string][]*loop.Future[Asset]
	maxOpen  map[string]int
	order    []string
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		fail:     make(map[string]error),
		requests: make(map[string]int),
		pending:  make(map[string][]*loop.Future[Asset]),
		maxOpen:  make(map[string]int),
	}
}

func (l *fakeLoader) LoadAsset(url string) *loop.Future[Asset] {
	l.requests[url]++
	l.order = append(l.order, url)
	if l.auto {
		if err, ok := l.fail[url]; ok {
			return loop.Failed[Asset](err)
		}
		return loop.Resolved[Asset](url)
	}

	f := loop.NewFuture[Asset]()
	l.pending[url] = append(l.pending[url], f)
	if n := len(l.pending[url]); n > l.maxOpen[url] {
		l.maxOpen[url] = n
	}
	return f
}

func (l *fakeLoader) open(url string) int { return len(l.pending[url]) }

func (l *fakeLoader) openTotal() int {
	n := 0
	for _, p := range l.pending {
		n += len(p)
	}
	return n
}

func (l *fakeLoader) resolve(t *testing.T, url string) {
	t.Helper()
	p := l.pending[url]
	require.NotEmpty(t, p, "no pending load for %s", url)
	l.pending[url] = p[1:]
	p[0].Resolve(url)
}

func (l *fakeLoader) reject(t *testing.T, url string, err error) {
	t.Helper()
	p := l.pending[url]
	require.NotEmpty(t, p, "no pending load for %s", url)
	l.pending[url] = p[1:]
	p[0].Reject(err)
}

func (l *fakeLoader) resolveAll() {
	for len(l.pending) > 0 {
		for url, p := range l.pending {
			delete(l.pending, url)
			for _, f := range p {
				f.Resolve(url)
			}
		}
	}
}

type fakeScroll struct {
	pos ScrollPosition
}

func (s *fakeScroll) ScrollPosition() ScrollPosition { return s.pos }

func (s *fakeScroll) set(fraction float64) { s.pos = FractionPosition(fraction) }

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testOptions(n, radius int) Options {
	o := DefaultOptions()
	o.FrameCount = n
	o.AssetDirectory = "low/"
	o.AssetNamePrefix = "f"
	o.BufferRadius = radius
	return o
}

func mustSequence(t *testing.T, o Options) *Sequence {
	t.Helper()
	s, err := NewSequence(o)
	require.NoError(t, err)
	return s
}

func lowURL(s *Sequence, i int) string  { return s.URL(i, Low) }
func highURL(s *Sequence, i int) string { return s.URL(i, High) }

func newManual() *loop.Manual { return loop.NewManual(time.Unix(0, 0)) }

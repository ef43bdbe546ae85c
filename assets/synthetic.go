package assets

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math/rand"
	"path"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/matt-g-everett/framescroll/loop"
	"github.com/matt-g-everett/framescroll/playback"
)

var frameNumber = regexp.MustCompile(`(\d+)\D*$`)

// FrameNumber extracts the frame index from an asset locator such as
// "frames/clip_042.jpg".
func FrameNumber(url string) (int, error) {
	base := path.Base(url)
	m := frameNumber.FindStringSubmatch(strings.TrimSuffix(base, path.Ext(base)))
	if m == nil {
		return 0, fmt.Errorf("no frame number in %q", url)
	}
	return strconv.Atoi(m[1])
}

// SyntheticLoader renders placeholder frames instead of reading files. Each frame is
// filled with the colour of its position along a gradient, so a sequence plays as a
// sweep around the hue wheel.
type SyntheticLoader struct {
	post       Poster
	frameCount int
	gradient   GradientTable
	highPrefix string
	latency    time.Duration
	jitter     time.Duration
	width      int
	height     int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSyntheticLoader creates a SyntheticLoader for a sequence of frameCount frames.
// Locators starting with highPrefix render at four times the size.
func NewSyntheticLoader(post Poster, frameCount int, highPrefix string, latency, jitter time.Duration) *SyntheticLoader {
	s := new(SyntheticLoader)
	s.post = post
	s.frameCount = frameCount
	s.gradient = DefaultGradient
	s.highPrefix = highPrefix
	s.latency = latency
	s.jitter = jitter
	s.width = 64
	s.height = 36
	s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	return s
}

// LoadAsset renders the frame named by url after the configured latency.
func (s *SyntheticLoader) LoadAsset(url string) *loop.Future[playback.Asset] {
	f := loop.NewFuture[playback.Asset]()
	delay := s.delay()

	go func() {
		if delay > 0 {
			time.Sleep(delay)
		}
		frame, err := s.Render(url)
		s.post.Post(func() {
			if err != nil {
				f.Reject(err)
				return
			}
			f.Resolve(frame)
		})
	}()
	return f
}

func (s *SyntheticLoader) delay() time.Duration {
	if s.jitter <= 0 {
		return s.latency
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latency + time.Duration(s.rng.Int63n(int64(s.jitter)))
}

// Render draws the placeholder image for url.
func (s *SyntheticLoader) Render(url string) (*Frame, error) {
	index, err := FrameNumber(url)
	if err != nil {
		return nil, err
	}
	if index < 1 || index > s.frameCount {
		return nil, fmt.Errorf("%s: %w", url, playback.ErrFrameOutOfRange)
	}

	w, h := s.width, s.height
	if s.highPrefix != "" && strings.HasPrefix(url, s.highPrefix) {
		w, h = w*4, h*4
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: s.Color(index)}, image.Point{}, draw.Src)
	return &Frame{URL: url, Image: img, Size: len(img.Pix)}, nil
}

// Color returns the fill colour of a frame.
func (s *SyntheticLoader) Color(index int) color.RGBA {
	t := 0.0
	if s.frameCount > 1 {
		t = float64(index-1) / float64(s.frameCount-1)
	}
	c := s.gradient.GetColor(t, 0.6, 0.5)
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

package playback

import (
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultAssetFormat is the file suffix used when Options.AssetFormat is empty.
	DefaultAssetFormat = ".jpg"
	// DefaultBufferRadius is the number of frames kept on either side of the current one.
	DefaultBufferRadius = 10
	// DefaultSettleAfter is the quiet period after the last scroll signal.
	DefaultSettleAfter = 250 * time.Millisecond
	// DefaultPreloadDelay is how long a busy preloader waits before checking again.
	DefaultPreloadDelay = 10 * time.Millisecond
)

// Options configure a player. FrameCount, AssetDirectory and AssetNamePrefix are
// required.
type Options struct {
	FrameCount      int
	AssetDirectory  string
	AssetNamePrefix string
	AssetFormat     string

	HighResAssetDirectory string
	EnableHighResUpgrade  bool

	BufferRadius  int
	EnablePreload bool

	SettleAfter  time.Duration
	PreloadDelay time.Duration

	OnFramesShown     func(frame int)
	OnPreloadComplete func()
}

// DefaultOptions returns Options with every optional field at its default.
func DefaultOptions() Options {
	return Options{
		AssetFormat:  DefaultAssetFormat,
		BufferRadius: DefaultBufferRadius,
		SettleAfter:  DefaultSettleAfter,
		PreloadDelay: DefaultPreloadDelay,
	}
}

// Validate checks the required fields and their combinations.
func (o Options) Validate() error {
	switch {
	case o.FrameCount < 1:
		return &ConfigurationError{Field: "frameCount", Reason: "required, must be at least 1"}
	case o.AssetDirectory == "":
		return &ConfigurationError{Field: "assetDirectory", Reason: "required"}
	case o.AssetNamePrefix == "":
		return &ConfigurationError{Field: "assetNamePrefix", Reason: "required"}
	case o.BufferRadius < 0:
		return &ConfigurationError{Field: "bufferRadius", Reason: "must not be negative"}
	case o.EnableHighResUpgrade && o.HighResAssetDirectory == "":
		return &ConfigurationError{Field: "highResAssetDirectory", Reason: "required when enableHighResUpgrade is set"}
	}
	return nil
}

// Sequence is the immutable description of a frame sequence.
type Sequence struct {
	opts   Options
	digits int
}

// NewSequence validates opts, fills in defaults and returns the Sequence.
func NewSequence(opts Options) (*Sequence, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.AssetFormat == "" {
		opts.AssetFormat = DefaultAssetFormat
	}
	if opts.SettleAfter <= 0 {
		opts.SettleAfter = DefaultSettleAfter
	}
	if opts.PreloadDelay <= 0 {
		opts.PreloadDelay = DefaultPreloadDelay
	}

	s := new(Sequence)
	s.opts = opts
	s.digits = len(strconv.Itoa(opts.FrameCount))
	return s, nil
}

// Len returns the number of frames.
func (s *Sequence) Len() int { return s.opts.FrameCount }

// Radius returns the buffer radius.
func (s *Sequence) Radius() int { return s.opts.BufferRadius }

// Options returns the options the Sequence was built from, with defaults applied.
func (s *Sequence) Options() Options { return s.opts }

// HighResEnabled reports whether settled frames are upgraded.
func (s *Sequence) HighResEnabled() bool { return s.opts.EnableHighResUpgrade }

// Contains reports whether index is a valid frame index.
func (s *Sequence) Contains(index int) bool {
	return index >= 1 && index <= s.opts.FrameCount
}

// Window returns the inclusive buffer window around center, clipped to [1,N].
func (s *Sequence) Window(center int) (lo, hi int) {
	lo = center - s.opts.BufferRadius
	hi = center + s.opts.BufferRadius
	if lo < 1 {
		lo = 1
	}
	if hi > s.opts.FrameCount {
		hi = s.opts.FrameCount
	}
	return lo, hi
}

// AssetName returns the file name of a frame, its number zero-padded to the digit
// count of the frame total.
func (s *Sequence) AssetName(index int) string {
	n := strconv.Itoa(index)
	if pad := s.digits - len(n); pad > 0 {
		n = strings.Repeat("0", pad) + n
	}
	return s.opts.AssetNamePrefix + n + s.opts.AssetFormat
}

// URL returns the asset locator of a frame at the given resolution.
func (s *Sequence) URL(index int, res Resolution) string {
	dir := s.opts.AssetDirectory
	if res == High {
		dir = s.opts.HighResAssetDirectory
	}
	return dir + s.AssetName(index)
}

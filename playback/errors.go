package playback

import (
	"errors"
	"fmt"
)

var (
	// ErrDegenerateScrollRange is returned when the document is not taller than the
	// viewport, so no scroll fraction can be derived.
	ErrDegenerateScrollRange = errors.New("degenerate scroll range")
	// ErrFrameOutOfRange is returned for frame indices outside [1,N].
	ErrFrameOutOfRange = errors.New("frame index out of range")
	// ErrFrameSuperseded is returned when a newer frame request replaced this one
	// before it could be shown.
	ErrFrameSuperseded = errors.New("frame request superseded")
	// ErrFrameLoadFailed matches every *FrameLoadError.
	ErrFrameLoadFailed = errors.New("frame load failed")
	// ErrUpgradeLoadFailed matches every *UpgradeLoadError.
	ErrUpgradeLoadFailed = errors.New("upgrade load failed")
)

// ConfigurationError reports a missing or invalid setup option.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// FrameLoadError reports that the low resolution asset of a frame could not be loaded.
type FrameLoadError struct {
	Index int
	Err   error
}

func (e *FrameLoadError) Error() string {
	return fmt.Sprintf("frame %d: load failed: %v", e.Index, e.Err)
}

func (e *FrameLoadError) Unwrap() error { return e.Err }

func (e *FrameLoadError) Is(target error) bool { return target == ErrFrameLoadFailed }

// UpgradeLoadError reports that the high resolution asset of a frame could not be loaded.
type UpgradeLoadError struct {
	Index int
	Err   error
}

func (e *UpgradeLoadError) Error() string {
	return fmt.Sprintf("frame %d: upgrade failed: %v", e.Index, e.Err)
}

func (e *UpgradeLoadError) Unwrap() error { return e.Err }

func (e *UpgradeLoadError) Is(target error) bool { return target == ErrUpgradeLoadFailed }

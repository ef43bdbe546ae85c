package playback

import (
	"time"

	"github.com/matt-g-everett/framescroll/loop"
)

// Resolution selects which asset variant of a frame is used.
type Resolution int

const (
	// Low is the asset used while scrolling.
	Low Resolution = iota
	// High is the asset swapped in once scrolling settles.
	High
)

func (r Resolution) String() string {
	if r == High {
		return "high"
	}
	return "low"
}

// An Asset is a loaded frame image as produced by an AssetLoader.
type Asset interface{}

// An Element is a handle on a frame element created by a View.
type Element interface{}

// A View hosts frame elements. Elements are created hidden.
type View interface {
	CreateFrame(index int, res Resolution, asset Asset) Element
	Show(e Element)
	Hide(e Element)
	Remove(e Element)
}

// An AssetLoader fetches assets asynchronously. The returned Future must be completed
// on the loop goroutine.
type AssetLoader interface {
	LoadAsset(url string) *loop.Future[Asset]
}

// A Scheduler is the event loop the playback components run on.
type Scheduler interface {
	Post(fn func())
	AfterFunc(d time.Duration, fn func()) loop.Timer
	RequestFrame(fn func())
	Now() time.Time
}

// ScrollPosition describes the scroll state of the host document.
type ScrollPosition struct {
	Top            float64 `json:"scrollTop"`
	DocumentHeight float64 `json:"documentHeight"`
	ViewportHeight float64 `json:"viewportHeight"`
}

// FractionPosition returns a ScrollPosition for an already normalised fraction.
func FractionPosition(fraction float64) ScrollPosition {
	return ScrollPosition{Top: fraction, DocumentHeight: 1, ViewportHeight: 0}
}

// A ScrollSource reports the latest scroll position. It is read on the loop goroutine.
type ScrollSource interface {
	ScrollPosition() ScrollPosition
}

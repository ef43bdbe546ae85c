package playback

import (
	"github.com/sirupsen/logrus"

	"github.com/matt-g-everett/framescroll/loop"
)

// ResolutionUpgrader swaps settled frames for their high resolution asset. Only the
// most recent upgrade request is ever applied.
type ResolutionUpgrader struct {
	seq    *Sequence
	buffer *BufferManager
	loader AssetLoader
	log    logrus.FieldLogger

	pending  int
	inflight map[int]*loop.Future[Asset]
	applied  int
}

// NewResolutionUpgrader creates a ResolutionUpgrader.
func NewResolutionUpgrader(seq *Sequence, buffer *BufferManager, loader AssetLoader, log logrus.FieldLogger) *ResolutionUpgrader {
	u := new(ResolutionUpgrader)
	u.seq = seq
	u.buffer = buffer
	u.loader = loader
	u.log = log.WithField("component", "upgrade")
	u.inflight = make(map[int]*loop.Future[Asset])
	return u
}

// Pending returns the frame whose upgrade is waiting for its asset, or 0.
func (u *ResolutionUpgrader) Pending() int { return u.pending }

// Applied returns how many upgrades have been swapped in.
func (u *ResolutionUpgrader) Applied() int { return u.applied }

// Upgrade loads the high resolution asset of index and swaps it in once loaded,
// provided the frame is still resident. A newer request discards a pending one.
func (u *ResolutionUpgrader) Upgrade(index int) {
	if !u.seq.HighResEnabled() || !u.seq.Contains(index) {
		return
	}
	if u.buffer.State(index) == Upgraded || u.pending == index {
		return
	}

	if u.pending != 0 {
		u.log.WithField("frame", u.pending).Debug("Pending upgrade preempted")
	}
	u.pending = index

	fut, ok := u.inflight[index]
	if !ok {
		fut = u.loader.LoadAsset(u.seq.URL(index, High))
		u.inflight[index] = fut
		fut.OnComplete(func(Asset, error) {
			delete(u.inflight, index)
		})
	}

	fut.OnComplete(func(a Asset, err error) {
		if u.pending != index {
			return
		}
		if err != nil {
			u.pending = 0
			u.log.WithError(&UpgradeLoadError{Index: index, Err: err}).Warn("Upgrade failed")
			return
		}
		u.apply(index, a)
	})
}

// apply swaps in a, first waiting for the low resolution load when the frame is
// still loading.
func (u *ResolutionUpgrader) apply(index int, a Asset) {
	if low := u.buffer.loading(index); low != nil {
		low.OnComplete(func(Asset, error) {
			if u.pending == index {
				u.apply(index, a)
			}
		})
		return
	}

	u.pending = 0
	if !u.buffer.swapHighRes(index, a) {
		u.log.WithField("frame", index).Debug("Upgrade target gone")
		return
	}
	u.applied++
}

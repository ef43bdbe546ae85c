// Package view contains headless View implementations for running a player without
// a rendering surface.
package view

import (
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/matt-g-everett/framescroll/playback"
)

// Element is a frame element held by a MemoryView.
type Element struct {
	ID         uuid.UUID
	Index      int
	Resolution playback.Resolution
	Asset      playback.Asset
	Visible    bool
}

// MemoryView keeps frame elements in memory and tracks which one is visible.
// It must only be used from the loop goroutine.
type MemoryView struct {
	log      logrus.FieldLogger
	elements map[uuid.UUID]*Element
	visible  *Element
	created  int
	removed  int
}

// NewMemoryView creates an empty MemoryView.
func NewMemoryView(log logrus.FieldLogger) *MemoryView {
	v := new(MemoryView)
	v.log = log.WithField("component", "view")
	v.elements = make(map[uuid.UUID]*Element)
	return v
}

// CreateFrame adds a hidden element for a frame.
func (v *MemoryView) CreateFrame(index int, res playback.Resolution, asset playback.Asset) playback.Element {
	e := &Element{
		ID:         uuid.New(),
		Index:      index,
		Resolution: res,
		Asset:      asset,
	}
	v.elements[e.ID] = e
	v.created++
	return e
}

// Show makes e the visible element.
func (v *MemoryView) Show(pe playback.Element) {
	e := pe.(*Element)
	if _, ok := v.elements[e.ID]; !ok {
		v.log.WithField("element", e.ID).Warn("Show on removed element")
		return
	}
	e.Visible = true
	v.visible = e
	v.log.WithFields(logrus.Fields{
		"frame":      e.Index,
		"resolution": e.Resolution,
	}).Trace("Frame visible")
}

// Hide hides e.
func (v *MemoryView) Hide(pe playback.Element) {
	e := pe.(*Element)
	e.Visible = false
	if v.visible == e {
		v.visible = nil
	}
}

// Remove drops e from the view.
func (v *MemoryView) Remove(pe playback.Element) {
	e := pe.(*Element)
	if _, ok := v.elements[e.ID]; !ok {
		return
	}
	delete(v.elements, e.ID)
	v.removed++
	if v.visible == e {
		v.visible = nil
	}
	e.Visible = false
}

// Visible returns the visible element, or nil.
func (v *MemoryView) Visible() *Element {
	return v.visible
}

// Frames returns the sorted frame indices that currently have an element.
func (v *MemoryView) Frames() []int {
	out := make([]int, 0, len(v.elements))
	for _, e := range v.elements {
		out = append(out, e.Index)
	}
	sort.Ints(out)
	return out
}

// Stats reports how many elements were created and removed.
func (v *MemoryView) Stats() (created, removed int) {
	return v.created, v.removed
}

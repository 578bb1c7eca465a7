package lidar

import (
	"image"
	"sync"
	"time"
)

// FrameSnapshot is the latest rendered frame held for HTTP endpoints
type FrameSnapshot struct {
	Frame     Frame
	Photo     *image.RGBA
	Points    []ProjectedPoint
	Stats     ProjectionStats
	Depth     *image.Gray16
	Overlay   *image.RGBA
	UpdatedAt time.Time
}

// StateTracker tracks the most recent frame and sequence progress for HTTP endpoints
type StateTracker struct {
	mu        sync.RWMutex
	latest    *FrameSnapshot
	processed int
	total     int
	render    RenderConfig
}

// NewStateTracker creates a new state tracker
func NewStateTracker(render RenderConfig) *StateTracker {
	return &StateTracker{render: render}
}

// SetTotal records how many frames the current sequence has
func (st *StateTracker) SetTotal(total int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.total = total
	st.processed = 0
}

// Update stores a frame result. A nil overlay is rendered lazily on first request.
// Frames completed out of order never replace a later frame.
func (st *StateTracker) Update(res *FrameResult, overlay *image.RGBA) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.processed++
	if st.latest != nil && st.latest.Frame.Index > res.Frame.Index {
		return
	}
	st.latest = &FrameSnapshot{
		Frame:     res.Frame,
		Photo:     res.Photo,
		Points:    res.Points,
		Stats:     res.Stats,
		Depth:     res.Depth,
		Overlay:   overlay,
		UpdatedAt: time.Now(),
	}
}

// HasFrame reports whether any frame has been recorded
func (st *StateTracker) HasFrame() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.latest != nil
}

// Progress returns processed and total frame counts
func (st *StateTracker) Progress() (processed, total int) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.processed, st.total
}

// RenderConfig returns the render settings used for lazily built images
func (st *StateTracker) RenderConfig() RenderConfig {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.render
}

// Latest returns the most recent frame, building its overlay if needed
func (st *StateTracker) Latest() (*FrameSnapshot, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.latest == nil {
		return nil, false
	}
	if st.latest.Overlay == nil && st.latest.Photo != nil {
		st.latest.Overlay = RenderOverlay(st.latest.Photo, st.latest.Points, st.render)
	}
	snap := *st.latest
	return &snap, true
}

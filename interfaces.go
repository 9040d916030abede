package main

import (
	"time"
)

const (
	// Overlay message display duration
	overlayMessageDuration = 2 * time.Second
)

// RenderState provides read-only access to viewer state for the renderer
type RenderState interface {
	HasImage() bool
	ImageSize() (int, int)
	ViewOffset() (float64, float64)
	ViewScale() float64
	Background() Background
	NearestNeighbour() bool

	OverlayEnabled() bool
	OverlayText() string
	InCommandMode() bool
	CommandBuffer() string
	Message(now time.Time) string
}

// RenderStateSnapshot captures the state that can change without input or
// a tick asking for a redraw.
type RenderStateSnapshot struct {
	// Transient message, which disappears on its own
	Message string

	WindowWidth  int
	WindowHeight int
}

// NewRenderStateSnapshot creates a lightweight snapshot of non-input state
func NewRenderStateSnapshot(state RenderState, now time.Time, windowWidth, windowHeight int) *RenderStateSnapshot {
	return &RenderStateSnapshot{
		Message:      state.Message(now),
		WindowWidth:  windowWidth,
		WindowHeight: windowHeight,
	}
}

// Equals checks if two snapshots are equal
func (s *RenderStateSnapshot) Equals(other *RenderStateSnapshot) bool {
	if other == nil {
		return false
	}
	return s.Message == other.Message &&
		s.WindowWidth == other.WindowWidth &&
		s.WindowHeight == other.WindowHeight
}

// InputActions provides the operations the input handler can trigger
type InputActions interface {
	Exec(line string)

	// Command prompt
	EnterCommandMode()
	InCommandMode() bool
	CommandBuffer() string
	SetCommandBuffer(s string)
	CompleteCommand()
	SubmitCommand()
	CancelCommand()

	// Mouse wheel and drag
	ZoomAt(x, y, amount float64)
	Pan(dx, dy float64)
}

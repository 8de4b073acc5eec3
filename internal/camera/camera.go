// Package camera implements the orbit camera driven by pointer drags and
// wheel zoom.
//
// The controller has two implicit states. Idle becomes Dragging on BeginDrag;
// EndDrag or Leave returns to Idle. Drag only has an effect while Dragging.
// Zoom and Reset work in either state and never change it.
package camera

import "math"

const (
	// BaseDistance is the camera distance at zoom level 1.
	BaseDistance = 300.0
	// Sensitivity converts pointer pixels to radians.
	Sensitivity = 0.005

	MinZoom = 0.1
	MaxZoom = 5.0

	zoomOutFactor = 1.1
	zoomInFactor  = 0.9
)

// State is a read-only snapshot of the camera.
type State struct {
	Yaw       float64 `json:"yaw"`
	Pitch     float64 `json:"pitch"`
	Distance  float64 `json:"distance"`
	ZoomLevel float64 `json:"zoom_level"`
}

// Controller owns the camera state. It is not safe for concurrent use; the
// frame scheduler applies every input event on its own goroutine.
type Controller struct {
	state    State
	dragging bool
	lastX    float64
	lastY    float64
}

// New returns a controller in the reset position.
func New() *Controller {
	c := &Controller{}
	c.Reset()
	return c
}

// NewAt returns a controller looking from the given orientation and zoom.
// Pitch and zoom are clamped to their usual ranges.
func NewAt(yaw, pitch, zoom float64) *Controller {
	zoom = clamp(zoom, MinZoom, MaxZoom)
	return &Controller{state: State{
		Yaw:       yaw,
		Pitch:     clamp(pitch, -math.Pi/2, math.Pi/2),
		Distance:  BaseDistance * zoom,
		ZoomLevel: zoom,
	}}
}

// State returns the current camera state.
func (c *Controller) State() State {
	return c.state
}

// Dragging reports whether a drag is in progress.
func (c *Controller) Dragging() bool {
	return c.dragging
}

// BeginDrag enters the Dragging state anchored at (x, y).
func (c *Controller) BeginDrag(x, y float64) {
	c.dragging = true
	c.lastX = x
	c.lastY = y
}

// Drag rotates the camera by the pointer movement since the last anchor and
// moves the anchor to (x, y). Outside a drag the event is dropped.
func (c *Controller) Drag(x, y float64) {
	if !c.dragging {
		return
	}
	dx := x - c.lastX
	dy := y - c.lastY

	c.state.Yaw += dx * Sensitivity
	c.state.Pitch = clamp(c.state.Pitch+dy*Sensitivity, -math.Pi/2, math.Pi/2)

	c.lastX = x
	c.lastY = y
}

// EndDrag returns to Idle.
func (c *Controller) EndDrag() {
	c.dragging = false
}

// Leave handles the pointer leaving the drawing surface; it ends any drag.
func (c *Controller) Leave() {
	c.dragging = false
}

// Zoom applies one wheel notch. A positive deltaY zooms out, a negative one
// zooms in and zero is ignored.
func (c *Controller) Zoom(deltaY float64) {
	switch {
	case deltaY > 0:
		c.state.ZoomLevel *= zoomOutFactor
	case deltaY < 0:
		c.state.ZoomLevel *= zoomInFactor
	default:
		return
	}
	c.state.ZoomLevel = clamp(c.state.ZoomLevel, MinZoom, MaxZoom)
	c.state.Distance = BaseDistance * c.state.ZoomLevel
}

// Reset restores yaw, pitch and zoom to their initial values.
func (c *Controller) Reset() {
	c.state = State{
		Yaw:       0,
		Pitch:     0,
		Distance:  BaseDistance,
		ZoomLevel: 1,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

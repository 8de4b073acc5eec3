package camera

import (
	"math"
	"testing"
)

func TestNewIsReset(t *testing.T) {
	c := New()
	want := State{Distance: BaseDistance, ZoomLevel: 1}
	if c.State() != want {
		t.Errorf("State = %+v, want %+v", c.State(), want)
	}
	if c.Dragging() {
		t.Error("new controller should be idle")
	}
}

// TestDragRightChangesOnlyYaw drags 100px to the right and releases.
func TestDragRightChangesOnlyYaw(t *testing.T) {
	c := New()
	before := c.State()

	c.BeginDrag(200, 300)
	c.Drag(250, 300)
	c.Drag(300, 300)
	c.EndDrag()

	after := c.State()
	if after.Yaw <= before.Yaw {
		t.Errorf("yaw = %v, want greater than %v", after.Yaw, before.Yaw)
	}
	if math.Abs(after.Yaw-100*Sensitivity) > 1e-12 {
		t.Errorf("yaw = %v, want %v", after.Yaw, 100*Sensitivity)
	}
	if after.Pitch != before.Pitch {
		t.Errorf("pitch changed: %v -> %v", before.Pitch, after.Pitch)
	}
	if after.ZoomLevel != before.ZoomLevel || after.Distance != before.Distance {
		t.Errorf("zoom changed: %+v -> %+v", before, after)
	}
	if c.Dragging() {
		t.Error("controller should be idle after EndDrag")
	}
}

func TestDragIgnoredWhenIdle(t *testing.T) {
	c := New()
	c.Drag(500, 500)
	if c.State() != New().State() {
		t.Errorf("idle drag changed state: %+v", c.State())
	}

	// After a drag ends, further moves are dropped as well.
	c.BeginDrag(0, 0)
	c.Drag(10, 0)
	c.Leave()
	yaw := c.State().Yaw
	c.Drag(1000, 1000)
	if c.State().Yaw != yaw {
		t.Errorf("move after Leave changed yaw: %v -> %v", yaw, c.State().Yaw)
	}
}

func TestPitchClamped(t *testing.T) {
	c := New()
	c.BeginDrag(0, 0)
	c.Drag(0, 10000)
	if got := c.State().Pitch; got != math.Pi/2 {
		t.Errorf("pitch = %v, want π/2", got)
	}
	c.Drag(0, -20000)
	if got := c.State().Pitch; got != -math.Pi/2 {
		t.Errorf("pitch = %v, want -π/2", got)
	}
}

func TestDragUsesLastAnchor(t *testing.T) {
	c := New()
	c.BeginDrag(0, 0)
	c.Drag(10, 20)
	c.Drag(10, 20) // no movement since the last event
	want := State{Yaw: 10 * Sensitivity, Pitch: 20 * Sensitivity, Distance: BaseDistance, ZoomLevel: 1}
	if got := c.State(); math.Abs(got.Yaw-want.Yaw) > 1e-12 || math.Abs(got.Pitch-want.Pitch) > 1e-12 {
		t.Errorf("State = %+v, want %+v", got, want)
	}
}

func TestZoomSaturates(t *testing.T) {
	c := New()
	for i := 0; i < 100; i++ {
		prev := c.State().ZoomLevel
		c.Zoom(1)
		if c.State().ZoomLevel < prev {
			t.Fatalf("zoom out decreased level: %v -> %v", prev, c.State().ZoomLevel)
		}
	}
	if got := c.State().ZoomLevel; got != MaxZoom {
		t.Errorf("zoom level = %v, want %v", got, MaxZoom)
	}
	if got := c.State().Distance; got != BaseDistance*MaxZoom {
		t.Errorf("distance = %v, want %v", got, BaseDistance*MaxZoom)
	}

	for i := 0; i < 100; i++ {
		prev := c.State().ZoomLevel
		c.Zoom(-1)
		if c.State().ZoomLevel > prev {
			t.Fatalf("zoom in increased level: %v -> %v", prev, c.State().ZoomLevel)
		}
	}
	if got := c.State().ZoomLevel; got != MinZoom {
		t.Errorf("zoom level = %v, want %v", got, MinZoom)
	}
}

func TestZoomSteps(t *testing.T) {
	c := New()
	c.Zoom(120)
	if got := c.State().ZoomLevel; math.Abs(got-1.1) > 1e-12 {
		t.Errorf("after zoom out: %v, want 1.1", got)
	}
	c.Zoom(-3)
	if got := c.State().ZoomLevel; math.Abs(got-0.99) > 1e-12 {
		t.Errorf("after zoom in: %v, want 0.99", got)
	}
	c.Zoom(0)
	if got := c.State().ZoomLevel; math.Abs(got-0.99) > 1e-12 {
		t.Errorf("zero delta changed zoom: %v", got)
	}
}

func TestZoomDoesNotAffectDragState(t *testing.T) {
	c := New()
	c.BeginDrag(1, 1)
	c.Zoom(1)
	if !c.Dragging() {
		t.Error("zoom ended the drag")
	}
}

func TestResetFromAnyState(t *testing.T) {
	c := New()
	c.BeginDrag(0, 0)
	c.Drag(123, -45)
	for i := 0; i < 7; i++ {
		c.Zoom(1)
	}
	c.Reset()

	got := c.State()
	if got.ZoomLevel != 1.0 {
		t.Errorf("zoom level = %v, want exactly 1", got.ZoomLevel)
	}
	if got != (State{Distance: BaseDistance, ZoomLevel: 1}) {
		t.Errorf("State = %+v after reset", got)
	}
}

func TestNewAtClamps(t *testing.T) {
	tests := []struct {
		name             string
		yaw, pitch, zoom float64
		wantPitch, wantZ float64
	}{
		{"in range", 0.5, 0.2, 2, 0.2, 2},
		{"pitch above", 0, 3, 1, math.Pi / 2, 1},
		{"pitch below", 0, -3, 1, -math.Pi / 2, 1},
		{"zoom above", 0, 0, 9, 0, MaxZoom},
		{"zoom below", 0, 0, 0.01, 0, MinZoom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewAt(tt.yaw, tt.pitch, tt.zoom)
			got := c.State()
			if got.Yaw != tt.yaw || got.Pitch != tt.wantPitch || got.ZoomLevel != tt.wantZ {
				t.Errorf("State = %+v", got)
			}
			if got.Distance != BaseDistance*tt.wantZ {
				t.Errorf("distance = %v, want %v", got.Distance, BaseDistance*tt.wantZ)
			}
			if c.Dragging() {
				t.Error("NewAt should start idle")
			}
		})
	}
}

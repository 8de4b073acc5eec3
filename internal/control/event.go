package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Kind identifies an input event.
type Kind string

const (
	KindDragBegin     Kind = "drag_begin"
	KindDragMove      Kind = "drag_move"
	KindDragEnd       Kind = "drag_end"
	KindLeave         Kind = "leave"
	KindWheel         Kind = "wheel"
	KindReset         Kind = "reset"
	KindResize        Kind = "resize"
	KindShowOrbits    Kind = "show_orbits"
	KindShowEarth     Kind = "show_earth"
	KindShowAxis      Kind = "show_axis"
	KindRotationSpeed Kind = "rotation_speed"
	KindSatSize       Kind = "sat_size"
)

var knownKinds = map[Kind]bool{
	KindDragBegin: true, KindDragMove: true, KindDragEnd: true, KindLeave: true,
	KindWheel: true, KindReset: true, KindResize: true,
	KindShowOrbits: true, KindShowEarth: true, KindShowAxis: true,
	KindRotationSpeed: true, KindSatSize: true,
}

// ErrUnknownEvent is returned by Decode for an unrecognized event type.
var ErrUnknownEvent = errors.New("unknown event type")

// Event is one input from a pointer, wheel, viewport or control widget.
// Only the fields relevant to Type are meaningful.
type Event struct {
	Type    Kind    `json:"type"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
	DeltaY  float64 `json:"delta_y,omitempty"`
	Width   int     `json:"width,omitempty"`
	Height  int     `json:"height,omitempty"`
	Enabled bool    `json:"enabled,omitempty"`
	Value   float64 `json:"value,omitempty"`
}

// Constructors used by in-process input sources.

func DragBegin(x, y float64) Event { return Event{Type: KindDragBegin, X: x, Y: y} }
func DragMove(x, y float64) Event  { return Event{Type: KindDragMove, X: x, Y: y} }
func DragEnd() Event               { return Event{Type: KindDragEnd} }
func Leave() Event                 { return Event{Type: KindLeave} }
func Wheel(deltaY float64) Event   { return Event{Type: KindWheel, DeltaY: deltaY} }
func Reset() Event                 { return Event{Type: KindReset} }

func Resize(width, height int) Event {
	return Event{Type: KindResize, Width: width, Height: height}
}

func ShowOrbits(v bool) Event { return Event{Type: KindShowOrbits, Enabled: v} }
func ShowEarth(v bool) Event  { return Event{Type: KindShowEarth, Enabled: v} }
func ShowAxis(v bool) Event   { return Event{Type: KindShowAxis, Enabled: v} }

func RotationSpeed(v float64) Event { return Event{Type: KindRotationSpeed, Value: v} }
func SatSize(v int) Event           { return Event{Type: KindSatSize, Value: float64(v)} }

// Decode parses one JSON-encoded event. Unknown types and non-finite numbers
// are rejected; range limits are left to the input widgets.
func Decode(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("decoding event: %w", err)
	}
	if !knownKinds[ev.Type] {
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}
	for _, v := range []float64{ev.X, ev.Y, ev.DeltaY, ev.Value} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Event{}, fmt.Errorf("event %q carries a non-finite value", ev.Type)
		}
	}
	if ev.Type == KindResize && (ev.Width <= 0 || ev.Height <= 0) {
		return Event{}, fmt.Errorf("resize to %dx%d is not a valid viewport", ev.Width, ev.Height)
	}
	return ev, nil
}

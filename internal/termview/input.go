package termview

import (
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/Repin-Daniil/glonass-visualization/internal/control"
)

// Nominal cell size in pixels. Mouse drags are scaled by it so the camera
// turns at the same rate per screen distance as in the browser.
const (
	cellWidth  = 8
	cellHeight = 16

	arrowStep = 40 // pixels per arrow key press
	speedStep = 0.05
	maxSpeed  = 1.0
	minSize   = 1
	maxSize   = 10
)

// Input translates tcell events into control events. It mirrors the render
// settings it has changed so toggles and steps know the current value; the
// scheduler stays the owner of the real state.
type Input struct {
	config   control.RenderConfig
	dragging bool
}

// NewInput returns a mapper starting from the default render settings.
func NewInput() *Input {
	return &Input{config: control.DefaultRenderConfig()}
}

// Map returns the control events for ev and whether the user asked to quit.
func (in *Input) Map(ev tcell.Event) (events []control.Event, quit bool) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		w, h := ev.Size()
		if w > 0 && h > 0 {
			events = append(events, control.Resize(w, 2*h))
		}
	case *tcell.EventMouse:
		events = in.mouse(ev)
	case *tcell.EventKey:
		return in.key(ev)
	}
	return events, false
}

func (in *Input) mouse(ev *tcell.EventMouse) []control.Event {
	x, y := ev.Position()
	px, py := float64(x*cellWidth), float64(y*cellHeight)
	buttons := ev.Buttons()

	var out []control.Event
	switch {
	case buttons&tcell.WheelUp != 0:
		out = append(out, control.Wheel(-1))
	case buttons&tcell.WheelDown != 0:
		out = append(out, control.Wheel(1))
	case buttons&tcell.Button1 != 0:
		if !in.dragging {
			in.dragging = true
			out = append(out, control.DragBegin(px, py))
		} else {
			out = append(out, control.DragMove(px, py))
		}
	case in.dragging:
		in.dragging = false
		out = append(out, control.DragEnd())
	}
	return out
}

func (in *Input) key(ev *tcell.EventKey) ([]control.Event, bool) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return nil, true
	case tcell.KeyLeft:
		return in.nudge(-arrowStep, 0), false
	case tcell.KeyRight:
		return in.nudge(arrowStep, 0), false
	case tcell.KeyUp:
		return in.nudge(0, -arrowStep), false
	case tcell.KeyDown:
		return in.nudge(0, arrowStep), false
	case tcell.KeyRune:
	default:
		return nil, false
	}

	switch ev.Rune() {
	case 'q', 'Q':
		return nil, true
	case 'o':
		in.config.SetShowOrbits(!in.config.ShowOrbits)
		return []control.Event{control.ShowOrbits(in.config.ShowOrbits)}, false
	case 'e':
		in.config.SetShowEarth(!in.config.ShowEarth)
		return []control.Event{control.ShowEarth(in.config.ShowEarth)}, false
	case 'a':
		in.config.SetShowEarthAxis(!in.config.ShowEarthAxis)
		return []control.Event{control.ShowAxis(in.config.ShowEarthAxis)}, false
	case '+', '=':
		return in.speed(speedStep), false
	case '-', '_':
		return in.speed(-speedStep), false
	case ']':
		return in.size(1), false
	case '[':
		return in.size(-1), false
	case 'r':
		return []control.Event{control.Reset()}, false
	}
	return nil, false
}

// nudge rotates the camera as if the pointer were dragged by (dx, dy). It
// does nothing while a mouse drag is in progress.
func (in *Input) nudge(dx, dy float64) []control.Event {
	if in.dragging {
		return nil
	}
	return []control.Event{
		control.DragBegin(0, 0),
		control.DragMove(dx, dy),
		control.DragEnd(),
	}
}

// speed steps the rotation speed within [0, maxSpeed], rounded to the step.
func (in *Input) speed(delta float64) []control.Event {
	v := math.Round((in.config.RotationSpeed+delta)/speedStep) * speedStep
	v = math.Max(0, math.Min(maxSpeed, v))
	in.config.SetRotationSpeed(v)
	return []control.Event{control.RotationSpeed(v)}
}

func (in *Input) size(delta int) []control.Event {
	v := max(minSize, min(maxSize, in.config.SatSize+delta))
	in.config.SetSatSize(v)
	return []control.Event{control.SatSize(v)}
}

// Config returns the mirrored render settings.
func (in *Input) Config() control.RenderConfig {
	return in.config
}

package termview

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/Repin-Daniil/glonass-visualization/internal/asset"
	"github.com/Repin-Daniil/glonass-visualization/internal/camera"
	"github.com/Repin-Daniil/glonass-visualization/internal/control"
	"github.com/Repin-Daniil/glonass-visualization/internal/orbit"
	"github.com/Repin-Daniil/glonass-visualization/internal/scene"
)

const (
	screenW = 80
	screenH = 24
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

type readyTexture bool

func (r readyTexture) Ready() bool { return bool(r) }

type fakeImage struct{ data []byte }

func (f fakeImage) Get() (*asset.Image, error) {
	if f.data == nil {
		return nil, asset.ErrNotLoaded
	}
	return &asset.Image{Data: f.data}, nil
}

func newScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatalf("screen init: %v", err)
	}
	s.SetSize(screenW, screenH)
	t.Cleanup(s.Fini)
	return s
}

func buildFrame(t *testing.T, tex scene.TextureSource, cfg control.RenderConfig) (*scene.Static, *scene.Frame) {
	t.Helper()
	e := orbit.GLONASS()
	static, err := scene.NewStatic(e, 200, 50)
	if err != nil {
		t.Fatalf("NewStatic: %v", err)
	}
	b := scene.NewBuilder(e, static, tex)
	f := b.Build(scene.Input{
		Seq:        1,
		Camera:     camera.New().State(),
		Aspect:     float64(screenW) / float64(2*screenH),
		Config:     cfg,
		Satellites: e.SatellitePositions(0, cfg.RotationSpeed),
	})
	return static, f
}

func render(t *testing.T, s tcell.Screen, r *Renderer, static *scene.Static, f *scene.Frame) {
	t.Helper()
	if err := r.Setup(static); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := r.Render(f); err != nil {
		t.Fatalf("Render: %v", err)
	}
}

func cell(s tcell.Screen, x, y int) (rune, tcell.Style) {
	ch, _, style, _ := s.GetContent(x, y)
	return ch, style
}

func row(s tcell.Screen, y int) string {
	var sb strings.Builder
	for x := 0; x < screenW; x++ {
		ch, _ := cell(s, x, y)
		sb.WriteRune(ch)
	}
	return sb.String()
}

// sceneCells visits the cells between the info panel and the help line.
func sceneCells(s tcell.Screen, fn func(x, y int, ch rune, style tcell.Style)) {
	for y := 5; y < screenH-1; y++ {
		for x := 0; x < screenW; x++ {
			ch, style := cell(s, x, y)
			fn(x, y, ch, style)
		}
	}
}

func TestRenderDrawsScene(t *testing.T) {
	s := newScreen(t)
	r := NewRenderer(s, nil, testLogger())
	static, f := buildFrame(t, nil, control.DefaultRenderConfig())
	render(t, s, r, static, f)

	if ch, _ := cell(s, screenW/2, screenH/2); ch == ' ' {
		t.Error("screen centre is empty, want the Earth")
	}

	sats, orbits := 0, 0
	sceneCells(s, func(_, _ int, ch rune, _ tcell.Style) {
		switch ch {
		case 'O':
			sats++
		case '.':
			orbits++
		}
	})
	if sats == 0 {
		t.Error("no satellites drawn")
	}
	if orbits == 0 {
		t.Error("no orbit rings drawn")
	}
	if r.Frames() != 1 {
		t.Errorf("frames = %d, want 1", r.Frames())
	}
}

func countSatellites(t *testing.T, cfg control.RenderConfig) int {
	t.Helper()
	s := newScreen(t)
	r := NewRenderer(s, nil, testLogger())
	static, f := buildFrame(t, nil, cfg)
	render(t, s, r, static, f)

	n := 0
	sceneCells(s, func(_, _ int, ch rune, _ tcell.Style) {
		if ch == 'O' {
			n++
		}
	})
	return n
}

func TestSatellitesDrawOverTheirRings(t *testing.T) {
	withRings := countSatellites(t, control.DefaultRenderConfig())

	cfg := control.DefaultRenderConfig()
	cfg.ShowOrbits = false
	withoutRings := countSatellites(t, cfg)

	if withoutRings == 0 {
		t.Fatal("no satellites drawn")
	}
	if withRings != withoutRings {
		t.Errorf("satellite cells with rings = %d, without = %d", withRings, withoutRings)
	}
}

func TestRenderInfoPanel(t *testing.T) {
	s := newScreen(t)
	r := NewRenderer(s, nil, testLogger())
	static, f := buildFrame(t, nil, control.DefaultRenderConfig())
	render(t, s, r, static, f)

	if got := row(s, 0); !strings.HasPrefix(got, "GLONASS") {
		t.Errorf("row 0 = %q", got)
	}
	if got := row(s, 1); !strings.HasPrefix(got, "satellites 24 in 3 planes") {
		t.Errorf("row 1 = %q", got)
	}
	if got := row(s, 4); !strings.HasPrefix(got, "speed 0.05  zoom 1.00") {
		t.Errorf("row 4 = %q", got)
	}
	if got := row(s, 4); !strings.Contains(got, "fps -") {
		t.Errorf("row 4 = %q, want fps placeholder before the first second", got)
	}
	if got := row(s, screenH-1); !strings.HasPrefix(got, helpLine) {
		t.Errorf("help row = %q, want %q", got, helpLine)
	}
	if len([]rune(helpLine)) > screenW {
		t.Errorf("help line is %d runes, wider than %d columns", len([]rune(helpLine)), screenW)
	}
}

func TestRenderFPS(t *testing.T) {
	s := newScreen(t)
	r := NewRenderer(s, nil, testLogger())
	static, f := buildFrame(t, nil, control.DefaultRenderConfig())
	if err := r.Setup(static); err != nil {
		t.Fatal(err)
	}

	for _, sec := range []float64{0, 0.25, 0.5, 0.75, 1} {
		next := *f
		next.Time = sec
		if err := r.Render(&next); err != nil {
			t.Fatal(err)
		}
	}
	if r.FPS() != 4 {
		t.Errorf("fps = %v, want 4", r.FPS())
	}
	if got := row(s, 4); !strings.Contains(got, "fps 4") {
		t.Errorf("row 4 = %q", got)
	}

	// A clock that goes back restarts the window without a bogus rate.
	back := *f
	back.Time = 0.1
	if err := r.Render(&back); err != nil {
		t.Fatal(err)
	}
	if r.FPS() != 4 {
		t.Errorf("fps after clock reset = %v, want 4", r.FPS())
	}
}

func TestRenderOnlySatellitesWhenFlagsOff(t *testing.T) {
	s := newScreen(t)
	r := NewRenderer(s, nil, testLogger())
	cfg := control.DefaultRenderConfig()
	cfg.ShowEarth = false
	cfg.ShowEarthAxis = false
	cfg.ShowOrbits = false
	static, f := buildFrame(t, nil, cfg)
	render(t, s, r, static, f)

	sats := 0
	sceneCells(s, func(x, y int, ch rune, _ tcell.Style) {
		switch ch {
		case ' ':
		case 'O':
			sats++
		default:
			t.Errorf("unexpected %q at (%d, %d)", ch, x, y)
		}
	})
	if sats == 0 {
		t.Error("satellites must be drawn regardless of flags")
	}
}

func earthColors(t *testing.T, s tcell.Screen) (red, blue int) {
	t.Helper()
	sceneCells(s, func(_, _ int, ch rune, style tcell.Style) {
		if ch == ' ' || ch == 'O' {
			return
		}
		fg, _, _ := style.Decompose()
		r, _, b := fg.RGB()
		if r > b {
			red++
		}
		if b > r {
			blue++
		}
	})
	return red, blue
}

func TestRenderPlaceholderEarth(t *testing.T) {
	s := newScreen(t)
	r := NewRenderer(s, fakeImage{}, testLogger())
	cfg := control.DefaultRenderConfig()
	cfg.ShowOrbits = false
	cfg.ShowEarthAxis = false
	static, f := buildFrame(t, readyTexture(false), cfg)
	render(t, s, r, static, f)

	red, blue := earthColors(t, s)
	if blue == 0 || red != 0 {
		t.Errorf("placeholder earth: %d blue cells, %d red cells", blue, red)
	}
}

func TestRenderTexturedEarth(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	s := newScreen(t)
	r := NewRenderer(s, fakeImage{data: buf.Bytes()}, testLogger())
	cfg := control.DefaultRenderConfig()
	cfg.ShowOrbits = false
	cfg.ShowEarthAxis = false
	static, f := buildFrame(t, readyTexture(true), cfg)
	render(t, s, r, static, f)

	red, blue := earthColors(t, s)
	if red == 0 || blue != 0 {
		t.Errorf("textured earth: %d red cells, %d blue cells", red, blue)
	}
}

func TestRenderErrors(t *testing.T) {
	s := newScreen(t)
	r := NewRenderer(s, nil, testLogger())
	static, f := buildFrame(t, nil, control.DefaultRenderConfig())

	if err := r.Render(f); err == nil {
		t.Error("Render before Setup should fail")
	}
	if err := r.Setup(nil); err == nil {
		t.Error("Setup(nil) should fail")
	}
	if err := r.Setup(static); err != nil {
		t.Fatal(err)
	}

	bad := *f
	bad.Draws = []scene.DrawRequest{{
		Object:    scene.ObjectSatellites,
		Buffer:    scene.BufferSatellites,
		Primitive: scene.Points,
		First:     20,
		Count:     8,
	}}
	if err := r.Render(&bad); err == nil {
		t.Error("out-of-range draw should fail")
	}

	bad.Draws = []scene.DrawRequest{{Buffer: "stars", Primitive: scene.Points}}
	if err := r.Render(&bad); err == nil {
		t.Error("unknown buffer should fail")
	}
}

func TestInputKeys(t *testing.T) {
	tests := []struct {
		name string
		ev   *tcell.EventKey
		want []control.Event
		quit bool
	}{
		{"toggle orbits", tcell.NewEventKey(tcell.KeyRune, 'o', tcell.ModNone), []control.Event{control.ShowOrbits(false)}, false},
		{"toggle earth", tcell.NewEventKey(tcell.KeyRune, 'e', tcell.ModNone), []control.Event{control.ShowEarth(false)}, false},
		{"toggle axis", tcell.NewEventKey(tcell.KeyRune, 'a', tcell.ModNone), []control.Event{control.ShowAxis(false)}, false},
		{"faster", tcell.NewEventKey(tcell.KeyRune, '+', tcell.ModNone), []control.Event{control.RotationSpeed(0.1)}, false},
		{"bigger", tcell.NewEventKey(tcell.KeyRune, ']', tcell.ModNone), []control.Event{control.SatSize(4)}, false},
		{"smaller", tcell.NewEventKey(tcell.KeyRune, '[', tcell.ModNone), []control.Event{control.SatSize(2)}, false},
		{"reset", tcell.NewEventKey(tcell.KeyRune, 'r', tcell.ModNone), []control.Event{control.Reset()}, false},
		{"arrow", tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone),
			[]control.Event{control.DragBegin(0, 0), control.DragMove(arrowStep, 0), control.DragEnd()}, false},
		{"unbound", tcell.NewEventKey(tcell.KeyRune, 'z', tcell.ModNone), nil, false},
		{"quit", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone), nil, true},
		{"escape", tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), nil, true},
		{"ctrl-c", tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, quit := NewInput().Map(tt.ev)
			if quit != tt.quit {
				t.Errorf("quit = %v, want %v", quit, tt.quit)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("events = %+v, want %+v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("event %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestInputTogglesAndStepsAccumulate(t *testing.T) {
	in := NewInput()
	key := func(r rune) []control.Event {
		evs, _ := in.Map(tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone))
		return evs
	}

	key('o')
	if evs := key('o'); evs[0] != control.ShowOrbits(true) {
		t.Errorf("second toggle = %+v, want orbits on", evs[0])
	}

	for i := 0; i < 5; i++ {
		key('-')
	}
	if in.Config().RotationSpeed != 0 {
		t.Errorf("speed = %v, want floor of 0", in.Config().RotationSpeed)
	}
	for i := 0; i < 30; i++ {
		key('+')
	}
	if in.Config().RotationSpeed != maxSpeed {
		t.Errorf("speed = %v, want ceiling of %v", in.Config().RotationSpeed, maxSpeed)
	}

	for i := 0; i < 20; i++ {
		key(']')
	}
	if in.Config().SatSize != maxSize {
		t.Errorf("size = %d, want %d", in.Config().SatSize, maxSize)
	}
}

func TestInputMouse(t *testing.T) {
	in := NewInput()
	mouse := func(x, y int, b tcell.ButtonMask) []control.Event {
		evs, _ := in.Map(tcell.NewEventMouse(x, y, b, tcell.ModNone))
		return evs
	}

	if evs := mouse(10, 5, tcell.Button1); len(evs) != 1 || evs[0] != control.DragBegin(80, 80) {
		t.Errorf("press = %+v", evs)
	}
	if evs := mouse(12, 5, tcell.Button1); len(evs) != 1 || evs[0] != control.DragMove(96, 80) {
		t.Errorf("drag = %+v", evs)
	}
	// Arrow keys are ignored while the mouse drags.
	if evs, _ := in.Map(tcell.NewEventKey(tcell.KeyLeft, 0, tcell.ModNone)); len(evs) != 0 {
		t.Errorf("arrow during drag = %+v", evs)
	}
	if evs := mouse(12, 5, tcell.ButtonNone); len(evs) != 1 || evs[0] != control.DragEnd() {
		t.Errorf("release = %+v", evs)
	}
	if evs := mouse(12, 5, tcell.ButtonNone); len(evs) != 0 {
		t.Errorf("move without button = %+v", evs)
	}
	if evs := mouse(0, 0, tcell.WheelUp); len(evs) != 1 || evs[0] != control.Wheel(-1) {
		t.Errorf("wheel up = %+v", evs)
	}
	if evs := mouse(0, 0, tcell.WheelDown); len(evs) != 1 || evs[0] != control.Wheel(1) {
		t.Errorf("wheel down = %+v", evs)
	}
}

func TestInputResize(t *testing.T) {
	evs, _ := NewInput().Map(tcell.NewEventResize(120, 40))
	if len(evs) != 1 || evs[0] != control.Resize(120, 80) {
		t.Errorf("resize = %+v, want Resize(120, 80)", evs)
	}
}

type recordingSink struct {
	events  []control.Event
	stopped bool
}

func (r *recordingSink) Submit(ev control.Event) bool {
	r.events = append(r.events, ev)
	return true
}

func (r *recordingSink) Stop() { r.stopped = true }

func TestPumpForwardsUntilQuit(t *testing.T) {
	s := newScreen(t)
	sink := &recordingSink{}

	done := make(chan struct{})
	go func() {
		defer close(done)
		Pump(s, NewInput(), sink)
	}()

	s.InjectKey(tcell.KeyRune, 'e', tcell.ModNone)
	s.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Pump did not return after quit")
	}

	if !sink.stopped {
		t.Error("sink not stopped on quit")
	}
	found := false
	for _, ev := range sink.events {
		if ev == control.ShowEarth(false) {
			found = true
		}
	}
	if !found {
		t.Errorf("events = %+v, want show_earth false", sink.events)
	}
}

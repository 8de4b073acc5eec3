// Package frame drives the per-tick loop: it advances the simulation clock,
// applies queued input, resolves a scene.Frame and hands it to a Renderer.
package frame

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/Repin-Daniil/glonass-visualization/internal/camera"
	"github.com/Repin-Daniil/glonass-visualization/internal/control"
	"github.com/Repin-Daniil/glonass-visualization/internal/metrics"
	"github.com/Repin-Daniil/glonass-visualization/internal/scene"
)

const (
	// TimeDilation speeds satellites up so their motion is visible.
	TimeDilation = 30.0
	// spinDivisor scales the rotation speed into the per-tick Earth spin.
	spinDivisor = 50.0

	defaultQueueSize = 64
	defaultAspect    = 1.0
)

// Renderer is the rendering backend. Setup receives the static buffers once
// before the first frame; Render receives every frame in order. An error from
// either stops the scheduler.
type Renderer interface {
	Setup(static *scene.Static) error
	Render(f *scene.Frame) error
}

// Options configure a Scheduler. The zero value is usable.
type Options struct {
	Backend   string             // metrics label, e.g. "session" or "terminal"
	QueueSize int                // pending input events before Submit drops
	Aspect    float64            // initial viewport aspect ratio
	Camera    *camera.Controller // initial camera; reset position when nil
}

// Scheduler owns one view: its camera, render settings, simulation clock and
// viewport. Everything except Submit and Stop must be called from the
// goroutine running Run, or before Run starts.
type Scheduler struct {
	builder  *scene.Builder
	renderer Renderer
	logger   *slog.Logger
	backend  string

	camera        *camera.Controller
	config        control.RenderConfig
	aspect        float64
	earthRotation float64
	seconds       float64
	seq           uint64

	events   chan control.Event
	done     chan struct{}
	stopOnce sync.Once
}

// NewScheduler creates a scheduler drawing with builder into renderer.
func NewScheduler(builder *scene.Builder, renderer Renderer, opts Options, logger *slog.Logger) *Scheduler {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Aspect <= 0 || math.IsNaN(opts.Aspect) || math.IsInf(opts.Aspect, 0) {
		opts.Aspect = defaultAspect
	}
	if opts.Camera == nil {
		opts.Camera = camera.New()
	}
	if opts.Backend == "" {
		opts.Backend = "default"
	}

	return &Scheduler{
		builder:  builder,
		renderer: renderer,
		logger:   logger,
		backend:  opts.Backend,
		camera:   opts.Camera,
		config:   control.DefaultRenderConfig(),
		aspect:   opts.Aspect,
		events:   make(chan control.Event, opts.QueueSize),
		done:     make(chan struct{}),
	}
}

// Advance moves the simulation to timestampMs and resolves the frame for it
// without rendering. A timestamp older than the previous one keeps the
// previous simulation time.
func (s *Scheduler) Advance(timestampMs float64) *scene.Frame {
	start := time.Now()

	if sec := timestampMs / 1000; sec > s.seconds || s.seq == 0 {
		s.seconds = sec
	}
	s.earthRotation += s.config.RotationSpeed / spinDivisor
	s.seq++

	e := s.builder.Elements()
	f := s.builder.Build(scene.Input{
		Seq:           s.seq,
		Time:          s.seconds,
		EarthRotation: s.earthRotation,
		Camera:        s.camera.State(),
		Aspect:        s.aspect,
		Config:        s.config,
		Satellites:    e.SatellitePositions(s.seconds*TimeDilation, s.config.RotationSpeed),
	})

	metrics.ObserveFrameBuild(time.Since(start))
	return f
}

// Tick runs one iteration: advance, then render.
func (s *Scheduler) Tick(timestampMs float64) error {
	f := s.Advance(timestampMs)
	if err := s.renderer.Render(f); err != nil {
		metrics.IncRenderErrors(s.backend)
		return fmt.Errorf("rendering frame %d: %w", f.Seq, err)
	}
	metrics.IncFrames(s.backend)
	return nil
}

// Apply applies one input event immediately.
func (s *Scheduler) Apply(ev control.Event) {
	switch ev.Type {
	case control.KindDragBegin:
		s.camera.BeginDrag(ev.X, ev.Y)
	case control.KindDragMove:
		s.camera.Drag(ev.X, ev.Y)
	case control.KindDragEnd:
		s.camera.EndDrag()
	case control.KindLeave:
		s.camera.Leave()
	case control.KindWheel:
		s.camera.Zoom(ev.DeltaY)
	case control.KindReset:
		s.camera.Reset()
	case control.KindResize:
		if ev.Width > 0 && ev.Height > 0 {
			s.aspect = float64(ev.Width) / float64(ev.Height)
		}
	case control.KindShowOrbits:
		s.config.SetShowOrbits(ev.Enabled)
	case control.KindShowEarth:
		s.config.SetShowEarth(ev.Enabled)
	case control.KindShowAxis:
		s.config.SetShowEarthAxis(ev.Enabled)
	case control.KindRotationSpeed:
		s.config.SetRotationSpeed(ev.Value)
	case control.KindSatSize:
		s.config.SetSatSize(int(math.Round(ev.Value)))
	default:
		s.logger.Debug("ignoring input event", "backend", s.backend, "type", ev.Type)
	}
}

// Submit queues an event for the next loop iteration. It never blocks and
// reports false when the queue is full or the scheduler has stopped.
func (s *Scheduler) Submit(ev control.Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.events <- ev:
		return true
	default:
		return false
	}
}

// Stop ends Run. It is safe to call more than once and from any goroutine.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// Done is closed once Stop has been called.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Run uploads the static buffers and then ticks every interval until ctx is
// cancelled, Stop is called or the renderer fails. Queued input is applied
// between ticks on the same goroutine.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	if err := s.renderer.Setup(s.builder.Static()); err != nil {
		metrics.IncRenderErrors(s.backend)
		return fmt.Errorf("renderer setup: %w", err)
	}

	s.logger.Debug("frame loop started",
		"backend", s.backend,
		"interval_ms", interval.Milliseconds(),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case ev := <-s.events:
			s.Apply(ev)
		case now := <-ticker.C:
			ms := float64(now.Sub(start)) / float64(time.Millisecond)
			if err := s.Tick(ms); err != nil {
				return err
			}
		}
	}
}

// Camera returns the current camera state.
func (s *Scheduler) Camera() camera.State { return s.camera.State() }

// Config returns the current render settings.
func (s *Scheduler) Config() control.RenderConfig { return s.config }

// Aspect returns the viewport aspect ratio used by the next frame.
func (s *Scheduler) Aspect() float64 { return s.aspect }

// EarthRotation returns the accumulated Earth spin in radians.
func (s *Scheduler) EarthRotation() float64 { return s.earthRotation }

// Seconds returns the current simulation time.
func (s *Scheduler) Seconds() float64 { return s.seconds }

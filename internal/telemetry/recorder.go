// Package telemetry turns rendered frames into per-satellite ground tracks.
// The Recorder is a frame.Renderer for a headless scheduler; it publishes the
// latest snapshot for HTTP and SSE readers.
package telemetry

import (
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Repin-Daniil/glonass-visualization/internal/mat4"
	"github.com/Repin-Daniil/glonass-visualization/internal/orbit"
	"github.com/Repin-Daniil/glonass-visualization/internal/scene"
)

// Satellite is one satellite's state in a snapshot.
type Satellite struct {
	ID       int        `json:"id"`
	Plane    int        `json:"plane"`
	Slot     int        `json:"slot"`
	Position [3]float64 `json:"position"` // display space, inertial
	orbit.SubPoint
}

// Snapshot is the telemetry derived from one frame.
type Snapshot struct {
	Seq           uint64      `json:"seq"`
	Time          float64     `json:"t"`
	EarthRotation float64     `json:"earth_rotation"`
	CreatedAt     time.Time   `json:"created_at"`
	Satellites    []Satellite `json:"satellites"`
}

// Recorder computes a Snapshot for every frame it receives.
type Recorder struct {
	builder *scene.Builder
	latest  atomic.Pointer[Snapshot]
	frames  atomic.Uint64
}

// NewRecorder creates a recorder for frames built by builder.
func NewRecorder(builder *scene.Builder) *Recorder {
	return &Recorder{builder: builder}
}

// Setup implements frame.Renderer. The recorder keeps no GPU state.
func (r *Recorder) Setup(*scene.Static) error {
	return nil
}

// Render implements frame.Renderer.
func (r *Recorder) Render(f *scene.Frame) error {
	r.latest.Store(r.Snapshot(f))
	r.frames.Add(1)
	return nil
}

// Snapshot derives ground tracks for f without publishing them.
func (r *Recorder) Snapshot(f *scene.Frame) *Snapshot {
	e := r.builder.Elements()
	toBody := mat4.AffineInverse(r.builder.EarthModel(f.EarthRotation))

	sats := make([]Satellite, len(f.Positions))
	for i, p := range f.Positions {
		sats[i] = Satellite{
			ID:       i,
			Plane:    i / e.SatsPerPlane,
			Slot:     i % e.SatsPerPlane,
			Position: [3]float64{p.X(), p.Y(), p.Z()},
			SubPoint: e.Geodetic(bodyFixed(toBody, p)),
		}
	}

	return &Snapshot{
		Seq:           f.Seq,
		Time:          f.Time,
		EarthRotation: f.EarthRotation,
		CreatedAt:     time.Now().UTC(),
		Satellites:    sats,
	}
}

// Latest returns the most recent snapshot, or nil before the first frame.
func (r *Recorder) Latest() *Snapshot {
	return r.latest.Load()
}

// Ready reports whether at least one frame has been recorded.
func (r *Recorder) Ready() bool {
	return r.frames.Load() > 0
}

func bodyFixed(toBody mgl64.Mat4, p mgl64.Vec3) mgl64.Vec3 {
	return mat4.Transform(toBody, p)
}

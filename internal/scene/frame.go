package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// Object names the drawable a request belongs to.
type Object string

const (
	ObjectEarth      Object = "earth"
	ObjectAxis       Object = "axis"
	ObjectOrbit      Object = "orbit"
	ObjectSatellites Object = "satellites"
)

// Buffer names the vertex buffer a request draws from. Earth, axis and
// orbits live in Static; the satellite buffer is carried by each Frame.
type Buffer string

const (
	BufferEarth      Buffer = "earth"
	BufferAxis       Buffer = "axis"
	BufferOrbits     Buffer = "orbits"
	BufferSatellites Buffer = "satellites"
)

// Primitive is the draw mode of a request.
type Primitive string

const (
	Triangles Primitive = "triangles"
	Lines     Primitive = "lines"
	LineStrip Primitive = "line_strip"
	Points    Primitive = "points"
)

// DrawRequest is one draw call. First and Count are in vertices, or in
// indices when Indexed is set.
type DrawRequest struct {
	Object    Object     `json:"object"`
	Plane     int        `json:"plane"`
	Buffer    Buffer     `json:"buffer"`
	Primitive Primitive  `json:"primitive"`
	First     int        `json:"first"`
	Count     int        `json:"count"`
	Indexed   bool       `json:"indexed,omitempty"`
	Textured  bool       `json:"textured,omitempty"`
	Color     *Color     `json:"color,omitempty"`
	PointSize float32    `json:"point_size"`
	Model     mgl32.Mat4 `json:"model"`
	MVP       mgl32.Mat4 `json:"mvp"`
	Normal    mgl32.Mat4 `json:"normal"`
}

// Light is the fixed ambient plus directional lighting model.
type Light struct {
	Direction [3]float32 `json:"direction"`
	Ambient   float32    `json:"ambient"`
}

// Info is the summary shown next to the view.
type Info struct {
	Satellites     int     `json:"satellites"`
	Planes         int     `json:"planes"`
	InclinationDeg float64 `json:"inclination_deg"`
	AxialTiltDeg   float64 `json:"axial_tilt_deg"`
	AltitudeKm     float64 `json:"altitude_km"`
	RotationSpeed  float64 `json:"rotation_speed"`
	ZoomLevel      float64 `json:"zoom_level"`
}

// Frame is the complete description of one tick, in draw order.
type Frame struct {
	Seq            uint64        `json:"seq"`
	Time           float64       `json:"t"`
	EarthRotation  float64       `json:"earth_rotation"`
	Aspect         float64       `json:"aspect"`
	ViewProjection mgl32.Mat4    `json:"view_projection"`
	Light          Light         `json:"light"`
	Satellites     []float32     `json:"satellites"`
	Draws          []DrawRequest `json:"draws"`
	Info           Info          `json:"info"`

	// Positions are the satellite world positions at full precision, for
	// in-process consumers.
	Positions []mgl64.Vec3 `json:"-"`
}

// DrawsOf returns the requests for one object, in draw order.
func (f *Frame) DrawsOf(obj Object) []DrawRequest {
	var out []DrawRequest
	for _, d := range f.Draws {
		if d.Object == obj {
			out = append(out, d)
		}
	}
	return out
}

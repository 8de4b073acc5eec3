// Package scene turns the simulation state of one tick into a renderable
// frame: per-object transforms, draw batches and the satellite vertex buffer.
package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Repin-Daniil/glonass-visualization/internal/camera"
	"github.com/Repin-Daniil/glonass-visualization/internal/control"
	"github.com/Repin-Daniil/glonass-visualization/internal/mat4"
	"github.com/Repin-Daniil/glonass-visualization/internal/orbit"
)

// Projection parameters shared by every frame.
const (
	FieldOfView = math.Pi / 4
	Near        = 1.0
	Far         = 2000.0

	Ambient = 0.5
)

// LightDirection is the single directional light, in world space.
var LightDirection = [3]float32{1, 0.5, 0.3}

// Transform is the matrix set for one drawable object.
type Transform struct {
	Model  mgl64.Mat4
	MVP    mgl64.Mat4
	Normal mgl64.Mat4
}

// NewTransform composes a model matrix with the frame's view-projection.
// The normal matrix is the inverse transpose of the model, which is only
// valid for rotation and translation.
func NewTransform(viewProj, model mgl64.Mat4) Transform {
	return Transform{
		Model:  model,
		MVP:    mat4.Multiply(viewProj, model),
		Normal: mat4.AffineInverse(mat4.Transpose(model)),
	}
}

// TextureSource reports whether the Earth image is available.
type TextureSource interface {
	Ready() bool
}

// Input is everything the builder needs for one tick.
type Input struct {
	Seq           uint64
	Time          float64 // simulation seconds
	EarthRotation float64 // radians
	Camera        camera.State
	Aspect        float64
	Config        control.RenderConfig
	Satellites    []mgl64.Vec3
}

// Builder assembles frames against one set of static buffers. It holds no
// per-tick state and is safe to share between schedulers.
type Builder struct {
	elements orbit.Elements
	static   *Static
	palette  Palette
	texture  TextureSource
}

// NewBuilder returns a builder. texture may be nil, in which case the Earth is
// always drawn with the placeholder color.
func NewBuilder(elements orbit.Elements, static *Static, texture TextureSource) *Builder {
	return &Builder{
		elements: elements,
		static:   static,
		palette:  NewPalette(elements.Planes),
		texture:  texture,
	}
}

// Elements returns the constellation the builder draws.
func (b *Builder) Elements() orbit.Elements { return b.elements }

// Static returns the shared static buffers.
func (b *Builder) Static() *Static { return b.static }

// Palette returns the per-plane colors.
func (b *Builder) Palette() Palette { return b.palette }

// ViewProjection returns Perspective · LookAt for the camera and aspect ratio.
func ViewProjection(cam camera.State, aspect float64) mgl64.Mat4 {
	return mat4.Multiply(
		mat4.Perspective(FieldOfView, aspect, Near, Far),
		mat4.LookAt(cam.Distance, cam.Pitch, cam.Yaw),
	)
}

// EarthModel tilts the spin axis and then spins the globe about it.
func (b *Builder) EarthModel(rotation float64) mgl64.Mat4 {
	return mat4.Multiply(mat4.RotateZ(b.elements.AxialTilt()), mat4.RotateY(rotation))
}

// AxisModel tilts the axis segment without spinning it.
func (b *Builder) AxisModel() mgl64.Mat4 {
	return mat4.RotateZ(b.elements.AxialTilt())
}

// Build resolves one frame. Earth, axis and orbit batches are gated by the
// display flags; satellites are always drawn.
func (b *Builder) Build(in Input) *Frame {
	viewProj := ViewProjection(in.Camera, in.Aspect)
	world := NewTransform(viewProj, mat4.Identity())

	f := &Frame{
		Seq:            in.Seq,
		Time:           in.Time,
		EarthRotation:  in.EarthRotation,
		Aspect:         in.Aspect,
		ViewProjection: mat4.Float32(viewProj),
		Light:          Light{Direction: LightDirection, Ambient: Ambient},
		Satellites:     flatten(in.Satellites),
		Positions:      in.Satellites,
		Draws:          make([]DrawRequest, 0, 2+2*b.elements.Planes),
		Info:           b.info(in),
	}

	if in.Config.ShowEarth {
		d := newDraw(ObjectEarth, BufferEarth, Triangles, NewTransform(viewProj, b.EarthModel(in.EarthRotation)))
		d.Count = len(b.static.Earth.Indices)
		d.Indexed = true
		d.PointSize = 1
		if b.texture != nil && b.texture.Ready() {
			d.Textured = true
		} else {
			c := PlaceholderColor
			d.Color = &c
		}
		f.Draws = append(f.Draws, d)
	}

	if in.Config.ShowEarthAxis {
		d := newDraw(ObjectAxis, BufferAxis, Lines, NewTransform(viewProj, b.AxisModel()))
		d.Count = len(b.static.Axis) / 3
		d.PointSize = 1
		c := AxisColor
		d.Color = &c
		f.Draws = append(f.Draws, d)
	}

	if in.Config.ShowOrbits {
		for p := 0; p < b.static.Planes; p++ {
			d := newDraw(ObjectOrbit, BufferOrbits, LineStrip, world)
			d.Plane = p
			d.First = p * b.static.RingPoints
			d.Count = b.static.RingPoints
			d.PointSize = 1
			c := b.palette.RGBA(p)
			d.Color = &c
			f.Draws = append(f.Draws, d)
		}
	}

	size := float32(in.Config.SatSize * 2)
	for p := 0; p < b.elements.Planes; p++ {
		d := newDraw(ObjectSatellites, BufferSatellites, Points, world)
		d.Plane = p
		d.First = p * b.elements.SatsPerPlane
		d.Count = b.elements.SatsPerPlane
		d.PointSize = size
		c := b.palette.RGBA(p)
		d.Color = &c
		f.Draws = append(f.Draws, d)
	}

	return f
}

func (b *Builder) info(in Input) Info {
	e := b.elements
	return Info{
		Satellites:     e.NumSatellites(),
		Planes:         e.Planes,
		InclinationDeg: e.InclinationDeg,
		AxialTiltDeg:   e.AxialTiltDeg,
		AltitudeKm:     e.AltitudeKm,
		RotationSpeed:  in.Config.RotationSpeed,
		ZoomLevel:      in.Camera.ZoomLevel,
	}
}

func newDraw(obj Object, buf Buffer, prim Primitive, t Transform) DrawRequest {
	return DrawRequest{
		Object:    obj,
		Buffer:    buf,
		Primitive: prim,
		Model:     mat4.Float32(t.Model),
		MVP:       mat4.Float32(t.MVP),
		Normal:    mat4.Float32(t.Normal),
	}
}

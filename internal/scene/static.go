package scene

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Repin-Daniil/glonass-visualization/internal/orbit"
)

// Static holds the vertex data that never changes after startup. It is built
// once and shared read-only by every scheduler and renderer.
type Static struct {
	Earth        Mesh      `json:"earth"`
	Axis         []float32 `json:"axis"`
	Orbits       []float32 `json:"orbits"`
	RingPoints   int       `json:"ring_points"` // points per plane in Orbits
	Planes       int       `json:"planes"`
	SatsPerPlane int       `json:"sats_per_plane"`
}

// Mesh is an indexed triangle mesh with per-vertex normals and texture
// coordinates, laid out as flat xyz / xyz / uv arrays.
type Mesh struct {
	Positions []float32 `json:"positions"`
	Normals   []float32 `json:"normals"`
	TexCoords []float32 `json:"tex_coords"`
	Indices   []uint16  `json:"indices"`
}

// VertexCount returns the number of vertices in the mesh.
func (m Mesh) VertexCount() int {
	return len(m.Positions) / 3
}

// NewStatic builds the Earth sphere, the rotation axis and the orbit rings.
// ringSegments is the number of line segments per orbit ring; sphereBands is
// the number of latitude and longitude bands of the Earth mesh.
func NewStatic(e orbit.Elements, ringSegments, sphereBands int) (*Static, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid elements: %w", err)
	}
	if ringSegments < 3 {
		return nil, fmt.Errorf("ring segments must be at least 3, got %d", ringSegments)
	}
	if sphereBands < 2 || (sphereBands+1)*(sphereBands+1) > math.MaxUint16+1 {
		return nil, fmt.Errorf("sphere bands %d out of range for 16-bit indices", sphereBands)
	}

	half := float32(e.AxisHalfLength())
	return &Static{
		Earth:        Sphere(e.EarthRadius(), sphereBands, sphereBands),
		Axis:         []float32{0, -half, 0, 0, half, 0},
		Orbits:       flatten(e.OrbitRings(ringSegments)),
		RingPoints:   ringSegments + 1,
		Planes:       e.Planes,
		SatsPerPlane: e.SatsPerPlane,
	}, nil
}

// Sphere builds a UV sphere of the given radius with +Y as the polar axis.
// Texture u runs 1 → 0 with longitude and v runs 0 → 1 from north to south.
func Sphere(radius float64, latBands, lonBands int) Mesh {
	n := (latBands + 1) * (lonBands + 1)
	m := Mesh{
		Positions: make([]float32, 0, n*3),
		Normals:   make([]float32, 0, n*3),
		TexCoords: make([]float32, 0, n*2),
		Indices:   make([]uint16, 0, latBands*lonBands*6),
	}

	for lat := 0; lat <= latBands; lat++ {
		theta := float64(lat) * math.Pi / float64(latBands)
		sinT, cosT := math.Sin(theta), math.Cos(theta)

		for lon := 0; lon <= lonBands; lon++ {
			phi := float64(lon) * 2 * math.Pi / float64(lonBands)
			sinP, cosP := math.Sin(phi), math.Cos(phi)

			x := cosP * sinT
			y := cosT
			z := sinP * sinT

			m.Normals = append(m.Normals, float32(x), float32(y), float32(z))
			m.TexCoords = append(m.TexCoords,
				float32(1-float64(lon)/float64(lonBands)),
				float32(float64(lat)/float64(latBands)),
			)
			m.Positions = append(m.Positions, float32(radius*x), float32(radius*y), float32(radius*z))
		}
	}

	for lat := 0; lat < latBands; lat++ {
		for lon := 0; lon < lonBands; lon++ {
			first := uint16(lat*(lonBands+1) + lon)
			second := first + uint16(lonBands+1)

			m.Indices = append(m.Indices,
				first, second, first+1,
				second, second+1, first+1,
			)
		}
	}
	return m
}

// flatten packs points into an xyz float32 buffer.
func flatten(points []mgl64.Vec3) []float32 {
	out := make([]float32, 0, len(points)*3)
	for _, p := range points {
		out = append(out, float32(p[0]), float32(p[1]), float32(p[2]))
	}
	return out
}

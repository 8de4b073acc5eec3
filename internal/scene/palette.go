package scene

import (
	"github.com/lucasb-eyer/go-colorful"
)

// Color is a linear RGBA value in [0, 1].
type Color [4]float32

var (
	// PlaceholderColor paints the Earth until its texture is available.
	PlaceholderColor = Color{0, 0, 1, 1}
	// AxisColor paints the Earth's rotation axis.
	AxisColor = Color{1, 1, 1, 1}
)

// planeColors are the fixed colors of the first three orbital planes: blue,
// green and red.
var planeColors = []colorful.Color{
	{R: 0.2, G: 0.7, B: 1},
	{R: 0.2, G: 1, B: 0},
	{R: 1, G: 0.2, B: 0.2},
}

// Palette assigns one color per orbital plane. Orbit rings and satellites of
// the same plane share it.
type Palette []colorful.Color

// NewPalette returns colors for the given number of planes. Planes beyond the
// fixed three get evenly spaced HCL hues.
func NewPalette(planes int) Palette {
	p := make(Palette, planes)
	for i := range p {
		if i < len(planeColors) {
			p[i] = planeColors[i]
			continue
		}
		hue := float64(i) * 360 / float64(planes)
		p[i] = colorful.Hcl(hue, 0.6, 0.7).Clamped()
	}
	return p
}

// RGBA returns the plane's color as an opaque RGBA value.
func (p Palette) RGBA(plane int) Color {
	c := p[plane%len(p)]
	return Color{float32(c.R), float32(c.G), float32(c.B), 1}
}

// Hex returns the plane's color as #rrggbb.
func (p Palette) Hex(plane int) string {
	return p[plane%len(p)].Hex()
}

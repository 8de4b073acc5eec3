// Package termview renders frames into a terminal with tcell and maps
// terminal input onto control events.
//
// A character cell is roughly twice as tall as it is wide, so the viewport
// reported to the scheduler is width × 2·height.
package termview

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/Repin-Daniil/glonass-visualization/internal/asset"
	"github.com/Repin-Daniil/glonass-visualization/internal/scene"
)

// shades maps brightness in [0, 1] to a glyph, darkest first.
const shades = " .:-=+*#%@"

// TextureSource supplies the encoded Earth image once it is loaded.
type TextureSource interface {
	Get() (*asset.Image, error)
}

// Renderer rasterizes frames into a tcell screen. It implements
// frame.Renderer and must only be used from the scheduler goroutine.
type Renderer struct {
	screen  tcell.Screen
	texture TextureSource
	logger  *slog.Logger

	static *scene.Static
	light  mgl32.Vec3
	tex    image.Image
	texBad bool

	width  int
	height int
	depth  []float32
	frames uint64

	// Frame rate over windows of fpsWindow seconds of frame time.
	fps        float64
	fpsFrames  int
	fpsStart   float64
	fpsStarted bool

	// ShowHelp draws the key bindings on the bottom row.
	ShowHelp bool
}

// NewRenderer creates a renderer drawing into screen. texture may be nil,
// in which case the Earth keeps its placeholder shading.
func NewRenderer(screen tcell.Screen, texture TextureSource, logger *slog.Logger) *Renderer {
	return &Renderer{
		screen:   screen,
		texture:  texture,
		logger:   logger,
		ShowHelp: true,
	}
}

// Setup keeps a reference to the static buffers.
func (r *Renderer) Setup(static *scene.Static) error {
	if static == nil {
		return fmt.Errorf("termview: no static geometry")
	}
	r.static = static
	r.screen.Clear()
	return nil
}

// Render draws every request of f in order, then the info panel.
func (r *Renderer) Render(f *scene.Frame) error {
	if r.static == nil {
		return fmt.Errorf("termview: render before setup")
	}
	w, h := r.screen.Size()
	if w <= 0 || h <= 0 {
		return nil
	}
	r.resize(w, h)
	r.light = mgl32.Vec3(f.Light.Direction).Normalize()
	r.screen.Clear()

	for _, d := range f.Draws {
		if err := r.draw(f, d); err != nil {
			return fmt.Errorf("drawing %s: %w", d.Object, err)
		}
	}

	r.countFrame(f.Time)
	r.drawInfo(f.Info)
	r.screen.Show()
	r.frames++
	return nil
}

const fpsWindow = 1.0

// countFrame updates the frame rate from the frame clock in seconds.
func (r *Renderer) countFrame(t float64) {
	if !r.fpsStarted || t < r.fpsStart {
		r.fpsStart, r.fpsFrames, r.fpsStarted = t, 0, true
		return
	}
	r.fpsFrames++
	if elapsed := t - r.fpsStart; elapsed >= fpsWindow {
		r.fps = float64(r.fpsFrames) / elapsed
		r.fpsStart, r.fpsFrames = t, 0
	}
}

// FPS returns the last measured frame rate, zero before the first window.
func (r *Renderer) FPS() float64 {
	return r.fps
}

// Frames returns the number of frames shown.
func (r *Renderer) Frames() uint64 {
	return r.frames
}

func (r *Renderer) resize(w, h int) {
	if w != r.width || h != r.height {
		r.width, r.height = w, h
		r.depth = make([]float32, w*h)
	}
	for i := range r.depth {
		r.depth[i] = math.MaxFloat32
	}
}

func (r *Renderer) buffer(f *scene.Frame, b scene.Buffer) ([]float32, error) {
	switch b {
	case scene.BufferEarth:
		return r.static.Earth.Positions, nil
	case scene.BufferAxis:
		return r.static.Axis, nil
	case scene.BufferOrbits:
		return r.static.Orbits, nil
	case scene.BufferSatellites:
		return f.Satellites, nil
	}
	return nil, fmt.Errorf("unknown buffer %q", b)
}

func (r *Renderer) draw(f *scene.Frame, d scene.DrawRequest) error {
	verts, err := r.buffer(f, d.Buffer)
	if err != nil {
		return err
	}

	if d.Indexed {
		idx := r.static.Earth.Indices
		if d.First < 0 || d.First+d.Count > len(idx) {
			return fmt.Errorf("index range [%d, %d) outside %d indices", d.First, d.First+d.Count, len(idx))
		}
		if d.Primitive != scene.Triangles {
			return fmt.Errorf("indexed %s is not supported", d.Primitive)
		}
		r.drawMesh(d, verts, idx[d.First:d.First+d.Count])
		return nil
	}

	if d.First < 0 || 3*(d.First+d.Count) > len(verts) {
		return fmt.Errorf("vertex range [%d, %d) outside %d vertices", d.First, d.First+d.Count, len(verts)/3)
	}
	style := styleFor(d.Color, 1)

	switch d.Primitive {
	case scene.Lines:
		for i := d.First; i+1 < d.First+d.Count; i += 2 {
			r.line(r.project(d.MVP, verts, i), r.project(d.MVP, verts, i+1), 0, style)
		}
	case scene.LineStrip:
		for i := d.First; i+1 < d.First+d.Count; i++ {
			r.line(r.project(d.MVP, verts, i), r.project(d.MVP, verts, i+1), '.', style)
		}
	case scene.Points:
		glyph := pointGlyph(d.PointSize)
		for i := d.First; i < d.First+d.Count; i++ {
			if p := r.project(d.MVP, verts, i); p.ok {
				r.plot(int(p.x), int(p.y), p.z-pointDepthBias, glyph, style.Bold(true))
			}
		}
	default:
		return fmt.Errorf("unsupported primitive %q", d.Primitive)
	}
	return nil
}

// pointDepthBias pulls satellites in front of the ring they ride on. It is
// in scene units of eye distance: longer than a ring segment at the default
// 200 segments, well below the Earth's radius.
const pointDepthBias = 10

// point is a vertex in cell coordinates with its eye distance as depth.
type point struct {
	x, y, z float32
	ok      bool
}

// project maps vertex i of verts through mvp. Vertices behind the camera or
// outside the depth range are rejected.
func (r *Renderer) project(mvp mgl32.Mat4, verts []float32, i int) point {
	clip := mvp.Mul4x1(mgl32.Vec4{verts[3*i], verts[3*i+1], verts[3*i+2], 1})
	if clip.W() <= 0 {
		return point{}
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	if ndc.Z() < -1 || ndc.Z() > 1 {
		return point{}
	}
	return point{
		x:  (ndc.X() + 1) / 2 * float32(r.width),
		y:  (1 - ndc.Y()) / 2 * float32(r.height),
		z:  clip.W(),
		ok: true,
	}
}

func (r *Renderer) plot(x, y int, z float32, glyph rune, style tcell.Style) {
	if x < 0 || y < 0 || x >= r.width || y >= r.height {
		return
	}
	i := y*r.width + x
	if z >= r.depth[i] {
		return
	}
	r.depth[i] = z
	r.screen.SetContent(x, y, glyph, nil, style)
}

// line draws a Bresenham segment. A zero glyph picks one from the slope.
func (r *Renderer) line(a, b point, glyph rune, style tcell.Style) {
	if !a.ok || !b.ok || r.far(a) || r.far(b) {
		return
	}
	if glyph == 0 {
		glyph = slopeGlyph(b.x-a.x, b.y-a.y)
	}

	x0, y0 := int(a.x), int(a.y)
	x1, y1 := int(b.x), int(b.y)
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	steps := max(dx, -dy)
	e := dx + dy

	for n := 0; ; n++ {
		t := float32(0)
		if steps > 0 {
			t = float32(n) / float32(steps)
		}
		r.plot(x0, y0, a.z+(b.z-a.z)*t, glyph, style)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// far reports a point well outside the screen; segments to it are skipped
// rather than walked cell by cell.
func (r *Renderer) far(p point) bool {
	w, h := float32(r.width), float32(r.height)
	return p.x < -4*w || p.x > 5*w || p.y < -4*h || p.y > 5*h
}

// drawMesh fills the indexed triangles with per-vertex lighting.
func (r *Renderer) drawMesh(d scene.DrawRequest, verts []float32, idx []uint16) {
	mesh := r.static.Earth
	base := colorful.Color{R: 0, G: 0, B: 1}
	if d.Color != nil {
		base = colorful.Color{R: float64(d.Color[0]), G: float64(d.Color[1]), B: float64(d.Color[2])}
	}
	tex := r.textureImage(d.Textured)

	n := len(verts) / 3
	proj := make([]point, n)
	light := make([]float32, n)
	for i := 0; i < n; i++ {
		proj[i] = r.project(d.MVP, verts, i)
		light[i] = r.lighting(d.Normal, mesh.Normals, i)
	}

	for t := 0; t+2 < len(idx); t += 3 {
		i0, i1, i2 := int(idx[t]), int(idx[t+1]), int(idx[t+2])
		a, b, c := proj[i0], proj[i1], proj[i2]
		if !a.ok || !b.ok || !c.ok {
			continue
		}
		r.fill(a, b, c, func(w0, w1, w2 float32) (rune, tcell.Style) {
			shade := w0*light[i0] + w1*light[i1] + w2*light[i2]
			col := base
			if tex != nil {
				u := w0*mesh.TexCoords[2*i0] + w1*mesh.TexCoords[2*i1] + w2*mesh.TexCoords[2*i2]
				v := w0*mesh.TexCoords[2*i0+1] + w1*mesh.TexCoords[2*i1+1] + w2*mesh.TexCoords[2*i2+1]
				col = sample(tex, u, v)
			}
			return shadeGlyph(shade), styleOf(col, shade)
		})
	}
}

// lighting is the ambient plus diffuse intensity of vertex i.
func (r *Renderer) lighting(normal mgl32.Mat4, normals []float32, i int) float32 {
	nv := normal.Mul4x1(mgl32.Vec4{normals[3*i], normals[3*i+1], normals[3*i+2], 0}).Vec3()
	if nv.Len() == 0 {
		return scene.Ambient
	}
	diffuse := max(nv.Normalize().Dot(r.light), 0)
	return scene.Ambient + (1-scene.Ambient)*diffuse
}

// fill rasterizes triangle abc at cell centres. color receives the
// barycentric weights of each covered cell.
func (r *Renderer) fill(a, b, c point, color func(w0, w1, w2 float32) (rune, tcell.Style)) {
	area := edge(a, b, c.x, c.y)
	if area == 0 {
		return
	}
	minX := max(int(math.Floor(float64(min(a.x, b.x, c.x)))), 0)
	maxX := min(int(math.Ceil(float64(max(a.x, b.x, c.x)))), r.width-1)
	minY := max(int(math.Floor(float64(min(a.y, b.y, c.y)))), 0)
	maxY := min(int(math.Ceil(float64(max(a.y, b.y, c.y)))), r.height-1)

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px, py := float32(x)+0.5, float32(y)+0.5
			w0 := edge(b, c, px, py) / area
			w1 := edge(c, a, px, py) / area
			w2 := edge(a, b, px, py) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			z := w0*a.z + w1*b.z + w2*c.z
			glyph, style := color(w0, w1, w2)
			r.plot(x, y, z, glyph, style)
		}
	}
}

// textureImage decodes the Earth image the first time a textured draw
// arrives after it has loaded.
func (r *Renderer) textureImage(textured bool) image.Image {
	if !textured || r.texture == nil || r.texBad {
		return nil
	}
	if r.tex != nil {
		return r.tex
	}
	img, err := r.texture.Get()
	if err != nil {
		return nil
	}
	decoded, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		r.texBad = true
		r.logger.Warn("earth image could not be decoded for the terminal", "error", err)
		return nil
	}
	r.tex = decoded
	r.logger.Info("terminal earth texture loaded",
		"width", decoded.Bounds().Dx(),
		"height", decoded.Bounds().Dy(),
	)
	return r.tex
}

func (r *Renderer) drawInfo(info scene.Info) {
	style := tcell.StyleDefault.Foreground(tcell.ColorSilver)
	lines := []string{
		"GLONASS",
		fmt.Sprintf("satellites %d in %d planes", info.Satellites, info.Planes),
		fmt.Sprintf("inclination %.1f°  tilt %.1f°", info.InclinationDeg, info.AxialTiltDeg),
		fmt.Sprintf("altitude %.0f km", info.AltitudeKm),
		fmt.Sprintf("speed %.2f  zoom %.2f  fps %s", info.RotationSpeed, info.ZoomLevel, r.fpsText()),
	}
	for i, s := range lines {
		r.text(0, i, s, style)
	}
	if r.ShowHelp && r.height > len(lines)+1 {
		r.text(0, r.height-1, helpLine, style.Dim(true))
	}
}

// helpLine fits 80 columns; quit comes first so it survives narrower ones.
const helpLine = "q quit  arrows rotate  wheel zoom  o e a toggle  +/- speed  [ ] size  r reset"

func (r *Renderer) fpsText() string {
	if r.fps == 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f", r.fps)
}

func (r *Renderer) text(x, y int, s string, style tcell.Style) {
	for _, ch := range s {
		if x >= r.width {
			return
		}
		r.screen.SetContent(x, y, ch, nil, style)
		x++
	}
}

func edge(a, b point, x, y float32) float32 {
	return (b.x-a.x)*(y-a.y) - (b.y-a.y)*(x-a.x)
}

// sample returns the texel at (u, v); v runs from the top row down.
func sample(img image.Image, u, v float32) colorful.Color {
	bounds := img.Bounds()
	x := bounds.Min.X + int(clamp01(u)*float32(bounds.Dx()-1))
	y := bounds.Min.Y + int(clamp01(v)*float32(bounds.Dy()-1))
	c, _ := colorful.MakeColor(img.At(x, y))
	return c
}

func shadeGlyph(shade float32) rune {
	i := int(clamp01(shade) * float32(len(shades)-1))
	return rune(shades[i])
}

func slopeGlyph(dx, dy float32) rune {
	switch {
	case math.Abs(float64(dx)) > 2*math.Abs(float64(dy)):
		return '-'
	case math.Abs(float64(dy)) > 2*math.Abs(float64(dx)):
		return '|'
	case (dx > 0) == (dy > 0):
		return '\\'
	default:
		return '/'
	}
}

func pointGlyph(size float32) rune {
	switch {
	case size >= 12:
		return '@'
	case size >= 6:
		return 'O'
	default:
		return 'o'
	}
}

// styleFor is the foreground style of an optional RGBA color scaled by shade.
func styleFor(c *scene.Color, shade float32) tcell.Style {
	if c == nil {
		return tcell.StyleDefault
	}
	return styleOf(colorful.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2])}, shade)
}

func styleOf(c colorful.Color, shade float32) tcell.Style {
	lit := colorful.Color{}.BlendRgb(c, float64(clamp01(shade))).Clamped()
	r, g, b := lit.RGB255()
	return tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(r), int32(g), int32(b)))
}

func clamp01(v float32) float32 {
	return max(0, min(1, v))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

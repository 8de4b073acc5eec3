// Package control holds the externally mutable render settings and the input
// events that mutate them.
package control

const (
	DefaultRotationSpeed = 0.05
	DefaultSatSize       = 3
)

// RenderConfig is the control-panel state read by every frame. It is owned by
// one frame scheduler and changed only through its setters.
type RenderConfig struct {
	ShowOrbits    bool    `json:"show_orbits"`
	ShowEarth     bool    `json:"show_earth"`
	ShowEarthAxis bool    `json:"show_earth_axis"`
	RotationSpeed float64 `json:"rotation_speed"`
	SatSize       int     `json:"sat_size"`
}

// DefaultRenderConfig returns the settings a fresh session starts with.
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		ShowOrbits:    true,
		ShowEarth:     true,
		ShowEarthAxis: true,
		RotationSpeed: DefaultRotationSpeed,
		SatSize:       DefaultSatSize,
	}
}

func (c *RenderConfig) SetShowOrbits(v bool)    { c.ShowOrbits = v }
func (c *RenderConfig) SetShowEarth(v bool)     { c.ShowEarth = v }
func (c *RenderConfig) SetShowEarthAxis(v bool) { c.ShowEarthAxis = v }

// SetRotationSpeed stores the animation speed as given. Negative values are
// accepted and run the animation backwards.
func (c *RenderConfig) SetRotationSpeed(v float64) { c.RotationSpeed = v }

// SetSatSize stores the satellite point-size multiplier.
func (c *RenderConfig) SetSatSize(v int) { c.SatSize = v }

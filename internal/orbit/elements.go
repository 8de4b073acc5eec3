// Package orbit models a Walker-style constellation of circular orbits and
// turns its orbital elements into display-space Cartesian positions.
//
// Positions are expressed in the inertial display frame: +Y is the orbital
// reference pole and distances are kilometres divided by the display scale
// factor. There is no eccentricity and no perturbation model; a satellite's
// argument of latitude advances linearly with simulation time.
package orbit

import (
	"errors"
	"fmt"
	"math"
)

// Elements holds the fixed parameters of the constellation. Angles are in
// degrees; distances are in kilometres.
type Elements struct {
	EarthRadiusKm  float64 `json:"earth_radius_km"`
	AltitudeKm     float64 `json:"altitude_km"`
	InclinationDeg float64 `json:"inclination_deg"`
	Planes         int     `json:"planes"`
	SatsPerPlane   int     `json:"sats_per_plane"`
	PlaneOffsetDeg float64 `json:"plane_offset_deg"` // right ascension step between planes
	SatOffsetDeg   float64 `json:"sat_offset_deg"`   // argument-of-latitude step between satellites in a plane
	AxialTiltDeg   float64 `json:"axial_tilt_deg"`
	ScaleFactor    float64 `json:"scale_factor"` // km per display unit
}

// GLONASS returns the elements of the 24-satellite, 3-plane GLONASS
// constellation.
func GLONASS() Elements {
	return Elements{
		EarthRadiusKm:  6378.137,
		AltitudeKm:     19100,
		InclinationDeg: 64.8,
		Planes:         3,
		SatsPerPlane:   8,
		PlaneOffsetDeg: 120,
		SatOffsetDeg:   45,
		AxialTiltDeg:   23.5,
		ScaleFactor:    100,
	}
}

// NumSatellites is Planes × SatsPerPlane.
func (e Elements) NumSatellites() int {
	return e.Planes * e.SatsPerPlane
}

// OrbitRadius returns the orbit radius in display units.
func (e Elements) OrbitRadius() float64 {
	return (e.EarthRadiusKm + e.AltitudeKm) / e.ScaleFactor
}

// EarthRadius returns the Earth radius in display units.
func (e Elements) EarthRadius() float64 {
	return e.EarthRadiusKm / e.ScaleFactor
}

// AxisHalfLength returns half the length of the drawn rotation axis in
// display units. The axis reaches 1.5 Earth radii past each pole.
func (e Elements) AxisHalfLength() float64 {
	return e.EarthRadiusKm * 1.5 / e.ScaleFactor
}

// Inclination returns the inclination in radians.
func (e Elements) Inclination() float64 {
	return e.InclinationDeg * math.Pi / 180
}

// AxialTilt returns the Earth's axial tilt in radians.
func (e Elements) AxialTilt() float64 {
	return e.AxialTiltDeg * math.Pi / 180
}

// RAAN returns the right ascension of the ascending node of plane in radians,
// normalized to [0, 2π).
func (e Elements) RAAN(plane int) float64 {
	return normalizeDeg(float64(plane)*e.PlaneOffsetDeg) * math.Pi / 180
}

// Validate reports whether the elements describe a drawable constellation.
func (e Elements) Validate() error {
	var errs []error
	if e.Planes <= 0 {
		errs = append(errs, fmt.Errorf("planes must be positive, got %d", e.Planes))
	}
	if e.SatsPerPlane <= 0 {
		errs = append(errs, fmt.Errorf("satellites per plane must be positive, got %d", e.SatsPerPlane))
	}
	if e.EarthRadiusKm <= 0 || e.AltitudeKm <= 0 {
		errs = append(errs, fmt.Errorf("earth radius and altitude must be positive, got %.3f and %.3f km", e.EarthRadiusKm, e.AltitudeKm))
	}
	if e.ScaleFactor <= 0 {
		errs = append(errs, fmt.Errorf("scale factor must be positive, got %.3f", e.ScaleFactor))
	}
	for name, deg := range map[string]float64{
		"inclination":  e.InclinationDeg,
		"plane offset": e.PlaneOffsetDeg,
		"sat offset":   e.SatOffsetDeg,
		"axial tilt":   e.AxialTiltDeg,
	} {
		if deg < 0 || deg >= 360 {
			errs = append(errs, fmt.Errorf("%s must be in [0, 360) degrees, got %.3f", name, deg))
		}
	}
	return errors.Join(errs...)
}

// normalizeDeg folds an angle in degrees into [0, 360).
func normalizeDeg(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

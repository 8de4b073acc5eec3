package orbit

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ArgumentOfLatitude returns the in-plane angle of satellite sat at the given
// simulation time, in radians within [0, 2π).
//
//	u = (sat × SatOffsetDeg + time × speed) mod 360°
func (e Elements) ArgumentOfLatitude(sat int, time, speed float64) float64 {
	return normalizeDeg(float64(sat)*e.SatOffsetDeg+time*speed) * math.Pi / 180
}

// Position returns the display-space position of satellite sat of plane at
// the given simulation time. speed is in degrees of argument of latitude per
// unit of simulation time.
func (e Elements) Position(plane, sat int, time, speed float64) mgl64.Vec3 {
	return e.planePoint(e.RAAN(plane), e.ArgumentOfLatitude(sat, time, speed))
}

// SatellitePositions returns every satellite position at the given time,
// ordered plane-major: index plane*SatsPerPlane + sat.
func (e Elements) SatellitePositions(time, speed float64) []mgl64.Vec3 {
	out := make([]mgl64.Vec3, 0, e.NumSatellites())
	for plane := 0; plane < e.Planes; plane++ {
		raan := e.RAAN(plane)
		for sat := 0; sat < e.SatsPerPlane; sat++ {
			out = append(out, e.planePoint(raan, e.ArgumentOfLatitude(sat, time, speed)))
		}
	}
	return out
}

// OrbitRing samples the full orbit of plane with the given number of
// segments. It returns segments+1 points; the first and the last coincide so
// the ring can be drawn as a closed line strip.
func (e Elements) OrbitRing(plane, segments int) []mgl64.Vec3 {
	if segments < 1 {
		segments = 1
	}
	raan := e.RAAN(plane)
	out := make([]mgl64.Vec3, segments+1)
	for k := 0; k <= segments; k++ {
		u := float64(k) / float64(segments) * 2 * math.Pi
		out[k] = e.planePoint(raan, u)
	}
	return out
}

// OrbitRings concatenates OrbitRing for every plane, plane 0 first.
func (e Elements) OrbitRings(segments int) []mgl64.Vec3 {
	out := make([]mgl64.Vec3, 0, e.Planes*(segments+1))
	for plane := 0; plane < e.Planes; plane++ {
		out = append(out, e.OrbitRing(plane, segments)...)
	}
	return out
}

// planePoint rotates the in-plane point at argument of latitude u into the
// inertial display frame for an orbital plane with node raan.
func (e Elements) planePoint(raan, u float64) mgl64.Vec3 {
	r := e.OrbitRadius()
	cosO, sinO := math.Cos(raan), math.Sin(raan)
	cosU, sinU := math.Cos(u), math.Sin(u)
	inc := e.Inclination()
	cosI, sinI := math.Cos(inc), math.Sin(inc)

	return mgl64.Vec3{
		r * (cosO*cosU - sinO*sinU*cosI),
		r * (sinU * sinI),
		r * (sinO*cosU + cosO*sinU*cosI),
	}
}

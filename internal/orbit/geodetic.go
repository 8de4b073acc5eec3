package orbit

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	satellite "github.com/joshuaferrara/go-satellite"
)

// SubPoint is the ground point under a satellite on the WGS-84 ellipsoid.
type SubPoint struct {
	LatitudeDeg  float64 `json:"lat"`
	LongitudeDeg float64 `json:"lon"`
	AltitudeKm   float64 `json:"alt_km"`
	SpeedKmS     float64 `json:"speed_km_s"` // circular orbital speed at that altitude
}

// Geodetic converts an Earth-fixed display-space position into latitude,
// longitude and altitude. bodyFixed must already be expressed in the Earth's
// own frame (tilt and spin removed): display +Y is the north pole and
// longitude 0 lies along display -X, where the Earth mesh samples the
// middle column of an equirectangular image. Longitude grows towards +Z.
//
// go-satellite's ECIToLLA expects a Z-up frame in kilometres, so display
// (x, y, z) maps to (-x, z, y) before the call; the mapping keeps the frame
// right-handed.
func (e Elements) Geodetic(bodyFixed mgl64.Vec3) SubPoint {
	eci := satellite.Vector3{
		X: -bodyFixed.X() * e.ScaleFactor,
		Y: bodyFixed.Z() * e.ScaleFactor,
		Z: bodyFixed.Y() * e.ScaleFactor,
	}

	alt, speed, ll := satellite.ECIToLLA(eci, 0)

	return SubPoint{
		LatitudeDeg:  ll.Latitude * 180 / math.Pi,
		LongitudeDeg: wrapLongitude(ll.Longitude * 180 / math.Pi),
		AltitudeKm:   alt,
		SpeedKmS:     speed,
	}
}

// wrapLongitude folds degrees into [-180, 180).
func wrapLongitude(deg float64) float64 {
	deg = normalizeDeg(deg + 180)
	return deg - 180
}

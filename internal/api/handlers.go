package api

import (
	"bytes"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Repin-Daniil/glonass-visualization/internal/asset"
	"github.com/Repin-Daniil/glonass-visualization/internal/camera"
	"github.com/Repin-Daniil/glonass-visualization/internal/control"
	"github.com/Repin-Daniil/glonass-visualization/internal/frame"
	"github.com/Repin-Daniil/glonass-visualization/internal/httputil"
	"github.com/Repin-Daniil/glonass-visualization/internal/orbit"
	"github.com/Repin-Daniil/glonass-visualization/internal/scene"
	"github.com/Repin-Daniil/glonass-visualization/internal/telemetry"
)

// TelemetrySource is the headless scheduler's telemetry output.
type TelemetrySource interface {
	Latest() *telemetry.Snapshot
	Ready() bool
}

// ImageSource serves the Earth texture.
type ImageSource interface {
	Get() (*asset.Image, error)
}

type constellationResponse struct {
	Elements     orbit.Elements `json:"elements"`
	Satellites   int            `json:"satellites"`
	OrbitRadius  float64        `json:"orbit_radius"`
	EarthRadius  float64        `json:"earth_radius"`
	RingPoints   int            `json:"ring_points"`
	TimeDilation float64        `json:"time_dilation"`
	Palette      []string       `json:"palette"`
}

func constellationHandler(b *scene.Builder) http.HandlerFunc {
	e := b.Elements()
	palette := make([]string, e.Planes)
	for i := range palette {
		palette[i] = b.Palette().Hex(i)
	}
	resp := constellationResponse{
		Elements:     e,
		Satellites:   e.NumSatellites(),
		OrbitRadius:  e.OrbitRadius(),
		EarthRadius:  e.EarthRadius(),
		RingPoints:   b.Static().RingPoints,
		TimeDilation: frame.TimeDilation,
		Palette:      palette,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		httputil.WriteJSON(w, http.StatusOK, resp)
	}
}

// frameParams are the query parameters of /api/v1/frame.
type frameParams struct {
	timestampMs float64
	aspect      float64
	yaw         float64
	pitch       float64
	zoom        float64
	speed       float64
}

// floatParam parses an optional finite query parameter within [lo, hi].
func floatParam(q url.Values, name string, def, lo, hi float64) (float64, bool) {
	v := q.Get(name)
	if v == "" {
		return def, true
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < lo || f > hi {
		return 0, false
	}
	return f, true
}

func parseFrameParams(q url.Values) (frameParams, string) {
	var p frameParams
	var ok bool

	if p.timestampMs, ok = floatParam(q, "t", 0, 0, math.MaxFloat64); !ok {
		return p, "invalid t parameter, must be a non-negative number of milliseconds"
	}
	if p.aspect, ok = floatParam(q, "aspect", 1, math.SmallestNonzeroFloat64, 100); !ok {
		return p, "invalid aspect parameter, must be in (0, 100]"
	}
	if p.yaw, ok = floatParam(q, "yaw", 0, -math.MaxFloat64, math.MaxFloat64); !ok {
		return p, "invalid yaw parameter, must be a finite number of radians"
	}
	if p.pitch, ok = floatParam(q, "pitch", 0, -math.Pi/2, math.Pi/2); !ok {
		return p, "invalid pitch parameter, must be in [-pi/2, pi/2]"
	}
	if p.zoom, ok = floatParam(q, "zoom", 1, camera.MinZoom, camera.MaxZoom); !ok {
		return p, "invalid zoom parameter, must be in [0.1, 5]"
	}
	if p.speed, ok = floatParam(q, "speed", control.DefaultRotationSpeed, -10, 10); !ok {
		return p, "invalid speed parameter, must be in [-10, 10]"
	}
	return p, ""
}

// frameHandler resolves a single tick of a fresh scheduler. The result is a
// pure function of the query, so clients can render stills without a session.
func frameHandler(logger *slog.Logger, b *scene.Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, msg := parseFrameParams(r.URL.Query())
		if msg != "" {
			httputil.WriteError(w, http.StatusBadRequest, msg)
			return
		}

		sched := frame.NewScheduler(b, nil, frame.Options{
			Backend: "api",
			Aspect:  p.aspect,
			Camera:  camera.NewAt(p.yaw, p.pitch, p.zoom),
		}, logger)
		sched.Apply(control.RotationSpeed(p.speed))

		httputil.WriteJSON(w, http.StatusOK, sched.Advance(p.timestampMs))
	}
}

func latestTelemetryHandler(src TelemetrySource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := src.Latest()
		if snap == nil {
			w.Header().Set("Retry-After", "1")
			httputil.WriteError(w, http.StatusServiceUnavailable, "no telemetry available yet")
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		httputil.WriteJSON(w, http.StatusOK, snap)
	}
}

func earthImageHandler(src ImageSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		img, err := src.Get()
		if err != nil {
			w.Header().Set("Retry-After", "5")
			httputil.WriteError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		w.Header().Set("Content-Type", img.ContentType)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		http.ServeContent(w, r, "earth.jpg", img.LoadedAt, bytes.NewReader(img.Data))
	}
}

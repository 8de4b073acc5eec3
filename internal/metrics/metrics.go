package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glonass_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "glonass_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glonass_frames_total",
			Help: "Frames handed to a renderer, by backend.",
		},
		[]string{"backend"},
	)

	frameBuildSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "glonass_frame_build_seconds",
			Help:    "Time spent resolving one frame.",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		},
	)

	renderErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glonass_render_errors_total",
			Help: "Renderer setup or render failures, by backend.",
		},
		[]string{"backend"},
	)

	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "glonass_sessions_active",
			Help: "Open WebSocket render sessions.",
		},
	)

	sessionConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glonass_session_connections_total",
			Help: "WebSocket session connects and disconnects.",
		},
		[]string{"event"},
	)

	inputEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glonass_input_events_total",
			Help: "Input events received by sessions, by outcome.",
		},
		[]string{"result"},
	)

	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "glonass_streams_active",
			Help: "Open telemetry SSE streams.",
		},
	)

	streamConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glonass_stream_connections_total",
			Help: "Telemetry stream connects and disconnects.",
		},
		[]string{"event"},
	)

	streamMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "glonass_stream_messages_total",
			Help: "SSE data messages written.",
		},
	)

	streamBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "glonass_stream_bytes_total",
			Help: "Bytes written to SSE streams.",
		},
	)

	streamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glonass_stream_errors_total",
			Help: "Telemetry stream errors, by reason.",
		},
		[]string{"reason"},
	)

	assetLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glonass_asset_loads_total",
			Help: "Earth texture load attempts, by source and result.",
		},
		[]string{"source", "result"},
	)

	assetReady = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "glonass_asset_ready",
			Help: "1 when the Earth texture is loaded.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		framesTotal,
		frameBuildSeconds,
		renderErrorsTotal,
		sessionsActive,
		sessionConnectionsTotal,
		inputEventsTotal,
		streamsActive,
		streamConnectionsTotal,
		streamMessagesTotal,
		streamBytesTotal,
		streamErrorsTotal,
		assetLoadsTotal,
		assetReady,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func IncFrames(backend string) { framesTotal.WithLabelValues(backend).Inc() }
func ObserveFrameBuild(d time.Duration) { frameBuildSeconds.Observe(d.Seconds()) }
func IncRenderErrors(backend string) { renderErrorsTotal.WithLabelValues(backend).Inc() }
func IncSessionsActive() { sessionsActive.Inc() }
func DecSessionsActive() { sessionsActive.Dec() }
func IncSessionConnections(event string) { sessionConnectionsTotal.WithLabelValues(event).Inc() }
func IncInputEvents(result string) { inputEventsTotal.WithLabelValues(result).Inc() }
func IncStreamsActive() { streamsActive.Inc() }
func DecStreamsActive() { streamsActive.Dec() }
func IncStreamConnections(event string) { streamConnectionsTotal.WithLabelValues(event).Inc() }
func IncStreamMessages() { streamMessagesTotal.Inc() }
func AddStreamBytes(n int64) { streamBytesTotal.Add(float64(n)) }
func IncStreamErrors(reason string) { streamErrorsTotal.WithLabelValues(reason).Inc() }
func IncAssetLoads(source, result string) { assetLoadsTotal.WithLabelValues(source, result).Inc() }

// SetAssetReady records whether the Earth texture is available.
func SetAssetReady(ready bool) {
	if ready {
		assetReady.Set(1)
		return
	}
	assetReady.Set(0)
}

// knownRoutes are the exact paths served by the API. Anything else is
// collapsed into "other" so scanners cannot blow up label cardinality.
var knownRoutes = map[string]bool{
	"/":                        true,
	"/healthz":                 true,
	"/readyz":                  true,
	"/metrics":                 true,
	"/index.html":              true,
	"/app.js":                  true,
	"/styles.css":              true,
	"/assets/earth.jpg":        true,
	"/api/v1/constellation":    true,
	"/api/v1/frame":            true,
	"/api/v1/telemetry/latest": true,
	"/api/v1/stream/telemetry": true,
	"/api/v1/session":          true,
}

func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE handlers working behind the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack keeps WebSocket upgrades working behind the wrapper.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijacking not supported")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}

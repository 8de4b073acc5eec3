package api

import (
	"bufio"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Repin-Daniil/glonass-visualization/internal/auth"
	"github.com/Repin-Daniil/glonass-visualization/internal/health"
	"github.com/Repin-Daniil/glonass-visualization/internal/metrics"
	"github.com/Repin-Daniil/glonass-visualization/internal/scene"
	"github.com/Repin-Daniil/glonass-visualization/internal/session"
	"github.com/Repin-Daniil/glonass-visualization/internal/stream"
)

// Handlers are the components the server routes to. Any nil field leaves
// its routes unregistered.
type Handlers struct {
	Builder   *scene.Builder
	Telemetry TelemetrySource
	Assets    ImageSource
	Stream    *stream.Handler
	Sessions  *session.Handler
	Web       fs.FS
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(addr string, logger *slog.Logger, authCfg auth.Config, h Handlers) *Server {
	mux := http.NewServeMux()

	var ready func() bool
	if h.Telemetry != nil {
		ready = h.Telemetry.Ready
	}

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(ready))
	mux.Handle("GET /metrics", metrics.Handler())

	if h.Builder != nil {
		mux.HandleFunc("GET /api/v1/constellation", constellationHandler(h.Builder))
		mux.HandleFunc("GET /api/v1/frame", frameHandler(logger, h.Builder))
	}
	if h.Telemetry != nil {
		mux.HandleFunc("GET /api/v1/telemetry/latest", latestTelemetryHandler(h.Telemetry))
	}
	if h.Stream != nil {
		mux.HandleFunc("GET /api/v1/stream/telemetry", h.Stream.HandleTelemetry)
	}
	if h.Sessions != nil {
		mux.HandleFunc("GET /api/v1/session", h.Sessions.HandleSession)
	}
	if h.Assets != nil {
		mux.HandleFunc("GET /assets/earth.jpg", earthImageHandler(h.Assets))
	}
	if h.Web != nil {
		mux.Handle("GET /", http.FileServerFS(h.Web))
	}

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijacking not supported")
	}
	sr.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", r.RemoteAddr,
			)
		})
	}
}

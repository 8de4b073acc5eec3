// Package stream implements Server-Sent Events (SSE) streaming of satellite
// telemetry. Clients connect via GET /api/v1/stream/telemetry and receive the
// ground track of every satellite at a fixed interval.
//
// SSE message format:
//
//	data: {"type":"telemetry","seq":812,"t":13.5,"satellites":[...]}\n\n
//
// First message is always metadata:
//
//	data: {"type":"metadata","satellites":24,"planes":3,"inclination_deg":64.8,...}\n\n
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval to prevent timeout.
// Reconnecting clients receive a fresh metadata message on each connection.
package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/Repin-Daniil/glonass-visualization/internal/frame"
	"github.com/Repin-Daniil/glonass-visualization/internal/httputil"
	"github.com/Repin-Daniil/glonass-visualization/internal/metrics"
	"github.com/Repin-Daniil/glonass-visualization/internal/orbit"
	"github.com/Repin-Daniil/glonass-visualization/internal/telemetry"
)

// Config holds streaming configuration.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	KeepaliveInterval  time.Duration // Keep-alive ping interval (default: 30s).
	TrustProxy         bool          // Read the client IP from proxy headers.
}

// Source supplies the latest telemetry snapshot.
type Source interface {
	Latest() *telemetry.Snapshot
}

// Handler manages SSE streaming connections.
type Handler struct {
	source   Source
	elements orbit.Elements
	config   Config
	limiter  *httputil.ConnLimiter
	logger   *slog.Logger
}

// NewHandler creates a new streaming handler.
func NewHandler(source Source, elements orbit.Elements, config Config, logger *slog.Logger) *Handler {
	if config.MaxConcurrentPerIP <= 0 {
		config.MaxConcurrentPerIP = 10
	}
	if config.KeepaliveInterval <= 0 {
		config.KeepaliveInterval = 30 * time.Second
	}
	return &Handler{
		source:   source,
		elements: elements,
		config:   config,
		limiter:  httputil.NewConnLimiter(config.MaxConcurrentPerIP, 0),
		logger:   logger,
	}
}

// HandleTelemetry serves the SSE telemetry stream.
// GET /api/v1/stream/telemetry?interval=1
func (h *Handler) HandleTelemetry(w http.ResponseWriter, r *http.Request) {
	interval := 1
	if v := r.URL.Query().Get("interval"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 60 {
			httputil.WriteError(w, http.StatusBadRequest, "invalid interval parameter, must be 1-60")
			return
		}
		interval = n
	}

	// Rate limiting: enforce concurrent stream limit per IP.
	ip := httputil.ClientIP(r, h.config.TrustProxy)
	if !h.limiter.Acquire(ip) {
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.Count(ip),
		)
		w.Header().Set("Retry-After", "30")
		httputil.WriteError(w, http.StatusTooManyRequests, "too many concurrent streams")
		return
	}

	metrics.IncStreamConnections("connect")
	metrics.IncStreamsActive()

	startTime := time.Now()
	h.logger.Info("stream connected",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"interval", interval,
	)

	// Cleanup on disconnect: release rate limit slot and update metrics.
	defer func() {
		h.limiter.Release(ip)
		metrics.IncStreamConnections("disconnect")
		metrics.DecStreamsActive()
		h.logger.Info("stream disconnected",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	// Verify flusher support (required for SSE).
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Clear the server's default WriteTimeout for this connection.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := &client{
		w:       w,
		flusher: flusher,
		rc:      rc,
		ip:      ip,
		logger:  h.logger,
	}

	// Jittered retry interval (3-7s) spreads reconnects after a restart.
	retryMs := 3000 + rand.Intn(4000)
	fmt.Fprintf(w, "retry: %d\n\n", retryMs)
	flusher.Flush()

	if err := c.sendJSON(h.metadata()); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error (metadata)", "remote_ip", ip, "error", err)
		return
	}

	ticker := time.NewTicker(time.Duration(interval) * time.Second)
	defer ticker.Stop()

	keepaliveTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer keepaliveTicker.Stop()

	ctx := r.Context()
	var lastSeq uint64

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			snap := h.source.Latest()
			if snap == nil {
				metrics.IncStreamErrors("no_data")
				h.logger.Debug("stream has no telemetry yet", "remote_ip", ip)
				continue
			}
			if snap.Seq == lastSeq {
				continue
			}

			data, err := json.Marshal(telemetryMessage{Type: "telemetry", Snapshot: snap})
			if err != nil {
				metrics.IncStreamErrors("marshal_error")
				h.logger.Warn("stream marshal error", "remote_ip", ip, "error", err)
				continue
			}
			if err := c.sendRaw(data); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
				return
			}
			lastSeq = snap.Seq

			// Reset keepalive since we just sent data.
			keepaliveTicker.Reset(h.config.KeepaliveInterval)

		case <-keepaliveTicker.C:
			if err := c.sendKeepalive(); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream keepalive error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

func (h *Handler) metadata() metadataMessage {
	e := h.elements
	return metadataMessage{
		Type:           "metadata",
		Satellites:     e.NumSatellites(),
		Planes:         e.Planes,
		InclinationDeg: e.InclinationDeg,
		AltitudeKm:     e.AltitudeKm,
		TimeDilation:   frame.TimeDilation,
	}
}

// SSE message payload types.

type metadataMessage struct {
	Type           string  `json:"type"`
	Satellites     int     `json:"satellites"`
	Planes         int     `json:"planes"`
	InclinationDeg float64 `json:"inclination_deg"`
	AltitudeKm     float64 `json:"altitude_km"`
	TimeDilation   float64 `json:"time_dilation"`
}

type telemetryMessage struct {
	Type string `json:"type"`
	*telemetry.Snapshot
}

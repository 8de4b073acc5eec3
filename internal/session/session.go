// Package session serves interactive render sessions over WebSocket. Each
// connection gets its own frame scheduler; the browser is the renderer.
//
// Server → client messages:
//
//	{"type":"setup","session_id":"...","static":{...},"palette":[...],...}
//	{"type":"frame","seq":1,"t":0.016,"draws":[...],...}
//
// Client → server messages are control events:
//
//	{"type":"drag_move","x":412,"y":300}
package session

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/Repin-Daniil/glonass-visualization/internal/camera"
	"github.com/Repin-Daniil/glonass-visualization/internal/control"
	"github.com/Repin-Daniil/glonass-visualization/internal/frame"
	"github.com/Repin-Daniil/glonass-visualization/internal/httputil"
	"github.com/Repin-Daniil/glonass-visualization/internal/metrics"
	"github.com/Repin-Daniil/glonass-visualization/internal/orbit"
	"github.com/Repin-Daniil/glonass-visualization/internal/scene"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
	backend        = "session"
)

// Config holds session settings.
type Config struct {
	MaxConcurrentPerIP int           // Max open sessions per IP (default: 4).
	InputRate          float64       // Input events per second per session.
	InputBurst         int           // Input burst per session.
	KeepaliveInterval  time.Duration // Ping period; a peer silent for 2× this is dropped.
	FrameInterval      time.Duration // Tick period.
	TrustProxy         bool
	TextureURL         string // Where the client fetches the Earth image.
}

// Handler upgrades requests to render sessions.
type Handler struct {
	builder  *scene.Builder
	config   Config
	limiter  *httputil.ConnLimiter
	upgrader websocket.Upgrader
	logger   *slog.Logger

	nextID atomic.Uint64
	mu     sync.Mutex
	active map[string]*frame.Scheduler
}

// NewHandler creates a session handler drawing with builder.
func NewHandler(builder *scene.Builder, config Config, logger *slog.Logger) *Handler {
	if config.MaxConcurrentPerIP <= 0 {
		config.MaxConcurrentPerIP = 4
	}
	if config.InputRate <= 0 {
		config.InputRate = 120
	}
	if config.InputBurst <= 0 {
		config.InputBurst = 60
	}
	if config.KeepaliveInterval <= 0 {
		config.KeepaliveInterval = 30 * time.Second
	}
	if config.FrameInterval <= 0 {
		config.FrameInterval = 16 * time.Millisecond
	}
	if config.TextureURL == "" {
		config.TextureURL = "/assets/earth.jpg"
	}

	return &Handler{
		builder: builder,
		config:  config,
		limiter: httputil.NewConnLimiter(config.MaxConcurrentPerIP, 0),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 32 * 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
		active: make(map[string]*frame.Scheduler),
	}
}

// HandleSession serves GET /api/v1/session. Optional query parameter
// aspect sets the initial viewport ratio before the first resize event.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	aspect := 1.0
	if v := r.URL.Query().Get("aspect"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 || f > 100 {
			httputil.WriteError(w, http.StatusBadRequest, "invalid aspect parameter, must be in (0, 100]")
			return
		}
		aspect = f
	}

	ip := httputil.ClientIP(r, h.config.TrustProxy)
	if !h.limiter.Acquire(ip) {
		metrics.IncSessionConnections("rejected")
		h.logger.Warn("session limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.Count(ip),
		)
		w.Header().Set("Retry-After", "30")
		httputil.WriteError(w, http.StatusTooManyRequests, "too many concurrent sessions")
		return
	}
	defer h.limiter.Release(ip)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		h.logger.Warn("websocket upgrade failed", "remote_ip", ip, "error", err)
		return
	}
	defer conn.Close()

	id := strconv.FormatUint(h.nextID.Add(1), 10)
	logger := h.logger.With("session_id", id, "remote_ip", ip)

	renderer := &wsRenderer{
		conn:       conn,
		id:         id,
		builder:    h.builder,
		textureURL: h.config.TextureURL,
	}
	sched := frame.NewScheduler(h.builder, renderer, frame.Options{
		Backend: backend,
		Aspect:  aspect,
		Camera:  camera.New(),
	}, logger)
	renderer.sched = sched

	h.register(id, sched)
	defer h.unregister(id)

	metrics.IncSessionConnections("connect")
	metrics.IncSessionsActive()
	start := time.Now()
	logger.Info("session connected", "user_agent", r.Header.Get("User-Agent"), "aspect", aspect)

	defer func() {
		metrics.IncSessionConnections("disconnect")
		metrics.DecSessionsActive()
		logger.Info("session disconnected", "duration_seconds", int(time.Since(start).Seconds()))
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer sched.Stop()
		h.readLoop(conn, sched, logger)
	}()
	go func() {
		defer wg.Done()
		h.pingLoop(ctx, conn, logger)
	}()

	if err := sched.Run(ctx, h.config.FrameInterval); err != nil {
		logger.Debug("session frame loop ended", "error", err)
	}
	cancel()

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	conn.Close()
	wg.Wait()
}

// readLoop decodes control events until the peer goes away. Events beyond
// the per-session rate are dropped.
func (h *Handler) readLoop(conn *websocket.Conn, sched *frame.Scheduler, logger *slog.Logger) {
	pongWait := 2 * h.config.KeepaliveInterval
	limiter := rate.NewLimiter(rate.Limit(h.config.InputRate), h.config.InputBurst)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("session read error", "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		if !limiter.Allow() {
			metrics.IncInputEvents("rate_limited")
			continue
		}
		ev, err := control.Decode(data)
		if err != nil {
			metrics.IncInputEvents("invalid")
			logger.Debug("ignoring invalid input event", "error", err)
			continue
		}
		if !sched.Submit(ev) {
			metrics.IncInputEvents("dropped")
			continue
		}
		metrics.IncInputEvents("accepted")
	}
}

func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn, logger *slog.Logger) {
	ticker := time.NewTicker(h.config.KeepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				logger.Debug("session ping failed", "error", err)
				return
			}
		}
	}
}

func (h *Handler) register(id string, s *frame.Scheduler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.active[id] = s
}

func (h *Handler) unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.active, id)
}

// Active returns the number of open sessions.
func (h *Handler) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.active)
}

// Shutdown stops every open session. Hijacked connections are not closed by
// http.Server.Shutdown, so the server registers this with RegisterOnShutdown.
func (h *Handler) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.active {
		s.Stop()
	}
}

// wsRenderer is the frame.Renderer for one WebSocket. Only the scheduler
// goroutine writes data frames.
type wsRenderer struct {
	conn       *websocket.Conn
	id         string
	builder    *scene.Builder
	sched      *frame.Scheduler
	textureURL string
}

type setupMessage struct {
	Type       string               `json:"type"`
	SessionID  string               `json:"session_id"`
	Elements   orbit.Elements       `json:"elements"`
	Static     *scene.Static        `json:"static"`
	Palette    []string             `json:"palette"`
	Config     control.RenderConfig `json:"config"`
	Camera     camera.State         `json:"camera"`
	TextureURL string               `json:"texture_url"`
}

type frameMessage struct {
	Type string `json:"type"`
	*scene.Frame
}

func (r *wsRenderer) Setup(static *scene.Static) error {
	palette := make([]string, static.Planes)
	for i := range palette {
		palette[i] = r.builder.Palette().Hex(i)
	}
	return r.write(setupMessage{
		Type:       "setup",
		SessionID:  r.id,
		Elements:   r.builder.Elements(),
		Static:     static,
		Palette:    palette,
		Config:     r.sched.Config(),
		Camera:     r.sched.Camera(),
		TextureURL: r.textureURL,
	})
}

func (r *wsRenderer) Render(f *scene.Frame) error {
	return r.write(frameMessage{Type: "frame", Frame: f})
}

func (r *wsRenderer) write(v any) error {
	r.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return r.conn.WriteJSON(v)
}

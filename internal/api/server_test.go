package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/Repin-Daniil/glonass-visualization/internal/asset"
	"github.com/Repin-Daniil/glonass-visualization/internal/auth"
	"github.com/Repin-Daniil/glonass-visualization/internal/orbit"
	"github.com/Repin-Daniil/glonass-visualization/internal/scene"
	"github.com/Repin-Daniil/glonass-visualization/internal/telemetry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

type fakeTelemetry struct {
	snap *telemetry.Snapshot
}

func (f *fakeTelemetry) Latest() *telemetry.Snapshot { return f.snap }
func (f *fakeTelemetry) Ready() bool                 { return f.snap != nil }

type fakeImages struct {
	img *asset.Image
}

func (f *fakeImages) Get() (*asset.Image, error) {
	if f.img == nil {
		return nil, asset.ErrNotLoaded
	}
	return f.img, nil
}

func newTestServer(t *testing.T, authCfg auth.Config) (*Server, *fakeTelemetry, *fakeImages) {
	t.Helper()
	e := orbit.GLONASS()
	static, err := scene.NewStatic(e, 200, 50)
	if err != nil {
		t.Fatalf("NewStatic: %v", err)
	}
	tel := &fakeTelemetry{}
	imgs := &fakeImages{}
	srv := NewServer(":0", testLogger(), authCfg, Handlers{
		Builder:   scene.NewBuilder(e, static, imgsReady{imgs}),
		Telemetry: tel,
		Assets:    imgs,
		Web: fstest.MapFS{
			"index.html": {Data: []byte("<!doctype html><title>GLONASS</title>")},
			"app.js":     {Data: []byte("// app")},
		},
	})
	return srv, tel, imgs
}

type imgsReady struct{ f *fakeImages }

func (r imgsReady) Ready() bool { return r.f.img != nil }

func get(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", target, nil))
	return w
}

func TestProbes(t *testing.T) {
	srv, tel, _ := newTestServer(t, auth.Config{})

	if w := get(t, srv, "/healthz"); w.Code != http.StatusOK {
		t.Errorf("healthz = %d", w.Code)
	}
	if w := get(t, srv, "/readyz"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz before first frame = %d, want 503", w.Code)
	}
	tel.snap = &telemetry.Snapshot{Seq: 1}
	if w := get(t, srv, "/readyz"); w.Code != http.StatusOK {
		t.Errorf("readyz after first frame = %d, want 200", w.Code)
	}
	if w := get(t, srv, "/metrics"); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "glonass_") {
		t.Errorf("metrics = %d", w.Code)
	}
}

func TestConstellation(t *testing.T) {
	srv, _, _ := newTestServer(t, auth.Config{})
	w := get(t, srv, "/api/v1/constellation")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp constellationResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Satellites != 24 || resp.Elements.Planes != 3 || resp.RingPoints != 201 {
		t.Errorf("resp = %+v", resp)
	}
	if !scalar.EqualWithinAbs(resp.OrbitRadius, 254.78137, 1e-9) {
		t.Errorf("orbit radius = %v", resp.OrbitRadius)
	}
	if len(resp.Palette) != 3 || resp.TimeDilation != 30 {
		t.Errorf("palette %v, time dilation %v", resp.Palette, resp.TimeDilation)
	}
}

type frameBody struct {
	Seq           uint64              `json:"seq"`
	Time          float64             `json:"t"`
	EarthRotation float64             `json:"earth_rotation"`
	Aspect        float64             `json:"aspect"`
	Satellites    []float32           `json:"satellites"`
	Draws         []scene.DrawRequest `json:"draws"`
	Info          scene.Info          `json:"info"`
}

func TestFrame(t *testing.T) {
	srv, _, _ := newTestServer(t, auth.Config{})
	w := get(t, srv, "/api/v1/frame?t=1000&aspect=1.5&zoom=2")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var f frameBody
	if err := json.NewDecoder(w.Body).Decode(&f); err != nil {
		t.Fatal(err)
	}
	if f.Seq != 1 || f.Time != 1 || f.Aspect != 1.5 {
		t.Errorf("seq %d, t %v, aspect %v", f.Seq, f.Time, f.Aspect)
	}
	if !scalar.EqualWithinAbs(f.EarthRotation, 0.05/50, 1e-12) {
		t.Errorf("earth rotation = %v, want 0.001", f.EarthRotation)
	}
	if len(f.Satellites) != 24*3 || len(f.Draws) != 8 {
		t.Errorf("satellites %d floats, %d draws", len(f.Satellites), len(f.Draws))
	}
	if f.Info.ZoomLevel != 2 {
		t.Errorf("zoom = %v, want 2", f.Info.ZoomLevel)
	}
	// Without a loaded image the Earth uses the placeholder color.
	if f.Draws[0].Object != scene.ObjectEarth || f.Draws[0].Textured || f.Draws[0].Color == nil {
		t.Errorf("earth draw = %+v", f.Draws[0])
	}
}

func TestFrameIsDeterministic(t *testing.T) {
	srv, _, _ := newTestServer(t, auth.Config{})
	const target = "/api/v1/frame?t=12345&yaw=0.3&pitch=-0.2&speed=0.2"
	a := get(t, srv, target).Body.String()
	b := get(t, srv, target).Body.String()
	if a != b {
		t.Error("identical queries produced different frames")
	}
}

func TestFrameBadParams(t *testing.T) {
	srv, _, _ := newTestServer(t, auth.Config{})

	tests := []struct {
		name  string
		query string
	}{
		{"negative time", "?t=-1"},
		{"non-numeric time", "?t=soon"},
		{"zero aspect", "?aspect=0"},
		{"huge aspect", "?aspect=1000"},
		{"pitch past pole", "?pitch=2"},
		{"zoom too far", "?zoom=9"},
		{"zoom too close", "?zoom=0.01"},
		{"infinite yaw", "?yaw=Inf"},
		{"nan speed", "?speed=NaN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, srv, "/api/v1/frame"+tt.query)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			var resp map[string]any
			json.NewDecoder(w.Body).Decode(&resp)
			if resp["error"] == nil {
				t.Error("expected error field in response")
			}
		})
	}
}

func TestLatestTelemetry(t *testing.T) {
	srv, tel, _ := newTestServer(t, auth.Config{})

	if w := get(t, srv, "/api/v1/telemetry/latest"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status without data = %d, want 503", w.Code)
	}

	tel.snap = &telemetry.Snapshot{Seq: 7, Time: 3.5}
	w := get(t, srv, "/api/v1/telemetry/latest")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var snap telemetry.Snapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.Seq != 7 || snap.Time != 3.5 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestEarthImage(t *testing.T) {
	srv, _, imgs := newTestServer(t, auth.Config{})

	if w := get(t, srv, "/assets/earth.jpg"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status before load = %d, want 503", w.Code)
	}

	imgs.img = &asset.Image{
		Data:        []byte("\x89PNG fake"),
		ContentType: "image/png",
		LoadedAt:    time.Now(),
	}
	w := get(t, srv, "/assets/earth.jpg")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Body.String() != "\x89PNG fake" {
		t.Errorf("body = %q", w.Body.String())
	}

	// The builder now reports the texture as ready.
	f := get(t, srv, "/api/v1/frame")
	var body frameBody
	json.NewDecoder(f.Body).Decode(&body)
	if len(body.Draws) == 0 || !body.Draws[0].Textured {
		t.Error("earth should be textured once the image is loaded")
	}
}

func TestWebClient(t *testing.T) {
	srv, _, _ := newTestServer(t, auth.Config{})
	w := get(t, srv, "/")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "GLONASS") {
		t.Errorf("index = %d %q", w.Code, w.Body.String())
	}
	if w := get(t, srv, "/app.js"); w.Code != http.StatusOK {
		t.Errorf("app.js = %d", w.Code)
	}
}

func TestAuthProtectsAPI(t *testing.T) {
	srv, _, _ := newTestServer(t, auth.Config{Enabled: true, Token: "secret"})

	if w := get(t, srv, "/api/v1/frame"); w.Code != http.StatusUnauthorized {
		t.Errorf("frame without token = %d, want 401", w.Code)
	}
	if w := get(t, srv, "/api/v1/frame?access_token=secret"); w.Code != http.StatusOK {
		t.Errorf("frame with token = %d, want 200", w.Code)
	}
	if w := get(t, srv, "/api/v1/constellation"); w.Code != http.StatusOK {
		t.Errorf("constellation = %d, want 200", w.Code)
	}
}

func TestStatusRecorderKeepsFlusher(t *testing.T) {
	var _ http.Flusher = &statusRecorder{}
	var _ http.Hijacker = &statusRecorder{}

	sr := &statusRecorder{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
	if http.NewResponseController(sr).Flush() != nil {
		t.Error("flush through the recorder failed")
	}
}

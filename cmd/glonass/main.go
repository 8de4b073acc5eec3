package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Repin-Daniil/glonass-visualization/internal/api"
	"github.com/Repin-Daniil/glonass-visualization/internal/asset"
	"github.com/Repin-Daniil/glonass-visualization/internal/config"
	"github.com/Repin-Daniil/glonass-visualization/internal/frame"
	"github.com/Repin-Daniil/glonass-visualization/internal/orbit"
	"github.com/Repin-Daniil/glonass-visualization/internal/scene"
	"github.com/Repin-Daniil/glonass-visualization/internal/session"
	"github.com/Repin-Daniil/glonass-visualization/internal/stream"
	"github.com/Repin-Daniil/glonass-visualization/internal/telemetry"
	"github.com/Repin-Daniil/glonass-visualization/web"
)

func main() {
	level := new(slog.LevelVar)
	level.Set(slog.LevelDebug)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	level.Set(cfg.LogLevel)

	elements := orbit.GLONASS()
	static, err := scene.NewStatic(elements, cfg.RingSegments, cfg.SphereBands)
	if err != nil {
		logger.Error("building static geometry", "error", err)
		os.Exit(1)
	}
	logger.Info("static geometry built",
		"earth_vertices", static.Earth.VertexCount(),
		"earth_indices", len(static.Earth.Indices),
		"ring_points", static.RingPoints,
		"planes", static.Planes,
	)

	assets := asset.NewProvider(cfg.Asset, logger)
	builder := scene.NewBuilder(elements, static, assets)

	// The headless scheduler feeds telemetry, the SSE stream and readiness.
	recorder := telemetry.NewRecorder(builder)
	headless := frame.NewScheduler(builder, recorder, frame.Options{Backend: "headless"}, logger)

	streamHandler := stream.NewHandler(recorder, elements, cfg.Stream, logger)
	sessions := session.NewHandler(builder, cfg.Session, logger)

	srv := api.NewServer(cfg.HTTPAddr, logger, cfg.Auth, api.Handlers{
		Builder:   builder,
		Telemetry: recorder,
		Assets:    assets,
		Stream:    streamHandler,
		Sessions:  sessions,
		Web:       web.Content,
	})
	// Hijacked WebSocket connections are not closed by Shutdown.
	srv.HTTPServer().RegisterOnShutdown(sessions.Shutdown)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	assets.Start(ctx)

	go func() {
		if err := headless.Run(ctx, cfg.TelemetryInterval); err != nil {
			logger.Error("headless scheduler stopped", "error", err)
		}
	}()

	go func() {
		logger.Info("starting server", "addr", cfg.HTTPAddr, "auth_enabled", cfg.Auth.Enabled, "asset_fetch_enabled", cfg.Asset.EnableFetch)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	headless.Stop()

	logger.Info("server stopped")
}

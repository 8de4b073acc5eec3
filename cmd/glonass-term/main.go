// Command glonass-term draws the constellation in a terminal.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/Repin-Daniil/glonass-visualization/internal/asset"
	"github.com/Repin-Daniil/glonass-visualization/internal/config"
	"github.com/Repin-Daniil/glonass-visualization/internal/frame"
	"github.com/Repin-Daniil/glonass-visualization/internal/orbit"
	"github.com/Repin-Daniil/glonass-visualization/internal/scene"
	"github.com/Repin-Daniil/glonass-visualization/internal/termview"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "glonass-term:", err)
		os.Exit(1)
	}
}

func run() error {
	// The screen owns stdout, so config warnings are buffered until the log
	// file is known.
	var early bytes.Buffer
	cfg, err := config.Load(slog.New(slog.NewJSONHandler(&early, nil)))
	if err != nil {
		return err
	}

	logPath := cfg.TermLog
	if logPath == "" {
		logPath = os.DevNull
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()
	io.Copy(logFile, &early)

	logger := slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: cfg.LogLevel}))

	elements := orbit.GLONASS()
	static, err := scene.NewStatic(elements, cfg.RingSegments, cfg.SphereBands)
	if err != nil {
		return fmt.Errorf("building static geometry: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	assets := asset.NewProvider(cfg.Asset, logger)
	assets.Start(ctx)
	builder := scene.NewBuilder(elements, static, assets)

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("creating screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("initializing screen: %w", err)
	}
	screen.EnableMouse()
	screen.HideCursor()

	w, h := screen.Size()
	sched := frame.NewScheduler(builder, termview.NewRenderer(screen, assets, logger), frame.Options{
		Backend: "terminal",
		Aspect:  float64(w) / float64(2*h),
	}, logger)

	go termview.Pump(screen, termview.NewInput(), sched)

	logger.Info("terminal view started", "width", w, "height", h)
	err = sched.Run(ctx, cfg.FrameInterval)
	screen.Fini()
	logger.Info("terminal view stopped")
	return err
}

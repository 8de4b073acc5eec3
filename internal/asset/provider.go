// Package asset supplies the Earth surface image. It loads the newest cached
// copy from disk or downloads one, and publishes it once decoded. Until then
// the scene draws the Earth in a placeholder color.
package asset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/Repin-Daniil/glonass-visualization/internal/metrics"
)

// ErrNotLoaded is returned while no image is available.
var ErrNotLoaded = errors.New("earth image not loaded")

// Config holds asset settings.
type Config struct {
	EnableFetch bool
	SourceURL   string
	CacheDir    string
	MaxFiles    int
	Timeout     time.Duration
}

// Image is a validated Earth texture.
type Image struct {
	Data        []byte
	ContentType string
	Format      string
	Width       int
	Height      int
	Source      string // "cache" or "remote"
	LoadedAt    time.Time
}

// Provider loads the Earth image in the background and serves it once ready.
type Provider struct {
	config  Config
	fetcher *Fetcher
	cache   *Cache
	logger  *slog.Logger

	image atomic.Pointer[Image]
	done  chan struct{}
}

// NewProvider creates a provider. Nothing is loaded until Start or Load.
func NewProvider(cfg Config, logger *slog.Logger) *Provider {
	return &Provider{
		config:  cfg,
		fetcher: NewFetcher(cfg.SourceURL, cfg.Timeout, logger),
		cache:   NewCache(cfg.CacheDir, cfg.MaxFiles),
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Start loads the image on a new goroutine. Failures are logged and leave the
// placeholder in place.
func (p *Provider) Start(ctx context.Context) {
	go func() {
		defer close(p.done)
		if err := p.Load(ctx); err != nil {
			p.logger.Warn("earth image unavailable, using placeholder",
				"component", "asset",
				"error", err,
			)
		}
	}()
}

// Done is closed when the goroutine started by Start has finished.
func (p *Provider) Done() <-chan struct{} {
	return p.done
}

// Load tries the disk cache first and falls back to a download when fetching
// is enabled. A downloaded image is written back to the cache.
func (p *Provider) Load(ctx context.Context) error {
	data, ts, err := p.cache.LoadLatest()
	if err == nil {
		img, derr := decode(data, "cache", ts)
		if derr == nil {
			metrics.IncAssetLoads("cache", "success")
			p.publish(img)
			return nil
		}
		metrics.IncAssetLoads("cache", "invalid")
		p.logger.Warn("cached earth image is not a valid image", "component", "asset", "error", derr)
	} else if !errors.Is(err, ErrCacheEmpty) {
		p.logger.Warn("reading earth image cache", "component", "asset", "error", err)
	}

	if !p.config.EnableFetch {
		return fmt.Errorf("no cached image and fetching is disabled: %w", ErrNotLoaded)
	}

	data, err = p.fetcher.Fetch(ctx)
	if err != nil {
		metrics.IncAssetLoads("remote", "error")
		return err
	}
	now := time.Now()
	img, err := decode(data, "remote", now)
	if err != nil {
		metrics.IncAssetLoads("remote", "invalid")
		return fmt.Errorf("decoding %s: %w", p.fetcher.SourceURL(), err)
	}
	metrics.IncAssetLoads("remote", "success")
	p.publish(img)

	if err := p.cache.Write(data, now); err != nil {
		p.logger.Warn("failed to cache earth image", "component", "asset", "error", err)
	}
	return nil
}

// Ready reports whether an image has been published.
func (p *Provider) Ready() bool {
	return p.image.Load() != nil
}

// Get returns the current image or ErrNotLoaded.
func (p *Provider) Get() (*Image, error) {
	img := p.image.Load()
	if img == nil {
		return nil, ErrNotLoaded
	}
	return img, nil
}

func (p *Provider) publish(img *Image) {
	p.image.Store(img)
	metrics.SetAssetReady(true)
	p.logger.Info("earth image loaded",
		"component", "asset",
		"source", img.Source,
		"format", img.Format,
		"width", img.Width,
		"height", img.Height,
		"bytes", len(img.Data),
	)
}

// decode validates data as a JPEG or PNG image.
func decode(data []byte, source string, ts time.Time) (*Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("image has empty bounds %dx%d", cfg.Width, cfg.Height)
	}
	return &Image{
		Data:        data,
		ContentType: http.DetectContentType(data),
		Format:      format,
		Width:       cfg.Width,
		Height:      cfg.Height,
		Source:      source,
		LoadedAt:    ts,
	}, nil
}

package server

import (
	"errors"
	"log/slog"
	"time"

	"github.com/pointscape/pointscape/api/handlers"
	"github.com/pointscape/pointscape/pkg/blob"
	"github.com/pointscape/pointscape/pkg/ingest"
	"github.com/pointscape/pointscape/pkg/registry"
)

type Config struct {
	Logger            *slog.Logger
	ListenAddr        string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	VersionInfo       handlers.VersionInfo

	Registry registry.Registry
	Blobs    blob.Store
	Limits   ingest.Limits

	// AllowedOrigins configures CORS for the browser front-end. Empty means
	// same-origin only.
	AllowedOrigins []string

	// UploadsPerMinute bounds upload requests per client IP. Zero disables
	// the limiter.
	UploadsPerMinute int

	// Ready reports whether dependencies are healthy; gates /readyz.
	Ready func() bool
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.ListenAddr == "" {
		return errors.New("listen addr is required")
	}
	if cfg.Registry == nil {
		return errors.New("registry is required")
	}
	if cfg.Blobs == nil {
		return errors.New("blob store is required")
	}
	if cfg.ReadHeaderTimeout == 0 {
		cfg.ReadHeaderTimeout = 10 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	return nil
}

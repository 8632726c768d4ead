package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/pointscape/pointscape/api/config"
	"github.com/pointscape/pointscape/api/handlers"
	"github.com/pointscape/pointscape/api/metrics"
	"github.com/pointscape/pointscape/api/server"
	"github.com/pointscape/pointscape/pkg/blob"
	"github.com/pointscape/pointscape/pkg/ingest"
	"github.com/pointscape/pointscape/pkg/registry"
	"github.com/pointscape/pointscape/utils/pkg/logger"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		verbose          = pflag.Bool("verbose", false, "Enable verbose (debug) logging")
		listenAddr       = pflag.String("listen-addr", "0.0.0.0:8080", "Address to listen on for API requests")
		metricsAddr      = pflag.String("metrics-addr", "0.0.0.0:0", "Address to listen on for prometheus metrics; port 0 picks a random port, empty disables the listener")
		shutdownTimeout  = pflag.Duration("shutdown-timeout", 30*time.Second, "Maximum time to wait for in-flight requests during shutdown")
		maxUploadBytes   = pflag.Int("max-upload-bytes", ingest.DefaultMaxBytes, "Maximum accepted upload size in bytes")
		maxUploadRows    = pflag.Int("max-upload-rows", ingest.DefaultMaxRows, "Maximum records one upload may produce")
		uploadsPerMinute = pflag.Int("uploads-per-minute", 30, "Per-IP upload rate limit (0 disables)")
		cacheEnabled     = pflag.Bool("cache", true, "Enable the in-process registry read cache")
		cacheTTL         = pflag.Duration("cache-ttl", registry.DefaultTTL, "Registry cache entry TTL")
		blobBackend      = pflag.String("blob-backend", "local", "Blob storage backend: 'local' or 's3'")
		blobDir          = pflag.String("blob-dir", "./data/uploads", "Directory for local blob storage")
	)
	pflag.Parse()

	// Local development convenience; missing .env is fine.
	_ = godotenv.Load()

	log := logger.New(*verbose)

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         dsn,
			Environment: os.Getenv("SENTRY_ENVIRONMENT"),
			Release:     version,
		}); err != nil {
			log.Warn("sentry init failed, continuing without it", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pgCfg, err := config.LoadPgConfig()
	if err != nil {
		return err
	}
	pool, err := config.NewPgPool(ctx, log, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	var reg registry.Registry = registry.NewPostgres(pool)
	reg = registry.NewCached(reg, registry.CacheConfig{
		Enabled: *cacheEnabled,
		TTL:     *cacheTTL,
		Clock:   clockwork.NewRealClock(),
		OnLookup: func(_ string, hit bool) {
			metrics.RecordCacheLookup(hit)
		},
	})

	var blobs blob.Store
	switch *blobBackend {
	case "local":
		blobs, err = blob.NewLocal(*blobDir)
	case "s3":
		bucket := os.Getenv("BLOB_S3_BUCKET")
		if bucket == "" {
			return fmt.Errorf("BLOB_S3_BUCKET is required for the s3 blob backend")
		}
		blobs, err = blob.NewS3(ctx, bucket, os.Getenv("BLOB_S3_PREFIX"))
	default:
		return fmt.Errorf("unknown blob backend %q", *blobBackend)
	}
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Logger:           log,
		ListenAddr:       *listenAddr,
		ShutdownTimeout:  *shutdownTimeout,
		VersionInfo:      handlers.VersionInfo{Version: version, Commit: commit, Date: date},
		Registry:         reg,
		Blobs:            blobs,
		Limits:           ingest.Limits{MaxBytes: *maxUploadBytes, MaxRows: *maxUploadRows},
		AllowedOrigins:   allowedOrigins(),
		UploadsPerMinute: *uploadsPerMinute,
		Ready: func() bool {
			pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
			defer pingCancel()
			return pool.Ping(pingCtx) == nil
		},
	})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if *metricsAddr != "" {
		metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
		listener, err := net.Listen("tcp", *metricsAddr)
		if err != nil {
			return fmt.Errorf("failed to start metrics listener: %w", err)
		}
		log.Info("prometheus metrics server listening", "address", listener.Addr().String())
		g.Go(func() error {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			metricsSrv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-ctx.Done()
				_ = metricsSrv.Close()
			}()
			if err := metricsSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		return srv.Run(ctx)
	})

	return g.Wait()
}

func allowedOrigins() []string {
	raw := os.Getenv("CORS_ALLOWED_ORIGINS")
	if raw == "" {
		return nil
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ManuGH/vidshelf/internal/api"
	"github.com/ManuGH/vidshelf/internal/api/middleware"
	"github.com/ManuGH/vidshelf/internal/audit"
	"github.com/ManuGH/vidshelf/internal/auth"
	"github.com/ManuGH/vidshelf/internal/blob"
	"github.com/ManuGH/vidshelf/internal/catalog"
	"github.com/ManuGH/vidshelf/internal/collections"
	"github.com/ManuGH/vidshelf/internal/comments"
	"github.com/ManuGH/vidshelf/internal/config"
	xglog "github.com/ManuGH/vidshelf/internal/log"
	"github.com/ManuGH/vidshelf/internal/probe"
	"github.com/ManuGH/vidshelf/internal/record"
	"github.com/ManuGH/vidshelf/internal/telemetry"
	"github.com/ManuGH/vidshelf/internal/transient"
	"github.com/ManuGH/vidshelf/internal/version"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 10 * time.Second

// app owns every long-lived component of the daemon.
type app struct {
	logger   zerolog.Logger
	cfg      config.Config
	holder   *config.Holder
	provider *telemetry.Provider
	records  *record.Store
	catalog  *catalog.Catalog
	server   *http.Server
	audit    *audit.Logger

	reloadSignal os.Signal
}

// newApp opens the storage tiers, initialises the catalog and builds the
// HTTP server. The catalog is ready for queries when it returns.
func newApp(ctx context.Context, cfg config.Config, loader *config.Loader) (*app, error) {
	provider, err := telemetry.NewProvider(ctx, cfg.Tracing(version.Version))
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	records, err := record.Open(cfg.RecordTier())
	if err != nil {
		_ = provider.Shutdown(context.WithoutCancel(ctx))
		return nil, err
	}

	refs := transient.NewRegistry()
	cm := comments.NewStore(records)
	cat := catalog.New(catalog.Options{
		Records:   records,
		Comments:  cm,
		Refs:      refs,
		OpenBlobs: blob.NewOpener(cfg.BlobTier()),
		Prober:    newProber(cfg.Probe),
		Assets: catalog.Assets{
			Dir:        cfg.Assets.Dir,
			Files:      cfg.Assets.Files,
			Extensions: cfg.Assets.Extensions,
			URLPrefix:  cfg.Assets.URLPrefix,
			Thumbnail:  cfg.Assets.Thumbnail,
		},
		SeedStats:     cfg.SeedStatsEnabled(),
		SystemChannel: cfg.Catalog.SystemChannel,
	})
	if _, err := cat.Init(ctx); err != nil {
		_ = records.Close()
		_ = provider.Shutdown(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("catalog init: %w", err)
	}

	auditLog := audit.NewLogger()
	srv := api.New(api.Config{
		Catalog:      cat,
		Collections:  collections.NewStore(records, cat, cfg.Collections.HistoryLimit),
		Comments:     cm,
		Users:        auth.NewStaticSource(cfg.Accounts()),
		Refs:         refs,
		AssetsDir:    cfg.Assets.Dir,
		AssetsPrefix: cfg.Assets.URLPrefix,
		RateLimit: middleware.RateLimitConfig{
			RequestLimit: cfg.RateLimit.Requests,
			WindowSize:   cfg.RateLimit.Window,
		},
		Version: version.Version,
		Tracing: cfg.Telemetry.Enabled,
		Audit:   auditLog,
	})

	return &app{
		logger:   xglog.WithComponent("daemon"),
		cfg:      cfg,
		holder:   config.NewHolder(cfg, loader),
		provider: provider,
		records:  records,
		catalog:  cat,
		audit:    auditLog,
		server: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		reloadSignal: syscall.SIGHUP,
	}, nil
}

// newProber builds the ffprobe prober, rate limited when configured.
func newProber(cfg config.ProbeConfig) *probe.FFprobe {
	p := &probe.FFprobe{Bin: cfg.FFprobeBin, Timeout: cfg.Timeout}
	if cfg.Rate > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		p.Limiter = rate.NewLimiter(rate.Limit(cfg.Rate), burst)
	}
	return p
}

// Run serves until ctx is cancelled, then shuts the server down and releases
// the catalog and storage tiers.
func (r *app) Run(ctx context.Context) error {
	r.holder.OnChange(config.ApplyLogLevel)
	r.holder.OnChange(func(old, next config.Config) {
		r.audit.ConfigReload("system", "success", map[string]string{
			"log_level":       next.LogLevel,
			"prev_log_level":  old.LogLevel,
			"rate_limit_reqs": fmt.Sprint(next.RateLimit.Requests),
		})
	})

	g, gctx := errgroup.WithContext(ctx)

	// config watcher is best effort
	if err := r.holder.Watch(gctx); err != nil {
		r.logger.Warn().Err(err).Str("event", "config.watcher_start_failed").Msg("failed to start config watcher")
	}

	if r.reloadSignal != nil {
		g.Go(func() error {
			hup := make(chan os.Signal, 1)
			signal.Notify(hup, r.reloadSignal)
			defer signal.Stop(hup)
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-hup:
					r.logger.Info().
						Str("event", "config.reload_signal").
						Str("signal", r.reloadSignal.String()).
						Msg("received reload signal, reloading config")
					if err := r.holder.Reload(gctx); err != nil {
						r.logger.Warn().Err(err).Str("event", "config.reload_failed").Msg("config reload failed")
					}
				}
			}
		})
	}

	g.Go(func() error {
		r.catalog.Run(gctx, r.cfg.Catalog.FlushInterval)
		return nil
	})

	g.Go(func() error {
		r.logger.Info().Str("event", "server.listening").Str("addr", r.server.Addr).Msg("api server listening")
		if err := r.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := r.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api server shutdown: %w", err)
		}
		return nil
	})

	runErr := g.Wait()
	return errors.Join(runErr, r.close())
}

func (r *app) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := r.catalog.Close(ctx)
	if cerr := r.records.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("close record tier: %w", cerr))
	}
	if perr := r.provider.Shutdown(ctx); perr != nil {
		err = errors.Join(err, perr)
	}
	r.logger.Info().Str("event", "shutdown.complete").Msg("daemon stopped")
	return err
}

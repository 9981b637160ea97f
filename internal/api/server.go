// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api exposes the catalog over a local HTTP surface.
package api

import (
	"net/http"
	"time"

	"github.com/ManuGH/vidshelf/internal/api/middleware"
	"github.com/ManuGH/vidshelf/internal/audit"
	"github.com/ManuGH/vidshelf/internal/auth"
	"github.com/ManuGH/vidshelf/internal/catalog"
	"github.com/ManuGH/vidshelf/internal/collections"
	"github.com/ManuGH/vidshelf/internal/comments"
	"github.com/ManuGH/vidshelf/internal/health"
	"github.com/ManuGH/vidshelf/internal/transient"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultMaxUploadBytes bounds multipart uploads.
const DefaultMaxUploadBytes = 512 << 20

// Config wires the server to its collaborators.
type Config struct {
	Catalog     *catalog.Catalog
	Collections *collections.Store
	Comments    *comments.Store
	Users       auth.Source
	Refs        *transient.Registry

	// AssetsDir is served under AssetsPrefix. Empty disables static serving.
	AssetsDir    string
	AssetsPrefix string

	RateLimit      middleware.RateLimitConfig
	MaxUploadBytes int64
	ServiceName    string
	Version        string
	Tracing        bool
	// Audit receives mutation and auth failure records. Nil uses the global logger.
	Audit *audit.Logger

	Now func() time.Time
}

// Server handles the HTTP API.
type Server struct {
	catalog     *catalog.Catalog
	collections *collections.Store
	comments    *comments.Store
	users       auth.Source
	refs        *transient.Registry

	assetsDir    string
	assetsPrefix string
	rateLimit    middleware.RateLimitConfig
	maxUpload    int64
	serviceName  string
	tracing      bool
	now          func() time.Time
	health       *health.Manager
	audit        *audit.Logger
}

// New creates a new API server.
func New(cfg Config) *Server {
	s := &Server{
		catalog:      cfg.Catalog,
		collections:  cfg.Collections,
		comments:     cfg.Comments,
		users:        cfg.Users,
		refs:         cfg.Refs,
		assetsDir:    cfg.AssetsDir,
		assetsPrefix: cfg.AssetsPrefix,
		rateLimit:    cfg.RateLimit,
		maxUpload:    cfg.MaxUploadBytes,
		serviceName:  cfg.ServiceName,
		tracing:      cfg.Tracing,
		now:          cfg.Now,
	}
	if s.assetsPrefix == "" {
		s.assetsPrefix = "Videos"
	}
	if s.maxUpload <= 0 {
		s.maxUpload = DefaultMaxUploadBytes
	}
	if s.serviceName == "" {
		s.serviceName = "vidshelf"
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.health = s.newHealth(cfg.Version)
	s.audit = cfg.Audit
	if s.audit == nil {
		s.audit = audit.NewLogger()
	}
	return s
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	stack := middleware.StackConfig{EnableMetrics: true, EnableLogging: true}
	if s.tracing {
		stack.TracingService = s.serviceName
	}
	r := middleware.NewRouter(stack)
	r.Use(s.identify)

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	limit := middleware.RateLimit(middleware.RateLimitConfig{
		RequestLimit: s.rateLimit.RequestLimit,
		WindowSize:   s.rateLimit.WindowSize,
		KeyFunc:      rateLimitKey,
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/videos", s.handleListVideos)
		r.With(limit).Post("/videos", s.handleUploadVideo)
		r.Route("/videos/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetVideo)
			r.With(limit).Patch("/", s.handleUpdateVideo)
			r.With(limit).Delete("/", s.handleDeleteVideo)
			r.With(limit).Post("/view", s.handleView)
			r.With(limit).Post("/like", s.handleLike)
			r.Get("/comments", s.handleListComments)
			r.With(limit).Post("/comments", s.handleAddComment)
		})
		r.Get("/channels/{userID}/videos", s.handleChannelVideos)

		r.Route("/me", func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/", s.handleMe)
			r.Get("/history", s.handleHistory)
			r.With(limit).Post("/history", s.handleAddHistory)
			r.With(limit).Delete("/history", s.handleClearHistory)
			r.Get("/watch-later", s.handleWatchLater)
			r.With(limit).Post("/watch-later", s.handleAddWatchLater)
			r.With(limit).Delete("/watch-later/{videoID}", s.handleRemoveWatchLater)
		})
	})

	r.Get("/media/blob/{token}", s.handleBlob)
	if s.assetsDir != "" {
		prefix := "/" + s.assetsPrefix
		r.Handle(prefix+"/*", http.StripPrefix(prefix, s.secureFileServer()))
	}
	return r
}

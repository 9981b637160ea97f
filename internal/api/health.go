// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"context"
	"fmt"

	"github.com/ManuGH/vidshelf/internal/health"
)

// newHealth registers the catalog and asset checkers.
func (s *Server) newHealth(version string) *health.Manager {
	m := health.NewManager(version)
	m.RegisterChecker(health.CheckerFunc("catalog", s.checkCatalog))
	if s.assetsDir != "" {
		m.RegisterChecker(health.DirChecker("assets", s.assetsDir))
	}
	return m
}

// checkCatalog is unhealthy until Init finished and degraded without a
// binary tier, where uploads only play for the current session.
func (s *Server) checkCatalog(context.Context) health.CheckResult {
	stats := s.catalog.Stats()
	msg := fmt.Sprintf("%d videos (%d static, %d user, %d restored)", stats.Total, stats.Static, stats.User, stats.Restored)
	switch {
	case !stats.Initialized:
		return health.CheckResult{Status: health.StatusUnhealthy, Message: "catalog not initialized"}
	case !stats.BinaryTier:
		return health.CheckResult{Status: health.StatusDegraded, Message: msg, Error: "binary tier unavailable"}
	}
	return health.CheckResult{Status: health.StatusHealthy, Message: msg}
}

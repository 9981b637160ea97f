// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package metrics provides Prometheus metrics for the vidshelf catalog and its storage tiers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// No video or user ids in labels.

var (
	// CatalogVideos tracks the in-memory catalog size by kind (static|user|restored).
	CatalogVideos = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vidshelf_catalog_videos",
		Help: "Number of videos in the in-memory catalog, by kind.",
	}, []string{"kind"})

	// CatalogInitTotal counts completed reconciliations by outcome.
	CatalogInitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidshelf_catalog_init_total",
		Help: "Total number of catalog reconciliations, by outcome (ok|degraded|aborted).",
	}, []string{"outcome"})

	// CatalogMutationsTotal counts catalog mutations by operation.
	CatalogMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidshelf_catalog_mutations_total",
		Help: "Total number of catalog mutations, by operation.",
	}, []string{"op"})

	// CatalogFlushTotal counts user aggregate flushes by outcome.
	CatalogFlushTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidshelf_catalog_flush_total",
		Help: "Total number of user record aggregate flushes, by outcome.",
	}, []string{"outcome"})

	// TierErrorsTotal counts storage tier failures that were degraded gracefully.
	TierErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidshelf_tier_errors_total",
		Help: "Total number of storage tier failures, by tier (record|blob) and operation.",
	}, []string{"tier", "op"})

	// ProbeFallbackTotal counts synthesized durations by reason.
	ProbeFallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidshelf_probe_fallback_total",
		Help: "Total number of synthesized durations, by reason (timeout|failure|zero).",
	}, []string{"reason"})

	// ProbeDuration observes how long duration probes take.
	ProbeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vidshelf_probe_duration_seconds",
		Help:    "Latency of media duration probes in seconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	// TransientRefs tracks live transient references.
	TransientRefs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vidshelf_transient_refs",
		Help: "Current number of live transient binary references.",
	})

	// TransientRefBytes tracks bytes pinned by live transient references.
	TransientRefBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vidshelf_transient_ref_bytes",
		Help: "Bytes held by live transient binary references.",
	})
)

// RecordTierError increments the record tier failure counter.
func RecordTierError(op string) {
	TierErrorsTotal.WithLabelValues("record", op).Inc()
}

// BlobTierError increments the binary tier failure counter.
func BlobTierError(op string) {
	TierErrorsTotal.WithLabelValues("blob", op).Inc()
}

// RecordProbeFallback increments the synthesized duration counter.
func RecordProbeFallback(reason string) {
	ProbeFallbackTotal.WithLabelValues(reason).Inc()
}

// RecordMutation increments the mutation counter for op.
func RecordMutation(op string) {
	CatalogMutationsTotal.WithLabelValues(op).Inc()
}

// SetCatalogSize publishes catalog counts by kind.
func SetCatalogSize(static, user, restored int) {
	CatalogVideos.WithLabelValues("static").Set(float64(static))
	CatalogVideos.WithLabelValues("user").Set(float64(user))
	CatalogVideos.WithLabelValues("restored").Set(float64(restored))
}

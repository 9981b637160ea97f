// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

const (
	VideoIDKey      = "video.id"
	VideoOwnerKey   = "video.owner"
	VideoBytesKey   = "video.bytes"
	CatalogSizeKey  = "catalog.size"
	BinaryTierKey   = "catalog.binary_tier"
	RestoredKey     = "catalog.restored"
	ProbeFallback   = "probe.fallback"
	ProbeSecondsKey = "probe.seconds"
)

// VideoAttributes describes a single video. Empty values are omitted.
func VideoAttributes(id, owner string, size int) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if id != "" {
		attrs = append(attrs, attribute.String(VideoIDKey, id))
	}
	if owner != "" {
		attrs = append(attrs, attribute.String(VideoOwnerKey, owner))
	}
	if size > 0 {
		attrs = append(attrs, attribute.Int(VideoBytesKey, size))
	}
	return attrs
}

// ReconcileAttributes describes a finished catalog reconciliation.
func ReconcileAttributes(total, restored int, binaryTier bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(CatalogSizeKey, total),
		attribute.Int(RestoredKey, restored),
		attribute.Bool(BinaryTierKey, binaryTier),
	}
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package catalog

import (
	"context"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/ManuGH/vidshelf/internal/blob"
	xglog "github.com/ManuGH/vidshelf/internal/log"
	"github.com/ManuGH/vidshelf/internal/metrics"
	"github.com/ManuGH/vidshelf/internal/probe"
	"github.com/ManuGH/vidshelf/internal/record"
	"github.com/ManuGH/vidshelf/internal/telemetry"
	"github.com/ManuGH/vidshelf/internal/transient"
)

// AddVideo creates a user video from up, prepends it to the list and persists
// the user aggregate. The payload is stored in the binary tier when one is
// available and is always playable for the rest of the session.
func (c *Catalog) AddVideo(ctx context.Context, owner Owner, draft Draft, up Upload) (VideoRecord, error) {
	if owner.ID == "" {
		return VideoRecord{}, ErrUnauthenticated
	}
	if len(up.Data) == 0 {
		return VideoRecord{}, ErrEmptyUpload
	}
	ctx, span := telemetry.Tracer(tracerName).Start(ctx, "catalog.add_video")
	defer span.End()

	mime := up.MimeType
	if mime == "" {
		mime = http.DetectContentType(up.Data)
	}

	seconds, _ := c.probeDuration(ctx, probe.PayloadSource(up.Data, up.Filename), up.Filename)
	now := c.now()

	v := VideoRecord{
		Filename:        up.Filename,
		Title:           draft.Title,
		Description:     draft.Description,
		Category:        draft.Category,
		Visibility:      draft.Visibility,
		Thumbnail:       c.assets.thumbnail(),
		DurationSeconds: seconds,
		UploadedAt:      now,
		ChannelID:       owner.ID,
		Channel:         owner.DisplayName,
		ChannelAvatar:   owner.AvatarRef,
		IsUserVideo:     true,
	}
	if v.Title == "" {
		v.Title = FormatTitle(up.Filename)
	}
	if v.Category == "" {
		v.Category = DefaultCategory
	}
	if v.Visibility == "" {
		v.Visibility = VisibilityPublic
	}
	c.withRand(func(rng *rand.Rand) float64 {
		v.Duration = FormatDuration(seconds, rng)
		return 0
	})

	c.mu.Lock()
	v.ID = c.newIDLocked(now)
	tier := c.blobs
	c.mu.Unlock()
	span.SetAttributes(telemetry.VideoAttributes(v.ID, owner.ID, len(up.Data))...)

	if tier != nil {
		err := tier.Put(ctx, v.ID, blob.Blob{Data: up.Data, MimeType: mime, Name: up.Filename, StoredAt: now})
		if err != nil {
			metrics.BlobTierError("put")
			logger := xglog.WithComponentFromContext(ctx, "catalog")
			logger.Warn().Err(err).
				Str(xglog.FieldEvent, "catalog.blob_put_failed").
				Str(xglog.FieldVideoID, v.ID).
				Int(xglog.FieldBytes, len(up.Data)).
				Msg("payload not persisted, playable this session only")
		}
	}
	v.Source = c.refs.Acquire(up.Data, mime, up.Filename)

	c.mu.Lock()
	c.videos = append([]VideoRecord{v}, c.videos...)
	c.mu.Unlock()

	metrics.RecordMutation("add")
	c.persist(ctx)
	c.publishSize()

	logger := xglog.WithComponentFromContext(ctx, "catalog")
	logger.Info().
		Str(xglog.FieldEvent, "catalog.video_added").
		Str(xglog.FieldVideoID, v.ID).
		Str(xglog.FieldUserID, owner.ID).
		Int(xglog.FieldBytes, len(up.Data)).
		Msg("video added")
	return v, nil
}

func (c *Catalog) newIDLocked(now time.Time) string {
	for {
		var id string
		c.withRand(func(rng *rand.Rand) float64 {
			id = userID(now, rng)
			return 0
		})
		if c.indexLocked(id) < 0 {
			return id
		}
	}
}

// UpdateVideo applies patch to a user video and persists the aggregate. It
// reports false for unknown ids and static assets.
func (c *Catalog) UpdateVideo(ctx context.Context, id string, patch Patch) (VideoRecord, bool) {
	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 || c.videos[i].IsStatic() {
		c.mu.Unlock()
		return VideoRecord{}, false
	}
	patch.apply(&c.videos[i])
	v := c.videos[i]
	c.mu.Unlock()

	metrics.RecordMutation("update")
	c.persist(ctx)
	return v, true
}

// SetSource replaces the playable source of a user video. A transient ref
// being superseded is released.
func (c *Catalog) SetSource(id, source string) bool {
	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 || c.videos[i].IsStatic() {
		c.mu.Unlock()
		return false
	}
	old := c.videos[i].Source
	c.videos[i].Source = source
	c.mu.Unlock()

	if old != source && transient.IsRef(old) {
		c.refs.Release(old)
	}
	return true
}

// DeleteVideo removes a user video, its stored payload, its transient ref and
// its comments. It reports false for unknown ids and static assets.
func (c *Catalog) DeleteVideo(ctx context.Context, id string) bool {
	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 || c.videos[i].IsStatic() {
		c.mu.Unlock()
		return false
	}
	v := c.videos[i]
	c.videos = append(c.videos[:i:i], c.videos[i+1:]...)
	tier := c.blobs
	c.mu.Unlock()

	ctx, span := telemetry.Tracer(tracerName).Start(ctx, "catalog.delete_video")
	defer span.End()
	span.SetAttributes(telemetry.VideoAttributes(id, v.ChannelID, 0)...)

	if transient.IsRef(v.Source) {
		c.refs.Release(v.Source)
	}
	if tier != nil {
		if err := tier.Delete(ctx, id); err != nil {
			metrics.BlobTierError("delete")
			logger := xglog.WithComponentFromContext(ctx, "catalog")
			logger.Warn().Err(err).
				Str(xglog.FieldEvent, "catalog.blob_delete_failed").
				Str(xglog.FieldVideoID, id).
				Msg("stored payload not removed")
		}
	}
	if c.comments != nil {
		c.comments.DeleteFor(ctx, id)
	}

	metrics.RecordMutation("delete")
	c.persist(ctx)
	c.publishSize()
	return true
}

// IncrementViews adds one view and returns the new count.
func (c *Catalog) IncrementViews(id string) (int64, bool) {
	return c.bump(id, "view", func(v *VideoRecord) int64 {
		v.Views++
		return v.Views
	})
}

// LikeVideo adds one like and returns the new count.
func (c *Catalog) LikeVideo(id string) (int64, bool) {
	return c.bump(id, "like", func(v *VideoRecord) int64 {
		v.Likes++
		return v.Likes
	})
}

func (c *Catalog) bump(id, op string, inc func(*VideoRecord) int64) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(id)
	if i < 0 {
		return 0, false
	}
	n := inc(&c.videos[i])
	if c.videos[i].IsUserVideo {
		c.dirty = true
	}
	metrics.RecordMutation(op)
	return n, true
}

// Flush persists the user aggregate if counters changed since the last write.
func (c *Catalog) Flush(ctx context.Context) error {
	c.mu.RLock()
	dirty := c.dirty
	c.mu.RUnlock()
	if !dirty {
		return nil
	}
	return c.persist(ctx)
}

// Run flushes every interval until ctx is done, then flushes once more.
func (c *Catalog) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			_ = c.Flush(final)
			cancel()
			return
		case <-ticker.C:
			_ = c.Flush(ctx)
		}
	}
}

// persist writes the user aggregate. Failures are logged and counted; the
// in-memory state stays authoritative.
func (c *Catalog) persist(ctx context.Context) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	agg := make([]VideoRecord, 0)
	for _, v := range c.videos {
		if !v.IsUserVideo {
			continue
		}
		if transient.IsRef(v.Source) {
			v.Source = ""
		}
		v.IsRestored = false
		agg = append(agg, v)
	}
	c.dirty = false
	c.mu.Unlock()

	if err := c.records.Save(ctx, record.KeyUserVideos, agg); err != nil {
		c.mu.Lock()
		c.dirty = true
		c.mu.Unlock()
		metrics.CatalogFlushTotal.WithLabelValues("error").Inc()
		logger := xglog.WithComponentFromContext(ctx, "catalog")
		logger.Warn().Err(err).
			Str(xglog.FieldEvent, "catalog.persist_failed").
			Int("videos", len(agg)).
			Msg("failed to persist user videos")
		return err
	}
	metrics.CatalogFlushTotal.WithLabelValues("ok").Inc()
	return nil
}

func (c *Catalog) publishSize() {
	st := c.Stats()
	metrics.SetCatalogSize(st.Static, st.User, st.Restored)
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package catalog owns the in-memory list of videos. It reconciles bundled
// assets with persisted user uploads and recovered payloads, and serves
// queries, mutations and display projections from memory.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ManuGH/vidshelf/internal/blob"
	"github.com/ManuGH/vidshelf/internal/comments"
	xglog "github.com/ManuGH/vidshelf/internal/log"
	"github.com/ManuGH/vidshelf/internal/metrics"
	"github.com/ManuGH/vidshelf/internal/probe"
	"github.com/ManuGH/vidshelf/internal/record"
	"github.com/ManuGH/vidshelf/internal/telemetry"
	"github.com/ManuGH/vidshelf/internal/transient"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrUnauthenticated is returned by AddVideo without an owner id.
	ErrUnauthenticated = errors.New("catalog: unauthenticated")
	// ErrEmptyUpload is returned by AddVideo for a zero-length payload.
	ErrEmptyUpload = errors.New("catalog: empty upload")
)

const (
	tracerName              = "vidshelf/catalog"
	defaultProbeConcurrency = 4
	defaultBlobOpenTimeout  = 15 * time.Second
	defaultInitTimeout      = 5 * time.Minute
	seedWindow              = 30 * 24 * time.Hour
)

// Options wires a Catalog to its collaborators. Records, Refs and Comments
// are required; the rest may be left zero.
type Options struct {
	Records  *record.Store
	Comments *comments.Store
	Refs     *transient.Registry
	// OpenBlobs initialises the binary tier. Nil or failing disables payload recovery.
	OpenBlobs blob.Opener
	// Prober measures durations. Nil makes every probe fall back.
	Prober probe.Prober

	Assets Assets
	// SeedStats randomizes view, like and upload values of static assets.
	SeedStats bool
	// SystemChannel is the display name of the static asset owner.
	SystemChannel string
	SystemAvatar  string

	ProbeConcurrency int
	BlobOpenTimeout  time.Duration
	// InitTimeout bounds one reconciliation independently of any caller.
	InitTimeout time.Duration

	Rand *rand.Rand
	Now  func() time.Time
}

// Catalog is the authoritative video list. Construct one per process with New
// and call Init before any query or mutation.
type Catalog struct {
	records  *record.Store
	comments *comments.Store
	refs     *transient.Registry
	open     blob.Opener
	prober   probe.Prober

	assets        Assets
	seedStats     bool
	systemChannel string
	systemAvatar  string
	probeLimit    int
	blobTimeout   time.Duration
	initTimeout   time.Duration
	now           func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand

	initGroup singleflight.Group

	mu          sync.RWMutex
	videos      []VideoRecord
	blobs       blob.Tier
	initialized bool
	dirty       bool

	// serializes snapshot+save so the last write carries the newest state
	persistMu sync.Mutex

	logger zerolog.Logger
}

// New returns an uninitialised Catalog.
func New(opts Options) *Catalog {
	c := &Catalog{
		records:       opts.Records,
		comments:      opts.Comments,
		refs:          opts.Refs,
		open:          opts.OpenBlobs,
		prober:        opts.Prober,
		assets:        opts.Assets,
		seedStats:     opts.SeedStats,
		systemChannel: opts.SystemChannel,
		systemAvatar:  opts.SystemAvatar,
		probeLimit:    opts.ProbeConcurrency,
		blobTimeout:   opts.BlobOpenTimeout,
		initTimeout:   opts.InitTimeout,
		now:           opts.Now,
		rng:           opts.Rand,
		logger:        xglog.WithComponent("catalog"),
	}
	if c.refs == nil {
		c.refs = transient.NewRegistry()
	}
	if c.systemChannel == "" {
		c.systemChannel = "vidshelf"
	}
	if c.systemAvatar == "" {
		c.systemAvatar = "logo.png"
	}
	if c.probeLimit <= 0 {
		c.probeLimit = defaultProbeConcurrency
	}
	if c.blobTimeout <= 0 {
		c.blobTimeout = defaultBlobOpenTimeout
	}
	if c.initTimeout <= 0 {
		c.initTimeout = defaultInitTimeout
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.rng == nil {
		seed := uint64(time.Now().UnixNano())
		c.rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return c
}

// Init reconciles the catalog and returns the full list. Concurrent callers
// share one reconciliation; later calls return the built list unchanged.
// Cancelling ctx stops the wait, not the shared reconciliation.
func (c *Catalog) Init(ctx context.Context) ([]VideoRecord, error) {
	c.mu.RLock()
	done := c.initialized
	c.mu.RUnlock()

	if !done {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ch := c.initGroup.DoChan("init", func() (any, error) {
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.initTimeout)
			defer cancel()
			return nil, c.reconcile(rctx)
		})
		select {
		case res := <-ch:
			if res.Err != nil {
				return nil, res.Err
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneList(c.videos), nil
}

// Initialized reports whether Init has completed.
func (c *Catalog) Initialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initialized
}

func (c *Catalog) reconcile(ctx context.Context) error {
	c.mu.RLock()
	done := c.initialized
	c.mu.RUnlock()
	if done {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ctx, span := telemetry.Tracer(tracerName).Start(ctx, "catalog.reconcile")
	defer span.End()

	start := time.Now()
	tier := c.openBlobTier(ctx)

	if c.comments != nil {
		c.comments.Load(ctx)
	}
	var persisted []VideoRecord
	c.records.Load(ctx, record.KeyUserVideos, &persisted)

	static := c.synthesizeStatic(ctx)
	restored := c.recoverPayloads(ctx, tier, persisted)

	// a reconciliation that ran out of time is discarded, never half applied
	if err := ctx.Err(); err != nil {
		for _, v := range restored {
			if transient.IsRef(v.Source) {
				c.refs.Release(v.Source)
			}
		}
		if tier != nil {
			_ = tier.Close()
		}
		metrics.CatalogInitTotal.WithLabelValues("aborted").Inc()
		c.logger.Warn().Err(err).
			Str(xglog.FieldEvent, "catalog.init_aborted").
			Msg("catalog reconciliation did not finish")
		return fmt.Errorf("catalog reconcile: %w", err)
	}

	c.mu.Lock()
	c.blobs = tier
	seen := make(map[string]struct{}, len(c.videos)+len(static)+len(restored))
	for _, v := range c.videos {
		seen[v.ID] = struct{}{}
	}
	var orphanRefs []string
	for _, batch := range [][]VideoRecord{static, restored} {
		for _, v := range batch {
			if _, dup := seen[v.ID]; dup {
				if transient.IsRef(v.Source) {
					orphanRefs = append(orphanRefs, v.Source)
				}
				continue
			}
			seen[v.ID] = struct{}{}
			c.videos = append(c.videos, v)
		}
	}
	c.initialized = true
	st := c.statsLocked()
	c.mu.Unlock()

	for _, ref := range orphanRefs {
		c.refs.Release(ref)
	}

	outcome := "ok"
	if tier == nil {
		outcome = "degraded"
	}
	metrics.CatalogInitTotal.WithLabelValues(outcome).Inc()
	metrics.SetCatalogSize(st.Static, st.User, st.Restored)
	span.SetAttributes(telemetry.ReconcileAttributes(st.Total, st.Restored, tier != nil)...)

	c.logger.Info().
		Str(xglog.FieldEvent, "catalog.initialized").
		Int("static", st.Static).
		Int("user", st.User).
		Int("restored", st.Restored).
		Bool("binary_tier", tier != nil).
		Dur(xglog.FieldDuration, time.Since(start)).
		Msg("catalog reconciled")
	return nil
}

func (c *Catalog) openBlobTier(ctx context.Context) blob.Tier {
	if c.open == nil {
		c.logger.Warn().
			Str(xglog.FieldEvent, "catalog.blob_unavailable").
			Msg("no binary tier configured, uploads are session-only")
		return nil
	}
	openCtx, cancel := context.WithTimeout(ctx, c.blobTimeout)
	defer cancel()

	tier, err := c.open(openCtx)
	if err != nil {
		metrics.BlobTierError("open")
		c.logger.Warn().Err(err).
			Str(xglog.FieldEvent, "catalog.blob_unavailable").
			Msg("binary tier unavailable, uploads are session-only")
		return nil
	}
	return tier
}

// synthesizeStatic builds one record per manifest entry, in manifest order.
func (c *Catalog) synthesizeStatic(ctx context.Context) []VideoRecord {
	files := c.assets.Manifest()
	if len(files) == 0 {
		return nil
	}

	durations := make([]float64, len(files))
	probed := make([]bool, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.probeLimit)
	for i, name := range files {
		g.Go(func() error {
			durations[i], probed[i] = c.probeDuration(gctx, probe.FileSource(c.assets.localPath(name)), name)
			return nil
		})
	}
	_ = g.Wait()

	now := c.now()
	out := make([]VideoRecord, 0, len(files))
	for i, name := range files {
		seconds := durations[i]
		if !probed[i] {
			seconds = c.withRand(probe.SeedDuration)
		}
		out = append(out, c.staticRecord(name, seconds, now))
	}
	return out
}

func (c *Catalog) staticRecord(name string, seconds float64, now time.Time) VideoRecord {
	title := FormatTitle(name)
	v := VideoRecord{
		ID:              StaticID(name),
		Filename:        name,
		Title:           title,
		Description:     "Video: " + title,
		Category:        DefaultCategory,
		Visibility:      VisibilityPublic,
		Source:          c.assets.Source(name),
		Thumbnail:       c.assets.thumbnail(),
		DurationSeconds: seconds,
		ChannelID:       SystemChannelID,
		Channel:         c.systemChannel,
		ChannelAvatar:   c.systemAvatar,
	}
	c.withRand(func(rng *rand.Rand) float64 {
		v.Duration = FormatDuration(seconds, rng)
		if c.seedStats {
			v.Views = int64(rng.IntN(100_000) + 1_000)
			v.Likes = int64(rng.IntN(5_000) + 100)
			v.UploadedAt = now.Add(-time.Duration(rng.Int64N(int64(seedWindow))))
		}
		return 0
	})
	if !c.seedStats {
		if mt, ok := c.assets.modTime(name); ok {
			v.UploadedAt = mt
		} else {
			v.UploadedAt = now
		}
	}
	return v
}

// recoverPayloads restores binaries for persisted user records. Records are
// returned in persisted order whether or not recovery succeeded.
func (c *Catalog) recoverPayloads(ctx context.Context, tier blob.Tier, persisted []VideoRecord) []VideoRecord {
	out := make([]VideoRecord, 0, len(persisted))
	for _, v := range persisted {
		if v.ID == "" {
			continue
		}
		// refs never outlive a session
		if transient.IsRef(v.Source) {
			v.Source = ""
		}
		v.IsRestored = false
		if v.Duration == "" {
			c.withRand(func(rng *rand.Rand) float64 {
				v.Duration = FormatDuration(v.DurationSeconds, rng)
				return 0
			})
		}
		if tier != nil {
			b, err := tier.Get(ctx, v.ID)
			switch {
			case err == nil:
				v.Source = c.refs.Acquire(b.Data, b.MimeType, b.Name)
				v.IsRestored = true
			case errors.Is(err, blob.ErrNotFound):
			default:
				metrics.BlobTierError("get")
				c.logger.Warn().Err(err).
					Str(xglog.FieldEvent, "catalog.recover_failed").
					Str(xglog.FieldVideoID, v.ID).
					Msg("cannot recover payload")
			}
		}
		out = append(out, v)
	}
	return out
}

func (c *Catalog) probeDuration(ctx context.Context, src probe.Source, name string) (float64, bool) {
	if c.prober == nil {
		metrics.RecordProbeFallback("failure")
		return 0, false
	}
	seconds, err := c.prober.Probe(ctx, src)
	if err != nil {
		reason := "failure"
		if errors.Is(err, probe.ErrTimeout) {
			reason = "timeout"
		}
		metrics.RecordProbeFallback(reason)
		c.logger.Debug().Err(err).
			Str(xglog.FieldEvent, "catalog.probe_fallback").
			Str(xglog.FieldFilename, name).
			Str("reason", reason).
			Msg("duration probe failed, synthesizing")
		return 0, false
	}
	if seconds <= 0 {
		metrics.RecordProbeFallback("zero")
	}
	return seconds, true
}

func (c *Catalog) withRand(fn func(*rand.Rand) float64) float64 {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return fn(c.rng)
}

// Stats returns catalog counters.
func (c *Catalog) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statsLocked()
}

func (c *Catalog) statsLocked() Stats {
	st := Stats{
		Total:       len(c.videos),
		BinaryTier:  c.blobs != nil,
		Initialized: c.initialized,
	}
	for _, v := range c.videos {
		switch {
		case v.IsUserVideo:
			st.User++
			if v.IsRestored {
				st.Restored++
			}
			if v.Source == "" {
				st.Unplayable++
			}
		default:
			st.Static++
		}
	}
	return st
}

// Close flushes pending counter changes, releases every transient ref held by
// the catalog and closes the binary tier.
func (c *Catalog) Close(ctx context.Context) error {
	flushErr := c.Flush(ctx)

	c.mu.Lock()
	var refs []string
	for i := range c.videos {
		if transient.IsRef(c.videos[i].Source) {
			refs = append(refs, c.videos[i].Source)
			c.videos[i].Source = ""
		}
	}
	tier := c.blobs
	c.blobs = nil
	c.mu.Unlock()

	for _, ref := range refs {
		c.refs.Release(ref)
	}
	var closeErr error
	if tier != nil {
		closeErr = tier.Close()
	}
	return errors.Join(flushErr, closeErr)
}

func cloneList(list []VideoRecord) []VideoRecord {
	out := make([]VideoRecord, len(list))
	copy(out, list)
	return out
}

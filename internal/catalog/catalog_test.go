// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package catalog

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/vidshelf/internal/blob"
	"github.com/ManuGH/vidshelf/internal/comments"
	"github.com/ManuGH/vidshelf/internal/probe"
	"github.com/ManuGH/vidshelf/internal/record"
	"github.com/ManuGH/vidshelf/internal/transient"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

type env struct {
	records *record.Store
	blobs   *blob.MemoryTier
	refs    *transient.Registry
	opts    Options
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		records: record.NewStore(record.NewMemoryBackend(), "", 0),
		blobs:   blob.NewMemoryTier(),
		refs:    transient.NewRegistry(),
	}
	e.opts = Options{
		Records: e.records,
		Refs:    e.refs,
		OpenBlobs: func(context.Context) (blob.Tier, error) {
			return e.blobs, nil
		},
		Prober: probe.ProberFunc(func(context.Context, probe.Source) (float64, error) {
			return 42, nil
		}),
		Assets:    Assets{Files: []string{"video1.mp4", "my-clip.webm", "intro.mov"}},
		SeedStats: true,
		Now:       func() time.Time { return testNow },
	}
	return e
}

// open builds a fresh catalog over the shared tiers, like a process restart.
func (e *env) open(t *testing.T) *Catalog {
	t.Helper()
	opts := e.opts
	opts.Comments = comments.NewStore(e.records)
	opts.Rand = rand.New(rand.NewPCG(1, 2))
	c := New(opts)
	_, err := c.Init(context.Background())
	require.NoError(t, err)
	return c
}

func ids(list []VideoRecord) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		out = append(out, v.ID)
	}
	return out
}

var u1 = Owner{ID: "u1", DisplayName: "Ann", AvatarRef: "ann.png"}

func addDemo(t *testing.T, c *Catalog, owner Owner, title string, vis Visibility) VideoRecord {
	t.Helper()
	v, err := c.AddVideo(context.Background(), owner,
		Draft{Title: title, Category: "other", Visibility: vis},
		Upload{Data: []byte("payload-" + title), Filename: "demo.mp4", MimeType: "video/mp4"})
	require.NoError(t, err)
	return v
}

func TestInit_SynthesizesStaticAssetsInManifestOrder(t *testing.T) {
	c := newEnv(t).open(t)

	all := c.All()
	require.Equal(t, []string{"vid_video1_mp4", "vid_my_clip_webm", "vid_intro_mov"}, ids(all))

	v := all[0]
	assert.Equal(t, "Video 1", v.Title)
	assert.Equal(t, "Videos/video1.mp4", v.Source)
	assert.Equal(t, SystemChannelID, v.ChannelID)
	assert.Equal(t, DefaultThumbnail, v.Thumbnail)
	assert.Equal(t, float64(42), v.DurationSeconds)
	assert.Equal(t, "0:42", v.Duration)
	assert.True(t, v.IsStatic())
	for _, v := range all {
		assert.GreaterOrEqual(t, v.Views, int64(1000))
		assert.Less(t, v.Views, int64(101000))
		assert.GreaterOrEqual(t, v.Likes, int64(100))
		assert.Less(t, v.Likes, int64(5100))
		assert.False(t, v.UploadedAt.After(testNow))
		assert.True(t, v.UploadedAt.After(testNow.Add(-seedWindow-time.Second)))
	}
}

func TestInit_Idempotent(t *testing.T) {
	c := newEnv(t).open(t)
	addDemo(t, c, u1, "Demo Clip", VisibilityPublic)

	first, err := c.Init(context.Background())
	require.NoError(t, err)
	second, err := c.Init(context.Background())
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(first, second))
	seen := map[string]bool{}
	for _, id := range ids(second) {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestInit_ConcurrentCallersShareOneReconciliation(t *testing.T) {
	e := newEnv(t)
	var mu sync.Mutex
	probes := 0
	e.opts.Prober = probe.ProberFunc(func(context.Context, probe.Source) (float64, error) {
		mu.Lock()
		probes++
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		return 10, nil
	})
	c := New(Options{
		Records:   e.records,
		Refs:      e.refs,
		OpenBlobs: e.opts.OpenBlobs,
		Prober:    e.opts.Prober,
		Assets:    e.opts.Assets,
	})

	var wg sync.WaitGroup
	results := make([][]VideoRecord, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			list, err := c.Init(context.Background())
			assert.NoError(t, err)
			results[i] = list
		}()
	}
	wg.Wait()

	for _, list := range results {
		assert.Len(t, list, 3)
	}
	assert.Equal(t, 3, probes)
}

func TestInit_ProbeFailureSeedsDuration(t *testing.T) {
	e := newEnv(t)
	e.opts.Prober = probe.ProberFunc(func(context.Context, probe.Source) (float64, error) {
		return 0, probe.ErrTimeout
	})
	c := e.open(t)

	for _, v := range c.All() {
		assert.GreaterOrEqual(t, v.DurationSeconds, float64(60))
		assert.Less(t, v.DurationSeconds, float64(660))
		assert.Equal(t, float64(int(v.DurationSeconds)), v.DurationSeconds)
		assert.NotEmpty(t, v.Duration)
	}
}

func TestInit_WithoutSeedingUsesZeroCountersAndModTime(t *testing.T) {
	e := newEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.mp4"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.webm"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	mt := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "a.webm"), mt, mt))

	e.opts.Assets = Assets{Dir: dir}
	e.opts.SeedStats = false
	c := e.open(t)

	all := c.All()
	require.Equal(t, []string{"vid_a_webm", "vid_b_mp4"}, ids(all))
	assert.Zero(t, all[0].Views)
	assert.Zero(t, all[0].Likes)
	assert.True(t, mt.Equal(all[0].UploadedAt))
}

func TestAddVideo_DemoClipScenario(t *testing.T) {
	c := newEnv(t).open(t)

	v := addDemo(t, c, u1, "Demo Clip", VisibilityPublic)
	assert.Regexp(t, `^vid_user_\d+_[0-9a-z]{6}$`, v.ID)

	all := c.All()
	require.NotEmpty(t, all)
	assert.Equal(t, v.ID, all[0].ID)
	assert.Zero(t, all[0].Views)
	assert.Zero(t, all[0].Likes)

	for range 3 {
		_, ok := c.IncrementViews(v.ID)
		require.True(t, ok)
	}
	got, ok := c.Video(v.ID)
	require.True(t, ok)
	assert.Equal(t, int64(3), got.Views)

	require.True(t, c.DeleteVideo(context.Background(), v.ID))
	_, ok = c.Video(v.ID)
	assert.False(t, ok)
	assert.NotContains(t, ids(c.ByOwner(u1.ID)), v.ID)
	assert.NotContains(t, ids(c.All()), v.ID)
}

func TestAddVideo_Unauthenticated(t *testing.T) {
	c := newEnv(t).open(t)
	_, err := c.AddVideo(context.Background(), Owner{}, Draft{Title: "x"}, Upload{Data: []byte("x")})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Len(t, c.All(), 3)
}

func TestAddVideo_EmptyUpload(t *testing.T) {
	c := newEnv(t).open(t)
	_, err := c.AddVideo(context.Background(), u1, Draft{}, Upload{Filename: "x.mp4"})
	assert.ErrorIs(t, err, ErrEmptyUpload)
}

func TestAddVideo_DefaultsAndPlayableRef(t *testing.T) {
	e := newEnv(t)
	c := e.open(t)

	v, err := c.AddVideo(context.Background(), u1, Draft{},
		Upload{Data: []byte("abc"), Filename: "holidayTrip.mp4"})
	require.NoError(t, err)
	assert.Equal(t, "Holiday Trip", v.Title)
	assert.Equal(t, DefaultCategory, v.Category)
	assert.Equal(t, VisibilityPublic, v.Visibility)
	assert.True(t, v.IsUserVideo)
	assert.False(t, v.IsRestored)
	assert.Equal(t, "Ann", v.Channel)

	require.True(t, transient.IsRef(v.Source))
	entry, ok := e.refs.Resolve(v.Source)
	require.True(t, ok)
	assert.Equal(t, 3, entry.Size())
	assert.Equal(t, 1, e.blobs.Len())
}

func TestAddVideo_PersistsWithoutTransientRef(t *testing.T) {
	e := newEnv(t)
	c := e.open(t)
	v := addDemo(t, c, u1, "Demo Clip", VisibilityPublic)

	var persisted []VideoRecord
	require.True(t, e.records.Load(context.Background(), record.KeyUserVideos, &persisted))
	require.Len(t, persisted, 1)
	assert.Equal(t, v.ID, persisted[0].ID)
	assert.Empty(t, persisted[0].Source)
}

func TestRestart_RecoversPayloadFromBinaryTier(t *testing.T) {
	e := newEnv(t)
	c := e.open(t)
	v := addDemo(t, c, u1, "Demo Clip", VisibilityPublic)
	require.NoError(t, c.Close(context.Background()))
	assert.Zero(t, e.refs.Len())

	c2 := e.open(t)
	got, ok := c2.Video(v.ID)
	require.True(t, ok)
	assert.True(t, got.IsRestored)
	require.True(t, transient.IsRef(got.Source))
	entry, ok := e.refs.Resolve(got.Source)
	require.True(t, ok)
	assert.Equal(t, "video/mp4", entry.MimeType)

	// user records follow the static assets after a reload
	all := ids(c2.All())
	assert.Equal(t, v.ID, all[len(all)-1])
	assert.Equal(t, 1, c2.Stats().Restored)
}

func TestRestart_WithoutBinaryTierLeavesSourceEmpty(t *testing.T) {
	e := newEnv(t)
	e.opts.OpenBlobs = func(context.Context) (blob.Tier, error) {
		return nil, blob.ErrUnavailable
	}
	c := e.open(t)
	v := addDemo(t, c, u1, "Demo Clip", VisibilityPublic)
	assert.True(t, transient.IsRef(v.Source), "still playable this session")
	assert.False(t, c.Stats().BinaryTier)

	c2 := e.open(t)
	got, ok := c2.Video(v.ID)
	require.True(t, ok)
	assert.Empty(t, got.Source)
	assert.False(t, got.IsRestored)
	assert.Equal(t, 1, c2.Stats().Unplayable)
}

type failingTier struct{ blob.MemoryTier }

func (f *failingTier) Get(context.Context, string) (*blob.Blob, error) {
	return nil, errors.New("disk on fire")
}

func TestRestart_BinaryReadFailureKeepsRecord(t *testing.T) {
	e := newEnv(t)
	c := e.open(t)
	v := addDemo(t, c, u1, "Demo Clip", VisibilityPublic)

	e.opts.OpenBlobs = func(context.Context) (blob.Tier, error) {
		return &failingTier{}, nil
	}
	c2 := e.open(t)
	got, ok := c2.Video(v.ID)
	require.True(t, ok)
	assert.Empty(t, got.Source)
}

func TestDeleteVideo_Cascades(t *testing.T) {
	e := newEnv(t)
	c := e.open(t)
	v := addDemo(t, c, u1, "Demo Clip", VisibilityPublic)
	_, err := c.comments.Add(context.Background(), v.ID, "Bob", "", "nice")
	require.NoError(t, err)
	require.Equal(t, 1, e.refs.Len())

	require.True(t, c.DeleteVideo(context.Background(), v.ID))
	assert.Empty(t, c.comments.For(v.ID))
	assert.Zero(t, e.blobs.Len())
	assert.Zero(t, e.refs.Len())

	var persisted []VideoRecord
	e.records.Load(context.Background(), record.KeyUserVideos, &persisted)
	assert.Empty(t, persisted)
}

func TestDeleteAndUpdate_UnknownOrStatic(t *testing.T) {
	c := newEnv(t).open(t)
	assert.False(t, c.DeleteVideo(context.Background(), "nope"))
	assert.False(t, c.DeleteVideo(context.Background(), "vid_video1_mp4"))

	title := "hijacked"
	_, ok := c.UpdateVideo(context.Background(), "vid_video1_mp4", Patch{Title: &title})
	assert.False(t, ok)
	_, ok = c.UpdateVideo(context.Background(), "nope", Patch{Title: &title})
	assert.False(t, ok)
	assert.Len(t, c.All(), 3)
}

func TestUpdateVideo_AppliesPatchAndPersists(t *testing.T) {
	e := newEnv(t)
	c := e.open(t)
	v := addDemo(t, c, u1, "Demo Clip", VisibilityPublic)

	title, vis := "Renamed", VisibilityPrivate
	got, ok := c.UpdateVideo(context.Background(), v.ID, Patch{Title: &title, Visibility: &vis})
	require.True(t, ok)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, v.Description, got.Description)
	assert.NotContains(t, ids(c.All()), v.ID)
	assert.Contains(t, ids(c.ByOwner(u1.ID)), v.ID)

	var persisted []VideoRecord
	e.records.Load(context.Background(), record.KeyUserVideos, &persisted)
	require.Len(t, persisted, 1)
	assert.Equal(t, "Renamed", persisted[0].Title)
	assert.Equal(t, VisibilityPrivate, persisted[0].Visibility)
}

func TestSetSource_ReleasesSupersededRef(t *testing.T) {
	e := newEnv(t)
	c := e.open(t)
	v := addDemo(t, c, u1, "Demo Clip", VisibilityPublic)

	next := e.refs.Acquire([]byte("other"), "video/mp4", "other.mp4")
	require.True(t, c.SetSource(v.ID, next))
	_, ok := e.refs.Resolve(v.Source)
	assert.False(t, ok)
	assert.Equal(t, 1, e.refs.Len())
	assert.False(t, c.SetSource("vid_video1_mp4", next))
}

func TestQueries_VisibilityAndFilters(t *testing.T) {
	c := newEnv(t).open(t)
	pub := addDemo(t, c, u1, "Cooking Pasta", VisibilityPublic)
	priv := addDemo(t, c, u1, "Secret Pasta", VisibilityPrivate)
	unl := addDemo(t, c, u1, "Unlisted Pasta", VisibilityUnlisted)

	all := ids(c.All())
	assert.Contains(t, all, pub.ID)
	assert.NotContains(t, all, priv.ID)
	assert.NotContains(t, all, unl.ID)

	assert.Equal(t, []string{pub.ID}, ids(c.Search("PASTA")))
	assert.Equal(t, []string{pub.ID}, ids(c.Search("ann")))
	assert.Equal(t, ids(c.All()), ids(c.Search("   ")))
	assert.Empty(t, c.Search("no such thing"))

	assert.Equal(t, ids(c.All()), ids(c.ByCategory(CategoryAll)))
	assert.Len(t, c.ByCategory("other"), 4)
	assert.Empty(t, c.ByCategory("music"))

	assert.ElementsMatch(t, []string{pub.ID, priv.ID, unl.ID}, ids(c.ByOwner(u1.ID)))
	assert.Len(t, c.ByOwner(SystemChannelID), 3)
}

func TestQueries_ReturnCopies(t *testing.T) {
	c := newEnv(t).open(t)
	all := c.All()
	all[0].Title = "mutated"
	got, _ := c.Video(all[0].ID)
	assert.NotEqual(t, "mutated", got.Title)
}

func TestCounters_MonotonicAndFlushed(t *testing.T) {
	e := newEnv(t)
	c := e.open(t)
	v := addDemo(t, c, u1, "Demo Clip", VisibilityPublic)

	for i := int64(1); i <= 5; i++ {
		n, ok := c.LikeVideo(v.ID)
		require.True(t, ok)
		assert.Equal(t, i, n)
	}
	_, ok := c.LikeVideo("nope")
	assert.False(t, ok)

	var persisted []VideoRecord
	e.records.Load(context.Background(), record.KeyUserVideos, &persisted)
	assert.Zero(t, persisted[0].Likes, "counters are written by Flush")

	require.NoError(t, c.Flush(context.Background()))
	e.records.Load(context.Background(), record.KeyUserVideos, &persisted)
	assert.Equal(t, int64(5), persisted[0].Likes)
}

func TestCounters_StaticAssetsDoNotDirty(t *testing.T) {
	c := newEnv(t).open(t)
	before, _ := c.Video("vid_video1_mp4")
	n, ok := c.IncrementViews("vid_video1_mp4")
	require.True(t, ok)
	assert.Equal(t, before.Views+1, n)

	c.mu.RLock()
	dirty := c.dirty
	c.mu.RUnlock()
	assert.False(t, dirty)
}

func TestClose_ReleasesTransientRefs(t *testing.T) {
	e := newEnv(t)
	c := e.open(t)
	addDemo(t, c, u1, "one", VisibilityPublic)
	addDemo(t, c, u1, "two", VisibilityPublic)
	require.Equal(t, 2, e.refs.Len())

	require.NoError(t, c.Close(context.Background()))
	assert.Zero(t, e.refs.Len())
	for _, v := range c.ByOwner(u1.ID) {
		assert.Empty(t, v.Source)
	}
}

func TestInit_CancelledContext(t *testing.T) {
	e := newEnv(t)
	c := New(e.opts)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Init(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, c.Initialized())
}

func TestInit_CallerCancelDoesNotDegradeSharedReconciliation(t *testing.T) {
	e := newEnv(t)
	entered := make(chan struct{}, 8)
	release := make(chan struct{})
	e.opts.Prober = probe.ProberFunc(func(ctx context.Context, _ probe.Source) (float64, error) {
		entered <- struct{}{}
		select {
		case <-release:
			return 30, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	})
	c := New(e.opts)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := c.Init(ctx)
		first <- err
	}()
	<-entered
	cancel()
	require.ErrorIs(t, <-first, context.Canceled)
	assert.False(t, c.Initialized())

	second := make(chan []VideoRecord, 1)
	go func() {
		list, err := c.Init(context.Background())
		assert.NoError(t, err)
		second <- list
	}()
	close(release)

	list := <-second
	require.Len(t, list, 3)
	for _, v := range list {
		assert.Equal(t, 30.0, v.DurationSeconds, "%s must keep its probed duration", v.ID)
	}
	assert.True(t, c.Initialized())
	assert.True(t, c.Stats().BinaryTier)
}

func TestInit_TimedOutReconciliationIsDiscarded(t *testing.T) {
	e := newEnv(t)
	e.opts.InitTimeout = 20 * time.Millisecond
	e.opts.Prober = probe.ProberFunc(func(ctx context.Context, _ probe.Source) (float64, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	c := New(e.opts)

	_, err := c.Init(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, c.Initialized())
	assert.Empty(t, c.All())
}

func TestRestart_FillsMissingDurationLabel(t *testing.T) {
	e := newEnv(t)
	legacy := []VideoRecord{{ID: "vid_user_old", Title: "Old", ChannelID: "u1", IsUserVideo: true}}
	require.NoError(t, e.records.Save(context.Background(), record.KeyUserVideos, legacy))

	c := e.open(t)
	got, ok := c.Video("vid_user_old")
	require.True(t, ok)
	assert.Regexp(t, `^([1-9]|10):[0-5][0-9]$`, got.Duration)
}

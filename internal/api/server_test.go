// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/vidshelf/internal/audit"
	"github.com/ManuGH/vidshelf/internal/auth"
	"github.com/ManuGH/vidshelf/internal/blob"
	"github.com/ManuGH/vidshelf/internal/catalog"
	"github.com/ManuGH/vidshelf/internal/collections"
	"github.com/ManuGH/vidshelf/internal/comments"
	"github.com/ManuGH/vidshelf/internal/health"
	"github.com/ManuGH/vidshelf/internal/probe"
	"github.com/ManuGH/vidshelf/internal/record"
	"github.com/ManuGH/vidshelf/internal/transient"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

const (
	tokenAnn = "ann-token"
	tokenBob = "bob-token"
)

type fixture struct {
	srv     *httptest.Server
	catalog *catalog.Catalog
	refs    *transient.Registry
	assets  string
	audit   *lockedBuffer
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// events returns the event_type of every audit line written so far.
func (b *lockedBuffer) events(t *testing.T) []string {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	dec := json.NewDecoder(bytes.NewReader(b.buf.Bytes()))
	for dec.More() {
		var line struct {
			EventType string `json:"event_type"`
		}
		require.NoError(t, dec.Decode(&line))
		out = append(out, line.EventType)
	}
	return out
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	assets := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(assets, "clip.mp4"), []byte("static-bytes"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(assets, "Preview.png"), []byte("png"), 0o600))

	records := record.NewStore(record.NewMemoryBackend(), "", 0)
	refs := transient.NewRegistry()
	tier := blob.NewMemoryTier()
	cm := comments.NewStore(records)
	cat := catalog.New(catalog.Options{
		Records:  records,
		Comments: cm,
		Refs:     refs,
		OpenBlobs: func(context.Context) (blob.Tier, error) {
			return tier, nil
		},
		Prober: probe.ProberFunc(func(context.Context, probe.Source) (float64, error) {
			return 65, nil
		}),
		Assets:    catalog.Assets{Dir: assets, Files: []string{"clip.mp4"}},
		SeedStats: true,
		Rand:      rand.New(rand.NewPCG(3, 4)),
		Now:       func() time.Time { return testNow },
	})
	_, err := cat.Init(context.Background())
	require.NoError(t, err)

	users := auth.NewStaticSource([]auth.Account{
		{Token: tokenAnn, User: auth.User{ID: "u1", DisplayName: "Ann", AvatarRef: "ann.png"}},
		{Token: tokenBob, User: auth.User{ID: "u2", DisplayName: "Bob"}},
	})
	auditBuf := &lockedBuffer{}
	s := New(Config{
		Catalog:     cat,
		Collections: collections.NewStore(records, cat, 0),
		Comments:    cm,
		Users:       users,
		Refs:        refs,
		AssetsDir:   assets,
		Audit:       audit.New(zerolog.New(auditBuf)),
		Now:         func() time.Time { return testNow },
	})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, catalog: cat, refs: refs, assets: assets, audit: auditBuf}
}

func (f *fixture) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (f *fixture) doJSON(t *testing.T, method, path, token string, v any) *http.Response {
	t.Helper()
	var body io.Reader
	if v != nil {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	return f.do(t, method, path, token, body, "application/json")
}

func (f *fixture) upload(t *testing.T, token, title, visibility string, payload []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", title))
	require.NoError(t, mw.WriteField("category", "music"))
	if visibility != "" {
		require.NoError(t, mw.WriteField("visibility", visibility))
	}
	fw, err := mw.CreateFormFile("file", "demo.mp4")
	require.NoError(t, err)
	_, err = fw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return f.do(t, http.MethodPost, "/api/videos", token, &buf, mw.FormDataContentType())
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func uploadDemo(t *testing.T, f *fixture, token, title, visibility string) videoDetail {
	t.Helper()
	resp := f.upload(t, token, title, visibility, []byte("payload-"+title))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[videoDetail](t, resp)
}

func TestListVideos_ReturnsCards(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/api/videos", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cards := decode[[]catalog.Card](t, resp)
	require.Len(t, cards, 1)
	assert.Equal(t, "vid_clip_mp4", cards[0].ID)
	assert.Equal(t, "watch?v=vid_clip_mp4", cards[0].Href)
	assert.Equal(t, "1:05", cards[0].Duration)
	assert.True(t, cards[0].Playable)
}

func TestUpload_RequiresUser(t *testing.T) {
	f := newFixture(t)
	resp := f.upload(t, "", "Demo Clip", "", []byte("x"))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
	assert.Equal(t, 1, f.catalog.Stats().Total)
}

func TestUpload_PlayableThroughBlobRoute(t *testing.T) {
	f := newFixture(t)
	d := uploadDemo(t, f, tokenAnn, "Demo Clip", "")

	assert.Equal(t, "Demo Clip", d.Title)
	assert.Equal(t, "u1", d.ChannelID)
	assert.Equal(t, "Ann", d.Channel)
	assert.Equal(t, catalog.VisibilityPublic, d.Visibility)
	require.True(t, strings.HasPrefix(d.PlaybackURL, "/media/blob/"), d.PlaybackURL)

	resp := f.do(t, http.MethodGet, d.PlaybackURL, "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "payload-Demo Clip", string(body))

	cards := decode[[]catalog.Card](t, f.do(t, http.MethodGet, "/api/videos", "", nil, ""))
	require.Len(t, cards, 2)
	assert.Equal(t, d.ID, cards[0].ID, "newest upload first")
}

func TestUpload_RejectsUnknownVisibility(t *testing.T) {
	f := newFixture(t)
	resp := f.upload(t, tokenAnn, "x", "secret", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetVideo_PrivateOnlyForOwner(t *testing.T) {
	f := newFixture(t)
	d := uploadDemo(t, f, tokenAnn, "Hidden", string(catalog.VisibilityPrivate))

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/videos/"+d.ID, "", nil, "").StatusCode)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/videos/"+d.ID, tokenBob, nil, "").StatusCode)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/videos/"+d.ID, tokenAnn, nil, "").StatusCode)

	cards := decode[[]catalog.Card](t, f.do(t, http.MethodGet, "/api/videos", tokenAnn, nil, ""))
	assert.Len(t, cards, 1, "private videos stay out of listings")

	own := decode[[]catalog.Card](t, f.do(t, http.MethodGet, "/api/channels/u1/videos", tokenAnn, nil, ""))
	assert.Len(t, own, 1)
	other := decode[[]catalog.Card](t, f.do(t, http.MethodGet, "/api/channels/u1/videos", tokenBob, nil, ""))
	assert.Empty(t, other)
}

func TestGetVideo_StaticPlaybackURL(t *testing.T) {
	f := newFixture(t)
	d := decode[videoDetail](t, f.do(t, http.MethodGet, "/api/videos/vid_clip_mp4", "", nil, ""))
	assert.Equal(t, "/Videos/clip.mp4", d.PlaybackURL)

	resp := f.do(t, http.MethodGet, d.PlaybackURL, "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "static-bytes", string(body))
	assert.NotEmpty(t, resp.Header.Get("ETag"))
}

func TestUpdateVideo_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	d := uploadDemo(t, f, tokenAnn, "Demo Clip", "")
	title := "Renamed"

	resp := f.doJSON(t, http.MethodPatch, "/api/videos/"+d.ID, tokenBob, catalog.Patch{Title: &title})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.doJSON(t, http.MethodPatch, "/api/videos/"+d.ID, "", catalog.Patch{Title: &title})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.doJSON(t, http.MethodPatch, "/api/videos/vid_clip_mp4", tokenAnn, catalog.Patch{Title: &title})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "static assets are read-only")

	resp = f.doJSON(t, http.MethodPatch, "/api/videos/"+d.ID, tokenAnn, catalog.Patch{Title: &title})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Renamed", decode[videoDetail](t, resp).Title)

	resp = f.do(t, http.MethodPatch, "/api/videos/"+d.ID, tokenAnn, strings.NewReader(`{"bogus":1}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteVideo_RevokesPlayback(t *testing.T) {
	f := newFixture(t)
	d := uploadDemo(t, f, tokenAnn, "Demo Clip", "")

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodDelete, "/api/videos/"+d.ID, tokenBob, nil, "").StatusCode)
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/videos/"+d.ID, tokenAnn, nil, "").StatusCode)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/videos/"+d.ID, tokenAnn, nil, "").StatusCode)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, d.PlaybackURL, "", nil, "").StatusCode)
	assert.Equal(t, 0, f.refs.Len())
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/videos/"+d.ID, tokenAnn, nil, "").StatusCode)
}

func TestAuditTrail(t *testing.T) {
	f := newFixture(t)
	d := uploadDemo(t, f, tokenAnn, "Demo Clip", "")
	title := "Renamed"

	require.Equal(t, http.StatusForbidden, f.do(t, http.MethodDelete, "/api/videos/"+d.ID, tokenBob, nil, "").StatusCode)
	require.Equal(t, http.StatusOK, f.doJSON(t, http.MethodPatch, "/api/videos/"+d.ID, tokenAnn, catalog.Patch{Title: &title}).StatusCode)
	require.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/videos/"+d.ID, tokenAnn, nil, "").StatusCode)
	require.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/me", "stolen-token", nil, "").StatusCode)

	assert.Equal(t, []string{
		"video.upload",
		"api.forbidden",
		"video.update",
		"video.delete",
		"auth.failure",
	}, f.audit.events(t))
}

func TestViewAndLike(t *testing.T) {
	f := newFixture(t)
	before, ok := f.catalog.Video("vid_clip_mp4")
	require.True(t, ok)

	resp := f.do(t, http.MethodPost, "/api/videos/vid_clip_mp4/view", tokenAnn, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, before.Views+1, decode[counterResponse](t, resp).Count)

	resp = f.do(t, http.MethodPost, "/api/videos/vid_clip_mp4/like", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, before.Likes+1, decode[counterResponse](t, resp).Count)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/api/videos/nope/like", "", nil, "").StatusCode)

	history := decode[[]catalog.Card](t, f.do(t, http.MethodGet, "/api/me/history", tokenAnn, nil, ""))
	require.Len(t, history, 1)
	assert.Equal(t, "vid_clip_mp4", history[0].ID)
}

func TestMe_RequiresUser(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/api/me", "/api/me/history", "/api/me/watch-later"} {
		assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, path, "", nil, "").StatusCode, path)
	}
	me := decode[meResponse](t, f.do(t, http.MethodGet, "/api/me", tokenAnn, nil, ""))
	assert.Equal(t, meResponse{ID: "u1", DisplayName: "Ann", Avatar: "ann.png"}, me)
}

func TestHistory_AddAndClear(t *testing.T) {
	f := newFixture(t)
	d := uploadDemo(t, f, tokenAnn, "Demo Clip", "")

	for _, id := range []string{"vid_clip_mp4", d.ID, "vid_clip_mp4"} {
		resp := f.doJSON(t, http.MethodPost, "/api/me/history", tokenBob, videoRef{VideoID: id})
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
	}
	history := decode[[]catalog.Card](t, f.do(t, http.MethodGet, "/api/me/history", tokenBob, nil, ""))
	require.Len(t, history, 2)
	assert.Equal(t, "vid_clip_mp4", history[0].ID)
	assert.Equal(t, d.ID, history[1].ID)

	assert.Equal(t, http.StatusNotFound,
		f.doJSON(t, http.MethodPost, "/api/me/history", tokenBob, videoRef{VideoID: "nope"}).StatusCode)
	assert.Equal(t, http.StatusBadRequest,
		f.doJSON(t, http.MethodPost, "/api/me/history", tokenBob, videoRef{}).StatusCode)

	require.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/me/history", tokenBob, nil, "").StatusCode)
	assert.Empty(t, decode[[]catalog.Card](t, f.do(t, http.MethodGet, "/api/me/history", tokenBob, nil, "")))
}

func TestCollections_HideVideoMadePrivate(t *testing.T) {
	f := newFixture(t)
	d := uploadDemo(t, f, tokenAnn, "Secret later", "public")

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/videos/"+d.ID+"/view", tokenBob, nil, "").StatusCode)
	require.Equal(t, http.StatusNoContent,
		f.doJSON(t, http.MethodPost, "/api/me/watch-later", tokenBob, videoRef{VideoID: d.ID}).StatusCode)
	require.Len(t, decode[[]catalog.Card](t, f.do(t, http.MethodGet, "/api/me/history", tokenBob, nil, "")), 1)

	private := catalog.VisibilityPrivate
	resp := f.doJSON(t, http.MethodPatch, "/api/videos/"+d.ID, tokenAnn, catalog.Patch{Visibility: &private})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/videos/"+d.ID, tokenBob, nil, "").StatusCode)
	assert.Empty(t, decode[[]catalog.Card](t, f.do(t, http.MethodGet, "/api/me/history", tokenBob, nil, "")))
	assert.Empty(t, decode[[]catalog.Card](t, f.do(t, http.MethodGet, "/api/me/watch-later", tokenBob, nil, "")))

	// the owner still sees it in their own lists
	require.Equal(t, http.StatusNoContent,
		f.doJSON(t, http.MethodPost, "/api/me/watch-later", tokenAnn, videoRef{VideoID: d.ID}).StatusCode)
	list := decode[[]catalog.Card](t, f.do(t, http.MethodGet, "/api/me/watch-later", tokenAnn, nil, ""))
	require.Len(t, list, 1)
	assert.Equal(t, d.ID, list[0].ID)
}

func TestWatchLater_AddRemove(t *testing.T) {
	f := newFixture(t)
	for range 2 {
		resp := f.doJSON(t, http.MethodPost, "/api/me/watch-later", tokenAnn, videoRef{VideoID: "vid_clip_mp4"})
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
	}
	list := decode[[]catalog.Card](t, f.do(t, http.MethodGet, "/api/me/watch-later", tokenAnn, nil, ""))
	require.Len(t, list, 1)

	assert.Empty(t, decode[[]catalog.Card](t, f.do(t, http.MethodGet, "/api/me/watch-later", tokenBob, nil, "")))

	resp := f.do(t, http.MethodDelete, "/api/me/watch-later/vid_clip_mp4", tokenAnn, nil, "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, decode[[]catalog.Card](t, f.do(t, http.MethodGet, "/api/me/watch-later", tokenAnn, nil, "")))
}

func TestComments(t *testing.T) {
	f := newFixture(t)
	path := "/api/videos/vid_clip_mp4/comments"

	assert.Equal(t, http.StatusUnauthorized, f.doJSON(t, http.MethodPost, path, "", commentRequest{Text: "hi"}).StatusCode)
	assert.Equal(t, http.StatusBadRequest, f.doJSON(t, http.MethodPost, path, tokenAnn, commentRequest{Text: "   "}).StatusCode)

	resp := f.doJSON(t, http.MethodPost, path, tokenAnn, commentRequest{Text: "first"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, http.StatusCreated, f.doJSON(t, http.MethodPost, path, tokenBob, commentRequest{Text: "second"}).StatusCode)

	list := decode[[]comments.Comment](t, f.do(t, http.MethodGet, path, "", nil, ""))
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Text)
	assert.Equal(t, "Bob", list[0].Author)
	assert.Equal(t, "Ann", list[1].Author)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/videos/nope/comments", "", nil, "").StatusCode)
}

func TestHealthAndReadiness(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", "", nil, "").StatusCode)

	resp := f.do(t, http.MethodGet, "/readyz", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ready := decode[health.ReadinessResponse](t, resp)
	assert.True(t, ready.Ready)
	assert.Equal(t, health.StatusHealthy, ready.Status)
	assert.Equal(t, health.StatusHealthy, ready.Checks["catalog"].Status)
	assert.Equal(t, "1 videos (1 static, 0 user, 0 restored)", ready.Checks["catalog"].Message)
	assert.Equal(t, health.StatusHealthy, ready.Checks["assets"].Status)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	_ = f.do(t, http.MethodGet, "/api/videos", "", nil, "")
	resp := f.do(t, http.MethodGet, "/metrics", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "vidshelf_http_request_duration_seconds")
}

func TestRequestIDHeader(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/api/videos/nope", "", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	reqID := resp.Header.Get("X-Request-ID")
	require.NotEmpty(t, reqID)
	assert.Equal(t, reqID, decode[problem](t, resp).RequestID)
}

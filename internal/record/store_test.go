// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package record

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingBackend struct{ MemoryBackend }

func (*failingBackend) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("disk on fire")
}

func (*failingBackend) Set(context.Context, string, []byte) error {
	return errors.New("disk on fire")
}

func TestStore_LoadMissingKeyLeavesEmptyAggregate(t *testing.T) {
	s := NewStore(NewMemoryBackend(), "t_", 0)

	var got []string
	found := s.Load(context.Background(), KeyUserVideos, &got)

	assert.False(t, found)
	assert.Empty(t, got)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := NewStore(NewMemoryBackend(), "t_", 0)
	ctx := context.Background()

	in := map[string][]string{"vid_1": {"a", "b"}}
	require.NoError(t, s.Save(ctx, KeyComments, in))

	var out map[string][]string
	require.True(t, s.Load(ctx, KeyComments, &out))
	assert.Equal(t, in, out)
}

func TestStore_PrefixIsApplied(t *testing.T) {
	backend := NewMemoryBackend()
	s := NewStore(backend, "vidshelf_", 0)
	require.NoError(t, s.Save(context.Background(), HistoryKey("u1"), []int{1}))

	_, found, err := backend.Get(context.Background(), "vidshelf_history:u1")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestStore_SaveOverQuotaIsRejected(t *testing.T) {
	backend := NewMemoryBackend()
	s := NewStore(backend, "", 16)

	err := s.Save(context.Background(), "big", strings.Repeat("x", 64))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	_, found, _ := backend.Get(context.Background(), "big")
	assert.False(t, found, "oversized aggregate must not be written")
}

func TestStore_CorruptValueYieldsEmptyAggregate(t *testing.T) {
	backend := NewMemoryBackend()
	require.NoError(t, backend.Set(context.Background(), "k", []byte("{not json")))
	s := NewStore(backend, "", 0)

	var out map[string]int
	assert.False(t, s.Load(context.Background(), "k", &out))
	assert.Nil(t, out)
}

func TestStore_TypeMismatchLeavesDestinationUntouched(t *testing.T) {
	type item struct {
		ID    string `json:"id"`
		Views int    `json:"views"`
	}
	backend := NewMemoryBackend()
	raw := `[{"id":"vid_a","views":3},{"id":"vid_b","views":"many"}]`
	require.NoError(t, backend.Set(context.Background(), "k", []byte(raw)))
	s := NewStore(backend, "", 0)

	out := []item{{ID: "kept", Views: 1}}
	assert.False(t, s.Load(context.Background(), "k", &out))
	assert.Equal(t, []item{{ID: "kept", Views: 1}}, out)

	var empty []item
	assert.False(t, s.Load(context.Background(), "k", &empty))
	assert.Nil(t, empty)
}

func TestStore_BackendFailureNeverFailsLoad(t *testing.T) {
	s := NewStore(&failingBackend{}, "", 0)

	var out []int
	assert.False(t, s.Load(context.Background(), "k", &out))
	assert.Error(t, s.Save(context.Background(), "k", []int{1}))
}

func TestOpen_Backends(t *testing.T) {
	dir := t.TempDir()
	for _, backend := range []string{"", "file", "memory", "sqlite"} {
		t.Run("backend="+backend, func(t *testing.T) {
			s, err := Open(Config{Backend: backend, Path: dir})
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			require.NoError(t, s.Save(context.Background(), "k", 1))
		})
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(Config{Backend: "etcd"})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

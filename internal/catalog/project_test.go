// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProject(t *testing.T) {
	now := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	v := VideoRecord{
		ID:              "vid_user_1_abcdef",
		Title:           "Demo Clip",
		Source:          "blob:123",
		DurationSeconds: 125,
		Views:           1500,
		Likes:           3,
		UploadedAt:      now.Add(-2 * 24 * time.Hour),
		ChannelID:       "u1",
		Channel:         "Ann",
		IsUserVideo:     true,
	}

	card := Project(v, now)
	assert.Equal(t, "watch?v=vid_user_1_abcdef", card.Href)
	assert.Equal(t, "2:05", card.Duration)
	assert.Equal(t, "1.5K", card.Views)
	assert.Equal(t, int64(1500), card.ViewCount)
	assert.Equal(t, "2 days ago", card.Uploaded)
	assert.Equal(t, DefaultThumbnail, card.Thumbnail)
	assert.Equal(t, VisibilityPublic, card.Visibility)
	assert.True(t, card.Playable)

	// pure: same input, same output
	assert.Equal(t, card, Project(v, now))
}

func TestProject_KeepsPrecomputedDuration(t *testing.T) {
	card := Project(VideoRecord{ID: "x", Duration: "7:07", DurationSeconds: 1}, time.Now())
	assert.Equal(t, "7:07", card.Duration)
	assert.False(t, card.Playable)
}

func TestProject_UnknownDurationFallsBack(t *testing.T) {
	now := time.Now()
	for _, id := range []string{"vid_a", "vid_b", "vid_c", "vid_user_42"} {
		card := Project(VideoRecord{ID: id}, now)
		assert.NotEqual(t, "0:00", card.Duration)
		assert.Regexp(t, `^([1-9]|10):[0-5][0-9]$`, card.Duration)
		assert.Equal(t, card.Duration, Project(VideoRecord{ID: id}, now).Duration, "stable per id")
	}
}

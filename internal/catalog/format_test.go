// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package catalog

import (
	"math/rand/v2"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{5, "0:05"},
		{65, "1:05"},
		{600.9, "10:00"},
		{3725, "1:02:05"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.seconds, nil), "seconds=%v", tt.seconds)
	}
}

func TestFormatDuration_FallbackRange(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	re := regexp.MustCompile(`^([1-9]|10):[0-5][0-9]$`)
	for i := 0; i < 200; i++ {
		assert.Regexp(t, re, FormatDuration(0, rng))
	}
	assert.Regexp(t, re, FormatDuration(-3, nil))
}

func TestFormatTitle(t *testing.T) {
	tests := map[string]string{
		"video1.mp4":           "Video 1",
		"my-holidayVideo2.mp4": "My Holiday Video 2",
		"snake_case_clip.webm": "Snake Case Clip",
		"Videos/nested.mov":    "Nested",
		"noext":                "Noext",
		"HD-trailer.mkv":       "HD Trailer",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatTitle(in), in)
	}
}

func TestFormatViews(t *testing.T) {
	assert.Equal(t, "0", FormatViews(0))
	assert.Equal(t, "999", FormatViews(999))
	assert.Equal(t, "1K", FormatViews(1000))
	assert.Equal(t, "1.2K", FormatViews(1234))
	assert.Equal(t, "3M", FormatViews(3_000_000))
	assert.Equal(t, "2.5M", FormatViews(2_540_000))
}

func TestRelativeUploadLabel(t *testing.T) {
	now := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Minute, "Just now"},
		{5 * time.Hour, "Today"},
		{30 * time.Hour, "Yesterday"},
		{4 * 24 * time.Hour, "4 days ago"},
		{8 * 24 * time.Hour, "1 week ago"},
		{15 * 24 * time.Hour, "2 weeks ago"},
		{22 * 24 * time.Hour, "3 weeks ago"},
		{65 * 24 * time.Hour, "2 months ago"},
		{400 * 24 * time.Hour, "1 year ago"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RelativeUploadLabel(now.Add(-tt.ago), now), tt.ago.String())
	}
	assert.Empty(t, RelativeUploadLabel(time.Time{}, now))
}

func TestStaticID(t *testing.T) {
	assert.Equal(t, "vid_video1_mp4", StaticID("video1.mp4"))
	assert.Equal(t, "vid_my_clip__1__webm", StaticID("my clip (1).webm"))
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package catalog

import (
	"fmt"
	"math"
	"math/rand/v2"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	reSeparators = regexp.MustCompile(`[-_]+`)
	reCamel      = regexp.MustCompile(`([a-z])([A-Z])`)
	reDigits     = regexp.MustCompile(`(\d+)`)
	reNonAlnum   = regexp.MustCompile(`[^A-Za-z0-9]`)

	titleCaser = cases.Title(language.Und, cases.NoLower)
)

// FormatDuration renders seconds as m:ss or h:mm:ss. Unknown or zero
// durations render a synthesized length of 1 to 10 minutes drawn from rng;
// a nil rng uses the package generator.
func FormatDuration(seconds float64, rng *rand.Rand) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		intN := rand.IntN
		if rng != nil {
			intN = rng.IntN
		}
		return fmt.Sprintf("%d:%02d", intN(10)+1, intN(60))
	}
	return formatClock(seconds)
}

func formatClock(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		seconds = 0
	}
	total := int64(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatTitle derives a human title from a file name:
// "my-holidayVideo2.mp4" becomes "My Holiday Video 2".
func FormatTitle(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if ext := path.Ext(name); ext != "" && ext != name {
		name = strings.TrimSuffix(name, ext)
	}
	name = reSeparators.ReplaceAllString(name, " ")
	name = reCamel.ReplaceAllString(name, "$1 $2")
	name = titleCaser.String(name)
	name = reDigits.ReplaceAllString(name, " $1 ")
	return strings.Join(strings.Fields(name), " ")
}

// FormatViews abbreviates a counter: 950, 1.2K, 3M.
func FormatViews(n int64) string {
	switch {
	case n >= 1_000_000:
		return trimZero(float64(n)/1_000_000) + "M"
	case n >= 1_000:
		return trimZero(float64(n)/1_000) + "K"
	default:
		return strconv.FormatInt(n, 10)
	}
}

func trimZero(f float64) string {
	s := strconv.FormatFloat(math.Floor(f*10)/10, 'f', 1, 64)
	return strings.TrimSuffix(s, ".0")
}

// RelativeUploadLabel describes how long ago t was, relative to now.
func RelativeUploadLabel(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := now.Sub(t)
	if d < time.Hour {
		return "Just now"
	}
	days := int(d.Hours() / 24)
	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case days < 30:
		return plural(days/7, "week")
	case days < 365:
		return plural(days/30, "month")
	default:
		return plural(days/365, "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// StaticID is the deterministic id of a bundled asset.
func StaticID(filename string) string {
	return "vid_" + reNonAlnum.ReplaceAllString(filename, "_")
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func userID(now time.Time, rng *rand.Rand) string {
	var suffix [6]byte
	for i := range suffix {
		suffix[i] = base36[rng.IntN(len(base36))]
	}
	return "vid_user_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + string(suffix[:])
}

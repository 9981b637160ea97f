// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	xglog "github.com/ManuGH/vidshelf/internal/log"
	"github.com/ManuGH/vidshelf/internal/metrics"
	"github.com/ManuGH/vidshelf/internal/procgroup"
	"golang.org/x/time/rate"
)

// FFprobe probes sources by running the ffprobe binary.
type FFprobe struct {
	Bin     string        // ffprobe executable; empty means "ffprobe" on PATH
	Timeout time.Duration // zero means Timeout
	TempDir string        // spool directory for payload sources; empty means os.TempDir
	// Limiter throttles process spawns. Waiting counts against Timeout.
	Limiter *rate.Limiter
}

// NewFFprobe returns an FFprobe prober using bin.
func NewFFprobe(bin string) *FFprobe {
	return &FFprobe{Bin: bin}
}

// Probe returns the container duration of src. Payload sources are spooled to a
// temp file that is removed before Probe returns, on every path.
func (p *FFprobe) Probe(ctx context.Context, src Source) (float64, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if p.Limiter != nil {
		if err := p.Limiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("%w: spawn throttled: %v", ErrTimeout, err)
		}
	}

	start := time.Now()
	defer func() { metrics.ProbeDuration.Observe(time.Since(start).Seconds()) }()

	path := src.Path
	if path == "" {
		spooled, cleanup, err := p.spool(src)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrProbeFailed, err)
		}
		defer cleanup()
		path = spooled
	}

	d, err := p.run(ctx, path)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return 0, fmt.Errorf("%w after %s: %s", ErrTimeout, timeout, filepath.Base(path))
	}
	return d, err
}

func (p *FFprobe) spool(src Source) (string, func(), error) {
	f, err := os.CreateTemp(p.TempDir, "vidshelf-probe-*"+filepath.Ext(src.Name))
	if err != nil {
		return "", nil, err
	}
	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}
	if _, err := f.Write(src.Data); err != nil {
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return f.Name(), cleanup, nil
}

func (p *FFprobe) run(ctx context.Context, path string) (float64, error) {
	bin := p.Bin
	if bin == "" {
		bin = "ffprobe"
	}
	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	// #nosec G204 - binary comes from operator config; path is an opaque argument
	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	procgroup.Bind(cmd)
	// Bound the wait for inherited pipes once the process is killed.
	cmd.WaitDelay = time.Second

	out, err := cmd.Output()
	if err != nil {
		errStr := stderr.String()
		if len(errStr) > 4096 {
			errStr = errStr[:4096] + "..."
		}
		return 0, fmt.Errorf("%w: ffprobe: %v (stderr: %s)", ErrProbeFailed, err, errStr)
	}
	d, err := parseDuration(out)
	if err != nil {
		return 0, err
	}
	logger := xglog.WithComponent("probe")
	logger.Debug().
		Str(xglog.FieldPath, path).
		Float64(xglog.FieldDuration, d).
		Msg("probed duration")
	return d, nil
}

type probeData struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Duration  string `json:"duration,omitempty"`
	} `json:"streams"`
	Format struct {
		Duration   string `json:"duration"`
		FormatName string `json:"format_name"`
	} `json:"format"`
}

// parseDuration prefers the container duration and falls back to the first
// playable stream that reports one.
func parseDuration(out []byte) (float64, error) {
	var data probeData
	if err := json.Unmarshal(out, &data); err != nil {
		return 0, fmt.Errorf("%w: json decode: %v", ErrProbeFailed, err)
	}

	playable := false
	for _, s := range data.Streams {
		if (s.CodecType == "video" || s.CodecType == "audio") && s.CodecName != "" {
			playable = true
			break
		}
	}
	if !playable {
		return 0, fmt.Errorf("%w: no playable streams", ErrProbeFailed)
	}

	if d, err := strconv.ParseFloat(data.Format.Duration, 64); err == nil && d > 0 {
		return d, nil
	}
	for _, s := range data.Streams {
		if s.CodecType != "video" && s.CodecType != "audio" {
			continue
		}
		if d, err := strconv.ParseFloat(s.Duration, 64); err == nil && d > 0 {
			return d, nil
		}
	}
	return 0, nil
}

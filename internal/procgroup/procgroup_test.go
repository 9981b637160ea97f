// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

//go:build unix

package procgroup

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBind_CancelKillsGroup(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// the child sleep keeps stdout open unless the whole group dies
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", "sleep 10 & wait")
	Bind(cmd)
	cmd.WaitDelay = 5 * time.Second

	start := time.Now()
	_, err := cmd.Output()
	require.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
	assert.True(t, cmd.SysProcAttr.Setpgid)
}

func TestKill_NilSafe(t *testing.T) {
	assert.NoError(t, Kill(nil))
	assert.NoError(t, Kill(&exec.Cmd{}))
}

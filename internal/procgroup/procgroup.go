// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package procgroup runs helper processes in their own process group so a
// cancelled probe takes its children down with it.
package procgroup

import (
	"os/exec"
)

// Bind puts cmd in a new process group and makes context cancellation kill
// the whole group instead of only the leader.
func Bind(cmd *exec.Cmd) {
	Set(cmd)
	cmd.Cancel = func() error { return Kill(cmd) }
}

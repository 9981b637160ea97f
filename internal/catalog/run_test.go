// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/ManuGH/vidshelf/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestRun_FlushesPeriodicallyAndOnExit(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	e := newEnv(t)
	c := e.open(t)
	v := addDemo(t, c, u1, "Demo Clip", VisibilityPublic)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx, 10*time.Millisecond)
	}()

	_, ok := c.IncrementViews(v.ID)
	require.True(t, ok)
	assert.Eventually(t, func() bool {
		var persisted []VideoRecord
		e.records.Load(context.Background(), record.KeyUserVideos, &persisted)
		return len(persisted) == 1 && persisted[0].Views == 1
	}, time.Second, 5*time.Millisecond)

	_, ok = c.IncrementViews(v.ID)
	require.True(t, ok)
	cancel()
	<-done

	var persisted []VideoRecord
	e.records.Load(context.Background(), record.KeyUserVideos, &persisted)
	require.Len(t, persisted, 1)
	assert.Equal(t, int64(2), persisted[0].Views)
}

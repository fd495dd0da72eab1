package jobqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_IsRunning(t *testing.T) {
	ticked := make(chan string, 10)
	m := NewManager(
		NewScheduler("a", time.Hour, func(ctx context.Context) error { ticked <- "a"; return nil }),
		NewScheduler("b", time.Hour, func(ctx context.Context) error { ticked <- "b"; return nil }),
	)
	assert.False(t, m.IsRunning())

	m.Start()
	m.Start()
	assert.True(t, m.IsRunning())

	seen := map[string]bool{}
	for len(seen) < 2 {
		select {
		case name := <-ticked:
			seen[name] = true
		case <-time.After(2 * time.Second):
			t.Fatal("schedulers did not tick on start")
		}
	}

	m.Stop()
	assert.False(t, m.IsRunning())
}

func TestManager_StopWithoutStart(t *testing.T) {
	m := NewManager(NewScheduler("idle", time.Hour, func(ctx context.Context) error { return nil }))
	assert.NotPanics(t, m.Stop)
	assert.False(t, m.IsRunning())
}

func TestManager_RunOnceStopsAtFirstError(t *testing.T) {
	var order []string
	boom := errors.New("boom")
	m := NewManager(
		NewScheduler("first", time.Hour, func(ctx context.Context) error { order = append(order, "first"); return boom }),
		NewScheduler("second", time.Hour, func(ctx context.Context) error { order = append(order, "second"); return nil }),
	)

	err := m.RunOnce(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first"}, order)
}

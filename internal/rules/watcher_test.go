package rules

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	store := NewMemoryStore()
	loader := NewLoader(nil)

	fw, err := NewFileWatcher(dir, store, loader, nil)
	require.NoError(t, err)
	fw.SetDebounceTimeout(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, fw.Watch(ctx))
	assert.True(t, fw.IsWatching())
	defer fw.Stop()

	writeBundle(t, dir, "labor.yaml", laborBundle)

	select {
	case ev := <-fw.EventChan():
		require.NoError(t, ev.Error)
		assert.ElementsMatch(t, []string{"CA_MEAL_BREAKS", "FLSA_MIN_WAGE"}, ev.RuleCodes)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload event")
	}

	assert.Equal(t, 2, store.Count())
}

func TestFileWatcherDoubleWatch(t *testing.T) {
	dir := t.TempDir()
	fw, err := NewFileWatcher(dir, NewMemoryStore(), NewLoader(nil), nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, fw.Watch(ctx))
	defer fw.Stop()

	assert.Error(t, fw.Watch(ctx))
}

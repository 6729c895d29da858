package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccdsync/internal/port"
)

func nextEvent(t *testing.T, events <-chan port.FileEvent) port.FileEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "events closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
	return port.FileEvent{}
}

func TestFSNotifyWatcher_NestedCreate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a"), 0o755))

	w, err := NewFSNotifyWatcher()
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := w.Watch(ctx, dir)
	require.NoError(t, err)

	target := filepath.Join(dir, "a", "ATP.cif")
	require.NoError(t, os.WriteFile(target, []byte("data_ATP\n"), 0o644))

	ev := nextEvent(t, events)
	assert.Equal(t, target, ev.Path)
	assert.Equal(t, port.FileCreated, ev.Operation)
}

func TestFSNotifyWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()

	w, err := NewFSNotifyWatcher()
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := w.Watch(ctx, dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	select {
	case ev := <-events:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestFSNotifyWatcher_MissingDir(t *testing.T) {
	w, err := NewFSNotifyWatcher()
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	_, err = w.Watch(context.Background(), filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codescout/internal/config"
)

// fakeSource feeds events from a test-controlled channel
type fakeSource struct {
	ch chan Event
}

func newFakeSource() *fakeSource {
	return &fakeSource{ch: make(chan Event, 64)}
}

func (f *fakeSource) Events() <-chan Event { return f.ch }
func (f *fakeSource) Close() error {
	close(f.ch)
	return nil
}

func testWatcherCfg() config.WatcherConfig {
	return config.WatcherConfig{
		DebounceWindow: 50 * time.Millisecond,
		QueueSize:      8,
	}
}

func waitFor(t *testing.T, cond func() bool, timeout time.Duration, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestWatcherCoalescesBurst(t *testing.T) {
	src := newFakeSource()
	var triggers atomic.Int32

	w := New("/work/app", src, testWatcherCfg(), func(ctx context.Context, root string) error {
		assert.Equal(t, "/work/app", root)
		triggers.Add(1)
		return nil
	})
	w.Start(context.Background())
	defer w.Stop()

	// A burst of events for the same path within the window
	for i := 0; i < 10; i++ {
		src.ch <- Event{Path: "main.go", Op: OpWrite}
		time.Sleep(2 * time.Millisecond)
	}

	waitFor(t, func() bool { return triggers.Load() >= 1 }, time.Second, "trigger never fired")
	// Settle well past the window: the burst must have produced one trigger
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), triggers.Load())
}

func TestWatcherDebouncePerPath(t *testing.T) {
	src := newFakeSource()
	var triggers atomic.Int32

	w := New("/work/app", src, testWatcherCfg(), func(ctx context.Context, root string) error {
		triggers.Add(1)
		return nil
	})
	w.Start(context.Background())
	defer w.Stop()

	src.ch <- Event{Path: "a.go", Op: OpWrite}
	src.ch <- Event{Path: "b.go", Op: OpCreate}

	waitFor(t, func() bool { return w.Pending() == 0 }, time.Second, "paths never matured")
	waitFor(t, func() bool { return triggers.Load() >= 1 }, time.Second, "trigger never fired")

	// Both paths matured together and coalesced into one refresh
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), triggers.Load())
}

func TestWatcherContinuousWritesHoldTrigger(t *testing.T) {
	src := newFakeSource()
	var triggers atomic.Int32

	cfg := config.WatcherConfig{DebounceWindow: 100 * time.Millisecond, QueueSize: 8}
	w := New("/work/app", src, cfg, func(ctx context.Context, root string) error {
		triggers.Add(1)
		return nil
	})
	w.Start(context.Background())
	defer w.Stop()

	// Keep re-touching the path faster than the window elapses
	stop := time.After(250 * time.Millisecond)
loop:
	for {
		select {
		case <-stop:
			break loop
		default:
			src.ch <- Event{Path: "hot.go", Op: OpWrite}
			time.Sleep(10 * time.Millisecond)
		}
	}
	assert.Zero(t, triggers.Load(), "no trigger while writes keep arriving")

	waitFor(t, func() bool { return triggers.Load() == 1 }, time.Second, "trigger after writes stop")
}

func TestWatcherStop(t *testing.T) {
	src := newFakeSource()
	w := New("/work/app", src, testWatcherCfg(), func(ctx context.Context, root string) error {
		return nil
	})
	w.Start(context.Background())
	w.Stop() // must not hang or panic
}

func TestWatcherStopWaitsForInFlightTrigger(t *testing.T) {
	src := newFakeSource()
	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	w := New("/work/app", src, testWatcherCfg(), func(ctx context.Context, root string) error {
		close(started)
		<-release
		finished.Store(true)
		return nil
	})
	w.Start(context.Background())

	src.ch <- Event{Path: "main.go", Op: OpWrite}
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("trigger never started")
	}

	stopDone := make(chan struct{})
	go func() {
		w.Stop()
		close(stopDone)
	}()

	// Stop must block while the trigger is still running
	select {
	case <-stopDone:
		t.Fatal("Stop returned with the trigger still in flight")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop never returned after the trigger finished")
	}
	assert.True(t, finished.Load())
}

func TestPollSourceDetectsChanges(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default().Scanner

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a\n"), 0o644))

	src := NewPollSource(root, cfg, 20*time.Millisecond)
	defer src.Close()

	// Give the source its baseline snapshot before mutating
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "b.go"), []byte("package b\n"), 0o644))

	var created bool
	deadline := time.After(2 * time.Second)
	for !created {
		select {
		case ev := <-src.Events():
			if ev.Path == "b.go" && ev.Op == OpCreate {
				created = true
			}
		case <-deadline:
			t.Fatal("create event never arrived")
		}
	}

	require.NoError(t, os.Remove(filepath.Join(root, "a.go")))
	var removed bool
	deadline = time.After(2 * time.Second)
	for !removed {
		select {
		case ev := <-src.Events():
			if ev.Path == "a.go" && ev.Op == OpRemove {
				removed = true
			}
		case <-deadline:
			t.Fatal("remove event never arrived")
		}
	}
}

func TestPollSourceKeepsSnapshotAcrossScanFailure(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "project")
	require.NoError(t, os.Mkdir(root, 0o755))
	path := filepath.Join(root, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package a\n"), 0o644))
	info, err := os.Stat(path)
	require.NoError(t, err)

	src := NewPollSource(root, config.Default().Scanner, 20*time.Millisecond)
	defer src.Close()

	// Give the source its baseline snapshot before mutating
	time.Sleep(60 * time.Millisecond)

	// The whole root disappears, so every poll fails until it returns
	require.NoError(t, os.RemoveAll(root))
	time.Sleep(100 * time.Millisecond)

	// Restore the tree exactly as it was, mtime included
	require.NoError(t, os.Mkdir(root, 0o755))
	require.NoError(t, os.WriteFile(path, []byte("package a\n"), 0o644))
	require.NoError(t, os.Chtimes(path, info.ModTime(), info.ModTime()))
	time.Sleep(100 * time.Millisecond)

	// Nothing actually changed: the failed polls must not surface as a
	// remove/create burst
	select {
	case ev := <-src.Events():
		t.Fatalf("unexpected %s event for %s after transient scan failure", ev.Op, ev.Path)
	default:
	}
}

func TestManagerLifecycle(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()

	m := NewManager(context.Background(), testWatcherCfg(), func(root string) (Source, error) {
		return newFakeSource(), nil
	}, func(ctx context.Context, root string) error { return nil })
	defer m.Close()

	require.NoError(t, m.Watch(rootA))
	require.NoError(t, m.Watch(rootB))
	assert.Len(t, m.Watched(), 2)

	assert.Error(t, m.Watch(rootA), "double watch is rejected")

	require.NoError(t, m.Unwatch(rootA))
	assert.Len(t, m.Watched(), 1)
	assert.Error(t, m.Unwatch(rootA), "unwatching an unwatched root is an error")
}

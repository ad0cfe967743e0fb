package watcher

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"codescout/internal/config"
	"codescout/internal/scanner"
)

// SourceFactory builds the event source for one project root
type SourceFactory func(rootPath string) (Source, error)

// Manager runs at most one Watcher per project root
type Manager struct {
	cfg        config.WatcherConfig
	newSource  SourceFactory
	trigger    TriggerFunc
	runCtx     context.Context
	cancelRoot context.CancelFunc

	mu       sync.Mutex
	watchers map[string]*Watcher
}

// NewManager creates a Manager. Watchers it starts are children of
// ctx and stop when it is canceled.
func NewManager(ctx context.Context, cfg config.WatcherConfig, newSource SourceFactory, trigger TriggerFunc) *Manager {
	runCtx, cancel := context.WithCancel(ctx)
	return &Manager{
		cfg:        cfg,
		newSource:  newSource,
		trigger:    trigger,
		runCtx:     runCtx,
		cancelRoot: cancel,
		watchers:   make(map[string]*Watcher),
	}
}

// Watch starts watching rootPath. Watching an already-watched root is
// an error.
func (m *Manager) Watch(rootPath string) error {
	root, err := scanner.CanonicalRoot(rootPath)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.watchers[root]; ok {
		return fmt.Errorf("already watching %s", root)
	}

	src, err := m.newSource(root)
	if err != nil {
		return err
	}

	w := New(root, src, m.cfg, m.trigger)
	w.Start(m.runCtx)
	m.watchers[root] = w
	return nil
}

// Unwatch stops watching rootPath
func (m *Manager) Unwatch(rootPath string) error {
	root, err := scanner.CanonicalRoot(rootPath)
	if err != nil {
		root = rootPath
	}

	m.mu.Lock()
	w, ok := m.watchers[root]
	if ok {
		delete(m.watchers, root)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("not watching %s", rootPath)
	}
	w.Stop()
	return nil
}

// Watched lists the currently watched roots, sorted
func (m *Manager) Watched() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	roots := make([]string, 0, len(m.watchers))
	for root := range m.watchers {
		roots = append(roots, root)
	}
	sort.Strings(roots)
	return roots
}

// Close stops every watcher
func (m *Manager) Close() {
	m.cancelRoot()

	m.mu.Lock()
	watchers := make([]*Watcher, 0, len(m.watchers))
	for root, w := range m.watchers {
		watchers = append(watchers, w)
		delete(m.watchers, root)
	}
	m.mu.Unlock()

	for _, w := range watchers {
		w.Stop()
	}
}

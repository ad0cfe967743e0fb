package watcher

import (
	"context"
	"log"
	"sync"
	"time"

	"codescout/internal/config"
)

// Op is the kind of filesystem change observed
type Op int

const (
	OpCreate Op = iota
	OpWrite
	OpRemove
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Event is one observed change to a file under the watched root
type Event struct {
	Path string // relative to the watched root
	Op   Op
}

// Source delivers raw filesystem events for one project root. The
// channel closes when the source shuts down.
type Source interface {
	Events() <-chan Event
	Close() error
}

// TriggerFunc is invoked after changes settle; it receives the
// watched project root
type TriggerFunc func(ctx context.Context, rootPath string) error

// Watcher debounces raw events and triggers a re-index once a burst
// of changes has settled.
//
// Each path keeps its own debounce clock: a path matures only after
// DebounceWindow elapses with no further events for it. Matured
// batches coalesce into a single trigger call, and a bounded queue
// drops refresh signals (not data; the trigger rescans) under
// sustained pressure instead of blocking the event reader.
type Watcher struct {
	root    string
	source  Source
	window  time.Duration
	trigger TriggerFunc

	queue chan struct{}

	mu      sync.Mutex
	pending map[string]time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Watcher for root over src. Start must be called to
// begin processing.
func New(root string, src Source, cfg config.WatcherConfig, trigger TriggerFunc) *Watcher {
	window := cfg.DebounceWindow
	if window <= 0 {
		window = 2 * time.Second
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Watcher{
		root:    root,
		source:  src,
		window:  window,
		trigger: trigger,
		queue:   make(chan struct{}, queueSize),
		pending: make(map[string]time.Time),
	}
}

// Start launches the event reader and the single trigger consumer
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(2)
	go w.consume(ctx)
	go w.collect(ctx)
}

// Stop shuts the watcher down and closes its source. It returns only
// after both goroutines have exited, so no trigger outlives the
// watcher. Safe to call once after Start.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	if err := w.source.Close(); err != nil {
		log.Printf("watcher source close failed for %s: %v", w.root, err)
	}
	w.wg.Wait()
}

// Pending reports how many paths are waiting out their debounce window
func (w *Watcher) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// collect reads raw events and stamps each path's debounce clock. A
// ticker sweeps matured paths into the refresh queue.
func (w *Watcher) collect(ctx context.Context) {
	defer w.wg.Done()

	tick := time.NewTicker(w.window / 4)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.source.Events():
			if !ok {
				return
			}
			w.mu.Lock()
			w.pending[ev.Path] = time.Now()
			w.mu.Unlock()
		case now := <-tick.C:
			if w.sweep(now) {
				select {
				case w.queue <- struct{}{}:
				default:
					// queue full: a refresh is already pending, the
					// rescan will pick these changes up
				}
			}
		}
	}
}

// sweep clears paths whose debounce window has elapsed and reports
// whether any matured
func (w *Watcher) sweep(now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	matured := false
	for path, last := range w.pending {
		if now.Sub(last) >= w.window {
			delete(w.pending, path)
			matured = true
		}
	}
	return matured
}

// consume is the single consumer of the refresh queue
func (w *Watcher) consume(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.queue:
			// drain extra signals accumulated during the last run
			for {
				select {
				case <-w.queue:
					continue
				default:
				}
				break
			}
			if err := w.trigger(ctx, w.root); err != nil {
				log.Printf("watch refresh failed for %s: %v", w.root, err)
			}
		}
	}
}

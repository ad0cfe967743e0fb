package watcher

import (
	"context"
	"log"
	"time"

	"codescout/internal/config"
	"codescout/internal/scanner"
)

// PollSource produces events by periodically rescanning the project
// tree and diffing file metadata. It sees exactly the files the
// indexer would (same ignore rules and language filter), which keeps
// watch-triggered updates and manual updates in agreement.
type PollSource struct {
	root     string
	cfg      config.ScannerConfig
	interval time.Duration

	events chan Event
	cancel context.CancelFunc
}

type fileState struct {
	modTime time.Time
	size    int64
}

// NewPollSource starts polling root every interval
func NewPollSource(root string, cfg config.ScannerConfig, interval time.Duration) *PollSource {
	if interval <= 0 {
		interval = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &PollSource{
		root:     root,
		cfg:      cfg,
		interval: interval,
		events:   make(chan Event, 64),
		cancel:   cancel,
	}
	go p.loop(ctx)
	return p
}

// Events returns the event channel; it closes when the source stops
func (p *PollSource) Events() <-chan Event {
	return p.events
}

// Close stops polling and closes the event channel
func (p *PollSource) Close() error {
	p.cancel()
	return nil
}

func (p *PollSource) loop(ctx context.Context) {
	defer close(p.events)

	known, ready := p.snapshot()

	tick := time.NewTicker(p.interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			current, ok := p.snapshot()
			if !ok {
				// transient scan failure: keep the last good snapshot
				// so recovery does not look like a remove/create burst
				continue
			}
			if !ready {
				known, ready = current, true
				continue
			}
			for path, state := range current {
				prev, ok := known[path]
				switch {
				case !ok:
					p.emit(ctx, Event{Path: path, Op: OpCreate})
				case prev != state:
					p.emit(ctx, Event{Path: path, Op: OpWrite})
				}
			}
			for path := range known {
				if _, ok := current[path]; !ok {
					p.emit(ctx, Event{Path: path, Op: OpRemove})
				}
			}
			known = current
		}
	}
}

func (p *PollSource) snapshot() (map[string]fileState, bool) {
	files, _, err := scanner.Scan(p.root, p.cfg)
	if err != nil {
		log.Printf("watch poll of %s failed: %v", p.root, err)
		return nil, false
	}
	states := make(map[string]fileState, len(files))
	for _, fm := range files {
		states[fm.RelPath] = fileState{modTime: fm.ModTime, size: fm.Size}
	}
	return states, true
}

func (p *PollSource) emit(ctx context.Context, ev Event) {
	select {
	case p.events <- ev:
	case <-ctx.Done():
	}
}

package indexer

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"codescout/internal/config"
	"codescout/internal/embedder"
	"codescout/internal/extractor"
	"codescout/internal/scanner"
	"codescout/internal/storage"
)

// ErrIndexInProgress is returned when a project is already being indexed
var ErrIndexInProgress = errors.New("indexing already in progress for this project")

// Stats summarizes one indexing run
type Stats struct {
	RootPath       string               `json:"root_path"`
	FilesScanned   int                  `json:"files_scanned"`
	FilesIndexed   int                  `json:"files_indexed"`
	FilesSkipped   int                  `json:"files_skipped"`
	FilesRemoved   int                  `json:"files_removed"`
	FilesFailed    int                  `json:"files_failed"`
	Symbols        int                  `json:"symbols"`
	Chunks         int                  `json:"chunks"`
	ChunksEmbedded int                  `json:"chunks_embedded,omitempty"`
	DurationMS     int64                `json:"duration_ms"`
	Diagnostics    []scanner.Diagnostic `json:"diagnostics,omitempty"`
	Errors         []string             `json:"errors,omitempty"`
}

// Indexer drives the scan -> extract -> chunk -> store pipeline.
//
// Files are processed by a bounded worker pool, each committed in its
// own transaction, so cancellation between files leaves a consistent
// index covering the files committed so far. Per-root locks reject a
// concurrent run for the same project instead of queueing it.
type Indexer struct {
	registry  *storage.Registry
	extractor *extractor.Extractor
	emb       embedder.Embedder // nil disables embeddings
	cfg       *config.Config

	locks    lockSet
	onChange func(rootPath string)
}

// New creates an Indexer. emb may be nil.
func New(registry *storage.Registry, emb embedder.Embedder, cfg *config.Config) *Indexer {
	return &Indexer{
		registry:  registry,
		extractor: extractor.New(),
		emb:       emb,
		cfg:       cfg,
	}
}

// SetOnChange registers a hook invoked after any index mutation, with
// the canonical project root. The searcher uses it to drop cached
// results.
func (idx *Indexer) SetOnChange(fn func(rootPath string)) {
	idx.onChange = fn
}

// IndexProject indexes rootPath from scratch, creating the project
// database on first use. Re-running is incremental: unchanged files
// are skipped by content hash.
func (idx *Indexer) IndexProject(ctx context.Context, rootPath string) (*Stats, error) {
	return idx.run(ctx, rootPath, true)
}

// Update re-synchronizes an already-indexed project with the file
// tree: changed files are re-indexed, vanished files removed. Returns
// storage.ErrProjectNotFound when the project was never indexed.
func (idx *Indexer) Update(ctx context.Context, rootPath string) (*Stats, error) {
	return idx.run(ctx, rootPath, false)
}

func (idx *Indexer) run(ctx context.Context, rootPath string, create bool) (*Stats, error) {
	root, err := scanner.CanonicalRoot(rootPath)
	if err != nil {
		return nil, err
	}

	lock := idx.locks.forRoot(root)
	if !lock.TryAcquire() {
		return nil, fmt.Errorf("%w: %s", ErrIndexInProgress, root)
	}
	defer lock.Release()

	start := time.Now()
	stats := &Stats{RootPath: root}

	var store *storage.SQLiteStorage
	if create {
		store, err = idx.registry.Open(ctx, root)
	} else {
		store, err = idx.registry.Get(ctx, root)
	}
	if err != nil {
		return nil, err
	}

	files, diags, err := scanner.Scan(root, idx.cfg.Scanner)
	if err != nil {
		return nil, err
	}
	stats.FilesScanned = len(files)
	stats.Diagnostics = diags

	known, err := store.FileHashes(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(files))
	for _, fm := range files {
		seen[fm.RelPath] = struct{}{}
	}

	workers := idx.cfg.Indexer.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var indexed, skipped, failed, symbols, chunks atomic.Int64
	var errMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, fm := range files {
		fm := fm
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			symCount, chunkCount, changed, err := idx.indexOne(gctx, store, fm, known)
			switch {
			case err != nil:
				// one bad file never aborts the run
				failed.Add(1)
				errMu.Lock()
				stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", fm.RelPath, err))
				errMu.Unlock()
			case changed:
				indexed.Add(1)
				symbols.Add(int64(symCount))
				chunks.Add(int64(chunkCount))
			default:
				skipped.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for path := range known {
		if _, ok := seen[path]; ok {
			continue
		}
		if err := store.DeleteFile(ctx, path); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		stats.FilesRemoved++
	}

	if err := store.SetMeta(ctx, storage.MetaIndexedAt, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return nil, err
	}

	stats.FilesIndexed = int(indexed.Load())
	stats.FilesSkipped = int(skipped.Load())
	stats.FilesFailed = int(failed.Load())
	stats.Symbols = int(symbols.Load())
	stats.Chunks = int(chunks.Load())

	if idx.emb != nil {
		stats.ChunksEmbedded = idx.embedMissing(ctx, store)
	}

	stats.DurationMS = time.Since(start).Milliseconds()

	if idx.onChange != nil {
		idx.onChange(root)
	}
	return stats, nil
}

// indexOne runs the full pipeline for a single file. The resulting
// write is one transaction; changed=false means the stored hash
// already matched.
func (idx *Indexer) indexOne(ctx context.Context, store *storage.SQLiteStorage, fm scanner.FileMeta, known map[string][32]byte) (symCount, chunkCount int, changed bool, err error) {
	content, err := os.ReadFile(fm.AbsPath)
	if err != nil {
		return 0, 0, false, fmt.Errorf("failed to read: %w", err)
	}

	hash := sha256.Sum256(content)
	if prev, ok := known[fm.RelPath]; ok && prev == hash {
		return 0, 0, false, nil
	}

	syms := idx.extractor.Extract(ctx, content, fm.Language)
	chs := extractor.BuildChunks(string(content), syms, idx.cfg.Chunker)

	file := &storage.File{
		Path:        fm.RelPath,
		Language:    fm.Language,
		ContentHash: hash,
		ModTime:     fm.ModTime,
		SizeBytes:   fm.Size,
	}
	changed, err = store.UpsertFile(ctx, file, syms, chs)
	if err != nil {
		return 0, 0, false, err
	}
	return len(syms), len(chs), changed, nil
}

// embedMissing backfills vectors for chunks that have none. Provider
// failures are logged and abandon the backfill; they never fail the
// indexing run that triggered it.
func (idx *Indexer) embedMissing(ctx context.Context, store *storage.SQLiteStorage) int {
	missing, err := store.ChunksWithoutEmbedding(ctx, idx.emb.Model(), 0)
	if err != nil {
		log.Printf("embedding backfill skipped: %v", err)
		return 0
	}

	batchSize := idx.cfg.Embedding.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}

	embedded := 0
	for start := 0; start < len(missing); start += batchSize {
		end := start + batchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch := missing[start:end]

		texts := make([]string, len(batch))
		for i, ct := range batch {
			if ct.ContextBefore != "" {
				texts[i] = ct.ContextBefore + "\n" + ct.Content
			} else {
				texts[i] = ct.Content
			}
		}

		embCtx, cancel := context.WithTimeout(ctx, idx.cfg.Embedding.Timeout)
		vecs, err := idx.emb.EmbedBatch(embCtx, texts)
		cancel()
		if err != nil {
			log.Printf("embedding batch failed, leaving %d chunks without vectors: %v", len(missing)-embedded, err)
			return embedded
		}

		for i, vec := range vecs {
			if err := store.UpsertEmbedding(ctx, batch[i].ChunkID, vec, idx.emb.Model()); err != nil {
				log.Printf("failed to store embedding for chunk %d: %v", batch[i].ChunkID, err)
				continue
			}
			embedded++
		}
	}
	return embedded
}

// DeleteProject removes a project's database entirely
func (idx *Indexer) DeleteProject(ctx context.Context, rootPath string) error {
	root, err := scanner.CanonicalRoot(rootPath)
	if err != nil {
		// the directory may already be gone; deleting its index must
		// still work, so fall back to the absolute path
		if abs, absErr := filepath.Abs(rootPath); absErr == nil {
			root = abs
		} else {
			root = rootPath
		}
	}

	lock := idx.locks.forRoot(root)
	if !lock.TryAcquire() {
		return fmt.Errorf("%w: %s", ErrIndexInProgress, root)
	}
	defer lock.Release()

	if err := idx.registry.Remove(ctx, root); err != nil {
		return err
	}
	if idx.onChange != nil {
		idx.onChange(root)
	}
	return nil
}

// Status reports the index status for one project
func (idx *Indexer) Status(ctx context.Context, rootPath string) (*storage.Status, error) {
	root, err := scanner.CanonicalRoot(rootPath)
	if err != nil {
		return nil, err
	}
	store, err := idx.registry.Get(ctx, root)
	if err != nil {
		return nil, err
	}
	return store.Status(ctx)
}

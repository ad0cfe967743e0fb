package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codescout/internal/config"
	"codescout/internal/embedder"
	"codescout/internal/storage"
)

const mainSrc = `package main

func ProcessPayment(amount int) error {
	return chargeCard(amount)
}

func chargeCard(amount int) error {
	return nil
}
`

const authSrc = `package main

func AuthenticateUser(name, password string) bool {
	return name != "" && password != ""
}
`

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestIndexer(t *testing.T, emb embedder.Embedder) (*Indexer, *storage.Registry, *config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Indexer.Workers = 2

	reg, err := storage.NewRegistry(cfg.DataDir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })

	return New(reg, emb, cfg), reg, cfg
}

func TestIndexProjectFromScratch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", mainSrc)
	writeFile(t, root, "auth/auth.go", authSrc)
	writeFile(t, root, "README.txt", "not a source file")

	idx, reg, _ := newTestIndexer(t, nil)
	stats, err := idx.IndexProject(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.FilesScanned, "only recognized languages are indexed")
	assert.Equal(t, 2, stats.FilesIndexed)
	assert.Zero(t, stats.FilesSkipped)
	assert.Zero(t, stats.FilesFailed)
	assert.GreaterOrEqual(t, stats.Symbols, 3)
	assert.GreaterOrEqual(t, stats.Chunks, 2)

	store, err := reg.Get(context.Background(), stats.RootPath)
	require.NoError(t, err)
	status, err := store.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), status.Files)
	assert.False(t, status.IndexedAt.IsZero())
}

func TestIndexProjectIncremental(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", mainSrc)
	writeFile(t, root, "auth.go", authSrc)

	idx, _, _ := newTestIndexer(t, nil)
	ctx := context.Background()

	_, err := idx.IndexProject(ctx, root)
	require.NoError(t, err)

	// Nothing changed: everything skips
	stats, err := idx.IndexProject(ctx, root)
	require.NoError(t, err)
	assert.Zero(t, stats.FilesIndexed)
	assert.Equal(t, 2, stats.FilesSkipped)

	// One file modified, one removed, one added
	writeFile(t, root, "auth.go", authSrc+"\nfunc RevokeSession(id string) {}\n")
	writeFile(t, root, "extra.go", "package main\n\nfunc Extra() {}\n")
	require.NoError(t, os.Remove(filepath.Join(root, "main.go")))

	stats, err = idx.Update(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesIndexed, "modified and added files re-index")
	assert.Equal(t, 1, stats.FilesRemoved)
	assert.Zero(t, stats.FilesSkipped)
}

func TestUpdateUnindexedProject(t *testing.T) {
	idx, _, _ := newTestIndexer(t, nil)
	_, err := idx.Update(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, storage.ErrProjectNotFound)
}

func TestIndexProjectMissingRoot(t *testing.T) {
	idx, _, _ := newTestIndexer(t, nil)
	_, err := idx.IndexProject(context.Background(), "/nonexistent/path/xyz")
	assert.Error(t, err)
}

func TestIndexProjectReportsDiagnostics(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", mainSrc)
	writeFile(t, root, "huge.go", string(make([]byte, 2<<20)))

	idx, _, cfg := newTestIndexer(t, nil)
	cfg.Scanner.MaxFileSize = 1 << 20

	stats, err := idx.IndexProject(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesScanned)
	require.NotEmpty(t, stats.Diagnostics)
	assert.Equal(t, "huge.go", stats.Diagnostics[0].Path)
}

func TestIndexProjectOnChangeHook(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", mainSrc)

	idx, _, _ := newTestIndexer(t, nil)
	var notified []string
	idx.SetOnChange(func(rootPath string) { notified = append(notified, rootPath) })

	stats, err := idx.IndexProject(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, notified, 1)
	assert.Equal(t, stats.RootPath, notified[0])

	require.NoError(t, idx.DeleteProject(context.Background(), root))
	assert.Len(t, notified, 2)
}

func TestIndexProjectEmbeddingBackfill(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", mainSrc)

	emb, err := embedder.NewLocalProvider(nil)
	require.NoError(t, err)

	idx, reg, _ := newTestIndexer(t, emb)
	stats, err := idx.IndexProject(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, stats.Chunks, stats.ChunksEmbedded)

	store, err := reg.Get(context.Background(), stats.RootPath)
	require.NoError(t, err)
	has, err := store.HasEmbeddings(context.Background())
	require.NoError(t, err)
	assert.True(t, has)
}

func TestDeleteProject(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", mainSrc)

	idx, reg, _ := newTestIndexer(t, nil)
	ctx := context.Background()

	stats, err := idx.IndexProject(ctx, root)
	require.NoError(t, err)

	require.NoError(t, idx.DeleteProject(ctx, root))

	_, err = reg.Get(ctx, stats.RootPath)
	assert.ErrorIs(t, err, storage.ErrProjectNotFound)

	err = idx.DeleteProject(ctx, root)
	assert.ErrorIs(t, err, storage.ErrProjectNotFound)
}

func TestIndexLock(t *testing.T) {
	var set lockSet
	lock := set.forRoot("/work/app")

	require.True(t, lock.TryAcquire())
	assert.False(t, lock.TryAcquire(), "second acquire must fail while held")
	assert.False(t, set.forRoot("/work/app").TryAcquire(), "same root shares one lock")
	assert.True(t, set.forRoot("/work/other").TryAcquire(), "different roots are independent")

	lock.Release()
	assert.True(t, lock.TryAcquire())
}

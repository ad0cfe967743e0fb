package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Registry manages the per-project databases under a single data
// directory. Each project root maps to its own database file named by
// ProjectSlug; two distinct roots never share a database.
type Registry struct {
	dir string // <dataDir>/projects

	mu     sync.Mutex
	stores map[string]*SQLiteStorage // canonical root -> open store
}

// NewRegistry creates the projects directory under dataDir if needed
func NewRegistry(dataDir string) (*Registry, error) {
	dir := filepath.Join(dataDir, "projects")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create projects directory: %w", err)
	}
	return &Registry{dir: dir, stores: make(map[string]*SQLiteStorage)}, nil
}

// ProjectSlug derives the database file stem for a project root:
// the root's basename plus a short content hash of the full path.
// The hash keeps same-named projects in different parents apart.
func ProjectSlug(rootPath string) string {
	sum := sha256.Sum256([]byte(rootPath))
	return filepath.Base(rootPath) + "-" + hex.EncodeToString(sum[:])[:12]
}

// Open returns the store for rootPath, creating its database on first
// use. rootPath must already be absolute and symlink-resolved.
func (r *Registry) Open(ctx context.Context, rootPath string) (*SQLiteStorage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if store, ok := r.stores[rootPath]; ok {
		return store, nil
	}

	store, _, err := r.resolve(ctx, rootPath, true)
	if err != nil {
		return nil, err
	}
	r.stores[rootPath] = store
	return store, nil
}

// Get returns the store for an already-indexed project, or
// ErrProjectNotFound when no database exists for rootPath.
func (r *Registry) Get(ctx context.Context, rootPath string) (*SQLiteStorage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if store, ok := r.stores[rootPath]; ok {
		return store, nil
	}

	store, _, err := r.resolve(ctx, rootPath, false)
	if err != nil {
		return nil, err
	}
	r.stores[rootPath] = store
	return store, nil
}

// resolve walks the slug suffix chain until it finds the database
// recorded for rootPath. A truncated-hash collision (two roots mapping
// to the same slug) is disambiguated with a numeric suffix.
func (r *Registry) resolve(ctx context.Context, rootPath string, create bool) (*SQLiteStorage, string, error) {
	slug := ProjectSlug(rootPath)
	for i := 1; ; i++ {
		name := slug
		if i > 1 {
			name = fmt.Sprintf("%s-%d", slug, i)
		}
		dbPath := filepath.Join(r.dir, name+".db")

		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			if !create {
				return nil, "", fmt.Errorf("%w: %s", ErrProjectNotFound, rootPath)
			}
			store, err := Open(ctx, dbPath, rootPath)
			if err != nil {
				return nil, "", err
			}
			return store, dbPath, nil
		} else if err != nil {
			return nil, "", fmt.Errorf("failed to stat %s: %w", dbPath, err)
		}

		store, err := Open(ctx, dbPath, "")
		if err != nil {
			return nil, "", err
		}
		if store.RootPath() == rootPath {
			return store, dbPath, nil
		}
		// slug collision with a different project, try the next suffix
		if err := store.Close(); err != nil {
			return nil, "", err
		}
	}
}

// Remove closes and deletes the database for rootPath, including the
// WAL sidecar files. Returns ErrProjectNotFound for unknown roots.
func (r *Registry) Remove(ctx context.Context, rootPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var dbPath string
	if store, ok := r.stores[rootPath]; ok {
		dbPath = store.DBPath()
		if err := store.Close(); err != nil {
			return err
		}
		delete(r.stores, rootPath)
	} else {
		store, path, err := r.resolve(ctx, rootPath, false)
		if err != nil {
			return err
		}
		if err := store.Close(); err != nil {
			return err
		}
		dbPath = path
	}

	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", dbPath+suffix, err)
		}
	}
	return nil
}

// List reports every project database under the data directory,
// sorted by root path.
func (r *Registry) List(ctx context.Context) ([]ProjectInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	paths, err := filepath.Glob(filepath.Join(r.dir, "*.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to list project databases: %w", err)
	}

	openByPath := make(map[string]*SQLiteStorage, len(r.stores))
	for _, store := range r.stores {
		openByPath[store.DBPath()] = store
	}

	var infos []ProjectInfo
	for _, dbPath := range paths {
		store, open := openByPath[dbPath]
		if !open {
			store, err = Open(ctx, dbPath, "")
			if err != nil {
				return nil, err
			}
		}

		status, err := store.Status(ctx)
		if err != nil {
			if !open {
				store.Close()
			}
			return nil, err
		}
		infos = append(infos, ProjectInfo{
			RootPath:  status.RootPath,
			DBPath:    dbPath,
			Files:     status.Files,
			IndexedAt: status.IndexedAt,
		})

		if !open {
			if err := store.Close(); err != nil {
				return nil, err
			}
		}
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].RootPath < infos[j].RootPath })
	return infos, nil
}

// Close closes every open store
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for root, store := range r.stores {
		if err := store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(r.stores, root)
	}
	return firstErr
}

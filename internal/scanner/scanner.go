package scanner

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"codescout/internal/config"
)

var (
	// ErrRootNotFound is returned when the scan root does not exist
	ErrRootNotFound = errors.New("root path does not exist")
	// ErrNotDirectory is returned when the scan root is not a directory
	ErrNotDirectory = errors.New("root path is not a directory")
	// ErrOutsideRoot is returned by ResolveWithin for paths escaping the root
	ErrOutsideRoot = errors.New("path resolves outside the project root")
)

// binary heuristic parameters: a file is binary if its sample window
// contains a NUL byte or too high a ratio of non-text bytes
const (
	binarySampleSize  = 8 * 1024
	binaryRatioCutoff = 0.30
)

// FileMeta describes one indexable file discovered under the root
type FileMeta struct {
	RelPath  string // slash-separated, relative to root
	AbsPath  string
	Language string
	Size     int64
	ModTime  time.Time
}

// DiagKind classifies a per-file scan diagnostic
type DiagKind string

const (
	DiagSymlinkEscape DiagKind = "symlink_escape"
	DiagTooLarge      DiagKind = "too_large"
	DiagBinary        DiagKind = "binary"
	DiagUnreadable    DiagKind = "unreadable"
)

// Diagnostic records why a file was excluded from the scan.
// Diagnostics are per-file and non-fatal; the scan as a whole succeeds.
type Diagnostic struct {
	Path   string
	Kind   DiagKind
	Detail string
}

func (d Diagnostic) String() string {
	if d.Detail == "" {
		return fmt.Sprintf("%s: %s", d.Path, d.Kind)
	}
	return fmt.Sprintf("%s: %s (%s)", d.Path, d.Kind, d.Detail)
}

// Scan walks the tree under root and returns metadata for every indexable
// file, ordered lexicographically by relative path, plus diagnostics for
// every file that was considered and excluded. Symlinks are resolved and any
// target outside the root is recorded as a symlink_escape diagnostic, never
// followed.
func Scan(root string, cfg config.ScannerConfig) ([]FileMeta, []Diagnostic, error) {
	absRoot, err := resolveRoot(root)
	if err != nil {
		return nil, nil, err
	}

	var files []FileMeta
	var diags []Diagnostic

	ignored := make(map[string]bool, len(cfg.IgnoreDirs))
	for _, d := range cfg.IgnoreDirs {
		ignored[d] = true
	}

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			rel := relOrSelf(absRoot, path)
			diags = append(diags, Diagnostic{Path: rel, Kind: DiagUnreadable, Detail: err.Error()})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel := relOrSelf(absRoot, path)

		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			if ignored[d.Name()] {
				return filepath.SkipDir
			}
			if d.Type()&fs.ModeSymlink != 0 {
				// WalkDir does not follow directory symlinks; nothing to do
				return nil
			}
			return nil
		}

		lang, ok := cfg.Languages[strings.ToLower(filepath.Ext(path))]
		if !ok {
			return nil
		}

		realPath := path
		if d.Type()&fs.ModeSymlink != 0 {
			resolved, rerr := filepath.EvalSymlinks(path)
			if rerr != nil {
				diags = append(diags, Diagnostic{Path: rel, Kind: DiagUnreadable, Detail: rerr.Error()})
				return nil
			}
			if !within(absRoot, resolved) {
				diags = append(diags, Diagnostic{Path: rel, Kind: DiagSymlinkEscape, Detail: resolved})
				return nil
			}
			realPath = resolved
		}

		info, ierr := os.Stat(realPath)
		if ierr != nil {
			diags = append(diags, Diagnostic{Path: rel, Kind: DiagUnreadable, Detail: ierr.Error()})
			return nil
		}
		if info.Size() == 0 {
			return nil
		}
		if info.Size() > cfg.MaxFileSize {
			diags = append(diags, Diagnostic{
				Path: rel, Kind: DiagTooLarge,
				Detail: fmt.Sprintf("%d bytes exceeds cap of %d", info.Size(), cfg.MaxFileSize),
			})
			return nil
		}

		binary, berr := looksBinary(realPath)
		if berr != nil {
			diags = append(diags, Diagnostic{Path: rel, Kind: DiagUnreadable, Detail: berr.Error()})
			return nil
		}
		if binary {
			diags = append(diags, Diagnostic{Path: rel, Kind: DiagBinary})
			return nil
		}

		files = append(files, FileMeta{
			RelPath:  rel,
			AbsPath:  path,
			Language: lang,
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
		return nil
	})
	if walkErr != nil {
		return nil, nil, fmt.Errorf("failed to walk %s: %w", root, walkErr)
	}

	// Deterministic ordering for downstream indexing
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })

	return files, diags, nil
}

// ResolveWithin resolves rel against root and verifies the result stays
// inside the root after symlink resolution. It is the shared containment
// guard for direct file reads.
func ResolveWithin(root, rel string) (string, error) {
	absRoot, err := resolveRoot(root)
	if err != nil {
		return "", err
	}

	joined := filepath.Join(absRoot, filepath.FromSlash(rel))
	if !within(absRoot, joined) {
		return "", fmt.Errorf("%s: %w", rel, ErrOutsideRoot)
	}

	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", rel, err)
	}
	if !within(absRoot, resolved) {
		return "", fmt.Errorf("%s: %w", rel, ErrOutsideRoot)
	}

	return resolved, nil
}

// ReadFile reads at most maxBytes of the file at rel under root, using the
// same containment guard as the scanner. It reports whether the content was
// truncated.
func ReadFile(root, rel string, maxBytes int64) (content string, truncated bool, err error) {
	path, err := ResolveWithin(root, rel)
	if err != nil {
		return "", false, err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", false, fmt.Errorf("failed to open %s: %w", rel, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes))
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", rel, err)
	}

	if info, serr := f.Stat(); serr == nil && info.Size() > maxBytes {
		truncated = true
	}
	return string(data), truncated, nil
}

// CanonicalRoot resolves a project root to its absolute, symlink-free
// form. Every subsystem that keys state by project root goes through
// this so the same directory never maps to two identities.
func CanonicalRoot(root string) (string, error) {
	return resolveRoot(root)
}

// resolveRoot canonicalizes the root so containment checks compare resolved
// paths on both sides
func resolveRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve root %s: %w", root, err)
	}

	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%s: %w", root, ErrRootNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat root %s: %w", root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s: %w", root, ErrNotDirectory)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("failed to resolve root %s: %w", root, err)
	}
	return resolved, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func relOrSelf(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// looksBinary samples the head of the file and applies the NUL-byte and
// non-text-ratio heuristics
func looksBinary(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, binarySampleSize)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return false, err
	}
	sample := buf[:n]

	nonText := 0
	for _, b := range sample {
		if b == 0 {
			return true, nil
		}
		if b < 0x20 && b != '\n' && b != '\r' && b != '\t' && b != '\f' {
			nonText++
		}
	}
	if !utf8.Valid(sample) {
		// Allow a partial rune at the window edge before declaring binary
		trimmed := sample
		for i := 0; i < utf8.UTFMax && len(trimmed) > 0 && !utf8.Valid(trimmed); i++ {
			trimmed = trimmed[:len(trimmed)-1]
		}
		if !utf8.Valid(trimmed) {
			return true, nil
		}
	}
	if len(sample) > 0 && float64(nonText)/float64(len(sample)) > binaryRatioCutoff {
		return true, nil
	}
	return false, nil
}

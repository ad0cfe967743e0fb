package scanner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codescout/internal/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func scanCfg() config.ScannerConfig {
	return config.ScannerConfig{
		MaxFileSize: 1 << 20,
		IgnoreDirs:  config.DefaultIgnoreDirs(),
		Languages:   config.DefaultLanguages(),
	}
}

func TestScanOrderingAndLanguages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "zeta.go", "package main\n")
	writeFile(t, dir, "alpha.py", "def f():\n    pass\n")
	writeFile(t, dir, "sub/beta.ts", "export const x = 1\n")
	writeFile(t, dir, "notes.xyz", "not indexable\n")

	files, diags, err := Scan(dir, scanCfg())
	require.NoError(t, err)
	assert.Empty(t, diags)

	require.Len(t, files, 3)
	assert.Equal(t, "alpha.py", files[0].RelPath)
	assert.Equal(t, "sub/beta.ts", files[1].RelPath)
	assert.Equal(t, "zeta.go", files[2].RelPath)

	assert.Equal(t, "python", files[0].Language)
	assert.Equal(t, "typescript", files[1].Language)
	assert.Equal(t, "go", files[2].Language)
}

func TestScanSkipsIgnoredDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n")
	writeFile(t, dir, "node_modules/pkg/index.js", "module.exports = {}\n")
	writeFile(t, dir, ".git/hooks/thing.py", "x = 1\n")

	files, _, err := Scan(dir, scanCfg())
	require.NoError(t, err)

	require.Len(t, files, 1)
	assert.Equal(t, "main.go", files[0].RelPath)
}

func TestScanOversizedFileDiagnostic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "big.py", strings.Repeat("x = 1\n", 100))

	cfg := scanCfg()
	cfg.MaxFileSize = 32

	files, diags, err := Scan(dir, cfg)
	require.NoError(t, err)
	assert.Empty(t, files)

	require.Len(t, diags, 1)
	assert.Equal(t, DiagTooLarge, diags[0].Kind)
	assert.Equal(t, "big.py", diags[0].Path)
}

func TestScanBinaryFileDiagnostic(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blob.go"), []byte("package\x00main"), 0o644))
	writeFile(t, dir, "ok.go", "package main\n")

	files, diags, err := Scan(dir, scanCfg())
	require.NoError(t, err)

	require.Len(t, files, 1)
	assert.Equal(t, "ok.go", files[0].RelPath)
	require.Len(t, diags, 1)
	assert.Equal(t, DiagBinary, diags[0].Kind)
}

func TestScanSymlinkEscape(t *testing.T) {
	outside := t.TempDir()
	secret := writeFile(t, outside, "secret.py", "password = 'hunter2'\n")

	dir := t.TempDir()
	writeFile(t, dir, "main.py", "print('hi')\n")
	require.NoError(t, os.Symlink(secret, filepath.Join(dir, "link.py")))

	files, diags, err := Scan(dir, scanCfg())
	require.NoError(t, err)

	require.Len(t, files, 1)
	assert.Equal(t, "main.py", files[0].RelPath)

	require.Len(t, diags, 1)
	assert.Equal(t, DiagSymlinkEscape, diags[0].Kind)
	assert.Equal(t, "link.py", diags[0].Path)
}

func TestScanSymlinkInsideRootIsIndexed(t *testing.T) {
	dir := t.TempDir()
	target := writeFile(t, dir, "real.py", "x = 1\n")
	require.NoError(t, os.Symlink(target, filepath.Join(dir, "alias.py")))

	files, diags, err := Scan(dir, scanCfg())
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.Len(t, files, 2)
}

func TestScanMissingRoot(t *testing.T) {
	_, _, err := Scan(filepath.Join(t.TempDir(), "missing"), scanCfg())
	assert.ErrorIs(t, err, ErrRootNotFound)
}

func TestScanEmptyProject(t *testing.T) {
	files, diags, err := Scan(t.TempDir(), scanCfg())
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Empty(t, diags)
}

func TestResolveWithin(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a/b.go", "package b\n")

	resolved, err := ResolveWithin(dir, "a/b.go")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(resolved, filepath.Join("a", "b.go")))

	_, err = ResolveWithin(dir, "../outside.go")
	assert.ErrorIs(t, err, ErrOutsideRoot)

	_, err = ResolveWithin(dir, "a/../../outside.go")
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestReadFileTruncation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "long.py", strings.Repeat("a", 100))

	content, truncated, err := ReadFile(dir, "long.py", 10)
	require.NoError(t, err)
	assert.Len(t, content, 10)
	assert.True(t, truncated)

	content, truncated, err = ReadFile(dir, "long.py", 1000)
	require.NoError(t, err)
	assert.Len(t, content, 100)
	assert.False(t, truncated)
}

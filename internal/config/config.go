package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all engine configuration. Defaults are documented on each
// field; a YAML file can override any subset of them.
type Config struct {
	// DataDir is where per-project index databases live.
	// Default: ~/.codescout
	DataDir string `yaml:"data_dir"`

	Scanner   ScannerConfig   `yaml:"scanner"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Search    SearchConfig    `yaml:"search"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Indexer   IndexerConfig   `yaml:"indexer"`
	Watcher   WatcherConfig   `yaml:"watcher"`
}

// ScannerConfig controls file discovery
type ScannerConfig struct {
	// MaxFileSize caps the size of a file eligible for indexing (bytes)
	MaxFileSize int64 `yaml:"max_file_size"`

	// IgnoreDirs are directory names never descended into
	IgnoreDirs []string `yaml:"ignore_dirs"`

	// Languages maps file extensions (with leading dot) to language tags.
	// Files with unmapped extensions are not indexed.
	Languages map[string]string `yaml:"languages"`
}

// ChunkerConfig controls how file content is split into chunks
type ChunkerConfig struct {
	// TokenBudget is the target number of normalized terms per chunk
	TokenBudget int `yaml:"token_budget"`

	// Epsilon widens the closing band: a chunk prefers to close at a
	// boundary once its size is within [TokenBudget-Epsilon, TokenBudget]
	Epsilon int `yaml:"epsilon"`

	// OverlapLines is the number of trailing lines carried as context into
	// the next chunk when an oversized symbol is hard-split
	OverlapLines int `yaml:"overlap_lines"`
}

// SearchConfig controls ranking
type SearchConfig struct {
	// BM25 parameters
	K1 float64 `yaml:"k1"` // term-frequency saturation
	B  float64 `yaml:"b"`  // length normalization

	// Signal weights
	LexicalWeight  float64 `yaml:"lexical_weight"`
	SymbolWeight   float64 `yaml:"symbol_weight"`
	SemanticWeight float64 `yaml:"semantic_weight"`

	// Symbol-name match bonus tiers, exact > prefix > substring
	ExactBonus     float64 `yaml:"exact_bonus"`
	PrefixBonus    float64 `yaml:"prefix_bonus"`
	SubstringBonus float64 `yaml:"substring_bonus"`

	// Query result cache
	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// EmbeddingConfig controls the optional embedding provider
type EmbeddingConfig struct {
	// Provider selects the backend: "openai", "ollama", "local", or ""
	// (disabled)
	Provider string `yaml:"provider"`

	Model    string `yaml:"model"`
	Endpoint string `yaml:"endpoint"` // Ollama only

	// APIKeyEnv names the environment variable holding the provider key
	APIKeyEnv string `yaml:"api_key_env"`

	// Timeout bounds a single embedding call; a timed-out call degrades
	// the query to lexical-only
	Timeout   time.Duration `yaml:"timeout"`
	CacheSize int           `yaml:"cache_size"`
	BatchSize int           `yaml:"batch_size"`
}

// IndexerConfig controls bulk indexing
type IndexerConfig struct {
	// Workers bounds the extraction worker pool; 0 means NumCPU
	Workers int `yaml:"workers"`
}

// WatcherConfig controls change-event debouncing
type WatcherConfig struct {
	// DebounceWindow coalesces events per path within this window
	DebounceWindow time.Duration `yaml:"debounce_window"`

	// QueueSize bounds the pending event queue
	QueueSize int `yaml:"queue_size"`
}

// DefaultLanguages maps the extensions recognized out of the box
func DefaultLanguages() map[string]string {
	return map[string]string{
		".go":   "go",
		".py":   "python",
		".js":   "javascript",
		".jsx":  "javascript",
		".ts":   "typescript",
		".tsx":  "typescript",
		".rs":   "rust",
		".java": "java",
		".rb":   "ruby",
	}
}

// DefaultIgnoreDirs lists directory names that never contain indexable
// project code
func DefaultIgnoreDirs() []string {
	return []string{
		".git", ".svn", ".hg",
		"node_modules", "__pycache__", ".venv", "venv",
		".pytest_cache", ".mypy_cache",
		"dist", "build", ".next", ".nuxt", "coverage",
		"target", ".gradle", "out",
		"bin", "obj",
		"vendor", ".bundle",
		"tmp", "temp", "logs", ".cache",
		".idea", ".vscode",
	}
}

// Default returns the configuration with all documented defaults applied
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return &Config{
		DataDir: filepath.Join(home, ".codescout"),
		Scanner: ScannerConfig{
			MaxFileSize: 1 << 20, // 1 MB
			IgnoreDirs:  DefaultIgnoreDirs(),
			Languages:   DefaultLanguages(),
		},
		Chunker: ChunkerConfig{
			TokenBudget:  300,
			Epsilon:      60,
			OverlapLines: 10,
		},
		Search: SearchConfig{
			K1:             1.2,
			B:              0.75,
			LexicalWeight:  1.0,
			SymbolWeight:   0.5,
			SemanticWeight: 0.75,
			ExactBonus:     1.0,
			PrefixBonus:    0.6,
			SubstringBonus: 0.3,
			CacheSize:      128,
			CacheTTL:       5 * time.Minute,
		},
		Embedding: EmbeddingConfig{
			Provider:  "",
			Timeout:   10 * time.Second,
			CacheSize: 1024,
			BatchSize: 32,
		},
		Indexer: IndexerConfig{
			Workers: runtime.NumCPU(),
		},
		Watcher: WatcherConfig{
			DebounceWindow: 2 * time.Second,
			QueueSize:      256,
		},
	}
}

// Load reads a YAML config file and overlays it on the defaults.
// A missing file is not an error; the defaults are returned unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyFallbacks()
	return cfg, nil
}

// DefaultPath returns the conventional config file location
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".codescout", "config.yaml")
}

// applyFallbacks restores defaults for values a config file zeroed out or
// omitted in a partial section
func (c *Config) applyFallbacks() {
	def := Default()

	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.Scanner.MaxFileSize <= 0 {
		c.Scanner.MaxFileSize = def.Scanner.MaxFileSize
	}
	if len(c.Scanner.IgnoreDirs) == 0 {
		c.Scanner.IgnoreDirs = def.Scanner.IgnoreDirs
	}
	if len(c.Scanner.Languages) == 0 {
		c.Scanner.Languages = def.Scanner.Languages
	}
	if c.Chunker.TokenBudget <= 0 {
		c.Chunker.TokenBudget = def.Chunker.TokenBudget
	}
	if c.Chunker.Epsilon <= 0 {
		c.Chunker.Epsilon = def.Chunker.Epsilon
	}
	if c.Chunker.OverlapLines <= 0 {
		c.Chunker.OverlapLines = def.Chunker.OverlapLines
	}
	if c.Search.K1 <= 0 {
		c.Search.K1 = def.Search.K1
	}
	if c.Search.B <= 0 {
		c.Search.B = def.Search.B
	}
	if c.Search.CacheSize <= 0 {
		c.Search.CacheSize = def.Search.CacheSize
	}
	if c.Search.CacheTTL <= 0 {
		c.Search.CacheTTL = def.Search.CacheTTL
	}
	if c.Embedding.Timeout <= 0 {
		c.Embedding.Timeout = def.Embedding.Timeout
	}
	if c.Embedding.CacheSize <= 0 {
		c.Embedding.CacheSize = def.Embedding.CacheSize
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = def.Embedding.BatchSize
	}
	if c.Indexer.Workers <= 0 {
		c.Indexer.Workers = def.Indexer.Workers
	}
	if c.Watcher.DebounceWindow <= 0 {
		c.Watcher.DebounceWindow = def.Watcher.DebounceWindow
	}
	if c.Watcher.QueueSize <= 0 {
		c.Watcher.QueueSize = def.Watcher.QueueSize
	}
}

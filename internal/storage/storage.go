package storage

import (
	"context"
	"errors"
	"time"

	"codescout/pkg/types"
)

// Sentinel errors for storage operations
var (
	ErrNotFound        = errors.New("record not found")
	ErrProjectNotFound = errors.New("project not indexed")
	ErrClosed          = errors.New("storage is closed")
)

// Meta keys stored per project database
const (
	MetaRootPath  = "root_path"
	MetaCreatedAt = "created_at"
	MetaIndexedAt = "indexed_at"
)

// File is an indexed file record
type File struct {
	ID          int64
	Path        string // Relative to project root, slash-separated
	Language    string
	ContentHash [32]byte
	ModTime     time.Time
	SizeBytes   int64
}

// CandidateChunk carries everything the scorer needs about one chunk:
// its location, owned content, query-term frequencies, the names of
// symbols overlapping its line range, and optionally its embedding.
type CandidateChunk struct {
	ChunkID       int64
	FilePath      string
	StartLine     int
	EndLine       int
	Content       string
	ContextBefore string
	TokenCount    int
	TermFreqs     map[string]int
	SymbolNames   []string
	Vector        []float32
}

// CorpusStats holds the global quantities BM25 scoring depends on
type CorpusStats struct {
	TotalChunks int64
	TotalTokens int64
	DocFreq     map[string]int64
}

// AvgChunkLen returns the mean token count per chunk, 0 for an empty corpus
func (s *CorpusStats) AvgChunkLen() float64 {
	if s.TotalChunks == 0 {
		return 0
	}
	return float64(s.TotalTokens) / float64(s.TotalChunks)
}

// ChunkText identifies a chunk awaiting an embedding
type ChunkText struct {
	ChunkID       int64
	Content       string
	ContextBefore string
}

// Status contains statistics about one project index
type Status struct {
	RootPath    string    `json:"root_path"`
	DBPath      string    `json:"db_path"`
	Files       int64     `json:"files"`
	Symbols     int64     `json:"symbols"`
	Chunks      int64     `json:"chunks"`
	Terms       int64     `json:"terms"`
	Embeddings  int64     `json:"embeddings"`
	TotalTokens int64     `json:"total_tokens"`
	IndexedAt   time.Time `json:"indexed_at,omitempty"`
	SizeBytes   int64     `json:"size_bytes"`
}

// ProjectInfo describes one entry in the registry listing
type ProjectInfo struct {
	RootPath  string    `json:"root_path"`
	DBPath    string    `json:"db_path"`
	Files     int64     `json:"files"`
	IndexedAt time.Time `json:"indexed_at,omitempty"`
}

// Storage is the per-project index store.
//
// UpsertFile and DeleteFile maintain the derived term statistics
// (per-term document frequency and the global chunk and token totals)
// inside the same transaction as the row changes, so readers never
// observe an index whose statistics disagree with its chunks.
type Storage interface {
	// RootPath returns the canonical project root this store indexes
	RootPath() string

	// UpsertFile replaces all indexed data for one file atomically.
	// When the stored content hash matches file.ContentHash the call
	// is a no-op and returns changed=false.
	UpsertFile(ctx context.Context, file *File, symbols []types.Symbol, chunks []types.Chunk) (changed bool, err error)

	// DeleteFile removes a file and all derived data, reversing its
	// statistics contributions. Returns ErrNotFound for unknown paths.
	DeleteFile(ctx context.Context, relPath string) error

	// FileHashes returns path -> content hash for every indexed file
	FileHashes(ctx context.Context) (map[string][32]byte, error)

	// GetFile looks up one file record by relative path
	GetFile(ctx context.Context, relPath string) (*File, error)

	// Candidates returns every chunk matching at least one query term,
	// either through its term frequencies or through a substring match
	// on an overlapping symbol name, plus the corpus statistics needed
	// to score them. Results are ordered by (file path, start line).
	Candidates(ctx context.Context, terms []string, withVectors bool) ([]CandidateChunk, *CorpusStats, error)

	// ChunksWithoutEmbedding lists chunks that have no stored vector
	// for the given model, up to limit (0 means no limit)
	ChunksWithoutEmbedding(ctx context.Context, model string, limit int) ([]ChunkText, error)

	// UpsertEmbedding stores or replaces the vector for a chunk
	UpsertEmbedding(ctx context.Context, chunkID int64, vector []float32, model string) error

	// HasEmbeddings reports whether any chunk has a stored vector
	HasEmbeddings(ctx context.Context) (bool, error)

	// GetMeta and SetMeta access the per-project metadata table
	GetMeta(ctx context.Context, key string) (string, error)
	SetMeta(ctx context.Context, key, value string) error

	// Status reports index counts and timestamps for this project
	Status(ctx context.Context) (*Status, error)

	Close() error
}

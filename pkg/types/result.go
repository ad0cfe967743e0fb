package types

// ScoreBreakdown exposes the individual ranking signals that produced a
// result's final score
type ScoreBreakdown struct {
	Lexical     float64 // normalized BM25 term score
	SymbolBonus float64 // symbol-name match bonus
	Semantic    float64 // cosine similarity, zero when no embedding exists
}

// SearchResult represents a single ranked chunk returned by search
type SearchResult struct {
	// Identification
	ChunkID int64
	Rank    int // Position in result set (1-based)

	// Scoring
	Score     float64
	Breakdown ScoreBreakdown

	// Location
	FilePath  string // Relative to project root
	StartLine int
	EndLine   int

	// Content
	Content string
	Context string // Carried context from a hard split, may be empty
}

// FileMatch represents a single ranked file returned by find_files.
// The score is that of the file's best-scoring chunk.
type FileMatch struct {
	Path        string
	Score       float64
	BestChunkID int64
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.ChunkID == 0 {
		return ErrInvalidChunkID
	}

	if sr.Rank < 1 {
		return ErrInvalidRank
	}

	if sr.Score < 0 {
		return ErrInvalidScore
	}

	if sr.FilePath == "" {
		return ErrMissingFilePath
	}

	if sr.Content == "" {
		return ErrEmptyContent
	}

	return nil
}

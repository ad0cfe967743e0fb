package types

import "errors"

// Chunk represents a contiguous line-range slice of a file, the atomic unit
// returned by retrieval. Chunks partition a file: every line belongs to
// exactly one chunk. When an oversized symbol is hard-split, the continuation
// chunk carries the trailing lines of its predecessor in ContextBefore so a
// match near the split keeps context; the owned line range never overlaps.
type Chunk struct {
	// Identification
	ID     int64
	FileID int64

	// Location (1-based, inclusive)
	StartLine int
	EndLine   int

	// Content
	Content       string
	ContextBefore string

	// Term statistics for the owned content only
	TokenCount int
	Terms      map[string]int
}

// ValidateContent checks if the chunk content is valid
func (c *Chunk) ValidateContent() error {
	if c.Content == "" {
		return errors.New("chunk content cannot be empty")
	}

	if c.StartLine <= 0 || c.EndLine <= 0 {
		return errors.New("line numbers must be positive")
	}

	if c.StartLine > c.EndLine {
		return errors.New("start line must be before or equal to end line")
	}

	return nil
}

// Validate performs comprehensive validation of the chunk
func (c *Chunk) Validate() error {
	if err := c.ValidateContent(); err != nil {
		return err
	}

	if c.TokenCount < 0 {
		return errors.New("token count cannot be negative")
	}

	return nil
}

// FullContent returns the chunk text prefixed with its carried context
func (c *Chunk) FullContent() string {
	if c.ContextBefore == "" {
		return c.Content
	}
	return c.ContextBefore + "\n" + c.Content
}

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymbolValidate(t *testing.T) {
	tests := []struct {
		name    string
		symbol  Symbol
		wantErr bool
	}{
		{
			name:   "valid function",
			symbol: Symbol{Name: "authenticate", Kind: KindFunction, StartLine: 5, EndLine: 20},
		},
		{
			name:   "valid approximate symbol",
			symbol: Symbol{Name: "login", Kind: KindFunction, StartLine: 3, EndLine: 3, Approximate: true},
		},
		{
			name:    "missing name",
			symbol:  Symbol{Kind: KindFunction, StartLine: 1, EndLine: 2},
			wantErr: true,
		},
		{
			name:    "invalid kind",
			symbol:  Symbol{Name: "x", Kind: "widget", StartLine: 1, EndLine: 2},
			wantErr: true,
		},
		{
			name:    "zero start line",
			symbol:  Symbol{Name: "x", Kind: KindFunction, StartLine: 0, EndLine: 2},
			wantErr: true,
		},
		{
			name:    "inverted range",
			symbol:  Symbol{Name: "x", Kind: KindFunction, StartLine: 9, EndLine: 2},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.symbol.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSymbolContains(t *testing.T) {
	s := Symbol{Name: "f", Kind: KindFunction, StartLine: 5, EndLine: 10}

	assert.True(t, s.Contains(5))
	assert.True(t, s.Contains(7))
	assert.True(t, s.Contains(10))
	assert.False(t, s.Contains(4))
	assert.False(t, s.Contains(11))
}

func TestChunkValidate(t *testing.T) {
	chunk := Chunk{
		StartLine:  1,
		EndLine:    10,
		Content:    "func main() {}",
		TokenCount: 2,
	}
	require.NoError(t, chunk.Validate())

	empty := Chunk{StartLine: 1, EndLine: 2}
	assert.Error(t, empty.Validate())

	inverted := Chunk{StartLine: 5, EndLine: 1, Content: "x"}
	assert.Error(t, inverted.Validate())
}

func TestChunkFullContent(t *testing.T) {
	chunk := Chunk{Content: "body"}
	assert.Equal(t, "body", chunk.FullContent())

	chunk.ContextBefore = "carried"
	assert.Equal(t, "carried\nbody", chunk.FullContent())
}

func TestSearchResultValidate(t *testing.T) {
	result := SearchResult{
		ChunkID:  1,
		Rank:     1,
		Score:    0.8,
		FilePath: "auth.py",
		Content:  "def authenticate(user, password):",
	}
	require.NoError(t, result.Validate())

	result.Rank = 0
	assert.ErrorIs(t, result.Validate(), ErrInvalidRank)
}

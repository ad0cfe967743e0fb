package extractor

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codescout/internal/config"
	"codescout/pkg/types"
)

func chunkCfg() config.ChunkerConfig {
	return config.ChunkerConfig{
		TokenBudget:  300,
		Epsilon:      60,
		OverlapLines: 10,
	}
}

func TestBuildChunksEmptyContent(t *testing.T) {
	assert.Nil(t, BuildChunks("", nil, chunkCfg()))
	assert.Nil(t, BuildChunks("\n\n\n", nil, chunkCfg()))
}

func TestBuildChunksSmallFileSingleChunk(t *testing.T) {
	content := "def authenticate(user, password):\n    return user == password\n"
	symbols := []types.Symbol{
		{Name: "authenticate", Kind: types.KindFunction, StartLine: 1, EndLine: 2},
	}

	chunks := BuildChunks(content, symbols, chunkCfg())
	require.Len(t, chunks, 1)

	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Contains(t, chunks[0].Content, "authenticate")
	assert.Equal(t, chunks[0].TokenCount, sumFreqs(chunks[0].Terms))
}

func TestBuildChunksPartitionInvariant(t *testing.T) {
	// Many small functions so multiple chunks are produced
	var b strings.Builder
	var symbols []types.Symbol
	line := 1
	for i := 0; i < 40; i++ {
		start := line
		fmt.Fprintf(&b, "func processOrderBatch%d(warehouse string) error {\n", i)
		for j := 0; j < 10; j++ {
			fmt.Fprintf(&b, "\tshipment := prepareShipment(warehouse, %d)\n", j)
			line++
		}
		b.WriteString("\treturn nil\n}\n\n")
		line += 4
		symbols = append(symbols, types.Symbol{
			Name: fmt.Sprintf("processOrderBatch%d", i), Kind: types.KindFunction,
			StartLine: start, EndLine: line - 2,
		})
	}

	content := b.String()
	chunks := BuildChunks(content, symbols, chunkCfg())
	require.Greater(t, len(chunks), 1)

	// Owned ranges are contiguous and non-overlapping
	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, chunks[i-1].EndLine+1, chunks[i].StartLine,
			"chunk %d must start right after its predecessor", i)
	}
	assert.Equal(t, 1, chunks[0].StartLine)
}

func TestBuildChunksRespectsSymbolBoundaries(t *testing.T) {
	var b strings.Builder
	var symbols []types.Symbol
	line := 1
	for i := 0; i < 12; i++ {
		start := line
		fmt.Fprintf(&b, "func handleInventoryUpdate%d(ctx context.Context) error {\n", i)
		for j := 0; j < 15; j++ {
			b.WriteString("\tcurrent := reconcileStockLevel(ctx, itemIdentifier, quantityDelta)\n")
			line++
		}
		b.WriteString("\treturn nil\n}\n\n")
		line += 4
		symbols = append(symbols, types.Symbol{
			Name: fmt.Sprintf("handleInventoryUpdate%d", i), Kind: types.KindFunction,
			StartLine: start, EndLine: line - 2,
		})
	}

	chunks := BuildChunks(b.String(), symbols, chunkCfg())
	require.Greater(t, len(chunks), 1)

	// No chunk boundary may fall strictly inside a symbol span: every
	// symbol fits in the budget here, so each must live in one chunk
	for _, s := range symbols {
		owners := 0
		for _, c := range chunks {
			if s.StartLine >= c.StartLine && s.EndLine <= c.EndLine {
				owners++
			}
		}
		assert.Equal(t, 1, owners, "symbol %s must be owned by exactly one chunk", s.Name)
	}
}

func TestBuildChunksOversizedSymbolHardSplit(t *testing.T) {
	var b strings.Builder
	b.WriteString("func enormousStateMachine(input string) string {\n")
	for i := 0; i < 400; i++ {
		fmt.Fprintf(&b, "\ttransition := evaluateGuardCondition(currentState, inputSymbol, %d)\n", i)
	}
	b.WriteString("\treturn finalState\n}\n")

	content := b.String()
	symbols := []types.Symbol{
		{Name: "enormousStateMachine", Kind: types.KindFunction, StartLine: 1, EndLine: 403},
	}

	cfg := chunkCfg()
	chunks := BuildChunks(content, symbols, cfg)
	require.Greater(t, len(chunks), 1)

	// Continuations carry overlap context, owned ranges stay disjoint
	for i := 1; i < len(chunks); i++ {
		assert.NotEmpty(t, chunks[i].ContextBefore, "continuation %d must carry context", i)
		assert.Equal(t, chunks[i-1].EndLine+1, chunks[i].StartLine)

		ctxLines := strings.Split(chunks[i].ContextBefore, "\n")
		assert.LessOrEqual(t, len(ctxLines), cfg.OverlapLines)
		// Context is the predecessor's tail
		assert.Contains(t, chunks[i-1].Content, ctxLines[len(ctxLines)-1])
	}
	assert.Empty(t, chunks[0].ContextBefore)
}

func TestBuildChunksLeadingBlankLinesBeforeOversizedSymbol(t *testing.T) {
	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString("func migrateLegacyRecords(batch []Record) error {\n")
	for i := 0; i < 300; i++ {
		fmt.Fprintf(&b, "\ttranslated := convertLegacyFieldValue(batch, fieldOffset, %d)\n", i)
	}
	b.WriteString("\treturn nil\n}\n")

	symbols := []types.Symbol{
		{Name: "migrateLegacyRecords", Kind: types.KindFunction, StartLine: 3, EndLine: 305},
	}

	content := b.String()
	chunks := BuildChunks(content, symbols, chunkCfg())
	require.Greater(t, len(chunks), 1)

	// The blank lines opening the file belong to the first chunk
	assert.Equal(t, 1, chunks[0].StartLine)

	// Every line is owned by exactly one chunk
	lineCount := len(strings.Split(content, "\n"))
	owners := make([]int, lineCount+1)
	for _, c := range chunks {
		for l := c.StartLine; l <= c.EndLine; l++ {
			owners[l]++
		}
	}
	for l := 1; l <= lineCount; l++ {
		assert.Equal(t, 1, owners[l], "line %d must be owned by exactly one chunk", l)
	}
}

func TestBuildChunksZeroSymbolsSplitsBySize(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 500; i++ {
		fmt.Fprintf(&b, "configuration entry number with several meaningful words %d\n", i)
	}

	chunks := BuildChunks(b.String(), nil, chunkCfg())
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, chunks[i-1].EndLine+1, chunks[i].StartLine)
	}
}

func TestBuildChunksTermStatsCountOwnedContentOnly(t *testing.T) {
	var b strings.Builder
	b.WriteString("func repeatedTokenFactory() {\n")
	for i := 0; i < 400; i++ {
		b.WriteString("\tsentinel marker value alpha beta gamma delta epsilon\n")
	}
	b.WriteString("}\n")

	symbols := []types.Symbol{
		{Name: "repeatedTokenFactory", Kind: types.KindFunction, StartLine: 1, EndLine: 402},
	}

	chunks := BuildChunks(b.String(), symbols, chunkCfg())
	require.Greater(t, len(chunks), 1)

	for _, c := range chunks {
		owned := TermCounts(c.Content)
		assert.Equal(t, owned, c.Terms, "terms must reflect owned lines, not carried context")
		assert.Equal(t, sumFreqs(owned), c.TokenCount)
	}
}

func sumFreqs(terms map[string]int) int {
	total := 0
	for _, n := range terms {
		total += n
	}
	return total
}

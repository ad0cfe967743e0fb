package searcher

import (
	"context"
	"crypto/sha256"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codescout/internal/config"
	"codescout/internal/embedder"
	"codescout/internal/storage"
	"codescout/pkg/types"
)

const testRoot = "/work/demo"

func newTestIndex(t *testing.T) (*storage.Registry, *storage.SQLiteStorage) {
	t.Helper()
	reg, err := storage.NewRegistry(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })

	store, err := reg.Open(context.Background(), testRoot)
	require.NoError(t, err)
	return reg, store
}

func addFile(t *testing.T, store *storage.SQLiteStorage, path string, symbols []types.Symbol, chunks []types.Chunk) {
	t.Helper()
	file := &storage.File{
		Path:        path,
		Language:    "go",
		ContentHash: sha256.Sum256([]byte(path + "v1")),
		ModTime:     time.Now().UTC(),
	}
	_, err := store.UpsertFile(context.Background(), file, symbols, chunks)
	require.NoError(t, err)
}

func chunkWith(start, end int, content string, terms map[string]int) types.Chunk {
	total := 0
	for _, n := range terms {
		total += n
	}
	return types.Chunk{
		StartLine:  start,
		EndLine:    end,
		Content:    content,
		TokenCount: total,
		Terms:      terms,
	}
}

func newSearcher(reg *storage.Registry, emb embedder.Embedder, cfg config.SearchConfig) *Searcher {
	return New(reg, emb, cfg, time.Second)
}

func TestSearchRanksByTermFrequency(t *testing.T) {
	reg, store := newTestIndex(t)

	addFile(t, store, "heavy.go", nil, []types.Chunk{
		chunkWith(1, 10, "authenticate everywhere", map[string]int{"authenticate": 5}),
	})
	addFile(t, store, "light.go", nil, []types.Chunk{
		chunkWith(1, 10, "authenticate once", map[string]int{"authenticate": 1, "filler": 4}),
	})

	s := newSearcher(reg, nil, config.Default().Search)
	results, err := s.Search(context.Background(), testRoot, "authenticate", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "heavy.go", results[0].FilePath)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, 2, results[1].Rank)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Greater(t, results[0].Breakdown.Lexical, 0.0)
	assert.Zero(t, results[0].Breakdown.Semantic)
}

func TestSearchSymbolBonusTiers(t *testing.T) {
	reg, store := newTestIndex(t)

	// Content terms never match the query; only the symbol route does
	addFile(t, store, "exact.go", []types.Symbol{
		{Name: "auth", Kind: types.KindFunction, StartLine: 1, EndLine: 10},
	}, []types.Chunk{chunkWith(1, 10, "x", map[string]int{"handler": 1})})

	addFile(t, store, "prefix.go", []types.Symbol{
		{Name: "Authenticate", Kind: types.KindFunction, StartLine: 1, EndLine: 10},
	}, []types.Chunk{chunkWith(1, 10, "y", map[string]int{"handler": 1})})

	addFile(t, store, "substr.go", []types.Symbol{
		{Name: "PreAuthCheck", Kind: types.KindFunction, StartLine: 1, EndLine: 10},
	}, []types.Chunk{chunkWith(1, 10, "z", map[string]int{"handler": 1})})

	s := newSearcher(reg, nil, config.Default().Search)
	results, err := s.Search(context.Background(), testRoot, "auth", 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "exact.go", results[0].FilePath)
	assert.Equal(t, "prefix.go", results[1].FilePath)
	assert.Equal(t, "substr.go", results[2].FilePath)

	cfg := config.Default().Search
	assert.InDelta(t, cfg.ExactBonus, results[0].Breakdown.SymbolBonus, 1e-9)
	assert.InDelta(t, cfg.PrefixBonus, results[1].Breakdown.SymbolBonus, 1e-9)
	assert.InDelta(t, cfg.SubstringBonus, results[2].Breakdown.SymbolBonus, 1e-9)
}

func TestSearchDeterministicTieBreak(t *testing.T) {
	reg, store := newTestIndex(t)

	// Identical statistics in both files: path decides the order
	for _, path := range []string{"zeta.go", "alpha.go"} {
		addFile(t, store, path, nil, []types.Chunk{
			chunkWith(1, 5, "session lookup", map[string]int{"session": 2}),
			chunkWith(6, 10, "session touch", map[string]int{"session": 2}),
		})
	}

	s := newSearcher(reg, nil, config.Default().Search)
	results, err := s.Search(context.Background(), testRoot, "session", 10)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, "alpha.go", results[0].FilePath)
	assert.Equal(t, 1, results[0].StartLine)
	assert.Equal(t, "alpha.go", results[1].FilePath)
	assert.Equal(t, 6, results[1].StartLine)
	assert.Equal(t, "zeta.go", results[2].FilePath)
}

func TestSearchEmptyQueries(t *testing.T) {
	reg, store := newTestIndex(t)
	addFile(t, store, "a.go", nil, []types.Chunk{
		chunkWith(1, 5, "content", map[string]int{"content": 1}),
	})

	s := newSearcher(reg, nil, config.Default().Search)

	// Queries that tokenize to nothing return empty without error
	for _, q := range []string{"", "if else return", "a b c"} {
		results, err := s.Search(context.Background(), testRoot, q, 10)
		require.NoError(t, err)
		assert.Empty(t, results, "query %q", q)
	}

	// A real query with no matches is also empty
	results, err := s.Search(context.Background(), testRoot, "nonexistent", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchUnknownProject(t *testing.T) {
	reg, _ := newTestIndex(t)
	s := newSearcher(reg, nil, config.Default().Search)

	_, err := s.Search(context.Background(), "/work/other", "query", 10)
	assert.ErrorIs(t, err, storage.ErrProjectNotFound)
}

func TestSearchSemanticBoost(t *testing.T) {
	reg, store := newTestIndex(t)
	ctx := context.Background()

	emb, err := embedder.NewLocalProvider(nil)
	require.NoError(t, err)

	query := "token refresh"
	queryVec, err := emb.EmbedText(ctx, query)
	require.NoError(t, err)
	otherVec, err := emb.EmbedText(ctx, "unrelated content entirely")
	require.NoError(t, err)

	// Lexically identical chunks; only the stored vectors differ
	addFile(t, store, "near.go", nil, []types.Chunk{
		chunkWith(1, 5, "refresh a", map[string]int{"refresh": 1}),
	})
	addFile(t, store, "far.go", nil, []types.Chunk{
		chunkWith(1, 5, "refresh b", map[string]int{"refresh": 1}),
	})

	missing, err := store.ChunksWithoutEmbedding(ctx, emb.Model(), 0)
	require.NoError(t, err)
	require.Len(t, missing, 2)
	for _, m := range missing {
		vec := otherVec
		if m.Content == "refresh a" {
			vec = queryVec
		}
		require.NoError(t, store.UpsertEmbedding(ctx, m.ChunkID, vec, emb.Model()))
	}

	s := newSearcher(reg, emb, config.Default().Search)
	results, err := s.Search(ctx, testRoot, query, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "near.go", results[0].FilePath)
	assert.Greater(t, results[0].Breakdown.Semantic, results[1].Breakdown.Semantic)
	assert.InDelta(t, 1.0, results[0].Breakdown.Semantic, 1e-6)
}

type failingEmbedder struct{}

func (failingEmbedder) EmbedText(context.Context, string) ([]float32, error) {
	return nil, errors.New("provider unreachable")
}
func (failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("provider unreachable")
}
func (failingEmbedder) Dimension() int { return 4 }
func (failingEmbedder) Model() string  { return "failing" }
func (failingEmbedder) Close() error   { return nil }

func TestSearchDegradesWhenEmbedderFails(t *testing.T) {
	reg, store := newTestIndex(t)
	addFile(t, store, "a.go", nil, []types.Chunk{
		chunkWith(1, 5, "session store", map[string]int{"session": 1}),
	})

	s := newSearcher(reg, failingEmbedder{}, config.Default().Search)
	results, err := s.Search(context.Background(), testRoot, "session", 10)
	require.NoError(t, err, "embedding failure must not fail the search")
	require.Len(t, results, 1)
	assert.Zero(t, results[0].Breakdown.Semantic)
	assert.Greater(t, results[0].Breakdown.Lexical, 0.0)
}

func TestSearchCacheAndInvalidate(t *testing.T) {
	reg, store := newTestIndex(t)
	ctx := context.Background()

	addFile(t, store, "a.go", nil, []types.Chunk{
		chunkWith(1, 5, "cache me", map[string]int{"cache": 1}),
	})

	cfg := config.Default().Search
	cfg.CacheTTL = time.Hour
	s := newSearcher(reg, nil, cfg)

	results, err := s.Search(ctx, testRoot, "cache", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)

	// The index changes underneath; the cached answer is still served
	require.NoError(t, store.DeleteFile(ctx, "a.go"))
	results, err = s.Search(ctx, testRoot, "cache", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	s.InvalidateProject(testRoot)
	results, err = s.Search(ctx, testRoot, "cache", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFindFilesAggregatesBestChunk(t *testing.T) {
	reg, store := newTestIndex(t)

	addFile(t, store, "multi.go", nil, []types.Chunk{
		chunkWith(1, 5, "worker pool", map[string]int{"worker": 1, "pool": 3}),
		chunkWith(6, 10, "pool pool pool", map[string]int{"pool": 6}),
	})
	addFile(t, store, "single.go", nil, []types.Chunk{
		chunkWith(1, 5, "one pool", map[string]int{"pool": 1, "other": 5}),
	})

	s := newSearcher(reg, nil, config.Default().Search)
	matches, err := s.FindFiles(context.Background(), testRoot, "pool", 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "multi.go", matches[0].Path)
	assert.Greater(t, matches[0].Score, matches[1].Score)
	assert.NotZero(t, matches[0].BestChunkID)
}

func TestBM25TermFrequencySaturation(t *testing.T) {
	stats := &storage.CorpusStats{
		TotalChunks: 10,
		TotalTokens: 100,
		DocFreq:     map[string]int64{"term": 3},
	}
	base := storage.CandidateChunk{TokenCount: 10, TermFreqs: map[string]int{"term": 1}}
	more := storage.CandidateChunk{TokenCount: 10, TermFreqs: map[string]int{"term": 4}}
	most := storage.CandidateChunk{TokenCount: 10, TermFreqs: map[string]int{"term": 40}}

	cfg := config.Default().Search
	s1 := bm25Score([]string{"term"}, &base, stats, cfg.K1, cfg.B)
	s4 := bm25Score([]string{"term"}, &more, stats, cfg.K1, cfg.B)
	s40 := bm25Score([]string{"term"}, &most, stats, cfg.K1, cfg.B)

	assert.Greater(t, s4, s1, "more occurrences score higher")
	assert.Greater(t, s40, s4)
	assert.Less(t, s40-s4, s4-s1, "gains must saturate")
}

func TestIDFRareTermsScoreHigher(t *testing.T) {
	rare := idf(1000, 2)
	common := idf(1000, 900)
	assert.Greater(t, rare, common)
	assert.Greater(t, common, 0.0, "idf stays positive even for ubiquitous terms")
}

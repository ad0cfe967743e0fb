package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"codescout/internal/config"
	"codescout/internal/embedder"
	"codescout/internal/extractor"
	"codescout/internal/storage"
	"codescout/pkg/types"
)

// DefaultTopK is used when the caller passes a non-positive limit
const DefaultTopK = 10

// cacheEntry is one cached result list with its expiration time
type cacheEntry struct {
	results   []types.SearchResult
	rootPath  string
	expiresAt time.Time
}

// Searcher ranks indexed chunks for free-text queries. Scoring is
// BM25 over the stored term statistics, plus a bonus for query tokens
// matching overlapping symbol names, plus (when an embedder is
// configured and vectors exist) cosine similarity against the query
// embedding. The embedder may be nil; searches then run lexical-only.
type Searcher struct {
	registry   *storage.Registry
	emb        embedder.Embedder
	cfg        config.SearchConfig
	embTimeout time.Duration
	cache      *lru.Cache[[32]byte, *cacheEntry]
}

// New creates a Searcher over the project registry
func New(registry *storage.Registry, emb embedder.Embedder, cfg config.SearchConfig, embTimeout time.Duration) *Searcher {
	size := cfg.CacheSize
	if size <= 0 {
		size = 128
	}
	cache, err := lru.New[[32]byte, *cacheEntry](size)
	if err != nil {
		panic(fmt.Sprintf("failed to create query cache: %v", err))
	}
	if embTimeout <= 0 {
		embTimeout = 10 * time.Second
	}
	return &Searcher{
		registry:   registry,
		emb:        emb,
		cfg:        cfg,
		embTimeout: embTimeout,
		cache:      cache,
	}
}

// Search returns the topK best chunks for query in the project at
// rootPath. A query that tokenizes to nothing returns an empty list.
// Results are deterministic: ties break on file path, then start line.
func (s *Searcher) Search(ctx context.Context, rootPath, query string, topK int) ([]types.SearchResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	store, err := s.registry.Get(ctx, rootPath)
	if err != nil {
		return nil, err
	}

	tokens := dedupeTokens(extractor.Tokenize(query))
	if len(tokens) == 0 {
		return nil, nil
	}

	key := cacheKey(rootPath, query, topK)
	if entry, ok := s.cache.Get(key); ok && time.Now().Before(entry.expiresAt) {
		return copyResults(entry.results), nil
	}

	var queryVec []float32
	wantVectors := s.emb != nil && s.cfg.SemanticWeight > 0
	if wantVectors {
		queryVec = s.embedQuery(ctx, query)
		wantVectors = queryVec != nil
	}

	candidates, stats, err := store.Candidates(ctx, tokens, wantVectors)
	if err != nil {
		return nil, err
	}

	results := s.score(tokens, queryVec, candidates, stats)
	if len(results) > topK {
		results = results[:topK]
	}
	for i := range results {
		results[i].Rank = i + 1
	}

	if s.cfg.CacheTTL > 0 {
		s.cache.Add(key, &cacheEntry{
			results:   copyResults(results),
			rootPath:  rootPath,
			expiresAt: time.Now().Add(s.cfg.CacheTTL),
		})
	}
	return results, nil
}

// FindFiles aggregates chunk scores per file and returns the topK
// best-matching files for query.
func (s *Searcher) FindFiles(ctx context.Context, rootPath, query string, topK int) ([]types.FileMatch, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	store, err := s.registry.Get(ctx, rootPath)
	if err != nil {
		return nil, err
	}

	tokens := dedupeTokens(extractor.Tokenize(query))
	if len(tokens) == 0 {
		return nil, nil
	}

	var queryVec []float32
	wantVectors := s.emb != nil && s.cfg.SemanticWeight > 0
	if wantVectors {
		queryVec = s.embedQuery(ctx, query)
		wantVectors = queryVec != nil
	}

	candidates, stats, err := store.Candidates(ctx, tokens, wantVectors)
	if err != nil {
		return nil, err
	}

	scored := s.score(tokens, queryVec, candidates, stats)

	best := make(map[string]*types.FileMatch)
	for _, r := range scored {
		m, ok := best[r.FilePath]
		if !ok || r.Score > m.Score {
			best[r.FilePath] = &types.FileMatch{
				Path:        r.FilePath,
				Score:       r.Score,
				BestChunkID: r.ChunkID,
			}
		}
	}

	matches := make([]types.FileMatch, 0, len(best))
	for _, m := range best {
		matches = append(matches, *m)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Path < matches[j].Path
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// InvalidateProject drops cached results for one project root. The
// indexer calls this after any index mutation.
func (s *Searcher) InvalidateProject(rootPath string) {
	for _, key := range s.cache.Keys() {
		if entry, ok := s.cache.Peek(key); ok && entry.rootPath == rootPath {
			s.cache.Remove(key)
		}
	}
}

// score ranks every candidate and returns them ordered best-first
func (s *Searcher) score(tokens []string, queryVec []float32, candidates []storage.CandidateChunk, stats *storage.CorpusStats) []types.SearchResult {
	results := make([]types.SearchResult, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]

		lex := normalizeLexical(bm25Score(tokens, c, stats, s.cfg.K1, s.cfg.B))
		bonus := symbolBonus(tokens, c.SymbolNames, s.cfg)

		var semantic float64
		if queryVec != nil && c.Vector != nil {
			semantic = storage.CosineSimilarity(queryVec, c.Vector)
			if semantic < 0 {
				semantic = 0
			}
		}

		score := s.cfg.LexicalWeight*lex + s.cfg.SymbolWeight*bonus + s.cfg.SemanticWeight*semantic
		if score <= 0 {
			continue
		}

		results = append(results, types.SearchResult{
			ChunkID: c.ChunkID,
			Score:   score,
			Breakdown: types.ScoreBreakdown{
				Lexical:     lex,
				SymbolBonus: bonus,
				Semantic:    semantic,
			},
			FilePath:  c.FilePath,
			StartLine: c.StartLine,
			EndLine:   c.EndLine,
			Content:   c.Content,
			Context:   c.ContextBefore,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].FilePath != results[j].FilePath {
			return results[i].FilePath < results[j].FilePath
		}
		return results[i].StartLine < results[j].StartLine
	})
	return results
}

// embedQuery generates the query embedding under its own timeout.
// Failure is logged and degrades the search to lexical-only; it never
// fails the search.
func (s *Searcher) embedQuery(ctx context.Context, query string) []float32 {
	embCtx, cancel := context.WithTimeout(ctx, s.embTimeout)
	defer cancel()

	vec, err := s.emb.EmbedText(embCtx, query)
	if err != nil {
		log.Printf("query embedding failed, using lexical-only scoring: %v", err)
		return nil
	}
	return vec
}

func cacheKey(rootPath, query string, topK int) [32]byte {
	return sha256.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%d", rootPath, query, topK)))
}

func dedupeTokens(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0]
	for _, tok := range tokens {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

func copyResults(results []types.SearchResult) []types.SearchResult {
	out := make([]types.SearchResult, len(results))
	copy(out, results)
	return out
}

package searcher

import (
	"math"
	"strings"

	"codescout/internal/config"
	"codescout/internal/storage"
)

// idf is the BM25 inverse document frequency. The +1 inside the log
// keeps it positive even for terms present in most chunks.
func idf(totalChunks, docFreq int64) float64 {
	n := float64(totalChunks)
	df := float64(docFreq)
	return math.Log(1 + (n-df+0.5)/(df+0.5))
}

// bm25Score computes the raw BM25 score of one chunk for the query
// terms, using the chunk's stored term frequencies and the corpus
// statistics gathered in the same snapshot.
func bm25Score(terms []string, chunk *storage.CandidateChunk, stats *storage.CorpusStats, k1, b float64) float64 {
	avgLen := stats.AvgChunkLen()
	if avgLen == 0 {
		return 0
	}
	docLen := float64(chunk.TokenCount)

	var score float64
	for _, term := range terms {
		tf := float64(chunk.TermFreqs[term])
		if tf == 0 {
			continue
		}
		df := stats.DocFreq[term]
		norm := tf * (k1 + 1) / (tf + k1*(1-b+b*docLen/avgLen))
		score += idf(stats.TotalChunks, df) * norm
	}
	return score
}

// normalizeLexical squashes a raw BM25 score into [0,1) so it can be
// combined with the bounded symbol and semantic components.
func normalizeLexical(raw float64) float64 {
	if raw <= 0 {
		return 0
	}
	return raw / (1 + raw)
}

// symbolBonus scores how well the query tokens line up with the names
// of symbols overlapping a chunk. Each token contributes its best tier
// across all names: exact match, prefix match, or substring match.
// The sum is averaged over the tokens so the bonus stays in [0,1].
func symbolBonus(tokens []string, symbolNames []string, cfg config.SearchConfig) float64 {
	if len(tokens) == 0 || len(symbolNames) == 0 {
		return 0
	}

	lowered := make([]string, len(symbolNames))
	for i, name := range symbolNames {
		lowered[i] = strings.ToLower(name)
	}

	var total float64
	for _, tok := range tokens {
		var best float64
		for _, name := range lowered {
			switch {
			case name == tok:
				best = math.Max(best, cfg.ExactBonus)
			case strings.HasPrefix(name, tok):
				best = math.Max(best, cfg.PrefixBonus)
			case strings.Contains(name, tok):
				best = math.Max(best, cfg.SubstringBonus)
			}
			if best >= cfg.ExactBonus {
				break
			}
		}
		total += best
	}
	return total / float64(len(tokens))
}

package extractor

import (
	"sort"
	"strings"

	"codescout/internal/config"
	"codescout/pkg/types"
)

// span is a 1-based inclusive line range
type span struct {
	start, end int
}

// BuildChunks splits file content into chunks under the configured token
// budget. Boundaries prefer top-level symbol spans and blank-line runs; a
// unit whose span alone exceeds the budget is hard-split at line granularity
// with the configured overlap carried as context into the continuation.
// The owned line ranges of the returned chunks partition the file.
func BuildChunks(content string, symbols []types.Symbol, cfg config.ChunkerConfig) []types.Chunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	lines := strings.Split(content, "\n")
	lineTokens := make([]int, len(lines))
	for i, l := range lines {
		lineTokens[i] = len(Tokenize(l))
	}

	units := buildUnits(lines, symbols)

	var chunks []types.Chunk
	pending := 0
	curStart, curEnd, curTokens := 0, 0, 0

	flush := func() {
		if curStart == 0 {
			return
		}
		chunks = appendChunk(chunks, lines, curStart, curEnd, "", &pending)
		curStart, curEnd, curTokens = 0, 0, 0
	}

	for _, u := range units {
		uTokens := sumTokens(lineTokens, u)

		if uTokens > cfg.TokenBudget {
			flush()
			chunks = splitOversized(chunks, lines, lineTokens, u, cfg, &pending)
			continue
		}

		if curStart > 0 && curTokens+uTokens > cfg.TokenBudget {
			flush()
		}
		if curStart == 0 {
			curStart = u.start
		}
		curEnd = u.end
		curTokens += uTokens

		// Close at a boundary once inside the target band
		if curTokens >= cfg.TokenBudget-cfg.Epsilon {
			flush()
		}
	}
	flush()

	return chunks
}

// buildUnits produces the boundary units for packing: merged top-level
// symbol spans, with the gaps between them split at blank-line runs.
// Units cover every line exactly once.
func buildUnits(lines []string, symbols []types.Symbol) []span {
	n := len(lines)

	var spans []span
	for _, s := range symbols {
		if !s.IsTopLevel() {
			continue
		}
		st, en := s.StartLine, s.EndLine
		if st < 1 {
			st = 1
		}
		if en > n {
			en = n
		}
		if en < st {
			continue
		}
		spans = append(spans, span{st, en})
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	// Merge overlapping symbol spans (approximate extraction can overlap)
	var merged []span
	for _, sp := range spans {
		if len(merged) > 0 && sp.start <= merged[len(merged)-1].end {
			if sp.end > merged[len(merged)-1].end {
				merged[len(merged)-1].end = sp.end
			}
			continue
		}
		merged = append(merged, sp)
	}

	var units []span
	cursor := 1
	for _, sp := range merged {
		if sp.start > cursor {
			units = append(units, gapUnits(lines, cursor, sp.start-1)...)
		}
		units = append(units, sp)
		cursor = sp.end + 1
	}
	if cursor <= n {
		units = append(units, gapUnits(lines, cursor, n)...)
	}
	return units
}

// gapUnits partitions a symbol-free region at blank-run boundaries: a new
// unit opens at a non-blank line directly following a blank one
func gapUnits(lines []string, start, end int) []span {
	var units []span
	us := start
	for j := start + 1; j <= end; j++ {
		if !isBlank(lines[j-1]) && isBlank(lines[j-2]) && anyNonBlank(lines, us, j-1) {
			units = append(units, span{us, j - 1})
			us = j
		}
	}
	units = append(units, span{us, end})
	return units
}

// splitOversized breaks a single unit that exceeds the token budget at line
// granularity. Each continuation carries the previous OverlapLines lines as
// context; the owned ranges stay disjoint.
func splitOversized(chunks []types.Chunk, lines []string, lineTokens []int, u span, cfg config.ChunkerConfig, pending *int) []types.Chunk {
	start := u.start
	tokens := 0
	context := ""

	for line := u.start; line <= u.end; line++ {
		tokens += lineTokens[line-1]
		if tokens >= cfg.TokenBudget && line < u.end {
			chunks = appendChunk(chunks, lines, start, line, context, pending)

			ctxStart := line - cfg.OverlapLines + 1
			if ctxStart < start {
				ctxStart = start
			}
			context = strings.Join(lines[ctxStart-1:line], "\n")
			start = line + 1
			tokens = 0
		}
	}
	if start <= u.end {
		chunks = appendChunk(chunks, lines, start, u.end, context, pending)
	}
	return chunks
}

// appendChunk materializes a chunk for the line range. An all-blank range is
// merged into the preceding chunk, or held in pending as a prefix for the
// next chunk when no chunk exists yet, so the partition holds without
// producing empty chunks.
func appendChunk(chunks []types.Chunk, lines []string, start, end int, context string, pending *int) []types.Chunk {
	if *pending > 0 && *pending < start {
		start = *pending
	}

	content := strings.Join(lines[start-1:end], "\n")
	if strings.TrimSpace(content) == "" {
		if len(chunks) > 0 {
			prev := &chunks[len(chunks)-1]
			prev.Content += "\n" + content
			prev.EndLine = end
		} else {
			*pending = start
		}
		return chunks
	}
	*pending = 0

	return append(chunks, types.Chunk{
		StartLine:     start,
		EndLine:       end,
		Content:       content,
		ContextBefore: context,
		TokenCount:    len(Tokenize(content)),
		Terms:         TermCounts(content),
	})
}

func sumTokens(lineTokens []int, u span) int {
	total := 0
	for i := u.start; i <= u.end; i++ {
		total += lineTokens[i-1]
	}
	return total
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

func anyNonBlank(lines []string, start, end int) bool {
	for i := start; i <= end; i++ {
		if !isBlank(lines[i-1]) {
			return true
		}
	}
	return false
}

package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"codescout/pkg/types"
)

// SQLiteStorage implements Storage backed by a single SQLite database.
//
// Reads run on a small connection pool so searches are not blocked by an
// in-flight indexing transaction (WAL mode allows concurrent readers).
// Writes are serialized through writeMu because SQLite allows only one
// writer at a time anyway.
type SQLiteStorage struct {
	db       *sql.DB
	dbPath   string
	rootPath string

	writeMu sync.Mutex
	mu      sync.RWMutex
	closed  bool
}

// querier abstracts *sql.DB and *sql.Tx for shared helpers
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Open opens (or creates) the project database at dbPath and applies
// pending migrations. rootPath is recorded in the meta table on first
// open; on later opens the stored root wins, so a database file always
// answers for the project it was created for.
func Open(ctx context.Context, dbPath, rootPath string) (*SQLiteStorage, error) {
	db, err := sql.Open(DriverName, dataSourceName(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database %s: %w", dbPath, err)
	}

	if err := ApplyMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database %s: %w", dbPath, err)
	}

	s := &SQLiteStorage{db: db, dbPath: dbPath}

	stored, err := s.GetMeta(ctx, MetaRootPath)
	switch {
	case err == nil:
		s.rootPath = stored
	case errors.Is(err, ErrNotFound) && rootPath != "":
		if err := s.SetMeta(ctx, MetaRootPath, rootPath); err != nil {
			db.Close()
			return nil, err
		}
		now := time.Now().UTC().Format(time.RFC3339)
		if err := s.SetMeta(ctx, MetaCreatedAt, now); err != nil {
			db.Close()
			return nil, err
		}
		s.rootPath = rootPath
	case errors.Is(err, ErrNotFound):
		db.Close()
		return nil, fmt.Errorf("database %s has no recorded project root", dbPath)
	default:
		db.Close()
		return nil, err
	}

	return s, nil
}

// RootPath returns the canonical project root recorded in this database
func (s *SQLiteStorage) RootPath() string {
	return s.rootPath
}

// DBPath returns the database file path
func (s *SQLiteStorage) DBPath() string {
	return s.dbPath
}

// Close closes the underlying database
func (s *SQLiteStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *SQLiteStorage) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// UpsertFile replaces all indexed data for one file in a single
// transaction. The stored content hash short-circuits unchanged files.
func (s *SQLiteStorage) UpsertFile(ctx context.Context, file *File, symbols []types.Symbol, chunks []types.Chunk) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var existingID int64
	var existingHash []byte
	err = tx.QueryRowContext(ctx, "SELECT id, content_hash FROM files WHERE path = ?", file.Path).
		Scan(&existingID, &existingHash)
	switch {
	case err == nil:
		if bytes.Equal(existingHash, file.ContentHash[:]) {
			return false, nil
		}
		if err := removeFileData(ctx, tx, existingID); err != nil {
			return false, err
		}
	case errors.Is(err, sql.ErrNoRows):
		// new file
	default:
		return false, fmt.Errorf("failed to look up file %s: %w", file.Path, err)
	}

	var fileID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO files (path, language, content_hash, mod_time, size_bytes, indexed_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(path) DO UPDATE SET
			language = excluded.language,
			content_hash = excluded.content_hash,
			mod_time = excluded.mod_time,
			size_bytes = excluded.size_bytes,
			indexed_at = CURRENT_TIMESTAMP
		RETURNING id`,
		file.Path, file.Language, file.ContentHash[:], file.ModTime, file.SizeBytes,
	).Scan(&fileID)
	if err != nil {
		return false, fmt.Errorf("failed to upsert file %s: %w", file.Path, err)
	}
	file.ID = fileID

	symbolIDs := make([]int64, len(symbols))
	for i, sym := range symbols {
		err = tx.QueryRowContext(ctx, `
			INSERT INTO symbols (file_id, name, kind, parent, start_line, end_line, approximate)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
			fileID, sym.Name, string(sym.Kind), sym.Parent, sym.StartLine, sym.EndLine, sym.Approximate,
		).Scan(&symbolIDs[i])
		if err != nil {
			return false, fmt.Errorf("failed to insert symbol %s: %w", sym.Name, err)
		}
	}

	var addedChunks, addedTokens int64
	for ci := range chunks {
		chunk := &chunks[ci]
		var chunkID int64
		err = tx.QueryRowContext(ctx, `
			INSERT INTO chunks (file_id, start_line, end_line, content, context_before, token_count)
			VALUES (?, ?, ?, ?, ?, ?)
			RETURNING id`,
			fileID, chunk.StartLine, chunk.EndLine, chunk.Content, chunk.ContextBefore, chunk.TokenCount,
		).Scan(&chunkID)
		if err != nil {
			return false, fmt.Errorf("failed to insert chunk %s:%d: %w", file.Path, chunk.StartLine, err)
		}
		chunk.ID = chunkID
		addedChunks++
		addedTokens += int64(chunk.TokenCount)

		terms := make([]string, 0, len(chunk.Terms))
		for term := range chunk.Terms {
			terms = append(terms, term)
		}
		sort.Strings(terms)
		for _, term := range terms {
			if _, err = tx.ExecContext(ctx,
				"INSERT INTO chunk_terms (chunk_id, term, tf) VALUES (?, ?, ?)",
				chunkID, term, chunk.Terms[term]); err != nil {
				return false, fmt.Errorf("failed to insert term %s: %w", term, err)
			}
			if _, err = tx.ExecContext(ctx,
				"INSERT INTO terms (term, df) VALUES (?, 1) ON CONFLICT(term) DO UPDATE SET df = df + 1",
				term); err != nil {
				return false, fmt.Errorf("failed to bump df for %s: %w", term, err)
			}
		}

		for si, sym := range symbols {
			if sym.StartLine <= chunk.EndLine && sym.EndLine >= chunk.StartLine {
				if _, err = tx.ExecContext(ctx,
					"INSERT OR IGNORE INTO chunk_symbols (chunk_id, symbol_id) VALUES (?, ?)",
					chunkID, symbolIDs[si]); err != nil {
					return false, fmt.Errorf("failed to link chunk to symbol %s: %w", sym.Name, err)
				}
			}
		}
	}

	if _, err = tx.ExecContext(ctx,
		"UPDATE stats SET total_chunks = total_chunks + ?, total_tokens = total_tokens + ? WHERE id = 1",
		addedChunks, addedTokens); err != nil {
		return false, fmt.Errorf("failed to update stats: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit file %s: %w", file.Path, err)
	}
	return true, nil
}

// removeFileData reverses one file's contribution to the index: term
// document frequencies first, then global stats, then the rows. Chunk
// deletion cascades to chunk_terms, chunk_symbols and embeddings.
func removeFileData(ctx context.Context, q querier, fileID int64) error {
	_, err := q.ExecContext(ctx, `
		UPDATE terms SET df = df - (
			SELECT COUNT(*) FROM chunk_terms ct
			JOIN chunks c ON ct.chunk_id = c.id
			WHERE c.file_id = ?1 AND ct.term = terms.term)
		WHERE term IN (
			SELECT DISTINCT ct.term FROM chunk_terms ct
			JOIN chunks c ON ct.chunk_id = c.id
			WHERE c.file_id = ?1)`, fileID)
	if err != nil {
		return fmt.Errorf("failed to decrement document frequencies: %w", err)
	}

	if _, err = q.ExecContext(ctx, "DELETE FROM terms WHERE df <= 0"); err != nil {
		return fmt.Errorf("failed to prune zero-df terms: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		UPDATE stats SET
			total_chunks = total_chunks - (SELECT COUNT(*) FROM chunks WHERE file_id = ?1),
			total_tokens = total_tokens - COALESCE((SELECT SUM(token_count) FROM chunks WHERE file_id = ?1), 0)
		WHERE id = 1`, fileID)
	if err != nil {
		return fmt.Errorf("failed to decrement stats: %w", err)
	}

	if _, err = q.ExecContext(ctx, "DELETE FROM chunks WHERE file_id = ?", fileID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if _, err = q.ExecContext(ctx, "DELETE FROM symbols WHERE file_id = ?", fileID); err != nil {
		return fmt.Errorf("failed to delete symbols: %w", err)
	}
	return nil
}

// DeleteFile removes one file and reverses its statistics contribution
func (s *SQLiteStorage) DeleteFile(ctx context.Context, relPath string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var fileID int64
	err = tx.QueryRowContext(ctx, "SELECT id FROM files WHERE path = ?", relPath).Scan(&fileID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, relPath)
	}
	if err != nil {
		return fmt.Errorf("failed to look up file %s: %w", relPath, err)
	}

	if err := removeFileData(ctx, tx, fileID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM files WHERE id = ?", fileID); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", relPath, err)
	}
	return tx.Commit()
}

// FileHashes returns path -> content hash for every indexed file
func (s *SQLiteStorage) FileHashes(ctx context.Context) (map[string][32]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, "SELECT path, content_hash FROM files")
	if err != nil {
		return nil, fmt.Errorf("failed to list file hashes: %w", err)
	}
	defer rows.Close()

	hashes := make(map[string][32]byte)
	for rows.Next() {
		var path string
		var hash []byte
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, fmt.Errorf("failed to scan file hash: %w", err)
		}
		var h [32]byte
		copy(h[:], hash)
		hashes[path] = h
	}
	return hashes, rows.Err()
}

// GetFile looks up one file record by relative path
func (s *SQLiteStorage) GetFile(ctx context.Context, relPath string) (*File, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var f File
	var hash []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT id, path, language, content_hash, mod_time, size_bytes FROM files WHERE path = ?",
		relPath).Scan(&f.ID, &f.Path, &f.Language, &hash, &f.ModTime, &f.SizeBytes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, relPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", relPath, err)
	}
	copy(f.ContentHash[:], hash)
	return &f, nil
}

// Candidates gathers the chunks matching any query term plus the corpus
// statistics needed to score them. A chunk qualifies through its stored
// term frequencies or through a case-insensitive substring match against
// the name of a symbol overlapping its line range; the symbol route is
// what lets a query token like "auth" reach a chunk holding
// Authenticate even when no content term equals the bare token.
func (s *SQLiteStorage) Candidates(ctx context.Context, terms []string, withVectors bool) ([]CandidateChunk, *CorpusStats, error) {
	if err := s.checkOpen(); err != nil {
		return nil, nil, err
	}

	stats := &CorpusStats{DocFreq: make(map[string]int64)}
	err := s.db.QueryRowContext(ctx, "SELECT total_chunks, total_tokens FROM stats WHERE id = 1").
		Scan(&stats.TotalChunks, &stats.TotalTokens)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read corpus stats: %w", err)
	}

	if len(terms) == 0 {
		return nil, stats, nil
	}

	termArgs := make([]interface{}, len(terms))
	for i, t := range terms {
		termArgs[i] = t
	}
	inTerms := placeholders(len(terms))

	rows, err := s.db.QueryContext(ctx,
		"SELECT term, df FROM terms WHERE term IN ("+inTerms+")", termArgs...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read document frequencies: %w", err)
	}
	for rows.Next() {
		var term string
		var df int64
		if err := rows.Scan(&term, &df); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("failed to scan df: %w", err)
		}
		stats.DocFreq[term] = df
	}
	if err := closeRows(rows); err != nil {
		return nil, nil, err
	}

	candidateIDs := make(map[int64]struct{})

	rows, err = s.db.QueryContext(ctx,
		"SELECT DISTINCT chunk_id FROM chunk_terms WHERE term IN ("+inTerms+")", termArgs...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query term candidates: %w", err)
	}
	if err := scanIDs(rows, candidateIDs); err != nil {
		return nil, nil, err
	}

	likeClauses := make([]string, len(terms))
	likeArgs := make([]interface{}, len(terms))
	for i, t := range terms {
		likeClauses[i] = "lower(s.name) LIKE '%' || ? || '%'"
		likeArgs[i] = strings.ToLower(t)
	}
	rows, err = s.db.QueryContext(ctx, `
		SELECT DISTINCT cs.chunk_id
		FROM chunk_symbols cs
		JOIN symbols s ON cs.symbol_id = s.id
		WHERE `+strings.Join(likeClauses, " OR "), likeArgs...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query symbol candidates: %w", err)
	}
	if err := scanIDs(rows, candidateIDs); err != nil {
		return nil, nil, err
	}

	if len(candidateIDs) == 0 {
		return nil, stats, nil
	}

	ids := make([]int64, 0, len(candidateIDs))
	for id := range candidateIDs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	idArgs := make([]interface{}, len(ids))
	for i, id := range ids {
		idArgs[i] = id
	}
	inIDs := placeholders(len(ids))

	rows, err = s.db.QueryContext(ctx, `
		SELECT c.id, f.path, c.start_line, c.end_line, c.content, c.context_before, c.token_count
		FROM chunks c
		JOIN files f ON c.file_id = f.id
		WHERE c.id IN (`+inIDs+`)
		ORDER BY f.path, c.start_line`, idArgs...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load candidate chunks: %w", err)
	}
	var candidates []CandidateChunk
	for rows.Next() {
		var c CandidateChunk
		if err := rows.Scan(&c.ChunkID, &c.FilePath, &c.StartLine, &c.EndLine,
			&c.Content, &c.ContextBefore, &c.TokenCount); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		c.TermFreqs = make(map[string]int)
		candidates = append(candidates, c)
	}
	if err := closeRows(rows); err != nil {
		return nil, nil, err
	}

	byID := make(map[int64]*CandidateChunk, len(candidates))
	for i := range candidates {
		byID[candidates[i].ChunkID] = &candidates[i]
	}

	rows, err = s.db.QueryContext(ctx,
		"SELECT chunk_id, term, tf FROM chunk_terms WHERE chunk_id IN ("+inIDs+") AND term IN ("+inTerms+")",
		append(append([]interface{}{}, idArgs...), termArgs...)...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load term frequencies: %w", err)
	}
	for rows.Next() {
		var id int64
		var term string
		var tf int
		if err := rows.Scan(&id, &term, &tf); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("failed to scan tf: %w", err)
		}
		if c := byID[id]; c != nil {
			c.TermFreqs[term] = tf
		}
	}
	if err := closeRows(rows); err != nil {
		return nil, nil, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT cs.chunk_id, s.name
		FROM chunk_symbols cs
		JOIN symbols s ON cs.symbol_id = s.id
		WHERE cs.chunk_id IN (`+inIDs+`)
		ORDER BY cs.chunk_id, s.start_line`, idArgs...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load chunk symbols: %w", err)
	}
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("failed to scan symbol name: %w", err)
		}
		if c := byID[id]; c != nil {
			c.SymbolNames = append(c.SymbolNames, name)
		}
	}
	if err := closeRows(rows); err != nil {
		return nil, nil, err
	}

	if withVectors {
		rows, err = s.db.QueryContext(ctx,
			"SELECT chunk_id, vector FROM embeddings WHERE chunk_id IN ("+inIDs+")", idArgs...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load embeddings: %w", err)
		}
		for rows.Next() {
			var id int64
			var blob []byte
			if err := rows.Scan(&id, &blob); err != nil {
				rows.Close()
				return nil, nil, fmt.Errorf("failed to scan embedding: %w", err)
			}
			vec, err := DeserializeVector(blob)
			if err != nil {
				rows.Close()
				return nil, nil, fmt.Errorf("corrupt embedding for chunk %d: %w", id, err)
			}
			if c := byID[id]; c != nil {
				c.Vector = vec
			}
		}
		if err := closeRows(rows); err != nil {
			return nil, nil, err
		}
	}

	return candidates, stats, nil
}

// ChunksWithoutEmbedding lists chunks with no stored vector for model
func (s *SQLiteStorage) ChunksWithoutEmbedding(ctx context.Context, model string, limit int) ([]ChunkText, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	query := `
		SELECT c.id, c.content, c.context_before
		FROM chunks c
		LEFT JOIN embeddings e ON e.chunk_id = c.id AND e.model = ?
		WHERE e.id IS NULL
		ORDER BY c.id`
	args := []interface{}{model}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks without embedding: %w", err)
	}
	defer rows.Close()

	var out []ChunkText
	for rows.Next() {
		var ct ChunkText
		if err := rows.Scan(&ct.ChunkID, &ct.Content, &ct.ContextBefore); err != nil {
			return nil, fmt.Errorf("failed to scan chunk text: %w", err)
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

// UpsertEmbedding stores or replaces the vector for a chunk
func (s *SQLiteStorage) UpsertEmbedding(ctx context.Context, chunkID int64, vector []float32, model string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embeddings (chunk_id, vector, dimension, model)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			model = excluded.model,
			created_at = CURRENT_TIMESTAMP`,
		chunkID, SerializeVector(vector), len(vector), model)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding for chunk %d: %w", chunkID, err)
	}
	return nil
}

// HasEmbeddings reports whether any chunk has a stored vector
func (s *SQLiteStorage) HasEmbeddings(ctx context.Context) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM embeddings LIMIT 1").Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to probe embeddings: %w", err)
	}
	return true, nil
}

// GetMeta reads one metadata value, ErrNotFound when absent
func (s *SQLiteStorage) GetMeta(ctx context.Context, key string) (string, error) {
	if err := s.checkOpen(); err != nil {
		return "", err
	}
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: meta key %s", ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read meta %s: %w", key, err)
	}
	return value, nil
}

// SetMeta writes one metadata value
func (s *SQLiteStorage) SetMeta(ctx context.Context, key, value string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	if err != nil {
		return fmt.Errorf("failed to write meta %s: %w", key, err)
	}
	return nil
}

// Status reports index counts and timestamps for this project
func (s *SQLiteStorage) Status(ctx context.Context) (*Status, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	st := &Status{RootPath: s.rootPath, DBPath: s.dbPath}

	counts := []struct {
		query string
		dst   *int64
	}{
		{"SELECT COUNT(*) FROM files", &st.Files},
		{"SELECT COUNT(*) FROM symbols", &st.Symbols},
		{"SELECT COUNT(*) FROM chunks", &st.Chunks},
		{"SELECT COUNT(*) FROM terms", &st.Terms},
		{"SELECT COUNT(*) FROM embeddings", &st.Embeddings},
		{"SELECT total_tokens FROM stats WHERE id = 1", &st.TotalTokens},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("failed to gather status: %w", err)
		}
	}

	if raw, err := s.GetMeta(ctx, MetaIndexedAt); err == nil {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			st.IndexedAt = t
		}
	}

	if info, err := os.Stat(s.dbPath); err == nil {
		st.SizeBytes = info.Size()
	}
	return st, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func scanIDs(rows *sql.Rows, dst map[int64]struct{}) error {
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan chunk id: %w", err)
		}
		dst[id] = struct{}{}
	}
	return closeRows(rows)
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"codescout/internal/indexer"
	"codescout/internal/scanner"
	"codescout/internal/storage"
	"codescout/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeProjectNotFound    = -32001 // Specified path does not exist or is not a directory
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // Project not indexed
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
)

// handleIndexProject handles the index_project tool invocation
func (s *Server) handleIndexProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, path, err := requireProjectPath(request)
	if err != nil {
		return nil, err
	}

	stats, err := s.indexer.IndexProject(ctx, path)
	if err != nil {
		return nil, mapDomainError(err, "indexing")
	}

	return mcp.NewToolResultText(formatJSON(indexResponse(stats, "indexed"))), nil
}

// handleUpdateIndex handles the update_index tool invocation
func (s *Server) handleUpdateIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, path, err := requireProjectPath(request)
	if err != nil {
		return nil, err
	}

	stats, err := s.indexer.Update(ctx, path)
	if err != nil {
		return nil, mapDomainError(err, "index update")
	}

	return mcp.NewToolResultText(formatJSON(indexResponse(stats, "updated"))), nil
}

// indexResponse summarizes an indexing run for the client. verb is the
// response key reporting success ("indexed" or "updated").
func indexResponse(stats *indexer.Stats, verb string) map[string]interface{} {
	response := map[string]interface{}{
		verb:            true,
		"root_path":     stats.RootPath,
		"files_scanned": stats.FilesScanned,
		"files_indexed": stats.FilesIndexed,
		"files_skipped": stats.FilesSkipped,
		"files_removed": stats.FilesRemoved,
		"files_failed":  stats.FilesFailed,
		"symbols":       stats.Symbols,
		"chunks":        stats.Chunks,
		"duration_ms":   stats.DurationMS,
	}
	if stats.ChunksEmbedded > 0 {
		response["chunks_embedded"] = stats.ChunksEmbedded
	}
	if len(stats.Diagnostics) > 0 {
		diags := make([]string, len(stats.Diagnostics))
		for i, d := range stats.Diagnostics {
			diags[i] = d.String()
		}
		response["diagnostics"] = diags
	}
	if len(stats.Errors) > 0 {
		// Include first few errors
		if len(stats.Errors) > 5 {
			response["errors"] = stats.Errors[:5]
			response["error_count"] = len(stats.Errors)
		} else {
			response["errors"] = stats.Errors
		}
	}
	return response
}

// handleSearchCode handles the search_code tool invocation
func (s *Server) handleSearchCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, path, err := requireProjectPath(request)
	if err != nil {
		return nil, err
	}

	query, err := requireQuery(args)
	if err != nil {
		return nil, err
	}

	limit, err := parseLimit(args)
	if err != nil {
		return nil, err
	}

	results, err := s.searcher.Search(ctx, path, query, limit)
	if err != nil {
		return nil, mapDomainError(err, "search")
	}

	includeContent := getBoolDefault(args, "include_content", true)

	formatted := make([]map[string]interface{}, len(results))
	for i, r := range results {
		formatted[i] = formatResult(r, includeContent)
	}

	response := map[string]interface{}{
		"query":   query,
		"count":   len(results),
		"results": formatted,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// formatResult converts one ranked chunk to its wire form
func formatResult(r types.SearchResult, includeContent bool) map[string]interface{} {
	out := map[string]interface{}{
		"rank":       r.Rank,
		"chunk_id":   r.ChunkID,
		"score":      r.Score,
		"file_path":  r.FilePath,
		"start_line": r.StartLine,
		"end_line":   r.EndLine,
		"breakdown": map[string]interface{}{
			"lexical":      r.Breakdown.Lexical,
			"symbol_bonus": r.Breakdown.SymbolBonus,
			"semantic":     r.Breakdown.Semantic,
		},
	}
	if includeContent {
		out["content"] = r.Content
		if r.Context != "" {
			out["context"] = r.Context
		}
	}
	return out
}

// handleFindFiles handles the find_files tool invocation
func (s *Server) handleFindFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, path, err := requireProjectPath(request)
	if err != nil {
		return nil, err
	}

	query, err := requireQuery(args)
	if err != nil {
		return nil, err
	}

	limit, err := parseLimit(args)
	if err != nil {
		return nil, err
	}

	matches, err := s.searcher.FindFiles(ctx, path, query, limit)
	if err != nil {
		return nil, mapDomainError(err, "file search")
	}

	files := make([]map[string]interface{}, len(matches))
	for i, m := range matches {
		files[i] = map[string]interface{}{
			"path":          m.Path,
			"score":         m.Score,
			"best_chunk_id": m.BestChunkID,
		}
	}

	response := map[string]interface{}{
		"query": query,
		"count": len(matches),
		"files": files,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleReadFile handles the read_file tool invocation
func (s *Server) handleReadFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, path, err := requireProjectPath(request)
	if err != nil {
		return nil, err
	}

	file, ok := args["file"].(string)
	if !ok || file == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "file parameter is required", map[string]interface{}{
			"param":  "file",
			"reason": "missing or empty",
		})
	}

	maxBytes := int64(getIntDefault(args, "max_bytes", 0))
	if maxBytes <= 0 {
		maxBytes = s.cfg.Scanner.MaxFileSize
	}

	content, truncated, err := scanner.ReadFile(path, file, maxBytes)
	if err != nil {
		if errors.Is(err, scanner.ErrOutsideRoot) {
			return nil, newMCPError(ErrorCodeInvalidParams, "file escapes the project root", map[string]interface{}{
				"param": "file",
				"value": file,
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "failed to read file", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"file":      file,
		"content":   content,
		"truncated": truncated,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, path, err := requireProjectPath(request)
	if err != nil {
		return nil, err
	}

	status, err := s.indexer.Status(ctx, path)
	if errors.Is(err, storage.ErrProjectNotFound) {
		response := map[string]interface{}{
			"indexed": false,
			"path":    path,
			"message": "Project not indexed. Use the index_project tool to index it.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, mapDomainError(err, "status")
	}

	response := map[string]interface{}{
		"indexed":  true,
		"watching": s.isWatched(status.RootPath),
		"project": map[string]interface{}{
			"root_path": status.RootPath,
			"db_path":   status.DBPath,
		},
		"statistics": map[string]interface{}{
			"files":        status.Files,
			"symbols":      status.Symbols,
			"chunks":       status.Chunks,
			"terms":        status.Terms,
			"embeddings":   status.Embeddings,
			"total_tokens": status.TotalTokens,
			"size_bytes":   status.SizeBytes,
		},
	}
	if !status.IndexedAt.IsZero() {
		response["indexed_at"] = status.IndexedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListProjects handles the list_projects tool invocation
func (s *Server) handleListProjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	infos, err := s.registry.List(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list projects", map[string]interface{}{
			"error": err.Error(),
		})
	}

	projects := make([]map[string]interface{}, len(infos))
	for i, info := range infos {
		projects[i] = map[string]interface{}{
			"root_path": info.RootPath,
			"db_path":   info.DBPath,
			"files":     info.Files,
			"watching":  s.isWatched(info.RootPath),
		}
		if !info.IndexedAt.IsZero() {
			projects[i]["indexed_at"] = info.IndexedAt.Format("2006-01-02T15:04:05Z07:00")
		}
	}

	response := map[string]interface{}{
		"count":    len(projects),
		"projects": projects,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleDeleteProject handles the delete_project tool invocation. The
// project directory may already be gone, so the path is not required
// to exist on disk.
func (s *Server) handleDeleteProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	// A watched project being deleted should stop triggering updates
	_ = s.watches.Unwatch(path)

	if err := s.indexer.DeleteProject(ctx, path); err != nil {
		return nil, mapDomainError(err, "project deletion")
	}

	response := map[string]interface{}{
		"deleted": true,
		"path":    path,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleWatchProject handles the watch_project tool invocation
func (s *Server) handleWatchProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, path, err := requireProjectPath(request)
	if err != nil {
		return nil, err
	}

	// Watching an unindexed project would only trigger failing updates
	if _, serr := s.indexer.Status(ctx, path); serr != nil {
		return nil, mapDomainError(serr, "watch")
	}

	if err := s.watches.Watch(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "failed to watch project", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	response := map[string]interface{}{
		"watching": true,
		"path":     path,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleUnwatchProject handles the unwatch_project tool invocation
func (s *Server) handleUnwatchProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if err := s.watches.Unwatch(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "failed to unwatch project", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	response := map[string]interface{}{
		"watching": false,
		"path":     path,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// isWatched reports whether rootPath is currently being watched
func (s *Server) isWatched(rootPath string) bool {
	root, err := scanner.CanonicalRoot(rootPath)
	if err != nil {
		root = rootPath
	}
	for _, watched := range s.watches.Watched() {
		if watched == root {
			return true
		}
	}
	return false
}

// Helper functions

// requireProjectPath extracts and validates the mandatory path argument
func requireProjectPath(request mcp.CallToolRequest) (map[string]interface{}, string, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, "", newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, "", newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if err := validatePath(path); err != nil {
		return nil, "", newMCPError(ErrorCodeProjectNotFound, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	// The registry keys projects by canonical root
	root, err := scanner.CanonicalRoot(path)
	if err != nil {
		return nil, "", newMCPError(ErrorCodeProjectNotFound, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}
	return args, root, nil
}

// requireQuery extracts the mandatory query argument
func requireQuery(args map[string]interface{}) (string, error) {
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return "", newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}
	return query, nil
}

// parseLimit extracts the optional limit argument and bounds it
func parseLimit(args map[string]interface{}) (int, error) {
	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return 0, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}
	return limit, nil
}

// mapDomainError translates engine errors into MCP error codes
func mapDomainError(err error, op string) error {
	switch {
	case errors.Is(err, storage.ErrProjectNotFound):
		return newMCPError(ErrorCodeNotIndexed, "project not indexed", map[string]interface{}{
			"error": err.Error(),
		})
	case errors.Is(err, indexer.ErrIndexInProgress):
		return newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", map[string]interface{}{
			"error": err.Error(),
		})
	case errors.Is(err, scanner.ErrRootNotFound), errors.Is(err, scanner.ErrNotDirectory):
		return newMCPError(ErrorCodeProjectNotFound, "invalid project path", map[string]interface{}{
			"error": err.Error(),
		})
	default:
		return newMCPError(ErrorCodeInternalError, op+" failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks if a path exists and is an accessible directory
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)

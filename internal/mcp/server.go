package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"codescout/internal/config"
	"codescout/internal/embedder"
	"codescout/internal/indexer"
	"codescout/internal/searcher"
	"codescout/internal/storage"
	"codescout/internal/watcher"
)

const (
	// ServerName is the MCP server name
	ServerName = "codescout"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"

	// pollInterval is how often watched projects are rescanned for changes
	pollInterval = time.Second
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	cfg      *config.Config
	registry *storage.Registry
	indexer  *indexer.Indexer
	searcher *searcher.Searcher
	watches  *watcher.Manager
	emb      embedder.Embedder
}

// NewServer creates a new MCP server instance. The embedder and all
// watchers are children of ctx and stop when it is canceled.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	registry, err := storage.NewRegistry(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize project registry: %w", err)
	}

	// Shared between indexer and searcher so query embeddings hit the
	// same cache the indexer filled. May be nil (lexical-only mode).
	emb, err := embedder.NewFromConfig(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	idx := indexer.New(registry, emb, cfg)
	srch := searcher.New(registry, emb, cfg.Search, cfg.Embedding.Timeout)
	idx.SetOnChange(srch.InvalidateProject)

	watches := watcher.NewManager(ctx, cfg.Watcher,
		func(root string) (watcher.Source, error) {
			return watcher.NewPollSource(root, cfg.Scanner, pollInterval), nil
		},
		func(ctx context.Context, root string) error {
			_, err := idx.Update(ctx, root)
			return err
		},
	)

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:      mcpServer,
		cfg:      cfg,
		registry: registry,
		indexer:  idx,
		searcher: srch,
		watches:  watches,
		emb:      emb,
	}

	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.Close() }()
	return server.ServeStdio(s.mcp)
}

// Close stops all watchers and releases the registry and embedder
func (s *Server) Close() error {
	s.watches.Close()
	if s.emb != nil {
		_ = s.emb.Close()
	}
	return s.registry.Close()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexProjectTool(), s.handleIndexProject)
	s.mcp.AddTool(updateIndexTool(), s.handleUpdateIndex)
	s.mcp.AddTool(searchCodeTool(), s.handleSearchCode)
	s.mcp.AddTool(findFilesTool(), s.handleFindFiles)
	s.mcp.AddTool(readFileTool(), s.handleReadFile)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	s.mcp.AddTool(listProjectsTool(), s.handleListProjects)
	s.mcp.AddTool(deleteProjectTool(), s.handleDeleteProject)
	s.mcp.AddTool(watchProjectTool(), s.handleWatchProject)
	s.mcp.AddTool(unwatchProjectTool(), s.handleUnwatchProject)
}

// Package mcp exposes the indexing and search engine as an MCP server
// over stdio.
//
// Each tool handler validates its arguments, delegates to the engine,
// and returns an indented-JSON text result. Engine errors map onto a
// small set of JSON-RPC error codes so clients can distinguish "not
// indexed" from "indexing in progress" from genuine failures.
package mcp

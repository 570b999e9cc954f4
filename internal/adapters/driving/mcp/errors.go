// Package mcp provides an MCP (Model Context Protocol) server adapter for the
// research pipeline. It lets AI assistants ask questions over the local
// evidence index and feed it new text.
package mcp

import "errors"

// ErrMissingResearchService is returned when the research service is not provided.
var ErrMissingResearchService = errors.New("mcp: research service is required")

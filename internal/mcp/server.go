// Package mcp exposes the lyricsync pipeline as Model Context Protocol tools.
//
// Tools:
//
//	align_lyrics         replace transcript segment texts with matching lyric chunks
//	synthesize_timeline  split text into timed phrase groups
//	get_run              fetch a persisted run by id
//
// The server is reachable over stdio ([Serve]) or streamable HTTP
// ([Handler]).
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/lyricsync/internal/app"
)

// ServerName is reported to MCP clients during initialization.
const ServerName = "lyricsync"

// Version is reported alongside [ServerName]. It is overridden at link time.
var Version = "dev"

// NewServer returns an MCP server with every lyricsync tool registered
// against a.
func NewServer(a *app.App) *mcpsdk.Server {
	s := mcpsdk.NewServer(&mcpsdk.Implementation{Name: ServerName, Version: Version}, nil)
	t := &tools{app: a}

	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name: "align_lyrics",
		Description: "Align transcript segments against reference lyrics. Each segment whose " +
			"best matching lyric chunk scores above the threshold gets the chunk text.",
	}, t.alignLyrics)
	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name: "synthesize_timeline",
		Description: "Split text into phrase groups at sentence marks and filler words and " +
			"assign each a synthetic start and end time in seconds.",
	}, t.synthesizeTimeline)
	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "get_run",
		Description: "Fetch a previously processed run by id.",
	}, t.getRun)
	return s
}

// Serve runs an MCP server for a on stdin/stdout until ctx is cancelled or
// the client disconnects.
func Serve(ctx context.Context, a *app.App) error {
	err := NewServer(a).Run(ctx, &mcpsdk.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp: serve: %w", err)
	}
	return nil
}

// Handler returns a streamable HTTP handler sharing one server for a.
func Handler(a *app.App) http.Handler {
	s := NewServer(a)
	return mcpsdk.NewStreamableHTTPHandler(func(*http.Request) *mcpsdk.Server { return s }, nil)
}

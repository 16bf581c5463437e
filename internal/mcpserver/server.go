// Package mcpserver exposes screen rendering, dispatch, and layout tracing
// to agents over the Model Context Protocol.
package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/billy1976-servant/screenloom/internal/screen/node"
	"github.com/billy1976-servant/screenloom/internal/screen/render"
	"github.com/billy1976-servant/screenloom/internal/state"
	"github.com/billy1976-servant/screenloom/internal/storage"
)

const (
	serverName    = "screenloom"
	serverVersion = "1.0.0"
)

// ScreenSource supplies parsed screen documents by key.
type ScreenSource interface {
	Screen(key string) (node.Document, bool)
	Keys() []string
}

// ScreenQuerier answers filtered screen listings from persistent storage.
type ScreenQuerier interface {
	QueryScreens(ctx context.Context, filter string) ([]storage.ScreenRecord, error)
}

// Config wires the MCP server's collaborators. Querier is optional; without
// it the listing tool falls back to the source keys and rejects filters.
type Config struct {
	Source   ScreenSource
	Store    *state.Store
	Layouts  *state.LayoutStore
	Palettes *state.PaletteStore
	Renderer *render.Renderer
	Querier  ScreenQuerier
}

// Server hosts the MCP tool surface over a shared screen source and state.
type Server struct {
	source    ScreenSource
	store     *state.Store
	layouts   *state.LayoutStore
	palettes  *state.PaletteStore
	renderer  *render.Renderer
	querier   ScreenQuerier
	mcpServer *mcp.Server
}

// NewServer builds an MCP server with all tools registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Source == nil {
		return nil, errors.New("screen source is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("state store is required")
	}
	if cfg.Renderer == nil {
		return nil, errors.New("renderer is required")
	}
	if cfg.Layouts == nil {
		cfg.Layouts = state.NewLayoutStore()
	}
	if cfg.Palettes == nil {
		cfg.Palettes = state.NewPaletteStore()
	}

	s := &Server{
		source:   cfg.Source,
		store:    cfg.Store,
		layouts:  cfg.Layouts,
		palettes: cfg.Palettes,
		renderer: cfg.Renderer,
		querier:  cfg.Querier,
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	mcp.AddTool(mcpServer, ScreenRenderTool(), ScreenRenderHandler(s))
	mcp.AddTool(mcpServer, ScreenDispatchTool(), ScreenDispatchHandler(s))
	mcp.AddTool(mcpServer, LayoutTraceTool(), LayoutTraceHandler(s))
	mcp.AddTool(mcpServer, ScreenListTool(), ScreenListHandler(s))
	s.mcpServer = mcpServer

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until it stops or the
// context ends.
func (s *Server) Serve(ctx context.Context) error {
	return s.serveWithTransport(ctx, &mcp.StdioTransport{})
}

// serveWithTransport starts the MCP server using the provided transport.
func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

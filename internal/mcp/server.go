// Package mcp exposes battle odds, dice and casualty ordering as MCP tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/triplea-game/triplea-sub001/internal/combat/casualty"
	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
)

const (
	// serverName identifies this MCP server to clients.
	serverName = "TripleA Battle MCP"
	// serverVersion identifies the MCP server version.
	serverVersion = "0.1.0"
)

// Config selects the catalog the tools read.
type Config struct {
	// CatalogPath is a YAML catalog; empty uses the classic catalog.
	CatalogPath string
	Logger      *log.Logger
}

// Server hosts the battle tools.
type Server struct {
	mcpServer *mcp.Server
	cache     *casualty.OrderCache
	logger    *log.Logger
}

// New registers the battle tools on a fresh MCP server.
func New(cfg Config) (*Server, error) {
	catalog, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	cache := casualty.NewOrderCache()
	mcp.AddTool(mcpServer, RollDiceTool(), RollDiceHandler(time.Now))
	mcp.AddTool(mcpServer, SimulateBattleTool(), SimulateBattleHandler(cfg.CatalogPath, cache))
	mcp.AddTool(mcpServer, CasualtyOrderTool(), CasualtyOrderHandler(catalog, cache))
	return &Server{mcpServer: mcpServer, cache: cache, logger: cfg.Logger}, nil
}

func loadCatalog(path string) (*unit.Catalog, error) {
	if path == "" || path == "classic" {
		return unit.Classic()
	}
	return unit.LoadCatalogFile(path)
}

// Serve runs the server on stdio until ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	return s.ServeTransport(ctx, &mcp.StdioTransport{})
}

// ServeTransport runs the server on transport until ctx ends or the client
// disconnects.
func (s *Server) ServeTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	if s.logger != nil {
		hits, misses := s.cache.Stats()
		s.logger.Printf("casualty order cache: %d hits, %d misses", hits, misses)
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

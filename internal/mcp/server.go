package mcp

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/ifc-lca/internal/config"
	"github.com/mvp-joe/ifc-lca/internal/matcher"
	"github.com/mvp-joe/ifc-lca/internal/storage"
)

// ServerName and ServerVersion identify the server to MCP clients.
const (
	ServerName    = "ifclca-mcp"
	ServerVersion = "1.0.0"
)

// ServerConfig wires the server to a project.
type ServerConfig struct {
	RootDir string         // relative tool paths resolve against it
	Config  *config.Config // extraction and storage settings
	DB      *sql.DB        // optional; enables ifc_materials
	Matcher matcher.Matcher
}

// MCPServer manages the MCP server lifecycle.
type MCPServer struct {
	config *ServerConfig
	mcp    *server.MCPServer
}

// NewMCPServer creates an MCP server and registers the tools the
// configuration supports. ifc_extract and ifc_elements_basic are always
// available; ifc_match_material needs a Matcher and ifc_materials a DB.
func NewMCPServer(cfg *ServerConfig) (*MCPServer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("server config is required")
	}
	if cfg.Config == nil {
		cfg.Config = config.Default()
	}
	if cfg.RootDir == "" {
		cfg.RootDir = "."
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(true),
	)

	files := &fileResolver{rootDir: cfg.RootDir}
	AddExtractTool(mcpServer, files, cfg.Config.ExtractOptions(false))
	AddBasicElementsTool(mcpServer, files, cfg.Config.Extraction.BasicTypes)

	if cfg.Matcher != nil {
		AddMatchMaterialTool(mcpServer, cfg.Matcher)
	}
	if cfg.DB != nil {
		AddMaterialsTool(mcpServer, storage.NewReader(cfg.DB), cfg.Config.Project.Name, cfg.Matcher)
	}

	return &MCPServer{
		config: cfg,
		mcp:    mcpServer,
	}, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *MCPServer) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting MCP server on stdio...")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	select {
	case <-sigCh:
		log.Printf("Received shutdown signal, stopping gracefully...")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the matcher. The database belongs to the caller.
func (s *MCPServer) Close() error {
	if s.config.Matcher != nil {
		return s.config.Matcher.Close()
	}
	return nil
}

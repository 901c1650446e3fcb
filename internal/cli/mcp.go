package cli

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/ifc-lca/internal/config"
	"github.com/mvp-joe/ifc-lca/internal/matcher"
	"github.com/mvp-joe/ifc-lca/internal/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for IFC element extraction",
	Long: `Start the Model Context Protocol (MCP) server that lets LLM-powered
assistants extract elements and materials from IFC models.

The MCP server provides:
- ifc_extract: elements of a model with volumes and material breakdown
- ifc_elements_basic: element and material names of a model
- ifc_materials: material totals of an imported project
- ifc_match_material: environmental database candidates for a material
  (only when matching.database_path is configured)

It communicates via stdio (standard MCP transport); logs go to stderr.

Example:
  ifclca mcp`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rootDir, err := workingDir()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(rootDir)
	if err != nil {
		return err
	}

	db, err := openDatabase(rootDir, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	log.Printf("IFC LCA MCP Server")
	log.Printf("Project: %s", cfg.Project.Name)
	log.Printf("Element store: %s", config.ResolvePath(rootDir, cfg.Storage.DatabasePath))

	m, err := optionalMatcher(ctx, rootDir, cfg)
	if err != nil {
		return err
	}

	server, err := mcp.NewMCPServer(&mcp.ServerConfig{
		RootDir: rootDir,
		Config:  cfg,
		DB:      db,
		Matcher: m,
	})
	if err != nil {
		if m != nil {
			m.Close()
		}
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer server.Close()

	// Serve (blocks until shutdown)
	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

// optionalMatcher loads the matcher when an environmental database is
// configured and returns nil otherwise.
func optionalMatcher(ctx context.Context, rootDir string, cfg *config.Config) (matcher.Matcher, error) {
	m, err := loadMatcher(ctx, rootDir, cfg)
	if errors.Is(err, errNoMatchingDatabase) {
		log.Printf("Material matching disabled (matching.database_path not set)")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	log.Printf("✓ Indexed %s environmental products", formatNumber(m.Len()))
	return m, nil
}

package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/ifc-lca/internal/matcher"
	"github.com/mvp-joe/ifc-lca/internal/storage"
)

const maxMatchLimit = 50

// AddMatchMaterialTool registers the ifc_match_material tool with an MCP server.
func AddMatchMaterialTool(s *server.MCPServer, m matcher.Matcher) {
	tool := mcp.NewTool(
		"ifc_match_material",
		mcp.WithDescription("Find products in the environmental impact database that match a model material name, e.g. 'Concrete C30/37' or 'Mineral Wool'. Tolerates typos. Returns candidates with GWP per unit, best first."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Material name as found in the model")),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum number of candidates (1-%d, default: configured maximum)", maxMatchLimit))),
	)

	s.AddTool(tool, createMatchMaterialHandler(m))
}

func createMatchMaterialHandler(m matcher.Matcher) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := toolArguments(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		name, err := args.stringArg("name", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var opts struct {
			Limit int `json:"limit"`
		}
		if err := args.bind(&opts); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		// 0 lets the matcher apply its configured maximum
		limit := max(0, min(opts.Limit, maxMatchLimit))

		candidates, err := m.Match(ctx, name, limit)
		if err != nil {
			return nil, fmt.Errorf("material match failed: %w", err)
		}

		return jsonResult(&MatchMaterialResponse{
			Material:   name,
			Candidates: candidates,
			Total:      len(candidates),
		})
	}
}

// AddMaterialsTool registers the ifc_materials tool with an MCP server.
// m may be nil, in which case match requests are answered without matches.
func AddMaterialsTool(s *server.MCPServer, reader *storage.Reader, defaultProject string, m matcher.Matcher) {
	tool := mcp.NewTool(
		"ifc_materials",
		mcp.WithDescription("List the unique materials of an imported project with their total volume and element count. Optionally match each against the environmental impact database."),
		mcp.WithString("project",
			mcp.Description(fmt.Sprintf("Project name (default: %s)", defaultProject))),
		mcp.WithBoolean("match",
			mcp.Description("Also return database candidates for each material")),
	)

	s.AddTool(tool, createMaterialsHandler(reader, defaultProject, m))
}

func createMaterialsHandler(reader *storage.Reader, defaultProject string, m matcher.Matcher) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := toolArguments(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var opts struct {
			Project string `json:"project"`
			Match   bool   `json:"match"`
		}
		if err := args.bind(&opts); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		project := opts.Project
		if project == "" {
			project = defaultProject
		}

		materials, err := reader.UniqueMaterials(ctx, project)
		if err != nil {
			return nil, err
		}
		if materials == nil {
			materials = []storage.MaterialSummary{}
		}

		response := &MaterialsResponse{
			Project:   project,
			Materials: materials,
			Total:     len(materials),
		}

		if opts.Match && m != nil {
			matches, err := m.MatchAll(ctx, materials)
			if err != nil {
				return nil, fmt.Errorf("material match failed: %w", err)
			}
			response.Matches = matches
		}

		return jsonResult(response)
	}
}

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/ifc-lca/internal/extract"
	"github.com/mvp-joe/ifc-lca/internal/ifc"
)

// AddExtractTool registers the ifc_extract tool with an MCP server.
func AddExtractTool(s *server.MCPServer, files *fileResolver, opts []extract.Option) {
	tool := mcp.NewTool(
		"ifc_extract",
		mcp.WithDescription("Extract building elements from an IFC model with their storey, volume (m3, three decimals) and material breakdown. Layered materials are split by layer thickness. Returns elements grouped by IFC entity type."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path of the .ifc file, absolute or relative to the project root")),
		mcp.WithArray("types",
			mcp.Description("Only return these entity types, e.g. ['IFCWALL', 'IFCSLAB']. Leave empty for every element with geometry.")),
	)

	s.AddTool(tool, createExtractHandler(files, opts))
}

func createExtractHandler(files *fileResolver, opts []extract.Option) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := toolArguments(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		rawPath, err := args.stringArg("path", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		path, err := files.resolve(rawPath)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var filter struct {
			Types []string `json:"types"`
		}
		if err := args.bind(&filter); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		runOpts := append([]extract.Option(nil), opts...)
		if types := nonEmpty(filter.Types); len(types) > 0 {
			runOpts = append(runOpts, extract.WithElementTypes(types...))
		}

		f, err := os.Open(path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("cannot open %s: %v", rawPath, err)), nil
		}
		defer f.Close()

		result, err := extract.ExtractReader(f, runOpts...)
		if err != nil {
			return nil, fmt.Errorf("extraction failed: %w", err)
		}

		return jsonResult(&ExtractResponse{
			File:            path,
			ElementsByType:  result.ElementsByType,
			LengthUnitScale: result.LengthUnitScale,
			Stats:           result.Stats,
		})
	}
}

// AddBasicElementsTool registers the ifc_elements_basic tool with an MCP server.
func AddBasicElementsTool(s *server.MCPServer, files *fileResolver, types []string) {
	tool := mcp.NewTool(
		"ifc_elements_basic",
		mcp.WithDescription("List walls, slabs, beams, columns, doors and windows of an IFC model with the names of their associated materials. Faster than ifc_extract; no volumes or layer fractions."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path of the .ifc file, absolute or relative to the project root")),
	)

	s.AddTool(tool, createBasicElementsHandler(files, types))
}

func createBasicElementsHandler(files *fileResolver, types []string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := toolArguments(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		rawPath, err := args.stringArg("path", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		path, err := files.resolve(rawPath)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		f, err := os.Open(path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("cannot open %s: %v", rawPath, err)), nil
		}
		defer f.Close()

		store, err := ifc.Parse(f)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", rawPath, err)
		}

		elements := extract.ExtractBasic(store, types...)
		if elements == nil {
			elements = []extract.BasicElement{}
		}
		return jsonResult(&BasicElementsResponse{
			File:     path,
			Elements: elements,
			Total:    len(elements),
		})
	}
}

// jsonResult marshals a response into a text result (mcp-go convention).
func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/ifc-lca/internal/config"
	"github.com/mvp-joe/ifc-lca/internal/extract"
	"github.com/mvp-joe/ifc-lca/internal/matcher"
	"github.com/mvp-joe/ifc-lca/internal/storage"
)

// Test Plan for the MCP tools:
// - NewMCPServer requires a config and registers tools for what is wired
// - ifc_extract returns elements grouped by type with volumes and materials
// - ifc_extract honours the types filter, also sent as a comma separated string
// - ifc_extract and ifc_elements_basic report missing or invalid paths as tool errors
// - ifc_elements_basic lists material names of the basic element types
// - ifc_match_material returns ranked candidates and validates its arguments
// - ifc_materials lists the stored aggregate, with matches on request

const testdataDir = "../../testdata"

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	request := mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
	result, err := handler(context.Background(), request)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	textContent, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok, "content should be text")
	return textContent.Text
}

func decodeResult[T any](t *testing.T, result *mcp.CallToolResult) T {
	t.Helper()
	require.False(t, result.IsError, "unexpected tool error: %s", resultText(t, result))
	var v T
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &v))
	return v
}

func testResolver() *fileResolver {
	return &fileResolver{rootDir: testdataDir}
}

func testMatcher(t *testing.T) matcher.Matcher {
	t.Helper()
	m, err := matcher.NewFromFile(context.Background(), filepath.Join(testdataDir, "environmental.json"), matcher.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestNewMCPServer(t *testing.T) {
	t.Parallel()

	_, err := NewMCPServer(nil)
	require.Error(t, err)

	s, err := NewMCPServer(&ServerConfig{})
	require.NoError(t, err)
	assert.NotNil(t, s.mcp)
	assert.Equal(t, ".", s.config.RootDir)
	assert.NotNil(t, s.config.Config)
	assert.NoError(t, s.Close())

	m := testMatcher(t)
	s, err = NewMCPServer(&ServerConfig{
		RootDir: testdataDir,
		Config:  config.Default(),
		DB:      storage.NewTestDB(t),
		Matcher: m,
	})
	require.NoError(t, err)
	assert.NotNil(t, s.mcp)
}

func TestExtractTool(t *testing.T) {
	t.Parallel()

	handler := createExtractHandler(testResolver(), config.Default().ExtractOptions(false))
	resp := decodeResult[ExtractResponse](t, callTool(t, handler, map[string]interface{}{
		"path": "ifc/sample.ifc",
	}))

	abs, err := filepath.Abs(filepath.Join(testdataDir, "ifc", "sample.ifc"))
	require.NoError(t, err)
	assert.Equal(t, abs, resp.File)
	assert.Equal(t, 0.001, resp.LengthUnitScale)
	assert.Equal(t, 3, resp.Stats.Elements)

	require.Len(t, resp.ElementsByType["IFCWALL"], 1)
	wall := resp.ElementsByType["IFCWALL"][0]
	assert.Equal(t, "Exterior Wall", wall.Name)
	assert.Equal(t, "Ground Floor", wall.BuildingStorey)
	assert.Equal(t, "12.500", wall.Volume)
	assert.Equal(t, []extract.Material{{
		Name:         "Concrete C30/37",
		Fraction:     1,
		Volume:       12.5,
		LayerSetName: extract.SingleMaterialLayerSet,
		Count:        1,
	}}, wall.Materials)

	require.Len(t, resp.ElementsByType["IFCSLAB"], 1)
	slab := resp.ElementsByType["IFCSLAB"][0]
	require.Len(t, slab.Materials, 3)
	assert.InDelta(t, 50.0/350.0, slab.Materials[0].Fraction, 1e-9)
	assert.InDelta(t, 20.0, slab.Materials[1].Volume, 1e-9)

	require.Len(t, resp.ElementsByType["IFCDOOR"], 1)
	assert.Equal(t, "0.120", resp.ElementsByType["IFCDOOR"][0].Volume)
	assert.NotContains(t, resp.ElementsByType, "IFCBEAM")
}

func TestExtractTool_TypesFilter(t *testing.T) {
	t.Parallel()

	handler := createExtractHandler(testResolver(), nil)
	resp := decodeResult[ExtractResponse](t, callTool(t, handler, map[string]interface{}{
		"path":  "ifc/sample.ifc",
		"types": []interface{}{"ifcdoor"},
	}))

	require.Len(t, resp.ElementsByType, 1)
	door := resp.ElementsByType["IFCDOOR"][0]

	asString := decodeResult[ExtractResponse](t, callTool(t, handler, map[string]interface{}{
		"path":  "ifc/sample.ifc",
		"types": "IFCWALL,IFCSLAB",
	}))
	assert.Len(t, asString.ElementsByType, 2)
	require.Len(t, door.Materials, 2)
	assert.Equal(t, extract.MaterialListLayerSet, door.Materials[0].LayerSetName)
	assert.InDelta(t, 0.06, door.Materials[1].Volume, 1e-9)
}

func TestModelTools_PathErrors(t *testing.T) {
	t.Parallel()

	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"extract": createExtractHandler(testResolver(), nil),
		"basic":   createBasicElementsHandler(testResolver(), nil),
	}

	tests := []struct {
		name    string
		args    map[string]interface{}
		wantMsg string
	}{
		{"missing path", map[string]interface{}{}, "path parameter is required"},
		{"empty path", map[string]interface{}{"path": ""}, "path cannot be empty"},
		{"wrong type", map[string]interface{}{"path": 42.0}, "path must be a string"},
		{"not found", map[string]interface{}{"path": "ifc/missing.ifc"}, "cannot read"},
		{"directory", map[string]interface{}{"path": "ifc"}, "is a directory"},
	}

	for toolName, handler := range handlers {
		for _, tt := range tests {
			t.Run(toolName+"/"+tt.name, func(t *testing.T) {
				result := callTool(t, handler, tt.args)
				assert.True(t, result.IsError)
				assert.Contains(t, resultText(t, result), tt.wantMsg)
			})
		}
	}
}

func TestBasicElementsTool(t *testing.T) {
	t.Parallel()

	abs, err := filepath.Abs(filepath.Join(testdataDir, "ifc", "sample.ifc"))
	require.NoError(t, err)

	handler := createBasicElementsHandler(testResolver(), nil)
	resp := decodeResult[BasicElementsResponse](t, callTool(t, handler, map[string]interface{}{
		"path": abs,
	}))

	require.Equal(t, 4, resp.Total)
	byName := make(map[string][]string)
	for _, el := range resp.Elements {
		byName[el.Name] = el.MaterialNames
	}
	assert.Equal(t, []string{"Concrete C30/37"}, byName["Exterior Wall"])
	assert.Equal(t, []string{"Screed", "Concrete C30/37", "Mineral Wool"}, byName["Ground Slab"])
	assert.Equal(t, []string{"Timber", "Glass"}, byName["Entrance Door"])
	// the basic pathway does not require geometry
	assert.Equal(t, []string{"Concrete C30/37"}, byName["Lintel"])

	noWindows := createBasicElementsHandler(testResolver(), []string{"IFCWINDOW"})
	resp = decodeResult[BasicElementsResponse](t, callTool(t, noWindows, map[string]interface{}{
		"path": abs,
	}))
	assert.Equal(t, 0, resp.Total)
	assert.NotNil(t, resp.Elements)
}

func TestMatchMaterialTool(t *testing.T) {
	t.Parallel()

	handler := createMatchMaterialHandler(testMatcher(t))

	resp := decodeResult[MatchMaterialResponse](t, callTool(t, handler, map[string]interface{}{
		"name":  "Concrete C30/37",
		"limit": 2.0,
	}))
	assert.Equal(t, "Concrete C30/37", resp.Material)
	require.Len(t, resp.Candidates, 2)
	assert.Equal(t, "oko-1.4.01", resp.Candidates[0].ID)
	assert.Equal(t, 2, resp.Total)

	resp = decodeResult[MatchMaterialResponse](t, callTool(t, handler, map[string]interface{}{
		"name": "Minerl wool",
	}))
	require.NotEmpty(t, resp.Candidates)
	assert.Equal(t, "oko-2.2.01", resp.Candidates[0].ID)

	// clients that send numbers as strings
	resp = decodeResult[MatchMaterialResponse](t, callTool(t, handler, map[string]interface{}{
		"name":  "Float glass",
		"limit": "1",
	}))
	require.Len(t, resp.Candidates, 1)
	assert.Equal(t, "oko-4.1.01", resp.Candidates[0].ID)

	result := callTool(t, handler, map[string]interface{}{})
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "name parameter is required")

	result = callTool(t, handler, map[string]interface{}{"name": "Glass", "limit": "lots"})
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "invalid arguments")
}

func TestMaterialsTool(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := storage.NewTestDB(t)

	data, err := os.Open(filepath.Join(testdataDir, "ifc", "sample.ifc"))
	require.NoError(t, err)
	defer data.Close()
	result, err := extract.ExtractReader(data)
	require.NoError(t, err)
	_, err = storage.NewWriter(db, 10).UpsertElements(ctx, "house", "sample.ifc", result.Elements())
	require.NoError(t, err)

	reader := storage.NewReader(db)

	plain := createMaterialsHandler(reader, "house", nil)
	resp := decodeResult[MaterialsResponse](t, callTool(t, plain, map[string]interface{}{"match": true}))
	assert.Equal(t, "house", resp.Project)
	assert.Equal(t, 5, resp.Total)
	assert.Equal(t, "Concrete C30/37", resp.Materials[0].Name)
	assert.Empty(t, resp.Matches)

	matching := createMaterialsHandler(reader, "house", testMatcher(t))
	resp = decodeResult[MaterialsResponse](t, callTool(t, matching, map[string]interface{}{"match": true}))
	require.Len(t, resp.Matches, 5)
	assert.Equal(t, "Concrete C30/37", resp.Matches[0].Material.Name)
	require.NotEmpty(t, resp.Matches[0].Candidates)
	assert.Equal(t, "oko-1.4.01", resp.Matches[0].Candidates[0].ID)

	other := decodeResult[MaterialsResponse](t, callTool(t, plain, map[string]interface{}{"project": "annex"}))
	assert.Equal(t, "annex", other.Project)
	assert.Equal(t, 0, other.Total)
	assert.NotNil(t, other.Materials)
}

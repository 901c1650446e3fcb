package mcp

import (
	"github.com/mvp-joe/ifc-lca/internal/extract"
	"github.com/mvp-joe/ifc-lca/internal/matcher"
	"github.com/mvp-joe/ifc-lca/internal/storage"
)

// ExtractResponse is the JSON body of the ifc_extract tool.
type ExtractResponse struct {
	File            string                       `json:"file"`
	ElementsByType  map[string][]extract.Element `json:"elementsByType"`
	LengthUnitScale float64                      `json:"lengthUnitScale"`
	Stats           extract.Stats                `json:"stats"`
}

// BasicElementsResponse is the JSON body of the ifc_elements_basic tool.
type BasicElementsResponse struct {
	File     string                 `json:"file"`
	Elements []extract.BasicElement `json:"elements"`
	Total    int                    `json:"total"`
}

// MatchMaterialResponse is the JSON body of the ifc_match_material tool.
type MatchMaterialResponse struct {
	Material   string              `json:"material"`
	Candidates []matcher.Candidate `json:"candidates"`
	Total      int                 `json:"total"`
}

// MaterialsResponse is the JSON body of the ifc_materials tool. Matches is
// only present when matching was requested and a database is loaded.
type MaterialsResponse struct {
	Project   string                    `json:"project"`
	Materials []storage.MaterialSummary `json:"materials"`
	Matches   []matcher.MaterialMatch   `json:"matches,omitempty"`
	Total     int                       `json:"total"`
}

package storage

import (
	"fmt"
	"time"

	"github.com/mvp-joe/ifc-lca/internal/extract"
)

// Domain models that mirror SQL tables in schema.go.
// These are lightweight data transfer structs, NOT ORM models.

// StoredElement is an extracted element as persisted for a project.
// Maps to the elements table + joined rows of element_materials.
type StoredElement struct {
	Key        string // element_key: GlobalId or #<id>@<file>
	Project    string
	SourceFile string
	UpdatedAt  time.Time
	extract.Element
}

// MaterialSummary is one row of the per-project materials aggregate.
type MaterialSummary struct {
	Name         string  `json:"name"`
	TotalVolume  float64 `json:"totalVolume"`
	ElementCount int     `json:"elementCount"`
}

// ImportRun records one pass of the importer over a project.
type ImportRun struct {
	ID              string
	Project         string
	StartedAt       time.Time
	FinishedAt      *time.Time // nil while the run is in progress
	FilesImported   int
	FilesUnchanged  int
	FilesFailed     int
	ElementsWritten int
}

// ElementKey returns the identity of an element within a project. Elements
// without a GlobalId are keyed by their STEP id and source file, so they
// stay distinct across files.
func ElementKey(el extract.Element, sourceFile string) string {
	if el.GlobalID != "" {
		return el.GlobalID
	}
	return fmt.Sprintf("#%d@%s", el.ID, sourceFile)
}

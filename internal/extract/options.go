package extract

import (
	"sort"
	"strings"

	"github.com/mvp-joe/ifc-lca/internal/ifc"
)

// Policy defaults. Both are overridable through Options.
const (
	DefaultFractionTolerance = 1e-4
	DefaultMaterialBatchSize = 1000
)

// DefaultExcludeTypes are spatial structure types that carry geometry but
// are not building elements.
var DefaultExcludeTypes = []string{
	ifc.TypeProject,
	ifc.TypeSite,
	ifc.TypeBuilding,
	ifc.TypeBuildingStorey,
	ifc.TypeSpace,
}

// DefaultBasicTypes are the element types served by ExtractBasic.
var DefaultBasicTypes = []string{
	ifc.TypeWall,
	ifc.TypeWallStandardCase,
	ifc.TypeSlab,
	ifc.TypeBeam,
	ifc.TypeColumn,
	ifc.TypeDoor,
	ifc.TypeWindow,
}

// Options configures an extraction run.
type Options struct {
	FractionTolerance float64
	MaterialBatchSize int
	ElementTypes      []string // allowlist; empty means every geometry-bearing type
	ExcludeTypes      []string
	Verbose           bool // log advisory counts
}

// Option configures an Extractor.
type Option func(*Options)

// WithFractionTolerance sets how far a layer fraction sum may drift from 1.0
// before it is rescaled.
func WithFractionTolerance(tol float64) Option {
	return func(o *Options) {
		if tol > 0 {
			o.FractionTolerance = tol
		}
	}
}

// WithMaterialBatchSize sets how many material relations are handled per batch.
func WithMaterialBatchSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaterialBatchSize = n
		}
	}
}

// WithElementTypes restricts the output to the given entity types.
func WithElementTypes(types ...string) Option {
	return func(o *Options) {
		o.ElementTypes = types
	}
}

// WithExcludeTypes replaces the list of geometry-bearing types to skip.
func WithExcludeTypes(types ...string) Option {
	return func(o *Options) {
		o.ExcludeTypes = types
	}
}

// WithVerbose enables logging of advisory counts.
func WithVerbose(v bool) Option {
	return func(o *Options) {
		o.Verbose = v
	}
}

func defaultOptions() Options {
	return Options{
		FractionTolerance: DefaultFractionTolerance,
		MaterialBatchSize: DefaultMaterialBatchSize,
		ExcludeTypes:      DefaultExcludeTypes,
	}
}

// typeSet builds an upper-cased lookup set; nil when types is empty.
func typeSet(types []string) map[string]bool {
	if len(types) == 0 {
		return nil
	}
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[strings.ToUpper(strings.TrimSpace(t))] = true
	}
	return set
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortElements(elements []Element) {
	sort.Slice(elements, func(i, j int) bool { return elements[i].ID < elements[j].ID })
}

package extract

// Labels used when the model does not provide one.
const (
	UnknownElement         = "Unknown Element"
	UnknownStory           = "Unknown Story"
	SingleMaterialLayerSet = "Single Material"
	UnnamedLayerSet        = "Unnamed Layer Set"
	MaterialListLayerSet   = "Material List"
	ZeroVolume             = "0.000"
)

// Material is one entry of an element's material breakdown.
type Material struct {
	Name         string  `json:"name"`
	Fraction     float64 `json:"fraction"`     // share of the element, 0..1
	Volume       float64 `json:"volume"`       // Fraction * element volume
	LayerSetName string  `json:"layerSetName"` // "Single Material" for direct associations
	Count        int     `json:"count"`
}

// Element is one geometry-bearing building element with its resolved data.
type Element struct {
	ID             int        `json:"id"`
	GlobalID       string     `json:"globalId"`
	Type           string     `json:"type"`
	Name           string     `json:"name"`
	BuildingStorey string     `json:"buildingStorey"`
	Materials      []Material `json:"materials"`
	Volume         string     `json:"volume"` // three decimals, "0.000" when unresolved
}

// Relationship accumulates what the resolver passes learn about one element.
type Relationship struct {
	Materials        []Material
	SpatialStructure int // storey entity id, 0 when not contained
}

// BasicElement is the output of the narrower name/material pathway.
type BasicElement struct {
	ID            int      `json:"id"`
	GlobalID      string   `json:"globalId"`
	Type          string   `json:"type"`
	Name          string   `json:"name"`
	MaterialNames []string `json:"materialNames"`
}

// Stats holds the advisory counts of one extraction run.
type Stats struct {
	Entities          int `json:"entities"`
	SkippedRecords    int `json:"skippedRecords"`
	Materials         int `json:"materials"`
	PropertySetLinks  int `json:"propertySetLinks"`
	MaterialRelations int `json:"materialRelations"`
	SpatialRelations  int `json:"spatialRelations"`
	Elements          int `json:"elements"`
}

// Result is everything one extraction run produces.
type Result struct {
	ElementsByType  map[string][]Element `json:"elementsByType"`
	LengthUnitScale float64              `json:"lengthUnitScale"` // informational, never applied
	Stats           Stats                `json:"stats"`
}

// Elements flattens ElementsByType ordered by element id.
func (r *Result) Elements() []Element {
	var all []Element
	for _, t := range sortedKeys(r.ElementsByType) {
		all = append(all, r.ElementsByType[t]...)
	}
	sortElements(all)
	return all
}

package extract

import "github.com/mvp-joe/ifc-lca/internal/ifc"

// Attribute positions of IFCRELCONTAINEDINSPATIALSTRUCTURE.
const (
	relContainedElements  = 4
	relContainedStructure = 5
)

// SpatialResolver attaches a containing spatial structure to elements.
type SpatialResolver struct {
	store *ifc.Store
}

// NewSpatialResolver creates a resolver over the store.
func NewSpatialResolver(store *ifc.Store) *SpatialResolver {
	return &SpatialResolver{store: store}
}

// Resolve processes containment relations in ascending id order. When an
// element appears in several relations the last one processed wins.
// It returns the number of relations handled.
func (s *SpatialResolver) Resolve(records map[int]*Relationship) int {
	relIDs := s.store.GetByType(ifc.TypeRelContainedInSpatial)
	for _, relID := range relIDs {
		rel, _ := s.store.Get(relID)
		structureID, ok := ifc.RefID(rel.Attr(relContainedStructure))
		if !ok {
			continue
		}
		for _, elementID := range ifc.RefList(rel.Attr(relContainedElements)) {
			record(records, elementID).SpatialStructure = structureID
		}
	}
	return len(relIDs)
}

// StoreyName returns the display name of a spatial structure entity, or
// UnknownStory when it is missing or unnamed.
func StoreyName(store *ifc.Store, structureID int) string {
	if structureID == 0 {
		return UnknownStory
	}
	structure, ok := store.Get(structureID)
	if !ok {
		return UnknownStory
	}
	name := ifc.StripQuotes(structure.Attr(productName))
	if name == "" {
		return UnknownStory
	}
	return name
}

package extract

import "github.com/mvp-joe/ifc-lca/internal/ifc"

// Attribute positions of IFCRELDEFINESBYPROPERTIES.
const (
	relDefinesRelatedObjects = 4
	relDefinesDefinition     = 5
)

// PropertySetIndex maps element ids to the property and quantity sets
// attached to them, so volume resolution never rescans every relation.
type PropertySetIndex struct {
	sets  map[int][]int
	links int
}

// NewPropertySetIndex indexes every IFCRELDEFINESBYPROPERTIES in one pass.
// Relations whose property definition is not a single reference are skipped.
func NewPropertySetIndex(store *ifc.Store) *PropertySetIndex {
	idx := &PropertySetIndex{sets: make(map[int][]int)}

	for _, relID := range store.GetByType(ifc.TypeRelDefinesByProperties) {
		rel, _ := store.Get(relID)
		psetID, ok := ifc.RefID(rel.Attr(relDefinesDefinition))
		if !ok {
			continue
		}
		for _, objID := range ifc.RefList(rel.Attr(relDefinesRelatedObjects)) {
			idx.sets[objID] = append(idx.sets[objID], psetID)
			idx.links++
		}
	}

	return idx
}

// Get returns the property-set ids attached to an element, in relation order.
func (p *PropertySetIndex) Get(elementID int) []int {
	return p.sets[elementID]
}

// Links returns the number of element/property-set pairs indexed.
func (p *PropertySetIndex) Links() int {
	return p.links
}

package extract

import (
	"fmt"
	"io"
	"log"
	"sort"

	"github.com/mvp-joe/ifc-lca/internal/ifc"
)

// Attribute positions shared by rooted products.
const (
	productName           = 2 // IfcRoot.Name
	productRepresentation = 6 // IfcProduct.Representation
)

// Extractor runs one extraction over a parsed store. It owns every
// run-scoped index and cache; create a new Extractor per extraction.
type Extractor struct {
	store   *ifc.Store
	opts    Options
	psets   *PropertySetIndex
	volumes *VolumeResolver
	records map[int]*Relationship
	stats   Stats
	done    bool
}

// New creates an Extractor for store.
func New(store *ifc.Store, opts ...Option) *Extractor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Extractor{
		store:   store,
		opts:    o,
		records: make(map[int]*Relationship),
	}
}

// Extract is a convenience wrapper running a fresh Extractor over store.
func Extract(store *ifc.Store, opts ...Option) *Result {
	return New(store, opts...).Extract()
}

// ExtractReader parses r and extracts its elements.
func ExtractReader(r io.Reader, opts ...Option) (*Result, error) {
	store, err := ifc.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse IFC: %w", err)
	}
	return Extract(store, opts...), nil
}

// Extract resolves property sets, materials and containment, then emits
// every geometry-bearing element grouped by entity type.
func (x *Extractor) Extract() *Result {
	x.resolve()

	byType := make(map[string][]Element)
	for _, id := range x.geometryBearing() {
		el := x.element(id)
		byType[el.Type] = append(byType[el.Type], el)
	}

	x.stats.Elements = 0
	for _, elements := range byType {
		x.stats.Elements += len(elements)
	}
	if x.opts.Verbose {
		log.Printf("[extract] %d elements across %d types", x.stats.Elements, len(byType))
	}

	return &Result{
		ElementsByType:  byType,
		LengthUnitScale: LengthUnitScale(x.store),
		Stats:           x.stats,
	}
}

// Volume returns the resolved volume string of any entity.
func (x *Extractor) Volume(elementID int) string {
	x.resolve()
	return x.volumes.Resolve(elementID)
}

// Relationship returns the relationship record of an element.
func (x *Extractor) Relationship(elementID int) (*Relationship, bool) {
	x.resolve()
	rec, ok := x.records[elementID]
	return rec, ok
}

// resolve runs the resolver passes once, in dependency order.
func (x *Extractor) resolve() {
	if x.done {
		return
	}
	x.done = true

	x.stats.Entities = x.store.Len()
	x.stats.SkippedRecords = x.store.Skipped()
	x.stats.Materials = x.store.MaterialCount()
	if x.opts.Verbose {
		log.Printf("[extract] parsed %d entities (%d skipped), %d materials indexed",
			x.stats.Entities, x.stats.SkippedRecords, x.stats.Materials)
	}

	x.psets = NewPropertySetIndex(x.store)
	x.volumes = NewVolumeResolver(x.store, x.psets)
	x.stats.PropertySetLinks = x.psets.Links()

	x.stats.MaterialRelations = NewMaterialResolver(x.store, x.volumes, x.opts).Resolve(x.records)
	x.stats.SpatialRelations = NewSpatialResolver(x.store).Resolve(x.records)

	if x.opts.Verbose {
		log.Printf("[extract] %d property-set links, %d material relations, %d spatial relations",
			x.stats.PropertySetLinks, x.stats.MaterialRelations, x.stats.SpatialRelations)
	}
}

// geometryBearing traces every product definition shape back to the product
// whose Representation attribute points at it.
func (x *Extractor) geometryBearing() []int {
	include := typeSet(x.opts.ElementTypes)
	exclude := typeSet(x.opts.ExcludeTypes)
	refs := ifc.NewReferenceGraph(x.store, ifc.TypeProductDefinitionShape)

	seen := make(map[int]bool)
	var ids []int
	for _, shapeID := range x.store.GetByType(ifc.TypeProductDefinitionShape) {
		for _, ownerID := range refs.Referrers(shapeID) {
			if seen[ownerID] {
				continue
			}
			owner, _ := x.store.Get(ownerID)
			if rep, ok := ifc.RefID(owner.Attr(productRepresentation)); !ok || rep != shapeID {
				continue
			}
			if exclude[owner.Type] || (include != nil && !include[owner.Type]) {
				continue
			}
			seen[ownerID] = true
			ids = append(ids, ownerID)
		}
	}

	sort.Ints(ids)
	return ids
}

func (x *Extractor) element(id int) Element {
	entity, _ := x.store.Get(id)

	name := ifc.StripQuotes(entity.Attr(productName))
	if name == "" {
		name = UnknownElement
	}

	materials := []Material{}
	storey := UnknownStory
	if rec, ok := x.records[id]; ok {
		if len(rec.Materials) > 0 {
			materials = rec.Materials
		}
		storey = StoreyName(x.store, rec.SpatialStructure)
	}

	return Element{
		ID:             id,
		GlobalID:       entity.GlobalID,
		Type:           entity.Type,
		Name:           name,
		BuildingStorey: storey,
		Materials:      materials,
		Volume:         x.volumes.Resolve(id),
	}
}

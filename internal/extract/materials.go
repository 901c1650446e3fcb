package extract

import (
	"log"
	"math"

	"github.com/mvp-joe/ifc-lca/internal/ifc"
)

// Attribute positions used by material resolution.
const (
	relAssociatesRelatedObjects = 4 // IFCRELASSOCIATESMATERIAL.RelatedObjects
	relAssociatesMaterial       = 5 // IFCRELASSOCIATESMATERIAL.RelatingMaterial
	layerSetUsageLayerSet       = 0 // IFCMATERIALLAYERSETUSAGE.ForLayerSet
	layerSetLayers              = 0 // IFCMATERIALLAYERSET.MaterialLayers
	layerSetName                = 1 // IFCMATERIALLAYERSET.LayerSetName
	layerMaterial               = 0 // IFCMATERIALLAYER.Material
	layerThickness              = 1 // IFCMATERIALLAYER.LayerThickness
	materialListMaterials       = 0 // IFCMATERIALLIST.Materials
)

// share is one material's portion of an element before the element volume
// is applied.
type share struct {
	name     string
	fraction float64
	layerSet string
}

// MaterialResolver turns material associations into per-element fraction
// and volume breakdowns.
type MaterialResolver struct {
	store     *ifc.Store
	volumes   *VolumeResolver
	tolerance float64
	batchSize int
	verbose   bool
}

// NewMaterialResolver creates a resolver. Element volumes come from volumes.
func NewMaterialResolver(store *ifc.Store, volumes *VolumeResolver, opts Options) *MaterialResolver {
	return &MaterialResolver{
		store:     store,
		volumes:   volumes,
		tolerance: opts.FractionTolerance,
		batchSize: opts.MaterialBatchSize,
		verbose:   opts.Verbose,
	}
}

// Resolve processes every IFCRELASSOCIATESMATERIAL in ascending id order,
// appending entries to records. It returns the number of relations handled.
// Batching only bounds the working set; it does not change the result.
func (m *MaterialResolver) Resolve(records map[int]*Relationship) int {
	relIDs := m.store.GetByType(ifc.TypeRelAssociatesMaterial)
	batchSize := m.batchSize
	if batchSize <= 0 {
		batchSize = DefaultMaterialBatchSize
	}

	for start := 0; start < len(relIDs); start += batchSize {
		end := min(start+batchSize, len(relIDs))
		for _, relID := range relIDs[start:end] {
			m.resolveRelation(relID, records)
		}
		if m.verbose {
			log.Printf("[extract] material relations %d/%d", end, len(relIDs))
		}
	}

	return len(relIDs)
}

func (m *MaterialResolver) resolveRelation(relID int, records map[int]*Relationship) {
	rel, _ := m.store.Get(relID)
	materialID, ok := ifc.RefID(rel.Attr(relAssociatesMaterial))
	if !ok {
		return
	}
	shares := m.shares(materialID)
	if len(shares) == 0 {
		return
	}

	for _, elementID := range ifc.RefList(rel.Attr(relAssociatesRelatedObjects)) {
		volume := m.volumes.ResolveValue(elementID)
		rec := record(records, elementID)
		for _, s := range shares {
			rec.Materials = append(rec.Materials, Material{
				Name:         s.name,
				Fraction:     s.fraction,
				Volume:       s.fraction * volume,
				LayerSetName: s.layerSet,
				Count:        1,
			})
		}
	}
}

// shares resolves the relating material of an association. Unknown or
// dangling materials yield nil.
func (m *MaterialResolver) shares(materialID int) []share {
	mat, ok := m.store.Get(materialID)
	if !ok {
		return nil
	}

	switch mat.Type {
	case ifc.TypeMaterial:
		name, ok := m.store.MaterialName(materialID)
		if !ok {
			return nil
		}
		return []share{{name: name, fraction: 1.0, layerSet: SingleMaterialLayerSet}}

	case ifc.TypeMaterialLayerSetUsage:
		setID, ok := ifc.RefID(mat.Attr(layerSetUsageLayerSet))
		if !ok {
			return nil
		}
		return m.layerSetShares(setID)

	case ifc.TypeMaterialLayerSet:
		return m.layerSetShares(materialID)

	case ifc.TypeMaterialList:
		return m.listShares(mat)
	}

	return nil
}

func (m *MaterialResolver) layerSetShares(setID int) []share {
	set, ok := m.store.Get(setID)
	if !ok || set.Type != ifc.TypeMaterialLayerSet {
		return nil
	}
	setName := set.Attr(layerSetName)
	if setName == "" {
		setName = UnnamedLayerSet
	}

	var names []string
	var thicknesses []float64
	for _, layerID := range ifc.RefList(set.Attr(layerSetLayers)) {
		layer, ok := m.store.Get(layerID)
		if !ok || layer.Type != ifc.TypeMaterialLayer {
			continue
		}
		matID, ok := ifc.RefID(layer.Attr(layerMaterial))
		if !ok {
			continue
		}
		name, ok := m.store.MaterialName(matID)
		if !ok {
			continue
		}
		thickness, ok := ifc.ParseMeasure(layer.Attr(layerThickness))
		if !ok {
			thickness = 0
		}
		names = append(names, name)
		thicknesses = append(thicknesses, thickness)
	}

	fractions := NormalizeFractions(thicknesses, m.tolerance)
	shares := make([]share, len(names))
	for i, name := range names {
		shares[i] = share{name: name, fraction: fractions[i], layerSet: setName}
	}
	return shares
}

func (m *MaterialResolver) listShares(list *ifc.Entity) []share {
	var names []string
	for _, matID := range ifc.RefList(list.Attr(materialListMaterials)) {
		if name, ok := m.store.MaterialName(matID); ok {
			names = append(names, name)
		}
	}

	fractions := NormalizeFractions(make([]float64, len(names)), m.tolerance)
	shares := make([]share, len(names))
	for i, name := range names {
		shares[i] = share{name: name, fraction: fractions[i], layerSet: MaterialListLayerSet}
	}
	return shares
}

// NormalizeFractions converts layer thicknesses into volume fractions.
//
// Non-positive thicknesses get 0. When nothing has a positive thickness the
// layers share equally (1/n). A sum that drifts from 1.0 by more than
// tolerance is rescaled.
func NormalizeFractions(thicknesses []float64, tolerance float64) []float64 {
	n := len(thicknesses)
	if n == 0 {
		return nil
	}

	total := 0.0
	for _, t := range thicknesses {
		if t > 0 {
			total += t
		}
	}

	fractions := make([]float64, n)
	sum := 0.0
	for i, t := range thicknesses {
		if t > 0 && total > 0 {
			fractions[i] = t / total
		}
		sum += fractions[i]
	}

	switch {
	case sum <= tolerance:
		for i := range fractions {
			fractions[i] = 1.0 / float64(n)
		}
	case math.Abs(sum-1.0) > tolerance:
		for i := range fractions {
			fractions[i] /= sum
		}
	}
	return fractions
}

// record returns the relationship record for an element, creating it.
func record(records map[int]*Relationship, elementID int) *Relationship {
	rec, ok := records[elementID]
	if !ok {
		rec = &Relationship{}
		records[elementID] = rec
	}
	return rec
}

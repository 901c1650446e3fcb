package extract

import (
	"sort"

	"github.com/mvp-joe/ifc-lca/internal/ifc"
)

// ExtractBasic is the lightweight pathway: for the given element types (or
// DefaultBasicTypes when none are given) it returns names and associated
// material names only. It reads the shared store but builds none of the
// property-set, volume or relationship structures, so it can run alongside
// a full Extractor on the same store.
func ExtractBasic(store *ifc.Store, types ...string) []BasicElement {
	if len(types) == 0 {
		types = DefaultBasicTypes
	}
	wanted := typeSet(types)

	materialNames := basicMaterialIndex(store, wanted)

	var elements []BasicElement
	for _, t := range sortedKeys(wanted) {
		for _, id := range store.GetByType(t) {
			entity, _ := store.Get(id)
			name := ifc.StripQuotes(entity.Attr(productName))
			if name == "" {
				name = UnknownElement
			}
			names := materialNames[id]
			if names == nil {
				names = []string{}
			}
			elements = append(elements, BasicElement{
				ID:            id,
				GlobalID:      entity.GlobalID,
				Type:          entity.Type,
				Name:          name,
				MaterialNames: names,
			})
		}
	}

	sort.Slice(elements, func(i, j int) bool { return elements[i].ID < elements[j].ID })
	return elements
}

// basicMaterialIndex maps element ids of the wanted types to the material
// names referenced by their associations. Layer sets contribute their layer
// materials in order; missing entities are skipped.
func basicMaterialIndex(store *ifc.Store, wanted map[string]bool) map[int][]string {
	index := make(map[int][]string)

	for _, relID := range store.GetByType(ifc.TypeRelAssociatesMaterial) {
		rel, _ := store.Get(relID)
		matID, ok := ifc.RefID(rel.Attr(relAssociatesMaterial))
		if !ok {
			continue
		}
		names := materialNamesOf(store, matID)
		if len(names) == 0 {
			continue
		}
		for _, elementID := range ifc.RefList(rel.Attr(relAssociatesRelatedObjects)) {
			el, ok := store.Get(elementID)
			if !ok || !wanted[el.Type] {
				continue
			}
			index[elementID] = append(index[elementID], names...)
		}
	}
	return index
}

func materialNamesOf(store *ifc.Store, matID int) []string {
	mat, ok := store.Get(matID)
	if !ok {
		return nil
	}

	var layerRefs []int
	switch mat.Type {
	case ifc.TypeMaterial:
		if name, ok := store.MaterialName(matID); ok {
			return []string{name}
		}
		return nil
	case ifc.TypeMaterialList:
		var names []string
		for _, id := range ifc.RefList(mat.Attr(materialListMaterials)) {
			if name, ok := store.MaterialName(id); ok {
				names = append(names, name)
			}
		}
		return names
	case ifc.TypeMaterialLayerSetUsage:
		setID, ok := ifc.RefID(mat.Attr(layerSetUsageLayerSet))
		if !ok {
			return nil
		}
		set, ok := store.Get(setID)
		if !ok {
			return nil
		}
		layerRefs = ifc.RefList(set.Attr(layerSetLayers))
	case ifc.TypeMaterialLayerSet:
		layerRefs = ifc.RefList(mat.Attr(layerSetLayers))
	}

	var names []string
	for _, layerID := range layerRefs {
		layer, ok := store.Get(layerID)
		if !ok {
			continue
		}
		id, ok := ifc.RefID(layer.Attr(layerMaterial))
		if !ok {
			continue
		}
		if name, ok := store.MaterialName(id); ok {
			names = append(names, name)
		}
	}
	return names
}

package extract

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mvp-joe/ifc-lca/internal/ifc"
)

// Attribute positions used by the volume strategies.
const (
	setName                   = 2 // IfcRoot.Name of IFCELEMENTQUANTITY and IFCPROPERTYSET
	elementQuantityQuantities = 5 // IFCELEMENTQUANTITY.Quantities
	quantityName              = 0 // IFCQUANTITYVOLUME.Name
	quantityVolumeValue       = 3 // IFCQUANTITYVOLUME.VolumeValue
	propertySetProperties     = 4 // IFCPROPERTYSET.HasProperties
	propertyName              = 0 // IFCPROPERTYSINGLEVALUE.Name
	propertyNominalValue      = 2 // IFCPROPERTYSINGLEVALUE.NominalValue
)

const (
	netVolume   = "NetVolume"
	grossVolume = "GrossVolume"
)

// volumeStrategy is one step of the resolution chain. It reports whether it
// found a usable, non-negative volume.
type volumeStrategy func(el *ifc.Entity, psets []int) (float64, bool)

// VolumeResolver derives a best-effort volume per element. Results are
// cached for the lifetime of the resolver, which is one extraction run.
type VolumeResolver struct {
	store      *ifc.Store
	psets      *PropertySetIndex
	cache      map[int]string
	baseNames  map[string][]string
	strategies []volumeStrategy
}

// NewVolumeResolver creates a resolver over the store and property-set index.
// Strategies run in order and the first hit wins:
//  1. NetVolume (else GrossVolume) of a base-quantities set named for the type
//  2. a "volume" single value of a quantity-like property set
//  3. zero
func NewVolumeResolver(store *ifc.Store, psets *PropertySetIndex) *VolumeResolver {
	v := &VolumeResolver{
		store:     store,
		psets:     psets,
		cache:     make(map[int]string),
		baseNames: make(map[string][]string),
	}
	v.strategies = []volumeStrategy{
		v.fromBaseQuantities,
		v.fromPropertySets,
	}
	return v
}

// Resolve returns the element volume formatted with three decimals.
// Unknown elements and unresolvable volumes yield "0.000".
func (v *VolumeResolver) Resolve(elementID int) string {
	if cached, ok := v.cache[elementID]; ok {
		return cached
	}

	result := ZeroVolume
	if el, ok := v.store.Get(elementID); ok {
		psets := v.psets.Get(elementID)
		for _, strategy := range v.strategies {
			if vol, found := strategy(el, psets); found {
				result = formatVolume(vol)
				break
			}
		}
	}

	v.cache[elementID] = result
	return result
}

// ResolveValue is Resolve as a number.
func (v *VolumeResolver) ResolveValue(elementID int) float64 {
	f, err := strconv.ParseFloat(v.Resolve(elementID), 64)
	if err != nil {
		return 0
	}
	return f
}

func (v *VolumeResolver) fromBaseQuantities(el *ifc.Entity, psets []int) (float64, bool) {
	names := v.baseQuantityNames(el.Type)

	for _, psetID := range psets {
		qset, ok := v.store.Get(psetID)
		if !ok || qset.Type != ifc.TypeElementQuantity {
			continue
		}
		if !matchesAny(strings.ToUpper(qset.Attr(setName)), names) {
			continue
		}

		var gross float64
		haveGross := false
		for _, qID := range ifc.RefList(qset.Attr(elementQuantityQuantities)) {
			q, ok := v.store.Get(qID)
			if !ok || q.Type != ifc.TypeQuantityVolume {
				continue
			}
			value, ok := usableVolume(q.Attr(quantityVolumeValue))
			if !ok {
				continue
			}
			switch {
			case strings.EqualFold(q.Attr(quantityName), netVolume):
				return value, true
			case strings.EqualFold(q.Attr(quantityName), grossVolume) && !haveGross:
				gross, haveGross = value, true
			}
		}
		if haveGross {
			return gross, true
		}
	}
	return 0, false
}

func (v *VolumeResolver) fromPropertySets(_ *ifc.Entity, psets []int) (float64, bool) {
	for _, psetID := range psets {
		pset, ok := v.store.Get(psetID)
		if !ok || pset.Type != ifc.TypePropertySet {
			continue
		}
		name := pset.Attr(setName)
		if !strings.Contains(name, "Quantity") && !strings.Contains(name, "BaseQuantities") {
			continue
		}
		for _, propID := range ifc.RefList(pset.Attr(propertySetProperties)) {
			prop, ok := v.store.Get(propID)
			if !ok || prop.Type != ifc.TypePropertySingleValue {
				continue
			}
			if !strings.Contains(strings.ToLower(prop.Attr(propertyName)), "volume") {
				continue
			}
			if value, ok := usableVolume(prop.Attr(propertyNominalValue)); ok {
				return value, true
			}
		}
	}
	return 0, false
}

// baseQuantityNames lists the upper-cased quantity-set names exporters use
// for an element type, e.g. Qto_WallBaseQuantities for IFCWALLSTANDARDCASE.
func (v *VolumeResolver) baseQuantityNames(entityType string) []string {
	if names, ok := v.baseNames[entityType]; ok {
		return names
	}

	base := strings.TrimPrefix(strings.ToUpper(entityType), "IFC")
	stems := []string{base}
	for _, suffix := range []string{"STANDARDCASE", "ELEMENTEDCASE"} {
		if stem := strings.TrimSuffix(base, suffix); stem != base && stem != "" {
			stems = append(stems, stem)
		}
	}

	var names []string
	for _, stem := range stems {
		names = append(names, "QTO_"+stem+"BASEQUANTITIES", stem+"BASEQUANTITIES")
	}
	names = append(names, "BASEQUANTITIES")

	v.baseNames[entityType] = names
	return names
}

func matchesAny(s string, candidates []string) bool {
	for _, c := range candidates {
		if s == c {
			return true
		}
	}
	return false
}

func usableVolume(tok string) (float64, bool) {
	f, ok := ifc.ParseMeasure(tok)
	if !ok || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func formatVolume(f float64) string {
	return fmt.Sprintf("%.3f", f)
}

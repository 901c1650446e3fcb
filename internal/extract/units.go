package extract

import (
	"log"

	"github.com/mvp-joe/ifc-lca/internal/ifc"
)

// Attribute positions of IFCSIUNIT.
const (
	siUnitType   = 1
	siUnitPrefix = 2
)

var lengthPrefixScale = map[string]float64{
	"":      1.0,
	"MILLI": 0.001,
	"CENTI": 0.01,
	"DECI":  0.1,
}

// LengthUnitScale returns the multiplier from the file's declared length unit
// to metres. It defaults to 1.0 when no length unit is declared or its prefix
// is not recognised. The value is informational; nothing is rescaled by it.
func LengthUnitScale(store *ifc.Store) float64 {
	for _, id := range store.GetByType(ifc.TypeSIUnit) {
		unit, _ := store.Get(id)
		if ifc.Enum(unit.Attr(siUnitType)) != "LENGTHUNIT" {
			continue
		}

		prefix := ifc.Enum(unit.Attr(siUnitPrefix))
		if scale, ok := lengthPrefixScale[prefix]; ok {
			return scale
		}
		log.Printf("Warning: unsupported length unit prefix %q on #%d, assuming metres", prefix, id)
		return 1.0
	}
	return 1.0
}

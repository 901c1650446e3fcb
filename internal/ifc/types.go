package ifc

import "errors"

// Entity types the extraction pipeline reads. Names are stored upper-case,
// exactly as they appear in the STEP data section.
const (
	TypeMaterial               = "IFCMATERIAL"
	TypeMaterialLayer          = "IFCMATERIALLAYER"
	TypeMaterialLayerSet       = "IFCMATERIALLAYERSET"
	TypeMaterialLayerSetUsage  = "IFCMATERIALLAYERSETUSAGE"
	TypeMaterialList           = "IFCMATERIALLIST"
	TypeRelAssociatesMaterial  = "IFCRELASSOCIATESMATERIAL"
	TypeRelDefinesByProperties = "IFCRELDEFINESBYPROPERTIES"
	TypeRelContainedInSpatial  = "IFCRELCONTAINEDINSPATIALSTRUCTURE"
	TypeElementQuantity        = "IFCELEMENTQUANTITY"
	TypeQuantityVolume         = "IFCQUANTITYVOLUME"
	TypePropertySet            = "IFCPROPERTYSET"
	TypePropertySingleValue    = "IFCPROPERTYSINGLEVALUE"
	TypeProductDefinitionShape = "IFCPRODUCTDEFINITIONSHAPE"
	TypeSIUnit                 = "IFCSIUNIT"
	TypeProject                = "IFCPROJECT"
	TypeSite                   = "IFCSITE"
	TypeBuilding               = "IFCBUILDING"
	TypeBuildingStorey         = "IFCBUILDINGSTOREY"
	TypeSpace                  = "IFCSPACE"
	TypeWall                   = "IFCWALL"
	TypeWallStandardCase       = "IFCWALLSTANDARDCASE"
	TypeSlab                   = "IFCSLAB"
	TypeBeam                   = "IFCBEAM"
	TypeColumn                 = "IFCCOLUMN"
	TypeDoor                   = "IFCDOOR"
	TypeWindow                 = "IFCWINDOW"
)

const (
	globalIDLength          = 22
	rootedGlobalIDAttribute = 0
	rootedNameAttribute     = 2
	materialNameAttribute   = 0
)

// ErrMalformedRecord is returned by ParseLine when a statement does not have
// the #<id>=<TYPE>(<attributes>) shape.
var ErrMalformedRecord = errors.New("malformed entity record")

// Entity is one parsed #id=TYPE(attributes) record.
//
// Attributes keep references as "#<id>", nested aggregates as their raw
// parenthesised text, the null token as "" and quoted strings unquoted.
type Entity struct {
	ID         int
	Type       string
	Attributes []string
	Name       string // label of rooted entities and materials, "" otherwise
	GlobalID   string // IfcRoot GlobalId, "" for non-rooted entities

	refs []int // every #id referenced outside of string literals
}

// Attr returns attribute i, or "" when the entity has fewer attributes.
func (e *Entity) Attr(i int) string {
	if e == nil || i < 0 || i >= len(e.Attributes) {
		return ""
	}
	return e.Attributes[i]
}

// References returns the ids of all entities this entity points to,
// in attribute order. Duplicates are preserved.
func (e *Entity) References() []int {
	return e.refs
}

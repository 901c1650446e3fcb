package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mvp-joe/ifc-lca/internal/ifc"
)

// model parses data-section lines. Every 'GUID' placeholder is replaced by a
// 22-character GlobalId derived from the record id so rooted entities get
// their Name and GlobalID populated.
func model(lines ...string) *ifc.Store {
	var b strings.Builder
	b.WriteString("ISO-10303-21;\nHEADER;\nFILE_SCHEMA(('IFC4'));\nENDSEC;\nDATA;\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if eq := strings.IndexByte(line, '='); eq > 1 {
			if id, err := strconv.Atoi(line[1:eq]); err == nil {
				line = strings.Replace(line, "'GUID'", fmt.Sprintf("'%022d'", id), 1)
			}
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("ENDSEC;\nEND-ISO-10303-21;\n")
	return ifc.ParseString(b.String())
}

// wallScenario is a wall with a base quantity set (NetVolume 12.5,
// GrossVolume 14.0), a direct Concrete association and containment in
// storey 'Level 1'.
var wallScenario = []string{
	`#1=IFCPROJECT('GUID',$,'Project',$,$,$,$,$,$);`,
	`#10=IFCBUILDINGSTOREY('GUID',$,'Level 1',$,$,$,$,$,.ELEMENT.,0.);`,
	`#20=IFCPRODUCTDEFINITIONSHAPE($,$,(#21));`,
	`#21=IFCSHAPEREPRESENTATION($,'Body','SweptSolid',());`,
	`#30=IFCWALL('GUID',$,'Basic Wall',$,$,$,#20,$,$);`,
	`#40=IFCQUANTITYVOLUME('NetVolume',$,$,12.5,$);`,
	`#41=IFCQUANTITYVOLUME('GrossVolume',$,$,14.,$);`,
	`#42=IFCELEMENTQUANTITY('GUID',$,'Qto_WallBaseQuantities',$,$,(#41,#40));`,
	`#43=IFCRELDEFINESBYPROPERTIES('GUID',$,$,$,(#30),#42);`,
	`#60=IFCMATERIAL('Concrete',$,$);`,
	`#61=IFCRELASSOCIATESMATERIAL('GUID',$,$,$,(#30),#60);`,
	`#70=IFCRELCONTAINEDINSPATIALSTRUCTURE('GUID',$,$,$,(#30),#10);`,
}

// layeredSlab returns a slab with a 20.0 volume and a layer set usage whose
// layers have the given thickness tokens.
func layeredSlab(thicknesses ...string) []string {
	lines := []string{
		`#20=IFCPRODUCTDEFINITIONSHAPE($,$,());`,
		`#30=IFCSLAB('GUID',$,'Floor',$,$,$,#20,$,.FLOOR.);`,
		`#40=IFCQUANTITYVOLUME('NetVolume',$,$,20.,$);`,
		`#42=IFCELEMENTQUANTITY('GUID',$,'Qto_SlabBaseQuantities',$,$,(#40));`,
		`#43=IFCRELDEFINESBYPROPERTIES('GUID',$,$,$,(#30),#42);`,
		`#61=IFCRELASSOCIATESMATERIAL('GUID',$,$,$,(#30),#90);`,
		`#90=IFCMATERIALLAYERSETUSAGE(#91,.AXIS3.,.POSITIVE.,0.);`,
	}

	var layerRefs []string
	for i, t := range thicknesses {
		layerID := 100 + i
		matID := 200 + i
		layerRefs = append(layerRefs, fmt.Sprintf("#%d", layerID))
		lines = append(lines,
			fmt.Sprintf(`#%d=IFCMATERIALLAYER(#%d,%s,$);`, layerID, matID, t),
			fmt.Sprintf(`#%d=IFCMATERIAL('Material %d');`, matID, i+1),
		)
	}
	lines = append(lines, fmt.Sprintf(`#91=IFCMATERIALLAYERSET((%s),'Slab 200mm');`, strings.Join(layerRefs, ",")))
	return lines
}

package geant4

import (
	"fmt"
	"strings"

	"github.com/brahimariani/geant4-api/internal/model"
)

// GDMLFileName is the geometry file written into each job's work dir.
const GDMLFileName = "geometry.gdml"

// GenerateGDML renders a detector geometry as a GDML document. Materials
// are emitted as NIST name references; nested child volumes contribute
// their materials but only top level volumes are placed.
func GenerateGDML(geo *model.DetectorGeometry) (string, error) {
	var b strings.Builder

	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	b.WriteString("<gdml xmlns:xsi=\"http://www.w3.org/2001/XMLSchema-instance\"\n")
	b.WriteString("      xsi:noNamespaceSchemaLocation=\"http://service-spi.web.cern.ch/service-spi/app/releases/GDML/schema/gdml.xsd\">\n")
	b.WriteString("\n")

	fmt.Fprintf(&b, "<!-- Geometry: %s -->\n", geo.Name)
	desc := geo.Description
	if desc == "" {
		desc = "No description"
	}
	fmt.Fprintf(&b, "<!-- %s -->\n", desc)
	b.WriteString("\n")

	b.WriteString("<define>\n")
	writeGDMLDefines(&b, geo)
	b.WriteString("</define>\n")
	b.WriteString("\n")

	b.WriteString("<materials>\n")
	writeGDMLMaterials(&b, geo)
	b.WriteString("</materials>\n")
	b.WriteString("\n")

	b.WriteString("<solids>\n")
	if err := writeGDMLSolids(&b, geo); err != nil {
		return "", err
	}
	b.WriteString("</solids>\n")
	b.WriteString("\n")

	b.WriteString("<structure>\n")
	writeGDMLStructure(&b, geo)
	b.WriteString("</structure>\n")
	b.WriteString("\n")

	b.WriteString("<setup name=\"Default\" version=\"1.0\">\n")
	b.WriteString("    <world ref=\"World_LV\"/>\n")
	b.WriteString("</setup>\n")
	b.WriteString("\n")
	b.WriteString("</gdml>\n")

	return b.String(), nil
}

func writeGDMLDefines(b *strings.Builder, geo *model.DetectorGeometry) {
	b.WriteString("    <position name=\"center\" x=\"0\" y=\"0\" z=\"0\" unit=\"mm\"/>\n")

	for i := range geo.Volumes {
		v := &geo.Volumes[i]
		p := v.Position
		fmt.Fprintf(b, "    <position name=\"%s_pos\" x=\"%s\" y=\"%s\" z=\"%s\" unit=\"mm\"/>\n",
			v.Name, fnum(p.X), fnum(p.Y), fnum(p.Z))

		if v.Rotation != (model.Rotation3D{}) {
			r := v.Rotation
			fmt.Fprintf(b, "    <rotation name=\"%s_rot\" x=\"%s\" y=\"%s\" z=\"%s\" unit=\"deg\"/>\n",
				v.Name, fnum(r.X), fnum(r.Y), fnum(r.Z))
		}
	}
}

// collectMaterials gathers every material referenced by the geometry, world
// first, in first-seen order so output is stable.
func collectMaterials(geo *model.DetectorGeometry) []string {
	seen := map[string]bool{geo.World.Material: true}
	mats := []string{geo.World.Material}

	var walk func(vols []model.Volume)
	walk = func(vols []model.Volume) {
		for i := range vols {
			if !seen[vols[i].Material] {
				seen[vols[i].Material] = true
				mats = append(mats, vols[i].Material)
			}
			walk(vols[i].Children)
		}
	}
	walk(geo.Volumes)

	return mats
}

func writeGDMLMaterials(b *strings.Builder, geo *model.DetectorGeometry) {
	for _, mat := range collectMaterials(geo) {
		fmt.Fprintf(b, "    <material name=\"%s\" Z=\"1\">\n", mat)
		b.WriteString("        <D value=\"1.0\"/>\n")
		b.WriteString("        <atom value=\"1.0\"/>\n")
		b.WriteString("    </material>\n")
	}
}

func writeGDMLSolids(b *strings.Builder, geo *model.DetectorGeometry) error {
	w := geo.World
	fmt.Fprintf(b, "    <box name=\"World_solid\" x=\"%s\" y=\"%s\" z=\"%s\" lunit=\"mm\"/>\n",
		fnum(w.HalfX*2), fnum(w.HalfY*2), fnum(w.HalfZ*2))

	for i := range geo.Volumes {
		if err := writeGDMLSolid(b, geo.Volumes[i].Name, &geo.Volumes[i].Solid); err != nil {
			return err
		}
	}
	return nil
}

func writeGDMLSolid(b *strings.Builder, name string, s *model.Solid) error {
	switch s.Type {
	case model.SolidBox:
		fmt.Fprintf(b, "    <box name=\"%s_solid\" x=\"%s\" y=\"%s\" z=\"%s\" lunit=\"mm\"/>\n",
			name, fnum(s.HalfX*2), fnum(s.HalfY*2), fnum(s.HalfZ*2))

	case model.SolidCylinder:
		fmt.Fprintf(b, "    <tube name=\"%s_solid\" rmin=\"%s\" rmax=\"%s\" z=\"%s\" startphi=\"%s\" deltaphi=\"%s\" aunit=\"deg\" lunit=\"mm\"/>\n",
			name, fnum(s.InnerRadius), fnum(s.OuterRadius), fnum(s.HalfZ*2), fnum(s.StartPhi), fnum(s.DeltaPhi))

	case model.SolidSphere:
		fmt.Fprintf(b, "    <sphere name=\"%s_solid\" rmin=\"%s\" rmax=\"%s\" startphi=\"%s\" deltaphi=\"%s\" starttheta=\"%s\" deltatheta=\"%s\" aunit=\"deg\" lunit=\"mm\"/>\n",
			name, fnum(s.InnerRadius), fnum(s.OuterRadius), fnum(s.StartPhi), fnum(s.DeltaPhi), fnum(s.StartTheta), fnum(s.DeltaTheta))

	case model.SolidCone:
		fmt.Fprintf(b, "    <cone name=\"%s_solid\" rmin1=\"%s\" rmax1=\"%s\" rmin2=\"%s\" rmax2=\"%s\" z=\"%s\" startphi=\"0\" deltaphi=\"360\" aunit=\"deg\" lunit=\"mm\"/>\n",
			name, fnum(s.InnerRadius1), fnum(s.OuterRadius1), fnum(s.InnerRadius2), fnum(s.OuterRadius2), fnum(s.HalfZ*2))

	default:
		return fmt.Errorf("unknown solid type %q", s.Type)
	}
	return nil
}

func writeGDMLStructure(b *strings.Builder, geo *model.DetectorGeometry) {
	for i := range geo.Volumes {
		v := &geo.Volumes[i]
		fmt.Fprintf(b, "    <volume name=\"%s_LV\">\n", v.Name)
		fmt.Fprintf(b, "        <materialref ref=\"%s\"/>\n", v.Material)
		fmt.Fprintf(b, "        <solidref ref=\"%s_solid\"/>\n", v.Name)
		if v.IsSensitive {
			fmt.Fprintf(b, "        <auxiliary auxtype=\"SensDet\" auxvalue=\"%s\"/>\n", v.Name)
		}
		b.WriteString("    </volume>\n")
		b.WriteString("\n")
	}

	b.WriteString("    <volume name=\"World_LV\">\n")
	fmt.Fprintf(b, "        <materialref ref=\"%s\"/>\n", geo.World.Material)
	b.WriteString("        <solidref ref=\"World_solid\"/>\n")

	for i := range geo.Volumes {
		v := &geo.Volumes[i]
		fmt.Fprintf(b, "        <physvol name=\"%s_PV\">\n", v.Name)
		fmt.Fprintf(b, "            <volumeref ref=\"%s_LV\"/>\n", v.Name)
		fmt.Fprintf(b, "            <positionref ref=\"%s_pos\"/>\n", v.Name)
		if v.Rotation != (model.Rotation3D{}) {
			fmt.Fprintf(b, "            <rotationref ref=\"%s_rot\"/>\n", v.Name)
		}
		b.WriteString("        </physvol>\n")
	}

	b.WriteString("    </volume>\n")
}

package store

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/brahimariani/geant4-api/internal/model"
)

// GeometryStore keeps saved detector geometries in memory, keyed by name.
type GeometryStore struct {
	mu         sync.RWMutex
	geometries map[string]model.DetectorGeometry
}

func NewGeometryStore() *GeometryStore {
	return &GeometryStore{
		geometries: make(map[string]model.DetectorGeometry),
	}
}

// Create stores a geometry under its name and returns the ID.
func (s *GeometryStore) Create(geo model.DetectorGeometry) string {
	geo.ApplyDefaults()

	s.mu.Lock()
	s.geometries[geo.Name] = geo
	s.mu.Unlock()

	log.Printf("Created geometry: %s", geo.Name)
	return geo.Name
}

// Get returns a stored geometry by ID.
func (s *GeometryStore) Get(id string) (model.DetectorGeometry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	geo, ok := s.geometries[id]
	return geo, ok
}

// List returns all stored geometry IDs in sorted order.
func (s *GeometryStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.geometries))
	for id := range s.geometries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Delete removes a stored geometry and reports whether it existed.
func (s *GeometryStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.geometries[id]; !ok {
		return false
	}
	delete(s.geometries, id)
	return true
}

// GeometryTemplates returns the predefined detector setups. The map is built
// fresh on each call so callers can modify their copy.
func GeometryTemplates() map[string]model.DetectorGeometry {
	templates := map[string]model.DetectorGeometry{
		"water_phantom": {
			Name:        "water_phantom",
			Description: "Simple water phantom for dosimetry",
			World:       model.WorldVolume{HalfX: 500, HalfY: 500, HalfZ: 500},
			Volumes: []model.Volume{
				{
					Name:        "phantom",
					Solid:       model.Solid{Type: model.SolidBox, HalfX: 150, HalfY: 150, HalfZ: 150},
					Material:    "G4_WATER",
					IsSensitive: true,
				},
			},
		},
		"simple_detector": {
			Name:        "simple_detector",
			Description: "Simple NaI detector",
			World:       model.WorldVolume{HalfX: 300, HalfY: 300, HalfZ: 300},
			Volumes: []model.Volume{
				{
					Name:        "detector",
					Solid:       model.Solid{Type: model.SolidCylinder, OuterRadius: 38.1, HalfZ: 38.1},
					Material:    "G4_SODIUM_IODIDE",
					Position:    model.Vector3D{Z: 100},
					IsSensitive: true,
				},
			},
		},
		"shielded_detector": {
			Name:        "shielded_detector",
			Description: "Lead-shielded detector",
			World:       model.WorldVolume{HalfX: 500, HalfY: 500, HalfZ: 500},
			Volumes: []model.Volume{
				{
					Name:     "shield",
					Solid:    model.Solid{Type: model.SolidCylinder, InnerRadius: 50, OuterRadius: 100, HalfZ: 100},
					Material: "G4_Pb",
					Position: model.Vector3D{Z: 150},
				},
				{
					Name:        "detector",
					Solid:       model.Solid{Type: model.SolidCylinder, OuterRadius: 45, HalfZ: 50},
					Material:    "G4_SODIUM_IODIDE",
					Position:    model.Vector3D{Z: 150},
					IsSensitive: true,
				},
			},
		},
	}
	for name, geo := range templates {
		geo.ApplyDefaults()
		templates[name] = geo
	}
	return templates
}

// GeometryTemplate returns one predefined setup by name.
func GeometryTemplate(name string) (model.DetectorGeometry, bool) {
	geo, ok := GeometryTemplates()[name]
	return geo, ok
}

// GeometryTemplateNames returns the template names in sorted order.
func GeometryTemplateNames() []string {
	templates := GeometryTemplates()
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateGeometry checks a geometry for structural problems. Issues make
// the configuration invalid, warnings do not.
func ValidateGeometry(geo model.DetectorGeometry) model.ValidationResult {
	geo.ApplyDefaults()

	var issues, warnings []string

	// Volumes must fit inside the world.
	maxExtent := 0.0
	for _, v := range geo.Volumes {
		pos, solid := v.Position, v.Solid
		var extent float64
		switch solid.Type {
		case model.SolidBox:
			extent = max3(
				abs(pos.X)+solid.HalfX,
				abs(pos.Y)+solid.HalfY,
				abs(pos.Z)+solid.HalfZ,
			)
		case model.SolidCylinder:
			extent = max3(
				abs(pos.X)+solid.OuterRadius,
				abs(pos.Y)+solid.OuterRadius,
				abs(pos.Z)+solid.HalfZ,
			)
		case model.SolidSphere:
			extent = max3(
				abs(pos.X)+solid.OuterRadius,
				abs(pos.Y)+solid.OuterRadius,
				abs(pos.Z)+solid.OuterRadius,
			)
		}
		if extent > maxExtent {
			maxExtent = extent
		}
	}
	world := geo.World
	if maxExtent > min3(world.HalfX, world.HalfY, world.HalfZ) {
		issues = append(issues, fmt.Sprintf(
			"World size (%g, %g, %g) may be too small for volumes (max extent: %g)",
			world.HalfX, world.HalfY, world.HalfZ, maxExtent,
		))
	}

	seen := make(map[string]bool, len(geo.Volumes))
	duplicate := false
	for _, v := range geo.Volumes {
		if seen[v.Name] {
			duplicate = true
			break
		}
		seen[v.Name] = true
	}
	if duplicate {
		issues = append(issues, "Duplicate volume names detected")
	}

	known := make(map[string]bool, len(model.KnownMaterials))
	for _, m := range model.KnownMaterials {
		known[m] = true
	}
	for _, v := range geo.Volumes {
		if !known[v.Material] {
			warnings = append(warnings, fmt.Sprintf(
				"Material '%s' for volume '%s' is not a standard G4 material",
				v.Material, v.Name,
			))
		}
	}

	return model.ValidationResult{
		Valid:    len(issues) == 0,
		Issues:   issues,
		Warnings: warnings,
	}
}

// Materials returns the predefined material catalogue.
func Materials() []model.MaterialInfo {
	return []model.MaterialInfo{
		{Name: "VACUUM", Value: "G4_Galactic", Description: "Perfect vacuum (galactic)"},
		{Name: "AIR", Value: "G4_AIR", Description: "Standard air at STP"},
		{Name: "WATER", Value: "G4_WATER", Description: "Liquid water (H2O)"},
		{Name: "ALUMINUM", Value: "G4_Al", Description: "Pure aluminum"},
		{Name: "COPPER", Value: "G4_Cu", Description: "Pure copper"},
		{Name: "LEAD", Value: "G4_Pb", Description: "Pure lead (common shielding)"},
		{Name: "IRON", Value: "G4_Fe", Description: "Pure iron"},
		{Name: "TUNGSTEN", Value: "G4_W", Description: "Pure tungsten"},
		{Name: "CONCRETE", Value: "G4_CONCRETE", Description: "Standard concrete"},
		{Name: "TISSUE_SOFT", Value: "G4_TISSUE_SOFT_ICRP", Description: "Soft tissue (ICRP)"},
		{Name: "BONE", Value: "G4_BONE_COMPACT_ICRU", Description: "Compact bone (ICRU)"},
		{Name: "SILICON", Value: "G4_Si", Description: "Pure silicon"},
		{Name: "GERMANIUM", Value: "G4_Ge", Description: "Pure germanium"},
		{Name: "SODIUM_IODIDE", Value: "G4_SODIUM_IODIDE", Description: "NaI scintillator"},
		{Name: "BGO", Value: "G4_BGO", Description: "BGO scintillator"},
		{Name: "CESIUM_IODIDE", Value: "G4_CESIUM_IODIDE", Description: "CsI scintillator"},
		{Name: "PLASTIC_SCINTILLATOR", Value: "G4_PLASTIC_SC_VINYLTOLUENE", Description: "Plastic scintillator"},
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

func min3(a, b, c float64) float64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

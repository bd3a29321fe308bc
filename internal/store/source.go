package store

import (
	"fmt"
	"log"
	"math"
	"sort"
	"sync"

	"github.com/brahimariani/geant4-api/internal/model"
)

// SourceStore keeps saved particle sources in memory, keyed by name.
type SourceStore struct {
	mu      sync.RWMutex
	sources map[string]model.ParticleSource
}

func NewSourceStore() *SourceStore {
	return &SourceStore{
		sources: make(map[string]model.ParticleSource),
	}
}

// Create stores a source under its name and returns the ID.
func (s *SourceStore) Create(src model.ParticleSource) string {
	src.ApplyDefaults()

	s.mu.Lock()
	s.sources[src.Name] = src
	s.mu.Unlock()

	log.Printf("Created source: %s", src.Name)
	return src.Name
}

// Get returns a stored source by ID.
func (s *SourceStore) Get(id string) (model.ParticleSource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.sources[id]
	return src, ok
}

// List returns all stored source IDs in sorted order.
func (s *SourceStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sources))
	for id := range s.sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Delete removes a stored source and reports whether it existed.
func (s *SourceStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sources[id]; !ok {
		return false
	}
	delete(s.sources, id)
	return true
}

// SourceTemplates returns the predefined particle sources.
func SourceTemplates() map[string]model.ParticleSource {
	templates := map[string]model.ParticleSource{
		"gamma_1mev": {
			Name:     "gamma_1mev",
			Particle: model.ParticleGamma,
			Energy: model.EnergyConfig{
				Distribution: model.EnergyMono,
				Value:        1.0,
			},
			Direction: model.DirectionConfig{
				Distribution: model.AngularDirected,
				Direction:    model.Vector3D{Z: 1},
			},
			Position: model.PositionConfig{
				Distribution: model.PositionPoint,
				Center:       model.Vector3D{Z: -100},
			},
		},
		"electron_beam": {
			Name:     "electron_beam",
			Particle: model.ParticleElectron,
			Energy: model.EnergyConfig{
				Distribution: model.EnergyGaussian,
				Value:        6.0,
				Sigma:        fptr(0.1),
			},
			Direction: model.DirectionConfig{
				Distribution: model.AngularDirected,
				Direction:    model.Vector3D{Z: 1},
			},
			Position: model.PositionConfig{
				Distribution: model.PositionPlane,
				Center:       model.Vector3D{Z: -200},
				HalfX:        fptr(5.0),
				HalfY:        fptr(5.0),
			},
		},
		"proton_therapy": {
			Name:     "proton_therapy",
			Particle: model.ParticleProton,
			Energy: model.EnergyConfig{
				Distribution: model.EnergyMono,
				Value:        200.0,
			},
			Direction: model.DirectionConfig{
				Distribution: model.AngularDirected,
				Direction:    model.Vector3D{Z: 1},
			},
			Position: model.PositionConfig{
				Distribution: model.PositionPlane,
				Center:       model.Vector3D{Z: -300},
				HalfX:        fptr(10.0),
				HalfY:        fptr(10.0),
			},
		},
		"isotropic_neutron": {
			Name:     "isotropic_neutron",
			Particle: model.ParticleNeutron,
			Energy: model.EnergyConfig{
				Distribution: model.EnergyFlat,
				Value:        1.0,
				MinEnergy:    fptr(0.001),
				MaxEnergy:    fptr(10.0),
			},
			Direction: model.DirectionConfig{
				Distribution: model.AngularIsotropic,
			},
			Position: model.PositionConfig{
				Distribution: model.PositionPoint,
			},
		},
		"co60_source": {
			Name:     "co60_source",
			Particle: model.ParticleGamma,
			Energy: model.EnergyConfig{
				Distribution: model.EnergyMono,
				// Average of the 1.17 and 1.33 MeV lines.
				Value: 1.25,
			},
			Direction: model.DirectionConfig{
				Distribution: model.AngularIsotropic,
			},
			Position: model.PositionConfig{
				Distribution: model.PositionPoint,
			},
		},
	}
	for name, src := range templates {
		src.ApplyDefaults()
		templates[name] = src
	}
	return templates
}

// SourceTemplate returns one predefined source by name.
func SourceTemplate(name string) (model.ParticleSource, bool) {
	src, ok := SourceTemplates()[name]
	return src, ok
}

// SourceTemplateNames returns the template names in sorted order.
func SourceTemplateNames() []string {
	templates := SourceTemplates()
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateSource checks a particle source for problems.
func ValidateSource(src model.ParticleSource) model.ValidationResult {
	src.ApplyDefaults()

	var issues, warnings []string

	known := false
	for _, p := range model.ValidParticleTypes {
		if src.Particle == p {
			known = true
			break
		}
	}
	if !known {
		warnings = append(warnings, fmt.Sprintf(
			"Particle '%s' is not a recognized type. "+
				"Make sure it's a valid Geant4 particle name.", src.Particle,
		))
	}

	if src.Energy.Value <= 0 {
		issues = append(issues, "Energy must be positive")
	}
	if src.Energy.Value > 1e9 {
		warnings = append(warnings, fmt.Sprintf(
			"Very high energy (%g MeV). Ensure physics list supports this energy range.",
			src.Energy.Value,
		))
	}

	if src.Energy.Distribution == model.EnergyGaussian {
		if src.Energy.Sigma == nil || *src.Energy.Sigma == 0 {
			warnings = append(warnings, "Gaussian energy distribution without sigma specified")
		}
	}
	if src.Energy.Distribution == model.EnergyFlat {
		if src.Energy.MinEnergy == nil || src.Energy.MaxEnergy == nil {
			issues = append(issues, "Flat energy distribution requires min_energy and max_energy")
		}
	}

	d := src.Direction.Direction
	mag := math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
	if math.Abs(mag-1.0) > 0.01 && mag > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"Direction vector (%g, %g, %g) is not normalized (magnitude = %.3f)",
			d.X, d.Y, d.Z, mag,
		))
	}

	return model.ValidationResult{
		Valid:    len(issues) == 0,
		Issues:   issues,
		Warnings: warnings,
	}
}

// ParticleInfoFor returns reference data for a particle. Unrecognized names
// come back with nil physics fields.
func ParticleInfoFor(particle string) model.ParticleInfo {
	info := map[string]model.ParticleInfo{
		"e-":      {Name: "Electron", PDG: i64(11), MassMeV: fptr(0.511), Charge: iptr(-1), Lifetime: "stable"},
		"e+":      {Name: "Positron", PDG: i64(-11), MassMeV: fptr(0.511), Charge: iptr(1), Lifetime: "stable"},
		"gamma":   {Name: "Gamma (Photon)", PDG: i64(22), MassMeV: fptr(0), Charge: iptr(0), Lifetime: "stable"},
		"proton":  {Name: "Proton", PDG: i64(2212), MassMeV: fptr(938.272), Charge: iptr(1), Lifetime: "stable"},
		"neutron": {Name: "Neutron", PDG: i64(2112), MassMeV: fptr(939.565), Charge: iptr(0), Lifetime: "881.5 s"},
		"mu-":     {Name: "Muon (negative)", PDG: i64(13), MassMeV: fptr(105.658), Charge: iptr(-1), Lifetime: "2.2 µs"},
		"alpha":   {Name: "Alpha particle", PDG: i64(1000020040), MassMeV: fptr(3727.379), Charge: iptr(2), Lifetime: "stable"},
		"pi+":     {Name: "Pion (positive)", PDG: i64(211), MassMeV: fptr(139.570), Charge: iptr(1), Lifetime: "26 ns"},
		"pi-":     {Name: "Pion (negative)", PDG: i64(-211), MassMeV: fptr(139.570), Charge: iptr(-1), Lifetime: "26 ns"},
	}
	if entry, ok := info[particle]; ok {
		return entry
	}
	return model.ParticleInfo{Name: particle, Lifetime: "unknown"}
}

// ParticleCatalogue returns every supported particle with its reference
// data, in declaration order.
func ParticleCatalogue() []model.ParticleCatalogueEntry {
	names := map[model.ParticleType]string{
		model.ParticleElectron:        "ELECTRON",
		model.ParticlePositron:        "POSITRON",
		model.ParticleMuMinus:         "MUON_MINUS",
		model.ParticleMuPlus:          "MUON_PLUS",
		model.ParticleGamma:           "GAMMA",
		model.ParticleOptical:         "OPTICAL_PHOTON",
		model.ParticleProton:          "PROTON",
		model.ParticleNeutron:         "NEUTRON",
		model.ParticlePiPlus:          "PION_PLUS",
		model.ParticlePiMinus:         "PION_MINUS",
		model.ParticlePiZero:          "PION_ZERO",
		model.ParticleKaonPlus:        "KAON_PLUS",
		model.ParticleKaonMinus:       "KAON_MINUS",
		model.ParticleAlpha:           "ALPHA",
		model.ParticleDeuteron:        "DEUTERON",
		model.ParticleTriton:          "TRITON",
		model.ParticleHe3:             "HE3",
		model.ParticleGenericIon:      "GENERIC_ION",
		model.ParticleGeantino:        "GEANTINO",
		model.ParticleChargedGeantino: "CHARGED_GEANTINO",
	}

	entries := make([]model.ParticleCatalogueEntry, 0, len(model.ValidParticleTypes))
	for _, p := range model.ValidParticleTypes {
		entries = append(entries, model.ParticleCatalogueEntry{
			Name:  names[p],
			Value: p,
			Info:  ParticleInfoFor(string(p)),
		})
	}
	return entries
}

// EnergyDistributions returns the energy distribution catalogue.
func EnergyDistributions() []model.DistributionInfo {
	return []model.DistributionInfo{
		{Name: "MONO", Value: string(model.EnergyMono), Description: "Monoenergetic - single energy value"},
		{Name: "GAUSSIAN", Value: string(model.EnergyGaussian), Description: "Gaussian distribution around mean energy"},
		{Name: "FLAT", Value: string(model.EnergyFlat), Description: "Flat/uniform distribution between min and max"},
		{Name: "EXPONENTIAL", Value: string(model.EnergyExponential), Description: "Exponential decay spectrum"},
		{Name: "POWER_LAW", Value: string(model.EnergyPowerLaw), Description: "Power law spectrum"},
		{Name: "USER_DEFINED", Value: string(model.EnergyUserDefined), Description: "User-defined spectrum from file"},
	}
}

// AngularDistributions returns the angular distribution catalogue.
func AngularDistributions() []model.DistributionInfo {
	return []model.DistributionInfo{
		{Name: "ISOTROPIC", Value: string(model.AngularIsotropic), Description: "Uniform in all directions (4π)"},
		{Name: "DIRECTED", Value: string(model.AngularDirected), Description: "Single direction (pencil beam)"},
		{Name: "COSINE", Value: string(model.AngularCosine), Description: "Cosine-law distribution"},
		{Name: "CONE", Value: string(model.AngularCone), Description: "Cone around a direction"},
		{Name: "USER_DEFINED", Value: string(model.AngularUserDefined), Description: "User-defined angular distribution"},
	}
}

// PositionDistributions returns the position distribution catalogue.
func PositionDistributions() []model.DistributionInfo {
	return []model.DistributionInfo{
		{Name: "POINT", Value: string(model.PositionPoint), Description: "Point source at a single location"},
		{Name: "PLANE", Value: string(model.PositionPlane), Description: "Distributed on a plane (rectangle)"},
		{Name: "SURFACE", Value: string(model.PositionSurface), Description: "Distributed on a surface (sphere, etc.)"},
		{Name: "VOLUME", Value: string(model.PositionVolume), Description: "Distributed within a volume"},
	}
}

func fptr(v float64) *float64 { return &v }

func iptr(v int) *int { return &v }

func i64(v int64) *int64 { return &v }

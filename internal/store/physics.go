package store

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/brahimariani/geant4-api/internal/model"
)

// PhysicsStore keeps saved physics configurations in memory, keyed by name.
type PhysicsStore struct {
	mu      sync.RWMutex
	configs map[string]model.PhysicsConfig
}

func NewPhysicsStore() *PhysicsStore {
	return &PhysicsStore{
		configs: make(map[string]model.PhysicsConfig),
	}
}

// Create stores a physics configuration under the given name.
func (s *PhysicsStore) Create(name string, cfg model.PhysicsConfig) string {
	cfg.ApplyDefaults()

	s.mu.Lock()
	s.configs[name] = cfg
	s.mu.Unlock()

	log.Printf("Created physics config: %s", name)
	return name
}

// Get returns a stored physics configuration by name.
func (s *PhysicsStore) Get(name string) (model.PhysicsConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[name]
	return cfg, ok
}

// List returns all stored configuration names in sorted order.
func (s *PhysicsStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.configs))
	for name := range s.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Delete removes a stored configuration and reports whether it existed.
func (s *PhysicsStore) Delete(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[name]; !ok {
		return false
	}
	delete(s.configs, name)
	return true
}

// PhysicsTemplates returns the predefined physics setups.
func PhysicsTemplates() map[string]model.PhysicsConfig {
	templates := map[string]model.PhysicsConfig{
		"standard": {
			PhysicsList: model.PhysicsFTFPBert,
			EMPhysics:   model.EMStandard,
			DefaultCut:  1.0,
		},
		"medical": {
			PhysicsList: model.PhysicsQGSPBic,
			EMPhysics:   model.EMOption4,
			DefaultCut:  0.1,
		},
		"shielding": {
			PhysicsList:            model.PhysicsShielding,
			EMPhysics:              model.EMStandard,
			DefaultCut:             1.0,
			EnableRadioactiveDecay: true,
		},
		"low_energy": {
			PhysicsList:    model.PhysicsLivermore,
			EMPhysics:      model.EMLivermore,
			DefaultCut:     0.01,
			LowEnergyLimit: 0.00025,
		},
	}
	for name, cfg := range templates {
		cfg.ApplyDefaults()
		templates[name] = cfg
	}
	return templates
}

// PhysicsTemplate returns one predefined setup by name.
func PhysicsTemplate(name string) (model.PhysicsConfig, bool) {
	cfg, ok := PhysicsTemplates()[name]
	return cfg, ok
}

// PhysicsTemplateNames returns the template names in sorted order.
func PhysicsTemplateNames() []string {
	templates := PhysicsTemplates()
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidatePhysics checks a physics configuration for problems.
func ValidatePhysics(cfg model.PhysicsConfig) model.ValidationResult {
	cfg.ApplyDefaults()

	var issues, warnings []string

	if cfg.DefaultCut < 0.001 {
		warnings = append(warnings, fmt.Sprintf(
			"Very small default cut (%g mm) may cause slow simulation", cfg.DefaultCut,
		))
	}
	if cfg.DefaultCut > 100 {
		warnings = append(warnings, fmt.Sprintf(
			"Large default cut (%g mm) may cause inaccurate results", cfg.DefaultCut,
		))
	}

	if cfg.LowEnergyLimit >= cfg.HighEnergyLimit {
		issues = append(issues, fmt.Sprintf(
			"Low energy limit (%g) must be less than high energy limit (%g)",
			cfg.LowEnergyLimit, cfg.HighEnergyLimit,
		))
	}

	if cfg.EnableRadioactiveDecay && !cfg.PhysicsList.HighPrecision() {
		warnings = append(warnings,
			"Radioactive decay is enabled but physics list doesn't include "+
				"high precision (HP) physics. Consider using a *_HP variant.",
		)
	}

	return model.ValidationResult{
		Valid:    len(issues) == 0,
		Issues:   issues,
		Warnings: warnings,
	}
}

// PhysicsListInfoFor returns reference data about a physics list. Unknown
// lists come back as a custom entry.
func PhysicsListInfoFor(list model.PhysicsListType) model.PhysicsListInfo {
	info := map[model.PhysicsListType]model.PhysicsListInfo{
		model.PhysicsFTFPBert: {
			Name:        "FTFP_BERT",
			Description: "Fritiof + Bertini cascade. Good for HEP.",
			EnergyRange: "0 - 100 TeV",
			BestFor:     []string{"High energy physics", "LHC experiments"},
			EMPhysics:   "Standard EM",
			Hadronic:    "FTFP + Bertini",
		},
		model.PhysicsFTFPBertHP: {
			Name:        "FTFP_BERT_HP",
			Description: "FTFP_BERT with high precision neutron transport",
			EnergyRange: "0 - 100 TeV",
			BestFor:     []string{"Neutron transport", "Shielding"},
			EMPhysics:   "Standard EM",
			Hadronic:    "FTFP + Bertini + NeutronHP",
		},
		model.PhysicsQGSPBert: {
			Name:        "QGSP_BERT",
			Description: "Quark-gluon string + Bertini cascade",
			EnergyRange: "0 - 100 TeV",
			BestFor:     []string{"General purpose", "Calorimetry"},
			EMPhysics:   "Standard EM",
			Hadronic:    "QGSP + Bertini",
		},
		model.PhysicsQGSPBic: {
			Name:        "QGSP_BIC",
			Description: "Quark-gluon string + Binary cascade",
			EnergyRange: "0 - 100 TeV",
			BestFor:     []string{"Proton therapy", "Nuclear physics"},
			EMPhysics:   "Standard EM",
			Hadronic:    "QGSP + Binary",
		},
		model.PhysicsShielding: {
			Name:        "Shielding",
			Description: "Optimized for shielding calculations",
			EnergyRange: "0 - 100 TeV",
			BestFor:     []string{"Shielding design", "Radiation protection"},
			EMPhysics:   "Standard EM",
			Hadronic:    "FTFP + Bertini + HP",
		},
		model.PhysicsLivermore: {
			Name:        "G4EmLivermorePhysics",
			Description: "Low energy EM based on Livermore data",
			EnergyRange: "250 eV - 100 GeV",
			BestFor:     []string{"X-ray applications", "Low energy"},
			EMPhysics:   "Livermore",
			Hadronic:    "None (EM only)",
		},
		model.PhysicsPenelope: {
			Name:        "G4EmPenelopePhysics",
			Description: "Low energy EM based on PENELOPE",
			EnergyRange: "100 eV - 1 GeV",
			BestFor:     []string{"Medical physics", "Microdosimetry"},
			EMPhysics:   "Penelope",
			Hadronic:    "None (EM only)",
		},
	}
	if entry, ok := info[list]; ok {
		return entry
	}
	return model.PhysicsListInfo{
		Name:        string(list),
		Description: "Custom physics list",
		EnergyRange: "Unknown",
		BestFor:     []string{},
		EMPhysics:   "Unknown",
		Hadronic:    "Unknown",
	}
}

// RecommendPhysicsList picks a physics list for the given application
// keywords, beam energy and particle types.
func RecommendPhysicsList(application string, energyMeV float64, particles []string) model.PhysicsListType {
	application = strings.ToLower(application)

	containsAny := func(subs ...string) bool {
		for _, sub := range subs {
			if strings.Contains(application, sub) {
				return true
			}
		}
		return false
	}
	hasParticle := func(name string) bool {
		for _, p := range particles {
			if p == name {
				return true
			}
		}
		return false
	}

	if containsAny("medical", "therapy", "dosimetry") {
		if energyMeV < 10 {
			return model.PhysicsPenelope
		}
		if hasParticle("proton") || hasParticle("ion") {
			return model.PhysicsQGSPBic
		}
		return model.PhysicsQGSPBert
	}

	if containsAny("shielding", "radiation protection") {
		return model.PhysicsShielding
	}

	if containsAny("xray", "x-ray", "fluorescence") {
		return model.PhysicsLivermore
	}

	if hasParticle("neutron") {
		return model.PhysicsFTFPBertHP
	}

	if energyMeV > 10000 || containsAny("hep", "collider") {
		return model.PhysicsFTFPBert
	}

	return model.PhysicsFTFPBert
}

// EMOptions lists the electromagnetic physics options with short guidance
// on when to use each.
func EMOptions() []model.EMOptionInfo {
	names := map[model.EMPhysicsOption]string{
		model.EMStandard:  "STANDARD",
		model.EMOption1:   "OPTION1",
		model.EMOption2:   "OPTION2",
		model.EMOption3:   "OPTION3",
		model.EMOption4:   "OPTION4",
		model.EMLivermore: "LIVERMORE",
		model.EMPenelope:  "PENELOPE",
		model.EMDNA:       "DNA",
	}
	descriptions := map[model.EMPhysicsOption]string{
		model.EMStandard:  "Standard EM physics, good for most applications",
		model.EMOption1:   "EM physics with improved multiple scattering",
		model.EMOption2:   "EM physics optimized for calorimetry",
		model.EMOption3:   "EM physics with Goudsmit-Saunderson MSC",
		model.EMOption4:   "EM physics optimized for medical applications",
		model.EMLivermore: "Low-energy EM based on Livermore data (down to 250 eV)",
		model.EMPenelope:  "Low-energy EM based on PENELOPE (down to 100 eV)",
		model.EMDNA:       "Geant4-DNA physics for microdosimetry",
	}

	options := make([]model.EMOptionInfo, 0, len(model.ValidEMOptions))
	for _, opt := range model.ValidEMOptions {
		options = append(options, model.EMOptionInfo{
			Name:        names[opt],
			Value:       opt,
			Description: descriptions[opt],
		})
	}
	return options
}

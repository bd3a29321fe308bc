package model

// ProductionCut holds per-particle production thresholds in millimeters.
type ProductionCut struct {
	Gamma    float64 `json:"gamma"`
	Electron float64 `json:"electron"`
	Positron float64 `json:"positron"`
	Proton   float64 `json:"proton"`
}

// DefaultProductionCut is 1 mm for every particle.
func DefaultProductionCut() ProductionCut {
	return ProductionCut{Gamma: 1.0, Electron: 1.0, Positron: 1.0, Proton: 1.0}
}

// RegionCut overrides the production cuts inside a named region.
type RegionCut struct {
	RegionName string        `json:"region_name" validate:"required"`
	Volumes    []string      `json:"volumes" validate:"required,min=1"`
	Cuts       ProductionCut `json:"cuts"`
}

// StepLimiter caps the tracking step length, optionally only inside the
// listed volumes.
type StepLimiter struct {
	MaxStep float64  `json:"max_step" validate:"required,gt=0"`
	Volumes []string `json:"volumes,omitempty"`
}

// PhysicsConfig selects a reference physics list and the options layered on
// top of it. EnableDecay and EnableHadronic default to true; nil means the
// request left them unset.
type PhysicsConfig struct {
	PhysicsList PhysicsListType `json:"physics_list,omitempty"`
	EMPhysics   EMPhysicsOption `json:"em_physics,omitempty"`

	DefaultCut     float64        `json:"default_cut,omitempty"`
	ProductionCuts *ProductionCut `json:"production_cuts,omitempty"`
	RegionCuts     []RegionCut    `json:"region_cuts,omitempty"`
	StepLimiters   []StepLimiter  `json:"step_limiters,omitempty"`

	EnableDecay            *bool `json:"enable_decay,omitempty"`
	EnableRadioactiveDecay bool  `json:"enable_radioactive_decay,omitempty"`
	EnableOptical          bool  `json:"enable_optical,omitempty"`
	EnableHadronic         *bool `json:"enable_hadronic,omitempty"`

	// Energy validity range in MeV.
	LowEnergyLimit  float64 `json:"low_energy_limit,omitempty"`
	HighEnergyLimit float64 `json:"high_energy_limit,omitempty"`
}

// ApplyDefaults fills omitted fields with the FTFP_BERT standard setup.
func (c *PhysicsConfig) ApplyDefaults() {
	if c.PhysicsList == "" {
		c.PhysicsList = PhysicsFTFPBert
	}
	if c.EMPhysics == "" {
		c.EMPhysics = EMStandard
	}
	if c.DefaultCut == 0 {
		c.DefaultCut = 1.0
	}
	if c.EnableDecay == nil {
		t := true
		c.EnableDecay = &t
	}
	if c.EnableHadronic == nil {
		t := true
		c.EnableHadronic = &t
	}
	if c.LowEnergyLimit == 0 {
		c.LowEnergyLimit = 0.001
	}
	if c.HighEnergyLimit == 0 {
		c.HighEnergyLimit = 100000.0
	}
}

// PhysicsListInfo is reference data about a physics list served by the
// physics API.
type PhysicsListInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	EnergyRange string   `json:"energy_range"`
	BestFor     []string `json:"best_for"`
	EMPhysics   string   `json:"em_physics"`
	Hadronic    string   `json:"hadronic"`
}

// EMOptionInfo describes one EM physics option for the catalogue endpoint.
type EMOptionInfo struct {
	Name        string          `json:"name"`
	Value       EMPhysicsOption `json:"value"`
	Description string          `json:"description"`
}

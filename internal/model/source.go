package model

// EnergyConfig describes the primary energy spectrum in MeV.
type EnergyConfig struct {
	Distribution EnergyDistribution `json:"distribution,omitempty"`
	Value        float64            `json:"value" validate:"required,gt=0"`
	Sigma        *float64           `json:"sigma,omitempty"`
	MinEnergy    *float64           `json:"min_energy,omitempty"`
	MaxEnergy    *float64           `json:"max_energy,omitempty"`
}

// DirectionConfig describes the primary emission direction.
type DirectionConfig struct {
	Distribution AngularDistribution `json:"distribution,omitempty"`
	Direction    Vector3D            `json:"direction"`
	ConeAngle    *float64            `json:"cone_angle,omitempty"`
}

// PositionConfig describes where primaries are emitted from, millimeters.
type PositionConfig struct {
	Distribution PositionDistribution `json:"distribution,omitempty"`
	Center       Vector3D             `json:"center"`
	HalfX        *float64             `json:"half_x,omitempty"`
	HalfY        *float64             `json:"half_y,omitempty"`
	HalfZ        *float64             `json:"half_z,omitempty"`
	Radius       *float64             `json:"radius,omitempty"`
}

// ParticleSource is a complete primary generator configuration.
type ParticleSource struct {
	Name              string          `json:"name,omitempty"`
	Particle          ParticleType    `json:"particle,omitempty"`
	Energy            EnergyConfig    `json:"energy" validate:"required"`
	Direction         DirectionConfig `json:"direction"`
	Position          PositionConfig  `json:"position"`
	NumberOfParticles int             `json:"number_of_particles,omitempty" validate:"omitempty,min=1"`
}

// ApplyDefaults fills the conventional single forward-going gamma setup for
// any field the request omitted.
func (s *ParticleSource) ApplyDefaults() {
	if s.Name == "" {
		s.Name = "primary"
	}
	if s.Particle == "" {
		s.Particle = "gamma"
	}
	if s.Energy.Distribution == "" {
		s.Energy.Distribution = EnergyMono
	}
	if s.Direction.Distribution == "" {
		s.Direction.Distribution = AngularDirected
	}
	if s.Direction.Distribution == AngularDirected && s.Direction.Direction == (Vector3D{}) {
		s.Direction.Direction = Vector3D{Z: 1}
	}
	if s.Position.Distribution == "" {
		s.Position.Distribution = PositionPoint
	}
	if s.NumberOfParticles == 0 {
		s.NumberOfParticles = 1
	}
}

// ParticleInfo is reference data served by the sources API so clients can
// present particle pickers without hardcoding the catalogue.
type ParticleInfo struct {
	Name     string   `json:"name"`
	PDG      *int64   `json:"pdg"`
	MassMeV  *float64 `json:"mass_mev"`
	Charge   *int     `json:"charge"`
	Lifetime string   `json:"lifetime"`
}

// ParticleCatalogueEntry pairs a particle identifier with its reference
// data for the sources API.
type ParticleCatalogueEntry struct {
	Name  string       `json:"name"`
	Value ParticleType `json:"value"`
	Info  ParticleInfo `json:"info"`
}

// DistributionInfo describes one distribution choice for the sources API.
type DistributionInfo struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

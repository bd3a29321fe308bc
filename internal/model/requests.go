package model

// CreateSimulationRequest creates a job from run parameters plus optional
// geometry, physics and source configurations, each given inline or by the
// name of a saved configuration. Inline wins when both are present.
type CreateSimulationRequest struct {
	Simulation SimulationConfig `json:"simulation" validate:"required"`

	GeometryID string            `json:"geometry_id,omitempty"`
	Geometry   *DetectorGeometry `json:"geometry,omitempty"`

	PhysicsID string         `json:"physics_id,omitempty"`
	Physics   *PhysicsConfig `json:"physics,omitempty"`

	SourceID string          `json:"source_id,omitempty"`
	Source   *ParticleSource `json:"source,omitempty"`
}

// ValidationResult is the outcome of checking a configuration. Issues make
// it invalid; warnings are advisory.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Issues   []string `json:"issues"`
	Warnings []string `json:"warnings"`
}

// VerificationResult extends validation with discovered installation facts.
type VerificationResult struct {
	Valid    bool           `json:"valid"`
	Issues   []string       `json:"issues"`
	Warnings []string       `json:"warnings"`
	Info     map[string]any `json:"info"`
}

// EngineStatus reports the configured engine installation and whether real
// execution is available.
type EngineStatus struct {
	Configured     bool               `json:"configured"`
	InstallPath    string             `json:"install_path,omitempty"`
	DataPath       string             `json:"data_path,omitempty"`
	ExecutablePath string             `json:"executable_path,omitempty"`
	ExecutorReady  bool               `json:"executor_ready"`
	Verification   VerificationResult `json:"verification"`
}

// ConfigureEngineRequest updates the engine installation paths.
type ConfigureEngineRequest struct {
	InstallPath    string `json:"install_path,omitempty"`
	DataPath       string `json:"data_path,omitempty"`
	ExecutablePath string `json:"executable_path,omitempty"`
}

// RecommendPhysicsRequest asks for a physics list suggestion for an
// application.
type RecommendPhysicsRequest struct {
	Application string   `json:"application" validate:"required"`
	EnergyMeV   float64  `json:"energy_mev" validate:"required,gt=0"`
	Particles   []string `json:"particles"`
}

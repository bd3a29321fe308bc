package model

import "time"

// HitRecord is a single recorded interaction of a particle with a sensitive
// detector volume. Position is millimeters, energies MeV, time nanoseconds.
type HitRecord struct {
	EventID       int      `json:"event_id"`
	TrackID       int      `json:"track_id,omitempty"`
	Detector      string   `json:"detector"`
	Particle      string   `json:"particle"`
	Position      Vector3D `json:"position"`
	EnergyDeposit float64  `json:"energy_deposit"`
	KineticEnergy float64  `json:"kinetic_energy,omitempty"`
	GlobalTime    float64  `json:"global_time,omitempty"`
}

// DetectorSummary aggregates the hits one sensitive volume saw over a run.
type DetectorSummary struct {
	Name               string  `json:"name"`
	TotalHits          int     `json:"total_hits"`
	TotalEnergyDeposit float64 `json:"total_energy_deposit"`
	MeanEnergyPerEvent float64 `json:"mean_energy_per_event"`
	StdEnergyPerEvent  float64 `json:"std_energy_per_event"`
	HitEfficiency      float64 `json:"hit_efficiency"`
}

// SimulationResults is the finalized record of a completed run. It is
// written once and read-only afterward.
type SimulationResults struct {
	SimulationID   string    `json:"simulation_id"`
	SimulationName string    `json:"simulation_name"`
	CompletedAt    time.Time `json:"completed_at"`

	NumEvents       int     `json:"num_events"`
	ElapsedTime     float64 `json:"elapsed_time"`
	EventsPerSecond float64 `json:"events_per_second"`
	RandomSeed      int64   `json:"random_seed"`

	TotalEnergyDeposited float64           `json:"total_energy_deposited"`
	DetectorSummaries    []DetectorSummary `json:"detector_summaries"`

	PrimaryParticlesGenerated int            `json:"primary_particles_generated"`
	TotalSecondariesCreated   int            `json:"total_secondaries_created"`
	ParticleStatistics        map[string]int `json:"particle_statistics"`

	// Capped sample of raw hits, kept for analysis and export.
	Hits []HitRecord `json:"hits,omitempty"`
}

// HistogramData is a one dimensional binned distribution.
type HistogramData struct {
	Name        string    `json:"name"`
	Title       string    `json:"title"`
	XLabel      string    `json:"x_label"`
	YLabel      string    `json:"y_label"`
	Bins        int       `json:"bins"`
	XMin        float64   `json:"x_min"`
	XMax        float64   `json:"x_max"`
	BinEdges    []float64 `json:"bin_edges"`
	BinContents []float64 `json:"bin_contents"`
	BinErrors   []float64 `json:"bin_errors,omitempty"`
	Underflow   float64   `json:"underflow"`
	Overflow    float64   `json:"overflow"`
	Entries     int       `json:"entries"`
	Mean        *float64  `json:"mean,omitempty"`
	StdDev      *float64  `json:"std_dev,omitempty"`
}

// AnalysisResult bundles the histograms and summary statistics derived from
// one simulation's saved results.
type AnalysisResult struct {
	SimulationID string          `json:"simulation_id"`
	AnalysisType string          `json:"analysis_type"`
	CreatedAt    time.Time       `json:"created_at"`
	Histograms   []HistogramData `json:"histograms"`
	SummaryStats map[string]any  `json:"summary_stats"`
}

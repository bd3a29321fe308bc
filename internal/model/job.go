package model

import "time"

// SimulationJob is a single requested simulation run. The geometry, physics
// and source fields are snapshots captured at creation time; editing or
// deleting the named configuration they came from does not affect the job.
type SimulationJob struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Status          SimulationStatus  `json:"status"`
	Config          SimulationConfig  `json:"config"`
	Geometry        *DetectorGeometry `json:"geometry_config,omitempty"`
	Physics         *PhysicsConfig    `json:"physics_config,omitempty"`
	Source          *ParticleSource   `json:"source_config,omitempty"`
	EventsCompleted int               `json:"events_completed"`
	EventsTotal     int               `json:"events_total"`
	ResultPath      string            `json:"result_path,omitempty"`
	ErrorMessage    *string           `json:"error_message,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	StartedAt       *time.Time        `json:"started_at,omitempty"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
}

// SimulationConfig holds the run parameters of a job.
type SimulationConfig struct {
	Name               string         `json:"name" validate:"required,min=1,max=200"`
	Description        string         `json:"description,omitempty"`
	NumEvents          int            `json:"num_events" validate:"required,min=1"`
	Mode               SimulationMode `json:"mode,omitempty"`
	RandomSeed         *int64         `json:"random_seed,omitempty"`
	NumThreads         int            `json:"num_threads,omitempty" validate:"omitempty,min=1"`
	OutputFormat       OutputFormat   `json:"output_format,omitempty"`
	OutputEveryNEvents int            `json:"output_every_n_events,omitempty" validate:"omitempty,min=1"`
	SaveTrajectories   bool           `json:"save_trajectories,omitempty"`
	SaveSecondaries    *bool          `json:"save_secondaries,omitempty"`
	VerboseLevel       int            `json:"verbose_level,omitempty" validate:"omitempty,min=0,max=5"`
	TrackingVerbose    int            `json:"tracking_verbose,omitempty" validate:"omitempty,min=0,max=5"`
}

// ApplyDefaults fills the zero-value run parameters.
func (c *SimulationConfig) ApplyDefaults() {
	if c.NumEvents == 0 {
		c.NumEvents = 1000
	}
	if c.Mode == "" {
		c.Mode = ModeBatch
	}
	if c.NumThreads == 0 {
		c.NumThreads = 1
	}
	if c.OutputFormat == "" {
		c.OutputFormat = OutputJSON
	}
	if c.OutputEveryNEvents == 0 {
		c.OutputEveryNEvents = 100
	}
	if c.SaveSecondaries == nil {
		t := true
		c.SaveSecondaries = &t
	}
}

// SimulationProgress is the derived progress view of a job.
type SimulationProgress struct {
	SimulationID       string           `json:"simulation_id"`
	Status             SimulationStatus `json:"status"`
	EventsCompleted    int              `json:"events_completed"`
	EventsTotal        int              `json:"events_total"`
	ProgressPercent    float64          `json:"progress_percent"`
	ElapsedTime        float64          `json:"elapsed_time"`
	EstimatedRemaining *float64         `json:"estimated_remaining,omitempty"`
	CurrentEventRate   *float64         `json:"current_event_rate,omitempty"`
	Message            string           `json:"message,omitempty"`
	Timestamp          time.Time        `json:"timestamp"`
}

// ComputeProgress derives percent/rate/eta from the raw counters.
// The rate is nil while no time has elapsed and the ETA is nil whenever
// the rate is nil or zero.
func ComputeProgress(completed, total int, elapsedSeconds float64) (percent float64, rate, eta *float64) {
	if total > 0 {
		percent = float64(completed) / float64(total) * 100
	}
	if elapsedSeconds > 0 {
		r := float64(completed) / elapsedSeconds
		rate = &r
		if r > 0 {
			e := float64(total-completed) / r
			eta = &e
		}
	}
	return percent, rate, eta
}

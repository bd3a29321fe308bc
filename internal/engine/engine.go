package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"github.com/brahimariani/geant4-api/internal/bus"
	"github.com/brahimariani/geant4-api/internal/geant4"
	"github.com/brahimariani/geant4-api/internal/model"
	"github.com/brahimariani/geant4-api/internal/results"
)

var (
	ErrNotFound          = errors.New("simulation not found")
	ErrNotCompleted      = errors.New("simulation not completed")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrRunActive         = errors.New("simulation run already active")
)

// Lifecycle events. Each maps to one edge set of the job state machine.
const (
	eventStart      = "start"
	eventInitialize = "initialize"
	eventRun        = "run"
	eventPause      = "pause"
	eventResume     = "resume"
	eventComplete   = "complete"
	eventFail       = "fail"
	eventCancel     = "cancel"
)

// newLifecycle builds the per-job state machine. States mirror
// model.SimulationStatus so the machine's current state can be assigned
// straight onto the job.
func newLifecycle() *fsm.FSM {
	var (
		pending      = string(model.StatusPending)
		queued       = string(model.StatusQueued)
		initializing = string(model.StatusInitializing)
		running      = string(model.StatusRunning)
		paused       = string(model.StatusPaused)
		completed    = string(model.StatusCompleted)
		failed       = string(model.StatusFailed)
		cancelled    = string(model.StatusCancelled)
	)
	return fsm.NewFSM(
		pending,
		fsm.Events{
			{Name: eventStart, Src: []string{pending, paused}, Dst: queued},
			{Name: eventInitialize, Src: []string{queued}, Dst: initializing},
			{Name: eventRun, Src: []string{initializing}, Dst: running},
			{Name: eventPause, Src: []string{running}, Dst: paused},
			{Name: eventResume, Src: []string{paused}, Dst: running},
			{Name: eventComplete, Src: []string{running, paused}, Dst: completed},
			{Name: eventFail, Src: []string{queued, initializing, running, paused}, Dst: failed},
			{Name: eventCancel, Src: []string{pending, queued, initializing, running, paused}, Dst: cancelled},
		},
		fsm.Callbacks{},
	)
}

// Config carries the engine's filesystem layout, installation paths and
// pacing settings.
type Config struct {
	// ResultsPath is the root under which finished results are persisted,
	// one directory per simulation.
	ResultsPath string

	// WorkPath is the root for per-run working directories holding the
	// generated macro, GDML and any native output files.
	WorkPath string

	// InstallPath and DataPath locate the Geant4 installation; both may be
	// empty when no real engine is present.
	InstallPath string
	DataPath    string

	// ExecutablePath is the Geant4 application binary. When it is unset or
	// missing, runs fall back to simulated mode.
	ExecutablePath string

	// BatchDelay is the pause between simulated event batches.
	BatchDelay time.Duration
}

// runHandle tracks one in-flight run so control operations can reach it.
type runHandle struct {
	cancel context.CancelFunc
	exec   *geant4.Executor
}

// Engine owns the simulation jobs: their lifecycle, their execution and the
// events they publish. REST handlers call the control methods; workers call
// Run.
type Engine struct {
	cfg        Config
	bus        *bus.Bus
	collector  *results.Collector
	dispatcher Dispatcher

	mu       sync.RWMutex
	jobs     map[string]*model.SimulationJob
	machines map[string]*fsm.FSM
	runs     map[string]*runHandle

	// Geant4 installation, replaced atomically by Configure.
	env        *geant4.Environment
	executable string
}

func New(cfg Config, eventBus *bus.Bus, collector *results.Collector) *Engine {
	if cfg.BatchDelay <= 0 {
		cfg.BatchDelay = 50 * time.Millisecond
	}
	return &Engine{
		cfg:        cfg,
		bus:        eventBus,
		collector:  collector,
		jobs:       make(map[string]*model.SimulationJob),
		machines:   make(map[string]*fsm.FSM),
		runs:       make(map[string]*runHandle),
		env:        &geant4.Environment{InstallPath: cfg.InstallPath, DataPath: cfg.DataPath},
		executable: cfg.ExecutablePath,
	}
}

// SetDispatcher wires the run dispatcher. Must be called before Start.
func (e *Engine) SetDispatcher(d Dispatcher) {
	e.dispatcher = d
}

// Create registers a new job in PENDING. The configuration snapshots are
// owned by the job from here on; callers must not mutate them afterwards.
func (e *Engine) Create(cfg model.SimulationConfig, geo *model.DetectorGeometry, phys *model.PhysicsConfig, src *model.ParticleSource) model.SimulationJob {
	cfg.ApplyDefaults()
	if geo != nil {
		geo.ApplyDefaults()
	}
	if phys != nil {
		phys.ApplyDefaults()
	}
	if src != nil {
		src.ApplyDefaults()
	}

	job := &model.SimulationJob{
		ID:          uuid.NewString(),
		Name:        cfg.Name,
		Status:      model.StatusPending,
		Config:      cfg,
		Geometry:    geo,
		Physics:     phys,
		Source:      src,
		EventsTotal: cfg.NumEvents,
		CreatedAt:   time.Now().UTC(),
	}

	e.mu.Lock()
	e.jobs[job.ID] = job
	e.machines[job.ID] = newLifecycle()
	e.mu.Unlock()

	log.Printf("Created simulation %s (%s)", job.ID, job.Name)
	return snapshot(job)
}

// Get returns a copy of the job.
func (e *Engine) Get(id string) (model.SimulationJob, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	job, ok := e.jobs[id]
	if !ok {
		return model.SimulationJob{}, ErrNotFound
	}
	return snapshot(job), nil
}

// List returns copies of all jobs, oldest first, optionally filtered by
// status.
func (e *Engine) List(status model.SimulationStatus) []model.SimulationJob {
	e.mu.RLock()
	jobs := make([]model.SimulationJob, 0, len(e.jobs))
	for _, job := range e.jobs {
		if status != "" && job.Status != status {
			continue
		}
		jobs = append(jobs, snapshot(job))
	}
	e.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs
}

// Start moves the job to QUEUED and hands it to the dispatcher. On dispatch
// failure the job is put back in its previous state so it can be started
// again.
func (e *Engine) Start(ctx context.Context, id string) error {
	if e.dispatcher == nil {
		return errors.New("engine has no dispatcher")
	}

	e.mu.Lock()
	job, ok := e.jobs[id]
	if !ok {
		e.mu.Unlock()
		return ErrNotFound
	}
	if _, active := e.runs[id]; active {
		e.mu.Unlock()
		return ErrRunActive
	}
	prev := job.Status
	if err := e.transitionLocked(ctx, job, eventStart); err != nil {
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()

	if err := e.dispatcher.Dispatch(ctx, id); err != nil {
		e.mu.Lock()
		if machine := e.machines[id]; machine != nil {
			machine.SetState(string(prev))
			job.Status = prev
		}
		e.mu.Unlock()
		return fmt.Errorf("dispatch simulation: %w", err)
	}

	log.Printf("Queued simulation %s", id)
	return nil
}

// Pause suspends a running job. The simulated loop stops between batches; a
// real Geant4 process keeps running and only the reported status changes.
func (e *Engine) Pause(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	job, ok := e.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if err := e.transitionLocked(ctx, job, eventPause); err != nil {
		return err
	}
	log.Printf("Paused simulation %s", id)
	return nil
}

// Resume continues a paused job.
func (e *Engine) Resume(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	job, ok := e.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if err := e.transitionLocked(ctx, job, eventResume); err != nil {
		return err
	}
	log.Printf("Resumed simulation %s", id)
	return nil
}

// Cancel stops a job. Any in-flight run is told to stop and the terminal
// cancelled event is published here, so viewers see it even when the run
// goroutine is mid-batch. Cancelling an already terminal job fails with
// ErrInvalidTransition and leaves the job untouched.
func (e *Engine) Cancel(ctx context.Context, id string) error {
	e.mu.Lock()
	job, ok := e.jobs[id]
	if !ok {
		e.mu.Unlock()
		return ErrNotFound
	}
	if err := e.transitionLocked(ctx, job, eventCancel); err != nil {
		e.mu.Unlock()
		return err
	}
	now := time.Now().UTC()
	job.CompletedAt = &now
	handle := e.runs[id]
	var exec *geant4.Executor
	if handle != nil {
		exec = handle.exec
	}
	e.mu.Unlock()

	if exec != nil {
		if err := exec.Terminate(); err != nil {
			log.Printf("Terminating simulation %s: %v", id, err)
		}
	}
	if handle != nil {
		handle.cancel()
	}

	e.bus.Emit(id, model.CancelledPayload{Message: "Simulation cancelled"})
	log.Printf("Cancelled simulation %s", id)
	return nil
}

// Delete removes a job and its event history. A job with an in-flight run,
// running or paused, is cancelled first so no goroutine keeps emitting for a
// deleted id.
func (e *Engine) Delete(ctx context.Context, id string) error {
	e.mu.RLock()
	_, ok := e.jobs[id]
	_, active := e.runs[id]
	e.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	if active {
		if err := e.Cancel(ctx, id); err != nil && !errors.Is(err, ErrInvalidTransition) {
			return err
		}
	}

	e.mu.Lock()
	delete(e.jobs, id)
	delete(e.machines, id)
	e.mu.Unlock()

	e.bus.ClearHistory(id)
	log.Printf("Deleted simulation %s", id)
	return nil
}

// Progress reports the job counters with derived percentage, rate and ETA.
func (e *Engine) Progress(id string) (model.SimulationProgress, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	job, ok := e.jobs[id]
	if !ok {
		return model.SimulationProgress{}, ErrNotFound
	}

	elapsed := 0.0
	if job.StartedAt != nil {
		end := time.Now().UTC()
		if job.CompletedAt != nil {
			end = *job.CompletedAt
		}
		elapsed = end.Sub(*job.StartedAt).Seconds()
	}
	percent, rate, eta := model.ComputeProgress(job.EventsCompleted, job.EventsTotal, elapsed)

	return model.SimulationProgress{
		SimulationID:       job.ID,
		Status:             job.Status,
		EventsCompleted:    job.EventsCompleted,
		EventsTotal:        job.EventsTotal,
		ProgressPercent:    percent,
		ElapsedTime:        elapsed,
		EstimatedRemaining: eta,
		CurrentEventRate:   rate,
		Timestamp:          time.Now().UTC(),
	}, nil
}

// Results returns the finished results of a completed job. The persisted
// document is preferred; when the run never wrote one, a summary is
// synthesized from the job counters.
func (e *Engine) Results(id string) (model.SimulationResults, error) {
	job, err := e.Get(id)
	if err != nil {
		return model.SimulationResults{}, err
	}
	if job.Status != model.StatusCompleted {
		return model.SimulationResults{}, fmt.Errorf("%w: simulation %s is %s", ErrNotCompleted, id, job.Status)
	}

	res, err := e.collector.Load(id)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, results.ErrNotFound) {
		return model.SimulationResults{}, err
	}

	elapsed := 0.0
	if job.StartedAt != nil && job.CompletedAt != nil {
		elapsed = job.CompletedAt.Sub(*job.StartedAt).Seconds()
	}
	eps := 0.0
	if elapsed > 0 {
		eps = float64(job.EventsCompleted) / elapsed
	}
	synthesized := model.SimulationResults{
		SimulationID:              id,
		SimulationName:            job.Name,
		NumEvents:                 job.EventsCompleted,
		ElapsedTime:               elapsed,
		EventsPerSecond:           eps,
		PrimaryParticlesGenerated: job.EventsCompleted,
		DetectorSummaries:         []model.DetectorSummary{},
		ParticleStatistics:        map[string]int{},
	}
	if job.CompletedAt != nil {
		synthesized.CompletedAt = *job.CompletedAt
	}
	return synthesized, nil
}

// Configure updates the Geant4 installation paths and reports the resulting
// status. The data directory is auto-detected under the install tree when
// not given explicitly.
func (e *Engine) Configure(req model.ConfigureEngineRequest) model.EngineStatus {
	e.mu.Lock()
	if req.InstallPath != "" {
		e.cfg.InstallPath = req.InstallPath
		if req.DataPath == "" {
			auto := filepath.Join(req.InstallPath, "share", "Geant4", "data")
			if info, err := os.Stat(auto); err == nil && info.IsDir() {
				e.cfg.DataPath = auto
			}
		}
	}
	if req.DataPath != "" {
		e.cfg.DataPath = req.DataPath
	}
	if req.ExecutablePath != "" {
		e.executable = req.ExecutablePath
	}
	e.env = &geant4.Environment{InstallPath: e.cfg.InstallPath, DataPath: e.cfg.DataPath}
	install, data, executable := e.cfg.InstallPath, e.cfg.DataPath, e.executable
	e.mu.Unlock()

	log.Printf("Geant4 configured: install=%q data=%q executable=%q", install, data, executable)
	return e.Status()
}

// Status reports the current Geant4 installation and whether real execution
// is available.
func (e *Engine) Status() model.EngineStatus {
	e.mu.RLock()
	install, data, executable := e.cfg.InstallPath, e.cfg.DataPath, e.executable
	env := e.env
	e.mu.RUnlock()

	return model.EngineStatus{
		Configured:     install != "",
		InstallPath:    install,
		DataPath:       data,
		ExecutablePath: executable,
		ExecutorReady:  geant4.NewExecutor(executable, env).Available(),
		Verification:   env.Verify(),
	}
}

// transitionLocked fires a lifecycle event for the job and mirrors the new
// state onto it. Callers hold e.mu.
func (e *Engine) transitionLocked(ctx context.Context, job *model.SimulationJob, event string) error {
	machine := e.machines[job.ID]
	if machine == nil {
		return ErrNotFound
	}
	if err := machine.Event(ctx, event); err != nil {
		return fmt.Errorf("%w: cannot %s simulation in state %s", ErrInvalidTransition, event, job.Status)
	}
	job.Status = model.SimulationStatus(machine.Current())
	return nil
}

// statusOf reads the job status without copying the whole job.
func (e *Engine) statusOf(id string) model.SimulationStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if job, ok := e.jobs[id]; ok {
		return job.Status
	}
	return ""
}

// snapshot copies a job, including its nullable fields, so callers can hold
// it without racing the run goroutine.
func snapshot(job *model.SimulationJob) model.SimulationJob {
	snap := *job
	if job.StartedAt != nil {
		t := *job.StartedAt
		snap.StartedAt = &t
	}
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		snap.CompletedAt = &t
	}
	if job.ErrorMessage != nil {
		m := *job.ErrorMessage
		snap.ErrorMessage = &m
	}
	return snap
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/brahimariani/geant4-api/internal/geant4"
	"github.com/brahimariani/geant4-api/internal/model"
)

// pausePoll is how often a paused simulated run rechecks its status.
const pausePoll = 100 * time.Millisecond

// Run executes one queued simulation to a terminal state. Workers call it
// once per dispatched job; a second call while the first is in flight fails
// with ErrRunActive. The returned error reports infrastructure failures
// (unknown job, setup errors); simulation failures are recorded on the job
// and published as events, and Run returns nil for them.
func (e *Engine) Run(ctx context.Context, id string) error {
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

	runCtx, cancel := context.WithCancel(ctx)
	handle := &runHandle{cancel: cancel}
	e.runs[id] = handle

	if err := e.transitionLocked(runCtx, job, eventInitialize); err != nil {
		terminal := job.Status.Terminal()
		delete(e.runs, id)
		e.mu.Unlock()
		cancel()
		if terminal {
			// Cancelled between queueing and pickup; nothing to run.
			return nil
		}
		return err
	}
	now := time.Now().UTC()
	job.StartedAt = &now
	name := job.Name
	e.mu.Unlock()

	defer func() {
		cancel()
		e.mu.Lock()
		delete(e.runs, id)
		e.mu.Unlock()
		// A completed run was finalized already; anything else must not
		// keep reporting live stats.
		e.collector.Abandon(id)
	}()

	e.bus.Emit(id, model.StatusPayload{
		Status:  model.StatusInitializing,
		Message: "Preparing simulation...",
	})
	e.collector.Open(id, name)

	if err := e.execute(runCtx, job, handle); err != nil {
		if errors.Is(err, context.Canceled) {
			// Cancel already moved the job to its terminal state and
			// published the cancelled event.
			return nil
		}
		e.failWith(id, err.Error(), nil)
	}
	return nil
}

// execute prepares the working directory and input files, then runs the job
// for real or in simulated mode depending on whether a Geant4 executable is
// available.
func (e *Engine) execute(ctx context.Context, job *model.SimulationJob, handle *runHandle) error {
	workDir := filepath.Join(e.cfg.WorkPath, job.ID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}

	gdmlFile := ""
	if job.Geometry != nil {
		content, err := geant4.GenerateGDML(job.Geometry)
		if err != nil {
			return fmt.Errorf("generate gdml: %w", err)
		}
		gdmlFile = geant4.GDMLFileName
		if err := os.WriteFile(filepath.Join(workDir, gdmlFile), []byte(content), 0o644); err != nil {
			return fmt.Errorf("write gdml: %w", err)
		}
	}

	macro := geant4.GenerateMacro(job.Physics, job.Source, job.Config, gdmlFile)
	if err := os.WriteFile(filepath.Join(workDir, geant4.MacroFileName), []byte(macro), 0o644); err != nil {
		return fmt.Errorf("write macro: %w", err)
	}

	e.bus.Emit(job.ID, model.StatusPayload{
		Status:  model.StatusRunning,
		Message: "Starting Geant4 process...",
	})

	e.mu.Lock()
	err := e.transitionLocked(ctx, job, eventRun)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	start := time.Now()

	e.mu.RLock()
	executor := geant4.NewExecutor(e.executable, e.env)
	e.mu.RUnlock()

	if executor.Available() {
		return e.runReal(ctx, job, handle, executor, workDir, start)
	}
	return e.runSimulated(ctx, job, start)
}

// runReal drives a real Geant4 process, relaying its parsed output onto the
// bus and into the collector.
func (e *Engine) runReal(ctx context.Context, job *model.SimulationJob, handle *runHandle, executor *geant4.Executor, workDir string, start time.Time) error {
	e.bus.Emit(job.ID, model.StatusPayload{
		Status:     model.StatusRunning,
		Message:    fmt.Sprintf("Launching Geant4: %s", filepath.Base(executor.ExecutablePath)),
		RealEngine: boolPtr(true),
	})

	e.mu.Lock()
	handle.exec = executor
	e.mu.Unlock()

	emit := func(payload model.EventPayload) {
		switch p := payload.(type) {
		case model.ProgressPayload:
			e.updateCounters(job, p.EventsCompleted, p.EventsTotal)
			e.collector.RecordEvents(job.ID, p.EventsCompleted)
		case model.HitPayload:
			e.collector.AddHit(job.ID, model.HitRecord{
				Detector:      p.Detector,
				EnergyDeposit: p.EnergyDeposit,
			})
		}
		e.bus.Emit(job.ID, payload)
	}

	result, err := executor.Run(ctx, geant4.MacroFileName, workDir, emit, nil)
	if err != nil {
		return err
	}

	if files := geant4.FindOutputFiles(workDir); len(files) > 0 {
		e.bus.Emit(job.ID, model.OutputFilesPayload{Files: files})
	}

	if result.ReturnCode != 0 {
		code := result.ReturnCode
		e.failWith(job.ID, fmt.Sprintf("Geant4 exited with code %d", code), &code)
		return nil
	}
	return e.complete(job, start)
}

// runSimulated fabricates a run when no Geant4 executable is configured. It
// produces the same event stream a real run would, in fixed-size batches,
// and honors pause and cancel between batches.
func (e *Engine) runSimulated(ctx context.Context, job *model.SimulationJob, start time.Time) error {
	log.Printf("No Geant4 executable configured, simulation %s runs in simulated mode", job.ID)

	e.bus.Emit(job.ID, model.StatusPayload{
		Status:     model.StatusRunning,
		Message:    "Running in SIMULATION mode (no real Geant4)",
		RealEngine: boolPtr(false),
	})

	total := job.Config.NumEvents
	batch := job.Config.OutputEveryNEvents
	if batch <= 0 {
		batch = 100
	}

	seed := time.Now().UnixNano()
	if job.Config.RandomSeed != nil {
		seed = *job.Config.RandomSeed
	}
	rng := rand.New(rand.NewSource(seed))

	for i := 0; i < total; i += batch {
		if err := e.waitWhilePaused(ctx, job.ID); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.cfg.BatchDelay):
		}

		done := i + batch
		if done > total {
			done = total
		}
		e.updateCounters(job, done, total)
		e.collector.RecordEvents(job.ID, done)

		elapsed := time.Since(start).Seconds()
		percent, rate, eta := model.ComputeProgress(done, total, elapsed)
		e.bus.Emit(job.ID, model.ProgressPayload{
			EventsCompleted:    done,
			EventsTotal:        total,
			ProgressPercent:    percent,
			ElapsedTime:        elapsed,
			EstimatedRemaining: eta,
			EventRate:          rate,
		})

		hits := sampleHits(rng, i, done-i)
		e.collector.AddHits(job.ID, hits)
		e.bus.Emit(job.ID, model.EventBatchPayload{
			BatchStart: i,
			BatchEnd:   done,
			SampleHits: hits,
		})
	}

	return e.complete(job, start)
}

// complete moves the job to COMPLETED, persists the collected results and
// publishes the terminal event. Losing the race against a concurrent cancel
// is not an error; the cancel owns the terminal event then.
func (e *Engine) complete(job *model.SimulationJob, start time.Time) error {
	e.mu.Lock()
	if err := e.transitionLocked(context.Background(), job, eventComplete); err != nil {
		terminal := job.Status.Terminal()
		e.mu.Unlock()
		if terminal {
			return nil
		}
		return err
	}
	now := time.Now().UTC()
	job.CompletedAt = &now
	completed := job.EventsCompleted
	e.mu.Unlock()

	e.collector.RecordEvents(job.ID, completed)
	resultPath := ""
	if _, err := e.collector.Finalize(job.ID); err != nil {
		log.Printf("Finalizing results for %s: %v", job.ID, err)
	} else {
		resultPath = filepath.Join(e.collector.ResultsPath(), job.ID)
		e.mu.Lock()
		job.ResultPath = resultPath
		e.mu.Unlock()
	}

	elapsed := time.Since(start).Seconds()
	eps := 0.0
	if elapsed > 0 {
		eps = float64(completed) / elapsed
	}
	e.bus.Emit(job.ID, model.CompletedPayload{
		Status:          model.StatusCompleted,
		TotalEvents:     completed,
		ElapsedTime:     elapsed,
		EventsPerSecond: eps,
		ResultPath:      resultPath,
	})

	log.Printf("Simulation %s completed: %d events in %.2fs", job.ID, completed, elapsed)
	return nil
}

// failWith moves the job to FAILED, records the message and publishes the
// terminal error event. Safe to call when the job already reached a
// terminal state; the stored outcome is kept then.
func (e *Engine) failWith(id, message string, returnCode *int) {
	e.mu.Lock()
	job, ok := e.jobs[id]
	if !ok {
		e.mu.Unlock()
		return
	}
	if machine := e.machines[id]; machine != nil {
		if err := machine.Event(context.Background(), eventFail); err != nil {
			e.mu.Unlock()
			return
		}
		job.Status = model.SimulationStatus(machine.Current())
	}
	job.ErrorMessage = &message
	now := time.Now().UTC()
	job.CompletedAt = &now
	e.mu.Unlock()

	e.bus.Emit(id, model.ErrorPayload{
		Message:    message,
		Status:     model.StatusFailed,
		ReturnCode: returnCode,
	})
	log.Printf("Simulation %s failed: %s", id, message)
}

// updateCounters raises the job's event counters. Counters never go
// backwards, so a late or duplicated progress line cannot make the reported
// progress shrink.
func (e *Engine) updateCounters(job *model.SimulationJob, completed, total int) {
	e.mu.Lock()
	if completed > job.EventsCompleted {
		job.EventsCompleted = completed
	}
	if total > job.EventsTotal {
		job.EventsTotal = total
	}
	e.mu.Unlock()
}

// waitWhilePaused blocks between batches while the job is paused.
func (e *Engine) waitWhilePaused(ctx context.Context, id string) error {
	for e.statusOf(id) == model.StatusPaused {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pausePoll):
		}
	}
	return nil
}

// sampleHits fabricates representative detector hits for one simulated
// batch: gammas depositing 0.01 to 1 MeV around z=100mm, at most ten per
// batch.
func sampleHits(rng *rand.Rand, startEvent, batchSize int) []model.HitRecord {
	n := batchSize
	if n > 10 {
		n = 10
	}
	hits := make([]model.HitRecord, 0, n)
	for i := 0; i < n; i++ {
		hits = append(hits, model.HitRecord{
			EventID:       startEvent + i,
			Detector:      "detector_0",
			Particle:      "gamma",
			EnergyDeposit: 0.01 + rng.Float64()*0.99,
			Position: model.Vector3D{
				X: rng.NormFloat64() * 10,
				Y: rng.NormFloat64() * 10,
				Z: 100 + rng.NormFloat64()*5,
			},
		})
	}
	return hits
}

func boolPtr(v bool) *bool { return &v }

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/brahimariani/geant4-api/internal/engine"
)

// SimulationWorker executes queued simulation runs.
type SimulationWorker struct {
	engine *engine.Engine
}

// NewSimulationWorker creates a new simulation worker.
func NewSimulationWorker(eng *engine.Engine) *SimulationWorker {
	return &SimulationWorker{engine: eng}
}

// ProcessTask runs one simulation task to its terminal state. Simulation
// failures are recorded on the job by the engine; only infrastructure
// problems fail the task.
func (w *SimulationWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload engine.RunTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	log.Printf("Starting simulation run: %s", payload.SimulationID)

	if err := w.engine.Run(ctx, payload.SimulationID); err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			// Job deleted while queued; nothing left to run.
			log.Printf("Simulation %s no longer exists, dropping task", payload.SimulationID)
			return nil
		}
		return fmt.Errorf("failed to run simulation %s: %w", payload.SimulationID, err)
	}
	return nil
}

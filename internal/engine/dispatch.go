package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"
)

const (
	// TaskTypeRun is the asynq task type for executing a queued simulation.
	TaskTypeRun = "simulation:run"

	// QueueSimulations is the asynq queue simulation runs are enqueued on.
	QueueSimulations = "simulations"
)

// RunTaskPayload is the body of a simulation run task.
type RunTaskPayload struct {
	SimulationID string `json:"simulation_id"`
}

// NewRunTask builds the asynq task for one queued simulation.
func NewRunTask(simulationID string) (*asynq.Task, error) {
	data, err := json.Marshal(RunTaskPayload{SimulationID: simulationID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeRun, data), nil
}

// Dispatcher hands a queued simulation to whatever executes it. The engine
// calls Dispatch after moving a job to QUEUED; the dispatcher (or the worker
// behind it) is expected to call Engine.Run exactly once per dispatch.
type Dispatcher interface {
	Dispatch(ctx context.Context, simulationID string) error
}

// AsynqDispatcher enqueues runs on Redis for the worker pool. Simulations
// are never retried automatically: a crashed run has side effects (events,
// partial output files) that a blind re-run would duplicate.
type AsynqDispatcher struct {
	client *asynq.Client
}

func NewAsynqDispatcher(client *asynq.Client) *AsynqDispatcher {
	return &AsynqDispatcher{client: client}
}

func (d *AsynqDispatcher) Dispatch(ctx context.Context, simulationID string) error {
	task, err := NewRunTask(simulationID)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	_, err = d.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueSimulations),
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// DirectDispatcher runs simulations on in-process goroutines. It is the
// fallback when Redis is unavailable and the mode used by tests. When a
// concurrency limit is set, excess dispatches wait their turn while the job
// sits in QUEUED, mirroring what the asynq worker pool does.
type DirectDispatcher struct {
	mu      sync.Mutex
	engine  *Engine
	pending sync.WaitGroup
	group   errgroup.Group
}

func NewDirectDispatcher(maxConcurrent int) *DirectDispatcher {
	d := &DirectDispatcher{}
	if maxConcurrent > 0 {
		d.group.SetLimit(maxConcurrent)
	}
	return d
}

// Bind points the dispatcher at its engine. Engine and dispatcher reference
// each other, so one side has to be wired after construction.
func (d *DirectDispatcher) Bind(engine *Engine) {
	d.mu.Lock()
	d.engine = engine
	d.mu.Unlock()
}

func (d *DirectDispatcher) Dispatch(ctx context.Context, simulationID string) error {
	d.mu.Lock()
	engine := d.engine
	d.mu.Unlock()
	if engine == nil {
		return fmt.Errorf("dispatcher is not bound to an engine")
	}

	d.pending.Add(1)
	go func() {
		// group.Go blocks here, not in Dispatch, when all slots are busy.
		d.group.Go(func() error {
			// The request context ends with the HTTP response; the run gets
			// its own lifetime and is stopped through Engine.Cancel.
			if err := engine.Run(context.Background(), simulationID); err != nil {
				log.Printf("Simulation %s run failed: %v", simulationID, err)
			}
			return nil
		})
		d.pending.Done()
	}()
	return nil
}

// Wait blocks until every dispatched run has returned.
func (d *DirectDispatcher) Wait() {
	d.pending.Wait()
	_ = d.group.Wait()
}

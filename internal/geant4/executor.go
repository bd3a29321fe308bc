package geant4

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/brahimariani/geant4-api/internal/model"
)

// ErrNoExecutable is returned when Run is called without a usable engine
// binary configured.
var ErrNoExecutable = errors.New("geant4 executable not configured")

// terminateGrace is how long a signalled process gets before it is killed.
const terminateGrace = 5 * time.Second

// ExecState is the lifecycle of one engine process run.
type ExecState string

const (
	ExecNotStarted ExecState = "not_started"
	ExecLaunching  ExecState = "launching"
	ExecRunning    ExecState = "running"
	ExecCompleted  ExecState = "completed"
	ExecFailed     ExecState = "failed"
	ExecTerminated ExecState = "terminated"
)

// EmitFunc receives live payloads (status, progress, hit) while a run is in
// flight. Calls come from the executor's goroutine and must not block.
type EmitFunc func(model.EventPayload)

// LineFunc receives every raw output line, whether it parsed or not.
type LineFunc func(string)

// ExecResult is the final accounting of one engine process run.
type ExecResult struct {
	ReturnCode      int
	EventsCompleted int
	EventsTotal     int
	Elapsed         time.Duration
	EventsPerSecond float64
}

// Executor runs the external engine binary for a single job and translates
// its text output into typed events. Use one Executor per run.
type Executor struct {
	ExecutablePath string
	Env            *Environment

	mu            sync.Mutex
	cmd           *exec.Cmd
	state         ExecState
	stopRequested bool
}

func NewExecutor(executablePath string, env *Environment) *Executor {
	return &Executor{ExecutablePath: executablePath, Env: env, state: ExecNotStarted}
}

// State reports where the run is in its lifecycle.
func (x *Executor) State() ExecState {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.state == "" {
		return ExecNotStarted
	}
	return x.state
}

func (x *Executor) setState(s ExecState) {
	x.mu.Lock()
	x.state = s
	x.mu.Unlock()
}

// Available reports whether a runnable engine binary is configured.
func (x *Executor) Available() bool {
	if x == nil || x.ExecutablePath == "" {
		return false
	}
	return fileExists(x.ExecutablePath)
}

// Run launches the engine on the given macro file and blocks until the
// process exits. Progress and hit payloads are emitted as output lines
// parse; the terminal outcome is the returned ExecResult so the caller
// owns the single completed or failed notification.
//
// Standard output and standard error are merged and drained line by line
// while the process runs. A nonzero exit is not an error here; it is
// reported through ExecResult.ReturnCode.
func (x *Executor) Run(ctx context.Context, macroFile, workDir string, emit EmitFunc, onLine LineFunc) (*ExecResult, error) {
	if !x.Available() {
		// Fails before the launching transition so State stays honest.
		return nil, fmt.Errorf("%w: %q", ErrNoExecutable, x.ExecutablePath)
	}
	if emit == nil {
		emit = func(model.EventPayload) {}
	}

	x.setState(ExecLaunching)
	emit(model.StatusPayload{Status: model.StatusRunning, Message: "Launching Geant4 process..."})

	pr, pw := io.Pipe()

	cmd := exec.CommandContext(ctx, x.ExecutablePath, macroFile)
	cmd.Dir = workDir
	if x.Env != nil {
		cmd.Env = x.Env.Setup()
	}
	cmd.Stdout = pw
	cmd.Stderr = pw
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = terminateGrace

	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		x.setState(ExecFailed)
		return nil, fmt.Errorf("start geant4: %w", err)
	}

	x.mu.Lock()
	x.cmd = cmd
	x.state = ExecRunning
	x.mu.Unlock()
	defer func() {
		x.mu.Lock()
		x.cmd = nil
		x.mu.Unlock()
	}()

	emit(model.StatusPayload{Status: model.StatusRunning, Message: "Geant4 process started", PID: cmd.Process.Pid})

	// Wait must run concurrently with the scan loop: the write end stays
	// open until the exec copiers finish, and those only finish while we
	// keep draining the read end.
	waitCh := make(chan error, 1)
	go func() {
		waitCh <- cmd.Wait()
		pw.Close()
	}()

	eventsCompleted := 0
	eventsTotal := 0
	start := time.Now()

	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if onLine != nil {
			onLine(line)
		}

		rec, ok := ParseLine(line)
		if !ok {
			continue
		}

		switch rec.Kind {
		case RecordRunStart:
			eventsTotal = rec.Events
			emit(model.ProgressPayload{
				EventsTotal: eventsTotal,
				Message:     fmt.Sprintf("Starting run with %d events", eventsTotal),
			})

		case RecordEvent:
			eventsCompleted = rec.EventID + 1
			elapsed := time.Since(start).Seconds()
			percent, rate, eta := model.ComputeProgress(eventsCompleted, eventsTotal, elapsed)
			emit(model.ProgressPayload{
				EventsCompleted:    eventsCompleted,
				EventsTotal:        eventsTotal,
				ProgressPercent:    percent,
				ElapsedTime:        elapsed,
				EstimatedRemaining: eta,
				EventRate:          rate,
			})

		case RecordHit:
			emit(model.HitPayload{Detector: rec.Detector, EnergyDeposit: rec.EnergyDeposit})
		}
	}
	scanErr := scanner.Err()

	waitErr := <-waitCh
	elapsed := time.Since(start)

	result := &ExecResult{
		EventsCompleted: eventsCompleted,
		EventsTotal:     eventsTotal,
		Elapsed:         elapsed,
	}
	if sec := elapsed.Seconds(); sec > 0 {
		result.EventsPerSecond = float64(eventsCompleted) / sec
	}

	x.mu.Lock()
	stopped := x.stopRequested
	x.mu.Unlock()

	if ctx.Err() != nil {
		x.setState(ExecTerminated)
		result.ReturnCode = -1
		return result, ctx.Err()
	}
	if scanErr != nil {
		x.setState(ExecFailed)
		return result, fmt.Errorf("read geant4 output: %w", scanErr)
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			result.ReturnCode = exitErr.ExitCode()
			if stopped {
				x.setState(ExecTerminated)
			} else {
				x.setState(ExecFailed)
			}
			return result, nil
		}
		x.setState(ExecFailed)
		return result, fmt.Errorf("wait geant4: %w", waitErr)
	}
	if stopped {
		x.setState(ExecTerminated)
	} else {
		x.setState(ExecCompleted)
	}
	return result, nil
}

// Terminate signals the running process to stop. The run then finishes as
// TERMINATED rather than FAILED. Safe to call when nothing is running.
func (x *Executor) Terminate() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.cmd == nil || x.cmd.Process == nil {
		return nil
	}
	x.stopRequested = true
	return x.cmd.Process.Signal(syscall.SIGTERM)
}

// Kill stops the running process immediately.
func (x *Executor) Kill() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.cmd == nil || x.cmd.Process == nil {
		return nil
	}
	x.stopRequested = true
	return x.cmd.Process.Kill()
}

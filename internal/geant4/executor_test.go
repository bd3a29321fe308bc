package geant4

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/brahimariani/geant4-api/internal/model"
)

// writeScript installs a shell script standing in for the engine binary.
func writeScript(t *testing.T, content string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test executable requires /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "geant4app")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+content), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExecutorAvailable(t *testing.T) {
	if (&Executor{}).Available() {
		t.Error("empty executor reported available")
	}
	if NewExecutor("/no/such/binary", nil).Available() {
		t.Error("missing binary reported available")
	}
	script := writeScript(t, "exit 0\n")
	if !NewExecutor(script, nil).Available() {
		t.Error("existing script reported unavailable")
	}
	if NewExecutor(filepath.Dir(script), nil).Available() {
		t.Error("directory reported available")
	}
}

func TestExecutorRun_ParsesOutput(t *testing.T) {
	script := writeScript(t, `
echo "/run/beamOn 5"
for i in 0 1 2 3 4; do
  echo ">>> Event $i"
done
echo "Hit: detector=phantom edep=0.5"
echo "unrelated noise" 1>&2
exit 0
`)

	var payloads []model.EventPayload
	var lines []string
	emit := func(p model.EventPayload) { payloads = append(payloads, p) }
	onLine := func(l string) { lines = append(lines, l) }

	x := NewExecutor(script, nil)
	if x.State() != ExecNotStarted {
		t.Errorf("state = %v before run", x.State())
	}
	result, err := x.Run(context.Background(), "run.mac", t.TempDir(), emit, onLine)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if x.State() != ExecCompleted {
		t.Errorf("state = %v, want %v", x.State(), ExecCompleted)
	}
	if result.ReturnCode != 0 {
		t.Errorf("return code = %d, want 0", result.ReturnCode)
	}
	if result.EventsCompleted != 5 {
		t.Errorf("events completed = %d, want 5", result.EventsCompleted)
	}
	if result.EventsTotal != 5 {
		t.Errorf("events total = %d, want 5", result.EventsTotal)
	}

	var progress, hits int
	for _, p := range payloads {
		switch p.(type) {
		case model.ProgressPayload:
			progress++
		case model.HitPayload:
			hits++
		}
	}
	// One progress for the run start plus one per event line.
	if progress != 6 {
		t.Errorf("progress payloads = %d, want 6", progress)
	}
	if hits != 1 {
		t.Errorf("hit payloads = %d, want 1", hits)
	}

	// stderr is merged with stdout.
	found := false
	for _, l := range lines {
		if l == "unrelated noise" {
			found = true
		}
	}
	if !found {
		t.Errorf("stderr line not seen, lines: %v", lines)
	}
}

func TestExecutorRun_NonzeroExit(t *testing.T) {
	script := writeScript(t, `
echo "Event: 0"
echo "G4Exception: bad geometry" 1>&2
exit 3
`)

	x := NewExecutor(script, nil)
	result, err := x.Run(context.Background(), "run.mac", t.TempDir(), nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ReturnCode != 3 {
		t.Errorf("return code = %d, want 3", result.ReturnCode)
	}
	if result.EventsCompleted != 1 {
		t.Errorf("events completed = %d, want 1", result.EventsCompleted)
	}
	if x.State() != ExecFailed {
		t.Errorf("state = %v, want %v", x.State(), ExecFailed)
	}
}

func TestExecutorRun_Cancelled(t *testing.T) {
	script := writeScript(t, `
echo "/run/beamOn 100"
exec sleep 30
`)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	x := NewExecutor(script, nil)
	result, err := x.Run(ctx, "run.mac", t.TempDir(), nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if result.ReturnCode != -1 {
		t.Errorf("return code = %d, want -1", result.ReturnCode)
	}
	if result.EventsTotal != 100 {
		t.Errorf("events total = %d, want 100", result.EventsTotal)
	}
	if x.State() != ExecTerminated {
		t.Errorf("state = %v, want %v", x.State(), ExecTerminated)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("cancellation took %v", elapsed)
	}
}

func TestExecutorRun_NoExecutable(t *testing.T) {
	x := &Executor{}
	_, err := x.Run(context.Background(), "run.mac", t.TempDir(), nil, nil)
	if !errors.Is(err, ErrNoExecutable) {
		t.Fatalf("err = %v, want ErrNoExecutable", err)
	}
	if x.State() != ExecNotStarted {
		t.Errorf("state = %v after rejected run, want %v", x.State(), ExecNotStarted)
	}
}

func TestExecutorTerminate(t *testing.T) {
	script := writeScript(t, `
echo "/run/beamOn 100"
exec sleep 30
`)

	x := NewExecutor(script, nil)

	type outcome struct {
		result *ExecResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := x.Run(context.Background(), "run.mac", t.TempDir(), nil, nil)
		done <- outcome{r, err}
	}()

	deadline := time.Now().Add(5 * time.Second)
	for x.State() != ExecRunning {
		if time.Now().After(deadline) {
			t.Fatalf("state = %v, never reached %v", x.State(), ExecRunning)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := x.Terminate(); err != nil {
		t.Fatalf("Terminate: %v", err)
	}

	select {
	case out := <-done:
		if out.err != nil {
			t.Fatalf("Run after Terminate: %v", out.err)
		}
		if out.result.ReturnCode != -1 {
			t.Errorf("return code = %d, want -1", out.result.ReturnCode)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run did not stop after Terminate")
	}
	if x.State() != ExecTerminated {
		t.Errorf("state = %v, want %v", x.State(), ExecTerminated)
	}

	// Terminate on an already-finished run is a no-op.
	if err := x.Terminate(); err != nil {
		t.Errorf("second Terminate: %v", err)
	}
}

func TestExecutorRun_EnvironmentPassedToProcess(t *testing.T) {
	data := t.TempDir()
	if err := os.MkdirAll(filepath.Join(data, "G4EMLOW8.5"), 0o755); err != nil {
		t.Fatal(err)
	}

	script := writeScript(t, `
if [ -n "$G4LEDATA" ]; then
  echo ">>> Event 0"
fi
exit 0
`)

	env := &Environment{DataPath: data}
	result, err := NewExecutor(script, env).Run(context.Background(), "run.mac", t.TempDir(), nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.EventsCompleted != 1 {
		t.Error("G4LEDATA not visible to the child process")
	}
}

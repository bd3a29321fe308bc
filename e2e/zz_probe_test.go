package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/brahimariani/geant4-api/internal/bus"
	"github.com/brahimariani/geant4-api/internal/engine"
	"github.com/brahimariani/geant4-api/internal/handler"
	"github.com/brahimariani/geant4-api/internal/middleware"
	"github.com/brahimariani/geant4-api/internal/model"
	"github.com/brahimariani/geant4-api/internal/results"
	"github.com/brahimariani/geant4-api/internal/store"
	ws "github.com/brahimariani/geant4-api/internal/websocket"
)

type probeEnv struct {
	ta       *testApp
	bus      *bus.Bus
	eng      *engine.Engine
	direct   *engine.DirectDispatcher
	simStore *store.SourceStore
}

func buildProbeEnv(t *testing.T) *probeEnv {
	t.Helper()

	validate := validator.New()
	eventBus := bus.New()

	resultsPath := t.TempDir()
	collector, err := results.NewCollector(resultsPath)
	if err != nil {
		t.Fatalf("failed to prepare results directory: %v", err)
	}

	eng := engine.New(engine.Config{
		ResultsPath: resultsPath,
		WorkPath:    t.TempDir(),
		BatchDelay:  20 * time.Millisecond,
	}, eventBus, collector)

	direct := engine.NewDirectDispatcher(4)
	direct.Bind(eng)
	eng.SetDispatcher(direct)
	t.Cleanup(direct.Wait)

	geometryStore := store.NewGeometryStore()
	physicsStore := store.NewPhysicsStore()
	sourceStore := store.NewSourceStore()
	manager := ws.NewManager(eng, eventBus)
	simulationHandler := handler.NewSimulationHandler(eng, geometryStore, physicsStore, sourceStore, validate)
	eventHandler := handler.NewEventHandler(eventBus, manager)
	rateLimiter := middleware.NewRateLimiter(nil)

	app := fiber.New(fiber.Config{ErrorHandler: testErrorHandler})
	api := app.Group("/api/v1")
	simulations := api.Group("/simulations")
	simulations.Post("/", rateLimiter.CreateLimit(10000), simulationHandler.Create)
	simulations.Get("/:id", simulationHandler.Get)
	simulations.Post("/:id/start", rateLimiter.ControlLimit(10000), simulationHandler.Start)
	events := api.Group("/events")
	events.Get("/:id/history", eventHandler.History)

	ta := &testApp{app: app, direct: direct}
	return &probeEnv{ta: ta, bus: eventBus, eng: eng, direct: direct}
}

func (p *probeEnv) dump(t *testing.T, label, id string) int {
	t.Helper()
	hist := p.bus.History(id, "", 0)
	types := make([]string, 0, len(hist))
	for _, ev := range hist {
		types = append(types, string(ev.Type))
	}
	t.Logf("%s: count=%d types=%v", label, len(hist), types)
	return len(hist)
}

// V1: HTTP create + HTTP start, NO polling, wait via dispatcher.
func TestProbeV1_HTTPStartNoPolling(t *testing.T) {
	p := buildProbeEnv(t)
	id := createSimulation(t, p.ta, simulationBody("v1", 200, 100))
	startSimulation(t, p.ta, id)
	p.direct.Wait()
	p.dump(t, "V1 http-create+http-start+no-poll", id)
}

// V2: direct create + direct start + HTTP status polling.
func TestProbeV2_DirectStartHTTPPolling(t *testing.T) {
	p := buildProbeEnv(t)
	job := p.eng.Create(simpleConfig("v2"), nil, nil, nil)
	if err := p.eng.Start(context.Background(), job.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForStatus(t, p.ta, job.ID, "completed")
	waitForResultPath(t, p.ta, job.ID)
	p.direct.Wait()
	p.dump(t, "V2 direct-start+http-poll", job.ID)
}

// V3: HTTP create + direct start, no polling.
func TestProbeV3_HTTPCreateDirectStart(t *testing.T) {
	p := buildProbeEnv(t)
	id := createSimulation(t, p.ta, simulationBody("v3", 200, 100))
	if err := p.eng.Start(context.Background(), id); err != nil {
		t.Fatalf("Start: %v", err)
	}
	p.direct.Wait()
	p.dump(t, "V3 http-create+direct-start", id)
}

// V4: direct create + HTTP start, no polling.
func TestProbeV4_DirectCreateHTTPStart(t *testing.T) {
	p := buildProbeEnv(t)
	job := p.eng.Create(simpleConfig("v4"), nil, nil, nil)
	startSimulation(t, p.ta, job.ID)
	p.direct.Wait()
	p.dump(t, "V4 direct-create+http-start", job.ID)
}

// V5: repeat V4 a few times for flakiness signal.
func TestProbeV5_Repeat(t *testing.T) {
	for i := 0; i < 5; i++ {
		p := buildProbeEnv(t)
		id := createSimulation(t, p.ta, simulationBody("v5", 200, 100))
		startSimulation(t, p.ta, id)
		p.direct.Wait()
		p.dump(t, "V5 run", id)
	}
}

func simpleConfig(name string) model.SimulationConfig {
	return model.SimulationConfig{Name: name, NumEvents: 200, OutputEveryNEvents: 100}
}

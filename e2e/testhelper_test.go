package e2e

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
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

const testJWTSecret = "test-secret-for-e2e"

// testApp holds the wired application under test.
type testApp struct {
	app    *fiber.App
	auth   *middleware.AuthMiddleware
	direct *engine.DirectDispatcher
}

// setupApp creates a Fiber app wired like main.go without Redis: simulations
// run in-process through the direct dispatcher and authentication is
// disabled, matching the default lab deployment.
func setupApp(t *testing.T) *testApp {
	return buildApp(t, false)
}

// setupAuthApp is setupApp with bearer token authentication enabled.
func setupAuthApp(t *testing.T) *testApp {
	return buildApp(t, true)
}

func buildApp(t *testing.T, authEnabled bool) *testApp {
	t.Helper()

	validate := validator.New()
	eventBus := bus.New()

	resultsPath := t.TempDir()
	collector, err := results.NewCollector(resultsPath)
	if err != nil {
		t.Fatalf("failed to prepare results directory: %v", err)
	}

	// The batch delay is short enough that runs finish within a polling
	// test, yet long enough that pause and cancel can land mid-run.
	eng := engine.New(engine.Config{
		ResultsPath: resultsPath,
		WorkPath:    t.TempDir(),
		BatchDelay:  20 * time.Millisecond,
	}, eventBus, collector)

	direct := engine.NewDirectDispatcher(4)
	direct.Bind(eng)
	eng.SetDispatcher(direct)

	// In-flight runs must drain before the temp dirs are removed.
	t.Cleanup(direct.Wait)

	geometryStore := store.NewGeometryStore()
	physicsStore := store.NewPhysicsStore()
	sourceStore := store.NewSourceStore()

	manager := ws.NewManager(eng, eventBus)

	simulationHandler := handler.NewSimulationHandler(eng, geometryStore, physicsStore, sourceStore, validate)
	geometryHandler := handler.NewGeometryHandler(geometryStore, validate)
	physicsHandler := handler.NewPhysicsHandler(physicsStore, validate)
	sourceHandler := handler.NewSourceHandler(sourceStore, validate)
	engineHandler := handler.NewEngineHandler(eng, validate)
	resultsHandler := handler.NewResultsHandler(eng, collector)
	eventHandler := handler.NewEventHandler(eventBus, manager)

	authMiddleware := middleware.NewAuthMiddleware(authEnabled, testJWTSecret, 1)
	rateLimiter := middleware.NewRateLimiter(nil) // no Redis: every request allowed

	app := fiber.New(fiber.Config{
		ErrorHandler: testErrorHandler,
		BodyLimit:    50 * 1024 * 1024,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "geant4-api",
			"time":    time.Now().UTC(),
		})
	})

	api := app.Group("/api/v1", authMiddleware.Authenticate())

	simulations := api.Group("/simulations")
	simulations.Get("/", simulationHandler.List)
	simulations.Post("/", rateLimiter.CreateLimit(10000), simulationHandler.Create)
	simulations.Post("/quick-start/:template", rateLimiter.CreateLimit(10000), simulationHandler.QuickStart)
	simulations.Get("/:id", simulationHandler.Get)
	simulations.Delete("/:id", simulationHandler.Delete)
	simulations.Post("/:id/start", rateLimiter.ControlLimit(10000), simulationHandler.Start)
	simulations.Post("/:id/pause", rateLimiter.ControlLimit(10000), simulationHandler.Pause)
	simulations.Post("/:id/resume", rateLimiter.ControlLimit(10000), simulationHandler.Resume)
	simulations.Post("/:id/cancel", rateLimiter.ControlLimit(10000), simulationHandler.Cancel)
	simulations.Get("/:id/progress", simulationHandler.Progress)

	geometries := api.Group("/geometries")
	geometries.Get("/", geometryHandler.List)
	geometries.Get("/templates", geometryHandler.Templates)
	geometries.Get("/templates/:name", geometryHandler.Template)
	geometries.Get("/materials", geometryHandler.Materials)
	geometries.Post("/", rateLimiter.CreateLimit(10000), geometryHandler.Create)
	geometries.Post("/validate", geometryHandler.Validate)
	geometries.Get("/:id", geometryHandler.Get)
	geometries.Delete("/:id", geometryHandler.Delete)
	geometries.Post("/:id/validate", geometryHandler.ValidateSaved)
	geometries.Get("/:id/gdml", geometryHandler.ExportGDML)
	geometries.Post("/:id/copy", geometryHandler.Copy)

	physics := api.Group("/physics")
	physics.Get("/", physicsHandler.List)
	physics.Get("/templates", physicsHandler.Templates)
	physics.Get("/templates/:name", physicsHandler.Template)
	physics.Get("/physics-lists", physicsHandler.PhysicsLists)
	physics.Get("/physics-lists/:name", physicsHandler.PhysicsListInfo)
	physics.Get("/em-options", physicsHandler.EMOptions)
	physics.Post("/recommend", physicsHandler.Recommend)
	physics.Post("/", rateLimiter.CreateLimit(10000), physicsHandler.Create)
	physics.Post("/validate", physicsHandler.Validate)
	physics.Get("/:id", physicsHandler.Get)
	physics.Delete("/:id", physicsHandler.Delete)
	physics.Post("/:id/validate", physicsHandler.ValidateSaved)
	physics.Get("/:id/macro", physicsHandler.Macro)

	sources := api.Group("/sources")
	sources.Get("/", sourceHandler.List)
	sources.Get("/templates", sourceHandler.Templates)
	sources.Get("/templates/:name", sourceHandler.Template)
	sources.Get("/particles", sourceHandler.Particles)
	sources.Get("/particles/:name", sourceHandler.ParticleInfo)
	sources.Get("/energy-distributions", sourceHandler.EnergyDistributions)
	sources.Get("/angular-distributions", sourceHandler.AngularDistributions)
	sources.Get("/position-distributions", sourceHandler.PositionDistributions)
	sources.Post("/", rateLimiter.CreateLimit(10000), sourceHandler.Create)
	sources.Post("/validate", sourceHandler.Validate)
	sources.Get("/:id", sourceHandler.Get)
	sources.Delete("/:id", sourceHandler.Delete)
	sources.Post("/:id/validate", sourceHandler.ValidateSaved)
	sources.Get("/:id/gps", sourceHandler.GPS)

	geant4 := api.Group("/geant4")
	geant4.Get("/status", engineHandler.Status)
	geant4.Post("/configure", engineHandler.Configure)
	geant4.Get("/verify", engineHandler.Verify)
	geant4.Get("/environment", engineHandler.Environment)
	geant4.Get("/build-instructions", engineHandler.BuildInstructions)

	resultsGroup := api.Group("/results")
	resultsGroup.Get("/", resultsHandler.List)
	resultsGroup.Get("/:id", resultsHandler.Get)
	resultsGroup.Delete("/:id", resultsHandler.Delete)
	resultsGroup.Get("/:id/summary", resultsHandler.Summary)
	resultsGroup.Get("/:id/detectors", resultsHandler.Detectors)
	resultsGroup.Get("/:id/hits", resultsHandler.Hits)
	resultsGroup.Get("/:id/analysis", resultsHandler.Analysis)
	resultsGroup.Get("/:id/histogram/:name", resultsHandler.Histogram)
	resultsGroup.Get("/:id/export/json", resultsHandler.ExportJSON)
	resultsGroup.Get("/:id/export/csv", resultsHandler.ExportCSV)
	resultsGroup.Get("/:id/live", resultsHandler.Live)

	events := api.Group("/events")
	events.Get("/:id/history", eventHandler.History)
	events.Delete("/:id/history", eventHandler.ClearHistory)

	app.Get("/ws/connections", eventHandler.Connections)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/simulations/:id", websocket.New(func(c *websocket.Conn) {
		opts := model.StreamOptions{
			IncludeHits:         c.Query("include_hits") == "true",
			IncludeTrajectories: c.Query("include_trajectories") == "true",
		}
		manager.HandleSimulation(c, c.Params("id"), opts)
	}))

	app.Get("/ws/all", websocket.New(func(c *websocket.Conn) {
		manager.HandleMonitor(c)
	}))

	return &testApp{app: app, auth: authMiddleware, direct: direct}
}

// testErrorHandler matches the error handler in main.go.
func testErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}

// doRequest performs an HTTP request against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs a request with a signed bearer token.
func doAuthRequest(t *testing.T, ta *testApp, method, path, body string) (*http.Response, error) {
	t.Helper()
	token, err := ta.auth.GenerateToken("test-user-123", "test@example.com")
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return doRequest(ta.app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// parseJSONList parses the response body into a slice.
func parseJSONList(t *testing.T, resp *http.Response) []interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result []interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON list: %v\nbody: %s", err, body)
	}
	return result
}

// contains reports whether s contains substr.
func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// assertErrorCode checks the error envelope code and returns the envelope.
func assertErrorCode(t *testing.T, resp *http.Response, code string) map[string]interface{} {
	t.Helper()
	result := parseJSON(t, resp)
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error envelope, got %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %s, got %v", code, errObj["code"])
	}
	return errObj
}

// simulationBody builds a minimal create request with inline run parameters.
func simulationBody(name string, numEvents, batch int) string {
	return fmt.Sprintf(`{
		"simulation": {
			"name": "%s",
			"num_events": %d,
			"output_every_n_events": %d
		}
	}`, name, numEvents, batch)
}

// createSimulation creates a job and returns its id.
func createSimulation(t *testing.T, ta *testApp, body string) string {
	t.Helper()
	resp, err := doRequest(ta.app, http.MethodPost, "/api/v1/simulations", body, nil)
	if err != nil {
		t.Fatalf("create request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusCreated)
	job := parseJSON(t, resp)
	id, ok := job["id"].(string)
	if !ok || id == "" {
		t.Fatalf("expected job id in response, got %v", job)
	}
	return id
}

// startSimulation issues the start control call.
func startSimulation(t *testing.T, ta *testApp, id string) {
	t.Helper()
	resp, err := doRequest(ta.app, http.MethodPost, "/api/v1/simulations/"+id+"/start", "", nil)
	if err != nil {
		t.Fatalf("start request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	readBody(t, resp)
}

// waitForStatus polls the job until it reaches the wanted status. It fails
// fast when a different terminal status shows up first.
func waitForStatus(t *testing.T, ta *testApp, id, want string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	var last interface{}
	for time.Now().Before(deadline) {
		resp, err := doRequest(ta.app, http.MethodGet, "/api/v1/simulations/"+id, "", nil)
		if err != nil {
			t.Fatalf("get simulation failed: %v", err)
		}
		job := parseJSON(t, resp)
		last = job["status"]
		status, _ := job["status"].(string)
		if status == want {
			return job
		}
		if model.SimulationStatus(status).Terminal() {
			t.Fatalf("simulation %s reached terminal status %q while waiting for %q", id, status, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("simulation %s never reached status %q, last seen %v", id, want, last)
	return nil
}

// waitForResultPath polls the job until its results are persisted. The
// status flips to completed just before the results document is written, so
// readers that need the document wait for the path, not the status.
func waitForResultPath(t *testing.T, ta *testApp, id string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := doRequest(ta.app, http.MethodGet, "/api/v1/simulations/"+id, "", nil)
		if err != nil {
			t.Fatalf("get simulation failed: %v", err)
		}
		job := parseJSON(t, resp)
		if path, _ := job["result_path"].(string); path != "" {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("simulation %s never recorded a result path", id)
	return nil
}

// runToCompletion creates, starts and waits out a short simulated run,
// including the persistence of its results.
func runToCompletion(t *testing.T, ta *testApp, name string, numEvents int) string {
	t.Helper()
	id := createSimulation(t, ta, simulationBody(name, numEvents, numEvents/2))
	startSimulation(t, ta, id)
	waitForStatus(t, ta, id, "completed")
	waitForResultPath(t, ta, id)
	return id
}

package handler

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/brahimariani/geant4-api/internal/engine"
	"github.com/brahimariani/geant4-api/internal/model"
	"github.com/brahimariani/geant4-api/internal/store"
	"github.com/brahimariani/geant4-api/pkg/response"
)

type SimulationHandler struct {
	engine     *engine.Engine
	geometries *store.GeometryStore
	physics    *store.PhysicsStore
	sources    *store.SourceStore
	validator  *validator.Validate
}

func NewSimulationHandler(eng *engine.Engine, geo *store.GeometryStore, phys *store.PhysicsStore, src *store.SourceStore, v *validator.Validate) *SimulationHandler {
	return &SimulationHandler{
		engine:     eng,
		geometries: geo,
		physics:    phys,
		sources:    src,
		validator:  v,
	}
}

// List handles GET /api/v1/simulations
func (h *SimulationHandler) List(c *fiber.Ctx) error {
	status := model.SimulationStatus(c.Query("status"))
	return response.OK(c, h.engine.List(status))
}

// Create handles POST /api/v1/simulations. Configurations come inline or by
// the name of a saved one; inline wins when both are given.
func (h *SimulationHandler) Create(c *fiber.Ctx) error {
	var req model.CreateSimulationRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	geometry := req.Geometry
	if geometry == nil && req.GeometryID != "" {
		geo, ok := h.geometries.Get(req.GeometryID)
		if !ok {
			return response.NotFound(c, fmt.Sprintf("Geometry '%s' not found", req.GeometryID))
		}
		geometry = &geo
	}

	physics := req.Physics
	if physics == nil && req.PhysicsID != "" {
		phys, ok := h.physics.Get(req.PhysicsID)
		if !ok {
			return response.NotFound(c, fmt.Sprintf("Physics config '%s' not found", req.PhysicsID))
		}
		physics = &phys
	}

	source := req.Source
	if source == nil && req.SourceID != "" {
		src, ok := h.sources.Get(req.SourceID)
		if !ok {
			return response.NotFound(c, fmt.Sprintf("Source '%s' not found", req.SourceID))
		}
		source = &src
	}

	job := h.engine.Create(req.Simulation, geometry, physics, source)
	return response.Created(c, job)
}

// QuickStart handles POST /api/v1/simulations/quick-start/:template. It builds
// a job from a geometry template with standard physics and a 1 MeV gamma
// source.
func (h *SimulationHandler) QuickStart(c *fiber.Ctx) error {
	templateName := c.Params("template")
	numEvents := c.QueryInt("num_events", 1000)
	if numEvents < 1 {
		return response.ValidationError(c, "num_events must be positive", nil)
	}

	geometry, ok := store.GeometryTemplate(templateName)
	if !ok {
		available := store.GeometryTemplateNames()
		return response.NotFound(c, fmt.Sprintf("Template '%s' not found. Available: %v", templateName, available))
	}
	physics, _ := store.PhysicsTemplate("standard")
	source, _ := store.SourceTemplate("gamma_1mev")

	batch := numEvents / 10
	if batch < 1 {
		batch = 1
	}
	cfg := model.SimulationConfig{
		Name:               templateName + "_quick",
		Description:        fmt.Sprintf("Quick-start simulation using %s template", templateName),
		NumEvents:          numEvents,
		OutputEveryNEvents: batch,
	}

	job := h.engine.Create(cfg, &geometry, &physics, &source)

	return response.Created(c, fiber.Map{
		"simulation_id": job.ID,
		"name":          job.Name,
		"status":        job.Status,
		"message":       fmt.Sprintf("Created quick-start simulation. Use POST /simulations/%s/start to begin.", job.ID),
		"websocket_url": fmt.Sprintf("/ws/simulations/%s", job.ID),
	})
}

// Get handles GET /api/v1/simulations/:id
func (h *SimulationHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")
	job, err := h.engine.Get(id)
	if err != nil {
		return response.NotFound(c, fmt.Sprintf("Simulation '%s' not found", id))
	}
	return response.OK(c, job)
}

// Start handles POST /api/v1/simulations/:id/start
func (h *SimulationHandler) Start(c *fiber.Ctx) error {
	id := c.Params("id")
	job, err := h.engine.Get(id)
	if err != nil {
		return response.NotFound(c, fmt.Sprintf("Simulation '%s' not found", id))
	}

	if err := h.engine.Start(c.Context(), id); err != nil {
		if errors.Is(err, engine.ErrInvalidTransition) || errors.Is(err, engine.ErrRunActive) {
			return response.SimulationError(c, fmt.Sprintf("Cannot start simulation in status '%s'", job.Status))
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, fiber.Map{
		"message":       fmt.Sprintf("Simulation %s started", id),
		"status":        "starting",
		"websocket_url": fmt.Sprintf("/ws/simulations/%s", id),
	})
}

// Pause handles POST /api/v1/simulations/:id/pause
func (h *SimulationHandler) Pause(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.engine.Pause(c.Context(), id); err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			return response.NotFound(c, fmt.Sprintf("Simulation '%s' not found", id))
		}
		return response.SimulationError(c, "Could not pause simulation")
	}
	return response.OK(c, fiber.Map{"message": "Simulation paused", "status": "paused"})
}

// Resume handles POST /api/v1/simulations/:id/resume
func (h *SimulationHandler) Resume(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.engine.Resume(c.Context(), id); err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			return response.NotFound(c, fmt.Sprintf("Simulation '%s' not found", id))
		}
		return response.SimulationError(c, "Could not resume simulation")
	}
	return response.OK(c, fiber.Map{"message": "Simulation resumed", "status": "running"})
}

// Cancel handles POST /api/v1/simulations/:id/cancel
func (h *SimulationHandler) Cancel(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.engine.Cancel(c.Context(), id); err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			return response.NotFound(c, fmt.Sprintf("Simulation '%s' not found", id))
		}
		return response.SimulationError(c, "Could not cancel simulation")
	}
	return response.OK(c, fiber.Map{"message": "Simulation cancelled", "status": "cancelled"})
}

// Progress handles GET /api/v1/simulations/:id/progress
func (h *SimulationHandler) Progress(c *fiber.Ctx) error {
	id := c.Params("id")
	progress, err := h.engine.Progress(id)
	if err != nil {
		return response.NotFound(c, fmt.Sprintf("Simulation '%s' not found", id))
	}
	return response.OK(c, progress)
}

// Delete handles DELETE /api/v1/simulations/:id
func (h *SimulationHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.engine.Delete(c.Context(), id); err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			return response.NotFound(c, fmt.Sprintf("Simulation '%s' not found", id))
		}
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, fiber.Map{"message": fmt.Sprintf("Simulation %s deleted", id)})
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}

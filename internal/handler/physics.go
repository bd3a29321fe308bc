package handler

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/brahimariani/geant4-api/internal/geant4"
	"github.com/brahimariani/geant4-api/internal/model"
	"github.com/brahimariani/geant4-api/internal/store"
	"github.com/brahimariani/geant4-api/pkg/response"
)

type PhysicsHandler struct {
	store     *store.PhysicsStore
	validator *validator.Validate
}

func NewPhysicsHandler(s *store.PhysicsStore, v *validator.Validate) *PhysicsHandler {
	return &PhysicsHandler{store: s, validator: v}
}

// List handles GET /api/v1/physics
func (h *PhysicsHandler) List(c *fiber.Ctx) error {
	return response.OK(c, h.store.List())
}

// Templates handles GET /api/v1/physics/templates
func (h *PhysicsHandler) Templates(c *fiber.Ctx) error {
	templates := store.PhysicsTemplates()
	out := make(fiber.Map, len(templates))
	for name, cfg := range templates {
		out[name] = fiber.Map{
			"physics_list": cfg.PhysicsList,
			"em_physics":   cfg.EMPhysics,
			"default_cut":  cfg.DefaultCut,
		}
	}
	return response.OK(c, out)
}

// Template handles GET /api/v1/physics/templates/:name
func (h *PhysicsHandler) Template(c *fiber.Ctx) error {
	name := c.Params("name")
	cfg, ok := store.PhysicsTemplate(name)
	if !ok {
		return response.NotFound(c, fmt.Sprintf("Template '%s' not found", name))
	}
	return response.OK(c, cfg)
}

// PhysicsLists handles GET /api/v1/physics/physics-lists
func (h *PhysicsHandler) PhysicsLists(c *fiber.Ctx) error {
	infos := make([]model.PhysicsListInfo, 0, len(model.ValidPhysicsLists))
	for _, pl := range model.ValidPhysicsLists {
		infos = append(infos, store.PhysicsListInfoFor(pl))
	}
	return response.OK(c, infos)
}

// PhysicsListInfo handles GET /api/v1/physics/physics-lists/:name
func (h *PhysicsHandler) PhysicsListInfo(c *fiber.Ctx) error {
	name := c.Params("name")
	for _, pl := range model.ValidPhysicsLists {
		if string(pl) == name {
			return response.OK(c, store.PhysicsListInfoFor(pl))
		}
	}
	return response.NotFound(c, fmt.Sprintf("Physics list '%s' not found", name))
}

// EMOptions handles GET /api/v1/physics/em-options
func (h *PhysicsHandler) EMOptions(c *fiber.Ctx) error {
	return response.OK(c, store.EMOptions())
}

// Recommend handles POST /api/v1/physics/recommend
func (h *PhysicsHandler) Recommend(c *fiber.Ctx) error {
	var req model.RecommendPhysicsRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	recommended := store.RecommendPhysicsList(req.Application, req.EnergyMeV, req.Particles)

	return response.OK(c, fiber.Map{
		"recommended": recommended,
		"info":        store.PhysicsListInfoFor(recommended),
		"reason":      fmt.Sprintf("Best suited for %s with %g MeV %s", req.Application, req.EnergyMeV, strings.Join(req.Particles, ", ")),
	})
}

// Create handles POST /api/v1/physics?name=
func (h *PhysicsHandler) Create(c *fiber.Ctx) error {
	name := c.Query("name")
	if name == "" {
		return response.ValidationError(c, "name query parameter is required", nil)
	}

	var cfg model.PhysicsConfig
	if err := c.BodyParser(&cfg); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&cfg); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	validation := store.ValidatePhysics(cfg)
	if !validation.Valid {
		return response.ValidationError(c, "Physics validation failed", fiber.Map{
			"issues":   validation.Issues,
			"warnings": validation.Warnings,
		})
	}

	id := h.store.Create(name, cfg)

	var warnings []string
	if len(validation.Warnings) > 0 {
		warnings = validation.Warnings
	}
	return response.Created(c, fiber.Map{
		"physics_id": id,
		"message":    fmt.Sprintf("Physics config '%s' created", id),
		"warnings":   warnings,
	})
}

// Get handles GET /api/v1/physics/:id
func (h *PhysicsHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")
	cfg, ok := h.store.Get(id)
	if !ok {
		return response.NotFound(c, fmt.Sprintf("Physics config '%s' not found", id))
	}
	return response.OK(c, cfg)
}

// Delete handles DELETE /api/v1/physics/:id
func (h *PhysicsHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if !h.store.Delete(id) {
		return response.NotFound(c, fmt.Sprintf("Physics config '%s' not found", id))
	}
	return response.OK(c, fiber.Map{"message": fmt.Sprintf("Physics config '%s' deleted", id)})
}

// ValidateSaved handles POST /api/v1/physics/:id/validate
func (h *PhysicsHandler) ValidateSaved(c *fiber.Ctx) error {
	id := c.Params("id")
	cfg, ok := h.store.Get(id)
	if !ok {
		return response.NotFound(c, fmt.Sprintf("Physics config '%s' not found", id))
	}
	return response.OK(c, store.ValidatePhysics(cfg))
}

// Validate handles POST /api/v1/physics/validate
func (h *PhysicsHandler) Validate(c *fiber.Ctx) error {
	var cfg model.PhysicsConfig
	if err := c.BodyParser(&cfg); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	return response.OK(c, store.ValidatePhysics(cfg))
}

// Macro handles GET /api/v1/physics/:id/macro
func (h *PhysicsHandler) Macro(c *fiber.Ctx) error {
	id := c.Params("id")
	cfg, ok := h.store.Get(id)
	if !ok {
		return response.NotFound(c, fmt.Sprintf("Physics config '%s' not found", id))
	}

	return response.OK(c, fiber.Map{
		"physics_id":     id,
		"macro_commands": geant4.PhysicsMacroCommands(&cfg),
	})
}

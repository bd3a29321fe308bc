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

type SourceHandler struct {
	store     *store.SourceStore
	validator *validator.Validate
}

func NewSourceHandler(s *store.SourceStore, v *validator.Validate) *SourceHandler {
	return &SourceHandler{store: s, validator: v}
}

// List handles GET /api/v1/sources
func (h *SourceHandler) List(c *fiber.Ctx) error {
	return response.OK(c, h.store.List())
}

// Templates handles GET /api/v1/sources/templates
func (h *SourceHandler) Templates(c *fiber.Ctx) error {
	templates := store.SourceTemplates()
	out := make(fiber.Map, len(templates))
	for name, src := range templates {
		out[name] = fiber.Map{
			"particle":     src.Particle,
			"energy":       src.Energy.Value,
			"energy_unit":  "MeV",
			"distribution": src.Energy.Distribution,
		}
	}
	return response.OK(c, out)
}

// Template handles GET /api/v1/sources/templates/:name
func (h *SourceHandler) Template(c *fiber.Ctx) error {
	name := c.Params("name")
	src, ok := store.SourceTemplate(name)
	if !ok {
		return response.NotFound(c, fmt.Sprintf("Template '%s' not found", name))
	}
	return response.OK(c, src)
}

// Particles handles GET /api/v1/sources/particles
func (h *SourceHandler) Particles(c *fiber.Ctx) error {
	return response.OK(c, store.ParticleCatalogue())
}

// ParticleInfo handles GET /api/v1/sources/particles/:name. Lookup also
// matches the catalogue name, so both "e-" and "electron" resolve.
func (h *SourceHandler) ParticleInfo(c *fiber.Ctx) error {
	name := c.Params("name")
	info := store.ParticleInfoFor(name)
	if info.PDG == nil {
		for _, entry := range store.ParticleCatalogue() {
			if string(entry.Value) == name || strings.EqualFold(entry.Name, name) {
				info = entry.Info
				break
			}
		}
	}
	return response.OK(c, info)
}

// EnergyDistributions handles GET /api/v1/sources/energy-distributions
func (h *SourceHandler) EnergyDistributions(c *fiber.Ctx) error {
	return response.OK(c, store.EnergyDistributions())
}

// AngularDistributions handles GET /api/v1/sources/angular-distributions
func (h *SourceHandler) AngularDistributions(c *fiber.Ctx) error {
	return response.OK(c, store.AngularDistributions())
}

// PositionDistributions handles GET /api/v1/sources/position-distributions
func (h *SourceHandler) PositionDistributions(c *fiber.Ctx) error {
	return response.OK(c, store.PositionDistributions())
}

// Create handles POST /api/v1/sources
func (h *SourceHandler) Create(c *fiber.Ctx) error {
	var src model.ParticleSource
	if err := c.BodyParser(&src); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&src); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	validation := store.ValidateSource(src)
	if !validation.Valid {
		return response.ValidationError(c, "Source validation failed", fiber.Map{
			"issues":   validation.Issues,
			"warnings": validation.Warnings,
		})
	}

	id := h.store.Create(src)

	var warnings []string
	if len(validation.Warnings) > 0 {
		warnings = validation.Warnings
	}
	return response.Created(c, fiber.Map{
		"source_id": id,
		"message":   fmt.Sprintf("Source '%s' created", id),
		"warnings":  warnings,
	})
}

// Get handles GET /api/v1/sources/:id
func (h *SourceHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")
	src, ok := h.store.Get(id)
	if !ok {
		return response.NotFound(c, fmt.Sprintf("Source '%s' not found", id))
	}
	return response.OK(c, src)
}

// Delete handles DELETE /api/v1/sources/:id
func (h *SourceHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if !h.store.Delete(id) {
		return response.NotFound(c, fmt.Sprintf("Source '%s' not found", id))
	}
	return response.OK(c, fiber.Map{"message": fmt.Sprintf("Source '%s' deleted", id)})
}

// ValidateSaved handles POST /api/v1/sources/:id/validate
func (h *SourceHandler) ValidateSaved(c *fiber.Ctx) error {
	id := c.Params("id")
	src, ok := h.store.Get(id)
	if !ok {
		return response.NotFound(c, fmt.Sprintf("Source '%s' not found", id))
	}
	return response.OK(c, store.ValidateSource(src))
}

// Validate handles POST /api/v1/sources/validate
func (h *SourceHandler) Validate(c *fiber.Ctx) error {
	var src model.ParticleSource
	if err := c.BodyParser(&src); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	return response.OK(c, store.ValidateSource(src))
}

// GPS handles GET /api/v1/sources/:id/gps
func (h *SourceHandler) GPS(c *fiber.Ctx) error {
	id := c.Params("id")
	src, ok := h.store.Get(id)
	if !ok {
		return response.NotFound(c, fmt.Sprintf("Source '%s' not found", id))
	}

	return response.OK(c, fiber.Map{
		"source_id":    id,
		"gps_commands": geant4.GPSCommands(&src),
	})
}

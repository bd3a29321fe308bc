package handler

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/brahimariani/geant4-api/internal/geant4"
	"github.com/brahimariani/geant4-api/internal/model"
	"github.com/brahimariani/geant4-api/internal/store"
	"github.com/brahimariani/geant4-api/pkg/response"
)

type GeometryHandler struct {
	store     *store.GeometryStore
	validator *validator.Validate
}

func NewGeometryHandler(s *store.GeometryStore, v *validator.Validate) *GeometryHandler {
	return &GeometryHandler{store: s, validator: v}
}

// List handles GET /api/v1/geometries
func (h *GeometryHandler) List(c *fiber.Ctx) error {
	return response.OK(c, h.store.List())
}

// Templates handles GET /api/v1/geometries/templates
func (h *GeometryHandler) Templates(c *fiber.Ctx) error {
	templates := store.GeometryTemplates()
	out := make(fiber.Map, len(templates))
	for name, geo := range templates {
		out[name] = fiber.Map{
			"name":        geo.Name,
			"description": geo.Description,
			"volumes":     len(geo.Volumes),
		}
	}
	return response.OK(c, out)
}

// Template handles GET /api/v1/geometries/templates/:name
func (h *GeometryHandler) Template(c *fiber.Ctx) error {
	name := c.Params("name")
	geo, ok := store.GeometryTemplate(name)
	if !ok {
		return response.NotFound(c, fmt.Sprintf("Template '%s' not found", name))
	}
	return response.OK(c, geo)
}

// Materials handles GET /api/v1/geometries/materials
func (h *GeometryHandler) Materials(c *fiber.Ctx) error {
	return response.OK(c, store.Materials())
}

// Create handles POST /api/v1/geometries. The geometry is validated first and
// rejected when it has issues; warnings are returned alongside the created
// id.
func (h *GeometryHandler) Create(c *fiber.Ctx) error {
	var geo model.DetectorGeometry
	if err := c.BodyParser(&geo); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&geo); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	validation := store.ValidateGeometry(geo)
	if !validation.Valid {
		return response.ValidationError(c, "Geometry validation failed", fiber.Map{
			"issues":   validation.Issues,
			"warnings": validation.Warnings,
		})
	}

	id := h.store.Create(geo)

	var warnings []string
	if len(validation.Warnings) > 0 {
		warnings = validation.Warnings
	}
	return response.Created(c, fiber.Map{
		"geometry_id": id,
		"message":     fmt.Sprintf("Geometry '%s' created", id),
		"warnings":    warnings,
	})
}

// Get handles GET /api/v1/geometries/:id
func (h *GeometryHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")
	geo, ok := h.store.Get(id)
	if !ok {
		return response.NotFound(c, fmt.Sprintf("Geometry '%s' not found", id))
	}
	return response.OK(c, geo)
}

// Delete handles DELETE /api/v1/geometries/:id
func (h *GeometryHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if !h.store.Delete(id) {
		return response.NotFound(c, fmt.Sprintf("Geometry '%s' not found", id))
	}
	return response.OK(c, fiber.Map{"message": fmt.Sprintf("Geometry '%s' deleted", id)})
}

// ValidateSaved handles POST /api/v1/geometries/:id/validate
func (h *GeometryHandler) ValidateSaved(c *fiber.Ctx) error {
	id := c.Params("id")
	geo, ok := h.store.Get(id)
	if !ok {
		return response.NotFound(c, fmt.Sprintf("Geometry '%s' not found", id))
	}
	return response.OK(c, store.ValidateGeometry(geo))
}

// Validate handles POST /api/v1/geometries/validate
func (h *GeometryHandler) Validate(c *fiber.Ctx) error {
	var geo model.DetectorGeometry
	if err := c.BodyParser(&geo); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	return response.OK(c, store.ValidateGeometry(geo))
}

// ExportGDML handles GET /api/v1/geometries/:id/gdml
func (h *GeometryHandler) ExportGDML(c *fiber.Ctx) error {
	id := c.Params("id")
	geo, ok := h.store.Get(id)
	if !ok {
		return response.NotFound(c, fmt.Sprintf("Geometry '%s' not found", id))
	}

	content, err := geant4.GenerateGDML(&geo)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	c.Set(fiber.HeaderContentType, "application/xml")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s.gdml", id))
	return c.SendString(content)
}

// Copy handles POST /api/v1/geometries/:id/copy?new_name=
func (h *GeometryHandler) Copy(c *fiber.Ctx) error {
	id := c.Params("id")
	newName := c.Query("new_name")
	if newName == "" {
		return response.ValidationError(c, "new_name query parameter is required", nil)
	}

	geo, ok := h.store.Get(id)
	if !ok {
		return response.NotFound(c, fmt.Sprintf("Geometry '%s' not found", id))
	}

	geo.Name = newName
	newID := h.store.Create(geo)

	return response.OK(c, fiber.Map{
		"geometry_id": newID,
		"message":     fmt.Sprintf("Geometry copied to '%s'", newID),
	})
}

package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/brahimariani/geant4-api/internal/engine"
	"github.com/brahimariani/geant4-api/internal/model"
	"github.com/brahimariani/geant4-api/internal/results"
	"github.com/brahimariani/geant4-api/pkg/response"
)

// ResultsHandler serves finished simulation results and live aggregates.
// Completed jobs are answered from the engine, everything else from the
// results saved on disk.
type ResultsHandler struct {
	engine    *engine.Engine
	collector *results.Collector
}

func NewResultsHandler(e *engine.Engine, c *results.Collector) *ResultsHandler {
	return &ResultsHandler{engine: e, collector: c}
}

// List handles GET /api/v1/results
func (h *ResultsHandler) List(c *fiber.Ctx) error {
	ids := h.collector.List()
	if ids == nil {
		ids = []string{}
	}
	return response.OK(c, ids)
}

// Get handles GET /api/v1/results/:id
func (h *ResultsHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")

	// The engine answers for completed jobs it still tracks; saved results
	// cover everything that outlived the job.
	if res, err := h.engine.Results(id); err == nil {
		return response.OK(c, res)
	}

	res, err := h.collector.Load(id)
	if err != nil {
		return response.NotFound(c, fmt.Sprintf("Results for simulation '%s' not found", id))
	}
	return response.OK(c, res)
}

// Summary handles GET /api/v1/results/:id/summary
func (h *ResultsHandler) Summary(c *fiber.Ctx) error {
	id := c.Params("id")

	res, err := h.collector.Load(id)
	if err != nil {
		return response.NotFound(c, fmt.Sprintf("Results for simulation '%s' not found", id))
	}

	detectors := make([]fiber.Map, 0, len(res.DetectorSummaries))
	for _, d := range res.DetectorSummaries {
		detectors = append(detectors, fiber.Map{
			"name":                  d.Name,
			"hits":                  d.TotalHits,
			"total_energy":          d.TotalEnergyDeposit,
			"mean_energy_per_event": d.MeanEnergyPerEvent,
		})
	}

	return response.OK(c, fiber.Map{
		"simulation_id":          id,
		"simulation_name":        res.SimulationName,
		"num_events":             res.NumEvents,
		"elapsed_time":           res.ElapsedTime,
		"events_per_second":      res.EventsPerSecond,
		"total_energy_deposited": res.TotalEnergyDeposited,
		"detectors":              detectors,
		"particle_statistics":    res.ParticleStatistics,
	})
}

// Detectors handles GET /api/v1/results/:id/detectors
func (h *ResultsHandler) Detectors(c *fiber.Ctx) error {
	id := c.Params("id")

	res, err := h.collector.Load(id)
	if err != nil {
		return response.NotFound(c, fmt.Sprintf("Results for simulation '%s' not found", id))
	}

	detectors := res.DetectorSummaries
	if detectors == nil {
		detectors = []model.DetectorSummary{}
	}
	return response.OK(c, fiber.Map{
		"simulation_id": id,
		"detectors":     detectors,
	})
}

// Hits handles GET /api/v1/results/:id/hits with optional detector and
// particle filters plus offset/limit pagination.
func (h *ResultsHandler) Hits(c *fiber.Ctx) error {
	id := c.Params("id")

	res, err := h.collector.Load(id)
	if err != nil {
		return response.NotFound(c, fmt.Sprintf("Results for simulation '%s' not found", id))
	}

	if len(res.Hits) == 0 {
		return response.OK(c, fiber.Map{
			"simulation_id": id,
			"hits":          []model.HitRecord{},
			"total":         0,
		})
	}

	detector := c.Query("detector")
	particle := c.Query("particle")
	limit := c.QueryInt("limit", 1000)
	offset := c.QueryInt("offset", 0)
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}

	filtered := make([]model.HitRecord, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if detector != "" && hit.Detector != detector {
			continue
		}
		if particle != "" && hit.Particle != particle {
			continue
		}
		filtered = append(filtered, hit)
	}

	total := len(filtered)
	start := offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return response.OK(c, fiber.Map{
		"simulation_id": id,
		"hits":          filtered[start:end],
		"total":         total,
		"offset":        offset,
		"limit":         limit,
	})
}

// Analysis handles GET /api/v1/results/:id/analysis
func (h *ResultsHandler) Analysis(c *fiber.Ctx) error {
	id := c.Params("id")
	analysisType := c.Query("analysis_type", "standard")

	analysis, err := h.collector.Analyze(id, analysisType)
	if err != nil {
		return response.NotFound(c, fmt.Sprintf("Cannot generate analysis for '%s'", id))
	}
	return response.OK(c, analysis)
}

// Histogram handles GET /api/v1/results/:id/histogram/:name
func (h *ResultsHandler) Histogram(c *fiber.Ctx) error {
	id := c.Params("id")
	histName := c.Params("name")
	bins := c.QueryInt("bins", 100)

	res, err := h.collector.Load(id)
	if err != nil {
		return response.NotFound(c, fmt.Sprintf("Results for simulation '%s' not found", id))
	}

	switch {
	case histName == "energy_deposit" && len(res.Hits) > 0:
		data := make([]float64, len(res.Hits))
		for i, hit := range res.Hits {
			data[i] = hit.EnergyDeposit
		}
		hist := results.Histogram(data, "energy_deposit", "Energy Deposit Distribution", "Energy (MeV)", bins, nil)
		return response.OK(c, hist)

	case histName == "position_z" && len(res.Hits) > 0:
		data := make([]float64, len(res.Hits))
		for i, hit := range res.Hits {
			data[i] = hit.Position.Z
		}
		hist := results.Histogram(data, "position_z", "Hit Position Z Distribution", "Z Position (mm)", bins, nil)
		return response.OK(c, hist)

	default:
		return response.NotFound(c, fmt.Sprintf(
			"Histogram '%s' not available. Available: energy_deposit, position_z", histName))
	}
}

// ExportJSON handles GET /api/v1/results/:id/export/json
func (h *ResultsHandler) ExportJSON(c *fiber.Ctx) error {
	id := c.Params("id")

	res, err := h.collector.Load(id)
	if err != nil {
		return response.NotFound(c, fmt.Sprintf("Results for simulation '%s' not found", id))
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return response.ServiceError(c, "Failed to encode results")
	}

	c.Set(fiber.HeaderContentType, "application/json")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s_results.json", id))
	return c.Send(data)
}

// ExportCSV handles GET /api/v1/results/:id/export/csv
func (h *ResultsHandler) ExportCSV(c *fiber.Ctx) error {
	id := c.Params("id")

	res, err := h.collector.Load(id)
	if err != nil {
		return response.NotFound(c, fmt.Sprintf("Results for simulation '%s' not found", id))
	}

	var buf bytes.Buffer
	if err := results.WriteHitsCSV(&buf, res.Hits); err != nil {
		if errors.Is(err, results.ErrNoHits) {
			return response.ValidationError(c, "No hits data available for export", nil)
		}
		return response.ServiceError(c, "Failed to export hits")
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s_hits.csv", id))
	return c.Send(buf.Bytes())
}

// Delete handles DELETE /api/v1/results/:id
func (h *ResultsHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := h.collector.Delete(id); err != nil {
		if errors.Is(err, results.ErrNotFound) {
			return response.NotFound(c, fmt.Sprintf("Results for simulation '%s' not found", id))
		}
		return response.ServiceError(c, "Failed to delete results")
	}
	return response.OK(c, fiber.Map{
		"message": fmt.Sprintf("Results for simulation '%s' deleted", id),
	})
}

// Live handles GET /api/v1/results/:id/live. It reports aggregates for a
// simulation that is still collecting, without waiting for completion.
func (h *ResultsHandler) Live(c *fiber.Ctx) error {
	id := c.Params("id")

	stats, ok := h.collector.CurrentStats(id)
	if !ok {
		return response.NotFound(c, fmt.Sprintf(
			"No live stats for simulation '%s'. Simulation may not be running or collecting results.", id))
	}

	return response.OK(c, fiber.Map{
		"simulation_id":    id,
		"live":             true,
		"events_processed": stats.EventsProcessed,
		"total_hits":       stats.TotalHits,
		"particle_counts":  stats.ParticleCounts,
		"detectors":        stats.Detectors,
	})
}

package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/brahimariani/geant4-api/internal/bus"
	"github.com/brahimariani/geant4-api/internal/model"
	"github.com/brahimariani/geant4-api/internal/websocket"
	"github.com/brahimariani/geant4-api/pkg/response"
)

// EventHandler exposes the retained event history so late-joining observers
// can catch up on a simulation without a live stream.
type EventHandler struct {
	bus     *bus.Bus
	manager *websocket.Manager
}

func NewEventHandler(b *bus.Bus, m *websocket.Manager) *EventHandler {
	return &EventHandler{bus: b, manager: m}
}

// History handles GET /api/v1/events/:id/history
func (h *EventHandler) History(c *fiber.Ctx) error {
	id := c.Params("id")
	eventType := model.EventType(c.Query("type"))
	limit := c.QueryInt("limit", 100)

	events := h.bus.History(id, eventType, limit)
	if events == nil {
		events = []model.Event{}
	}
	return response.OK(c, fiber.Map{
		"simulation_id": id,
		"events":        events,
		"count":         len(events),
	})
}

// ClearHistory handles DELETE /api/v1/events/:id/history
func (h *EventHandler) ClearHistory(c *fiber.Ctx) error {
	id := c.Params("id")
	removed := h.bus.ClearHistory(id)
	return response.OK(c, fiber.Map{
		"message": fmt.Sprintf("Event history for simulation '%s' cleared", id),
		"removed": removed,
	})
}

// Connections handles GET /ws/connections. It combines WebSocket connection
// counts with the bus subscriber state behind them.
func (h *EventHandler) Connections(c *fiber.Ctx) error {
	stats := h.manager.Stats()
	return response.OK(c, fiber.Map{
		"active_simulations":        stats.ActiveSimulations,
		"total_connections":         stats.TotalConnections,
		"connections_by_simulation": stats.ConnectionsBySimulation,
		"bus":                       h.bus.Stats(),
	})
}

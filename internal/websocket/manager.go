package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/brahimariani/geant4-api/internal/bus"
	"github.com/brahimariani/geant4-api/internal/engine"
	"github.com/brahimariani/geant4-api/internal/model"
)

// heartbeatInterval is how long a stream may stay silent before a heartbeat
// event is written to keep the connection alive.
const heartbeatInterval = 30 * time.Second

// Manager bridges the event bus onto WebSocket connections and tracks who
// is watching which simulation.
type Manager struct {
	engine *engine.Engine
	bus    *bus.Bus

	mu sync.RWMutex
	// Live connection count per simulation id; bus.TopicAll keys the
	// all-simulations monitor stream.
	connections map[string]int
}

// NewManager creates a new connection manager.
func NewManager(eng *engine.Engine, eventBus *bus.Bus) *Manager {
	return &Manager{
		engine:      eng,
		bus:         eventBus,
		connections: make(map[string]int),
	}
}

// stream is one live connection. The write loop is the only goroutine that
// touches the connection after the opening snapshot: it interleaves bus
// events, command replies from the read loop and heartbeats.
type stream struct {
	conn      *websocket.Conn
	sub       *bus.Subscriber
	responses chan []byte
	done      chan struct{}
	opts      model.StreamOptions
}

// HandleSimulation serves one simulation's event stream until the client
// disconnects or the job reaches a terminal state.
func (m *Manager) HandleSimulation(c *websocket.Conn, simulationID string, opts model.StreamOptions) {
	job, err := m.engine.Get(simulationID)
	if err != nil {
		writeEvent(c, model.NewEvent(simulationID, model.ErrorPayload{
			Message: fmt.Sprintf("Simulation %s not found", simulationID),
		}))
		c.WriteMessage(websocket.CloseMessage, []byte{})
		return
	}

	m.track(simulationID, 1)
	defer m.track(simulationID, -1)

	sub := m.bus.Subscribe(simulationID)
	defer m.bus.Unsubscribe(sub)

	// Current state first, before any live events.
	if err := writeEvent(c, model.NewEvent(simulationID, statusSnapshot(job))); err != nil {
		return
	}

	s := &stream{
		conn:      c,
		sub:       sub,
		responses: make(chan []byte, 16),
		done:      make(chan struct{}),
		opts:      opts,
	}

	log.Printf("Stream opened for simulation %s", simulationID)
	go m.writeLoop(s, simulationID)
	m.readLoop(c, simulationID, s)

	// Closing the subscription stops the writer; wait for it before the
	// connection is torn down.
	m.bus.Unsubscribe(sub)
	<-s.done
}

// HandleMonitor serves the firehose stream of every simulation's events.
// It accepts no commands.
func (m *Manager) HandleMonitor(c *websocket.Conn) {
	m.track(bus.TopicAll, 1)
	defer m.track(bus.TopicAll, -1)

	sub := m.bus.Subscribe(bus.TopicAll)
	defer m.bus.Unsubscribe(sub)

	s := &stream{
		conn:      c,
		sub:       sub,
		responses: make(chan []byte),
		done:      make(chan struct{}),
		opts:      model.StreamOptions{IncludeHits: true, IncludeTrajectories: true},
	}

	log.Printf("Monitor stream opened")
	go m.writeLoop(s, "")

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}

	m.bus.Unsubscribe(sub)
	<-s.done
}

// Stats summarizes the live connections.
func (m *Manager) Stats() model.ConnectionStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := model.ConnectionStats{
		ActiveSimulations:       make([]string, 0, len(m.connections)),
		ConnectionsBySimulation: make(map[string]int, len(m.connections)),
	}
	for id, n := range m.connections {
		stats.TotalConnections += n
		stats.ConnectionsBySimulation[id] = n
		if id != bus.TopicAll {
			stats.ActiveSimulations = append(stats.ActiveSimulations, id)
		}
	}
	sort.Strings(stats.ActiveSimulations)
	return stats
}

func (m *Manager) track(id string, delta int) {
	m.mu.Lock()
	m.connections[id] += delta
	if m.connections[id] <= 0 {
		delete(m.connections, id)
	}
	m.mu.Unlock()
}

// writeLoop owns the connection's write side. It exits when the bus closes
// the subscription, a terminal event has been delivered, or a write fails.
func (m *Manager) writeLoop(s *stream, simulationID string) {
	defer close(s.done)

	heartbeat := time.NewTimer(heartbeatInterval)
	defer heartbeat.Stop()

	write := func(data []byte) bool {
		if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return false
		}
		resetTimer(heartbeat, heartbeatInterval)
		return true
	}

	for {
		select {
		case ev, ok := <-s.sub.C:
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if ev.Type == model.EventHit && !s.opts.IncludeHits {
				continue
			}
			data, err := json.Marshal(ev)
			if err != nil {
				log.Printf("Failed to marshal event: %v", err)
				continue
			}
			if !write(data) {
				return
			}
			if ev.Type.Terminal() {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

		case data := <-s.responses:
			if !write(data) {
				return
			}

		case <-heartbeat.C:
			data, err := json.Marshal(model.NewEvent(simulationID, model.HeartbeatPayload{}))
			if err != nil {
				heartbeat.Reset(heartbeatInterval)
				continue
			}
			if !write(data) {
				return
			}
		}
	}
}

// readLoop handles client control messages until the connection drops.
func (m *Manager) readLoop(c *websocket.Conn, simulationID string, s *stream) {
	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error on simulation %s: %v", simulationID, err)
			}
			return
		}

		var cmd model.WSCommand
		if err := json.Unmarshal(raw, &cmd); err != nil || cmd.Command == "" {
			continue
		}
		m.handleCommand(simulationID, cmd.Command, s)
	}
}

// handleCommand runs one client command and queues the reply.
func (m *Manager) handleCommand(simulationID, command string, s *stream) {
	ctx := context.Background()

	switch command {
	case model.WSCommandPause, model.WSCommandResume, model.WSCommandCancel:
		var err error
		switch command {
		case model.WSCommandPause:
			err = m.engine.Pause(ctx, simulationID)
		case model.WSCommandResume:
			err = m.engine.Resume(ctx, simulationID)
		case model.WSCommandCancel:
			err = m.engine.Cancel(ctx, simulationID)
		}
		resp := model.CommandResponsePayload{Command: command, Success: err == nil}
		if err != nil {
			resp.Message = err.Error()
		}
		m.reply(s, simulationID, resp)

	case model.WSCommandGetStatus:
		job, err := m.engine.Get(simulationID)
		if err != nil {
			m.reply(s, simulationID, model.CommandResponsePayload{
				Command: command,
				Success: false,
				Message: err.Error(),
			})
			return
		}
		m.reply(s, simulationID, statusSnapshot(job))

	default:
		m.reply(s, simulationID, model.CommandResponsePayload{
			Command: command,
			Success: false,
			Message: fmt.Sprintf("Unknown command: %s", command),
		})
	}
}

// reply queues a payload for the write loop, dropping it when the stream is
// already gone.
func (m *Manager) reply(s *stream, simulationID string, payload model.EventPayload) {
	data, err := json.Marshal(model.NewEvent(simulationID, payload))
	if err != nil {
		return
	}
	select {
	case s.responses <- data:
	case <-s.done:
	}
}

// statusSnapshot is the state-of-the-world event sent on connect and for
// get_status commands.
func statusSnapshot(job model.SimulationJob) model.StatusPayload {
	completed, total := job.EventsCompleted, job.EventsTotal
	return model.StatusPayload{
		Status:          job.Status,
		EventsCompleted: &completed,
		EventsTotal:     &total,
	}
}

func writeEvent(c *websocket.Conn, ev model.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, data)
}

// resetTimer restarts a timer that has not fired yet.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

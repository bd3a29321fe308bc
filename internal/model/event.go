package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types published on the bus
type EventType string

const (
	EventStatus          EventType = "status"
	EventProgress        EventType = "progress"
	EventBatch           EventType = "event_batch"
	EventHit             EventType = "hit"
	EventOutputFiles     EventType = "output_files"
	EventCommandResponse EventType = "command_response"
	EventHeartbeat       EventType = "heartbeat"
	EventCompleted       EventType = "completed"
	EventError           EventType = "error"
	EventCancelled       EventType = "cancelled"
)

// Terminal reports whether no further events follow for the job.
func (t EventType) Terminal() bool {
	return t == EventCompleted || t == EventError || t == EventCancelled
}

// Event is one record on a job's live stream. The payload is a typed
// variant per event type rather than an open map, so consumers can switch
// exhaustively on the concrete type.
type Event struct {
	SimulationID string
	Type         EventType
	Payload      EventPayload
	Timestamp    time.Time
}

// NewEvent stamps a payload with its job id and creation time. The event
// type is derived from the payload variant.
func NewEvent(simulationID string, payload EventPayload) Event {
	return Event{
		SimulationID: simulationID,
		Type:         payload.EventType(),
		Payload:      payload,
		Timestamp:    time.Now().UTC(),
	}
}

// EventPayload is implemented by exactly one struct per event type.
type EventPayload interface {
	EventType() EventType
}

// StatusPayload doubles as the lifecycle announcement and, with the counter
// fields set, the snapshot sent to a freshly connected stream viewer.
type StatusPayload struct {
	Status          SimulationStatus `json:"status"`
	Message         string           `json:"message,omitempty"`
	PID             int              `json:"pid,omitempty"`
	RealEngine      *bool            `json:"real_geant4,omitempty"`
	EventsCompleted *int             `json:"events_completed,omitempty"`
	EventsTotal     *int             `json:"events_total,omitempty"`
}

func (StatusPayload) EventType() EventType { return EventStatus }

type ProgressPayload struct {
	EventsCompleted    int      `json:"events_completed"`
	EventsTotal        int      `json:"events_total"`
	ProgressPercent    float64  `json:"progress_percent"`
	ElapsedTime        float64  `json:"elapsed_time"`
	EstimatedRemaining *float64 `json:"estimated_remaining,omitempty"`
	EventRate          *float64 `json:"event_rate,omitempty"`
	Message            string   `json:"message,omitempty"`
}

func (ProgressPayload) EventType() EventType { return EventProgress }

type EventBatchPayload struct {
	BatchStart int         `json:"batch_start"`
	BatchEnd   int         `json:"batch_end"`
	SampleHits []HitRecord `json:"sample_hits"`
}

func (EventBatchPayload) EventType() EventType { return EventBatch }

type HitPayload struct {
	Detector      string  `json:"detector"`
	EnergyDeposit float64 `json:"energy_deposit"`
}

func (HitPayload) EventType() EventType { return EventHit }

// OutputFilesPayload maps file extension to the files found with it in the
// job's working directory.
type OutputFilesPayload struct {
	Files map[string][]string `json:"files"`
}

func (OutputFilesPayload) EventType() EventType { return EventOutputFiles }

type CommandResponsePayload struct {
	Command string `json:"command"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func (CommandResponsePayload) EventType() EventType { return EventCommandResponse }

type HeartbeatPayload struct{}

func (HeartbeatPayload) EventType() EventType { return EventHeartbeat }

type CompletedPayload struct {
	Status          SimulationStatus `json:"status"`
	TotalEvents     int              `json:"total_events"`
	ElapsedTime     float64          `json:"elapsed_time"`
	EventsPerSecond float64          `json:"events_per_second"`
	ResultPath      string           `json:"result_path,omitempty"`
	ReturnCode      *int             `json:"return_code,omitempty"`
}

func (CompletedPayload) EventType() EventType { return EventCompleted }

type ErrorPayload struct {
	Message    string           `json:"message"`
	Status     SimulationStatus `json:"status,omitempty"`
	ReturnCode *int             `json:"return_code,omitempty"`
}

func (ErrorPayload) EventType() EventType { return EventError }

type CancelledPayload struct {
	Message string `json:"message,omitempty"`
}

func (CancelledPayload) EventType() EventType { return EventCancelled }

// eventEnvelope is the wire form sent to live viewers and returned by the
// history endpoint.
type eventEnvelope struct {
	SimulationID string          `json:"simulation_id"`
	Type         EventType       `json:"type"`
	Timestamp    time.Time       `json:"timestamp"`
	Data         json.RawMessage `json:"data,omitempty"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	var data json.RawMessage
	if e.Payload != nil {
		b, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, err
		}
		data = b
	}
	return json.Marshal(eventEnvelope{
		SimulationID: e.SimulationID,
		Type:         e.Type,
		Timestamp:    e.Timestamp,
		Data:         data,
	})
}

func (e *Event) UnmarshalJSON(b []byte) error {
	var env eventEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	payload, err := decodePayload(env.Type, env.Data)
	if err != nil {
		return err
	}
	e.SimulationID = env.SimulationID
	e.Type = env.Type
	e.Timestamp = env.Timestamp
	e.Payload = payload
	return nil
}

// decodePayload returns the value form of the variant so consumers see the
// same concrete types whether an event was constructed locally or decoded
// off the wire.
func decodePayload(t EventType, data json.RawMessage) (EventPayload, error) {
	switch t {
	case EventStatus:
		return decodeAs[StatusPayload](data)
	case EventProgress:
		return decodeAs[ProgressPayload](data)
	case EventBatch:
		return decodeAs[EventBatchPayload](data)
	case EventHit:
		return decodeAs[HitPayload](data)
	case EventOutputFiles:
		return decodeAs[OutputFilesPayload](data)
	case EventCommandResponse:
		return decodeAs[CommandResponsePayload](data)
	case EventHeartbeat:
		return decodeAs[HeartbeatPayload](data)
	case EventCompleted:
		return decodeAs[CompletedPayload](data)
	case EventError:
		return decodeAs[ErrorPayload](data)
	case EventCancelled:
		return decodeAs[CancelledPayload](data)
	default:
		return nil, fmt.Errorf("unknown event type %q", t)
	}
}

func decodeAs[T EventPayload](data json.RawMessage) (EventPayload, error) {
	var p T
	if len(data) > 0 {
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

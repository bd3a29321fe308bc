package bus

import (
	"log"
	"sync"

	"github.com/brahimariani/geant4-api/internal/model"
)

const (
	// TopicAll receives events from every simulation.
	TopicAll = "*"

	// subscriberBuffer is each subscriber's queue depth before it counts
	// as too slow and gets dropped.
	subscriberBuffer = 256

	// historyLimit caps how many events the bus retains for late readers.
	historyLimit = 1000
)

// Subscriber receives events for one topic over C until unsubscribed or
// dropped, at which point C is closed.
type Subscriber struct {
	Topic string
	C     chan model.Event
}

// Bus fans simulation events out to per-topic subscribers and keeps a
// bounded history for late readers.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Subscriber]bool
	history     []model.Event
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{
		subscribers: make(map[string]map[*Subscriber]bool),
	}
}

// Subscribe registers a subscriber for the given topic, either a simulation
// ID or TopicAll.
func (b *Bus) Subscribe(topic string) *Subscriber {
	sub := &Subscriber{
		Topic: topic,
		C:     make(chan model.Event, subscriberBuffer),
	}

	b.mu.Lock()
	if b.subscribers[topic] == nil {
		b.subscribers[topic] = make(map[*Subscriber]bool)
	}
	b.subscribers[topic][sub] = true
	b.mu.Unlock()

	return sub
}

// Unsubscribe removes a subscriber and closes its channel. Calling it again
// for the same subscriber is a no-op.
func (b *Bus) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	b.removeLocked(sub)
	b.mu.Unlock()
}

func (b *Bus) removeLocked(sub *Subscriber) {
	subs, ok := b.subscribers[sub.Topic]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.C)
	if len(subs) == 0 {
		delete(b.subscribers, sub.Topic)
	}
}

// Publish delivers the event to the topic's subscribers and to every
// TopicAll subscriber, then records it in history. A subscriber whose queue
// is full is dropped so one slow reader cannot stall the rest.
func (b *Bus) Publish(event model.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sendLocked(event.SimulationID, event)
	if event.SimulationID != TopicAll {
		b.sendLocked(TopicAll, event)
	}

	b.history = append(b.history, event)
	if len(b.history) > historyLimit {
		b.history = b.history[len(b.history)-historyLimit:]
	}
}

// Emit wraps the payload in an event for the simulation and publishes it.
func (b *Bus) Emit(simulationID string, payload model.EventPayload) model.Event {
	event := model.NewEvent(simulationID, payload)
	b.Publish(event)
	return event
}

func (b *Bus) sendLocked(topic string, event model.Event) {
	subs, ok := b.subscribers[topic]
	if !ok {
		return
	}
	for sub := range subs {
		select {
		case sub.C <- event:
		default:
			delete(subs, sub)
			close(sub.C)
			log.Printf("Dropping slow subscriber on topic %s", topic)
		}
	}
	if len(subs) == 0 {
		delete(b.subscribers, topic)
	}
}

// History returns up to limit retained events in chronological order,
// filtered by simulation ID and event type when those are non-empty. A
// non-positive limit means 100.
func (b *Bus) History(simulationID string, eventType model.EventType, limit int) []model.Event {
	if limit <= 0 {
		limit = 100
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	// Walk backwards so only the newest matches are collected.
	matched := make([]model.Event, 0, limit)
	for i := len(b.history) - 1; i >= 0 && len(matched) < limit; i-- {
		e := b.history[i]
		if simulationID != "" && e.SimulationID != simulationID {
			continue
		}
		if eventType != "" && e.Type != eventType {
			continue
		}
		matched = append(matched, e)
	}
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}
	return matched
}

// ClearHistory drops retained events, either for one simulation or all of
// them when simulationID is empty. It returns how many were removed.
func (b *Bus) ClearHistory(simulationID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if simulationID == "" {
		n := len(b.history)
		b.history = nil
		return n
	}

	kept := b.history[:0]
	for _, e := range b.history {
		if e.SimulationID != simulationID {
			kept = append(kept, e)
		}
	}
	n := len(b.history) - len(kept)
	b.history = kept
	return n
}

// Stats describes the current fan-out state.
type Stats struct {
	TotalSubscribers int            `json:"total_subscribers"`
	TopicSubscribers map[string]int `json:"subscribers_by_topic"`
	HistorySize      int            `json:"history_size"`
}

// Stats reports subscriber counts per topic and the history size.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := Stats{TopicSubscribers: make(map[string]int, len(b.subscribers))}
	for topic, subs := range b.subscribers {
		s.TopicSubscribers[topic] = len(subs)
		s.TotalSubscribers += len(subs)
	}
	s.HistorySize = len(b.history)
	return s
}

package world

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/signalsfoundry/factory-power-simulator/model"
)

// EventType indicates what kind of placement change happened.
type EventType int

const (
	EventStructurePlaced EventType = iota
	EventStructureRemoved
)

// Event is emitted to subscribers on every placement change. The power
// simulation subscribes to raise its topology-dirty flag.
type Event struct {
	Type      EventType
	Structure Structure
}

// Structure is a placed instance of a catalog prototype.
type Structure struct {
	ID        string
	Prototype string
	Kind      model.StructureKind
	X, Y      float64
}

// World is an in-memory, thread-safe store of placed structures.
type World struct {
	mu sync.RWMutex

	structures map[string]*Structure

	subs []func(Event)
}

// New constructs an empty world.
func New() *World {
	return &World{
		structures: make(map[string]*Structure),
	}
}

// Subscribe registers a callback invoked on every placement change.
// Callbacks run synchronously on the placing goroutine.
func (w *World) Subscribe(fn func(Event)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subs = append(w.subs, fn)
}

// Place adds a structure. An empty ID gets a generated one; the
// assigned ID is returned. It is an error to reuse an existing ID.
func (w *World) Place(s Structure) (string, error) {
	if s.Prototype == "" {
		return "", fmt.Errorf("place: structure without prototype")
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	w.mu.Lock()
	if _, exists := w.structures[s.ID]; exists {
		w.mu.Unlock()
		return "", fmt.Errorf("place: structure %q already exists", s.ID)
	}
	stored := s
	w.structures[s.ID] = &stored
	subs := w.subs
	w.mu.Unlock()

	for _, fn := range subs {
		fn(Event{Type: EventStructurePlaced, Structure: s})
	}
	return s.ID, nil
}

// Remove deletes a structure by ID. Removing an unknown ID is an
// error so callers can distinguish double-removal bugs.
func (w *World) Remove(id string) error {
	w.mu.Lock()
	s, exists := w.structures[id]
	if !exists {
		w.mu.Unlock()
		return fmt.Errorf("remove: structure %q not found", id)
	}
	removed := *s
	delete(w.structures, id)
	subs := w.subs
	w.mu.Unlock()

	for _, fn := range subs {
		fn(Event{Type: EventStructureRemoved, Structure: removed})
	}
	return nil
}

// Get returns a copy of the structure with the given ID.
func (w *World) Get(id string) (Structure, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.structures[id]
	if !ok {
		return Structure{}, false
	}
	return *s, true
}

// All returns copies of all placed structures in unspecified order.
func (w *World) All() []Structure {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]Structure, 0, len(w.structures))
	for _, s := range w.structures {
		out = append(out, *s)
	}
	return out
}

// Count returns the number of placed structures.
func (w *World) Count() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.structures)
}

// Clear removes every structure without emitting events; callers that
// clear a scenario rebuild derived state themselves.
func (w *World) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.structures = make(map[string]*Structure)
}

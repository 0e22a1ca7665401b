package core

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrEntityExists   = errors.New("entity already exists")
	ErrEntityNotFound = errors.New("entity not found")
	ErrEntityBadInput = errors.New("invalid entity")
)

// PowerStore holds the power-relevant components of every placed
// structure in flat per-type tables keyed by entity ID, plus the
// current network partition.
//
// NOTE: The store is concurrency-safe via an internal RWMutex so it can
// be read from observers (metrics, status hub) while the tick loop
// runs, as long as all access goes through these methods. Within a tick
// the simulation mutates it single-threaded.
type PowerStore struct {
	mu sync.RWMutex

	poles        map[string]*Pole
	generators   map[string]*Generator
	solarPanels  map[string]*SolarPanel
	consumers    map[string]*Consumer
	accumulators map[string]*Accumulator

	// placements holds position + footprint for every entity above.
	placements map[string]Placement

	// networks is the current partition. Entities refer into it by
	// index; lookups are bounds-checked because identifiers go stale
	// between a placement change and the next rebuild.
	networks []*PowerNetwork
}

// Placement is the spatial component shared by all structure kinds.
type Placement struct {
	Pos       Vec2
	Footprint Footprint
}

// NewPowerStore creates an empty store.
func NewPowerStore() *PowerStore {
	return &PowerStore{
		poles:        make(map[string]*Pole),
		generators:   make(map[string]*Generator),
		solarPanels:  make(map[string]*SolarPanel),
		consumers:    make(map[string]*Consumer),
		accumulators: make(map[string]*Accumulator),
		placements:   make(map[string]Placement),
	}
}

//
// ---------- Placements ----------
//

func (s *PowerStore) SetPlacement(id string, p Placement) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.placements[id] = p
}

func (s *PowerStore) GetPlacement(id string) (Placement, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.placements[id]
	return p, ok
}

//
// ---------- Poles ----------
//

func (s *PowerStore) AddPole(p *Pole) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("%w: nil or empty pole", ErrEntityBadInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.poles[p.ID]; exists {
		return fmt.Errorf("%w: %q", ErrEntityExists, p.ID)
	}
	// A freshly added pole cannot belong to any network until the
	// next rebuild.
	p.NetworkID = NoNetwork
	s.poles[p.ID] = p
	return nil
}

// GetPole returns a pole by ID, or nil if not found.
func (s *PowerStore) GetPole(id string) *Pole {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.poles[id]
}

// AllPoles returns all poles in unspecified order.
func (s *PowerStore) AllPoles() []*Pole {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Pole, 0, len(s.poles))
	for _, p := range s.poles {
		out = append(out, p)
	}
	return out
}

// PoleIDsSorted returns all pole IDs in ascending order. The builder
// iterates poles in this order so that rebuilds with unchanged topology
// produce identical partitions and stable identifiers.
func (s *PowerStore) PoleIDsSorted() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.poles))
	for id := range s.poles {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

//
// ---------- Generators ----------
//

func (s *PowerStore) AddGenerator(g *Generator) error {
	if g == nil || g.ID == "" {
		return fmt.Errorf("%w: nil or empty generator", ErrEntityBadInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.generators[g.ID]; exists {
		return fmt.Errorf("%w: %q", ErrEntityExists, g.ID)
	}
	if g.Inventory == nil {
		g.Inventory = make(map[FuelType]int)
	}
	g.NetworkID = NoNetwork
	s.generators[g.ID] = g
	return nil
}

func (s *PowerStore) GetGenerator(id string) *Generator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generators[id]
}

func (s *PowerStore) AllGenerators() []*Generator {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Generator, 0, len(s.generators))
	for _, g := range s.generators {
		out = append(out, g)
	}
	return out
}

//
// ---------- Solar panels ----------
//

func (s *PowerStore) AddSolarPanel(sp *SolarPanel) error {
	if sp == nil || sp.ID == "" {
		return fmt.Errorf("%w: nil or empty solar panel", ErrEntityBadInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.solarPanels[sp.ID]; exists {
		return fmt.Errorf("%w: %q", ErrEntityExists, sp.ID)
	}
	sp.NetworkID = NoNetwork
	s.solarPanels[sp.ID] = sp
	return nil
}

func (s *PowerStore) GetSolarPanel(id string) *SolarPanel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.solarPanels[id]
}

func (s *PowerStore) AllSolarPanels() []*SolarPanel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*SolarPanel, 0, len(s.solarPanels))
	for _, sp := range s.solarPanels {
		out = append(out, sp)
	}
	return out
}

//
// ---------- Consumers ----------
//

func (s *PowerStore) AddConsumer(c *Consumer) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("%w: nil or empty consumer", ErrEntityBadInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.consumers[c.ID]; exists {
		return fmt.Errorf("%w: %q", ErrEntityExists, c.ID)
	}
	c.NetworkID = NoNetwork
	s.consumers[c.ID] = c
	return nil
}

func (s *PowerStore) GetConsumer(id string) *Consumer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.consumers[id]
}

func (s *PowerStore) AllConsumers() []*Consumer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Consumer, 0, len(s.consumers))
	for _, c := range s.consumers {
		out = append(out, c)
	}
	return out
}

//
// ---------- Accumulators ----------
//

func (s *PowerStore) AddAccumulator(a *Accumulator) error {
	if a == nil || a.ID == "" {
		return fmt.Errorf("%w: nil or empty accumulator", ErrEntityBadInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accumulators[a.ID]; exists {
		return fmt.Errorf("%w: %q", ErrEntityExists, a.ID)
	}
	if a.Mode == "" {
		a.Mode = AccumulatorIdle
	}
	a.NetworkID = NoNetwork
	s.accumulators[a.ID] = a
	return nil
}

func (s *PowerStore) GetAccumulator(id string) *Accumulator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accumulators[id]
}

func (s *PowerStore) AllAccumulators() []*Accumulator {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Accumulator, 0, len(s.accumulators))
	for _, a := range s.accumulators {
		out = append(out, a)
	}
	return out
}

//
// ---------- Removal ----------
//

// RemoveEntity deletes every component attached to the entity. Unknown
// IDs are not an error: a structure despawned by another system may
// already be gone.
func (s *PowerStore) RemoveEntity(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.poles, id)
	delete(s.generators, id)
	delete(s.solarPanels, id)
	delete(s.consumers, id)
	delete(s.accumulators, id)
	delete(s.placements, id)
}

//
// ---------- Network partition ----------
//

// SetNetworks replaces the current partition wholesale.
func (s *PowerStore) SetNetworks(networks []*PowerNetwork) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.networks = networks
}

// Networks returns the current partition.
func (s *PowerStore) Networks() []*PowerNetwork {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*PowerNetwork, len(s.networks))
	copy(out, s.networks)
	return out
}

// NetworkByID returns the network at the given identifier, or nil when
// the identifier is out of range. Entities carry identifiers that can
// go stale between a placement change and the next rebuild, so every
// reader validates through here rather than trusting the index.
func (s *PowerStore) NetworkByID(id int) *PowerNetwork {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id < 0 || id >= len(s.networks) {
		return nil
	}
	return s.networks[id]
}

// Counts returns the number of entities per component type, for metric
// gauges.
func (s *PowerStore) Counts() (poles, generators, solarPanels, consumers, accumulators int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.poles), len(s.generators), len(s.solarPanels), len(s.consumers), len(s.accumulators)
}

// Clear removes all components and networks, leaving an empty store.
func (s *PowerStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.poles = make(map[string]*Pole)
	s.generators = make(map[string]*Generator)
	s.solarPanels = make(map[string]*SolarPanel)
	s.consumers = make(map[string]*Consumer)
	s.accumulators = make(map[string]*Accumulator)
	s.placements = make(map[string]Placement)
	s.networks = nil
}

// internal/sim/state/state.go
package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/signalsfoundry/factory-power-simulator/core"
	"github.com/signalsfoundry/factory-power-simulator/internal/logging"
	"github.com/signalsfoundry/factory-power-simulator/model"
	"github.com/signalsfoundry/factory-power-simulator/world"
)

var (
	// ErrUnknownPrototype indicates a placement referenced a prototype
	// missing from the catalog.
	ErrUnknownPrototype = errors.New("unknown structure prototype")
	// ErrNoNetwork indicates the queried entity has no valid network
	// assignment.
	ErrNoNetwork = errors.New("entity has no network")
)

// FactoryState coordinates the placement world and the power component
// store. Placements flow through here so that every placed structure
// gets its power components created and every removal cleans them up,
// with the world's change events raising the engine's topology-dirty
// flag.
type FactoryState struct {
	world *world.World
	power *core.PowerStore

	catalog model.Catalog

	// topology is notified when state-level operations invalidate the
	// partition outside the world's event stream (e.g. ClearScenario).
	topology topologyMarker

	// log is an optional structured logger for state-level events.
	log logging.Logger

	// metrics is an optional recorder for Prometheus-friendly gauges.
	metrics FactoryMetricsRecorder
}

// FactoryMetricsRecorder receives count updates for placed structures.
type FactoryMetricsRecorder interface {
	SetFactoryCounts(poles, generators, solarPanels, consumers, accumulators int)
}

type topologyMarker interface {
	MarkDirty()
}

// FactorySnapshot captures a consistent view of placements and the
// current network partition.
//
// The network slice contains pointers owned by the power store; callers
// MUST treat them as read-only.
type FactorySnapshot struct {
	Structures []world.Structure
	Networks   []*core.PowerNetwork
}

// FactoryStateOption customises FactoryState construction.
type FactoryStateOption func(*FactoryState)

// WithCatalog sets the structure prototype catalog.
func WithCatalog(c model.Catalog) FactoryStateOption {
	return func(s *FactoryState) { s.catalog = c }
}

// WithLogger attaches a structured logger.
func WithLogger(log logging.Logger) FactoryStateOption {
	return func(s *FactoryState) { s.log = log }
}

// WithMetrics attaches a metrics recorder for structure counts.
func WithMetrics(m FactoryMetricsRecorder) FactoryStateOption {
	return func(s *FactoryState) { s.metrics = m }
}

// WithTopologyMarker attaches a component whose topology-dirty flag
// must be raised when state-level operations bypass world events.
func WithTopologyMarker(t topologyMarker) FactoryStateOption {
	return func(s *FactoryState) { s.topology = t }
}

// NewFactoryState wires a world and a power store together.
func NewFactoryState(w *world.World, p *core.PowerStore, opts ...FactoryStateOption) *FactoryState {
	s := &FactoryState{
		world:   w,
		power:   p,
		catalog: model.Catalog{},
		log:     logging.Noop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// World exposes the placement store, e.g. for event subscription.
func (s *FactoryState) World() *world.World { return s.world }

// Power exposes the power component store.
func (s *FactoryState) Power() *core.PowerStore { return s.power }

// PlaceStructure instantiates a catalog prototype at the given tile
// position. An empty id gets a generated one; the assigned id is
// returned. The placement event raises the topology-dirty flag via the
// world subscription, so the next tick rebuilds the partition.
func (s *FactoryState) PlaceStructure(ctx context.Context, id, prototype string, x, y float64) (string, error) {
	def, ok := s.catalog.Get(prototype)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPrototype, prototype)
	}

	assigned, err := s.world.Place(world.Structure{
		ID:        id,
		Prototype: prototype,
		Kind:      def.Kind,
		X:         x,
		Y:         y,
	})
	if err != nil {
		return "", err
	}

	if err := s.addComponents(assigned, def, x, y); err != nil {
		// Roll the placement back so world and power store stay in
		// sync.
		_ = s.world.Remove(assigned)
		return "", err
	}

	s.recordCounts()
	s.log.Debug(ctx, "structure placed",
		logging.String("id", assigned),
		logging.String("prototype", prototype),
		logging.Float("x", x),
		logging.Float("y", y),
	)
	return assigned, nil
}

// RemoveStructure deletes a placed structure and all of its power
// components. The removal event raises the topology-dirty flag.
func (s *FactoryState) RemoveStructure(ctx context.Context, id string) error {
	if err := s.world.Remove(id); err != nil {
		return err
	}
	s.power.RemoveEntity(id)

	s.recordCounts()
	s.log.Debug(ctx, "structure removed", logging.String("id", id))
	return nil
}

// NetworkStatsFor returns the latest balancing totals for the network
// the entity belongs to. It reports ErrNoNetwork when the entity has no
// assigned network or its identifier is out of range; identifiers go
// stale between a placement change and the next rebuild, and are never
// trusted without a bounds check.
func (s *FactoryState) NetworkStatsFor(entityID string) (core.NetworkStats, error) {
	id := core.NoNetwork
	switch {
	case s.power.GetConsumer(entityID) != nil:
		id = s.power.GetConsumer(entityID).NetworkID
	case s.power.GetGenerator(entityID) != nil:
		id = s.power.GetGenerator(entityID).NetworkID
	case s.power.GetSolarPanel(entityID) != nil:
		id = s.power.GetSolarPanel(entityID).NetworkID
	case s.power.GetAccumulator(entityID) != nil:
		id = s.power.GetAccumulator(entityID).NetworkID
	case s.power.GetPole(entityID) != nil:
		id = s.power.GetPole(entityID).NetworkID
	}

	net := s.power.NetworkByID(id)
	if net == nil {
		return core.NetworkStats{}, fmt.Errorf("%w: %q", ErrNoNetwork, entityID)
	}
	return net.Stats(), nil
}

// Snapshot captures placements and the current partition.
func (s *FactoryState) Snapshot() FactorySnapshot {
	return FactorySnapshot{
		Structures: s.world.All(),
		Networks:   s.power.Networks(),
	}
}

// ClearScenario removes every structure and all derived power state,
// and marks topology dirty so the next tick installs an empty
// partition.
func (s *FactoryState) ClearScenario(ctx context.Context) {
	s.world.Clear()
	s.power.Clear()
	if s.topology != nil {
		s.topology.MarkDirty()
	}
	s.recordCounts()
	s.log.Info(ctx, "scenario cleared")
}

// addComponents creates the power components a prototype implies.
func (s *FactoryState) addComponents(id string, def model.StructureDefinition, x, y float64) error {
	w, h := def.FootprintOrDefault()
	s.power.SetPlacement(id, core.Placement{
		Pos:       core.Vec2{X: x, Y: y},
		Footprint: core.Footprint{Width: w, Height: h},
	})

	switch def.Kind {
	case model.KindPole:
		return s.power.AddPole(&core.Pole{
			ID:           id,
			SupplyRadius: def.SupplyRadius,
			WireReach:    def.WireReach,
		})
	case model.KindGenerator:
		return s.power.AddGenerator(&core.Generator{
			ID:          id,
			RatedOutput: def.RatedOutput,
		})
	case model.KindSolarPanel:
		return s.power.AddSolarPanel(&core.SolarPanel{
			ID:          id,
			RatedOutput: def.RatedOutput,
		})
	case model.KindConsumer:
		return s.power.AddConsumer(&core.Consumer{
			ID:          id,
			Consumption: def.Consumption,
		})
	case model.KindAccumulator:
		return s.power.AddAccumulator(&core.Accumulator{
			ID:         id,
			Capacity:   def.Capacity,
			ChargeRate: def.ChargeRate,
		})
	default:
		return fmt.Errorf("%w: kind %q", ErrUnknownPrototype, def.Kind)
	}
}

func (s *FactoryState) recordCounts() {
	if s.metrics == nil {
		return
	}
	s.metrics.SetFactoryCounts(s.power.Counts())
}

package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/signalsfoundry/factory-power-simulator/core"
	"github.com/signalsfoundry/factory-power-simulator/model"
	"github.com/signalsfoundry/factory-power-simulator/world"
)

func testCatalog() model.Catalog {
	return model.Catalog{
		"small-pole": {
			Name: "small-pole", Kind: model.KindPole,
			SupplyRadius: 10, WireReach: 7.5,
		},
		"steam-engine": {
			Name: "steam-engine", Kind: model.KindGenerator,
			Width: 3, Height: 5, RatedOutput: 100,
		},
		"lamp": {
			Name: "lamp", Kind: model.KindConsumer,
			Consumption: 100,
		},
		"accumulator": {
			Name: "accumulator", Kind: model.KindAccumulator,
			Width: 2, Height: 2, Capacity: 5e6, ChargeRate: 300,
		},
	}
}

type markerStub struct{ marks int }

func (m *markerStub) MarkDirty() { m.marks++ }

type countsStub struct {
	poles, generators, solarPanels, consumers, accumulators int
}

func (c *countsStub) SetFactoryCounts(poles, generators, solarPanels, consumers, accumulators int) {
	c.poles = poles
	c.generators = generators
	c.solarPanels = solarPanels
	c.consumers = consumers
	c.accumulators = accumulators
}

func newTestState(t *testing.T, opts ...FactoryStateOption) *FactoryState {
	t.Helper()
	opts = append([]FactoryStateOption{WithCatalog(testCatalog())}, opts...)
	return NewFactoryState(world.New(), core.NewPowerStore(), opts...)
}

func TestPlaceStructureCreatesComponents(t *testing.T) {
	fs := newTestState(t)
	ctx := context.Background()

	id, err := fs.PlaceStructure(ctx, "pole-1", "small-pole", 3, 4)
	if err != nil {
		t.Fatalf("PlaceStructure: %v", err)
	}
	if id != "pole-1" {
		t.Fatalf("assigned id = %q, want pole-1", id)
	}

	pole := fs.Power().GetPole("pole-1")
	if pole == nil {
		t.Fatalf("expected pole component")
	}
	if pole.SupplyRadius != 10 || pole.WireReach != 7.5 {
		t.Fatalf("pole = %+v", pole)
	}

	pl, ok := fs.Power().GetPlacement("pole-1")
	if !ok {
		t.Fatalf("expected placement")
	}
	if pl.Pos != (core.Vec2{X: 3, Y: 4}) {
		t.Fatalf("placement pos = %+v", pl.Pos)
	}
	if pl.Footprint != (core.Footprint{Width: 1, Height: 1}) {
		t.Fatalf("placement footprint = %+v, want 1x1 default", pl.Footprint)
	}

	if _, ok := fs.World().Get("pole-1"); !ok {
		t.Fatalf("expected world structure")
	}
}

func TestPlaceStructureUsesCatalogFootprint(t *testing.T) {
	fs := newTestState(t)

	if _, err := fs.PlaceStructure(context.Background(), "engine-1", "steam-engine", 0, 0); err != nil {
		t.Fatalf("PlaceStructure: %v", err)
	}

	pl, _ := fs.Power().GetPlacement("engine-1")
	if pl.Footprint != (core.Footprint{Width: 3, Height: 5}) {
		t.Fatalf("footprint = %+v, want 3x5", pl.Footprint)
	}
}

func TestPlaceStructureUnknownPrototype(t *testing.T) {
	fs := newTestState(t)

	_, err := fs.PlaceStructure(context.Background(), "", "teleporter", 0, 0)
	if !errors.Is(err, ErrUnknownPrototype) {
		t.Fatalf("expected ErrUnknownPrototype, got %v", err)
	}
	if fs.World().Count() != 0 {
		t.Fatalf("failed placement must not leave a world structure")
	}
}

func TestRemoveStructureCleansUp(t *testing.T) {
	fs := newTestState(t)
	ctx := context.Background()

	id, err := fs.PlaceStructure(ctx, "", "lamp", 1, 1)
	if err != nil {
		t.Fatalf("PlaceStructure: %v", err)
	}
	if err := fs.RemoveStructure(ctx, id); err != nil {
		t.Fatalf("RemoveStructure: %v", err)
	}

	if fs.Power().GetConsumer(id) != nil {
		t.Fatalf("consumer component should be gone")
	}
	if _, ok := fs.World().Get(id); ok {
		t.Fatalf("world structure should be gone")
	}

	if err := fs.RemoveStructure(ctx, id); err == nil {
		t.Fatalf("expected error on double removal")
	}
}

func TestPlacementRaisesTopologyDirtyViaWorldEvents(t *testing.T) {
	marker := &markerStub{}
	fs := newTestState(t, WithTopologyMarker(marker))
	fs.World().Subscribe(func(world.Event) { marker.MarkDirty() })

	ctx := context.Background()
	id, err := fs.PlaceStructure(ctx, "", "lamp", 0, 0)
	if err != nil {
		t.Fatalf("PlaceStructure: %v", err)
	}
	if marker.marks != 1 {
		t.Fatalf("marks after place = %d, want 1", marker.marks)
	}

	if err := fs.RemoveStructure(ctx, id); err != nil {
		t.Fatalf("RemoveStructure: %v", err)
	}
	if marker.marks != 2 {
		t.Fatalf("marks after remove = %d, want 2", marker.marks)
	}
}

func TestMetricsCountsFollowPlacements(t *testing.T) {
	counts := &countsStub{}
	fs := newTestState(t, WithMetrics(counts))
	ctx := context.Background()

	if _, err := fs.PlaceStructure(ctx, "", "small-pole", 0, 0); err != nil {
		t.Fatalf("PlaceStructure: %v", err)
	}
	if _, err := fs.PlaceStructure(ctx, "", "lamp", 1, 0); err != nil {
		t.Fatalf("PlaceStructure: %v", err)
	}

	if counts.poles != 1 || counts.consumers != 1 {
		t.Fatalf("counts = %+v", counts)
	}
}

func TestNetworkStatsFor(t *testing.T) {
	fs := newTestState(t)
	ctx := context.Background()

	if _, err := fs.PlaceStructure(ctx, "pole-1", "small-pole", 0, 0); err != nil {
		t.Fatalf("PlaceStructure: %v", err)
	}
	if _, err := fs.PlaceStructure(ctx, "lamp-1", "lamp", 2, 0); err != nil {
		t.Fatalf("PlaceStructure: %v", err)
	}

	core.NewNetworkBuilder(fs.Power()).Rebuild()
	core.NewNetworkBalancer(fs.Power()).BalanceAll(time.Second, time.Second)

	stats, err := fs.NetworkStatsFor("lamp-1")
	if err != nil {
		t.Fatalf("NetworkStatsFor: %v", err)
	}
	if stats.Consumption != 100 {
		t.Fatalf("Consumption = %v, want 100", stats.Consumption)
	}
	if stats.Satisfaction != 0 {
		t.Fatalf("Satisfaction = %v, want 0 with no supply", stats.Satisfaction)
	}
}

func TestNetworkStatsForUnpoweredEntity(t *testing.T) {
	fs := newTestState(t)
	ctx := context.Background()

	// A lamp far from any pole stays on NoNetwork after the rebuild.
	if _, err := fs.PlaceStructure(ctx, "pole-1", "small-pole", 0, 0); err != nil {
		t.Fatalf("PlaceStructure: %v", err)
	}
	if _, err := fs.PlaceStructure(ctx, "lonely", "lamp", 500, 500); err != nil {
		t.Fatalf("PlaceStructure: %v", err)
	}
	core.NewNetworkBuilder(fs.Power()).Rebuild()

	if _, err := fs.NetworkStatsFor("lonely"); !errors.Is(err, ErrNoNetwork) {
		t.Fatalf("expected ErrNoNetwork, got %v", err)
	}
	if _, err := fs.NetworkStatsFor("never-placed"); !errors.Is(err, ErrNoNetwork) {
		t.Fatalf("expected ErrNoNetwork for unknown entity, got %v", err)
	}
}

func TestSnapshot(t *testing.T) {
	fs := newTestState(t)
	ctx := context.Background()

	if _, err := fs.PlaceStructure(ctx, "pole-1", "small-pole", 0, 0); err != nil {
		t.Fatalf("PlaceStructure: %v", err)
	}
	core.NewNetworkBuilder(fs.Power()).Rebuild()

	snap := fs.Snapshot()
	if len(snap.Structures) != 1 {
		t.Fatalf("snapshot structures = %d, want 1", len(snap.Structures))
	}
	if len(snap.Networks) != 1 {
		t.Fatalf("snapshot networks = %d, want 1", len(snap.Networks))
	}
}

func TestClearScenario(t *testing.T) {
	marker := &markerStub{}
	fs := newTestState(t, WithTopologyMarker(marker))
	ctx := context.Background()

	if _, err := fs.PlaceStructure(ctx, "pole-1", "small-pole", 0, 0); err != nil {
		t.Fatalf("PlaceStructure: %v", err)
	}

	fs.ClearScenario(ctx)

	if fs.World().Count() != 0 {
		t.Fatalf("world not empty after ClearScenario")
	}
	poles, _, _, _, _ := fs.Power().Counts()
	if poles != 0 {
		t.Fatalf("power store not empty after ClearScenario")
	}
	if marker.marks == 0 {
		t.Fatalf("ClearScenario must raise the topology-dirty flag")
	}
}

package core

import (
	"reflect"
	"testing"
)

func addPoleAt(t *testing.T, store *PowerStore, id string, x, y, supplyRadius, wireReach float64) {
	t.Helper()
	if err := store.AddPole(&Pole{ID: id, SupplyRadius: supplyRadius, WireReach: wireReach}); err != nil {
		t.Fatalf("AddPole(%s): %v", id, err)
	}
	store.SetPlacement(id, Placement{Pos: Vec2{X: x, Y: y}, Footprint: Footprint{Width: 1, Height: 1}})
}

func addConsumerAt(t *testing.T, store *PowerStore, id string, x, y, consumption float64) {
	t.Helper()
	if err := store.AddConsumer(&Consumer{ID: id, Consumption: consumption}); err != nil {
		t.Fatalf("AddConsumer(%s): %v", id, err)
	}
	store.SetPlacement(id, Placement{Pos: Vec2{X: x, Y: y}, Footprint: Footprint{Width: 1, Height: 1}})
}

func addGeneratorAt(t *testing.T, store *PowerStore, id string, x, y, ratedOutput float64) {
	t.Helper()
	if err := store.AddGenerator(&Generator{ID: id, RatedOutput: ratedOutput}); err != nil {
		t.Fatalf("AddGenerator(%s): %v", id, err)
	}
	store.SetPlacement(id, Placement{Pos: Vec2{X: x, Y: y}, Footprint: Footprint{Width: 1, Height: 1}})
}

func TestRebuildSingleNetwork(t *testing.T) {
	store := NewPowerStore()
	addPoleAt(t, store, "pole-a", 0, 0, 5, 10)
	addPoleAt(t, store, "pole-b", 8, 0, 5, 10)
	addGeneratorAt(t, store, "gen-1", 1, 1, 100)
	addConsumerAt(t, store, "cons-1", 7, 1, 50)

	nb := NewNetworkBuilder(store)
	networks := nb.Rebuild()

	if len(networks) != 1 {
		t.Fatalf("expected 1 network, got %d", len(networks))
	}
	net := networks[0]
	if len(net.Poles) != 2 {
		t.Fatalf("expected 2 poles in network, got %v", net.Poles)
	}
	if !reflect.DeepEqual(net.Generators, []string{"gen-1"}) {
		t.Fatalf("Generators = %v, want [gen-1]", net.Generators)
	}
	if !reflect.DeepEqual(net.Consumers, []string{"cons-1"}) {
		t.Fatalf("Consumers = %v, want [cons-1]", net.Consumers)
	}

	if store.GetPole("pole-a").NetworkID != 0 || store.GetPole("pole-b").NetworkID != 0 {
		t.Fatalf("both poles should carry network 0")
	}
	if store.GetGenerator("gen-1").NetworkID != 0 {
		t.Fatalf("generator should carry network 0")
	}
}

func TestRebuildSplitsDisconnectedPoles(t *testing.T) {
	store := NewPowerStore()
	addPoleAt(t, store, "pole-a", 0, 0, 5, 5)
	addPoleAt(t, store, "pole-b", 100, 0, 5, 5)

	nb := NewNetworkBuilder(store)
	networks := nb.Rebuild()

	if len(networks) != 2 {
		t.Fatalf("expected 2 networks, got %d", len(networks))
	}
	if store.GetPole("pole-a").NetworkID == store.GetPole("pole-b").NetworkID {
		t.Fatalf("disconnected poles must not share a network")
	}
}

func TestRebuildTransitiveChain(t *testing.T) {
	store := NewPowerStore()
	// a-b and b-c in reach, a-c not: one network via the chain.
	addPoleAt(t, store, "pole-a", 0, 0, 2, 6)
	addPoleAt(t, store, "pole-b", 5, 0, 2, 6)
	addPoleAt(t, store, "pole-c", 10, 0, 2, 6)

	nb := NewNetworkBuilder(store)
	networks := nb.Rebuild()

	if len(networks) != 1 {
		t.Fatalf("expected 1 network via transitive chain, got %d", len(networks))
	}

	// Middle pole connects both ways, end poles only to the middle.
	b := store.GetPole("pole-b")
	if len(b.Connections) != 2 {
		t.Fatalf("pole-b connections = %v, want 2 entries", b.Connections)
	}
	a := store.GetPole("pole-a")
	if !reflect.DeepEqual(a.Connections, []string{"pole-b"}) {
		t.Fatalf("pole-a connections = %v, want [pole-b]", a.Connections)
	}
}

func TestRebuildConnectionsAreSymmetric(t *testing.T) {
	store := NewPowerStore()
	addPoleAt(t, store, "pole-a", 0, 0, 2, 6)
	addPoleAt(t, store, "pole-b", 5, 0, 2, 6)

	NewNetworkBuilder(store).Rebuild()

	a := store.GetPole("pole-a")
	b := store.GetPole("pole-b")
	if !contains(a.Connections, "pole-b") || !contains(b.Connections, "pole-a") {
		t.Fatalf("wire edge must be recorded on both poles: a=%v b=%v", a.Connections, b.Connections)
	}
}

func TestRebuildLeavesUnpoweredEquipmentUnassigned(t *testing.T) {
	store := NewPowerStore()
	addPoleAt(t, store, "pole-a", 0, 0, 3, 5)
	addConsumerAt(t, store, "far-consumer", 50, 50, 10)

	networks := NewNetworkBuilder(store).Rebuild()

	if len(networks) != 1 {
		t.Fatalf("expected 1 network, got %d", len(networks))
	}
	if got := store.GetConsumer("far-consumer").NetworkID; got != NoNetwork {
		t.Fatalf("out-of-area consumer NetworkID = %d, want NoNetwork", got)
	}
}

func TestRebuildEquipmentJoinsExactlyOneNetwork(t *testing.T) {
	store := NewPowerStore()
	// Two disconnected poles whose supply areas both cover the consumer.
	addPoleAt(t, store, "pole-a", 0, 0, 10, 2)
	addPoleAt(t, store, "pole-b", 8, 0, 10, 2)
	addConsumerAt(t, store, "cons-1", 4, 0, 10)

	networks := NewNetworkBuilder(store).Rebuild()

	if len(networks) != 2 {
		t.Fatalf("expected 2 networks, got %d", len(networks))
	}
	memberships := 0
	for _, net := range networks {
		if contains(net.Consumers, "cons-1") {
			memberships++
		}
	}
	if memberships != 1 {
		t.Fatalf("consumer belongs to %d networks, want exactly 1", memberships)
	}
}

// Rebuilding with unchanged topology must produce an identical
// partition with stable identifiers.
func TestRebuildIsIdempotent(t *testing.T) {
	store := NewPowerStore()
	addPoleAt(t, store, "pole-a", 0, 0, 5, 6)
	addPoleAt(t, store, "pole-b", 5, 0, 5, 6)
	addPoleAt(t, store, "pole-c", 40, 0, 5, 6)
	addGeneratorAt(t, store, "gen-1", 2, 1, 100)
	addConsumerAt(t, store, "cons-1", 4, -1, 60)

	nb := NewNetworkBuilder(store)
	first := nb.Rebuild()
	second := nb.Rebuild()

	if len(first) != len(second) {
		t.Fatalf("network count changed across rebuilds: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !reflect.DeepEqual(first[i].Poles, second[i].Poles) {
			t.Fatalf("network %d poles changed: %v vs %v", i, first[i].Poles, second[i].Poles)
		}
		if !reflect.DeepEqual(first[i].Generators, second[i].Generators) {
			t.Fatalf("network %d generators changed", i)
		}
		if !reflect.DeepEqual(first[i].Consumers, second[i].Consumers) {
			t.Fatalf("network %d consumers changed", i)
		}
	}
}

// A structure too wide for its centre to reach the pole still joins the
// network when a footprint corner is inside the supply radius.
func TestRebuildClaimsByFootprintCorner(t *testing.T) {
	store := NewPowerStore()
	addPoleAt(t, store, "pole-a", 0, 0, 6, 5)

	if err := store.AddConsumer(&Consumer{ID: "wide", Consumption: 10}); err != nil {
		t.Fatalf("AddConsumer: %v", err)
	}
	store.SetPlacement("wide", Placement{
		Pos:       Vec2{X: 7, Y: 7},
		Footprint: Footprint{Width: 6, Height: 6},
	})

	NewNetworkBuilder(store).Rebuild()

	if got := store.GetConsumer("wide").NetworkID; got != 0 {
		t.Fatalf("wide consumer NetworkID = %d, want 0", got)
	}
}

func TestRebuildWithNoPoles(t *testing.T) {
	store := NewPowerStore()
	addConsumerAt(t, store, "cons-1", 0, 0, 10)

	networks := NewNetworkBuilder(store).Rebuild()

	if len(networks) != 0 {
		t.Fatalf("expected empty partition, got %d networks", len(networks))
	}
	if got := store.GetConsumer("cons-1").NetworkID; got != NoNetwork {
		t.Fatalf("consumer NetworkID = %d, want NoNetwork", got)
	}
}

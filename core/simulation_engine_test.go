package core

import (
	"context"
	"testing"
	"time"
)

// recorderStub counts metric callbacks so tests can observe rebuild
// gating without a Prometheus registry.
type recorderStub struct {
	rebuilds      int
	tickDurations int
	networkCount  int
	production    float64
	consumption   float64
}

func (r *recorderStub) ObserveTickDuration(time.Duration) { r.tickDurations++ }
func (r *recorderStub) IncNetworkRebuilds()               { r.rebuilds++ }
func (r *recorderStub) SetNetworkCount(n int)             { r.networkCount = n }
func (r *recorderStub) SetPowerTotals(p, c, _ float64) {
	r.production = p
	r.consumption = c
}

func TestEngineRebuildsOnlyWhenDirty(t *testing.T) {
	store := NewPowerStore()
	addPoleAt(t, store, "pole-1", 0, 0, 10, 5)

	rec := &recorderStub{}
	engine := NewSimulationEngine(store, WithMetrics(rec))

	ctx := context.Background()

	// The engine starts dirty, so the first tick rebuilds.
	engine.Step(ctx, time.Second)
	if rec.rebuilds != 1 {
		t.Fatalf("rebuilds after tick 1 = %d, want 1", rec.rebuilds)
	}

	engine.Step(ctx, time.Second)
	engine.Step(ctx, time.Second)
	if rec.rebuilds != 1 {
		t.Fatalf("rebuilds after clean ticks = %d, want still 1", rec.rebuilds)
	}

	engine.MarkDirty()
	engine.Step(ctx, time.Second)
	if rec.rebuilds != 2 {
		t.Fatalf("rebuilds after MarkDirty = %d, want 2", rec.rebuilds)
	}
}

func TestEngineBalancesEveryTick(t *testing.T) {
	store := NewPowerStore()
	addPoleAt(t, store, "pole-1", 0, 0, 10, 5)
	addGeneratorAt(t, store, "gen-1", 2, 0, 10)
	addConsumerAt(t, store, "cons-1", -2, 0, 10)
	store.GetGenerator("gen-1").Inventory[FuelCoal] = 1

	rec := &recorderStub{}
	engine := NewSimulationEngine(store, WithMetrics(rec))

	engine.Run(context.Background(), 3, time.Second)

	if rec.tickDurations != 3 {
		t.Fatalf("tick observations = %d, want 3", rec.tickDurations)
	}
	if rec.production != 10 || rec.consumption != 10 {
		t.Fatalf("totals = %v/%v, want 10/10", rec.production, rec.consumption)
	}
	if engine.TickCount() != 3 {
		t.Fatalf("TickCount = %d, want 3", engine.TickCount())
	}
	if engine.Elapsed() != 3*time.Second {
		t.Fatalf("Elapsed = %v, want 3s", engine.Elapsed())
	}
}

func TestEngineNotifiesTickListeners(t *testing.T) {
	store := NewPowerStore()
	engine := NewSimulationEngine(store)

	var ticks []int
	engine.RegisterTickListener(func(tick int, _ time.Duration) {
		ticks = append(ticks, tick)
	})

	engine.Run(context.Background(), 2, time.Second)

	if len(ticks) != 2 || ticks[0] != 1 || ticks[1] != 2 {
		t.Fatalf("listener ticks = %v, want [1 2]", ticks)
	}
}

// Placing a structure without marking dirty leaves the stale partition
// in effect until the next MarkDirty, by design of the dirty gate.
func TestEngineStalePartitionUntilMarked(t *testing.T) {
	store := NewPowerStore()
	addPoleAt(t, store, "pole-1", 0, 0, 10, 5)

	engine := NewSimulationEngine(store)
	ctx := context.Background()
	engine.Step(ctx, time.Second)

	if len(store.Networks()) != 1 {
		t.Fatalf("expected 1 network after initial rebuild")
	}

	// A second pole appears but nothing raises the flag.
	addPoleAt(t, store, "pole-2", 100, 0, 10, 5)
	engine.Step(ctx, time.Second)
	if len(store.Networks()) != 1 {
		t.Fatalf("partition rebuilt without a dirty mark")
	}

	engine.MarkDirty()
	engine.Step(ctx, time.Second)
	if len(store.Networks()) != 2 {
		t.Fatalf("expected 2 networks after marked rebuild, got %d", len(store.Networks()))
	}
}

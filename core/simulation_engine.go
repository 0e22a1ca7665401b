package core

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/factory-power-simulator/internal/logging"
)

// TickMetricsRecorder receives per-tick measurements from the engine.
// Implemented by observability.PowerCollector; nil disables recording.
type TickMetricsRecorder interface {
	ObserveTickDuration(d time.Duration)
	IncNetworkRebuilds()
	SetNetworkCount(n int)
	SetPowerTotals(production, consumption, minSatisfaction float64)
}

// SimulationEngine runs the power simulation: rebuild the network
// partition when topology is dirty, then balance every network. Both
// components run fully to completion within one tick; there are no
// suspension points and no concurrent mutation of simulation state.
type SimulationEngine struct {
	Store    *PowerStore
	Builder  *NetworkBuilder
	Balancer *NetworkBalancer

	mu      sync.Mutex
	dirty   bool
	elapsed time.Duration

	tickListeners []func(tick int, elapsed time.Duration)
	tickCount     int

	log     logging.Logger
	metrics TickMetricsRecorder
}

// EngineOption customises SimulationEngine construction.
type EngineOption func(*SimulationEngine)

// WithLogger attaches a structured logger for per-tick events.
func WithLogger(log logging.Logger) EngineOption {
	return func(se *SimulationEngine) { se.log = log }
}

// WithMetrics attaches a per-tick metrics recorder.
func WithMetrics(m TickMetricsRecorder) EngineOption {
	return func(se *SimulationEngine) { se.metrics = m }
}

func NewSimulationEngine(store *PowerStore, opts ...EngineOption) *SimulationEngine {
	se := &SimulationEngine{
		Store:    store,
		Builder:  NewNetworkBuilder(store),
		Balancer: NewNetworkBalancer(store),
		log:      logging.Noop(),
		// topology starts dirty so the first tick builds the initial
		// partition from whatever the scenario placed
		dirty: true,
	}
	for _, opt := range opts {
		opt(se)
	}
	return se
}

// MarkDirty flags the topology for a rebuild on the next tick. Raised
// by placement and removal events; a rebuild can be deferred
// indefinitely by simply never marking.
func (se *SimulationEngine) MarkDirty() {
	se.mu.Lock()
	se.dirty = true
	se.mu.Unlock()
}

// RegisterTickListener adds a callback invoked after each completed
// tick.
func (se *SimulationEngine) RegisterTickListener(fn func(tick int, elapsed time.Duration)) {
	se.tickListeners = append(se.tickListeners, fn)
}

// Step advances the simulation by one tick of the given duration. The
// builder runs only when topology is dirty; the balancer runs every
// tick regardless.
func (se *SimulationEngine) Step(ctx context.Context, tick time.Duration) {
	start := time.Now()

	tracer := otel.Tracer("factory-power-simulator/core")
	ctx, span := tracer.Start(ctx, "engine.Step")
	defer span.End()

	se.mu.Lock()
	rebuild := se.dirty
	se.dirty = false
	se.elapsed += tick
	elapsed := se.elapsed
	se.tickCount++
	tickNo := se.tickCount
	se.mu.Unlock()

	if rebuild {
		_, rebuildSpan := tracer.Start(ctx, "engine.Rebuild")
		networks := se.Builder.Rebuild()
		rebuildSpan.SetAttributes(attribute.Int("networks", len(networks)))
		rebuildSpan.End()

		span.SetAttributes(attribute.Int("networks", len(networks)))
		if se.metrics != nil {
			se.metrics.IncNetworkRebuilds()
			se.metrics.SetNetworkCount(len(networks))
		}
		se.log.Debug(ctx, "network partition rebuilt",
			logging.Int("tick", tickNo),
			logging.Int("networks", len(networks)),
		)
	}

	_, balanceSpan := tracer.Start(ctx, "engine.BalanceAll")
	se.Balancer.BalanceAll(elapsed, tick)
	balanceSpan.End()

	if se.metrics != nil {
		production, consumption, minSat := se.totals()
		se.metrics.SetPowerTotals(production, consumption, minSat)
		se.metrics.ObserveTickDuration(time.Since(start))
	}

	for _, fn := range se.tickListeners {
		fn(tickNo, elapsed)
	}
}

// Run advances the simulation by the given number of ticks. Used by
// tests and headless runs; interactive runs drive Step from a time
// controller instead.
func (se *SimulationEngine) Run(ctx context.Context, ticks int, tick time.Duration) {
	for i := 0; i < ticks; i++ {
		se.Step(ctx, tick)
	}
}

// TickCount returns the number of completed ticks.
func (se *SimulationEngine) TickCount() int {
	se.mu.Lock()
	defer se.mu.Unlock()
	return se.tickCount
}

// Elapsed returns total simulated time since engine construction.
func (se *SimulationEngine) Elapsed() time.Duration {
	se.mu.Lock()
	defer se.mu.Unlock()
	return se.elapsed
}

// totals aggregates partition-wide production/consumption and the
// minimum satisfaction across networks with demand, for metric gauges.
func (se *SimulationEngine) totals() (production, consumption, minSat float64) {
	minSat = 1.0
	for _, net := range se.Store.Networks() {
		production += net.TotalProduction
		consumption += net.TotalConsumption
		if net.TotalConsumption > 0 && net.Satisfaction < minSat {
			minSat = net.Satisfaction
		}
	}
	return production, consumption, minSat
}

package core

import (
	"math"
	"time"
)

// DefaultDayLength is the period of the day/night cycle used for solar
// output when the caller does not configure one.
const DefaultDayLength = 10 * time.Minute

// NetworkBalancer runs the per-tick power balance for every network in
// the current partition. The pass is deliberately two-step: consumption
// is aggregated first, then generator burn decisions are made against
// that demand, so output responds to the demand of the same tick rather
// than solving a fixed point within it.
type NetworkBalancer struct {
	Store *PowerStore

	// FuelEnergy maps fuel items to joules per item. Defaults to
	// DefaultFuelEnergy when nil.
	FuelEnergy map[FuelType]float64

	// DayLength is the period of the sinusoidal day/night cycle.
	DayLength time.Duration
}

func NewNetworkBalancer(store *PowerStore) *NetworkBalancer {
	return &NetworkBalancer{
		Store:      store,
		FuelEnergy: DefaultFuelEnergy,
		DayLength:  DefaultDayLength,
	}
}

// BalanceAll balances every network in the current partition. elapsed
// is total simulation time since start (drives the day/night factor),
// tick is the fixed tick duration. Both are explicit parameters so the
// pass is testable without ambient clock state.
func (b *NetworkBalancer) BalanceAll(elapsed, tick time.Duration) {
	for _, net := range b.Store.Networks() {
		b.Balance(net, elapsed, tick)
	}
}

// generator scratch: decided but not yet written back.
type generatorDecision struct {
	gen           *Generator
	output        float64
	fuelRemaining float64
	reload        bool
	reloadFuel    FuelType
}

// accumulator scratch.
type accumulatorDecision struct {
	acc    *Accumulator
	stored float64
	mode   AccumulatorMode
}

// Balance runs the two-pass balance for one network and commits the
// results. All outputs are computed into local scratch first and only
// written to shared components once the whole network is finalised, so
// a half-updated consumer can never feed back into the same tick's
// generator decisions.
func (b *NetworkBalancer) Balance(net *PowerNetwork, elapsed, tick time.Duration) {
	dt := tick.Seconds()

	// Pass 1: aggregate demand.
	totalConsumption := b.aggregateConsumption(net)

	// Pass 2: decide production against that demand.
	storageHeadroom := b.storageBelowCapacity(net)
	gens, production := b.decideGeneration(net, totalConsumption, storageHeadroom, dt)
	production += b.solarOutput(net, elapsed)

	availability := 0.0
	if production > 0 {
		availability = clamp((production-totalConsumption)/production, 0, 1)
	}

	// Storage: discharge into a shortfall, then absorb any surplus.
	// Order across accumulators is member-list order; when a transfer
	// exceeds one accumulator's bounds the remainder cascades to the
	// next, with no fairness guarantee.
	available := production
	accs := make([]accumulatorDecision, 0, len(net.Accumulators))
	for _, id := range net.Accumulators {
		acc := b.Store.GetAccumulator(id)
		if acc == nil {
			continue
		}
		accs = append(accs, accumulatorDecision{acc: acc, stored: acc.Stored, mode: AccumulatorIdle})
	}

	if available < totalConsumption {
		for i := range accs {
			deficit := totalConsumption - available
			if deficit <= 0 {
				break
			}
			a := &accs[i]
			discharge := math.Min(a.stored, math.Min(deficit*dt, a.acc.ChargeRate*dt))
			if discharge <= 0 {
				continue
			}
			a.stored -= discharge
			a.mode = AccumulatorDischarging
			available += discharge / dt
		}
	}

	if available > totalConsumption {
		surplus := available - totalConsumption
		for i := range accs {
			if surplus <= 0 {
				break
			}
			a := &accs[i]
			headroom := a.acc.Capacity - a.stored
			charge := math.Min(headroom, math.Min(surplus*dt, a.acc.ChargeRate*dt))
			if charge <= 0 {
				continue
			}
			a.stored += charge
			a.mode = AccumulatorCharging
			surplus -= charge / dt
		}
	}

	satisfaction := 1.0
	if totalConsumption > 0 {
		satisfaction = math.Min(available/totalConsumption, 1.0)
	}

	// Commit: flow results are final for this tick, write them back.
	net.TotalProduction = production
	net.TotalConsumption = totalConsumption
	net.Satisfaction = satisfaction
	net.Availability = availability

	for _, d := range gens {
		if d.reload {
			d.gen.Inventory[d.reloadFuel]--
			d.gen.LoadedFuel = d.reloadFuel
		}
		d.gen.CurrentOutput = d.output
		d.gen.FuelRemaining = d.fuelRemaining
	}
	for _, a := range accs {
		a.acc.Stored = a.stored
		a.acc.Mode = a.mode
	}
	for _, id := range net.Consumers {
		c := b.Store.GetConsumer(id)
		if c == nil {
			// Despawned mid-tick; skip rather than fail the tick.
			continue
		}
		c.Satisfaction = satisfaction
	}
}

// aggregateConsumption sums the rated demand of all member consumers.
func (b *NetworkBalancer) aggregateConsumption(net *PowerNetwork) float64 {
	total := 0.0
	for _, id := range net.Consumers {
		if c := b.Store.GetConsumer(id); c != nil {
			total += c.Consumption
		}
	}
	return total
}

// storageBelowCapacity reports whether any member accumulator has room
// to charge. Generators keep burning into storage headroom even with
// zero consumer demand.
func (b *NetworkBalancer) storageBelowCapacity(net *PowerNetwork) bool {
	for _, id := range net.Accumulators {
		if a := b.Store.GetAccumulator(id); a != nil && a.Stored < a.Capacity {
			return true
		}
	}
	return false
}

// decideGeneration makes the per-generator burn decision: when demand
// or storage headroom wants power, reload dry generators from inventory
// (fuel priority order) and burn at full rated power; otherwise idle
// without loading or consuming fuel. Output is binary per tick; there
// is no partial throttling.
func (b *NetworkBalancer) decideGeneration(net *PowerNetwork, totalConsumption float64, storageHeadroom bool, dt float64) ([]generatorDecision, float64) {
	fuelEnergy := b.FuelEnergy
	if fuelEnergy == nil {
		fuelEnergy = DefaultFuelEnergy
	}

	decisions := make([]generatorDecision, 0, len(net.Generators))
	total := 0.0

	for _, id := range net.Generators {
		gen := b.Store.GetGenerator(id)
		if gen == nil {
			continue
		}

		d := generatorDecision{
			gen:           gen,
			fuelRemaining: gen.FuelRemaining,
		}

		wantPower := totalConsumption > 0 || storageHeadroom
		if d.fuelRemaining <= 0 && wantPower {
			if ft, energy, ok := peekFuel(gen, fuelEnergy); ok {
				d.reload = true
				d.reloadFuel = ft
				d.fuelRemaining = energy
			}
		}

		if d.fuelRemaining > 0 && wantPower {
			d.output = gen.RatedOutput
			d.fuelRemaining -= gen.RatedOutput * dt
			if d.fuelRemaining < 0 {
				d.fuelRemaining = 0
			}
			total += d.output
		}

		decisions = append(decisions, d)
	}

	return decisions, total
}

// solarOutput sums member solar panel output at the given simulation
// time and records it on the panels. Panels have no burn decision and
// no feedback on demand, so writing their output directly is safe.
func (b *NetworkBalancer) solarOutput(net *PowerNetwork, elapsed time.Duration) float64 {
	factor := b.daylightFactor(elapsed)
	total := 0.0
	for _, id := range net.SolarPanels {
		sp := b.Store.GetSolarPanel(id)
		if sp == nil {
			continue
		}
		sp.CurrentOutput = sp.RatedOutput * factor
		total += sp.CurrentOutput
	}
	return total
}

// daylightFactor is the day/night scale in [0,1]: a sinusoid over the
// configured day length, clamped at zero during the night half-cycle.
func (b *NetworkBalancer) daylightFactor(elapsed time.Duration) float64 {
	day := b.DayLength
	if day <= 0 {
		day = DefaultDayLength
	}
	phase := 2 * math.Pi * float64(elapsed%day) / float64(day)
	return math.Max(0, math.Sin(phase))
}

// peekFuel finds the fuel item a reload would consume, without taking
// it; the commit phase performs the actual decrement.
func peekFuel(g *Generator, energy map[FuelType]float64) (FuelType, float64, bool) {
	for _, ft := range fuelPriority {
		if g.Inventory[ft] > 0 {
			return ft, energy[ft], true
		}
	}
	return "", 0, false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

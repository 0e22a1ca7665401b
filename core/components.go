package core

// NoNetwork is the network identifier carried by an entity that has not
// been assigned to any network by the last rebuild. Identifiers are
// indices into the current network partition and are only meaningful
// after bounds-checking against it; stale values must be tolerated.
const NoNetwork = -1

// Pole distributes power: it energises equipment within its supply
// radius and connects to other poles within wire reach. Connections and
// the network identifier are recomputed by the NetworkBuilder on every
// rebuild, never hand-edited.
type Pole struct {
	ID string `json:"ID"`

	// SupplyRadius is the distance (tiles) within which the pole
	// energises generators, consumers and accumulators.
	SupplyRadius float64 `json:"SupplyRadius"`

	// WireReach is the maximum distance (tiles) to another pole for a
	// wire connection.
	WireReach float64 `json:"WireReach"`

	// Connections lists the IDs of directly connected poles, as
	// discovered by the last rebuild.
	Connections []string `json:"Connections,omitempty"`

	// NetworkID indexes the current network partition, or NoNetwork.
	NetworkID int `json:"NetworkID"`
}

// FuelType identifies a burnable item accepted by generators.
type FuelType string

const (
	FuelCoal      FuelType = "coal"
	FuelWood      FuelType = "wood"
	FuelSolidFuel FuelType = "solid-fuel"
)

// fuelPriority is the order in which a generator reloads from its
// inventory when its current fuel is exhausted.
var fuelPriority = []FuelType{FuelCoal, FuelWood, FuelSolidFuel}

// DefaultFuelEnergy maps fuel items to the energy (joules) released by
// burning one of them.
var DefaultFuelEnergy = map[FuelType]float64{
	FuelCoal:      4e6,
	FuelWood:      2e6,
	FuelSolidFuel: 12e6,
}

// Generator is a fuel-burning power source. Output is binary per tick:
// either full rated power or nothing. Idle generators (no demand and no
// accumulator headroom in the network) do not burn fuel.
type Generator struct {
	ID string `json:"ID"`

	// RatedOutput is the power (watts) produced while burning.
	RatedOutput float64 `json:"RatedOutput"`

	// CurrentOutput is the output (watts) decided for the latest tick.
	CurrentOutput float64 `json:"CurrentOutput"`

	// FuelRemaining is the energy (joules) left from the currently
	// loaded fuel item.
	FuelRemaining float64 `json:"FuelRemaining"`

	// LoadedFuel names the fuel type currently burning, empty when the
	// generator has never been fuelled or ran dry without a refill.
	LoadedFuel FuelType `json:"LoadedFuel,omitempty"`

	// Inventory counts fuel items available for reloading.
	Inventory map[FuelType]int `json:"Inventory,omitempty"`

	NetworkID int `json:"NetworkID"`
}

// SolarPanel produces rated output scaled by the day/night factor. No
// fuel dependency.
type SolarPanel struct {
	ID string `json:"ID"`

	RatedOutput   float64 `json:"RatedOutput"`
	CurrentOutput float64 `json:"CurrentOutput"`

	NetworkID int `json:"NetworkID"`
}

// Consumer draws a steady-state power demand. Satisfaction is the last
// ratio written by the NetworkBalancer; other systems read it as a
// throttle on their own processing rate.
type Consumer struct {
	ID string `json:"ID"`

	// Consumption is the rated power demand (watts).
	Consumption float64 `json:"Consumption"`

	// Satisfaction is in [0,1].
	Satisfaction float64 `json:"Satisfaction"`

	NetworkID int `json:"NetworkID"`
}

// AccumulatorMode reflects what an accumulator did on the most recent
// tick.
type AccumulatorMode string

const (
	AccumulatorIdle        AccumulatorMode = "idle"
	AccumulatorCharging    AccumulatorMode = "charging"
	AccumulatorDischarging AccumulatorMode = "discharging"
)

// Accumulator is buffered energy storage. Charge and discharge are both
// bounded per tick by ChargeRate × tick duration.
type Accumulator struct {
	ID string `json:"ID"`

	// Capacity is the maximum stored energy (joules).
	Capacity float64 `json:"Capacity"`

	// Stored is the current energy (joules), always in [0, Capacity].
	Stored float64 `json:"Stored"`

	// ChargeRate bounds transfer in either direction (watts).
	ChargeRate float64 `json:"ChargeRate"`

	// Mode reflects the most recent tick's behaviour.
	Mode AccumulatorMode `json:"Mode"`

	NetworkID int `json:"NetworkID"`
}

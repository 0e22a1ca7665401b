package core

// PowerNetwork is one connected component of the pole graph together
// with all equipment energised by its poles. Networks are ephemeral:
// the partition is rebuilt wholesale whenever topology is dirty, never
// patched incrementally, so references to a previous partition's
// networks must not be retained across a rebuild.
type PowerNetwork struct {
	// ID is the network's index in the current partition.
	ID int

	Poles        []string
	Generators   []string
	SolarPanels  []string
	Consumers    []string
	Accumulators []string

	// Totals computed by the last balancing pass.
	TotalProduction  float64 // watts
	TotalConsumption float64 // watts

	// Satisfaction is the ratio of power available to power demanded,
	// in [0,1]. A network with no consumers reports 1.0 by convention.
	Satisfaction float64

	// Availability is clamp((production-consumption)/production, 0, 1)
	// when production is positive, else 0. Diagnostic only.
	Availability float64
}

// contains reports whether id is already present in members. Membership
// can be discovered twice during a rebuild (global equipment scan and
// per-pole proximity pass); this containment check keeps member lists
// free of duplicates.
func contains(members []string, id string) bool {
	for _, m := range members {
		if m == id {
			return true
		}
	}
	return false
}

// NetworkStats is the per-network summary exposed to other systems.
type NetworkStats struct {
	Production   float64 `json:"Production"`
	Consumption  float64 `json:"Consumption"`
	Satisfaction float64 `json:"Satisfaction"`
	Availability float64 `json:"Availability"`
}

// Stats returns the network's latest balancing totals.
func (n *PowerNetwork) Stats() NetworkStats {
	return NetworkStats{
		Production:   n.TotalProduction,
		Consumption:  n.TotalConsumption,
		Satisfaction: n.Satisfaction,
		Availability: n.Availability,
	}
}

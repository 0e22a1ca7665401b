package core

import "sort"

// NetworkBuilder partitions all power-relevant entities into disjoint
// PowerNetworks: one breadth-first flood fill per connected component
// of the pole graph, annotating every member pole with its connection
// list and every member entity with the resolved network identifier.
//
// The builder runs only when topology is dirty (a structure was placed,
// removed or moved); the SimulationEngine owns the dirty flag and calls
// Rebuild at most once per tick.
type NetworkBuilder struct {
	Store *PowerStore
}

func NewNetworkBuilder(store *PowerStore) *NetworkBuilder {
	return &NetworkBuilder{Store: store}
}

// Rebuild recomputes the partition from scratch and installs it in the
// store. Two poles land in the same network iff a chain of wire edges
// connects them; a wire edge exists when the distance from the pole
// being visited to the other pole is within the visiting pole's wire
// reach. Equipment joins the network of the first visited pole whose
// supply area covers it.
//
// Poles are seeded and scanned in ascending entity-ID order, so a
// rebuild with unchanged topology yields an identical partition with
// stable identifiers. Absence of poles is not an error: it simply
// yields an empty partition.
func (nb *NetworkBuilder) Rebuild() []*PowerNetwork {
	store := nb.Store
	poleIDs := store.PoleIDsSorted()

	// Reset derived connectivity state. Stale network identifiers on
	// entities outside any supply area stay invalid (NoNetwork) after
	// the rebuild.
	for _, id := range poleIDs {
		p := store.GetPole(id)
		p.Connections = p.Connections[:0]
		p.NetworkID = NoNetwork
	}
	for _, g := range store.AllGenerators() {
		g.NetworkID = NoNetwork
	}
	for _, sp := range store.AllSolarPanels() {
		sp.NetworkID = NoNetwork
	}
	for _, c := range store.AllConsumers() {
		c.NetworkID = NoNetwork
	}
	for _, a := range store.AllAccumulators() {
		a.NetworkID = NoNetwork
	}

	var networks []*PowerNetwork
	visited := make(map[string]bool, len(poleIDs))

	for _, seedID := range poleIDs {
		if visited[seedID] {
			continue
		}

		net := &PowerNetwork{ID: len(networks)}
		nb.floodFill(seedID, net, visited, poleIDs)

		// Equipment is discovered in map-iteration order; sort the
		// member lists so rebuilds with unchanged topology produce
		// identical partitions. Pole order stays BFS order, which is
		// already deterministic given the sorted seed scan.
		sort.Strings(net.Generators)
		sort.Strings(net.SolarPanels)
		sort.Strings(net.Consumers)
		sort.Strings(net.Accumulators)

		networks = append(networks, net)
	}

	store.SetNetworks(networks)
	return networks
}

// floodFill grows one network from the seed pole: classic BFS where
// every dequeued pole contributes wire edges to all still-unvisited
// poles within its reach, and claims nearby equipment for the network.
func (nb *NetworkBuilder) floodFill(seedID string, net *PowerNetwork, visited map[string]bool, poleIDs []string) {
	store := nb.Store

	queue := []string{seedID}
	visited[seedID] = true

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		pole := store.GetPole(id)
		if pole == nil {
			continue
		}
		pos, ok := store.GetPlacement(id)
		if !ok {
			continue
		}

		pole.NetworkID = net.ID
		net.Poles = append(net.Poles, id)

		// Wire edges to unvisited poles within this pole's reach.
		// Edges to already-visited poles of the same component were
		// recorded symmetrically when those poles were dequeued, so
		// scanning only unvisited ones keeps connection lists complete
		// without duplicates.
		for _, otherID := range poleIDs {
			if visited[otherID] {
				continue
			}
			other := store.GetPole(otherID)
			otherPos, ok := store.GetPlacement(otherID)
			if other == nil || !ok {
				continue
			}
			if pos.Pos.DistanceTo(otherPos.Pos) > pole.WireReach {
				continue
			}

			pole.Connections = append(pole.Connections, otherID)
			other.Connections = append(other.Connections, id)
			visited[otherID] = true
			queue = append(queue, otherID)
		}

		nb.claimEquipment(pole, pos.Pos, net)
	}
}

// claimEquipment assigns every generator, solar panel, consumer and
// accumulator within the pole's supply area to the network. An entity
// already claimed, whether by this network via an earlier pole or by
// another network, is left where it is: membership is at most one
// network, and the containment check keeps the dual discovery passes
// from appending duplicates.
func (nb *NetworkBuilder) claimEquipment(pole *Pole, polePos Vec2, net *PowerNetwork) {
	store := nb.Store

	for _, g := range store.AllGenerators() {
		if g.NetworkID != NoNetwork {
			continue
		}
		if !nb.inSupplyArea(polePos, pole.SupplyRadius, g.ID) {
			continue
		}
		if !contains(net.Generators, g.ID) {
			g.NetworkID = net.ID
			net.Generators = append(net.Generators, g.ID)
		}
	}
	for _, sp := range store.AllSolarPanels() {
		if sp.NetworkID != NoNetwork {
			continue
		}
		if !nb.inSupplyArea(polePos, pole.SupplyRadius, sp.ID) {
			continue
		}
		if !contains(net.SolarPanels, sp.ID) {
			sp.NetworkID = net.ID
			net.SolarPanels = append(net.SolarPanels, sp.ID)
		}
	}
	for _, c := range store.AllConsumers() {
		if c.NetworkID != NoNetwork {
			continue
		}
		if !nb.inSupplyArea(polePos, pole.SupplyRadius, c.ID) {
			continue
		}
		if !contains(net.Consumers, c.ID) {
			c.NetworkID = net.ID
			net.Consumers = append(net.Consumers, c.ID)
		}
	}
	for _, a := range store.AllAccumulators() {
		if a.NetworkID != NoNetwork {
			continue
		}
		if !nb.inSupplyArea(polePos, pole.SupplyRadius, a.ID) {
			continue
		}
		if !contains(net.Accumulators, a.ID) {
			a.NetworkID = net.ID
			net.Accumulators = append(net.Accumulators, a.ID)
		}
	}
}

func (nb *NetworkBuilder) inSupplyArea(polePos Vec2, radius float64, entityID string) bool {
	pl, ok := nb.Store.GetPlacement(entityID)
	if !ok {
		// Entity despawned mid-tick; skip rather than fail.
		return false
	}
	return withinSupplyRange(polePos, radius, pl.Pos, pl.Footprint)
}

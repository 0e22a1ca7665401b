package model

// StructureKind classifies a placeable structure by its role in the
// power simulation.
type StructureKind string

const (
	KindPole        StructureKind = "pole"
	KindGenerator   StructureKind = "generator"
	KindSolarPanel  StructureKind = "solar-panel"
	KindConsumer    StructureKind = "consumer"
	KindAccumulator StructureKind = "accumulator"
)

// StructureDefinition is a prototype for a placeable structure. A
// placed entity references a definition by name; the per-kind fields
// that do not apply to the kind are simply zero and ignored.
type StructureDefinition struct {
	Name string        `yaml:"name" json:"name"`
	Kind StructureKind `yaml:"kind" json:"kind"`

	// Footprint in tiles. Zero means a 1x1 structure.
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`

	// Pole fields.
	SupplyRadius float64 `yaml:"supply_radius" json:"supply_radius"`
	WireReach    float64 `yaml:"wire_reach" json:"wire_reach"`

	// Generator / solar panel fields (watts).
	RatedOutput float64 `yaml:"rated_output" json:"rated_output"`

	// Consumer fields (watts).
	Consumption float64 `yaml:"consumption" json:"consumption"`

	// Accumulator fields. Capacity is in joules, ChargeRate in watts.
	Capacity   float64 `yaml:"capacity" json:"capacity"`
	ChargeRate float64 `yaml:"charge_rate" json:"charge_rate"`
}

// FootprintOrDefault returns the footprint, defaulting to 1x1.
func (d StructureDefinition) FootprintOrDefault() (w, h float64) {
	w, h = d.Width, d.Height
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	return w, h
}

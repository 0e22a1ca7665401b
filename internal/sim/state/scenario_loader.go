// internal/sim/state/scenario_loader.go
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/signalsfoundry/factory-power-simulator/core"
)

// FactoryScenario is a small summary of what was loaded from JSON.
// It's mainly useful for logging or debugging from main().
type FactoryScenario struct {
	StructureIDs []string
}

// internal JSON shapes - keep them unexported so we're free to evolve them.
type factoryScenarioJSON struct {
	Structures []placedStructureJSON `json:"structures"`
}

type placedStructureJSON struct {
	ID        string  `json:"id"`
	Prototype string  `json:"prototype"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`

	// Optional generator starting fuel, item counts per fuel type.
	Fuel map[string]int `json:"fuel,omitempty"`

	// Optional accumulator starting charge (joules).
	Stored float64 `json:"stored,omitempty"`
}

// LoadFactoryScenario reads a JSON scenario from r and places every
// structure through the FactoryState, so component creation and dirty
// flagging follow the normal placement path.
//
// It deliberately fails only on JSON / structural errors and unknown
// prototypes; per-structure placement errors abort the load with the
// offending structure named.
func LoadFactoryScenario(ctx context.Context, fs *FactoryState, r io.Reader) (*FactoryScenario, error) {
	if fs == nil {
		return nil, fmt.Errorf("LoadFactoryScenario: state is nil")
	}

	var payload factoryScenarioJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadFactoryScenario: decode failed: %w", err)
	}

	result := &FactoryScenario{
		StructureIDs: make([]string, 0, len(payload.Structures)),
	}

	for _, js := range payload.Structures {
		if js.Prototype == "" {
			return nil, fmt.Errorf("LoadFactoryScenario: structure with empty prototype")
		}

		id, err := fs.PlaceStructure(ctx, js.ID, js.Prototype, js.X, js.Y)
		if err != nil {
			return nil, fmt.Errorf("LoadFactoryScenario: place %q: %w", js.Prototype, err)
		}

		if len(js.Fuel) > 0 {
			if gen := fs.power.GetGenerator(id); gen != nil {
				for name, count := range js.Fuel {
					gen.Inventory[core.FuelType(name)] += count
				}
			}
		}
		if js.Stored > 0 {
			if acc := fs.power.GetAccumulator(id); acc != nil {
				acc.Stored = js.Stored
				if acc.Stored > acc.Capacity {
					acc.Stored = acc.Capacity
				}
			}
		}

		result.StructureIDs = append(result.StructureIDs, id)
	}

	return result, nil
}

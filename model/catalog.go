package model

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog maps prototype names to structure definitions.
type Catalog map[string]StructureDefinition

// catalogFile is the YAML shape of a catalog file.
type catalogFile struct {
	Structures []StructureDefinition `yaml:"structures"`
}

// LoadCatalog reads a structure catalog from YAML.
func LoadCatalog(r io.Reader) (Catalog, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("LoadCatalog: decode failed: %w", err)
	}

	catalog := make(Catalog, len(file.Structures))
	for _, def := range file.Structures {
		if def.Name == "" {
			return nil, fmt.Errorf("LoadCatalog: structure with empty name")
		}
		if _, exists := catalog[def.Name]; exists {
			return nil, fmt.Errorf("LoadCatalog: duplicate structure %q", def.Name)
		}
		switch def.Kind {
		case KindPole, KindGenerator, KindSolarPanel, KindConsumer, KindAccumulator:
		default:
			return nil, fmt.Errorf("LoadCatalog: structure %q has unknown kind %q", def.Name, def.Kind)
		}
		catalog[def.Name] = def
	}
	return catalog, nil
}

// LoadCatalogFile reads a structure catalog from a YAML file on disk.
func LoadCatalogFile(path string) (Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("LoadCatalogFile: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

// Get returns the definition for a prototype name.
func (c Catalog) Get(name string) (StructureDefinition, bool) {
	def, ok := c[name]
	return def, ok
}

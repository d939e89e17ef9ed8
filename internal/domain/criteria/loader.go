package criteria

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk shape:
//
//	individual:
//	  - id: leadership
//	    display_name: Leadership
//	    max_value: 10
//	group:
//	  - ...
//
// A missing section falls back to the built-in catalog for that kind.
type catalogFile struct {
	Individual []Criterion `yaml:"individual"`
	Group      []Criterion `yaml:"group"`
}

// Parse builds a Set from YAML.
func Parse(data []byte) (Set, error) {
	var raw catalogFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Set{}, fmt.Errorf("%w: parse yaml: %v", ErrInvalidCatalog, err)
	}

	set := Defaults()
	if len(raw.Individual) > 0 {
		c, err := NewCatalog(Individual, raw.Individual)
		if err != nil {
			return Set{}, err
		}
		set.Individual = c
	}
	if len(raw.Group) > 0 {
		c, err := NewCatalog(Group, raw.Group)
		if err != nil {
			return Set{}, err
		}
		set.Group = c
	}
	return set, nil
}

// LoadFile reads a catalog YAML file. An empty path yields the defaults.
func LoadFile(path string) (Set, error) {
	if path == "" {
		return Defaults(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

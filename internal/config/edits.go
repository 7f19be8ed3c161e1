package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Edits is an apply file. Edits address strings by the id printed by scan;
// Replace addresses every string whose original text matches a key.
type Edits struct {
	Edits   map[int]string    `yaml:"edits"`
	Replace map[string]string `yaml:"replace"`
}

// LoadEdits reads an apply file.
func LoadEdits(path string) (*Edits, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var e Edits
	if err := yaml.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("edits: %s: %w", path, err)
	}
	if len(e.Edits) == 0 && len(e.Replace) == 0 {
		return nil, fmt.Errorf("edits: %s: no edits or replace entries", path)
	}
	return &e, nil
}

// IDs returns the edit ids in ascending order.
func (e *Edits) IDs() []int {
	ids := make([]int, 0, len(e.Edits))
	for id := range e.Edits {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

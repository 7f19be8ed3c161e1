package discovery

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultInclude selects every class file in the archive.
var DefaultInclude = []string{"**/*.class"}

// SelectEntries filters archive entry names by doublestar include and
// exclude patterns, preserving archive order.
func SelectEntries(names, include, exclude []string) ([]string, error) {
	if len(include) == 0 {
		include = DefaultInclude
	}
	for _, p := range append(append([]string(nil), include...), exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("discovery: invalid glob pattern: %s", p)
		}
	}

	var out []string
	for _, name := range names {
		if matchAny(include, name) && !matchAny(exclude, name) {
			out = append(out, name)
		}
	}
	return out, nil
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

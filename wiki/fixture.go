package wiki

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Fixture is an offline corpus file:
//
//	pages:
//	  docs:start: |
//	    ====== Start ======
//	    See [[install]].
type Fixture struct {
	Pages map[string]string `yaml:"pages"`
}

// LoadFixture reads a YAML corpus from path.
func LoadFixture(path string) (*MemorySource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wiki: read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes a YAML corpus.
func ParseFixture(data []byte) (*MemorySource, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("wiki: parse fixture: %w", err)
	}
	if len(f.Pages) == 0 {
		return nil, fmt.Errorf("wiki: fixture has no pages")
	}
	return NewMemorySource(f.Pages), nil
}

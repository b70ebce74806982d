package gomxf

import (
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads a YAML file into a Config, applying DefaultConfig first
// so unset fields keep sane defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns a Config with the same defaults cmd/main.go wires
// onto its flags: read the whole file, no region of interest, no lookup.
func DefaultConfig() *Config {
	return &Config{
		NRead:   -1,
		ROI:     -1,
		Index:   -1,
		Reorder: true,
	}
}

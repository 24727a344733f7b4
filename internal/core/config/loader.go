package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file. Environment variable
// references in the file (e.g. ${MASTODON_TOKEN}) are expanded before
// parsing, which is how credentials reach source entries.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Pipeline.SeenTTL == 0 {
		cfg.Pipeline.SeenTTL = 72 * time.Hour
	}

	for i := range cfg.Sources {
		s := &cfg.Sources[i]
		if s.Name == "" {
			s.Name = s.Type
		}
		if s.Limit == 0 {
			s.Limit = 25
		}
		if s.MaxItems == 0 {
			s.MaxItems = 100
		}
		if s.Timeout == 0 {
			s.Timeout = 30 * time.Second
		}
		if s.UserAgent == "" {
			s.UserAgent = "skimmer/1.0 (content aggregation; +https://github.com/tdngyn/skimmer)"
		}
		if s.Listing == "" {
			s.Listing = "hot"
		}
	}

	return &cfg, nil
}

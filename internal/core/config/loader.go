package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
	}
	if cfg.Catalog.Paths.Roles == "" {
		cfg.Catalog.Paths.Roles = "data/roles.json"
	}
	if cfg.Catalog.Paths.Numbers == "" {
		cfg.Catalog.Paths.Numbers = "data/numbers.json"
	}
	if cfg.Catalog.Paths.Schedules == "" {
		cfg.Catalog.Paths.Schedules = "data/schedules.json"
	}
	if len(cfg.Catalog.ScheduleProfiles) == 0 {
		cfg.Catalog.ScheduleProfiles = []string{"Call Center Agent", "Client Executive"}
	}
	if cfg.Intake.Table == "" {
		cfg.Intake.Table = "requests"
	}

	return &cfg, nil
}

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/simbridge/core/control"
	"github.com/kilianp07/simbridge/core/journal"
	"github.com/kilianp07/simbridge/core/metrics"
	"github.com/kilianp07/simbridge/core/planner"
	"github.com/kilianp07/simbridge/infra/listener"
	"github.com/kilianp07/simbridge/infra/monitoring"
	"github.com/kilianp07/simbridge/infra/mqtt"
	"github.com/kilianp07/simbridge/infra/transmit"
)

// EnvPrefix marks environment overrides. Nested keys are separated by a
// double underscore, e.g. K_PLANNER__LOOKAHEAD_DISTANCE.
const EnvPrefix = "K_"

type Config struct {
	Listener   listener.Config   `json:"listener"`
	Transmit   transmit.Config   `json:"transmit"`
	Planner    planner.Config    `json:"planner"`
	Control    control.Config    `json:"control"`
	MQTT       mqtt.Config       `json:"mqtt"`
	Metrics    metrics.Config    `json:"metrics"`
	Journal    journal.Config    `json:"journal"`
	Monitoring monitoring.Config `json:"monitoring"`
	Logging    LoggingConfig     `json:"logging"`
	Stats      StatsConfig       `json:"stats"`
	HTTP       HTTPConfig        `json:"http"`
}

// Load reads the file at path, applies environment overrides and fills
// defaults. An empty path yields the defaults plus overrides.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, "__", envKey), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Default returns a fully defaulted configuration.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Listener.SetDefaults()
	c.Transmit.SetDefaults()
	c.Planner.SetDefaults()
	c.Control.SetDefaults()
	c.MQTT.SetDefaults()
	c.Journal.SetDefaults()
	c.Logging.SetDefaults()
	c.Stats.SetDefaults()
	c.HTTP.SetDefaults()
}

// Validate checks every section and reports all failures.
func (c Config) Validate() error {
	return errors.Join(
		c.Listener.Validate(),
		c.Transmit.Validate(),
		c.Planner.Validate(),
		c.Control.Validate(),
		c.MQTT.Validate(),
		c.Journal.Validate(),
		c.Monitoring.Validate(),
		c.Logging.Validate(),
		c.Stats.Validate(),
		c.HTTP.Validate(),
	)
}

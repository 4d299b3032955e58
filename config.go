package abatch

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultServerURL is where an OpenCode-compatible server listens locally.
const DefaultServerURL = "http://127.0.0.1:4096"

// Duration decodes YAML values like "90s" or "2m" into a time.Duration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}

	*d = Duration(parsed)

	return nil
}

// Config is the run configuration, loadable from a YAML file. CLI flags
// override file values.
type Config struct {
	Server           string   `yaml:"server"`
	APIKey           string   `yaml:"api_key"`
	Timeout          Duration `yaml:"timeout"`
	StopOnToolError  bool     `yaml:"stop_on_tool_error"`
	StopOnSDKError   *bool    `yaml:"stop_on_sdk_error"`
	ResultSchemaFile string   `yaml:"result_schema_file"`
	Spawn            string   `yaml:"spawn"`
	Verbose          bool     `yaml:"verbose"`
}

// DefaultConfig returns the configuration used when no file and no flags are
// given.
func DefaultConfig() Config {
	return Config{Server: DefaultServerURL}
}

// LoadConfig reads a YAML config file. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}

	defer f.Close()

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.Server == "" {
		cfg.Server = DefaultServerURL
	}

	return cfg, nil
}

// Policy derives the stop policy. StopOnSDKError defaults to true when the
// file leaves it unset.
func (c Config) Policy() Policy {
	p := Policy{
		StopOnSDKError:  true,
		StopOnToolError: c.StopOnToolError,
	}

	if c.StopOnSDKError != nil {
		p.StopOnSDKError = *c.StopOnSDKError
	}

	return p
}

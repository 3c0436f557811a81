package worker

import (
	"time"

	apperrors "github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "250ms".
type Duration time.Duration

// UnmarshalYAML decodes a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CategoryBadInput, "invalid duration").
			WithTextCode("WORKER_CONFIG_DURATION").
			WithMetadata(map[string]any{"value": raw})
	}
	*d = Duration(parsed)
	return nil
}

// Std converts back to time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the declarative shape of a worker's tunables, for hosts that
// load worker settings from YAML.
type Config struct {
	Name           string   `yaml:"name" json:"name"`
	IterationDelay Duration `yaml:"iteration_delay" json:"iteration_delay"`
	StopTimeout    Duration `yaml:"stop_timeout" json:"stop_timeout"`
}

// ParseConfig decodes a YAML (or JSON, which yaml handles too) document into
// a Config.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, apperrors.Wrap(err, apperrors.CategoryBadInput, "parse worker config").
			WithTextCode("WORKER_CONFIG_PARSE")
	}
	return cfg, nil
}

// Options expands the config into constructor options.
func (c Config) Options() []Option {
	var opts []Option
	if c.Name != "" {
		opts = append(opts, WithName(c.Name))
	}
	if c.IterationDelay > 0 {
		opts = append(opts, WithIterationDelay(c.IterationDelay.Std()))
	}
	if c.StopTimeout > 0 {
		opts = append(opts, WithStopTimeout(c.StopTimeout.Std()))
	}
	return opts
}

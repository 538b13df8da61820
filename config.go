package audiosched

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DeviceConfig describes one device entry of the YAML configuration. The
// core itself has no device-discovery policy (spec.md §1 Non-goals);
// LoadConfig only parses the list, and neither NewWorker nor the CLI demo
// harness opens the devices it names.
type DeviceConfig struct {
	Name           string `yaml:"name"`
	Direction      string `yaml:"direction"`
	MinBufferLevel int    `yaml:"min_buffer_level"`
}

// Config is the worker's startup configuration, loaded from YAML.
type Config struct {
	SleepBound        time.Duration  `yaml:"sleep_bound"`
	EventLogCapacity  int            `yaml:"event_log_capacity"`
	PollCapacity      int            `yaml:"poll_capacity"`
	RealtimePriority  bool           `yaml:"realtime_priority"`
	Devices           []DeviceConfig `yaml:"devices"`
}

// DefaultConfig returns the default configuration: LoadConfig starts from
// it before applying the file, and the CLI demo uses it when no file is
// given.
func DefaultConfig() Config {
	return Config{
		SleepBound:       sleepBound,
		EventLogCapacity: 256,
		PollCapacity:     defaultPollCapacity,
		RealtimePriority: true,
	}
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: read %s", path)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "config: parse %s", path)
	}

	if cfg.SleepBound <= 0 || cfg.SleepBound > sleepBound {
		cfg.SleepBound = sleepBound
	}
	if cfg.EventLogCapacity <= 0 {
		cfg.EventLogCapacity = 256
	}
	if cfg.PollCapacity <= 0 {
		cfg.PollCapacity = defaultPollCapacity
	}
	return &cfg, nil
}

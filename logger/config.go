package logger

import "fmt"

// Config holds the logging section of the service configuration.
type Config struct {
	Level     string `yaml:"level" mapstructure:"level"`
	Format    string `yaml:"format" mapstructure:"format"`
	Output    string `yaml:"output" mapstructure:"output"`
	NoColor   bool   `yaml:"no_color" mapstructure:"no_color"`
	Timestamp bool   `yaml:"timestamp" mapstructure:"timestamp"`
	Caller    bool   `yaml:"caller" mapstructure:"caller"`
}

// ApplyDefaults fills unset fields. Timestamps are always on for
// service logs.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "console"
	}
	if c.Output == "" {
		c.Output = "stdout"
	}
	c.Timestamp = true
}

// Validate rejects level and format values the writer cannot map.
func (c *Config) Validate() error {
	switch c.Level {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("logging.level: %q is not a log level", c.Level)
	}
	switch c.Format {
	case "json", "console", "pretty":
	default:
		return fmt.Errorf("logging.format: %q is not a log format", c.Format)
	}
	return nil
}

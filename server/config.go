package server

import (
	"github.com/skillsenselab/livescribe/server/middleware"
	"github.com/skillsenselab/livescribe/validation"
)

// Config holds HTTP server configuration. Timeouts are in seconds.
type Config struct {
	Host        string `yaml:"host" mapstructure:"host"`
	Port        int    `yaml:"port" mapstructure:"port"`
	ReadTimeout int    `yaml:"read_timeout" mapstructure:"read_timeout"`
	IdleTimeout int    `yaml:"idle_timeout" mapstructure:"idle_timeout"`

	// WriteTimeout stays zero unless set: the transcript stream holds a
	// response open for the whole meeting, and a server-wide write
	// deadline would cut every streaming client off.
	WriteTimeout int `yaml:"write_timeout" mapstructure:"write_timeout"`

	// MaxBodySize bounds request bodies, e.g. "10MB" or "512KB".
	MaxBodySize string `yaml:"max_body_size" mapstructure:"max_body_size"`

	CORS middleware.CORSConfig `yaml:"cors" mapstructure:"cors"`
}

// ApplyDefaults sets sensible default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "10MB"
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"Origin", "Content-Type", "Accept", "Last-Event-ID"}
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if verr := validation.New().
		Range("server.port", c.Port, 0, 65535).
		Custom(c.ReadTimeout >= 0, "server.read_timeout", "must be non-negative").
		Custom(c.WriteTimeout >= 0, "server.write_timeout", "must be non-negative").
		Custom(c.IdleTimeout >= 0, "server.idle_timeout", "must be non-negative").
		Validate(); verr != nil {
		return verr
	}
	return nil
}

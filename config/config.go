package config

import (
	"fmt"
	"time"

	"github.com/skillsenselab/livescribe/logger"
	"github.com/skillsenselab/livescribe/observability"
	"github.com/skillsenselab/livescribe/pipeline"
	"github.com/skillsenselab/livescribe/server"
	"github.com/skillsenselab/livescribe/vad"
	"github.com/skillsenselab/livescribe/validation"
)

// Config is the complete livescribe service configuration.
type Config struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Environment string `yaml:"environment" mapstructure:"environment"`
	Version     string `yaml:"version" mapstructure:"version"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`

	Logging       logger.Config        `yaml:"logging" mapstructure:"logging"`
	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Pipeline      pipeline.Config      `yaml:"pipeline" mapstructure:"pipeline"`
	VAD           vad.Config           `yaml:"vad" mapstructure:"vad"`
	Transcription TranscriptionConfig  `yaml:"transcription" mapstructure:"transcription"`
	Diarization   DiarizationConfig    `yaml:"diarization" mapstructure:"diarization"`
	Language      LanguageConfig       `yaml:"language" mapstructure:"language"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// TranscriptionConfig selects and configures transcription backends.
type TranscriptionConfig struct {
	// Default pins one backend for every request. Leave it empty to let
	// Strategy choose per call instead, which is what gives a meeting
	// failover when a backend goes down mid-run.
	Default string `yaml:"default" mapstructure:"default"`
	// Strategy picks how a backend is selected among the registered
	// ones: first healthy, fixed priority order, or round robin.
	Strategy string   `yaml:"strategy" mapstructure:"strategy" validate:"oneof=health priority round_robin"`
	Priority []string `yaml:"priority" mapstructure:"priority"`
	// Language is an optional ISO 639-1 hint forwarded to backends.
	Language string `yaml:"language" mapstructure:"language"`

	Whisper WhisperConfig `yaml:"whisper" mapstructure:"whisper"`
	OpenAI  OpenAIConfig  `yaml:"openai" mapstructure:"openai"`
}

// WhisperConfig configures the whisper sidecar backend.
type WhisperConfig struct {
	URL     string        `yaml:"url" mapstructure:"url" validate:"omitempty,url"`
	Model   string        `yaml:"model" mapstructure:"model"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// Settings flattens the section into the map consumed by the provider factory.
func (c WhisperConfig) Settings() map[string]any {
	return map[string]any{
		"url":     c.URL,
		"model":   c.Model,
		"timeout": c.Timeout,
	}
}

// OpenAIConfig configures the cloud transcription backend.
type OpenAIConfig struct {
	APIKey  string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string        `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	Model   string        `yaml:"model" mapstructure:"model"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// Settings flattens the section into the map consumed by the provider factory.
func (c OpenAIConfig) Settings() map[string]any {
	return map[string]any{
		"api_key":  c.APIKey,
		"base_url": c.BaseURL,
		"model":    c.Model,
		"timeout":  c.Timeout,
	}
}

// DiarizationConfig selects and configures the diarization backend.
type DiarizationConfig struct {
	Backend  string         `yaml:"backend" mapstructure:"backend" validate:"required"`
	Pyannote PyannoteConfig `yaml:"pyannote" mapstructure:"pyannote"`
}

// PyannoteConfig configures the pyannote sidecar backend.
type PyannoteConfig struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// Settings flattens the section into the map consumed by the provider factory.
func (c PyannoteConfig) Settings() map[string]any {
	return map[string]any{
		"base_url": c.BaseURL,
		"timeout":  c.Timeout,
	}
}

// LanguageConfig configures the detected-language collaborator.
type LanguageConfig struct {
	// Detection is "lingua" for statistical detection over segment text
	// or "off" to tag segments only with backend-reported languages.
	Detection string `yaml:"detection" mapstructure:"detection" validate:"oneof=lingua off"`
	// Codes restricts detection to these ISO 639-1 languages. Empty
	// means all spoken languages.
	Codes []string `yaml:"codes" mapstructure:"codes"`
}

// ApplyDefaults fills unset fields across all sections.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "livescribe"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Transcription.Strategy == "" {
		c.Transcription.Strategy = "health"
	}
	if c.Diarization.Backend == "" {
		c.Diarization.Backend = "pyannote"
	}
	if c.Language.Detection == "" {
		c.Language.Detection = "lingua"
	}

	c.Logging.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Pipeline.ApplyDefaults()
	c.VAD.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks the whole configuration. Struct tags cover the
// config-owned sections; package-owned sections validate themselves.
func (c *Config) Validate() error {
	if verr := validation.New().
		OneOf("environment", c.Environment, []string{"development", "staging", "production"}).
		Validate(); verr != nil {
		return verr
	}

	if err := validation.Validate(c); err != nil {
		return err
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("config.server: %w", err)
	}
	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("config.pipeline: %w", err)
	}
	if err := c.VAD.Validate(); err != nil {
		return fmt.Errorf("config.vad: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("config.observability: %w", err)
	}
	return nil
}

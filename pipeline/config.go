package pipeline

import (
	"fmt"

	"github.com/skillsenselab/livescribe/audio"
)

// Default window tuning and speaker labels.
const (
	// DefaultMinBufferSec is the smallest window handed to the backend.
	DefaultMinBufferSec = 2.0
	// DefaultMaxBufferSec caps buffer growth while a call is in flight.
	DefaultMaxBufferSec = 5.0
	// DefaultMicrophoneLabel is the speaker label for microphone audio.
	DefaultMicrophoneLabel = "You"
	// DefaultSystemLabel is the speaker label for system audio.
	DefaultSystemLabel = "Others"
)

// Config tunes the window dispatcher and the merger's speaker labels.
type Config struct {
	// MinBufferSec is how much audio a speaker must accumulate before a
	// transcription is scheduled.
	MinBufferSec float64 `yaml:"min_buffer_sec" mapstructure:"min_buffer_sec"`

	// MaxBufferSec bounds buffer growth while a transcription is in
	// flight. Past it, the oldest samples are dropped to MinBufferSec
	// worth.
	MaxBufferSec float64 `yaml:"max_buffer_sec" mapstructure:"max_buffer_sec"`

	// SampleRate of all audio moving through the pipeline, in Hz.
	// Pinned to audio.SampleRate; configurable only so a mismatch is
	// caught at load time instead of producing garbled timings.
	SampleRate int `yaml:"sample_rate" mapstructure:"sample_rate"`

	// MicrophoneLabel is attached to chunks from the microphone source.
	MicrophoneLabel string `yaml:"microphone_label" mapstructure:"microphone_label"`

	// SystemLabel is attached to chunks from the system audio source.
	SystemLabel string `yaml:"system_label" mapstructure:"system_label"`
}

// ApplyDefaults fills unset fields with the default tuning.
func (c *Config) ApplyDefaults() {
	if c.MinBufferSec == 0 {
		c.MinBufferSec = DefaultMinBufferSec
	}
	if c.MaxBufferSec == 0 {
		c.MaxBufferSec = DefaultMaxBufferSec
	}
	if c.SampleRate == 0 {
		c.SampleRate = audio.SampleRate
	}
	if c.MicrophoneLabel == "" {
		c.MicrophoneLabel = DefaultMicrophoneLabel
	}
	if c.SystemLabel == "" {
		c.SystemLabel = DefaultSystemLabel
	}
}

// Validate checks the config for values the dispatcher cannot run with.
func (c *Config) Validate() error {
	if c.MinBufferSec <= 0 {
		return fmt.Errorf("pipeline.min_buffer_sec must be positive, got %v", c.MinBufferSec)
	}
	if c.MaxBufferSec < c.MinBufferSec {
		return fmt.Errorf("pipeline.max_buffer_sec (%v) must be at least min_buffer_sec (%v)",
			c.MaxBufferSec, c.MinBufferSec)
	}
	if c.SampleRate != audio.SampleRate {
		return fmt.Errorf("pipeline.sample_rate must be %d, got %d", audio.SampleRate, c.SampleRate)
	}
	if c.MicrophoneLabel == c.SystemLabel {
		return fmt.Errorf("pipeline.microphone_label and system_label must differ, both are %q",
			c.MicrophoneLabel)
	}
	return nil
}

// LabelFor maps a capture source to its speaker label.
func (c Config) LabelFor(src audio.Source) string {
	if src == audio.SourceSystemAudio {
		return c.SystemLabel
	}
	return c.MicrophoneLabel
}

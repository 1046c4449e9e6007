// Package config loads and validates the livescribe service
// configuration.
//
// Configuration is assembled from three layers, later layers winning:
// a config.yml file (searched under ./cmd/livescribe/ and the working
// directory, or pointed at via LIVESCRIBE_CONFIG), an optional .env
// file, and process environment variables. Multi-segment environment
// variables map onto nested keys, so TRANSCRIPTION_WHISPER_URL
// overrides transcription.whisper.url.
//
// Every section applies its defaults before validation; Load returns
// a ready-to-use *Config or a coded validation error.
package config

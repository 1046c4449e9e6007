// Package openai implements transcription.Provider against the OpenAI
// Whisper cloud API.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/skillsenselab/livescribe/audio"
	"github.com/skillsenselab/livescribe/provider"
	"github.com/skillsenselab/livescribe/transcription"
)

const (
	// ProviderName is the registered name for the OpenAI provider.
	ProviderName = "openai"

	defaultModel   = goopenai.Whisper1
	defaultTimeout = 60 * time.Second
)

// Config holds configuration for the OpenAI transcription provider.
type Config struct {
	APIKey   string        `json:"api_key" yaml:"api_key"`
	BaseURL  string        `json:"base_url,omitempty" yaml:"base_url"`
	Model    string        `json:"model" yaml:"model"`
	Language string        `json:"language,omitempty" yaml:"language"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout"`
}

// Provider implements transcription.Provider using the OpenAI audio API.
// Samples are wrapped in a 16-bit PCM WAV container before upload.
type Provider struct {
	cfg    Config
	client *goopenai.Client
}

// NewProvider creates a new OpenAI transcription provider.
func NewProvider(cfg Config) *Provider {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	clientConfig := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Provider{
		cfg:    cfg,
		client: goopenai.NewClientWithConfig(clientConfig),
	}
}

// Factory returns a provider.Factory that creates OpenAI Provider
// instances from a generic config map.
func Factory() provider.Factory[transcription.Provider] {
	return func(cfg map[string]any) (transcription.Provider, error) {
		oc := Config{}
		if v, ok := cfg["api_key"].(string); ok {
			oc.APIKey = v
		}
		if v, ok := cfg["base_url"].(string); ok {
			oc.BaseURL = v
		}
		if v, ok := cfg["model"].(string); ok {
			oc.Model = v
		}
		if v, ok := cfg["language"].(string); ok {
			oc.Language = v
		}
		if v, ok := cfg["timeout"].(time.Duration); ok {
			oc.Timeout = v
		}
		return NewProvider(oc), nil
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable reports whether the provider is configured with an API key.
// No probe request is made; the cloud API is assumed reachable.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	return p.cfg.APIKey != ""
}

// Transcribe encodes the samples as 16-bit PCM WAV and submits them to
// the OpenAI audio API, requesting verbose JSON for segment timings.
func (p *Provider) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	if len(req.Samples) == 0 {
		return &transcription.Response{}, nil
	}
	rate := req.SampleRate
	if rate <= 0 {
		rate = audio.SampleRate
	}

	model := p.cfg.Model
	if req.Model != "" {
		model = req.Model
	}
	lang := p.cfg.Language
	if req.Language != "" {
		lang = req.Language
	}

	audioReq := goopenai.AudioRequest{
		Model:    model,
		FilePath: "audio.wav",
		Reader:   bytes.NewReader(audio.EncodeWAV(req.Samples, rate)),
		Language: lang,
		Format:   goopenai.AudioResponseFormatVerboseJSON,
	}

	resp, err := p.client.CreateTranscription(ctx, audioReq)
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}

	segments := make([]transcription.Segment, len(resp.Segments))
	for i := range resp.Segments {
		segments[i] = transcription.Segment{
			Start: resp.Segments[i].Start,
			End:   resp.Segments[i].End,
			Text:  resp.Segments[i].Text,
		}
	}

	return &transcription.Response{
		Text:     resp.Text,
		Segments: segments,
		Duration: resp.Duration,
		Language: resp.Language,
	}, nil
}

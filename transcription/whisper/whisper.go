// Package whisper implements transcription.Provider against a
// faster-whisper HTTP sidecar.
package whisper

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/skillsenselab/livescribe/audio"
	"github.com/skillsenselab/livescribe/provider"
	"github.com/skillsenselab/livescribe/transcription"
)

const (
	// ProviderName is how manager configuration refers to this backend.
	ProviderName = "whisper"

	defaultWhisperURL     = "http://localhost:8387"
	defaultWhisperModel   = "base"
	defaultWhisperTimeout = 120 * time.Second
)

// Config selects the sidecar endpoint, decoding model, and call timeout.
type Config struct {
	URL      string        `json:"url" yaml:"url"`
	Model    string        `json:"model" yaml:"model"`
	Language string        `json:"language,omitempty" yaml:"language"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout"`
}

func (c Config) withDefaults() Config {
	if c.URL == "" {
		c.URL = defaultWhisperURL
	}
	if c.Model == "" {
		c.Model = defaultWhisperModel
	}
	if c.Timeout == 0 {
		c.Timeout = defaultWhisperTimeout
	}
	return c
}

// Provider talks to a faster-whisper sidecar over its multipart HTTP
// API: audio goes out as a 16-bit PCM WAV form file, text and segment
// offsets come back as JSON.
type Provider struct {
	cfg    Config
	client *http.Client
}

// NewProvider creates a Whisper provider, filling unset config fields
// with sidecar defaults.
func NewProvider(cfg Config) *Provider {
	cfg = cfg.withDefaults()
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Factory adapts NewProvider to the generic provider factory shape used
// by the backend manager.
func Factory() provider.Factory[transcription.Provider] {
	return func(settings map[string]any) (transcription.Provider, error) {
		var c Config
		c.URL, _ = settings["url"].(string)
		c.Model, _ = settings["model"].(string)
		c.Language, _ = settings["language"].(string)
		c.Timeout, _ = settings["timeout"].(time.Duration)
		return NewProvider(c), nil
	}
}

// Name reports the backend's registered name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable reports whether the sidecar answers its health endpoint.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.URL+"/health", http.NoBody)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Transcribe submits the request samples to the sidecar. Segment times
// in the response are relative to the start of the submitted buffer.
func (p *Provider) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	if len(req.Samples) == 0 {
		return &transcription.Response{}, nil
	}

	body, contentType, err := p.encodeForm(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL+"/transcribe", body)
	if err != nil {
		return nil, fmt.Errorf("build whisper request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call whisper: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("whisper error (status %d): %s", resp.StatusCode, detail)
	}

	var decoded sidecarResult
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("parse whisper response: %w", err)
	}

	out := &transcription.Response{
		Text:     decoded.Text,
		Language: decoded.Language,
		Segments: make([]transcription.Segment, 0, len(decoded.Segments)),
	}
	for _, s := range decoded.Segments {
		out.Segments = append(out.Segments, transcription.Segment{
			Start: s.Start,
			End:   s.End,
			Text:  s.Text,
		})
		out.Duration = s.End
	}
	return out, nil
}

// encodeForm packs the request into the sidecar's multipart form:
// a WAV file part plus model and optional language fields.
func (p *Provider) encodeForm(req transcription.Request) (*bytes.Buffer, string, error) {
	rate := req.SampleRate
	if rate <= 0 {
		rate = audio.SampleRate
	}
	model := cmp.Or(req.Model, p.cfg.Model)
	lang := cmp.Or(req.Language, p.cfg.Language)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	part, err := form.CreateFormFile("audio", "audio.wav")
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio.EncodeWAV(req.Samples, rate)); err != nil {
		return nil, "", fmt.Errorf("write audio data: %w", err)
	}
	_ = form.WriteField("model", model)
	if lang != "" {
		_ = form.WriteField("language", lang)
	}
	if err := form.Close(); err != nil {
		return nil, "", fmt.Errorf("finish form: %w", err)
	}
	return &buf, form.FormDataContentType(), nil
}

type sidecarResult struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Segments []sidecarSegment `json:"segments"`
}

type sidecarSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

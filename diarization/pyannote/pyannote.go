// Package pyannote implements a diarization backend backed by the
// pyannote HTTP sidecar.
package pyannote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/skillsenselab/livescribe/audio"
	"github.com/skillsenselab/livescribe/diarization"
	"github.com/skillsenselab/livescribe/provider"
)

const (
	// ProviderName is the registered name for the pyannote backend.
	ProviderName = "pyannote"

	defaultBaseURL = "http://localhost:8388"
	defaultTimeout = 300 * time.Second
)

// Config holds configuration for the pyannote diarization backend.
type Config struct {
	BaseURL string        `json:"base_url"`
	Timeout time.Duration `json:"timeout"`
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

// Provider talks to a pyannote sidecar over its multipart HTTP API:
// audio goes out as a 16-bit PCM WAV form file, speaker turns come back
// as JSON. The sidecar holds the model, so availability follows its
// health endpoint.
type Provider struct {
	cfg    Config
	client *http.Client
}

// NewProvider creates a pyannote backend, filling unset config fields
// with sidecar defaults.
func NewProvider(cfg Config) *Provider {
	cfg = cfg.withDefaults()
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Factory adapts NewProvider to the generic provider factory shape.
func Factory() provider.Factory[diarization.Provider] {
	return func(settings map[string]any) (diarization.Provider, error) {
		var c Config
		c.BaseURL, _ = settings["base_url"].(string)
		c.Timeout, _ = settings["timeout"].(time.Duration)
		return NewProvider(c), nil
	}
}

// Name reports the backend's registered name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable reports whether the sidecar answers its health endpoint,
// which it only does once the model is loaded.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/health", http.NoBody)
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

// Diarize submits the request audio to the sidecar and maps its turns
// to speaker segments.
func (p *Provider) Diarize(ctx context.Context, req diarization.Request) (*diarization.Response, error) {
	body, contentType, err := encodeForm(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/diarize", body)
	if err != nil {
		return nil, fmt.Errorf("build diarization request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call pyannote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("diarization error (status %d): %s", resp.StatusCode, detail)
	}

	var decoded sidecarResult
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("parse pyannote response: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("diarization error: %s", decoded.Error)
	}

	out := &diarization.Response{
		NumSpeakers: decoded.NumSpeakers,
		Segments:    make([]diarization.Segment, 0, len(decoded.Segments)),
	}
	for _, s := range decoded.Segments {
		out.Segments = append(out.Segments, diarization.Segment{
			Speaker: s.SpeakerID,
			Start:   s.StartTime,
			End:     s.EndTime,
		})
	}
	return out, nil
}

// encodeForm packs the request into the sidecar's multipart form: a WAV
// file part plus optional speaker-count bounds.
func encodeForm(req diarization.Request) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	part, err := form.CreateFormFile("audio", "audio.wav")
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio.EncodeWAV(req.Samples, req.SampleRate)); err != nil {
		return nil, "", fmt.Errorf("write audio data: %w", err)
	}

	bounds := map[string]int{
		"num_speakers": req.NumSpeakers,
		"min_speakers": req.MinSpeakers,
		"max_speakers": req.MaxSpeakers,
	}
	for field, n := range bounds {
		if n > 0 {
			_ = form.WriteField(field, strconv.Itoa(n))
		}
	}
	if err := form.Close(); err != nil {
		return nil, "", fmt.Errorf("finish form: %w", err)
	}
	return &buf, form.FormDataContentType(), nil
}

type sidecarResult struct {
	Segments    []sidecarSegment `json:"segments"`
	NumSpeakers int              `json:"num_speakers"`
	Error       string           `json:"error,omitempty"`
}

type sidecarSegment struct {
	SpeakerID string  `json:"speaker_id"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

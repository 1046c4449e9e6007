package transcription

import "github.com/skillsenselab/livescribe/audio"

// Request carries one buffer of speech to a transcription backend.
type Request struct {
	// Samples is mono float32 PCM.
	Samples []float32 `json:"-"`
	// SampleRate is in Hz; zero means audio.SampleRate.
	SampleRate int `json:"sample_rate"`
	// Language hints the expected language ("en", "de", ...).
	Language string `json:"language,omitempty"`
	// Model overrides the provider's configured model.
	Model string `json:"model,omitempty"`
}

// Duration returns the audio length of the request in seconds.
func (r Request) Duration() float64 {
	rate := r.SampleRate
	if rate <= 0 {
		rate = audio.SampleRate
	}
	return float64(len(r.Samples)) / float64(rate)
}

// Response is what a backend produced for one Request.
type Response struct {
	// Text is the transcript of the whole buffer.
	Text string `json:"text"`
	// Segments is the time-aligned breakdown, when the backend provides one.
	Segments []Segment `json:"segments,omitempty"`
	// Duration echoes the audio length in seconds.
	Duration float64 `json:"duration,omitempty"`
	// Language is what the backend detected, or the requested hint.
	Language string `json:"language,omitempty"`
}

// Segment is one time-aligned span of transcript. Start and End are
// seconds from the beginning of the submitted buffer.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

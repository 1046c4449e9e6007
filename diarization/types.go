package diarization

// Request carries a whole session recording to a diarization backend.
type Request struct {
	// Samples is mono float32 PCM covering the session so far.
	Samples []float32 `json:"-"`
	// SampleRate is in Hz.
	SampleRate int `json:"sample_rate"`
	// NumSpeakers fixes the speaker count; zero lets the backend decide.
	NumSpeakers int `json:"num_speakers,omitempty"`
	// MinSpeakers and MaxSpeakers bound the count during auto-detection.
	MinSpeakers int `json:"min_speakers,omitempty"`
	MaxSpeakers int `json:"max_speakers,omitempty"`
}

// Response is the speaker map a backend produced for one Request.
type Response struct {
	Segments    []Segment `json:"segments"`
	NumSpeakers int       `json:"num_speakers"`
}

// Segment attributes the span [Start, End), in seconds, to one speaker.
type Segment struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// LabelAt returns the speaker label of the first segment whose
// [Start, End) range contains t.
func (r *Response) LabelAt(t float64) (string, bool) {
	for _, seg := range r.Segments {
		if t >= seg.Start && t < seg.End {
			return seg.Speaker, true
		}
	}
	return "", false
}

// Rename rewrites the label on every matching segment in place and
// returns the number of segments changed.
func (r *Response) Rename(from, to string) int {
	n := 0
	for i := range r.Segments {
		if r.Segments[i].Speaker == from {
			r.Segments[i].Speaker = to
			n++
		}
	}
	return n
}

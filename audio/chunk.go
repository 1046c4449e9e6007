package audio

// SampleRate is the fixed sample rate, in Hz, for all audio moving through
// the pipeline. Capture collaborators are expected to resample before
// handing chunks over.
const SampleRate = 16000

// Source identifies which capture collaborator produced a chunk.
type Source int

const (
	// SourceMicrophone is the local microphone capture.
	SourceMicrophone Source = iota
	// SourceSystemAudio is the system/output audio capture (the far side
	// of a call, shared media, and so on).
	SourceSystemAudio
)

// String returns the canonical name of the source.
func (s Source) String() string {
	switch s {
	case SourceMicrophone:
		return "microphone"
	case SourceSystemAudio:
		return "system"
	default:
		return "unknown"
	}
}

// ParseSource maps a source name to its Source value.
func ParseSource(name string) (Source, bool) {
	switch name {
	case "microphone", "mic":
		return SourceMicrophone, true
	case "system", "system_audio", "systemaudio":
		return SourceSystemAudio, true
	default:
		return 0, false
	}
}

// Chunk is a short slice of captured audio from a single source.
// Timestamps are in seconds and monotonic within one source; there is no
// ordering guarantee between sources.
type Chunk struct {
	Samples   []float32
	Timestamp float64
	Source    Source
}

// Duration returns the chunk length in seconds at the fixed sample rate.
func (c Chunk) Duration() float64 {
	return float64(len(c.Samples)) / SampleRate
}

// LabeledChunk is a chunk after the merger has attached a speaker label
// derived from its source. The samples are shared with the originating
// Chunk, not copied.
type LabeledChunk struct {
	Samples   []float32
	Timestamp float64
	Speaker   string
}

// Duration returns the chunk length in seconds at the fixed sample rate.
func (c LabeledChunk) Duration() float64 {
	return float64(len(c.Samples)) / SampleRate
}

// DurationOf returns the duration in seconds of a raw sample slice at the
// fixed sample rate.
func DurationOf(samples []float32) float64 {
	return float64(len(samples)) / SampleRate
}

// Package vad implements energy-based voice activity gating for the
// live transcription pipeline.
package vad

import (
	"math"

	"github.com/skillsenselab/livescribe/audio"
)

// Default gate tuning.
const (
	// DefaultThresholdDB is the energy floor below which a chunk is
	// treated as silence.
	DefaultThresholdDB = -50.0
	// DefaultHoldOpenSec keeps the gate open after speech ends so
	// trailing phonemes are not truncated.
	DefaultHoldOpenSec = 0.8
)

// Gate drops silent chunks from a stream while passing speech through
// unchanged. A chunk whose RMS energy exceeds the configured threshold
// counts as speech and records its timestamp; quieter chunks still pass
// while they fall inside the hold-open window after the last speech,
// and are dropped once the window has elapsed.
//
// The last-speech time is a single field per gate. On a merged
// multi-speaker stream this means speech on one channel holds the gate
// open for silence on another. That matches the behavior this gate was
// tuned against and is kept intentionally; partition per speaker only
// if transcript quality shows bleed-through between channels.
//
// Gate is not safe for concurrent use. It is owned by the single
// consumption loop of the pipeline.
type Gate struct {
	threshold  float64 // linear amplitude, from dB
	holdOpen   float64 // seconds
	lastSpeech float64 // timestamp of the most recent above-threshold chunk
}

// NewGate creates a gate with the given threshold in dB and hold-open
// window in seconds. The gate starts closed: leading silence is dropped
// until the first speech chunk arrives.
func NewGate(thresholdDB, holdOpenSec float64) *Gate {
	return &Gate{
		threshold:  math.Pow(10, thresholdDB/20),
		holdOpen:   holdOpenSec,
		lastSpeech: math.Inf(-1),
	}
}

// Allow reports whether the chunk should continue down the pipeline.
func (g *Gate) Allow(chunk audio.LabeledChunk) bool {
	if RMS(chunk.Samples) > g.threshold {
		g.lastSpeech = chunk.Timestamp
		return true
	}
	return chunk.Timestamp-g.lastSpeech < g.holdOpen
}

// RMS returns the root mean square amplitude of samples. Empty input
// yields 0.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

package pipeline

// speakerBuffer accumulates audio for one speaker between dispatches.
// All access is serialized by the pipeline mutex.
type speakerBuffer struct {
	samples       []float32
	startTime     float64
	lastChunkTime float64
}

// append adds chunk samples. The first append after a take anchors the
// buffer's start time at the chunk timestamp.
func (b *speakerBuffer) append(samples []float32, timestamp float64) {
	if len(b.samples) == 0 {
		b.startTime = timestamp
	}
	b.samples = append(b.samples, samples...)
	b.lastChunkTime = timestamp
}

func (b *speakerBuffer) len() int { return len(b.samples) }

// duration returns the buffered audio length in seconds.
func (b *speakerBuffer) duration(sampleRate int) float64 {
	return float64(len(b.samples)) / float64(sampleRate)
}

// take hands out the buffered samples and their start time, leaving the
// buffer empty. Later appends allocate fresh storage, so the returned
// slice is safe to read concurrently.
func (b *speakerBuffer) take() ([]float32, float64) {
	samples, start := b.samples, b.startTime
	b.samples = nil
	b.startTime = 0
	return samples, start
}

// trimTo discards the oldest samples, keeping at most keepSec worth,
// and advances startTime past the discarded audio. Returns how many
// samples were dropped. The kept samples move to fresh storage so the
// oversized backing array can be collected.
func (b *speakerBuffer) trimTo(keepSec float64, sampleRate int) int {
	keep := int(keepSec * float64(sampleRate))
	if len(b.samples) <= keep {
		return 0
	}
	discarded := len(b.samples) - keep
	kept := make([]float32, keep)
	copy(kept, b.samples[discarded:])
	b.samples = kept
	b.startTime += float64(discarded) / float64(sampleRate)
	return discarded
}

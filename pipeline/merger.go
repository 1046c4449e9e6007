package pipeline

import (
	"context"

	"github.com/skillsenselab/livescribe/audio"
	"github.com/skillsenselab/livescribe/stream"
)

// Merge fans the capture sources into one labeled chunk stream. Each
// source is pumped by its own goroutine, so a stalled source never
// delays the others, and per-source chunk order is preserved. Samples
// are never mixed; chunks pass through labeled, in arrival order. The
// merged stream ends only once every source has ended.
func Merge(ctx context.Context, cfg Config, sources ...stream.Iterator[audio.Chunk]) stream.Iterator[audio.LabeledChunk] {
	labeled := make([]stream.Iterator[audio.LabeledChunk], len(sources))
	for i, src := range sources {
		labeled[i] = stream.Map(src, func(c audio.Chunk) audio.LabeledChunk {
			return audio.LabeledChunk{
				Samples:   c.Samples,
				Timestamp: c.Timestamp,
				Speaker:   cfg.LabelFor(c.Source),
			}
		})
	}
	return stream.Merge(ctx, labeled...)
}

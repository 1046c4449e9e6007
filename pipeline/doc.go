// Package pipeline is the live transcription engine: it consumes the
// merged, labeled chunk stream, accumulates per-speaker windows of
// speech, and dispatches each window to a transcription backend,
// emitting time-stamped, speaker-attributed transcript segments.
//
// # Dispatch model
//
// Every accepted chunk is appended to its speaker's buffer. When a
// buffer holds at least MinBufferSec of audio and that speaker has no
// transcription in flight, the buffer contents are handed to the
// backend asynchronously and the buffer restarts empty. While a call is
// in flight the buffer keeps growing; at MaxBufferSec the oldest
// samples are discarded down to MinBufferSec worth. Ingestion never
// waits on the backend: backpressure is resolved by trimming, not by
// blocking the stream.
//
// At most one transcription is in flight per speaker, so each speaker's
// segments are emitted in chronological order. Segments from different
// speakers interleave according to backend completion time.
//
// # Generations
//
// Every Start increments a generation counter and resets all state. A
// transcription scheduled under an earlier generation compares its
// captured value on completion and discards its result quietly on
// mismatch, so a fast stop-then-restart can never corrupt the new run's
// buffers.
//
// # Lifecycle
//
// When the merged input ends on its own, the pipeline waits for
// in-flight calls, transcribes whatever remains buffered, and ends the
// output stream. Stop does the same but first cancels chunk
// consumption, so it can be used mid-stream. Transcription failures are
// logged and the window's audio is dropped; the speaker's buffer simply
// resumes with the next chunk.
//
// # Usage
//
//	pl := pipeline.New(cfg, backend,
//	    pipeline.WithGate(vad.NewGate(-50, 0.8)),
//	    pipeline.WithDetector(detector),
//	)
//	merged := pipeline.Merge(ctx, cfg, micChunks, systemChunks)
//	segments := pl.Start(ctx, merged)
//	for {
//	    seg, ok, err := segments.Next(ctx)
//	    ...
//	}
package pipeline

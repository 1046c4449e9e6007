package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics holds the live-transcription domain instruments. All
// record methods are safe on a nil receiver so the pipeline can run
// with metrics disabled.
type PipelineMetrics struct {
	segmentsEmitted       metric.Int64Counter
	transcriptionDuration metric.Float64Histogram
	transcriptionFailures metric.Int64Counter
	samplesTrimmed        metric.Int64Counter
	chunksGated           metric.Int64Counter
	inflight              metric.Int64UpDownCounter
}

// NewPipelineMetrics creates the pipeline instruments on the given meter.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	b := &instrumentBuilder{meter: meter}
	pm := &PipelineMetrics{
		segmentsEmitted:       b.counter("pipeline.segments.emitted", "Transcript segments emitted, by speaker"),
		transcriptionDuration: b.seconds("pipeline.transcription.duration", "Backend transcription call latency"),
		transcriptionFailures: b.counter("pipeline.transcription.failures", "Failed transcription calls whose audio was dropped"),
		samplesTrimmed:        b.counter("pipeline.samples.trimmed", "Samples discarded by the backpressure trim, by speaker"),
		chunksGated:           b.counter("pipeline.chunks.gated", "Chunks dropped by the voice activity gate"),
		inflight:              b.updown("pipeline.transcriptions.inflight", "Transcription calls currently in flight"),
	}
	if b.err != nil {
		return nil, b.err
	}
	return pm, nil
}

// RecordSegment counts one emitted transcript segment.
func (m *PipelineMetrics) RecordSegment(ctx context.Context, speaker string) {
	if m == nil {
		return
	}
	m.segmentsEmitted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("speaker", speaker),
	))
}

// RecordTranscription records the duration and outcome of a backend call.
func (m *PipelineMetrics) RecordTranscription(ctx context.Context, provider string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.transcriptionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	))
}

// RecordTranscriptionFailure counts one dropped buffer.
func (m *PipelineMetrics) RecordTranscriptionFailure(ctx context.Context, speaker string) {
	if m == nil {
		return
	}
	m.transcriptionFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("speaker", speaker),
	))
}

// RecordTrimmedSamples counts samples lost to the backpressure trim.
func (m *PipelineMetrics) RecordTrimmedSamples(ctx context.Context, speaker string, samples int) {
	if m == nil {
		return
	}
	m.samplesTrimmed.Add(ctx, int64(samples), metric.WithAttributes(
		attribute.String("speaker", speaker),
	))
}

// RecordGatedChunk counts one chunk dropped by the voice activity gate.
func (m *PipelineMetrics) RecordGatedChunk(ctx context.Context) {
	if m == nil {
		return
	}
	m.chunksGated.Add(ctx, 1)
}

// TranscriptionStarted marks a backend call entering flight.
func (m *PipelineMetrics) TranscriptionStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.inflight.Add(ctx, 1)
}

// TranscriptionFinished marks a backend call leaving flight.
func (m *PipelineMetrics) TranscriptionFinished(ctx context.Context) {
	if m == nil {
		return
	}
	m.inflight.Add(ctx, -1)
}

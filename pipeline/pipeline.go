package pipeline

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skillsenselab/livescribe/audio"
	apperrors "github.com/skillsenselab/livescribe/errors"
	"github.com/skillsenselab/livescribe/language"
	"github.com/skillsenselab/livescribe/logger"
	"github.com/skillsenselab/livescribe/observability"
	"github.com/skillsenselab/livescribe/stream"
	"github.com/skillsenselab/livescribe/transcription"
	"github.com/skillsenselab/livescribe/vad"
)

const (
	// outputBuffer absorbs bursts when the segment consumer briefly
	// stalls. Segments beyond it are dropped rather than blocking
	// pipeline state.
	outputBuffer = 64

	// drainPollInterval is how often the drain loops re-check the
	// in-flight set.
	drainPollInterval = 50 * time.Millisecond
)

// Transcriber is the backend surface the dispatcher needs: one call per
// buffered window. transcription.Provider satisfies it.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, req transcription.Request) (*transcription.Response, error)
}

// run holds the state of one Start..Stop cycle. The output channel
// belongs to exactly one run; a superseded run's channel is closed by
// its own consumption loop.
type run struct {
	gen      uint64
	out      chan TranscriptSegment
	closed   bool
	stopping bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// Pipeline is the speaker-window dispatcher. One mutex serializes every
// state mutation: buffers, the in-flight set, the generation counter,
// and the current run. Backend calls run as separate goroutines and
// rejoin the lock only to read or write state at well-defined points.
type Pipeline struct {
	cfg      Config
	backend  Transcriber
	gate     *vad.Gate
	detector language.Detector
	metrics  *observability.PipelineMetrics
	hint     string
	log      *logger.Logger

	mu         sync.Mutex
	generation uint64
	running    bool
	buffers    map[string]*speakerBuffer
	active     map[string]struct{}
	cur        *run
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithGate installs a voice activity gate in front of the buffers.
// Chunks the gate rejects are counted and discarded.
func WithGate(g *vad.Gate) Option {
	return func(p *Pipeline) { p.gate = g }
}

// WithDetector installs a language detector used to tag segments when
// the backend does not report a language itself.
func WithDetector(d language.Detector) Option {
	return func(p *Pipeline) { p.detector = d }
}

// WithMetrics installs pipeline instruments.
func WithMetrics(m *observability.PipelineMetrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLanguageHint forwards a fixed language hint to the backend.
func WithLanguageHint(code string) Option {
	return func(p *Pipeline) { p.hint = code }
}

// New creates a pipeline using the given backend. The backend is fixed
// for the pipeline's lifetime.
func New(cfg Config, backend Transcriber, opts ...Option) *Pipeline {
	cfg.ApplyDefaults()
	p := &Pipeline{
		cfg:     cfg,
		backend: backend,
		buffers: make(map[string]*speakerBuffer),
		active:  make(map[string]struct{}),
		log:     logger.Get("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins consuming the labeled chunk stream and returns the
// transcript output for this run. The output ends when the input ends
// and all buffered audio has been transcribed, or when Stop is called.
//
// Calling Start while a previous run is live supersedes it: the old
// run's output terminates, and any of its still-executing
// transcriptions discard their results on completion.
func (p *Pipeline) Start(ctx context.Context, chunks stream.Iterator[audio.LabeledChunk]) stream.Iterator[TranscriptSegment] {
	runCtx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	if p.cur != nil {
		p.cur.cancel()
	}
	p.generation++
	p.buffers = make(map[string]*speakerBuffer)
	p.active = make(map[string]struct{})
	rs := &run{
		gen:    p.generation,
		out:    make(chan TranscriptSegment, outputBuffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	p.cur = rs
	p.running = true
	p.mu.Unlock()

	p.log.Info("pipeline started", logger.Fields(
		logger.FieldGeneration, rs.gen,
		logger.FieldProvider, p.backend.Name(),
	))

	go p.consume(runCtx, rs, chunks)

	return stream.FromChannel(rs.out)
}

// Stop cancels chunk consumption, waits (bounded by ctx) for in-flight
// transcriptions, synchronously transcribes every non-empty buffer, and
// terminates the output. After Stop returns, no further segment is
// emitted on this run's output. Returns ctx's error if the wait was cut
// short; buffered audio is still flushed best-effort in that case.
func (p *Pipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running || p.cur == nil {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	rs := p.cur
	rs.stopping = true
	p.mu.Unlock()

	rs.cancel()
	select {
	case <-rs.done:
	case <-ctx.Done():
	}

	waited := p.drainActive(ctx, rs)
	p.flushBuffers(ctx, rs)
	p.closeRun(rs)

	p.log.Info("pipeline stopped", logger.Fields(logger.FieldGeneration, rs.gen))
	if !waited {
		return ctx.Err()
	}
	return nil
}

// Config returns the pipeline configuration with defaults applied.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Running reports whether a run is currently consuming chunks.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Status is a point-in-time snapshot of pipeline state.
type Status struct {
	Running         bool               `json:"running"`
	Generation      uint64             `json:"generation"`
	InFlight        []string           `json:"in_flight,omitempty"`
	BufferedSeconds map[string]float64 `json:"buffered_seconds,omitempty"`
}

// Status reports the current run state, the speakers with a
// transcription in flight, and per-speaker buffered audio.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := Status{Running: p.running, Generation: p.generation}
	if len(p.active) > 0 {
		st.InFlight = make([]string, 0, len(p.active))
		for speaker := range p.active {
			st.InFlight = append(st.InFlight, speaker)
		}
		sort.Strings(st.InFlight)
	}
	for speaker, buf := range p.buffers {
		if buf.len() == 0 {
			continue
		}
		if st.BufferedSeconds == nil {
			st.BufferedSeconds = make(map[string]float64)
		}
		st.BufferedSeconds[speaker] = buf.duration(p.cfg.SampleRate)
	}
	return st
}

// consume is the run loop: it pulls chunks until the stream ends or the
// run context is canceled, then settles the run's output.
func (p *Pipeline) consume(ctx context.Context, rs *run, chunks stream.Iterator[audio.LabeledChunk]) {
	defer close(rs.done)
	defer chunks.Close()

	for {
		chunk, ok, err := chunks.Next(ctx)
		if err != nil {
			p.consumeInterrupted(ctx, rs)
			return
		}
		if !ok {
			p.consumeEnded(ctx, rs)
			return
		}
		if !p.ingest(ctx, rs, chunk) {
			// Superseded mid-stream; the new run owns all state now.
			p.closeRun(rs)
			return
		}
	}
}

// consumeEnded handles natural end of input: wait out in-flight calls,
// flush what remains, end the output.
func (p *Pipeline) consumeEnded(ctx context.Context, rs *run) {
	if !p.drainActive(ctx, rs) {
		superseded, stopping := p.interruptReason(rs)
		if superseded {
			p.closeRun(rs)
			return
		}
		if stopping {
			// Stop flushes and closes.
			return
		}
	}
	p.finishRun(ctx, rs)
}

// consumeInterrupted handles a chunk wait that ended with an error. A
// superseded run just terminates its output; a stopping run leaves the
// flush to Stop; a run whose caller context died flushes what it can
// (the dead context makes backend calls fail fast) and terminates.
func (p *Pipeline) consumeInterrupted(ctx context.Context, rs *run) {
	superseded, stopping := p.interruptReason(rs)
	if superseded {
		p.closeRun(rs)
		return
	}
	if stopping {
		return
	}

	p.log.Warn("chunk consumption canceled by caller", logger.Fields(
		logger.FieldGeneration, rs.gen,
	))
	p.finishRun(ctx, rs)
}

func (p *Pipeline) interruptReason(rs *run) (superseded, stopping bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return rs.gen != p.generation, rs.stopping
}

// finishRun flushes remaining buffers, terminates the output, and
// marks the pipeline idle.
func (p *Pipeline) finishRun(ctx context.Context, rs *run) {
	p.flushBuffers(ctx, rs)
	p.closeRun(rs)

	p.mu.Lock()
	if rs.gen == p.generation {
		p.running = false
	}
	p.mu.Unlock()

	p.log.Info("pipeline drained", logger.Fields(logger.FieldGeneration, rs.gen))
}

// ingest folds one chunk into pipeline state. Returns false when the
// run has been superseded. Scheduling never blocks on the backend: a
// window at MinBufferSec dispatches asynchronously, and a buffer at
// MaxBufferSec with a call still in flight is trimmed instead.
func (p *Pipeline) ingest(ctx context.Context, rs *run, chunk audio.LabeledChunk) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if rs.gen != p.generation {
		return false
	}

	if p.gate != nil && !p.gate.Allow(chunk) {
		p.metrics.RecordGatedChunk(ctx)
		return true
	}

	buf := p.buffers[chunk.Speaker]
	if buf == nil {
		buf = &speakerBuffer{}
		p.buffers[chunk.Speaker] = buf
	}
	buf.append(chunk.Samples, chunk.Timestamp)

	_, inFlight := p.active[chunk.Speaker]
	dur := buf.duration(p.cfg.SampleRate)

	switch {
	case dur >= p.cfg.MinBufferSec && !inFlight:
		samples, start := buf.take()
		p.active[chunk.Speaker] = struct{}{}
		// Detached from the run context: Stop waits for in-flight
		// calls rather than canceling them. Provider timeouts bound
		// the call.
		go p.dispatch(context.WithoutCancel(ctx), rs, chunk.Speaker, samples, start)

	case dur >= p.cfg.MaxBufferSec && inFlight:
		discarded := buf.trimTo(p.cfg.MinBufferSec, p.cfg.SampleRate)
		p.metrics.RecordTrimmedSamples(ctx, chunk.Speaker, discarded)
		p.log.Warn("buffer trimmed while transcription in flight", logger.Fields(
			logger.FieldSpeaker, chunk.Speaker,
			"discarded_samples", discarded,
		))
	}
	return true
}

// dispatch runs one transcription off the ingestion path and rejoins
// pipeline state when it completes. A result captured against a
// superseded generation is discarded without touching state or logs.
func (p *Pipeline) dispatch(ctx context.Context, rs *run, speaker string, samples []float32, start float64) {
	segs, err := p.transcribe(ctx, rs, speaker, samples, start)

	p.mu.Lock()
	if rs.gen != p.generation {
		p.mu.Unlock()
		return
	}
	delete(p.active, speaker)
	p.mu.Unlock()

	if err != nil {
		p.metrics.RecordTranscriptionFailure(ctx, speaker)
		p.log.Error("transcription failed, dropping window", logger.Fields(
			logger.FieldSpeaker, speaker,
			"samples", len(samples),
			logger.FieldError, err.Error(),
		))
		return
	}
	p.deliver(ctx, rs, segs)
}

// transcribe calls the backend for one buffered window and converts its
// buffer-relative segment times to absolute ones.
func (p *Pipeline) transcribe(ctx context.Context, rs *run, speaker string, samples []float32, start float64) ([]TranscriptSegment, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanTranscribe)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrSpeaker, speaker)
	observability.SetSpanAttribute(ctx, observability.AttrProvider, p.backend.Name())
	observability.SetSpanAttribute(ctx, observability.AttrGeneration, int64(rs.gen))

	p.metrics.TranscriptionStarted(ctx)
	began := time.Now()
	resp, err := p.backend.Transcribe(ctx, transcription.Request{
		Samples:    samples,
		SampleRate: p.cfg.SampleRate,
		Language:   p.hint,
	})
	elapsed := time.Since(began)
	p.metrics.TranscriptionFinished(ctx)
	p.metrics.RecordTranscription(ctx, p.backend.Name(), elapsed, err)

	if err != nil {
		err = apperrors.TranscriptionFailed(speaker, err)
		observability.SetSpanError(ctx, err)
		return nil, err
	}

	segments := resp.Segments
	if len(segments) == 0 && strings.TrimSpace(resp.Text) != "" {
		// Backend produced text without timing; cover the whole window.
		end := resp.Duration
		if end <= 0 {
			end = float64(len(samples)) / float64(p.cfg.SampleRate)
		}
		segments = []transcription.Segment{{Start: 0, End: end, Text: resp.Text}}
	}

	out := make([]TranscriptSegment, 0, len(segments))
	for _, s := range segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		out = append(out, TranscriptSegment{
			ID:       uuid.NewString(),
			Text:     text,
			Start:    start + s.Start,
			End:      start + s.End,
			Speaker:  speaker,
			Language: p.segmentLanguage(resp.Language, text),
		})
	}
	return out, nil
}

func (p *Pipeline) segmentLanguage(reported, text string) string {
	if reported != "" {
		return reported
	}
	if p.detector == nil {
		return ""
	}
	code, ok := p.detector.Detect(text)
	if !ok {
		return ""
	}
	return code
}

// deliver emits segments on the run's output. The channel is buffered;
// if the consumer has stopped pulling, segments are dropped rather than
// blocking pipeline state.
func (p *Pipeline) deliver(ctx context.Context, rs *run, segs []TranscriptSegment) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if rs.closed || rs.gen != p.generation {
		return
	}
	for _, seg := range segs {
		select {
		case rs.out <- seg:
			p.metrics.RecordSegment(ctx, seg.Speaker)
		default:
			p.log.Warn("segment consumer stalled, dropping segment", logger.Fields(
				logger.FieldSpeaker, seg.Speaker,
				"segment_id", seg.ID,
			))
		}
	}
}

// drainActive waits until no transcription is in flight, re-checking on
// a short interval. Returns false if ctx ended or the run was
// superseded before the set emptied.
func (p *Pipeline) drainActive(ctx context.Context, rs *run) bool {
	for {
		p.mu.Lock()
		stale := rs.gen != p.generation
		idle := len(p.active) == 0
		p.mu.Unlock()

		if stale {
			return false
		}
		if idle {
			return true
		}
		select {
		case <-time.After(drainPollInterval):
		case <-ctx.Done():
			return false
		}
	}
}

// flushBuffers synchronously transcribes every non-empty buffer, oldest
// window first, and emits the results. Buffers are taken in a single
// snapshot, so concurrent flushers cannot transcribe the same audio
// twice.
func (p *Pipeline) flushBuffers(ctx context.Context, rs *run) {
	type window struct {
		speaker string
		samples []float32
		start   float64
	}

	p.mu.Lock()
	if rs.gen != p.generation {
		p.mu.Unlock()
		return
	}
	var windows []window
	for speaker, buf := range p.buffers {
		if buf.len() == 0 {
			continue
		}
		samples, start := buf.take()
		windows = append(windows, window{speaker: speaker, samples: samples, start: start})
	}
	p.mu.Unlock()

	sort.Slice(windows, func(i, j int) bool { return windows[i].start < windows[j].start })

	for _, w := range windows {
		segs, err := p.transcribe(ctx, rs, w.speaker, w.samples, w.start)
		if err != nil {
			p.metrics.RecordTranscriptionFailure(ctx, w.speaker)
			p.log.Error("flush transcription failed, dropping window", logger.Fields(
				logger.FieldSpeaker, w.speaker,
				"samples", len(w.samples),
				logger.FieldError, err.Error(),
			))
			continue
		}
		p.deliver(ctx, rs, segs)
	}
}

// closeRun terminates the run's output exactly once. Delivery checks
// the closed flag under the same lock, so a straggling transcription
// can never send on a closed channel.
func (p *Pipeline) closeRun(rs *run) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !rs.closed {
		rs.closed = true
		close(rs.out)
	}
}

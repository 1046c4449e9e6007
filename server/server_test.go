package server

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/skillsenselab/livescribe/audio"
	"github.com/skillsenselab/livescribe/diarization"
	"github.com/skillsenselab/livescribe/pipeline"
	"github.com/skillsenselab/livescribe/sse"
	"github.com/skillsenselab/livescribe/transcription"
)

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.ReadTimeout != 15 || cfg.IdleTimeout != 60 {
		t.Errorf("unexpected timeout defaults: read=%d idle=%d", cfg.ReadTimeout, cfg.IdleTimeout)
	}
	if cfg.WriteTimeout != 0 {
		t.Errorf("write timeout must default to 0 for streaming, got %d", cfg.WriteTimeout)
	}
	if cfg.MaxBodySize != "10MB" {
		t.Errorf("expected 10MB body limit, got %s", cfg.MaxBodySize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfig_ValidateRejectsBadValues(t *testing.T) {
	cfg := Config{Port: 70000}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for out-of-range port")
	}

	cfg = Config{Port: 8080, ReadTimeout: -1}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative read timeout")
	}
}

// ---------------------------------------------------------------------------
// Frame decoding
// ---------------------------------------------------------------------------

func TestDecodeFrame_RoundTrip(t *testing.T) {
	samples := []float32{0.5, -0.25, 0.125}
	chunk, err := decodeFrame(audio.SourceMicrophone, encodeFrame(12.5, samples))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if chunk.Timestamp != 12.5 {
		t.Errorf("expected timestamp 12.5, got %v", chunk.Timestamp)
	}
	if chunk.Source != audio.SourceMicrophone {
		t.Errorf("expected microphone source, got %v", chunk.Source)
	}
	if len(chunk.Samples) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(chunk.Samples))
	}
	for i, want := range samples {
		if chunk.Samples[i] != want {
			t.Errorf("sample %d: expected %v, got %v", i, want, chunk.Samples[i])
		}
	}
}

func TestDecodeFrame_RejectsShortFrame(t *testing.T) {
	if _, err := decodeFrame(audio.SourceMicrophone, []byte{1, 2, 3}); err == nil {
		t.Error("expected error for frame shorter than the timestamp header")
	}
}

func TestDecodeFrame_RejectsMisalignedPayload(t *testing.T) {
	frame := encodeFrame(1.0, []float32{0.5})
	if _, err := decodeFrame(audio.SourceSystemAudio, frame[:len(frame)-1]); err == nil {
		t.Error("expected error for payload not aligned to float32")
	}
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func TestHealth_ReportsHealthy(t *testing.T) {
	s, _ := newTestServer(t, &stubTranscriber{available: true}, &stubDiarizer{available: true})

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/health", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var body healthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid health JSON: %v", err)
	}
	if body.Status != "healthy" {
		t.Errorf("expected healthy, got %s", body.Status)
	}
	if body.Service != "livescribe-test" {
		t.Errorf("unexpected service name: %s", body.Service)
	}
	for _, key := range []string{"transcription", "diarization", "pipeline"} {
		if _, ok := body.Components[key]; !ok {
			t.Errorf("missing %s component in health response", key)
		}
	}
}

func TestHealth_UnhealthyWithoutTranscription(t *testing.T) {
	s, _ := newTestServer(t, &stubTranscriber{available: false}, &stubDiarizer{available: true})

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/health", http.NoBody))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}

	var body healthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid health JSON: %v", err)
	}
	if body.Status != "unhealthy" {
		t.Errorf("expected unhealthy, got %s", body.Status)
	}
}

func TestHealth_DegradedWithoutDiarizer(t *testing.T) {
	s, _ := newTestServer(t, &stubTranscriber{available: true}, &stubDiarizer{available: false})

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/health", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("a missing diarizer must not fail health, got %d", rr.Code)
	}

	var body healthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid health JSON: %v", err)
	}
	if body.Status != "degraded" {
		t.Errorf("expected degraded, got %s", body.Status)
	}
}

// ---------------------------------------------------------------------------
// Pipeline control
// ---------------------------------------------------------------------------

func TestPipelineStart_RequiresConnectedSource(t *testing.T) {
	s, _ := newTestServer(t, &stubTranscriber{available: true}, &stubDiarizer{available: true})

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest("POST", "/v1/pipeline/start", http.NoBody))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 when no sources are connected, got %d", rr.Code)
	}
}

func TestPipelineStop_IdleIsNoop(t *testing.T) {
	s, _ := newTestServer(t, &stubTranscriber{available: true}, &stubDiarizer{available: true})

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest("POST", "/v1/pipeline/stop", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("stopping an idle pipeline should succeed, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestPipelineStatus_Idle(t *testing.T) {
	s, _ := newTestServer(t, &stubTranscriber{available: true}, &stubDiarizer{available: true})

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/v1/pipeline/status", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var body struct {
		Data statusResponse `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid status JSON: %v", err)
	}
	if body.Data.Pipeline.Running {
		t.Error("pipeline should not be running")
	}
	if len(body.Data.Sources) != 0 {
		t.Errorf("expected no connected sources, got %v", body.Data.Sources)
	}
}

// ---------------------------------------------------------------------------
// Ingest + end-to-end flow
// ---------------------------------------------------------------------------

func TestIngest_RejectsUnknownSource(t *testing.T) {
	s, _ := newTestServer(t, &stubTranscriber{available: true}, &stubDiarizer{available: true})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts.URL, "tape"), nil)
	if err == nil {
		t.Fatal("expected handshake failure for unknown source")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 response, got %+v", resp)
	}
	resp.Body.Close()
}

func TestIngest_OneSocketPerSource(t *testing.T) {
	s, _ := newTestServer(t, &stubTranscriber{available: true}, &stubDiarizer{available: true})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts.URL, "microphone"), nil)
	if err != nil {
		t.Fatalf("first dial failed: %v", err)
	}
	defer conn.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts.URL, "microphone"), nil)
	if err == nil {
		t.Fatal("expected handshake failure for duplicate source")
	}
	if resp == nil || resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 response, got %+v", resp)
	}
	resp.Body.Close()
}

func TestIngestStartStop_DeliversTranscript(t *testing.T) {
	tr := &stubTranscriber{available: true, text: "hello world"}
	s, hub := newTestServer(t, tr, &stubDiarizer{available: true})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	listener := sse.NewClient("listener")
	hub.Register(listener)
	defer hub.Unregister(listener)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts.URL, "microphone"), nil)
	if err != nil {
		t.Fatalf("dial ingest: %v", err)
	}
	defer conn.Close()

	resp, err := http.Post(ts.URL+"/v1/pipeline/start", "application/json", http.NoBody)
	if err != nil {
		t.Fatalf("start request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start returned %d", resp.StatusCode)
	}

	var started struct {
		Data startResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&started); err != nil {
		t.Fatalf("invalid start JSON: %v", err)
	}
	if len(started.Data.Sources) != 1 || started.Data.Sources[0] != "microphone" {
		t.Fatalf("expected [microphone], got %v", started.Data.Sources)
	}

	// Two one-second frames reach the minimum window and dispatch.
	second := make([]float32, audio.SampleRate)
	for i := range second {
		second[i] = 0.2
	}
	for i, stamp := range []float64{10.0, 11.0} {
		if err := conn.WriteMessage(websocket.BinaryMessage, encodeFrame(stamp, second)); err != nil {
			t.Fatalf("write frame %d: %v", i, err)
		}
	}

	msg := waitForEvent(t, listener, sse.EventTypeTranscript)
	var seg pipeline.TranscriptSegment
	if err := json.Unmarshal(msg.Data, &seg); err != nil {
		t.Fatalf("invalid transcript JSON: %v", err)
	}
	if seg.Speaker != "You" {
		t.Errorf("expected speaker You, got %s", seg.Speaker)
	}
	if seg.Text != "hello world" {
		t.Errorf("unexpected text: %s", seg.Text)
	}
	if seg.Start != 10.0 || seg.End != 12.0 {
		t.Errorf("expected window [10,12], got [%v,%v]", seg.Start, seg.End)
	}

	stopResp, err := http.Post(ts.URL+"/v1/pipeline/stop", "application/json", http.NoBody)
	if err != nil {
		t.Fatalf("stop request failed: %v", err)
	}
	stopResp.Body.Close()
	if stopResp.StatusCode != http.StatusOK {
		t.Fatalf("stop returned %d", stopResp.StatusCode)
	}
	if s.deps.Pipeline.Running() {
		t.Error("pipeline should be stopped")
	}
}

func TestTranscriptStream_ServesSSE(t *testing.T) {
	s, hub := newTestServer(t, &stubTranscriber{available: true}, &stubDiarizer{available: true})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", ts.URL+"/v1/transcript/stream", http.NoBody)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stream request failed: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("expected text/event-stream, got %q", got)
	}

	buf := make([]byte, 1024)
	n, err := resp.Body.Read(buf)
	if err != nil {
		t.Fatalf("reading stream: %v", err)
	}
	if !strings.Contains(string(buf[:n]), "event: connected") {
		t.Errorf("expected connected event, got %q", string(buf[:n]))
	}
	if hub.ClientCount() != 1 {
		t.Errorf("expected 1 stream client, got %d", hub.ClientCount())
	}
}

// ---------------------------------------------------------------------------
// Diarization endpoints
// ---------------------------------------------------------------------------

func TestDiarize_RejectsNonWAVBody(t *testing.T) {
	s, _ := newTestServer(t, &stubTranscriber{available: true}, &stubDiarizer{available: true})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/diarize", bytes.NewReader([]byte("not a wav file")))
	s.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "INVALID_AUDIO") {
		t.Errorf("expected INVALID_AUDIO code, got %s", rr.Body.String())
	}
}

func TestDiarize_CachesResultForLookups(t *testing.T) {
	di := &stubDiarizer{
		available: true,
		segments: []diarization.Segment{
			{Speaker: "SPEAKER_00", Start: 0, End: 2.5},
			{Speaker: "SPEAKER_01", Start: 2.5, End: 5},
		},
	}
	s, _ := newTestServer(t, &stubTranscriber{available: true}, di)

	wav := audio.EncodeWAV(make([]float32, audio.SampleRate*5), audio.SampleRate)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest("POST", "/v1/diarize", bytes.NewReader(wav)))
	if rr.Code != http.StatusOK {
		t.Fatalf("diarize returned %d: %s", rr.Code, rr.Body.String())
	}

	var body struct {
		Data diarization.Response `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid diarize JSON: %v", err)
	}
	if len(body.Data.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(body.Data.Segments))
	}

	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/v1/diarize/speaker?t=1.0", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("speaker lookup returned %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "SPEAKER_00") {
		t.Errorf("expected SPEAKER_00 at t=1.0, got %s", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/v1/diarize/speaker?t=9.9", http.NoBody))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 outside diarized range, got %d", rr.Code)
	}

	rename := strings.NewReader(`{"from":"SPEAKER_00","to":"Alice"}`)
	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest("POST", "/v1/diarize/rename", rename))
	if rr.Code != http.StatusOK {
		t.Fatalf("rename returned %d: %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/v1/diarize/speaker?t=1.0", http.NoBody))
	if !strings.Contains(rr.Body.String(), "Alice") {
		t.Errorf("expected renamed speaker Alice, got %s", rr.Body.String())
	}
}

func TestSpeakerAt_RequiresTimeParam(t *testing.T) {
	s, _ := newTestServer(t, &stubTranscriber{available: true}, &stubDiarizer{available: true})

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/v1/diarize/speaker", http.NoBody))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without t, got %d", rr.Code)
	}
}

func TestRenameSpeaker_RequiresBothFields(t *testing.T) {
	s, _ := newTestServer(t, &stubTranscriber{available: true}, &stubDiarizer{available: true})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/diarize/rename", strings.NewReader(`{"from":"SPEAKER_00"}`))
	s.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing to field, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type stubTranscriber struct {
	available bool
	text      string
}

func (s *stubTranscriber) Name() string                     { return "stub" }
func (s *stubTranscriber) IsAvailable(context.Context) bool { return s.available }

func (s *stubTranscriber) Transcribe(context.Context, transcription.Request) (*transcription.Response, error) {
	return &transcription.Response{Text: s.text}, nil
}

type stubDiarizer struct {
	available bool
	segments  []diarization.Segment
}

func (s *stubDiarizer) Name() string                     { return "stub" }
func (s *stubDiarizer) IsAvailable(context.Context) bool { return s.available }

func (s *stubDiarizer) Diarize(context.Context, diarization.Request) (*diarization.Response, error) {
	return &diarization.Response{Segments: s.segments, NumSpeakers: 2}, nil
}

func newTestServer(t *testing.T, tr *stubTranscriber, di *stubDiarizer) (*Server, *sse.Hub) {
	t.Helper()

	hub := sse.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	p := pipeline.New(pipeline.Config{}, tr)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.Stop(ctx)
	})

	manager := transcription.NewManager(nil)
	manager.Register("stub", func(map[string]any) (transcription.Provider, error) {
		return tr, nil
	})
	if err := manager.Initialize(context.Background(), "stub", nil); err != nil {
		t.Fatalf("initialize transcription manager: %v", err)
	}

	var cfg Config
	cfg.ApplyDefaults()

	s := New(cfg, Deps{
		ServiceName:   "livescribe-test",
		Version:       "test",
		Pipeline:      p,
		Hub:           hub,
		Diarizer:      diarization.NewService(di),
		Transcription: manager,
	})
	return s, hub
}

func wsURL(base, source string) string {
	return "ws" + strings.TrimPrefix(base, "http") + "/v1/ingest?source=" + source
}

func encodeFrame(ts float64, samples []float32) []byte {
	buf := make([]byte, frameHeaderSize+4*len(samples))
	binary.LittleEndian.PutUint64(buf, math.Float64bits(ts))
	for i, v := range samples {
		binary.LittleEndian.PutUint32(buf[frameHeaderSize+4*i:], math.Float32bits(v))
	}
	return buf
}

func waitForEvent(t *testing.T, client *sse.Client, event string) sse.Message {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case msg, ok := <-client.Events():
			if !ok {
				t.Fatal("hub closed the listener before the event arrived")
			}
			if msg.Event == event {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", event)
		}
	}
}

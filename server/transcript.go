package server

import (
	"encoding/json"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/skillsenselab/livescribe/audio"
	apperrors "github.com/skillsenselab/livescribe/errors"
	"github.com/skillsenselab/livescribe/pipeline"
	"github.com/skillsenselab/livescribe/sse"
	"github.com/skillsenselab/livescribe/stream"
)

// ingestSinkBuffer absorbs about a minute of one-second chunks per
// source before ingest reads start blocking.
const ingestSinkBuffer = 64

type startResponse struct {
	Generation uint64   `json:"generation"`
	Sources    []string `json:"sources"`
}

type statusResponse struct {
	Pipeline pipeline.Status `json:"pipeline"`
	Sources  []string        `json:"sources"`
}

// handlePipelineStart starts the pipeline over the sources connected
// right now. A run that is already active is superseded: its buffered
// audio and unfinished transcriptions are discarded, and sockets keep
// streaming into the new run.
func (s *Server) handlePipelineStart(c *gin.Context) {
	s.mu.Lock()
	if len(s.conns) == 0 {
		s.mu.Unlock()
		RespondWithError(c, apperrors.Validation(
			"no ingest connections; connect at least one audio source first"))
		return
	}

	sinks := make(map[audio.Source]*stream.Source[audio.Chunk], len(s.conns))
	iters := make([]stream.Iterator[audio.Chunk], 0, len(s.conns))
	names := make([]string, 0, len(s.conns))
	for src := range s.conns {
		sink := stream.NewSource[audio.Chunk](ingestSinkBuffer)
		sinks[src] = sink
		iters = append(iters, sink.Iter())
		names = append(names, src.String())
	}
	s.sinks = sinks
	s.mu.Unlock()

	sort.Strings(names)

	merged := pipeline.Merge(s.baseCtx, s.deps.Pipeline.Config(), iters...)
	out := s.deps.Pipeline.Start(s.baseCtx, merged)
	go s.forwardTranscripts(out)

	s.broadcastStatus()
	RespondOK(c, startResponse{
		Generation: s.deps.Pipeline.Status().Generation,
		Sources:    names,
	})
}

// handlePipelineStop waits out in-flight transcriptions, flushes
// buffered audio, and stops the run. Stopping an idle pipeline is a
// no-op.
func (s *Server) handlePipelineStop(c *gin.Context) {
	if err := s.deps.Pipeline.Stop(c.Request.Context()); err != nil {
		RespondWithError(c, apperrors.Timeout("pipeline stop").WithCause(err))
		return
	}
	s.broadcastStatus()
	RespondOK(c, s.deps.Pipeline.Status())
}

func (s *Server) handlePipelineStatus(c *gin.Context) {
	RespondOK(c, statusResponse{
		Pipeline: s.deps.Pipeline.Status(),
		Sources:  s.connectedSources(),
	})
}

// handleTranscriptStream subscribes the caller to transcript and status
// events over SSE.
func (s *Server) handleTranscriptStream(c *gin.Context) {
	sse.ServeSSE(s.deps.Hub, c.Writer, c.Request, uuid.NewString())
}

// connectedSources lists the sources with an open ingest socket.
func (s *Server) connectedSources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.conns))
	for src := range s.conns {
		names = append(names, src.String())
	}
	sort.Strings(names)
	return names
}

// forwardTranscripts pumps one run's segments into the SSE hub. It ends
// when the run's output closes and leaves a final status event so
// stream clients see the run settle.
func (s *Server) forwardTranscripts(out stream.Iterator[pipeline.TranscriptSegment]) {
	defer s.broadcastStatus()
	defer out.Close()

	for {
		seg, ok, err := out.Next(s.baseCtx)
		if err != nil || !ok {
			return
		}
		b, err := json.Marshal(seg)
		if err != nil {
			continue
		}
		s.deps.Hub.Broadcast(sse.EventTypeTranscript, b)
	}
}

// broadcastStatus pushes a pipeline status snapshot to every stream
// client.
func (s *Server) broadcastStatus() {
	b, err := json.Marshal(s.deps.Pipeline.Status())
	if err != nil {
		return
	}
	s.deps.Hub.Broadcast(sse.EventTypeStatus, b)
}

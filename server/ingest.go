package server

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/skillsenselab/livescribe/audio"
	apperrors "github.com/skillsenselab/livescribe/errors"
	"github.com/skillsenselab/livescribe/logger"
)

const (
	// frameHeaderSize is the timestamp prefix of every binary frame.
	frameHeaderSize = 8
	// maxFrameBytes caps a single frame at roughly 16 seconds of
	// 16 kHz float32 audio.
	maxFrameBytes = 1 << 20
)

// Capture clients are native apps, not browsers; origin checks do not
// apply to them.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 4 * 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleIngest upgrades the connection to a WebSocket and feeds decoded
// audio frames into the current run's sink for the requested source.
// Only one socket per source may be open at a time.
func (s *Server) handleIngest(c *gin.Context) {
	src, ok := audio.ParseSource(c.Query("source"))
	if !ok {
		RespondWithError(c, apperrors.InvalidInput("source", "must be microphone or system"))
		return
	}

	if !s.claimSource(src) {
		RespondWithError(c, apperrors.Conflict(
			fmt.Sprintf("a %s ingest connection is already open", src)))
		return
	}
	defer s.releaseSource(src)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameBytes)

	log := s.log.WithFields(logger.Fields(logger.FieldSource, src.String()))
	log.Info("ingest connected")

	ctx := c.Request.Context()
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("ingest read failed", logger.Fields(logger.FieldError, err.Error()))
			}
			break
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		chunk, err := decodeFrame(src, data)
		if err != nil {
			log.Warn("dropping malformed frame", logger.Fields(logger.FieldError, err.Error()))
			continue
		}
		if len(chunk.Samples) == 0 {
			continue
		}
		s.emitChunk(ctx, src, chunk)
	}
	log.Info("ingest disconnected")
}

// claimSource reserves the ingest slot for src. Returns false when
// another connection already holds it.
func (s *Server) claimSource(src audio.Source) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.conns[src]; taken {
		return false
	}
	s.conns[src] = struct{}{}
	return true
}

// releaseSource frees the slot and closes the source's branch of the
// current run, so a run whose sockets all disconnect drains naturally.
func (s *Server) releaseSource(src audio.Source) {
	s.mu.Lock()
	sink := s.sinks[src]
	delete(s.sinks, src)
	delete(s.conns, src)
	s.mu.Unlock()

	if sink != nil {
		sink.Close()
	}
}

// emitChunk hands one chunk to the current run's sink for src. Chunks
// arriving while no run consumes this source are dropped.
func (s *Server) emitChunk(ctx context.Context, src audio.Source, chunk audio.Chunk) {
	s.mu.Lock()
	sink := s.sinks[src]
	s.mu.Unlock()

	if sink == nil {
		return
	}
	// ErrClosed here means the run ended mid-frame; the chunk is dropped
	// like any other not-running frame.
	_ = sink.Emit(ctx, chunk)
}

// decodeFrame parses one binary ingest frame: an 8-byte little-endian
// float64 capture timestamp followed by little-endian float32 samples.
func decodeFrame(src audio.Source, data []byte) (audio.Chunk, error) {
	if len(data) < frameHeaderSize {
		return audio.Chunk{}, fmt.Errorf("frame too short: %d bytes", len(data))
	}
	payload := data[frameHeaderSize:]
	if len(payload)%4 != 0 {
		return audio.Chunk{}, fmt.Errorf("frame payload not float32 aligned: %d bytes", len(payload))
	}

	ts := math.Float64frombits(binary.LittleEndian.Uint64(data[:frameHeaderSize]))
	samples := make([]float32, len(payload)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
	}

	return audio.Chunk{Samples: samples, Timestamp: ts, Source: src}, nil
}

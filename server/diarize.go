package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skillsenselab/livescribe/audio"
	"github.com/skillsenselab/livescribe/diarization"
	apperrors "github.com/skillsenselab/livescribe/errors"
	"github.com/skillsenselab/livescribe/validation"
)

type speakerResponse struct {
	Time    float64 `json:"time"`
	Speaker string  `json:"speaker"`
}

type renameRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type renameResponse struct {
	Renamed int `json:"renamed"`
}

// handleDiarize runs speaker diarization over a complete WAV recording
// posted as the request body and caches the result for label lookups.
// Speaker count hints are passed as num_speakers, min_speakers, and
// max_speakers query parameters.
func (s *Server) handleDiarize(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		RespondWithError(c, apperrors.InvalidAudio("could not read request body", err))
		return
	}
	if len(data) == 0 {
		RespondWithError(c, apperrors.InvalidAudio("empty request body", nil))
		return
	}

	samples, sampleRate, err := audio.DecodeWAV(data)
	if err != nil {
		RespondWithError(c, apperrors.InvalidAudio("request body is not a decodable WAV file", err))
		return
	}

	numSpeakers, err := queryInt(c, "num_speakers")
	if err != nil {
		RespondWithError(c, err)
		return
	}
	minSpeakers, err := queryInt(c, "min_speakers")
	if err != nil {
		RespondWithError(c, err)
		return
	}
	maxSpeakers, err := queryInt(c, "max_speakers")
	if err != nil {
		RespondWithError(c, err)
		return
	}
	if verr := validation.New().
		Custom(minSpeakers == 0 || maxSpeakers == 0 || minSpeakers <= maxSpeakers,
			"min_speakers", "must not exceed max_speakers").
		Validate(); verr != nil {
		RespondWithError(c, verr)
		return
	}

	began := time.Now()
	resp, err := s.deps.Diarizer.Diarize(c.Request.Context(), diarization.Request{
		Samples:     samples,
		SampleRate:  sampleRate,
		NumSpeakers: numSpeakers,
		MinSpeakers: minSpeakers,
		MaxSpeakers: maxSpeakers,
	})
	if err != nil {
		s.deps.Metrics.RecordOperation(c.Request.Context(), "diarize", "error", time.Since(began))
		RespondWithError(c, err)
		return
	}
	s.deps.Metrics.RecordOperation(c.Request.Context(), "diarize", "ok", time.Since(began))
	RespondOK(c, resp)
}

// handleSpeakerAt looks up the diarized speaker label at a point in
// time against the most recent diarization result.
func (s *Server) handleSpeakerAt(c *gin.Context) {
	raw := c.Query("t")
	if raw == "" {
		RespondWithError(c, apperrors.MissingField("t"))
		return
	}
	t, err := strconv.ParseFloat(raw, 64)
	if err != nil || t < 0 {
		RespondWithError(c, apperrors.InvalidFormat("t", "non-negative seconds"))
		return
	}

	label, found := s.deps.Diarizer.SpeakerLabelAt(t)
	if !found {
		RespondWithError(c, apperrors.NotFound("speaker", raw))
		return
	}
	RespondOK(c, speakerResponse{Time: t, Speaker: label})
}

// handleRenameSpeaker rewrites a speaker label across the cached
// diarization result.
func (s *Server) handleRenameSpeaker(c *gin.Context) {
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, apperrors.InvalidInput("body", "expected JSON with from and to"))
		return
	}
	if verr := validation.New().
		Required("from", req.From).
		Required("to", req.To).
		MaxLength("to", req.To, 64).
		Validate(); verr != nil {
		RespondWithError(c, verr)
		return
	}

	RespondOK(c, renameResponse{Renamed: s.deps.Diarizer.RenameSpeaker(req.From, req.To)})
}

// queryInt parses an optional integer query parameter. Absent means
// zero; present but malformed is an error.
func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperrors.InvalidFormat(name, "non-negative integer")
	}
	return v, nil
}

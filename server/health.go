package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skillsenselab/livescribe/provider"
)

type healthResponse struct {
	Status     string         `json:"status"`
	Service    string         `json:"service"`
	Version    string         `json:"version,omitempty"`
	Timestamp  string         `json:"timestamp"`
	Components map[string]any `json:"components"`
}

// handleHealth reports service health. The service is unhealthy only
// when no transcription backend can take requests; a missing diarizer
// or a subset of backends being down degrades it.
func (s *Server) handleHealth(c *gin.Context) {
	ctx := c.Request.Context()
	status := "healthy"
	components := make(map[string]any)

	if s.deps.Transcription != nil {
		backends := make(map[string]string)
		anyHealthy := false
		allHealthy := true
		for name, hs := range s.deps.Transcription.Health(ctx) {
			backends[name] = hs.Status.String()
			if hs.Status == provider.StatusHealthy {
				anyHealthy = true
			} else {
				allHealthy = false
			}
		}
		components["transcription"] = backends
		if !anyHealthy {
			status = "unhealthy"
		} else if !allHealthy {
			status = "degraded"
		}
	}

	if s.deps.Diarizer != nil {
		available := s.deps.Diarizer.Available(ctx)
		components["diarization"] = map[string]bool{"available": available}
		if !available && status == "healthy" {
			status = "degraded"
		}
	}

	if s.deps.Pipeline != nil {
		components["pipeline"] = s.deps.Pipeline.Status()
	}

	httpStatus := http.StatusOK
	if status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, healthResponse{
		Status:     status,
		Service:    s.deps.ServiceName,
		Version:    s.deps.Version,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: components,
	})
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/skillsenselab/livescribe/audio"
	"github.com/skillsenselab/livescribe/diarization"
	"github.com/skillsenselab/livescribe/logger"
	"github.com/skillsenselab/livescribe/observability"
	"github.com/skillsenselab/livescribe/pipeline"
	"github.com/skillsenselab/livescribe/provider"
	"github.com/skillsenselab/livescribe/server/middleware"
	"github.com/skillsenselab/livescribe/sse"
	"github.com/skillsenselab/livescribe/stream"
	"github.com/skillsenselab/livescribe/transcription"
)

// Deps carries the collaborators the server exposes over HTTP.
// Pipeline, Hub, and Diarizer are required; Metrics is optional.
type Deps struct {
	ServiceName   string
	Version       string
	Pipeline      *pipeline.Pipeline
	Hub           *sse.Hub
	Diarizer      *diarization.Service
	Transcription *provider.Manager[transcription.Provider]
	Metrics       *observability.Metrics
}

// Server is the livescribe HTTP server: a Gin engine wrapped in h2c,
// plus the ingest socket state shared between handlers.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     Config
	deps       Deps
	log        *logger.Logger

	// baseCtx outlives individual requests; pipeline runs, merge pumps,
	// and the transcript forwarder are bound to it.
	baseCtx context.Context

	// mu guards the ingest connection registry and the per-source sinks
	// of the current pipeline run.
	mu    sync.Mutex
	conns map[audio.Source]struct{}
	sinks map[audio.Source]*stream.Source[audio.Chunk]
}

// New builds the server: Gin engine, middleware stack, routes, and the
// h2c-wrapped http.Server. Call Start to begin serving.
func New(cfg Config, deps Deps) *Server {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	s := &Server{
		engine:  engine,
		config:  cfg,
		deps:    deps,
		log:     logger.Get("server"),
		baseCtx: context.Background(),
		conns:   make(map[audio.Source]struct{}),
		sinks:   make(map[audio.Source]*stream.Source[audio.Chunk]),
	}

	s.applyMiddleware()
	s.registerRoutes()

	h2s := &http2.Server{IdleTimeout: 120 * time.Second}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      h2c.NewHandler(engine, h2s),
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeout) * time.Second,
	}

	return s
}

func (s *Server) applyMiddleware() {
	s.engine.Use(middleware.Recovery(s.deps.Metrics))
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.CORS(s.config.CORS))
	if s.config.MaxBodySize != "" {
		s.engine.Use(middleware.BodySizeLimit(s.config.MaxBodySize))
	}
	if s.deps.Metrics != nil {
		s.engine.Use(middleware.RequestMetrics(s.deps.Metrics))
	}
	s.engine.Use(middleware.RequestLogger())
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handleHealth)

	v1 := s.engine.Group("/v1")
	v1.GET("/ingest", s.handleIngest)
	v1.POST("/pipeline/start", s.handlePipelineStart)
	v1.POST("/pipeline/stop", s.handlePipelineStop)
	v1.GET("/pipeline/status", s.handlePipelineStatus)
	v1.GET("/transcript/stream", s.handleTranscriptStream)

	diarize := v1.Group("/diarize")
	diarize.Use(middleware.RateLimit(middleware.RateLimitConfig{Requests: 30}))
	diarize.POST("", s.handleDiarize)
	diarize.GET("/speaker", s.handleSpeakerAt)
	diarize.POST("/rename", s.handleRenameSpeaker)
}

// Start binds the port and begins serving. It returns once the listener
// is bound so the caller knows the port is ready; serving continues in
// a goroutine. ctx becomes the base context for pipeline runs started
// over HTTP.
func (s *Server) Start(ctx context.Context) error {
	s.baseCtx = ctx

	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.httpServer.Addr, err)
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("server error", logger.Fields(logger.FieldError, err.Error()))
		}
	}()

	s.log.Info("http server started", logger.Fields("addr", s.httpServer.Addr))
	return nil
}

// shutdownGrace bounds how long Stop waits for in-flight requests.
const shutdownGrace = 5 * time.Second

// Stop drains in-flight requests and closes the listener.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownGrace)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// Addr reports the host:port the server listens on.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the root handler, for tests that serve the API
// without binding a port.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

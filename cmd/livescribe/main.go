// Command livescribe runs the live meeting transcription service. It
// ingests microphone and system audio over WebSocket, merges both
// streams through the speaker-window pipeline, and serves transcript
// segments to SSE subscribers alongside on-demand diarization.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skillsenselab/livescribe/config"
	"github.com/skillsenselab/livescribe/diarization"
	"github.com/skillsenselab/livescribe/diarization/pyannote"
	"github.com/skillsenselab/livescribe/language"
	"github.com/skillsenselab/livescribe/logger"
	"github.com/skillsenselab/livescribe/observability"
	"github.com/skillsenselab/livescribe/pipeline"
	"github.com/skillsenselab/livescribe/provider"
	"github.com/skillsenselab/livescribe/server"
	"github.com/skillsenselab/livescribe/sse"
	"github.com/skillsenselab/livescribe/transcription"
	"github.com/skillsenselab/livescribe/transcription/openai"
	"github.com/skillsenselab/livescribe/transcription/whisper"
	"github.com/skillsenselab/livescribe/util"
	"github.com/skillsenselab/livescribe/vad"
	"github.com/skillsenselab/livescribe/version"
)

// shutdownTimeout bounds how long a signal-triggered shutdown may
// spend draining the pipeline and closing the server.
const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "livescribe: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Version == "" {
		cfg.Version = version.Short()
	}

	logger.Init(cfg.Logging)
	logger.RegisterDefaults("main", "server", "http", "pipeline", "sse", "diarization", "provider")
	log := logger.Get("main")

	log.Info("starting livescribe", logger.Fields(
		"version", cfg.Version,
		"environment", cfg.Environment,
	))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := observability.Setup(ctx, cfg.Observability, cfg.Name, cfg.Version, cfg.Environment)
	if err != nil {
		return fmt.Errorf("observability setup: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := obs.Shutdown(sctx); err != nil {
			log.Warn("observability shutdown failed", logger.Fields(logger.FieldError, err.Error()))
		}
	}()

	meter := observability.Meter(cfg.Name)
	metrics, err := observability.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create http metrics: %w", err)
	}
	pipelineMetrics, err := observability.NewPipelineMetrics(meter)
	if err != nil {
		return fmt.Errorf("create pipeline metrics: %w", err)
	}

	backends, err := buildTranscription(ctx, cfg.Transcription, log)
	if err != nil {
		return err
	}

	diarizer, err := buildDiarizer(cfg.Diarization)
	if err != nil {
		return err
	}

	pipe := pipeline.New(cfg.Pipeline,
		transcription.NewAdapter(backends, backendSeed(cfg.Transcription)),
		pipeline.WithGate(vad.NewGateFromConfig(cfg.VAD)),
		pipeline.WithDetector(buildDetector(cfg.Language)),
		pipeline.WithMetrics(pipelineMetrics),
		pipeline.WithLanguageHint(cfg.Transcription.Language),
	)

	hub := sse.NewHub()

	srv := server.New(cfg.Server, server.Deps{
		ServiceName:   cfg.Name,
		Version:       cfg.Version,
		Pipeline:      pipe,
		Hub:           hub,
		Diarizer:      diarizer,
		Transcription: backends,
		Metrics:       metrics,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run()
		return nil
	})

	// Shutdown watcher: once the signal context ends, drain the
	// pipeline so in-flight windows still reach subscribers, then close
	// the server, the hub, and the backends.
	g.Go(func() error {
		<-gctx.Done()

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := pipe.Stop(sctx); err != nil {
			log.Warn("pipeline stop incomplete", logger.Fields(logger.FieldError, err.Error()))
		}
		if err := srv.Stop(sctx); err != nil {
			log.Warn("server stop failed", logger.Fields(logger.FieldError, err.Error()))
		}
		hub.Stop()
		if err := backends.Close(sctx); err != nil {
			log.Warn("backend close failed", logger.Fields(logger.FieldError, err.Error()))
		}
		return nil
	})

	if err := srv.Start(gctx); err != nil {
		stop()
		_ = g.Wait()
		return err
	}

	log.Info("livescribe ready", logger.Fields("addr", srv.Addr()))
	return g.Wait()
}

// buildTranscription registers the whisper and openai factories, boots
// them from config, and applies the configured selection policy.
func buildTranscription(ctx context.Context, cfg config.TranscriptionConfig, log *logger.Logger) (*provider.Manager[transcription.Provider], error) {
	m := transcription.NewManager(provider.SelectorFor[transcription.Provider](cfg.Strategy, cfg.Priority))

	m.Register(whisper.ProviderName, whisper.Factory())
	m.Register(openai.ProviderName, openai.Factory())

	if err := m.Initialize(ctx, whisper.ProviderName, cfg.Whisper.Settings()); err != nil {
		return nil, fmt.Errorf("initialize whisper backend: %w", err)
	}
	if err := m.Initialize(ctx, openai.ProviderName, cfg.OpenAI.Settings()); err != nil {
		return nil, fmt.Errorf("initialize openai backend: %w", err)
	}

	if cfg.OpenAI.APIKey != "" {
		log.Debug("openai backend configured", logger.Fields("api_key", util.MaskSecret(cfg.OpenAI.APIKey, 4)))
	}

	if cfg.Default != "" {
		if err := m.SetDefault(cfg.Default); err != nil {
			return nil, fmt.Errorf("pin transcription backend: %w", err)
		}
	}
	return m, nil
}

// backendSeed is the provider label the pipeline reports before the
// first window is dispatched.
func backendSeed(cfg config.TranscriptionConfig) string {
	if cfg.Default != "" {
		return cfg.Default
	}
	return "auto"
}

func buildDiarizer(cfg config.DiarizationConfig) (*diarization.Service, error) {
	switch cfg.Backend {
	case pyannote.ProviderName:
		backend, err := pyannote.Factory()(cfg.Pyannote.Settings())
		if err != nil {
			return nil, fmt.Errorf("initialize pyannote backend: %w", err)
		}
		return diarization.NewService(backend), nil
	default:
		return nil, fmt.Errorf("unknown diarization backend %q", cfg.Backend)
	}
}

func buildDetector(cfg config.LanguageConfig) language.Detector {
	if cfg.Detection == "lingua" {
		return language.NewDetector(cfg.Codes...)
	}
	return language.Noop()
}

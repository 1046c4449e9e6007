// Package observability provides OpenTelemetry tracing and metrics for
// the livescribe service.
//
// Setup bootstraps both providers from configuration:
//
//	providers, err := observability.Setup(ctx, cfg, "livescribe", version, env)
//	defer providers.Shutdown(ctx)
//
// The pipeline reports its domain instruments through PipelineMetrics:
//
//	pm, err := observability.NewPipelineMetrics(observability.Meter("pipeline"))
//	pm.RecordSegment(ctx, "You")
//
// All PipelineMetrics methods are safe on a nil receiver, so components
// can record unconditionally whether or not metrics are enabled.
package observability

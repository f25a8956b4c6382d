// Package telemetry provides observability for scenario builds.
//
// The package integrates structured logging (zerolog), distributed tracing
// (OpenTelemetry) and metrics (Prometheus).
//
// # Usage
//
// Initialize telemetry once per process:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceVersion = "1.3.0"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
// Add telemetry to the build context:
//
//	ctx = tel.WithContext(ctx)
//
// # Stages
//
// Resolver, preparer and composer stages are instrumented with StartStage.
// Every stage gets a span named "<phase>.<stage>", a stage log context and a
// duration observation:
//
//	sc := telemetry.StartStage(ctx, "resolver", "sample")
//	err := apply(sc.Ctx)
//	sc.End(err)
//
// Without telemetry in the context StartStage degrades to a no-op span and
// the context logger.
//
// # Exporters
//
//   - "stdout": Print traces to stdout (development)
//   - "otlp": Export via OTLP/gRPC
//   - "none": Generate traces but don't export (testing)
//
// # Common Metrics
//
//   - leipzig_builds_started_total
//   - leipzig_builds_completed_total{status}
//   - leipzig_build_duration_seconds{status}
//   - leipzig_stages_executed_total{phase,stage,status}
//   - leipzig_stage_duration_seconds{phase,stage}
//   - leipzig_bindings_composed_total{group,capability}
//   - leipzig_links_adjusted_total{area}
//   - leipzig_routes_deleted_total
//   - leipzig_policy_violations_total{policy,severity}
//   - leipzig_errors_by_class_total{class}
//   - leipzig_active_builds
//
// Metrics are exposed via HTTP at /metrics (default: :9090/metrics).
package telemetry

// Package observability provides logging, metrics, and tracing for navroute.
//
// # Logging
//
// Logger wraps zap. Loggers enrich themselves from a context carrying a
// resolution ID and the active trace and span IDs:
//
//	logger, err := observability.NewLogger(observability.DefaultLogConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	logger.WithContext(ctx).Info("route matched",
//	    observability.String("route", "/user/:id"),
//	)
//
// Logr adapts a Logger for libraries that expect logr, such as the
// OpenTelemetry SDK.
//
// # Metrics
//
// Metrics owns a private Prometheus registry with resolution, dispatch,
// navigation and guard metrics. All recording methods accept a nil receiver.
//
//	metrics := observability.NewMetrics("navroute")
//	http.Handle("/metrics", metrics.Handler())
//
// # Tracing
//
// Tracer starts one "router.resolve" span per resolution and exports via
// OTLP gRPC when an endpoint is configured.
package observability

// Package metric provides Prometheus-based metrics collection for the
// drugscout retrieval layer.
//
// The package offers a centralized metrics registry managing both core
// platform metrics (upstream request volume and latency, retries, errors,
// NATS health for the durable cache backend) and custom client-specific
// metrics. Export is pull-based: Handler() returns an http.Handler in
// Prometheus exposition format for the caller to mount; the registry never
// opens a listener of its own.
//
// # Basic Usage
//
//	registry := metric.NewMetricsRegistry()
//
//	// Record core platform metrics
//	core := registry.CoreMetrics()
//	core.RecordRequest("opentargets", "graphql", "2xx")
//	core.RecordRequestDuration("opentargets", "graphql", elapsed)
//	core.RecordRetry("ctgov")
//
//	// Expose wherever the application serves HTTP
//	mux.Handle("/metrics", registry.Handler())
//
// # Client-Specific Metrics
//
// Clients register their own collectors through the MetricsRegistrar
// interface, keyed by "client.metric" to guard against collisions:
//
//	hits := prometheus.NewCounter(prometheus.CounterOpts{
//	    Namespace: "drugscout", Subsystem: "cache", Name: "hits_total",
//	    Help: "Cache hits",
//	})
//	if err := registry.RegisterCounter("drug-cache", "hits_total", hits); err != nil {
//	    return err
//	}
//
// Duplicate registration returns an Invalid-classified error rather than
// panicking; all other registration failures are Fatal.
//
// # Naming Conventions
//
// All core metrics use the "drugscout" namespace with subsystems "requests",
// "errors", and "nats". Client metrics should follow the same namespace so
// dashboards can group them.
//
// # Thread Safety
//
// The registry is safe for concurrent registration and the underlying
// Prometheus collectors handle concurrent updates.
package metric

// Package drugscout assembles evidence for drug repurposing questions
// from public biomedical sources: the Open Targets knowledge graph and
// the ClinicalTrials.gov trial registry.
//
// # Architecture
//
// The module is a library of composable clients. Callers wire the
// pieces they need; nothing starts on import.
//
//	┌─────────────────────────────────────┐
//	│       prefetch (cache warming)      │  worker-pool fan-out
//	└─────────────────────────────────────┘
//	           ↓ drives
//	┌─────────────────────────────────────┐
//	│   opentargets          ctgov        │  profile fetch,
//	│ (knowledge graph)  (trial registry) │  trial aggregation
//	└─────────────────────────────────────┘
//	           ↓ request through
//	┌─────────────────────────────────────┐
//	│        httpclient executor          │  retry, rate limiting,
//	│     (GET, GraphQL POST, text)       │  classified errors
//	└─────────────────────────────────────┘
//	           ↓
//	     public upstream APIs
//
// Drug and target profiles cache in two tiers beneath the knowledge
// graph client: a bounded in-process tier in front of an optional
// durable store (file tree, SQLite, or NATS JetStream KV). Trial
// registry views are computed per call and never cached as units.
//
// # Packages
//
// Clients:
//   - opentargets: paginating GraphQL client for drug, target, and
//     disease profiles
//   - ctgov: trial search plus whitespace, landscape, and termination
//     views
//   - prefetch: batch cache warming through a shared worker pool
//
// Transport and resilience:
//   - httpclient: per-source request executor
//   - pkg/retry: backoff policies
//   - natsclient: NATS connection management with a circuit breaker
//
// Caching and storage:
//   - pkg/cache: bounded and TTL memory caches, tiered composition
//   - storage: durable key-value store contract
//   - storage/filestore, storage/sqlitestore, storage/natsstore:
//     backends
//
// Infrastructure:
//   - config: layered JSON/YAML configuration with environment
//     overrides and schema validation
//   - errors: classified errors (transient, fatal, invalid) and retry
//     policy
//   - metric: Prometheus metrics registry
//   - pkg/worker: generic worker pools
//   - pkg/dateutil: registry date forms and duration strings
//   - pkg/tlsutil: client TLS configuration
//   - testutil: fake upstreams and wire fixtures for tests
//
// # Usage
//
// Compose clients from config sections:
//
//	cfg, err := config.NewLoader("drugscout.yaml").Load()
//
//	store, err := filestore.New(cfg.Storage.File)
//	defer store.Close()
//
//	exec, err := httpclient.New(cfg.ExecutorConfig(opentargets.Source))
//	graph, err := opentargets.NewClient(ctx, exec, cfg.OpenTargets, store)
//	defer graph.Close()
//
//	bundle, err := graph.GetDrugWithTargets(ctx, "imatinib")
//
// Ask the registry where a pair is untried:
//
//	texec, err := httpclient.New(cfg.ExecutorConfig(ctgov.Source))
//	trials, err := ctgov.NewClient(texec, cfg.Registry)
//
//	ws, err := trials.DetectWhitespace(ctx, bundle.Drug.Name, "systemic sclerosis", time.Now())
//
// Warm the caches for a candidate list ahead of interactive work:
//
//	runner, err := prefetch.NewRunner(graph, cfg.Prefetch)
//	runner.Start(ctx)
//	report, err := runner.Warm(ctx, []string{"imatinib", "dasatinib", "nilotinib"})
//
// # Design Principles
//
// Separation of concerns:
//   - Fetching ≠ aggregation: clients fetch and parse; views condense
//   - Transport tuning lives in the executor, not in the clients
//   - Cache policy lives in config, not in call sites
//
// Composition over configuration:
//   - Small clients connected by the caller
//   - One config tree, one section per component
//
// Testability:
//   - Explicit dependencies (no globals)
//   - Fake upstreams in testutil for stack-level tests
//   - Integration tests with testcontainers where a real backend
//     matters
package drugscout

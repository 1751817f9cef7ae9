// Package natsclient manages NATS connections for the shared durable
// cache tier.
//
// The retrieval layer keeps cached upstream responses in two places: an
// in-process memory tier and a durable tier shared between runs and
// between machines. When the durable tier is backed by NATS, this package
// owns everything below the storage interface: connection lifecycle,
// reconnection, circuit breaking, health monitoring, and access to
// JetStream key-value buckets.
//
// # Connection Lifecycle
//
// A Client is created disconnected and connects explicitly:
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//		natsclient.WithName("drugscout"),
//		natsclient.WithTimeout(5*time.Second),
//	)
//	if err != nil {
//		return err
//	}
//
//	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
//	defer cancel()
//	if err := client.Connect(ctx); err != nil {
//		return err
//	}
//	defer client.Close(context.Background())
//
// Connect is non-blocking with respect to server availability only up to
// the context deadline. WaitForConnection polls until the client reports
// healthy, which is useful after construction or around reconnect windows:
//
//	if err := client.WaitForConnection(ctx); err != nil {
//		return err
//	}
//
// Close drains the connection within the configured drain timeout, then
// force-closes and clears credentials from memory. It is safe to call
// more than once.
//
// # Circuit Breaker
//
// Connection failures feed a circuit breaker. After five consecutive
// failures (configurable with WithCircuitBreakerThreshold) the circuit
// opens and connection attempts fail fast with ErrCircuitOpen instead of
// hammering an unreachable server. The backoff before the next probe
// doubles on every failed round, capped by WithMaxBackoff (one minute by
// default). A successful connection resets the circuit.
//
// Status exposes where the client currently stands:
//
//	switch client.Status() {
//	case natsclient.StatusConnected:
//	case natsclient.StatusCircuitOpen:
//	case natsclient.StatusReconnecting:
//	}
//
// # Key-Value Buckets
//
// The durable cache tier lives in JetStream KV buckets. The client
// manages buckets directly:
//
//	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
//		Bucket:      "scout-cache",
//		Description: "shared response cache",
//		History:     1,
//	})
//
// CreateKeyValueBucket is safe to race: when two processes create the
// same bucket at startup, both resolve to the bucket that won.
//
// KVStore wraps a bucket with per-operation timeouts, value size limits,
// and compare-and-swap support:
//
//	kv, err := client.NewKVStore("scout-cache")
//	if err != nil {
//		return err
//	}
//
//	revision, err := kv.Put(ctx, key, payload)
//	entry, err := kv.Get(ctx, key)
//
// Missing keys surface as ErrKVKeyNotFound, create collisions as
// ErrKVKeyExists, and stale revisions as ErrKVRevisionMismatch. All are
// matchable with errors.Is through the wrapping.
//
// UpdateWithRetry performs read-modify-write with CAS retry for values
// that multiple processes mutate concurrently:
//
//	err := kv.UpdateWithRetry(ctx, "stats", func(current []byte) ([]byte, error) {
//		var s runStats
//		if current != nil {
//			if err := json.Unmarshal(current, &s); err != nil {
//				return nil, err
//			}
//		}
//		s.Runs++
//		return json.Marshal(s)
//	})
//
// The update function receives nil when the key does not exist yet.
// Revision conflicts trigger a re-read and another attempt with
// exponential backoff and jitter; once the retry budget is spent the
// call fails with ErrKVMaxRetriesExceeded. Errors returned by the update
// function itself are terminal and do not consume retries.
//
// # Observability
//
// The client logs through log/slog, defaulting to slog.Default. Wire in
// a configured logger and the shared metrics registry at construction:
//
//	client, err := natsclient.NewClient(url,
//		natsclient.WithLogger(logger),
//		natsclient.WithMetrics(registry),
//	)
//
// With metrics configured, the client maintains the
// drugscout_nats_connected gauge and the drugscout_nats_reconnects_total
// counter through connect, disconnect, reconnect, and close transitions.
//
// # Health Monitoring
//
// After a successful connect the client checks connection health every
// ten seconds (WithHealthInterval; zero disables it) and adjusts Status
// when the server stops answering RTT probes. Callbacks registered with
// WithDisconnectCallback, WithReconnectCallback, and
// WithHealthChangeCallback fire on their respective transitions; they run
// on their own goroutines, so slow callbacks never stall the connection
// handlers.
//
// # Testing
//
// test_client.go provides a containerized NATS server for integration
// tests. NewTestClient starts a throwaway server per test and cleans it
// up automatically; NewSharedTestClient is its error-returning form for
// TestMain, so a package can share one server across all of its tests:
//
//	func TestMain(m *testing.M) {
//		tc, err := natsclient.NewSharedTestClient(natsclient.WithKV())
//		if err != nil {
//			os.Exit(1)
//		}
//		code := m.Run()
//		tc.Terminate()
//		os.Exit(code)
//	}
//
// Integration tests live behind the "integration" build tag and need a
// container runtime.
package natsclient

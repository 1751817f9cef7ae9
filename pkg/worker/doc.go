// Package worker provides a generic bounded worker pool for concurrent
// batch processing.
//
// # Overview
//
// A Pool[T] runs a fixed number of workers that drain work items of
// type T from a bounded queue into a processor function. It exists for
// workloads that fan many independent upstream fetches out over a small
// number of goroutines, so concurrency is capped by the pool rather
// than by the size of the batch.
//
// # Submission Modes
//
// Two submission calls cover the two callers the pool has:
//
//   - Submit never blocks. A full queue drops the item and returns
//     ErrQueueFull, which suits streaming callers that prefer losing
//     items over stalling.
//   - SubmitWait waits for queue space, bounded by its context. Batch
//     callers use it when every submitted item must eventually run.
//
// # Lifecycle
//
// Start launches the workers under a context; cancelling that context
// abandons queued work and stops the workers. Stop is the graceful
// path: it closes the queue, lets workers drain what is already
// buffered, and waits up to a timeout. A Stop that times out leaves
// in-flight work running and may be retried.
//
// # Observability
//
// The pool always counts submissions, completions, failures, and drops;
// Stats returns the current snapshot. WithMetricsRegistry additionally
// exports queue depth, utilization, the counters, and a per-status
// processing-duration histogram through the module's Prometheus
// registry.
//
// # Usage
//
//	pool := worker.NewPool(4, 64, func(ctx context.Context, name string) error {
//		_, err := client.GetDrugWithTargets(ctx, name)
//		return err
//	})
//
//	if err := pool.Start(ctx); err != nil {
//		return err
//	}
//	for _, name := range names {
//		if err := pool.SubmitWait(ctx, name); err != nil {
//			break
//		}
//	}
//	return pool.Stop(30 * time.Second)
//
// The processor receives the context given to Start, so long fetches
// stop when the pool's context does.
package worker

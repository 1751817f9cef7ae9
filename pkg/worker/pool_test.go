package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/drugscout/metric"
)

// fetchJob stands in for one upstream fetch request.
type fetchJob struct {
	drug string
	fail bool
}

func countingProcessor(processed *atomic.Int64) func(context.Context, fetchJob) error {
	return func(_ context.Context, job fetchJob) error {
		processed.Add(1)
		if job.fail {
			return errors.New("upstream unavailable")
		}
		return nil
	}
}

func TestNewPool_Defaults(t *testing.T) {
	pool := NewPool(0, 0, func(context.Context, fetchJob) error { return nil })
	assert.Equal(t, defaultWorkers, pool.workers)
	assert.Equal(t, defaultQueueSize, pool.queueSize)

	pool = NewPool(5, 100, func(context.Context, fetchJob) error { return nil })
	assert.Equal(t, 5, pool.workers)
	assert.Equal(t, 100, pool.queueSize)
}

func TestNewPool_NilProcessorPanics(t *testing.T) {
	assert.PanicsWithError(t, ErrNilProcessor.Error(), func() {
		NewPool[fetchJob](5, 100, nil)
	})
}

func TestPool_ProcessesSubmittedWork(t *testing.T) {
	var processed atomic.Int64
	pool := NewPool(2, 10, countingProcessor(&processed))

	require.NoError(t, pool.Start(context.Background()))
	for i := 0; i < 5; i++ {
		require.NoError(t, pool.Submit(fetchJob{drug: "axotinib"}))
	}
	require.NoError(t, pool.Stop(5*time.Second))

	assert.Equal(t, int64(5), processed.Load())
	stats := pool.Stats()
	assert.Equal(t, int64(5), stats.Submitted)
	assert.Equal(t, int64(5), stats.Processed)
	assert.Zero(t, stats.Failed)
	assert.Zero(t, stats.Dropped)
}

func TestPool_FailuresCountedNotFatal(t *testing.T) {
	var processed atomic.Int64
	pool := NewPool(2, 20, countingProcessor(&processed))
	require.NoError(t, pool.Start(context.Background()))

	for i := 0; i < 10; i++ {
		require.NoError(t, pool.Submit(fetchJob{drug: "axotinib", fail: i%2 == 0}))
	}
	require.NoError(t, pool.Stop(5*time.Second))

	stats := pool.Stats()
	assert.Equal(t, int64(10), stats.Processed)
	assert.Equal(t, int64(5), stats.Failed)
	assert.Equal(t, int64(10), processed.Load())
}

func TestPool_SubmitDropsWhenSaturated(t *testing.T) {
	release := make(chan struct{})
	pool := NewPool(1, 2, func(context.Context, fetchJob) error {
		<-release
		return nil
	})
	require.NoError(t, pool.Start(context.Background()))

	accepted, dropped := 0, 0
	for i := 0; i < 6; i++ {
		if err := pool.Submit(fetchJob{drug: "axotinib"}); err != nil {
			assert.ErrorIs(t, err, ErrQueueFull)
			dropped++
		} else {
			accepted++
		}
	}
	// At most one job in flight plus two queued; the rest must drop.
	assert.GreaterOrEqual(t, accepted, 2)
	assert.GreaterOrEqual(t, dropped, 3)
	assert.Equal(t, int64(dropped), pool.Stats().Dropped)

	close(release)
	require.NoError(t, pool.Stop(5*time.Second))
	assert.Equal(t, int64(accepted), pool.Stats().Processed)
}

func TestPool_SubmitWaitAppliesBackpressure(t *testing.T) {
	release := make(chan struct{})
	var processed atomic.Int64
	pool := NewPool(1, 1, func(context.Context, fetchJob) error {
		<-release
		processed.Add(1)
		return nil
	})
	require.NoError(t, pool.Start(context.Background()))

	done := make(chan error, 1)
	go func() {
		var err error
		for i := 0; i < 4 && err == nil; i++ {
			err = pool.SubmitWait(context.Background(), fetchJob{drug: "axotinib"})
		}
		done <- err
	}()

	// One job in flight plus one queued leaves two submissions waiting.
	time.Sleep(30 * time.Millisecond)
	select {
	case err := <-done:
		t.Fatalf("submissions finished while the pool was saturated: %v", err)
	default:
	}

	close(release)
	require.NoError(t, <-done)
	require.NoError(t, pool.Stop(5*time.Second))
	assert.Equal(t, int64(4), processed.Load())
	assert.Zero(t, pool.Stats().Dropped)
}

func TestPool_SubmitWaitHonorsContext(t *testing.T) {
	release := make(chan struct{})
	pool := NewPool(1, 1, func(context.Context, fetchJob) error {
		<-release
		return nil
	})
	require.NoError(t, pool.Start(context.Background()))
	require.NoError(t, pool.SubmitWait(context.Background(), fetchJob{drug: "a"}))
	require.NoError(t, pool.SubmitWait(context.Background(), fetchJob{drug: "b"}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pool.SubmitWait(ctx, fetchJob{drug: "c"}), context.DeadlineExceeded)

	close(release)
	require.NoError(t, pool.Stop(5*time.Second))
}

func TestPool_SubmitWaitLifecycleErrorsDoNotWait(t *testing.T) {
	pool := NewPool(1, 1, func(context.Context, fetchJob) error { return nil })

	start := time.Now()
	err := pool.SubmitWait(context.Background(), fetchJob{drug: "a"})
	assert.ErrorIs(t, err, ErrPoolNotStarted)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestPool_StopDrainsQueue(t *testing.T) {
	var processed atomic.Int64
	pool := NewPool(2, 50, func(context.Context, fetchJob) error {
		time.Sleep(time.Millisecond)
		processed.Add(1)
		return nil
	})
	require.NoError(t, pool.Start(context.Background()))

	for i := 0; i < 20; i++ {
		require.NoError(t, pool.Submit(fetchJob{drug: "axotinib"}))
	}
	require.NoError(t, pool.Stop(5*time.Second))
	assert.Equal(t, int64(20), processed.Load())
}

func TestPool_StopTimeoutThenRetry(t *testing.T) {
	release := make(chan struct{})
	pool := NewPool(1, 10, func(context.Context, fetchJob) error {
		<-release
		return nil
	})
	require.NoError(t, pool.Start(context.Background()))
	require.NoError(t, pool.Submit(fetchJob{drug: "a"}))

	// Wait for the worker to take the job before stopping.
	assert.Eventually(t, func() bool { return pool.Stats().QueueDepth == 0 },
		time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, pool.Stop(20*time.Millisecond), ErrStopTimeout)

	close(release)
	assert.NoError(t, pool.Stop(5*time.Second))
}

func TestPool_ContextCancellationAbandonsQueue(t *testing.T) {
	var processed atomic.Int64
	pool := NewPool(1, 60, func(context.Context, fetchJob) error {
		time.Sleep(2 * time.Millisecond)
		processed.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, pool.Start(ctx))
	for i := 0; i < 50; i++ {
		require.NoError(t, pool.Submit(fetchJob{drug: "axotinib"}))
	}

	time.Sleep(10 * time.Millisecond)
	cancel()
	require.NoError(t, pool.Stop(5*time.Second))
	assert.Less(t, pool.Stats().Processed, int64(50))
}

func TestPool_ConcurrentSubmitters(t *testing.T) {
	var processed atomic.Int64
	pool := NewPool(5, 100, countingProcessor(&processed))
	require.NoError(t, pool.Start(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				assert.NoError(t, pool.SubmitWait(context.Background(), fetchJob{drug: "axotinib"}))
			}
		}()
	}
	wg.Wait()

	require.NoError(t, pool.Stop(5*time.Second))
	assert.Equal(t, int64(100), processed.Load())
}

func TestPool_StatsSnapshot(t *testing.T) {
	pool := NewPool(3, 50, func(context.Context, fetchJob) error { return nil })

	stats := pool.Stats()
	assert.Equal(t, 3, stats.Workers)
	assert.Equal(t, 50, stats.QueueSize)
	assert.Zero(t, stats.Submitted)

	require.NoError(t, pool.Start(context.Background()))
	for i := 0; i < 10; i++ {
		require.NoError(t, pool.Submit(fetchJob{drug: "axotinib"}))
	}
	require.NoError(t, pool.Stop(5*time.Second))

	stats = pool.Stats()
	assert.Equal(t, int64(10), stats.Submitted)
	assert.Equal(t, int64(10), stats.Processed)
}

func TestPool_MetricsExport(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	pool := NewPool(2, 10,
		func(context.Context, fetchJob) error { return nil },
		WithMetricsRegistry[fetchJob](registry, "drugscout_prefetch"),
	)
	require.NotNil(t, pool.metrics)

	require.NoError(t, pool.Start(context.Background()))
	for i := 0; i < 3; i++ {
		require.NoError(t, pool.Submit(fetchJob{drug: "axotinib"}))
	}
	require.NoError(t, pool.Stop(5*time.Second))

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	counters := make(map[string]float64)
	for _, fam := range families {
		if len(fam.GetMetric()) == 1 && fam.GetMetric()[0].GetCounter() != nil {
			counters[fam.GetName()] = fam.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(3), counters["drugscout_prefetch_submitted_total"])
	assert.Equal(t, float64(3), counters["drugscout_prefetch_processed_total"])
	assert.Equal(t, float64(0), counters["drugscout_prefetch_failed_total"])
}

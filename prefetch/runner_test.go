package prefetch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/drugscout/errors"
	"github.com/c360/drugscout/opentargets"
	"github.com/c360/drugscout/pkg/worker"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls []string
	fn    func(ctx context.Context, name string) (opentargets.DrugWithTargets, error)
}

func (f *fakeFetcher) GetDrugWithTargets(ctx context.Context, name string) (opentargets.DrugWithTargets, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
	return f.fn(ctx, name)
}

func (f *fakeFetcher) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func bundle(chemblID string, targets int) opentargets.DrugWithTargets {
	b := opentargets.DrugWithTargets{
		Drug: opentargets.DrugProfile{ChemblID: chemblID},
	}
	for i := 0; i < targets; i++ {
		b.Targets = append(b.Targets, opentargets.TargetProfile{
			TargetID: fmt.Sprintf("ENSG%011d", i),
		})
	}
	return b
}

func TestWarm_PerDrugResultsInInputOrder(t *testing.T) {
	fetcher := &fakeFetcher{fn: func(_ context.Context, name string) (opentargets.DrugWithTargets, error) {
		switch name {
		case "axotinib":
			return bundle("CHEMBL1111", 2), nil
		case "betazumab":
			return opentargets.DrugWithTargets{}, fmt.Errorf("no drug found matching %q", name)
		default:
			return bundle("CHEMBL3333", 1), nil
		}
	}}
	runner, err := NewRunner(fetcher, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, runner.Start(context.Background()))
	defer runner.Stop(5 * time.Second)

	report, err := runner.Warm(context.Background(), []string{"axotinib", "betazumab", "gammacillin"})
	require.NoError(t, err, "one drug's failure must not abort the batch")

	require.Len(t, report.Results, 3)
	assert.Equal(t, "axotinib", report.Results[0].Drug)
	assert.Equal(t, "CHEMBL1111", report.Results[0].ChemblID)
	assert.Equal(t, 2, report.Results[0].Targets)
	assert.NoError(t, report.Results[0].Err)

	assert.Equal(t, "betazumab", report.Results[1].Drug)
	assert.Error(t, report.Results[1].Err)

	assert.Equal(t, "gammacillin", report.Results[2].Drug)
	assert.Equal(t, 1, report.Results[2].Targets)

	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Positive(t, report.Elapsed)
}

func TestWarm_FetchesConcurrently(t *testing.T) {
	var arrived sync.WaitGroup
	arrived.Add(3)
	fetcher := &fakeFetcher{fn: func(context.Context, string) (opentargets.DrugWithTargets, error) {
		// All three fetches must be in flight together before any
		// completes.
		arrived.Done()
		waitWithTimeout(&arrived, 2*time.Second)
		return bundle("CHEMBL0001", 0), nil
	}}
	runner, err := NewRunner(fetcher, Config{Workers: 3, QueueSize: 3})
	require.NoError(t, err)
	require.NoError(t, runner.Start(context.Background()))
	defer runner.Stop(5 * time.Second)

	start := time.Now()
	report, err := runner.Warm(context.Background(), []string{"a", "b", "c"})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, 3, report.Succeeded)
	assert.Less(t, elapsed, 1500*time.Millisecond,
		"fetches should overlap across workers")
}

func TestWarm_LargeBatchOverSmallQueue(t *testing.T) {
	fetcher := &fakeFetcher{fn: func(context.Context, string) (opentargets.DrugWithTargets, error) {
		time.Sleep(2 * time.Millisecond)
		return bundle("CHEMBL0001", 1), nil
	}}
	runner, err := NewRunner(fetcher, Config{Workers: 2, QueueSize: 1})
	require.NoError(t, err)
	require.NoError(t, runner.Start(context.Background()))
	defer runner.Stop(5 * time.Second)

	names := make([]string, 12)
	for i := range names {
		names[i] = fmt.Sprintf("drug-%02d", i)
	}
	report, err := runner.Warm(context.Background(), names)
	require.NoError(t, err)

	assert.Equal(t, 12, report.Succeeded)
	assert.Zero(t, report.Failed)
	assert.Len(t, fetcher.names(), 12)

	stats := runner.PoolStats()
	assert.Zero(t, stats.Dropped, "backpressure must queue, not drop")
	assert.Equal(t, int64(12), stats.Processed)
}

func TestWarm_ConcurrentBatchesShareWorkers(t *testing.T) {
	fetcher := &fakeFetcher{fn: func(_ context.Context, name string) (opentargets.DrugWithTargets, error) {
		return bundle("CHEMBL-"+name, 1), nil
	}}
	runner, err := NewRunner(fetcher, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, runner.Start(context.Background()))
	defer runner.Stop(5 * time.Second)

	batchA := []string{"a1", "a2", "a3"}
	batchB := []string{"b1", "b2"}

	type outcome struct {
		report Report
		err    error
	}
	resA := make(chan outcome, 1)
	resB := make(chan outcome, 1)
	go func() {
		report, err := runner.Warm(context.Background(), batchA)
		resA <- outcome{report, err}
	}()
	go func() {
		report, err := runner.Warm(context.Background(), batchB)
		resB <- outcome{report, err}
	}()

	a, b := <-resA, <-resB
	require.NoError(t, a.err)
	require.NoError(t, b.err)
	for i, name := range batchA {
		assert.Equal(t, "CHEMBL-"+name, a.report.Results[i].ChemblID)
	}
	for i, name := range batchB {
		assert.Equal(t, "CHEMBL-"+name, b.report.Results[i].ChemblID)
	}
}

func TestWarm_ContextEndsBeforeCompletion(t *testing.T) {
	release := make(chan struct{})
	fetcher := &fakeFetcher{fn: func(context.Context, string) (opentargets.DrugWithTargets, error) {
		<-release
		return bundle("CHEMBL0001", 0), nil
	}}
	runner, err := NewRunner(fetcher, Config{Workers: 1, QueueSize: 10})
	require.NoError(t, err)
	require.NoError(t, runner.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	report, err := runner.Warm(ctx, []string{"a", "b", "c"})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 3, report.Failed)
	for _, res := range report.Results {
		assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	}

	close(release)
	require.NoError(t, runner.Stop(5*time.Second))
}

func TestWarm_BeforeStart(t *testing.T) {
	fetcher := &fakeFetcher{fn: func(context.Context, string) (opentargets.DrugWithTargets, error) {
		return bundle("CHEMBL0001", 0), nil
	}}
	runner, err := NewRunner(fetcher, DefaultConfig())
	require.NoError(t, err)

	report, err := runner.Warm(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, worker.ErrPoolNotStarted)
	assert.Equal(t, 2, report.Failed)
}

func TestWarm_EmptyBatch(t *testing.T) {
	fetcher := &fakeFetcher{fn: func(context.Context, string) (opentargets.DrugWithTargets, error) {
		return bundle("CHEMBL0001", 0), nil
	}}
	runner, err := NewRunner(fetcher, DefaultConfig())
	require.NoError(t, err)

	report, err := runner.Warm(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Zero(t, report.Succeeded)
	assert.Zero(t, report.Failed)
	assert.Empty(t, fetcher.names())
}

func TestNewRunner_Validation(t *testing.T) {
	fetcher := &fakeFetcher{fn: func(context.Context, string) (opentargets.DrugWithTargets, error) {
		return opentargets.DrugWithTargets{}, nil
	}}

	_, err := NewRunner(nil, DefaultConfig())
	assert.ErrorIs(t, err, errors.ErrMissingConfig)

	_, err = NewRunner(fetcher, Config{Workers: -1})
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)

	_, err = NewRunner(fetcher, Config{QueueSize: -1})
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func waitWithTimeout(wg *sync.WaitGroup, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}

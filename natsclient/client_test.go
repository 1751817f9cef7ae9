package natsclient

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/drugscout/metric"
)

func TestNewClient(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	assert.Equal(t, "nats://localhost:4222", client.URL())
	assert.Equal(t, StatusDisconnected, client.Status())
	assert.Equal(t, -1, client.MaxReconnects())
	assert.Equal(t, 2*time.Second, client.ReconnectWait())
	assert.Equal(t, 30*time.Second, client.PingInterval())
	assert.Equal(t, int32(0), client.Failures())
	assert.Equal(t, time.Second, client.Backoff())
}

func TestNewClient_Options(t *testing.T) {
	logger := slog.Default()

	client, err := NewClient("nats://localhost:4222",
		WithMaxReconnects(3),
		WithReconnectWait(time.Second),
		WithPingInterval(time.Minute),
		WithLogger(logger),
		WithCircuitBreakerThreshold(10),
		WithMaxBackoff(5*time.Minute),
		WithName("scout-test"),
		WithTimeout(time.Second),
	)
	require.NoError(t, err)

	assert.Equal(t, 3, client.MaxReconnects())
	assert.Equal(t, time.Second, client.ReconnectWait())
	assert.Equal(t, time.Minute, client.PingInterval())
	assert.Equal(t, int32(10), client.circuitThreshold)
	assert.Equal(t, 5*time.Minute, client.maxBackoff)
	assert.Equal(t, "scout-test", client.clientName)
}

func TestNewClient_OptionFloors(t *testing.T) {
	client, err := NewClient("nats://localhost:4222",
		WithCircuitBreakerThreshold(0),
		WithMaxBackoff(time.Millisecond),
	)
	require.NoError(t, err)

	assert.Equal(t, int32(5), client.circuitThreshold)
	assert.Equal(t, time.Minute, client.maxBackoff)
}

func TestConnectionStatus_String(t *testing.T) {
	tests := []struct {
		status ConnectionStatus
		want   string
	}{
		{StatusDisconnected, "disconnected"},
		{StatusConnecting, "connecting"},
		{StatusConnected, "connected"},
		{StatusReconnecting, "reconnecting"},
		{StatusCircuitOpen, "circuit_open"},
		{ConnectionStatus(99), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.String())
	}
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	// Below the threshold the circuit stays closed
	for i := 0; i < 4; i++ {
		client.recordFailure()
		assert.NotEqual(t, StatusCircuitOpen, client.Status())
	}

	client.recordFailure()
	assert.Equal(t, StatusCircuitOpen, client.Status())
	assert.Equal(t, int32(5), client.Failures())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		client.recordFailure()
	}
	require.Equal(t, StatusCircuitOpen, client.Status())

	client.resetCircuit()

	assert.Equal(t, StatusDisconnected, client.Status())
	assert.Equal(t, int32(0), client.Failures())
	assert.Equal(t, time.Second, client.Backoff())
}

func TestCircuitBreaker_ExponentialBackoff(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	assert.Equal(t, time.Second, client.Backoff())

	// Each circuit open round doubles the backoff
	for i := 0; i < 5; i++ {
		client.recordFailure()
	}
	assert.Equal(t, 2*time.Second, client.Backoff())

	client.setStatus(StatusDisconnected)
	for i := 0; i < 5; i++ {
		client.recordFailure()
	}
	assert.Equal(t, 4*time.Second, client.Backoff())

	// Backoff never exceeds the configured maximum
	for round := 0; round < 10; round++ {
		client.setStatus(StatusDisconnected)
		for i := 0; i < 5; i++ {
			client.recordFailure()
		}
	}
	assert.LessOrEqual(t, client.Backoff(), time.Minute)
}

func TestCircuitBreaker_TestCircuit(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		client.recordFailure()
	}
	require.Equal(t, StatusCircuitOpen, client.Status())

	client.testCircuit()
	assert.Equal(t, StatusDisconnected, client.Status())

	// No-op when the circuit is not open
	client.setStatus(StatusConnected)
	client.testCircuit()
	assert.Equal(t, StatusConnected, client.Status())
}

func TestStatus_Transitions(t *testing.T) {
	tests := []struct {
		name string
		move func(c *Client)
		want ConnectionStatus
	}{
		{
			name: "initial state is disconnected",
			move: func(_ *Client) {},
			want: StatusDisconnected,
		},
		{
			name: "connecting",
			move: func(c *Client) { c.setStatus(StatusConnecting) },
			want: StatusConnecting,
		},
		{
			name: "connected",
			move: func(c *Client) { c.setStatus(StatusConnected) },
			want: StatusConnected,
		},
		{
			name: "failures open the circuit",
			move: func(c *Client) {
				for i := 0; i < 5; i++ {
					c.recordFailure()
				}
			},
			want: StatusCircuitOpen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient("nats://localhost:4222")
			require.NoError(t, err)

			tt.move(client)
			assert.Equal(t, tt.want, client.Status())
		})
	}
}

func TestIsHealthy(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	tests := []struct {
		status ConnectionStatus
		want   bool
	}{
		{StatusDisconnected, false},
		{StatusConnecting, false},
		{StatusConnected, true},
		{StatusReconnecting, false},
		{StatusCircuitOpen, false},
	}

	for _, tt := range tests {
		client.setStatus(tt.status)
		assert.Equal(t, tt.want, client.IsHealthy(), "status %s", tt.status)
	}
}

func TestConcurrentSafety(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(4)
		go func() {
			defer wg.Done()
			client.setStatus(StatusConnected)
		}()
		go func() {
			defer wg.Done()
			_ = client.Status()
		}()
		go func() {
			defer wg.Done()
			client.recordFailure()
		}()
		go func() {
			defer wg.Done()
			client.resetCircuit()
		}()
	}
	wg.Wait()

	// Just needs to finish without the race detector complaining
	_ = client.GetStatus()
}

func TestWaitForConnection(t *testing.T) {
	t.Run("times out when never connected", func(t *testing.T) {
		client, err := NewClient("nats://localhost:4222")
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err = client.WaitForConnection(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout")
	})

	t.Run("returns immediately when connected", func(t *testing.T) {
		client, err := NewClient("nats://localhost:4222")
		require.NoError(t, err)
		client.setStatus(StatusConnected)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		assert.NoError(t, client.WaitForConnection(ctx))
	})

	t.Run("returns when connection becomes healthy", func(t *testing.T) {
		client, err := NewClient("nats://localhost:4222")
		require.NoError(t, err)

		go func() {
			time.Sleep(30 * time.Millisecond)
			client.setStatus(StatusConnected)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		assert.NoError(t, client.WaitForConnection(ctx))
	})
}

func TestGetStatus(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	status := client.GetStatus()
	assert.Equal(t, StatusDisconnected, status.Status)
	assert.Equal(t, int32(0), status.FailureCount)
	assert.True(t, status.LastFailureTime.IsZero())

	client.recordFailure()

	status = client.GetStatus()
	assert.Equal(t, int32(1), status.FailureCount)
	assert.False(t, status.LastFailureTime.IsZero())
}

func TestKeyValueBuckets_NotConnected(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	ctx := context.Background()

	_, err = client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{Bucket: "scout-cache"})
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = client.GetKeyValueBucket(ctx, "scout-cache")
	assert.ErrorIs(t, err, ErrNotConnected)

	err = client.DeleteKeyValueBucket(ctx, "scout-cache")
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = client.NewKVStore("scout-cache")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestKeyValueBuckets_CircuitOpen(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		client.recordFailure()
	}
	require.Equal(t, StatusCircuitOpen, client.Status())

	ctx := context.Background()

	_, err = client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{Bucket: "scout-cache"})
	assert.ErrorIs(t, err, ErrCircuitOpen)

	_, err = client.GetKeyValueBucket(ctx, "scout-cache")
	assert.ErrorIs(t, err, ErrCircuitOpen)

	err = client.DeleteKeyValueBucket(ctx, "scout-cache")
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestClose_WithoutConnection(t *testing.T) {
	client, err := NewClient("nats://localhost:4222",
		WithCredentials("user", "secret"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.NoError(t, client.Close(ctx))
	assert.Equal(t, StatusDisconnected, client.Status())

	// Credentials are cleared on close
	assert.Empty(t, client.username)
	assert.Empty(t, client.password)

	// Second close is a no-op
	assert.NoError(t, client.Close(ctx))
}

func TestConnect_CircuitOpenShortCircuits(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		client.recordFailure()
	}
	require.Equal(t, StatusCircuitOpen, client.Status())

	err = client.Connect(context.Background())
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestRTT_NotConnected(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	_, err = client.RTT()
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConnectivityMetrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()

	client, err := NewClient("nats://localhost:4222", WithMetrics(registry))
	require.NoError(t, err)
	require.NotNil(t, client.metrics)

	client.handleReconnect(nil)
	client.handleClosed(nil)
	client.handleReconnect(nil)

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	byName := make(map[string]float64)
	for _, mf := range families {
		if len(mf.Metric) == 0 {
			continue
		}
		m := mf.Metric[0]
		switch {
		case m.Gauge != nil:
			byName[mf.GetName()] = m.Gauge.GetValue()
		case m.Counter != nil:
			byName[mf.GetName()] = m.Counter.GetValue()
		}
	}

	assert.Equal(t, float64(1), byName["drugscout_nats_connected"])
	assert.Equal(t, float64(2), byName["drugscout_nats_reconnects_total"])
}

func TestHandleDisconnect_Callbacks(t *testing.T) {
	called := make(chan error, 1)

	client, err := NewClient("nats://localhost:4222",
		WithDisconnectCallback(func(cause error) { called <- cause }))
	require.NoError(t, err)

	client.setStatus(StatusConnected)
	client.handleDisconnect(nil, assert.AnError)

	assert.Equal(t, StatusReconnecting, client.Status())
	select {
	case cause := <-called:
		assert.Equal(t, assert.AnError, cause)
	case <-time.After(time.Second):
		t.Fatal("disconnect callback never fired")
	}
}

func TestHandleReconnect_Callbacks(t *testing.T) {
	reconnected := make(chan struct{}, 1)
	health := make(chan bool, 1)

	client, err := NewClient("nats://localhost:4222",
		WithReconnectCallback(func() { reconnected <- struct{}{} }),
		WithHealthChangeCallback(func(healthy bool) { health <- healthy }))
	require.NoError(t, err)

	client.recordFailure()
	client.handleReconnect(nil)

	assert.Equal(t, StatusConnected, client.Status())
	assert.Equal(t, int32(0), client.Failures())

	select {
	case <-reconnected:
	case <-time.After(time.Second):
		t.Fatal("reconnect callback never fired")
	}
	select {
	case healthy := <-health:
		assert.True(t, healthy)
	case <-time.After(time.Second):
		t.Fatal("health callback never fired")
	}
}

func TestIsAlreadyExistsError(t *testing.T) {
	assert.False(t, isAlreadyExistsError(nil))
	assert.False(t, isAlreadyExistsError(assert.AnError))
	assert.True(t, isAlreadyExistsError(errors.New("nats: bucket name already in use")))
	assert.True(t, isAlreadyExistsError(errors.New("stream name already in use with a different configuration")))
	assert.True(t, isAlreadyExistsError(errors.New("resource already exists")))
}

package core

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(t *testing.T, cfg CircuitBreakerConfig) (*CircuitBreaker, *time.Time) {
	t.Helper()
	cb, err := NewCircuitBreaker(cfg, nil)
	require.NoError(t, err)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return now }
	return cb, &now
}

func TestCircuitBreakerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  CircuitBreakerConfig
		wantErr bool
	}{
		{"defaults", DefaultCircuitBreakerConfig(), false},
		{"zero failures", CircuitBreakerConfig{MaxFailures: 0, Timeout: time.Second, MaxHalfOpenRequests: 1}, true},
		{"zero timeout", CircuitBreakerConfig{MaxFailures: 1, Timeout: 0, MaxHalfOpenRequests: 1}, true},
		{"zero probes", CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Second, MaxHalfOpenRequests: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCircuitBreaker(tt.config, nil)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCircuitBreakerConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb, _ := newTestBreaker(t, CircuitBreakerConfig{MaxFailures: 3, Timeout: time.Minute, MaxHalfOpenRequests: 1})

	for i := 0; i < 2; i++ {
		cb.RecordFailure()
		assert.Equal(t, CircuitBreakerStateClosed, cb.State())
	}
	cb.RecordFailure()
	assert.Equal(t, CircuitBreakerStateOpen, cb.State())
	assert.ErrorIs(t, cb.Allow(), ErrCircuitBreakerOpen)
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	cb, now := newTestBreaker(t, CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Minute, MaxHalfOpenRequests: 1})

	cb.RecordFailure()
	require.Equal(t, CircuitBreakerStateOpen, cb.State())

	*now = now.Add(2 * time.Minute)
	require.NoError(t, cb.Allow())
	assert.Equal(t, CircuitBreakerStateHalfOpen, cb.State())
	assert.ErrorIs(t, cb.Allow(), ErrTooManyRequests)

	cb.RecordSuccess()
	assert.Equal(t, CircuitBreakerStateClosed, cb.State())
	assert.Equal(t, uint32(0), cb.Failures())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, now := newTestBreaker(t, CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Minute, MaxHalfOpenRequests: 1})

	cb.RecordFailure()
	*now = now.Add(2 * time.Minute)
	require.NoError(t, cb.Allow())

	cb.RecordFailure()
	assert.Equal(t, CircuitBreakerStateOpen, cb.State())
	assert.ErrorIs(t, cb.Allow(), ErrCircuitBreakerOpen)
}

func TestCircuitBreaker_ExecuteClassifiesErrors(t *testing.T) {
	cb, _ := newTestBreaker(t, CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Minute, MaxHalfOpenRequests: 1})

	clientErr := errors.New("bad request")
	err := cb.Execute(func() error { return clientErr }, func(error) bool { return false })
	assert.ErrorIs(t, err, clientErr)
	assert.Equal(t, CircuitBreakerStateClosed, cb.State(), "ignored errors must not trip the breaker")

	serverErr := errors.New("upstream down")
	err = cb.Execute(func() error { return serverErr }, nil)
	assert.ErrorIs(t, err, serverErr)
	assert.Equal(t, CircuitBreakerStateOpen, cb.State())

	called := false
	err = cb.Execute(func() error { called = true; return nil }, nil)
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_OnChange(t *testing.T) {
	var mu sync.Mutex
	var transitions []CircuitBreakerState
	done := make(chan struct{}, 4)

	cb, err := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Minute, MaxHalfOpenRequests: 1},
		func(_, to CircuitBreakerState) {
			mu.Lock()
			transitions = append(transitions, to)
			mu.Unlock()
			done <- struct{}{}
		})
	require.NoError(t, err)

	cb.RecordFailure()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("onChange was not called")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []CircuitBreakerState{CircuitBreakerStateOpen}, transitions)
}

func TestCircuitBreaker_ConcurrentUse(t *testing.T) {
	cb, err := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1000, Timeout: time.Minute, MaxHalfOpenRequests: 1}, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = cb.Execute(func() error {
				if i%2 == 0 {
					return errors.New("fail")
				}
				return nil
			}, nil)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, CircuitBreakerStateClosed, cb.State())
}

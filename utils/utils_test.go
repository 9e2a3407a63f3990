package utils

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

// Circuit Breaker Tests

func TestCircuitBreaker_NewCircuitBreaker(t *testing.T) {
	cb := NewCircuitBreaker("test")

	assert.Equal(t, "test", cb.name)
	assert.Equal(t, uint32(100), cb.maxRequests)
	assert.Equal(t, 60*time.Second, cb.interval)
	assert.Equal(t, 60*time.Second, cb.timeout)
	assert.Equal(t, 0.6, cb.failureRatio)
	assert.Equal(t, StateClosed, cb.state)
}

func TestCircuitBreaker_ExecuteSuccess(t *testing.T) {
	cb := NewCircuitBreaker("test")
	ctx := context.Background()

	result, err := cb.Execute(ctx, func() (any, error) {
		return "success", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "success", result)
	assert.Equal(t, StateClosed, cb.state)
	assert.Equal(t, uint32(1), cb.counts.Requests)
	assert.Equal(t, uint32(1), cb.counts.TotalSuccesses)
}

func TestCircuitBreaker_ExecuteFailure(t *testing.T) {
	cb := NewCircuitBreaker("test")
	ctx := context.Background()

	expectedError := errors.New("test error")
	result, err := cb.Execute(ctx, func() (any, error) {
		return nil, expectedError
	})

	assert.Error(t, err)
	assert.Equal(t, expectedError, err)
	assert.Nil(t, result)
	assert.Equal(t, uint32(1), cb.counts.TotalFailures)
}

func TestCircuitBreaker_ClosedToOpen(t *testing.T) {
	cb := NewCircuitBreaker("test")
	cb.maxRequests = 5
	cb.failureRatio = 0.6

	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := cb.Execute(ctx, func() (any, error) {
			return "success", nil
		})
		assert.NoError(t, err)
	}

	for i := 0; i < 4; i++ {
		cb.Execute(ctx, func() (any, error) {
			return nil, errors.New("failure")
		})
	}

	assert.Equal(t, StateOpen, cb.state)

	// Requests are rejected without executing while open.
	_, err := cb.Execute(ctx, func() (any, error) {
		t.Fatal("must not execute when the breaker is open")
		return nil, nil
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
}

func TestCircuitBreaker_OpenToClosedAfterTimeout(t *testing.T) {
	cb := NewCircuitBreaker("test")
	cb.maxRequests = 5
	cb.failureRatio = 0.6
	cb.timeout = 100 * time.Millisecond

	ctx := context.Background()

	for i := 0; i < 5; i++ {
		cb.Execute(ctx, func() (any, error) {
			return nil, errors.New("failure")
		})
	}
	assert.Equal(t, StateOpen, cb.state)

	time.Sleep(150 * time.Millisecond)

	// The first probe after the timeout runs half-open and a success
	// closes the breaker again.
	_, err := cb.Execute(ctx, func() (any, error) {
		return "success", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.state)
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	cb := NewCircuitBreaker("concurrent-test")
	ctx := context.Background()

	var wg sync.WaitGroup
	numGoroutines := 100
	successCount := 0
	mu := sync.Mutex{}

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			_, err := cb.Execute(ctx, func() (any, error) {
				time.Sleep(time.Millisecond)
				if id%10 == 0 {
					return nil, errors.New("simulated failure")
				}
				return "success", nil
			})

			if err == nil {
				mu.Lock()
				successCount++
				mu.Unlock()
			}
		}(i)
	}

	wg.Wait()

	assert.Greater(t, successCount, 50)
	assert.Equal(t, uint32(numGoroutines), cb.counts.Requests)
}

func TestCircuitBreaker_PanicRecovery(t *testing.T) {
	cb := NewCircuitBreaker("panic-test")
	ctx := context.Background()

	assert.Panics(t, func() {
		cb.Execute(ctx, func() (any, error) {
			panic("test panic")
		})
	})

	// The breaker still functions after a panic.
	result, err := cb.Execute(ctx, func() (any, error) {
		return "recovery", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "recovery", result)
}

func TestCircuitBreaker_ReadyToTrip(t *testing.T) {
	cb := NewCircuitBreaker("trip-test")

	tests := []struct {
		name           string
		requests       uint32
		failures       uint32
		maxRequests    uint32
		failureRatio   float64
		expectedResult bool
	}{
		{"Not enough requests", 5, 5, 10, 0.5, false},
		{"High failure ratio", 10, 8, 10, 0.6, true},
		{"Low failure ratio", 10, 3, 10, 0.6, false},
		{"Exact threshold", 10, 6, 10, 0.6, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb.maxRequests = tt.maxRequests
			cb.failureRatio = tt.failureRatio
			cb.counts.Requests = tt.requests
			cb.counts.TotalFailures = tt.failures

			assert.Equal(t, tt.expectedResult, cb.readyToTrip())
		})
	}
}

// Redis Client Tests

func TestRedisHealthCheck_Success(t *testing.T) {
	db, mock := redismock.NewClientMock()

	mock.ExpectPing().SetVal("PONG")

	err := RedisHealthCheck(db)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisHealthCheck_Failure(t *testing.T) {
	db, mock := redismock.NewClientMock()

	mock.ExpectPing().SetErr(errors.New("connection failed"))

	err := RedisHealthCheck(db)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redis health check failed")
	assert.Contains(t, err.Error(), "connection failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Code Generation Tests

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(8)

	assert.NoError(t, err)
	assert.Len(t, code, 16, "hex encoding doubles the byte count")

	for _, c := range code {
		valid := (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F')
		assert.True(t, valid, "unexpected character %q", c)
	}
}

func TestGenerateCode_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateCode(8)
		assert.NoError(t, err)
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}

// Benchmark Tests

func BenchmarkCircuitBreaker_Execute_Success(b *testing.B) {
	cb := NewCircuitBreaker("benchmark")
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cb.Execute(ctx, func() (any, error) {
			return "success", nil
		})
	}
}

func BenchmarkGenerateCode(b *testing.B) {
	for i := 0; i < b.N; i++ {
		GenerateCode(8)
	}
}

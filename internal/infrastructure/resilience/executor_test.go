package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func fastConfig(attempts int) Config {
	return Config{
		RetryMaxAttempts:    attempts,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
	}
}

func TestExecuteRetriesBrokerDisconnect(t *testing.T) {
	exec := NewExecutor(fastConfig(3))

	attempts := 0
	errDisconnected := errors.New("nats: connection disconnected")
	err := exec.Execute(context.Background(), "nats.publish_submission", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errDisconnected
		}
		return nil
	}, func(err error) ErrorClassification {
		return ErrorClassification{
			Retryable:     errors.Is(err, errDisconnected),
			RecordFailure: true,
		}
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestExecuteDoesNotRetryPermanentFailure(t *testing.T) {
	exec := NewExecutor(fastConfig(3))

	attempts := 0
	errPayload := errors.New("nats: maximum payload exceeded")
	err := exec.Execute(context.Background(), "nats.publish_submission", func(context.Context) error {
		attempts++
		return errPayload
	}, nil)
	if !errors.Is(err, errPayload) {
		t.Fatalf("expected payload error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestExecuteStopsWhenContextEnds(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    5,
		RetryInitialBackoff: time.Hour,
		RetryMaxBackoff:     time.Hour,
	})
	ctx, cancel := context.WithCancel(context.Background())

	errDown := errors.New("down")
	attempts := 0
	err := exec.Execute(ctx, "postgres.connect", func(context.Context) error {
		attempts++
		cancel()
		return errDown
	}, RetryAll)
	if !errors.Is(err, errDown) {
		t.Fatalf("expected last attempt error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected no retry after cancellation, got %d attempts", attempts)
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	cfg := fastConfig(1)
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	cfg.BreakerOpenTimeout = 50 * time.Millisecond
	cfg.BreakerHalfOpenMaxCalls = 1
	exec := NewExecutor(cfg)

	errNoServers := errors.New("nats: no servers available for connection")
	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "nats.publish_notification", func(context.Context) error {
			return errNoServers
		}, nil)
		if !errors.Is(err, errNoServers) {
			t.Fatalf("expected broker error on iteration %d, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "nats.publish_notification", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, nil)
	if !errors.Is(err, gobreaker.ErrOpenState) || !IsCircuitOpen(err) {
		t.Fatalf("expected open state error, got %v", err)
	}

	if err := exec.Execute(context.Background(), "nats.publish_submission", func(context.Context) error {
		return nil
	}, nil); err != nil {
		t.Fatalf("breakers are per operation, got %v", err)
	}
}

func TestExecuteNotifiesRetryObserver(t *testing.T) {
	var observed []int
	exec := NewExecutor(fastConfig(3), WithRetryObserver(func(operation string, attempt int, _ error) {
		if operation != "postgres.connect" {
			t.Fatalf("unexpected operation %q", operation)
		}
		observed = append(observed, attempt)
	}))

	errDown := errors.New("connection refused")
	err := exec.Execute(context.Background(), "postgres.connect", func(context.Context) error {
		return errDown
	}, RetryAll)
	if !errors.Is(err, errDown) {
		t.Fatalf("expected last error, got %v", err)
	}
	if len(observed) != 2 || observed[0] != 1 || observed[1] != 2 {
		t.Fatalf("expected retries after attempts 1 and 2, got %v", observed)
	}
}

func TestBackoffGrowsToCap(t *testing.T) {
	b := newBackoff(Config{
		RetryInitialBackoff: 10 * time.Millisecond,
		RetryMaxBackoff:     25 * time.Millisecond,
		RetryMultiplier:     2,
	})
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 25 * time.Millisecond, 25 * time.Millisecond}
	for i, w := range want {
		if got := b.next(); got != w {
			t.Fatalf("step %d: expected %v, got %v", i, w, got)
		}
	}
}

func TestRetryAllSkipsContextErrors(t *testing.T) {
	if RetryAll(context.Canceled).Retryable {
		t.Fatalf("context cancellation must not be retried")
	}
	if !RetryAll(errors.New("dial tcp: refused")).Retryable {
		t.Fatalf("expected generic errors to be retryable")
	}
}

func TestPresetsNormalize(t *testing.T) {
	startup := StartupConfig().normalize()
	if startup.BreakerEnabled {
		t.Fatalf("startup config must not trip a breaker")
	}
	if startup.RetryMaxAttempts <= DefaultConfig().RetryMaxAttempts {
		t.Fatalf("startup config should retry longer than the default, got %d attempts", startup.RetryMaxAttempts)
	}

	publish := PublishConfig().normalize()
	if !publish.BreakerEnabled || publish.RetryMaxBackoff > DefaultConfig().RetryMaxBackoff {
		t.Fatalf("unexpected publish config %+v", publish)
	}

	zero := Config{RetryInitialBackoff: time.Second}.normalize()
	if zero.RetryMaxBackoff < zero.RetryInitialBackoff || zero.RetryMaxAttempts != 3 || zero.BreakerFailureRatio != 0.5 {
		t.Fatalf("unexpected normalized config %+v", zero)
	}
}

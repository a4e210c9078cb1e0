package resilience

import (
	"testing"
	"time"
)

func TestNormalizeClampsMaxBackoff(t *testing.T) {
	cfg := Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 500 * time.Millisecond,
		RetryMaxBackoff:     100 * time.Millisecond,
	}.normalize()

	if cfg.RetryMaxBackoff != 500*time.Millisecond {
		t.Fatalf("max backoff = %v, want clamped to the initial backoff", cfg.RetryMaxBackoff)
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	cfg := Config{}.normalize()
	def := DefaultConfig()

	if cfg.RetryMaxAttempts != def.RetryMaxAttempts {
		t.Fatalf("attempts = %d", cfg.RetryMaxAttempts)
	}
	if cfg.RetryInitialBackoff != def.RetryInitialBackoff || cfg.RetryMaxBackoff != def.RetryMaxBackoff {
		t.Fatalf("backoff = %v/%v", cfg.RetryInitialBackoff, cfg.RetryMaxBackoff)
	}
	if cfg.BreakerMinRequests != def.BreakerMinRequests || cfg.BreakerFailureRatio != def.BreakerFailureRatio {
		t.Fatalf("breaker = %d/%v", cfg.BreakerMinRequests, cfg.BreakerFailureRatio)
	}
}

func TestSingleAttemptKeepsBreaker(t *testing.T) {
	cfg := SingleAttemptConfig()
	if cfg.RetryMaxAttempts != 1 {
		t.Fatalf("attempts = %d, want 1", cfg.RetryMaxAttempts)
	}
	if !cfg.BreakerEnabled {
		t.Fatal("breaker must stay enabled for single-attempt calls")
	}
}

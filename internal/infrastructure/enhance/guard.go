// Package enhance wraps the remote backend clients with the shared
// resilience policy. Enhancement calls run with a single attempt so a
// failed candidate surfaces immediately and the cascade moves on, while a
// per-backend circuit breaker keeps recording failures; once it opens,
// probes short-circuit and the candidate is skipped without a network call.
package enhance

import (
	"context"
	"errors"

	"github.com/verolabz/doctweak/internal/core/domain"
	"github.com/verolabz/doctweak/internal/core/ports"
	"github.com/verolabz/doctweak/internal/infrastructure/resilience"
)

type Guard struct {
	inner ports.BackendCandidate
	exec  *resilience.Executor
	op    string
}

// Guarded wraps each candidate with the executor, preserving order.
func Guarded(exec *resilience.Executor, backends ...ports.BackendCandidate) []ports.BackendCandidate {
	guarded := make([]ports.BackendCandidate, 0, len(backends))
	for _, b := range backends {
		guarded = append(guarded, &Guard{
			inner: b,
			exec:  exec,
			op:    "backend." + string(b.ID()),
		})
	}
	return guarded
}

func (g *Guard) ID() domain.BackendID { return g.inner.ID() }

func (g *Guard) Available(ctx context.Context) error {
	err := g.exec.Do(ctx, g.op, g.inner.Available)
	if resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrBackendUnavailable, "probe "+string(g.ID()), err)
	}
	return err
}

func (g *Guard) Enhance(ctx context.Context, req domain.EnhancementRequest) (*domain.EnhancementResult, error) {
	var result *domain.EnhancementResult
	err := g.exec.Do(ctx, g.op, func(ctx context.Context) error {
		r, innerErr := g.inner.Enhance(ctx, req)
		if innerErr != nil {
			return innerErr
		}
		result = r
		return nil
	})
	if err != nil {
		if resilience.IsCircuitOpen(err) {
			return nil, domain.WrapError(domain.ErrBackendUnavailable, "enhance "+string(g.ID()), err)
		}
		return nil, err
	}
	return result, nil
}

// ClassifyError feeds the breaker: call failures count against the backend,
// cancellations and skip verdicts do not. Nothing is retryable because the
// cascade itself is the retry.
func ClassifyError(err error) resilience.ErrorClassification {
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	case domain.IsKind(err, domain.ErrBackendUnavailable):
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	case domain.IsKind(err, domain.ErrInvalidInput):
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	default:
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	}
}

// Package fallback implements the ordered capability chain shared by the
// backend cascade and the model cascade: candidates are tried strictly in
// order, a candidate may be skipped before invocation, the first success
// stops the chain, and failures fall through to the next candidate.
package fallback

import (
	"context"
	"errors"
)

// ErrExhausted is returned when every candidate was skipped or failed.
var ErrExhausted = errors.New("fallback chain exhausted")

// Candidate is one entry in the chain. Skip, when non-nil, is consulted
// before Run; a non-nil skip error records the candidate as skipped rather
// than failed.
type Candidate[T any] struct {
	Name string
	Skip func(ctx context.Context) error
	Run  func(ctx context.Context) (T, error)
}

type AttemptStatus string

const (
	StatusSkipped   AttemptStatus = "skipped"
	StatusFailed    AttemptStatus = "failed"
	StatusSucceeded AttemptStatus = "succeeded"
)

// Attempt records what happened to one candidate.
type Attempt struct {
	Name   string
	Status AttemptStatus
	Err    error
}

// Report aggregates the outcome of a chain run.
type Report struct {
	Attempts []Attempt
	Winner   string
	LastErr  error
}

// Run tries candidates sequentially. At most one Run call succeeds; later
// candidates are never invoked after a success. Context cancellation aborts
// the chain immediately.
func Run[T any](ctx context.Context, candidates []Candidate[T]) (T, Report, error) {
	var zero T
	report := Report{}

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			report.LastErr = err
			return zero, report, err
		}

		if c.Skip != nil {
			if err := c.Skip(ctx); err != nil {
				report.Attempts = append(report.Attempts, Attempt{Name: c.Name, Status: StatusSkipped, Err: err})
				if report.LastErr == nil {
					report.LastErr = err
				}
				continue
			}
		}

		result, err := c.Run(ctx)
		if err != nil {
			report.Attempts = append(report.Attempts, Attempt{Name: c.Name, Status: StatusFailed, Err: err})
			report.LastErr = err
			continue
		}

		report.Attempts = append(report.Attempts, Attempt{Name: c.Name, Status: StatusSucceeded})
		report.Winner = c.Name
		return result, report, nil
	}

	if report.LastErr == nil {
		report.LastErr = ErrExhausted
	}
	return zero, report, ErrExhausted
}

// FallbackDepth is the number of candidates consumed before the winner, or
// the full attempt count when nothing won.
func (r Report) FallbackDepth() int {
	if r.Winner == "" {
		return len(r.Attempts)
	}
	return len(r.Attempts) - 1
}

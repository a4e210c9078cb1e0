package enhance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/verolabz/doctweak/internal/core/domain"
	"github.com/verolabz/doctweak/internal/core/ports"
	"github.com/verolabz/doctweak/internal/infrastructure/resilience"
)

type stubBackend struct {
	id           domain.BackendID
	availableErr error
	enhanceErr   error
	result       *domain.EnhancementResult

	probeCalls   int
	enhanceCalls int
}

func (s *stubBackend) ID() domain.BackendID { return s.id }

func (s *stubBackend) Available(ctx context.Context) error {
	s.probeCalls++
	return s.availableErr
}

func (s *stubBackend) Enhance(ctx context.Context, req domain.EnhancementRequest) (*domain.EnhancementResult, error) {
	s.enhanceCalls++
	if s.enhanceErr != nil {
		return nil, s.enhanceErr
	}
	return s.result, nil
}

func testExecutor(t *testing.T) *resilience.Executor {
	t.Helper()
	cfg := resilience.SingleAttemptConfig()
	cfg.BreakerMinRequests = 3
	cfg.BreakerOpenTimeout = time.Minute
	return resilience.NewExecutor(cfg, ClassifyError, nil)
}

func TestGuardPassesThroughResult(t *testing.T) {
	want := &domain.EnhancementResult{Backend: domain.BackendBinaryPass, EnhancedText: "better"}
	stub := &stubBackend{id: domain.BackendBinaryPass, result: want}
	guarded := Guarded(testExecutor(t), stub)

	if len(guarded) != 1 || guarded[0].ID() != domain.BackendBinaryPass {
		t.Fatalf("unexpected guarded set %v", guarded)
	}
	got, err := guarded[0].Enhance(context.Background(), domain.EnhancementRequest{})
	if err != nil {
		t.Fatalf("enhance: %v", err)
	}
	if got != want {
		t.Fatalf("result = %+v, want passthrough", got)
	}
	if err := guarded[0].Available(context.Background()); err != nil {
		t.Fatalf("available: %v", err)
	}
}

func TestGuardNeverRetriesAFailedCall(t *testing.T) {
	stub := &stubBackend{
		id:         domain.BackendOCRPipe,
		enhanceErr: domain.WrapError(domain.ErrBackendCallFailed, "ocrpipeline enhance", errors.New("502")),
	}
	guard := Guarded(testExecutor(t), stub)[0]

	_, err := guard.Enhance(context.Background(), domain.EnhancementRequest{})
	if !domain.IsKind(err, domain.ErrBackendCallFailed) {
		t.Fatalf("err = %v, want call failure", err)
	}
	if stub.enhanceCalls != 1 {
		t.Fatalf("enhance calls = %d, want exactly 1", stub.enhanceCalls)
	}
}

func TestGuardOpenBreakerSkipsProbe(t *testing.T) {
	stub := &stubBackend{
		id:         domain.BackendDirectText,
		enhanceErr: domain.WrapError(domain.ErrBackendCallFailed, "directtext enhance", errors.New("quota")),
	}
	guard := Guarded(testExecutor(t), stub)[0]

	for i := 0; i < 3; i++ {
		if _, err := guard.Enhance(context.Background(), domain.EnhancementRequest{}); err == nil {
			t.Fatalf("enhance #%d should fail", i)
		}
	}

	probesBefore := stub.probeCalls
	err := guard.Available(context.Background())
	if !domain.IsKind(err, domain.ErrBackendUnavailable) {
		t.Fatalf("err = %v, want unavailable once the breaker is open", err)
	}
	if stub.probeCalls != probesBefore {
		t.Fatal("open breaker must short-circuit without probing the service")
	}

	if _, err := guard.Enhance(context.Background(), domain.EnhancementRequest{}); !domain.IsKind(err, domain.ErrBackendUnavailable) {
		t.Fatalf("err = %v, want unavailable while open", err)
	}
	if stub.enhanceCalls != 3 {
		t.Fatalf("enhance calls = %d, want 3 (none while open)", stub.enhanceCalls)
	}
}

func TestGuardSkipVerdictsDoNotTripBreaker(t *testing.T) {
	stub := &stubBackend{
		id:           domain.BackendBinaryPass,
		availableErr: domain.WrapError(domain.ErrBackendUnavailable, "binarypass probe", errors.New("no url")),
	}
	guard := Guarded(testExecutor(t), stub)[0]

	for i := 0; i < 5; i++ {
		if err := guard.Available(context.Background()); !domain.IsKind(err, domain.ErrBackendUnavailable) {
			t.Fatalf("probe #%d: %v", i, err)
		}
	}
	if stub.probeCalls != 5 {
		t.Fatalf("probe calls = %d, want 5 (skip verdicts never open the breaker)", stub.probeCalls)
	}
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		err    error
		record bool
	}{
		{nil, false},
		{context.Canceled, false},
		{context.DeadlineExceeded, false},
		{domain.WrapError(domain.ErrBackendUnavailable, "probe", errors.New("down")), false},
		{domain.WrapError(domain.ErrInvalidInput, "enhance", errors.New("no text")), false},
		{domain.WrapError(domain.ErrBackendCallFailed, "enhance", errors.New("502")), true},
		{errors.New("unclassified"), true},
	}
	for _, c := range cases {
		got := ClassifyError(c.err)
		if got.Retryable {
			t.Fatalf("ClassifyError(%v): nothing is retryable in the cascade", c.err)
		}
		if got.RecordFailure != c.record {
			t.Fatalf("ClassifyError(%v): record = %v, want %v", c.err, got.RecordFailure, c.record)
		}
	}
}

var _ ports.BackendCandidate = (*Guard)(nil)

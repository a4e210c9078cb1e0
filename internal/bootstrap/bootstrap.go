package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/verolabz/doctweak/internal/config"
	"github.com/verolabz/doctweak/internal/core/domain"
	"github.com/verolabz/doctweak/internal/core/ports"
	"github.com/verolabz/doctweak/internal/core/usecase"
	"github.com/verolabz/doctweak/internal/infrastructure/enhance"
	"github.com/verolabz/doctweak/internal/infrastructure/enhance/binarypass"
	"github.com/verolabz/doctweak/internal/infrastructure/enhance/directtext"
	"github.com/verolabz/doctweak/internal/infrastructure/enhance/ocrpipeline"
	"github.com/verolabz/doctweak/internal/infrastructure/extractor/local"
	"github.com/verolabz/doctweak/internal/infrastructure/queue/nats"
	"github.com/verolabz/doctweak/internal/infrastructure/repository/postgres"
	"github.com/verolabz/doctweak/internal/infrastructure/resilience"
	"github.com/verolabz/doctweak/internal/infrastructure/storage/localfs"
	"github.com/verolabz/doctweak/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Repo      ports.SessionRepository
	IntakeUC  ports.EnhancementIntake
	EnhanceUC ports.EnhancementProcessor
	PresentUC ports.ResultPresenter
	Feedback  ports.FeedbackComposer

	WorkerMetrics *metrics.WorkerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewSessionRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	workerMetrics := metrics.NewWorkerMetrics("worker")

	queueExecutor := resilience.NewExecutor(resilience.DefaultConfig(), nats.ClassifyError, logger)
	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		Executor:    queueExecutor,
		Logger:      logger,
		LagObserver: workerMetrics.ObserveQueueLag,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	timeout := time.Duration(cfg.BackendTimeoutSeconds) * time.Second
	backendExecutor := resilience.NewExecutor(resilience.SingleAttemptConfig(), enhance.ClassifyError, logger)
	backends := enhance.Guarded(backendExecutor, orderBackends(cfg.PreferredBackend,
		binarypass.New(cfg.BinaryAPIURL, cfg.BinaryModel, timeout),
		ocrpipeline.New(cfg.OCRAPIURL, timeout),
		directtext.New(cfg.GroqAPIURL, cfg.GroqAPIKey, cfg.GroqModels, timeout, logger),
	)...)

	extractor := local.NewExtractor()

	intakeUC := usecase.NewIntakeUseCase(repo, storage, queue)
	enhanceUC := usecase.NewEnhanceUseCase(repo, storage, extractor, backends, workerMetrics)
	presentUC := usecase.NewPresentUseCase(repo, storage, local.NewPreviewRenderer())
	feedbackUC := usecase.NewFeedbackUseCase(cfg.FeedbackRecipients)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		IntakeUC:  intakeUC,
		EnhanceUC: enhanceUC,
		PresentUC: presentUC,
		Feedback:  feedbackUC,

		WorkerMetrics: workerMetrics,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

// orderBackends keeps the default cascade order but moves the explicitly
// preferred backend to the front.
func orderBackends(preferred string, backends ...ports.BackendCandidate) []ports.BackendCandidate {
	if preferred == "" {
		return backends
	}
	want := domain.BackendID(preferred)
	ordered := make([]ports.BackendCandidate, 0, len(backends))
	for _, b := range backends {
		if b.ID() == want {
			ordered = append([]ports.BackendCandidate{b}, ordered...)
			continue
		}
		ordered = append(ordered, b)
	}
	return ordered
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// Package nats dispatches enhancement jobs from the API process to the
// worker pool. Messages carry the session ID and the enqueue time; workers
// reload all state from the repository.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/verolabz/doctweak/internal/infrastructure/resilience"
)

const workerGroup = "enhancers"

type Queue struct {
	conn        *nats.Conn
	subject     string
	executor    *resilience.Executor
	logger      *slog.Logger
	lagObserver func(time.Duration)
}

type Options struct {
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
	Executor       *resilience.Executor
	Logger         *slog.Logger
	// LagObserver, when set, receives the enqueue-to-receive latency of
	// every consumed job.
	LagObserver func(time.Duration)
}

// job is the wire envelope. Payloads that are not JSON are treated as a
// bare session ID so publishers and workers can roll independently.
type job struct {
	SessionID  string    `json:"session_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

func encodeJob(sessionID string, enqueuedAt time.Time) []byte {
	data, err := json.Marshal(job{SessionID: sessionID, EnqueuedAt: enqueuedAt.UTC()})
	if err != nil {
		return []byte(sessionID)
	}
	return data
}

func decodeJob(data []byte) (sessionID string, enqueuedAt time.Time) {
	var j job
	if err := json.Unmarshal(data, &j); err != nil || j.SessionID == "" {
		return string(data), time.Time{}
	}
	return j.SessionID, j.EnqueuedAt
}

func New(url, subject string, options Options) (*Queue, error) {
	if options.ConnectTimeout <= 0 {
		options.ConnectTimeout = 2 * time.Second
	}
	if options.ReconnectWait <= 0 {
		options.ReconnectWait = 2 * time.Second
	}
	if options.MaxReconnects <= 0 {
		options.MaxReconnects = 60
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("doctweak"),
		nats.Timeout(options.ConnectTimeout),
		nats.ReconnectWait(options.ReconnectWait),
		nats.MaxReconnects(options.MaxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", slog.Any("error", err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:        conn,
		subject:     subject,
		executor:    options.Executor,
		logger:      logger,
		lagObserver: options.LagObserver,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishEnhancementRequested(ctx context.Context, sessionID string) error {
	payload := encodeJob(sessionID, time.Now())
	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor == nil {
		return call(ctx)
	}
	return q.executor.Do(ctx, "nats.publish", call)
}

// SubscribeEnhancementRequested blocks until ctx is cancelled, then drains
// the subscription. Workers in the same queue group share the subject, so
// each session is handled by exactly one worker.
func (q *Queue) SubscribeEnhancementRequested(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, workerGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		sessionID, enqueuedAt := decodeJob(msg.Data)
		if q.lagObserver != nil && !enqueuedAt.IsZero() {
			q.lagObserver(time.Since(enqueuedAt))
		}
		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, sessionID); err != nil {
			q.logger.Error("enhancement_handler_failed",
				slog.String("session_id", sessionID),
				slog.Any("error", err),
			)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// ClassifyError is the retry policy for queue operations: connectivity
// failures are retryable, everything else is terminal.
func ClassifyError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	if errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrDisconnected) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

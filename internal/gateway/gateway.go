package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"chuck/internal/logging"
	"chuck/internal/tracing"
)

// =============================================================================
// COMPLETION GATEWAY
// =============================================================================
//
// Every completion call takes one slot from a global semaphore for the
// duration of a single attempt. Slots are not held across backoff sleeps,
// so a retrying call never starves the rest of a batch. Provider errors are
// retried; an attempt that hits its deadline is not.

// Config configures the gateway.
type Config struct {
	MaxConcurrent int           // Max simultaneous provider calls
	Timeout       time.Duration // Deadline for one attempt
	MaxRetries    int           // Retries after the first attempt
	BackoffBase   time.Duration // First retry delay
	BackoffMax    time.Duration // Retry delay ceiling
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent: 5,
		Timeout:       120 * time.Second,
		MaxRetries:    3,
		BackoffBase:   time.Second,
		BackoffMax:    30 * time.Second,
	}
}

// Stats is a snapshot of gateway counters.
type Stats struct {
	Calls    int64 // Completed or failed logical calls
	Attempts int64 // Provider round trips
	Failures int64 // Logical calls that returned an error
}

// Gateway wraps an LLMClient with slots, deadlines, retries and spans.
type Gateway struct {
	client LLMClient
	config Config
	slots  *semaphore.Weighted
	tracer trace.Tracer

	calls    atomic.Int64
	attempts atomic.Int64
	failures atomic.Int64
}

// Option customizes a Gateway.
type Option func(*Gateway)

// WithTracer sets the tracer used for completion spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(g *Gateway) {
		if tracer != nil {
			g.tracer = tracer
		}
	}
}

// New creates a gateway. Zero config fields fall back to DefaultConfig.
func New(client LLMClient, config Config, opts ...Option) *Gateway {
	defaults := DefaultConfig()
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = defaults.MaxConcurrent
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.BackoffBase <= 0 {
		config.BackoffBase = defaults.BackoffBase
	}
	if config.BackoffMax < config.BackoffBase {
		config.BackoffMax = config.BackoffBase
	}

	g := &Gateway{
		client: client,
		config: config,
		slots:  semaphore.NewWeighted(int64(config.MaxConcurrent)),
		tracer: noop.NewTracerProvider().Tracer("noop"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Config returns the effective configuration.
func (g *Gateway) Config() Config {
	return g.config
}

// Stats returns current counters.
func (g *Gateway) Stats() Stats {
	return Stats{
		Calls:    g.calls.Load(),
		Attempts: g.attempts.Load(),
		Failures: g.failures.Load(),
	}
}

// Complete sends one prompt and returns its completion.
// Persistent failure is returned as *GatewayError.
func (g *Gateway) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, span := g.tracer.Start(ctx, tracing.SpanComplete)
	defer span.End()

	text, err := g.call(ctx, "complete", "", prompt, span)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return text, err
}

// CompleteBatch dispatches all tasks concurrently and waits for every one.
// Task ids must be non-empty and unique. There are no partial results:
// the first failure cancels the rest and is returned as *GatewayError.
func (g *Gateway) CompleteBatch(ctx context.Context, tasks []Task) (map[string]string, error) {
	seen := make(map[string]struct{}, len(tasks))
	for _, task := range tasks {
		if task.ID == "" {
			return nil, &GatewayError{Op: "complete_batch", Err: ErrEmptyTaskID}
		}
		if _, dup := seen[task.ID]; dup {
			return nil, &GatewayError{Op: "complete_batch", TaskID: task.ID, Err: ErrDuplicateTaskID}
		}
		seen[task.ID] = struct{}{}
	}

	results := make(map[string]string, len(tasks))
	if len(tasks) == 0 {
		return results, nil
	}

	ctx, span := g.tracer.Start(ctx, tracing.SpanCompleteBatch,
		trace.WithAttributes(attribute.Int(tracing.AttrBatchSize, len(tasks))))
	defer span.End()

	logging.APIDebug("Dispatching batch of %d tasks", len(tasks))

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		eg.Go(func() error {
			taskCtx, taskSpan := g.tracer.Start(egCtx, tracing.SpanComplete,
				trace.WithAttributes(attribute.String(tracing.AttrTaskID, task.ID)))
			defer taskSpan.End()

			text, err := g.call(taskCtx, "complete_batch", task.ID, task.Prompt, taskSpan)
			if err != nil {
				taskSpan.SetStatus(codes.Error, err.Error())
				return err
			}
			mu.Lock()
			results[task.ID] = text
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		logging.APIError("Batch of %d tasks failed: %v", len(tasks), err)
		return nil, err
	}
	return results, nil
}

// call runs one logical completion with retries.
func (g *Gateway) call(ctx context.Context, op, taskID, prompt string, span trace.Span) (string, error) {
	g.calls.Add(1)
	start := time.Now()
	attempts := 0

	var text string
	operation := func() error {
		attempts++
		g.attempts.Add(1)

		if err := g.slots.Acquire(ctx, 1); err != nil {
			return backoff.Permanent(err)
		}
		defer g.slots.Release(1)

		callCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()

		out, err := g.client.Complete(callCtx, prompt)
		if err != nil {
			if ctx.Err() != nil {
				// caller cancelled, not a provider fault
				return backoff.Permanent(err)
			}
			if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
				// a hung call fails the caller's phase; the next tick starts fresh
				err = fmt.Errorf("attempt timed out after %s: %w", g.config.Timeout, err)
				logging.APIWarn("Completion attempt %d timed out (task=%q), not retrying", attempts, taskID)
				return backoff.Permanent(err)
			}
			logging.APIWarn("Completion attempt %d failed (task=%q): %v", attempts, taskID, err)
			return err
		}
		text = out
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = g.config.BackoffBase
	policy.MaxInterval = g.config.BackoffMax
	policy.MaxElapsedTime = 0

	err := backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(g.config.MaxRetries)), ctx))

	span.SetAttributes(attribute.Int(tracing.AttrAttempts, attempts))
	if err != nil {
		g.failures.Add(1)
		return "", &GatewayError{Op: op, TaskID: taskID, Attempts: attempts, Err: err}
	}

	logging.APIDebug("Completion ok (task=%q, attempts=%d, %s)", taskID, attempts, time.Since(start))
	return text, nil
}

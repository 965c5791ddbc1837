package routing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"iqtoolkit/analyzer/pkg/providers"
	"iqtoolkit/analyzer/pkg/telemetry/tracing"
)

// Classifier decides whether a failed attempt may be retried.
type Classifier func(err error) bool

// DefaultClassifier retries Unavailable, Timeout and transient Protocol
// failures. Auth failures, malformed requests and anything that is not a
// *providers.ProviderError are not retried.
func DefaultClassifier(err error) bool {
	return providers.IsRetryable(err)
}

// AttemptObserver receives one callback per provider invocation. The
// metrics collector implements it.
type AttemptObserver interface {
	ObserveAttempt(provider string, err error, latency time.Duration)
	ObserveFallback(primary, fallback string, succeeded bool)
}

// RetryPolicy wraps a single provider with bounded, classified retry.
//
// A policy with MaxRetries R makes at most R+1 attempts. The zero value
// makes exactly one attempt with DefaultClassifier and no delay.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// Delay is a fixed pause between attempts. Zero means none.
	Delay time.Duration

	// Classifier decides retryability; nil means DefaultClassifier.
	Classifier Classifier

	// Logger receives one warning per failed attempt; nil means slog.Default().
	Logger *slog.Logger

	// Observer is notified of every attempt; optional.
	Observer AttemptObserver
}

// MaxAttempts returns the total attempt budget.
func (p RetryPolicy) MaxAttempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// Invoke calls provider until it succeeds, a non-retryable failure occurs or
// the budget is spent. It returns the text and the number of attempts made.
//
// Failures are returned as *ExhaustedError. If ctx is cancelled the loop
// stops at once and the returned error wraps ctx.Err() instead.
func (p RetryPolicy) Invoke(ctx context.Context, provider providers.Provider, prompt string) (string, int, error) {
	classify := p.Classifier
	if classify == nil {
		classify = DefaultClassifier
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	name := provider.GetName()
	maxAttempts := p.MaxAttempts()
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", attempt - 1, fmt.Errorf("provider %q: aborted before attempt %d: %w", name, attempt, err)
		}

		start := time.Now()
		text, err := invokeTraced(ctx, provider, prompt, attempt)
		if p.Observer != nil {
			p.Observer.ObserveAttempt(name, err, time.Since(start))
		}
		if err == nil {
			if attempt > 1 {
				logger.Info("provider attempt succeeded after retry",
					"provider", name,
					"attempt", attempt,
				)
			}
			return text, attempt, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", attempt, fmt.Errorf("provider %q: attempt %d cancelled: %w", name, attempt, ctxErr)
		}

		lastErr = err
		retryable := classify(err)
		kind, _ := providers.KindOf(err)

		logger.Warn("provider attempt failed",
			"provider", name,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"kind", kind.String(),
			"retryable", retryable,
			"error", err,
		)

		if !retryable {
			return "", attempt, &ExhaustedError{Provider: name, Attempts: attempt, LastErr: err}
		}

		if attempt < maxAttempts && p.Delay > 0 {
			timer := time.NewTimer(p.Delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return "", attempt, fmt.Errorf("provider %q: cancelled during retry delay: %w", name, ctx.Err())
			}
		}
	}

	return "", maxAttempts, &ExhaustedError{
		Provider:  name,
		Attempts:  maxAttempts,
		LastErr:   lastErr,
		Retryable: true,
	}
}

// invokeTraced makes one attempt under its own client span.
func invokeTraced(ctx context.Context, provider providers.Provider, prompt string, attempt int) (string, error) {
	ctx, span := tracing.Start(ctx, "provider.invoke",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.provider", provider.GetName()),
			attribute.String("llm.protocol", string(provider.GetProtocol())),
			attribute.Int("llm.attempt", attempt),
		),
	)
	defer span.End()

	text, err := provider.Invoke(ctx, prompt)
	if err != nil {
		if kind, ok := providers.KindOf(err); ok {
			span.SetAttributes(attribute.String("llm.error_kind", kind.String()))
		}
		tracing.Fail(span, err)
	}
	return text, err
}

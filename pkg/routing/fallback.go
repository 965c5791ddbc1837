package routing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"iqtoolkit/analyzer/pkg/providers"
	"iqtoolkit/analyzer/pkg/telemetry/tracing"
)

// State is a step of the fallback state machine.
type State int

const (
	StateSelectPrimary State = iota
	StateAttemptPrimary
	StateCheckFallback
	StateAttemptFallback
	StateDone
	StateFail
)

// String returns the state name used in logs.
func (s State) String() string {
	switch s {
	case StateSelectPrimary:
		return "select_primary"
	case StateAttemptPrimary:
		return "attempt_primary"
	case StateCheckFallback:
		return "check_fallback"
	case StateAttemptFallback:
		return "attempt_fallback"
	case StateDone:
		return "done"
	case StateFail:
		return "fail"
	default:
		return "unknown"
	}
}

// ProviderLookup resolves provider names. *providerfactory.Registry
// implements it.
type ProviderLookup interface {
	Get(name string) (providers.Provider, error)
	Has(name string) bool
}

// Options configures an Orchestrator.
type Options struct {
	// Primary is the provider attempted first. Required.
	Primary string

	// Fallback is the provider attempted after the primary is exhausted.
	Fallback string

	// FallbackEnabled gates the fallback attempt.
	FallbackEnabled bool

	// RetryDelay is the fixed pause between attempts of one provider.
	RetryDelay time.Duration

	// Classifier overrides DefaultClassifier.
	Classifier Classifier

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Observer is notified of attempts and fallbacks; optional.
	Observer AttemptObserver
}

// Completion is a successful orchestrated invocation.
type Completion struct {
	// Text is the raw completion.
	Text string

	// Provider is the provider that produced Text.
	Provider string

	// Attempts is the total number of invocations across providers.
	Attempts int

	// FallbackUsed reports whether Text came from the fallback provider.
	FallbackUsed bool

	// AttemptedProviders lists providers in the order they were tried.
	AttemptedProviders []string
}

// Orchestrator runs the primary provider through its retry policy and, when
// it is exhausted, at most one distinct fallback provider. Providers are
// never invoked concurrently.
//
// An Orchestrator is immutable and safe for concurrent use.
type Orchestrator struct {
	lookup ProviderLookup
	opts   Options
	logger *slog.Logger
	stats  *atomicStats
}

// NewOrchestrator validates opts against lookup. An unknown primary is a
// *ConfigurationError. A fallback that is not registered (for example
// because it is disabled) is logged and skipped at request time.
func NewOrchestrator(lookup ProviderLookup, opts Options) (*Orchestrator, error) {
	if lookup == nil {
		return nil, &ConfigurationError{Message: "provider registry is required"}
	}
	if opts.Primary == "" {
		return nil, &ConfigurationError{Message: "primary provider is required"}
	}
	if _, err := lookup.Get(opts.Primary); err != nil {
		return nil, &ConfigurationError{Provider: opts.Primary, Message: "primary provider is not configured or not enabled", Err: err}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "orchestrator")

	if opts.FallbackEnabled && opts.Fallback != "" {
		switch {
		case opts.Fallback == opts.Primary:
			logger.Warn("fallback provider equals primary, fallback disabled", "provider", opts.Primary)
		case !lookup.Has(opts.Fallback):
			logger.Warn("fallback provider not registered, fallback disabled", "provider", opts.Fallback)
		}
	}

	return &Orchestrator{
		lookup: lookup,
		opts:   opts,
		logger: logger,
		stats:  newAtomicStats(),
	}, nil
}

// Primary returns the configured primary provider name.
func (o *Orchestrator) Primary() string {
	return o.opts.Primary
}

// FallbackTarget returns the fallback provider name when a fallback can be
// attempted, or "" when it cannot.
func (o *Orchestrator) FallbackTarget() string {
	if !o.opts.FallbackEnabled || o.opts.Fallback == "" || o.opts.Fallback == o.opts.Primary {
		return ""
	}
	if !o.lookup.Has(o.opts.Fallback) {
		return ""
	}
	return o.opts.Fallback
}

// Stats returns a snapshot of orchestrator counters.
func (o *Orchestrator) Stats() Stats {
	return o.stats.snapshot()
}

// Complete runs the state machine for one prompt.
//
// It returns a *Completion on success. On failure it returns a
// *AllProvidersFailedError, a *ConfigurationError, or an error wrapping
// ctx.Err() when the caller cancelled.
func (o *Orchestrator) Complete(ctx context.Context, prompt string) (*Completion, error) {
	ctx, span := tracing.Start(ctx, "orchestrator.complete", trace.WithAttributes(
		attribute.String("llm.primary", o.opts.Primary),
		attribute.String("llm.fallback", o.FallbackTarget()),
	))
	defer span.End()

	c, err := o.complete(ctx, prompt)
	if err != nil {
		tracing.Fail(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("llm.provider", c.Provider),
		attribute.Bool("llm.fallback_used", c.FallbackUsed),
		attribute.Int("llm.attempts", c.Attempts),
	)
	return c, nil
}

func (o *Orchestrator) complete(ctx context.Context, prompt string) (*Completion, error) {
	o.stats.totalRequests.Add(1)

	state := StateSelectPrimary
	o.transition(ctx, state, o.opts.Primary)

	primary, err := o.lookup.Get(o.opts.Primary)
	if err != nil {
		o.stats.failures.Add(1)
		return nil, &ConfigurationError{Provider: o.opts.Primary, Message: "primary provider is not configured or not enabled", Err: err}
	}

	state = StateAttemptPrimary
	o.transition(ctx, state, primary.GetName())

	text, attempts, err := o.policyFor(primary).Invoke(ctx, primary, prompt)
	o.recordAttempts(primary.GetName(), attempts, err)
	if err == nil {
		o.transition(ctx, StateDone, primary.GetName())
		return &Completion{
			Text:               text,
			Provider:           primary.GetName(),
			Attempts:           attempts,
			AttemptedProviders: []string{primary.GetName()},
		}, nil
	}

	var primaryExhausted *ExhaustedError
	if !errors.As(err, &primaryExhausted) {
		// Cancellation: no fallback.
		o.stats.failures.Add(1)
		o.transition(ctx, StateFail, primary.GetName())
		return nil, err
	}

	state = StateCheckFallback
	o.transition(ctx, state, primary.GetName())

	fallbackName := o.FallbackTarget()
	if fallbackName == "" {
		o.stats.failures.Add(1)
		o.transition(ctx, StateFail, primary.GetName())
		return nil, &AllProvidersFailedError{Primary: primaryExhausted}
	}

	fallback, err := o.lookup.Get(fallbackName)
	if err != nil {
		o.stats.failures.Add(1)
		o.transition(ctx, StateFail, fallbackName)
		return nil, &AllProvidersFailedError{Primary: primaryExhausted}
	}

	state = StateAttemptFallback
	o.logger.Info("primary provider exhausted, attempting fallback",
		"primary", primary.GetName(),
		"fallback", fallbackName,
		"primary_attempts", primaryExhausted.Attempts,
		"error", primaryExhausted.LastErr,
	)
	o.transition(ctx, state, fallbackName)

	text, fallbackAttempts, err := o.policyFor(fallback).Invoke(ctx, fallback, prompt)
	o.recordAttempts(fallbackName, fallbackAttempts, err)
	if o.opts.Observer != nil && ctx.Err() == nil {
		o.opts.Observer.ObserveFallback(primary.GetName(), fallbackName, err == nil)
	}

	attempted := []string{primary.GetName(), fallbackName}
	if err == nil {
		o.stats.fallbacksUsed.Add(1)
		o.transition(ctx, StateDone, fallbackName)
		return &Completion{
			Text:               text,
			Provider:           fallbackName,
			Attempts:           attempts + fallbackAttempts,
			FallbackUsed:       true,
			AttemptedProviders: attempted,
		}, nil
	}

	o.stats.failures.Add(1)
	o.transition(ctx, StateFail, fallbackName)

	var fallbackExhausted *ExhaustedError
	if !errors.As(err, &fallbackExhausted) {
		return nil, err
	}
	return nil, &AllProvidersFailedError{Primary: primaryExhausted, Fallback: fallbackExhausted}
}

func (o *Orchestrator) policyFor(p providers.Provider) RetryPolicy {
	return RetryPolicy{
		MaxRetries: p.GetConfig().RetryCount,
		Delay:      o.opts.RetryDelay,
		Classifier: o.opts.Classifier,
		Logger:     o.logger,
		Observer:   o.opts.Observer,
	}
}

func (o *Orchestrator) recordAttempts(provider string, attempts int, err error) {
	for i := 1; i <= attempts; i++ {
		o.stats.recordAttempt(provider, err != nil || i < attempts)
	}
}

func (o *Orchestrator) transition(ctx context.Context, state State, provider string) {
	o.logger.Debug("orchestrator state", "state", state.String(), "provider", provider)
	trace.SpanFromContext(ctx).AddEvent(state.String(), trace.WithAttributes(attribute.String("llm.provider", provider)))
}

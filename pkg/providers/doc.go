// Package providers implements the abstraction layer for LLM backends used by
// the analyzer.
//
// # Overview
//
// A Provider turns a prompt into free text. Two wire protocols are
// supported:
//
//   - ProtocolChat: OpenAI-style chat completions (package chat)
//   - ProtocolGenerate: Ollama-style generate API (package generate)
//
// Every Invoke performs exactly one outbound HTTP call. Retries, fallback and
// attempt logging live in the routing package so that they can be tested
// against any Provider.
//
// # Architecture
//
//  1. Provider Interface - the contract all adapters implement
//  2. Base HTTP Provider - connection pooling, per-call timeouts, failure classification
//  3. Provider Adapters - protocol-specific request and response shapes
//  4. Provider Factory - creates adapters from configuration (package providerfactory)
//
// # Error Classification
//
// Failures are returned as *ProviderError values with an ErrorKind:
//
//	KindUnavailable  connection refused, DNS failure, reset      retried
//	KindTimeout      per-call deadline exceeded                   retried
//	KindProtocol     non-2xx status or unusable body              retried when Transient (5xx, 429, 408)
//	KindAuth         401 or 403                                   never retried
//
// Cancellation of the caller's context is not a provider failure: Do returns
// an error wrapping ctx.Err() so callers can stop immediately.
//
//	text, err := provider.Invoke(ctx, prompt)
//	if err != nil {
//	    if kind, ok := providers.KindOf(err); ok && kind == providers.KindAuth {
//	        // credentials are wrong, do not retry
//	    }
//	}
//
// Error messages carry the provider name, kind, status and a truncated body
// excerpt. API keys are never included and URLs are rendered with
// RedactURL.
//
// # Thread Safety
//
// Adapters are safe for concurrent use. Health bookkeeping is guarded by an
// RWMutex; configuration is immutable after construction.
package providers

// Package resilience wraps LLM and embedding services with the retry,
// timeout and rate-limit policy configured under retry.*.
//
// Only transient failures are retried: per-attempt timeouts, rate limits and
// HTTP 429/5xx responses reported as *domain.ProviderError. Anything else is
// returned on the first attempt. When every attempt fails the error wraps
// domain.ErrRetriesExhausted together with the last failure.
package resilience

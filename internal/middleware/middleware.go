// Package middleware provides the HTTP middleware chain: request ids,
// request-scoped logging, panic recovery and Prometheus instrumentation.
package middleware

// contextKey is a private type for context values set by this package.
type contextKey string

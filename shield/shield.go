// Package shield provides reusable HTTP security middleware for hazyhaar
// services. It consolidates security headers, rate limiting, body limits,
// request tracing, and HEAD method handling into a single importable package.
//
// Usage:
//
//	r := chi.NewRouter()
//	r.Use(shield.SecurityHeaders(shield.DefaultHeaders()))
//	r.Use(shield.MaxBody(shield.DefaultBodyLimits()))
//	r.Use(shield.TraceID)
//	r.Use(shield.NewRateLimiter(rules).Middleware)
//
// Or apply the default API stack in one call:
//
//	rl := shield.NewRateLimiter(rules, "/health")
//	rl.StartGC(done)
//	for _, mw := range shield.DefaultAPIStack(rl) {
//	    r.Use(mw)
//	}
package shield

import (
	"net/http"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// DefaultAPIStack returns the standard middleware stack for a JSON API
// service. Middleware is ordered: HeadToGet → SecurityHeaders → MaxBody →
// TraceID → RateLimiter. Callers should exclude health-check paths when
// constructing the RateLimiter.
func DefaultAPIStack(rl *RateLimiter) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		HeadToGet,
		SecurityHeaders(DefaultHeaders()),
		MaxBody(DefaultBodyLimits()),
		TraceID,
		rl.Middleware,
	}
}

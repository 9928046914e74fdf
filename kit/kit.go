// Package kit provides transport-agnostic endpoint plumbing shared by
// hazyhaar services: the Endpoint abstraction, middleware chaining, context
// propagation keys, and MCP tool registration.
package kit

import "context"

// Endpoint is the transport-agnostic unit of work: one request in, one
// response out. HTTP handlers and MCP tools both decode into an Endpoint.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint with cross-cutting behaviour.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares so the first argument is the outermost wrapper.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// Package middleware provides the Gin middleware stack for the
// livescribe server: panic recovery, request IDs, CORS, body size
// limits, sliding-window rate limiting, request logging, and request
// metrics.
package middleware

package app

import "net/http"

// Middleware decorates the handler installed for a route.
type Middleware func(route string, handler http.HandlerFunc) http.HandlerFunc

// Option configures the environment run by Run().
type Option func(o *opts)

type opts struct {
	middleware []Middleware
}

// WithMiddleware configures the app's HTTP server to wrap every route handler
// with the provided middleware.
//
// Middleware is applied in addition order, inside the default New Relic
// instrumentation, so the first one added is the outermost of the set.
func WithMiddleware(middleware Middleware) Option {
	return func(o *opts) {
		o.middleware = append(o.middleware, middleware)
	}
}

func (o *opts) wrap(route string, handler http.HandlerFunc) http.HandlerFunc {
	for i := len(o.middleware) - 1; i >= 0; i-- {
		handler = o.middleware[i](route, handler)
	}
	return handler
}

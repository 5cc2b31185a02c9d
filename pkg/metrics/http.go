package metrics

import (
	"net/http"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// NewRelicHandlerFunc wraps an HTTP handler in a New Relic web transaction
// named after the route. A nil application returns the handler unchanged.
func NewRelicHandlerFunc(app *newrelic.Application, route string, handler http.HandlerFunc) http.HandlerFunc {
	if app == nil {
		return handler
	}

	return func(w http.ResponseWriter, r *http.Request) {
		txn := app.StartTransaction(route)
		defer txn.End()

		txn.SetWebRequestHTTP(r)
		w = txn.SetWebResponse(w)

		// Inject the application to allow for any custom metrics, events, etc
		// in downstream code.
		ctx := WithNewRelicApplication(r.Context(), app)
		ctx = newrelic.NewContext(ctx, txn)

		handler(w, r.WithContext(ctx))
	}
}

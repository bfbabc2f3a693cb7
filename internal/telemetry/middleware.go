package telemetry

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPMiddleware wraps next with request tracing, naming each span
// "<method> <path>" for the httpapi router.
func HTTPMiddleware(next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, "http.request",
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// WrapHTTPClient instruments client's transport for outbound call
// tracing, used by adapter.HTTPAdapter-backed tool executors.
func WrapHTTPClient(client *http.Client) *http.Client {
	client.Transport = otelhttp.NewTransport(client.Transport)
	return client
}

// Package httputil builds the HTTP clients used for the studio's REST calls.
// Streaming traffic goes over the live websocket and does not use these.
package httputil

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultImageTimeout bounds one image generation request. Image models can
// take tens of seconds to answer.
const DefaultImageTimeout = 90 * time.Second

// NewHTTPClient returns an *http.Client configured with the given timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// NewTracedHTTPClient returns a client whose requests are wrapped in client
// spans and carry the globally configured trace propagation headers. A
// non-positive timeout uses DefaultImageTimeout.
func NewTracedHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultImageTimeout
	}
	return &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   timeout,
	}
}

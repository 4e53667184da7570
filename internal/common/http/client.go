// internal/common/http/client.go
package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/cds-snc/notification-admin-sub002/internal/common/metrics"
	"github.com/cds-snc/notification-admin-sub002/internal/common/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Client is the outbound HTTP client. Every call is bounded by the timeout
// and recorded as a span and a duration sample.
type Client struct {
	httpClient *http.Client
	obs        *observability.Observability
}

func NewClient(timeout time.Duration, obs *observability.Observability) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		obs:        obs,
	}
}

// NewClientWithTransport is used by tests to route through httptest servers.
func NewClientWithTransport(timeout time.Duration, rt http.RoundTripper) *Client {
	return &Client{httpClient: &http.Client{Timeout: timeout, Transport: rt}}
}

func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx, span := c.obs.StartSpan(req.Context(), "http "+req.Method,
		attribute.String("http.method", req.Method),
		attribute.String("http.path", req.URL.Path),
	)
	defer span.End()

	start := time.Now()
	resp, err := c.httpClient.Do(req.WithContext(ctx))
	status := "error"
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		status = strconv.Itoa(resp.StatusCode)
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	}
	metrics.BackendRequestDuration.WithLabelValues(req.Method, status).Observe(time.Since(start).Seconds())
	return resp, err
}

func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.Do(req.WithContext(ctx))
}

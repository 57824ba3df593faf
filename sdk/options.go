package genstudio

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/genstudio-go/genstudio/pkg/core/genservice"
	"github.com/genstudio-go/genstudio/pkg/metrics"
)

type clientConfig struct {
	apiKey      string
	logger      *slog.Logger
	tracer      trace.Tracer
	metrics     *metrics.Metrics
	httpClient  *http.Client
	models      *genservice.Models
	liveBaseURL string

	pollInterval     time.Duration
	progressInterval time.Duration
}

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the Generation Service API key.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.cfg.apiKey = key
	}
}

// WithLogger sets the logger for the client.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.cfg.logger = l
	}
}

// WithTracer sets the OpenTelemetry tracer for the client.
func WithTracer(t trace.Tracer) ClientOption {
	return func(c *Client) {
		c.cfg.tracer = t
	}
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) {
		c.cfg.metrics = m
	}
}

// WithHTTPClient sets a custom HTTP client for one-shot calls.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.cfg.httpClient = client
	}
}

// WithModels overrides the per-capability model selection.
func WithModels(m genservice.Models) ClientOption {
	return func(c *Client) {
		c.cfg.models = &m
	}
}

// WithLiveBaseURL overrides the live websocket endpoint. Primarily for
// tests.
func WithLiveBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.cfg.liveBaseURL = url
	}
}

// WithService replaces the Generation Service backend entirely. Used to
// inject fakes in tests and alternative backends in embedding applications.
func WithService(svc genservice.Service) ClientOption {
	return func(c *Client) {
		c.service = svc
	}
}

// WithPollInterval overrides how often pending jobs are queried.
func WithPollInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		c.cfg.pollInterval = d
	}
}

// WithProgressInterval overrides how often pending-job progress messages
// rotate.
func WithProgressInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		c.cfg.progressInterval = d
	}
}

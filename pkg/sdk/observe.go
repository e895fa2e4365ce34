package museumrag

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Routes used as the route label.
const (
	routeAsk       = "POST /api/v1/ask"
	routeDocuments = "GET /api/v1/documents"
	routeHealth    = "GET /health"
)

// outcomeOK and outcomeTransport complement the server error codes
// (validation_failed, retrieval_failed, ...) as outcome label values.
const (
	outcomeOK        = "ok"
	outcomeTransport = "transport_error"
)

type clientMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	tokens   *prometheus.CounterVec
}

func newClientMetrics(reg prometheus.Registerer) (*clientMetrics, error) {
	m := &clientMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "museumrag",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Requests to a museumrag server by route and outcome (ok, server error code, transport_error).",
		}, []string{"route", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "museumrag",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Round-trip time per route. Ask covers both pipeline stages on the server.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"route"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "museumrag",
			Subsystem: "client",
			Name:      "tokens_total",
			Help:      "Provider tokens reported by the server for answered questions.",
		}, []string{"type"}),
	}
	if err := registerOrReuse(reg, &m.requests); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.tokens); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("museumrag: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("museumrag: register metric: %w", err)
	}
	return nil
}

// outcome maps a call result onto the outcome label.
func outcome(err error) string {
	if err == nil {
		return outcomeOK
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return outcomeTransport
	}
	if apiErr.Code != "" {
		return apiErr.Code
	}
	return "http_" + strconv.Itoa(apiErr.StatusCode)
}

// observer logs and measures client calls. A nil observer is a no-op.
type observer struct {
	logger  *slog.Logger
	metrics *clientMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	var m *clientMetrics
	if reg != nil {
		var err error
		m, err = newClientMetrics(reg)
		if err != nil {
			return nil, err
		}
	}
	return &observer{logger: logger, metrics: m}, nil
}

func (o *observer) request(route string, start time.Time, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	out := outcome(err)

	if o.metrics != nil {
		o.metrics.requests.WithLabelValues(route, out).Inc()
		o.metrics.duration.WithLabelValues(route).Observe(dur.Seconds())
	}
	if o.logger == nil {
		return
	}
	if err != nil {
		o.logger.Warn("museumrag request failed", "route", route, "outcome", out, "duration", dur, "error", err)
		return
	}
	o.logger.Debug("museumrag request completed", "route", route, "duration", dur)
}

// answered records the token usage headers of a successful Ask.
func (o *observer) answered(ans Answer) {
	if o == nil {
		return
	}
	if o.metrics != nil {
		o.metrics.tokens.WithLabelValues("embedding").Add(float64(ans.EmbeddingTokens))
		o.metrics.tokens.WithLabelValues("generation").Add(float64(ans.GenerationTokens))
	}
	if o.logger != nil {
		o.logger.Debug("museumrag answer",
			"k", ans.K,
			"chunks", len(ans.Chunks),
			"embedding_tokens", ans.EmbeddingTokens,
			"generation_tokens", ans.GenerationTokens,
		)
	}
}

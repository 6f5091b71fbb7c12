package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the services and HTTP layer report to. Nop satisfies it
// when metrics are disabled.
type Recorder interface {
	RecordAuthOutcome(outcome string)
	RecordTokenIssued(purpose string)
	RecordTokenConsumed(purpose, result string)
	RecordRouteDecision(class string, allowed bool)
	RecordHTTPRequest(method string, status int, d time.Duration)
	RecordEmailSent(kind string, err error)
}

type Collector struct {
	authOutcomes   *prometheus.CounterVec
	tokensIssued   *prometheus.CounterVec
	tokensConsumed *prometheus.CounterVec
	routeDecisions *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpLatency    prometheus.Histogram
	emailsSent     *prometheus.CounterVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authportal_auth_outcomes_total",
			Help: "Credential authentication attempts by outcome.",
		}, []string{"outcome"}),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authportal_tokens_issued_total",
			Help: "One-time tokens issued by purpose.",
		}, []string{"purpose"}),
		tokensConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authportal_tokens_consumed_total",
			Help: "One-time token consumption attempts by purpose and result.",
		}, []string{"purpose", "result"}),
		routeDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authportal_route_decisions_total",
			Help: "Route gate decisions by route class and result.",
		}, []string{"class", "decision"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authportal_http_requests_total",
			Help: "HTTP responses by method and status code.",
		}, []string{"method", "status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "authportal_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		emailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authportal_emails_sent_total",
			Help: "Account emails dispatched by kind and result.",
		}, []string{"kind", "result"}),
	}

	reg.MustRegister(
		c.authOutcomes,
		c.tokensIssued,
		c.tokensConsumed,
		c.routeDecisions,
		c.httpRequests,
		c.httpLatency,
		c.emailsSent,
	)

	return c
}

func (c *Collector) RecordAuthOutcome(outcome string) {
	c.authOutcomes.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordTokenIssued(purpose string) {
	c.tokensIssued.WithLabelValues(purpose).Inc()
}

func (c *Collector) RecordTokenConsumed(purpose, result string) {
	c.tokensConsumed.WithLabelValues(purpose, result).Inc()
}

func (c *Collector) RecordRouteDecision(class string, allowed bool) {
	decision := "redirect"
	if allowed {
		decision = "allow"
	}
	c.routeDecisions.WithLabelValues(class, decision).Inc()
}

func (c *Collector) RecordHTTPRequest(method string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.httpLatency.Observe(d.Seconds())
}

func (c *Collector) RecordEmailSent(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.emailsSent.WithLabelValues(kind, result).Inc()
}

// Handler serves the scrape endpoint for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

type Nop struct{}

func (Nop) RecordAuthOutcome(string)                     {}
func (Nop) RecordTokenIssued(string)                     {}
func (Nop) RecordTokenConsumed(string, string)           {}
func (Nop) RecordRouteDecision(string, bool)             {}
func (Nop) RecordHTTPRequest(string, int, time.Duration) {}
func (Nop) RecordEmailSent(string, error)                {}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}

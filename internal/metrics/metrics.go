package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/terraincognita07/bemcuidar/internal/services"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	httpRequestsInFlight  prometheus.Gauge
	examsComputed         *prometheus.CounterVec
	recommendationsIssued *prometheus.CounterVec
	reminderEmailsTotal   *prometheus.CounterVec
	addressLookupsTotal   *prometheus.CounterVec
}

// New registers every collector on a private registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		httpRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),
		examsComputed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "preventive_exams_computed_total",
				Help: "Computed exam entries by status",
			},
			[]string{"status"},
		),
		recommendationsIssued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "risk_recommendations_total",
				Help: "Risk assessment recommendations by priority",
			},
			[]string{"priority"},
		),
		reminderEmailsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reminder_emails_total",
				Help: "Reminder digests by outcome",
			},
			[]string{"outcome"},
		),
		addressLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "address_lookups_total",
				Help: "Postal code lookups by outcome",
			},
			[]string{"outcome"},
		),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records totals and latency per route pattern, not per raw path.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		m.httpRequestsInFlight.Inc()
		defer m.httpRequestsInFlight.Dec()

		err := c.Next()

		status := c.Response().StatusCode()
		if fiberErr, ok := err.(*fiber.Error); ok {
			status = fiberErr.Code
		}
		path := c.Route().Path
		m.httpRequestsTotal.WithLabelValues(c.Method(), path, strconv.Itoa(status)).Inc()
		m.httpRequestDuration.WithLabelValues(c.Method(), path).Observe(time.Since(start).Seconds())
		return err
	}
}

func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

func (m *Metrics) ObserveExams(exams []services.CalculatedExam) {
	for _, exam := range exams {
		m.examsComputed.WithLabelValues(string(exam.Status)).Inc()
	}
}

func (m *Metrics) ObserveRecommendations(recommendations []services.ExamRecommendation) {
	for _, recommendation := range recommendations {
		m.recommendationsIssued.WithLabelValues(recommendation.Priority.String()).Inc()
	}
}

func (m *Metrics) ObserveReminderRun(result services.ReminderRunResult) {
	m.reminderEmailsTotal.WithLabelValues("sent").Add(float64(result.Sent))
	m.reminderEmailsTotal.WithLabelValues("skipped").Add(float64(result.Skipped))
	m.reminderEmailsTotal.WithLabelValues("failed").Add(float64(result.Failed))
}

func (m *Metrics) ObserveAddressLookup(outcome string) {
	m.addressLookupsTotal.WithLabelValues(outcome).Inc()
}

// Package metrics wires Prometheus instrumentation for the command and
// event paths.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics aggregates the registrar collectors. A nil *Metrics is valid
// and records nothing, so tests can pass nil.
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler

	commandsTotal    *prometheus.CounterVec
	commandDuration  *prometheus.HistogramVec
	idempotentHits   *prometheus.CounterVec
	dispatchFailures prometheus.Counter
	eventsDispatched prometheus.Counter
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New registers the registrar collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	commandsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registrar_commands_total",
		Help: "Commands executed by name and outcome",
	}, []string{"command", "outcome"})

	commandDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "registrar_command_duration_seconds",
		Help:    "Command execution duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"command"})

	idempotentHits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registrar_idempotent_hits_total",
		Help: "Commands answered from the idempotency store",
	}, []string{"command"})

	dispatchFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "registrar_event_dispatch_failures_total",
		Help: "Event handler invocations that failed after retries",
	})

	eventsDispatched := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "registrar_events_dispatched_total",
		Help: "Domain events handed to the dispatcher",
	})

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registrar_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "path", "status"})

	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "registrar_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	registry.MustRegister(commandsTotal, commandDuration, idempotentHits, dispatchFailures, eventsDispatched, httpRequests, httpDuration)

	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		commandsTotal:    commandsTotal,
		commandDuration:  commandDuration,
		idempotentHits:   idempotentHits,
		dispatchFailures: dispatchFailures,
		eventsDispatched: eventsDispatched,
		httpRequests:     httpRequests,
		httpDuration:     httpDuration,
	}
}

// Handler exposes the registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return m.handler
}

// ObserveCommand records one command execution.
func (m *Metrics) ObserveCommand(command, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(command, outcome).Inc()
	m.commandDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}

// ObserveIdempotentHit records a command answered from the result cache.
func (m *Metrics) ObserveIdempotentHit(command string) {
	if m == nil {
		return
	}
	m.idempotentHits.WithLabelValues(command).Inc()
}

// ObserveHTTPRequest records one served HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// ObserveDispatch records dispatcher activity.
func (m *Metrics) ObserveDispatch(events, failures int) {
	if m == nil {
		return
	}
	m.eventsDispatched.Add(float64(events))
	m.dispatchFailures.Add(float64(failures))
}

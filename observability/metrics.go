package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chat"

const (
	OutcomeLive   = "live"
	OutcomeStored = "stored"

	PartySender   = "sender"
	PartyReceiver = "receiver"
)

// Metrics owns its own registry, so that tests can build as many as they need.
type Metrics struct {
	registry            *prometheus.Registry
	messages            *prometheus.CounterVec
	persistenceFailures *prometheus.CounterVec
	httpRequests        *prometheus.CounterVec
	censoredWords       prometheus.Counter
	processCPU          prometheus.Gauge
	processMemory       prometheus.Gauge
}

// NewMetrics registers the collectors; liveSessions is read on every scrape.
func NewMetrics(liveSessions func() int) *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Chat messages handled, by delivery outcome.",
		}, []string{"outcome"}),
		persistenceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "History appends that failed, by party.",
		}, []string{"party"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route and status code.",
		}, []string{"route", "status"}),
		censoredWords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "censored_words_total",
			Help:      "Forbidden words masked in chat messages.",
		}),
		processCPU: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_cpu_percent",
			Help:      "CPU used by the server process, sampled by the process stats worker.",
		}),
		processMemory: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_memory_percent",
			Help:      "Share of the host memory held by the server process.",
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_sessions",
			Help:      "Users with a registered live connection.",
		}, func() float64 { return float64(liveSessions()) }),
		m.messages,
		m.persistenceFailures,
		m.httpRequests,
		m.censoredWords,
		m.processCPU,
		m.processMemory,
	)
	return m
}

func (m *Metrics) MessageHandled(outcome string) {
	m.messages.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PersistenceFailed(party string) {
	m.persistenceFailures.WithLabelValues(party).Inc()
}

func (m *Metrics) RequestServed(route string, status int) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

func (m *Metrics) WordsCensored(n int) {
	m.censoredWords.Add(float64(n))
}

func (m *Metrics) ProcessSampled(cpuPercent, memoryPercent float64) {
	m.processCPU.Set(cpuPercent)
	m.processMemory.Set(memoryPercent)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

package services

import (
	"github.com/prometheus/client_golang/prometheus"

	"stackwarden/internal/models"
)

var (
	probeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stackwarden_probe_total",
			Help: "Total health probes executed, by service and result",
		},
		[]string{"service", "result"},
	)

	transitionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stackwarden_state_transitions_total",
			Help: "Total service state transitions, by target state",
		},
		[]string{"service", "to"},
	)

	restartTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stackwarden_restarts_total",
			Help: "Total restarts issued by the failure policy",
		},
		[]string{"service"},
	)

	alertTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stackwarden_alerts_total",
			Help: "Total operator alerts emitted after deduplication",
		},
		[]string{"service", "severity"},
	)

	serviceState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stackwarden_service_state",
			Help: "Current service state, one series per state holding 0 or 1",
		},
		[]string{"service", "state"},
	)

	httpRequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stackwarden_http_requests_total",
			Help: "Total HTTP API requests",
		},
		[]string{"path"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stackwarden_http_request_duration_seconds",
			Help:    "Duration of HTTP API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	httpErrorCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stackwarden_http_request_errors_total",
			Help: "Total HTTP API requests answered with status >= 400",
		},
		[]string{"path"},
	)
)

func init() {
	prometheus.MustRegister(probeTotal)
	prometheus.MustRegister(transitionTotal)
	prometheus.MustRegister(restartTotal)
	prometheus.MustRegister(alertTotal)
	prometheus.MustRegister(serviceState)
	prometheus.MustRegister(httpRequestCount)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(httpErrorCount)
}

var allStates = []models.ServiceState{
	models.StatePending,
	models.StateStarting,
	models.StateHealthy,
	models.StateUnhealthy,
	models.StateRestarting,
	models.StatePersistentFailure,
	models.StateStopped,
}

// RecordProbe counts one probe execution.
func RecordProbe(service string, ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	probeTotal.WithLabelValues(service, result).Inc()
}

// RecordTransition counts a state change and refreshes the state gauge.
func RecordTransition(ev models.TransitionEvent) {
	transitionTotal.WithLabelValues(ev.Service, string(ev.To)).Inc()
	for _, st := range allStates {
		v := 0.0
		if st == ev.To {
			v = 1.0
		}
		serviceState.WithLabelValues(ev.Service, string(st)).Set(v)
	}
}

// RecordRestart counts a restart issued by the policy.
func RecordRestart(service string) {
	restartTotal.WithLabelValues(service).Inc()
}

// RecordAlert counts an emitted (post-dedup) alert.
func RecordAlert(service string, severity models.AlertSeverity) {
	alertTotal.WithLabelValues(service, string(severity)).Inc()
}

// RecordHTTPRequest feeds the request middleware counters.
func RecordHTTPRequest(path string, status int, seconds float64) {
	httpRequestCount.WithLabelValues(path).Inc()
	httpRequestDuration.WithLabelValues(path).Observe(seconds)
	if status >= 400 {
		httpErrorCount.WithLabelValues(path).Inc()
	}
}

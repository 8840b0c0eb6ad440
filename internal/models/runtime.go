package models

import "time"

// ServiceState is the lifecycle state of a managed service.
type ServiceState string

const (
	StatePending           ServiceState = "pending"
	StateStarting          ServiceState = "starting"
	StateHealthy           ServiceState = "healthy"
	StateUnhealthy         ServiceState = "unhealthy"
	StateRestarting        ServiceState = "restarting"
	StatePersistentFailure ServiceState = "persistent_failure"
	StateStopped           ServiceState = "stopped"
)

/**
 * Mutable runtime record of a managed service, owned by the supervisor core
 * @property {string} id - Service id
 * @property {ServiceState} state - Current lifecycle state
 * @property {int} consecutiveFailures - Failed probes in a row, reset on any success
 * @property {int} restartCount - Restarts issued by the policy, reset only by operator action
 * @property {string} startTime - Last launch time in RFC3339, empty if never started
 * @property {string} lastCheckAt - Time of the most recent probe in RFC3339
 * @property {string} lastCheckOutput - Output of the most recent probe
 */
type ServiceRuntime struct {
	ID                  string       `json:"id"`
	State               ServiceState `json:"state"`
	ConsecutiveFailures int          `json:"consecutiveFailures"`
	RestartCount        int          `json:"restartCount"`
	StartTime           string       `json:"startTime,omitempty"`
	LastCheckAt         string       `json:"lastCheckAt,omitempty"`
	LastCheckOutput     string       `json:"lastCheckOutput,omitempty"`
}

// Terminal reports whether the state requires operator intervention to leave.
func (s ServiceState) Terminal() bool {
	return s == StatePersistentFailure
}

// TransitionEvent is published by the health engine and sequencer whenever a
// service changes state. Probe results that don't change state are not events.
type TransitionEvent struct {
	Service string       `json:"service"`
	From    ServiceState `json:"from"`
	To      ServiceState `json:"to"`
	At      time.Time    `json:"at"`
	Output  string       `json:"output,omitempty"`
}

// AlertSeverity ranks operator alerts.
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

/**
 * Operator alert emitted by the notification sink
 * @property {string} id - Unique alert id
 * @property {string} service - Service the alert refers to
 * @property {AlertSeverity} severity - warning/critical
 * @property {string} reason - Dedup key and human-readable cause
 * @property {string} detail - Free-form context, typically the last probe output
 * @property {time.Time} at - Emission time
 */
type Alert struct {
	ID       string        `json:"id"`
	Service  string        `json:"service"`
	Severity AlertSeverity `json:"severity"`
	Reason   string        `json:"reason"`
	Detail   string        `json:"detail,omitempty"`
	At       time.Time     `json:"at"`
}

// HealthResponse is the daemon's own readiness report served on /healthz.
type HealthResponse struct {
	Status        string               `json:"status"`
	Version       string               `json:"version,omitempty"`
	StartTime     string               `json:"startTime"`
	UptimeSeconds int64                `json:"uptimeSeconds"`
	Services      map[ServiceState]int `json:"services"`
}

// ErrorResponse is the uniform error body of the HTTP API.
type ErrorResponse struct {
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

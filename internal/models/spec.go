package models

import "time"

// ProbeType selects the mechanism used to check a service.
type ProbeType string

const (
	ProbeHTTP    ProbeType = "http"
	ProbeTCP     ProbeType = "tcp"
	ProbeCommand ProbeType = "command"
)

/**
 * Health probe declaration for a single service
 * @property {ProbeType} type - Probe mechanism: http/tcp/command
 * @property {string} target - URL (http), host:port (tcp) or command line (command)
 * @property {int} expectStatus - Expected HTTP status, defaults to 200
 * @property {time.Duration} interval - Time between probe executions
 * @property {time.Duration} timeout - Hard deadline for a single probe
 * @property {int} retries - Consecutive failures before the service is marked unhealthy
 * @property {time.Duration} startPeriod - Grace window after launch during which failures don't count
 */
type ProbeSpec struct {
	Type         ProbeType     `mapstructure:"type" json:"type"`
	Target       string        `mapstructure:"target" json:"target"`
	ExpectStatus int           `mapstructure:"expect_status" json:"expectStatus,omitempty"`
	Interval     time.Duration `mapstructure:"interval" json:"interval"`
	Timeout      time.Duration `mapstructure:"timeout" json:"timeout"`
	Retries      int           `mapstructure:"retries" json:"retries"`
	StartPeriod  time.Duration `mapstructure:"start_period" json:"startPeriod"`
}

/**
 * Backoff parameters applied between restart attempts of one service
 * @property {time.Duration} initial - First delay
 * @property {time.Duration} max - Delay cap
 * @property {float64} multiplier - Growth factor between attempts
 */
type BackoffSpec struct {
	Initial    time.Duration `mapstructure:"initial" json:"initial"`
	Max        time.Duration `mapstructure:"max" json:"max"`
	Multiplier float64       `mapstructure:"multiplier" json:"multiplier"`
}

/**
 * Restart policy for a single service, never mutated after load
 * @property {int} maxConsecutiveFailures - Failure threshold the policy fires at; defaults to probe retries
 * @property {int} maxRestartAttempts - Restart budget before the service goes into persistent failure
 * @property {BackoffSpec} backoff - Delay schedule between restarts
 */
type RestartPolicy struct {
	MaxConsecutiveFailures int         `mapstructure:"max_consecutive_failures" json:"maxConsecutiveFailures"`
	MaxRestartAttempts     int         `mapstructure:"max_restart_attempts" json:"maxRestartAttempts"`
	Backoff                BackoffSpec `mapstructure:"backoff" json:"backoff"`
}

/**
 * Static declaration of a managed service, immutable after registry load
 * @property {string} id - Unique name, also the dependency graph node key
 * @property {[]string} dependsOn - Ids of services that must be healthy before this one starts
 * @property {string} command - Process launch command handed to the controller
 * @property {[]string} args - Command arguments
 * @property {ProbeSpec} probe - Health probe declaration
 * @property {RestartPolicy} restart - Restart/escalation policy
 * @property {time.Duration} startupTimeout - How long the sequencer waits for the service to become healthy
 * @property {time.Duration} stopGrace - Grace period before a stop escalates to force kill
 */
type ServiceSpec struct {
	ID             string        `mapstructure:"id" json:"id"`
	DependsOn      []string      `mapstructure:"depends_on" json:"dependsOn,omitempty"`
	Command        string        `mapstructure:"command" json:"command,omitempty"`
	Args           []string      `mapstructure:"args" json:"args,omitempty"`
	Probe          ProbeSpec     `mapstructure:"probe" json:"probe"`
	Restart        RestartPolicy `mapstructure:"restart" json:"restart"`
	StartupTimeout time.Duration `mapstructure:"startup_timeout" json:"startupTimeout,omitempty"`
	StopGrace      time.Duration `mapstructure:"stop_grace" json:"stopGrace,omitempty"`
}

// FailureThreshold returns the consecutive-failure count at which the
// service is declared unhealthy. The restart policy value wins when set,
// otherwise the probe retries apply.
func (s ServiceSpec) FailureThreshold() int {
	if s.Restart.MaxConsecutiveFailures > 0 {
		return s.Restart.MaxConsecutiveFailures
	}
	return s.Probe.Retries
}

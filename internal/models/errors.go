package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrServiceNotFound is returned by per-service operations on unknown ids.
var ErrServiceNotFound = errors.New("service not found")

// ErrAlreadyRunning is returned when starting a service that is not stopped.
var ErrAlreadyRunning = errors.New("service already running")

// ErrPersistentFailure is returned when starting a service that exhausted
// its restart budget; an operator reset must come first.
var ErrPersistentFailure = errors.New("service in persistent failure, reset required")

// ConfigurationError is the common marker for load-time failures. The
// supervisor refuses to start when any of these are reported.
var ErrConfiguration = errors.New("configuration error")

// DuplicateIDError reports two specs sharing one id.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate service id %q", e.ID)
}

func (e *DuplicateIDError) Unwrap() error { return ErrConfiguration }

// InvalidProbeError reports a probe spec with bad timing or an unusable target.
type InvalidProbeError struct {
	ID     string
	Reason string
}

func (e *InvalidProbeError) Error() string {
	return fmt.Sprintf("invalid probe for service %q: %s", e.ID, e.Reason)
}

func (e *InvalidProbeError) Unwrap() error { return ErrConfiguration }

// UnknownDependencyError reports a dependsOn entry naming no declared service.
type UnknownDependencyError struct {
	ID        string
	DependsOn string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("service %q depends on unknown service %q", e.ID, e.DependsOn)
}

func (e *UnknownDependencyError) Unwrap() error { return ErrConfiguration }

// CycleError reports a dependency cycle. Path holds the minimal offending
// cycle, with the first id repeated at the end.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrConfiguration }

// StartupTimeoutError names the service that blocked a layer from becoming
// healthy. Earlier layers stay up when this is returned.
type StartupTimeoutError struct {
	Service    string
	LastOutput string
}

func (e *StartupTimeoutError) Error() string {
	if e.LastOutput == "" {
		return fmt.Sprintf("service %q did not become healthy within its startup timeout", e.Service)
	}
	return fmt.Sprintf("service %q did not become healthy within its startup timeout (last probe: %s)",
		e.Service, e.LastOutput)
}

// ProcessControlError wraps a controller failure to start/stop/kill a service.
// It is absorbed into the failure policy, never propagated as a hard error.
type ProcessControlError struct {
	Service string
	Op      string
	Err     error
}

func (e *ProcessControlError) Error() string {
	return fmt.Sprintf("process control %s failed for service %q: %v", e.Op, e.Service, e.Err)
}

func (e *ProcessControlError) Unwrap() error { return e.Err }

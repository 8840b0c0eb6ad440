package services

import (
	"fmt"
	"sort"
	"time"

	"stackwarden/internal/models"
)

// Fallbacks for declarations that reach the registry without going through
// the config layer's defaulting.
const (
	defaultStartupTimeout = 2 * time.Minute
	defaultStopGrace      = 10 * time.Second
)

// Registry holds the validated, immutable set of service declarations.
// Safe for concurrent reads once LoadRegistry has returned.
type Registry struct {
	specs map[string]models.ServiceSpec
	ids   []string
}

/**
 * Validate service declarations and build the registry
 * @param {[]models.ServiceSpec} specs - Declarations, typically from configuration
 * @returns {(*Registry, error)} Registry, or the first configuration error found
 * @description
 * - Every id must be unique and non-empty
 * - Probe timing must satisfy 0 < timeout < interval, with at least one retry
 * - Every dependsOn entry must name a declared service
 * - A zero startup timeout or stop grace falls back to the package default
 */
func LoadRegistry(specs []models.ServiceSpec) (*Registry, error) {
	reg := &Registry{specs: make(map[string]models.ServiceSpec, len(specs))}

	for _, spec := range specs {
		if spec.ID == "" {
			return nil, &models.InvalidProbeError{ID: "", Reason: "service id must not be empty"}
		}
		if _, exists := reg.specs[spec.ID]; exists {
			return nil, &models.DuplicateIDError{ID: spec.ID}
		}
		if err := validateProbe(spec); err != nil {
			return nil, err
		}
		if spec.StartupTimeout <= 0 {
			spec.StartupTimeout = defaultStartupTimeout
		}
		if spec.StopGrace <= 0 {
			spec.StopGrace = defaultStopGrace
		}
		reg.specs[spec.ID] = spec
		reg.ids = append(reg.ids, spec.ID)
	}

	for _, spec := range reg.specs {
		for _, dep := range spec.DependsOn {
			if _, ok := reg.specs[dep]; !ok {
				return nil, &models.UnknownDependencyError{ID: spec.ID, DependsOn: dep}
			}
			if dep == spec.ID {
				return nil, &models.CycleError{Path: []string{spec.ID, spec.ID}}
			}
		}
	}

	sort.Strings(reg.ids)
	return reg, nil
}

func validateProbe(spec models.ServiceSpec) error {
	p := spec.Probe
	switch p.Type {
	case models.ProbeHTTP, models.ProbeTCP, models.ProbeCommand:
	default:
		return &models.InvalidProbeError{ID: spec.ID,
			Reason: fmt.Sprintf("unknown probe type %q", p.Type)}
	}
	if p.Target == "" {
		return &models.InvalidProbeError{ID: spec.ID, Reason: "probe target must not be empty"}
	}
	if p.Interval <= 0 {
		return &models.InvalidProbeError{ID: spec.ID, Reason: "probe interval must be positive"}
	}
	if p.Timeout <= 0 {
		return &models.InvalidProbeError{ID: spec.ID, Reason: "probe timeout must be positive"}
	}
	if p.Timeout >= p.Interval {
		return &models.InvalidProbeError{ID: spec.ID,
			Reason: fmt.Sprintf("probe timeout %v must be shorter than interval %v", p.Timeout, p.Interval)}
	}
	if p.Retries <= 0 {
		return &models.InvalidProbeError{ID: spec.ID, Reason: "probe retries must be at least 1"}
	}
	if p.StartPeriod < 0 {
		return &models.InvalidProbeError{ID: spec.ID, Reason: "probe start period must not be negative"}
	}
	return nil
}

// Get returns the spec for id.
func (r *Registry) Get(id string) (models.ServiceSpec, bool) {
	spec, ok := r.specs[id]
	return spec, ok
}

// IDs returns all service ids in lexical order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Specs returns all declarations in id order.
func (r *Registry) Specs() []models.ServiceSpec {
	out := make([]models.ServiceSpec, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.specs[id])
	}
	return out
}

// Len returns the number of registered services.
func (r *Registry) Len() int {
	return len(r.ids)
}

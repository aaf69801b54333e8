package workflow

import "fmt"

// CascadeStep records the outcome of one dependent-record update inside a
// cascade (activation, suspension, migration, notification dispatch).
type CascadeStep struct {
	Cascade    string `json:"cascade"`
	ResourceID string `json:"resourceId"`
	Action     string `json:"action"`
	Err        string `json:"error,omitempty"`
}

// CascadeReport accumulates the steps of a cascade. Cascades are
// best-effort: a failed step never aborts the remaining ones or the
// primary mutation, but every failure is surfaced to the caller as a
// warning instead of being logged away server-side.
type CascadeReport struct {
	Steps []CascadeStep `json:"steps,omitempty"`
}

// Ok records a successful step.
func (r *CascadeReport) Ok(cascade, resourceID, action string) {
	r.Steps = append(r.Steps, CascadeStep{Cascade: cascade, ResourceID: resourceID, Action: action})
}

// Fail records a failed step.
func (r *CascadeReport) Fail(cascade, resourceID, action string, err error) {
	r.Steps = append(r.Steps, CascadeStep{Cascade: cascade, ResourceID: resourceID, Action: action, Err: err.Error()})
}

// Merge appends another report's steps.
func (r *CascadeReport) Merge(other *CascadeReport) {
	if other != nil {
		r.Steps = append(r.Steps, other.Steps...)
	}
}

// Warnings renders the failed steps as human-readable strings.
func (r *CascadeReport) Warnings() []string {
	var warnings []string
	for _, s := range r.Steps {
		if s.Err != "" {
			warnings = append(warnings, fmt.Sprintf("%s %s on %s failed: %s", s.Cascade, s.Action, s.ResourceID, s.Err))
		}
	}
	return warnings
}

// Failed reports whether any step failed.
func (r *CascadeReport) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != "" {
			return true
		}
	}
	return false
}

package validation

import "warden/cmd/internal/jsonapi"

// Accumulator collects violations and extracted values while stages run.
type Accumulator struct {
	violations []jsonapi.Violation
	values     map[string]string
}

// Add records a violation.
func (a *Accumulator) Add(field string, kind jsonapi.Kind, msg string) {
	a.violations = append(a.violations, jsonapi.Violation{Field: field, Kind: kind, Message: msg})
}

// Set stores the normalized value of field.
func (a *Accumulator) Set(field, value string) {
	if a.values == nil {
		a.values = make(map[string]string)
	}
	a.values[field] = value
}

// Len returns the number of recorded violations.
func (a *Accumulator) Len() int { return len(a.violations) }

// Violations returns the recorded violations in order.
func (a *Accumulator) Violations() []jsonapi.Violation {
	out := make([]jsonapi.Violation, len(a.violations))
	copy(out, a.violations)
	return out
}

func (a *Accumulator) snapshot() map[string]string {
	out := make(map[string]string, len(a.values))
	for k, v := range a.values {
		out[k] = v
	}
	return out
}

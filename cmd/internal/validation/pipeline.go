package validation

import (
	"context"

	"warden/cmd/internal/jsonapi"
)

// Stage is one step of a Pipeline. It records violations in acc; a returned
// error aborts the pipeline and is treated as a system fault.
type Stage interface {
	Validate(ctx context.Context, env Envelope, acc *Accumulator) error
}

// StageFunc adapts a function to Stage.
type StageFunc func(ctx context.Context, env Envelope, acc *Accumulator) error

// Validate calls f.
func (f StageFunc) Validate(ctx context.Context, env Envelope, acc *Accumulator) error {
	return f(ctx, env, acc)
}

// Result is the outcome of a pipeline run: either normalized values or a
// non-empty list of violations.
type Result struct {
	Values     map[string]string
	Violations []jsonapi.Violation
}

// OK reports whether the document passed every stage.
func (r Result) OK() bool { return len(r.Violations) == 0 }

// Value returns the normalized value of field and whether it was set.
func (r Result) Value(field string) (string, bool) {
	v, ok := r.Values[field]
	return v, ok
}

// Pipeline runs stages in order.
type Pipeline struct {
	stages []Stage
}

// New returns a Pipeline over stages.
func New(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Run parses body and validates it. The error is ErrMalformed for an
// unparseable body, or a stage's system fault.
func (p *Pipeline) Run(ctx context.Context, body []byte) (Result, error) {
	env, err := ParseEnvelope(body)
	if err != nil {
		return Result{}, err
	}
	return p.Apply(ctx, env)
}

// Apply validates an already parsed envelope.
func (p *Pipeline) Apply(ctx context.Context, env Envelope) (Result, error) {
	var acc Accumulator
	for _, st := range p.stages {
		if err := st.Validate(ctx, env, &acc); err != nil {
			return Result{}, err
		}
		if acc.Len() > 0 {
			return Result{Violations: acc.Violations()}, nil
		}
	}
	return Result{Values: acc.snapshot()}, nil
}

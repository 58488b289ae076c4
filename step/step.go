// Package step runs the ordered steps of one scenario.
//
// Steps run strictly in declaration order. The first failing step aborts the
// scenario and the remaining ones are reported as skipped. Cleanups registered
// with Defer run afterwards in reverse order, whatever the outcome was.
package step

import (
	"context"
	"time"
)

// Func is the action of a step. It must honour ctx.
type Func func(ctx context.Context) error

// Step is one labelled action of a scenario.
type Step struct {
	Label  string
	Action Func
	// Timeout overrides the runner's default step timeout.
	Timeout time.Duration
}

// New creates a step.
func New(label string, action Func) Step {
	return Step{Label: label, Action: action}
}

// WithTimeout returns a copy of the step with its own deadline.
func (s Step) WithTimeout(timeout time.Duration) Step {
	s.Timeout = timeout
	return s
}

// Plan is an ordered list of steps with a hard ceiling for the whole run.
type Plan struct {
	Name    string
	Steps   []Step
	Timeout time.Duration
}

// Add appends steps and returns the plan for chaining.
func (p *Plan) Add(steps ...Step) *Plan {
	p.Steps = append(p.Steps, steps...)
	return p
}

// Then appends a step built from label and action.
func (p *Plan) Then(label string, action Func) *Plan {
	return p.Add(New(label, action))
}

// Labels returns the step labels in order.
func (p *Plan) Labels() []string {
	labels := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		labels[i] = s.Label
	}
	return labels
}

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Step names in the order the exporter runs them.
const (
	StepParse           = "parse"
	StepAttachments     = "attachments"
	StepTempAttachments = "temp_attachments"
	StepRewrite         = "rewrite"
	StepWrite           = "write"
	StepCache           = "cache"
)

// Step is one stage of page rendering.
type Step interface {
	// Do executes the step. A returned error fails the page; non-critical
	// problems should be recorded with Job.Warn and nil returned.
	Do(ctx context.Context, job *Job) error

	// Name identifies the step in logs and in Job.PerformedSteps.
	Name() string
}

// StepError reports which step failed a page.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Pipeline runs a fixed sequence of steps for every stale page.
// A Pipeline belongs to one space and is not safe for concurrent use.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. If not set, slog.Default is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends steps in order.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps in order for job and stops at the first failure.
// Step failures are returned as *StepError; cancellation is returned as the
// bare context error. Completed steps are recorded in job.PerformedSteps.
func (p *Pipeline) Execute(ctx context.Context, job *Job) error {
	logger := p.logger.With("page", job.Page.ID)
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			logger.Warn("page rendering cancelled", "step", step.Name(), "reason", err)
			return err
		}

		start := time.Now()
		if err := step.Do(ctx, job); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			logger.Debug("step failed", "step", step.Name(), "error", err)
			return &StepError{Step: step.Name(), Err: err}
		}
		logger.Debug("step done", "step", step.Name(), "elapsed", time.Since(start))
		job.PerformedSteps = append(job.PerformedSteps, step.Name())
	}
	return nil
}

// StepCount returns the number of steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, len(p.steps))
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	return names
}

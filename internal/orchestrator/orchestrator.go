// Package orchestrator implements the typed, rollback-capable setup
// pipeline: a sequence of acquire/release steps, state threaded
// forward as an accumulating struct, and automatic reverse-order rollback
// the moment any step's acquire fails.
package orchestrator

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aryonoco/divban/internal/logging"
)

// Step is one pipeline stage. Acquire performs the stage's side effect and
// returns the next state plus a release function; Release undoes exactly
// what Acquire did, and is called during rollback in the reverse order
// steps succeeded in.
type Step[S any] struct {
	Name    string
	Acquire func(ctx context.Context, state S) (S, func(ctx context.Context) error, error)
}

// Pipeline is an ordered list of steps sharing one threaded state type.
type Pipeline[S any] struct {
	Steps  []Step[S]
	Logger *logging.Logger
}

// Outcome reports what Execute did, for callers that want to log or render
// a summary distinct from a bare error.
type Outcome struct {
	StepsCompleted int
	RolledBack     bool
	RollbackErrors []error
}

// Execute runs every step in order. If a step's Acquire fails, every
// previously acquired step's Release is invoked in reverse order before the
// original error is returned; a release failure is collected but does not
// stop the rest of the rollback from running.
func (p Pipeline[S]) Execute(ctx context.Context, initial S) (S, Outcome, error) {
	state := initial
	var releases []func(ctx context.Context) error
	outcome := Outcome{}

	var tracer trace.Tracer
	if p.Logger != nil {
		tracer = p.Logger.Tracer()
	}

	for i, step := range p.Steps {
		// Cooperative cancellation: a signal arriving between steps aborts
		// the pipeline through the same release path as a step failure.
		if err := ctx.Err(); err != nil {
			if p.Logger != nil {
				p.Logger.Fail(ctx, "pipeline cancelled, rolling back", "step", step.Name)
			}
			outcome.RolledBack = true
			outcome.RollbackErrors = rollback(context.WithoutCancel(ctx), p.Logger, releases)
			return state, outcome, err
		}

		if p.Logger != nil {
			p.Logger.Step(ctx, i+1, len(p.Steps), step.Name)
		}

		stepCtx := ctx
		var span trace.Span
		if tracer != nil {
			stepCtx, span = tracer.Start(ctx, step.Name, trace.WithAttributes(attribute.String("divban.step", step.Name)))
		}

		next, release, err := step.Acquire(stepCtx, state)

		if span != nil {
			if err != nil {
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetStatus(codes.Ok, "")
			}
			span.End()
		}

		if err != nil {
			if p.Logger != nil {
				p.Logger.Fail(ctx, "step failed, rolling back", "step", step.Name, "error", err)
			}
			outcome.RolledBack = true
			// Releases are not cancellable: a deadline that killed the step
			// must not also kill the rollback undoing it.
			outcome.RollbackErrors = rollback(context.WithoutCancel(ctx), p.Logger, releases)
			return state, outcome, err
		}

		state = next
		if release != nil {
			releases = append(releases, release)
		}
		outcome.StepsCompleted++
	}

	if p.Logger != nil {
		p.Logger.Success(ctx, "pipeline completed", "steps", outcome.StepsCompleted)
	}
	return state, outcome, nil
}

// rollback invokes every release in reverse order, collecting (not
// stopping on) individual failures so a release failing to undo one step
// never prevents earlier steps from also being rolled back.
func rollback(ctx context.Context, logger *logging.Logger, releases []func(ctx context.Context) error) []error {
	var errs []error
	for i := len(releases) - 1; i >= 0; i-- {
		if err := releases[i](ctx); err != nil {
			if logger != nil {
				logger.Error(ctx, "rollback step failed", "error", err)
			}
			errs = append(errs, err)
		}
	}
	return errs
}

// Package cascade runs multi-record deletions as an explicit, ordered plan.
//
// A Plan is a list of dependent Steps followed by a Final step that removes
// the anchor record (the post, the story, the user...). Every dependent step is
// attempted even when an earlier one fails, so the error names everything that
// went wrong in one go. The Final step only runs when all dependent steps
// succeeded: an anchor record is never removed while its dependents remain, and
// the caller can simply retry the whole plan.
//
// Inside a store transaction any failure rolls everything back; without one the
// plan is best-effort and the returned *Error tells the caller what is left.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Step is one named unit of a plan. Run must be idempotent.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Plan is a named cascade.
type Plan struct {
	Op    string
	Steps []Step
	Final Step
}

// StepError records one failed step.
type StepError struct {
	Step string
	Err  error
}

// Error reports a cascade that did not complete.
type Error struct {
	Op      string
	Failed  []StepError
	Skipped []string
}

func (e *Error) Error() string {
	names := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		names = append(names, f.Step)
	}
	msg := fmt.Sprintf("%s: failed steps [%s]", e.Op, strings.Join(names, ", "))
	if len(e.Skipped) > 0 {
		msg += fmt.Sprintf(", skipped [%s]", strings.Join(e.Skipped, ", "))
	}
	return msg
}

// Unwrap exposes the step errors to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, f := range e.Failed {
		errs = append(errs, f.Err)
	}
	return errs
}

// FailedSteps lists the names of the failed steps in execution order.
func (e *Error) FailedSteps() []string {
	names := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		names = append(names, f.Step)
	}
	return names
}

// Run executes the plan. It returns nil or an *Error.
func (p Plan) Run(ctx context.Context, logger *slog.Logger) error {
	cerr := &Error{Op: p.Op}

	for _, step := range p.Steps {
		if err := ctx.Err(); err != nil {
			cerr.Failed = append(cerr.Failed, StepError{Step: step.Name, Err: err})
			continue
		}
		if err := step.Run(ctx); err != nil {
			logger.Error("cascade step failed",
				slog.String("op", p.Op),
				slog.String("step", step.Name),
				slog.String("error", err.Error()),
			)
			cerr.Failed = append(cerr.Failed, StepError{Step: step.Name, Err: err})
		}
	}

	if len(cerr.Failed) > 0 {
		if p.Final.Run != nil {
			cerr.Skipped = append(cerr.Skipped, p.Final.Name)
		}
		return cerr
	}

	if p.Final.Run != nil {
		if err := p.Final.Run(ctx); err != nil {
			logger.Error("cascade final step failed",
				slog.String("op", p.Op),
				slog.String("step", p.Final.Name),
				slog.String("error", err.Error()),
			)
			cerr.Failed = append(cerr.Failed, StepError{Step: p.Final.Name, Err: err})
			return cerr
		}
	}

	return nil
}

// AsError extracts a cascade error from an error chain.
func AsError(err error) (*Error, bool) {
	var cerr *Error
	ok := errors.As(err, &cerr)
	return cerr, ok
}

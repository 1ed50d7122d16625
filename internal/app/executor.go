package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsamuelsen/freight-quote-service/internal/platform/logging"
)

// Lifecycle operations run in five steps:
//
//  1. VALIDATE - load the quote and check the transition against the table
//  2. PERFORM  - compare-and-set the status in the repository
//  3. VERIFY   - confirm the stored quote reflects the transition
//  4. ARCHIVE  - record the outcome: events, metrics, follow-up scheduling
//  5. RESPOND  - shape the result for the caller
//
// Nothing is written before VALIDATE passes, and the caller only sees
// success after VERIFY confirmed the committed state.

// ExecutionStep names a step of an Operation.
type ExecutionStep string

// Execution steps.
const (
	StepValidate ExecutionStep = "validate"
	StepPerform  ExecutionStep = "perform"
	StepVerify   ExecutionStep = "verify"
	StepArchive  ExecutionStep = "archive"
	StepRespond  ExecutionStep = "respond"
)

// ExecutionError records the step where an operation failed. It unwraps to
// the cause so domain errors stay matchable with errors.Is and errors.As.
type ExecutionError struct {
	Step    ExecutionStep
	Message string
	Cause   error
}

func (e *ExecutionError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s failed: %s", e.Step, e.Message)
	}

	return fmt.Sprintf("%s failed: %s: %v", e.Step, e.Message, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Operation supplies the function for each step. Nil steps are skipped.
type Operation[I, P, V, O any] struct {
	Name string

	Validate func(ctx context.Context, input I) error
	Perform  func(ctx context.Context, input I) (P, error)
	Verify   func(ctx context.Context, input I, performed P) (V, error)
	Archive  func(ctx context.Context, input I, verified V) error
	Respond  func(ctx context.Context, input I, verified V) (O, error)

	// BestEffortArchive logs archive failures instead of failing the
	// operation. Use it when the state change is already committed and
	// archiving only notifies others.
	BestEffortArchive bool
}

// Executor runs operations with step-level logging.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor creates an executor. A nil logger falls back to slog.Default.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{logger: logger}
}

func (e *Executor) loggerFor(ctx context.Context, name string) *slog.Logger {
	logger := e.logger
	if logging.HasLogger(ctx) {
		logger = logging.FromContext(ctx)
	}

	return logger.With(slog.String("operation", name))
}

// Execute runs op against input.
func Execute[I, P, V, O any](ctx context.Context, exec *Executor, op Operation[I, P, V, O], input I) (O, error) {
	var zero O

	logger := exec.loggerFor(ctx, op.Name)
	start := time.Now()

	fail := func(step ExecutionStep, message string, err error, level slog.Level) (O, error) {
		logger.Log(ctx, level, message, slog.String("step", string(step)), slog.Any("error", err))

		return zero, &ExecutionError{Step: step, Message: message, Cause: err}
	}

	if op.Validate != nil {
		if err := op.Validate(ctx, input); err != nil {
			return fail(StepValidate, "precondition failed", err, slog.LevelWarn)
		}
	}

	var performed P
	if op.Perform != nil {
		var err error

		performed, err = op.Perform(ctx, input)
		if err != nil {
			return fail(StepPerform, "operation failed", err, slog.LevelWarn)
		}
	}

	var verified V
	if op.Verify != nil {
		var err error

		verified, err = op.Verify(ctx, input, performed)
		if err != nil {
			return fail(StepVerify, "verification failed", err, slog.LevelError)
		}
	}

	if op.Archive != nil {
		if err := op.Archive(ctx, input, verified); err != nil {
			if !op.BestEffortArchive {
				return fail(StepArchive, "archive failed", err, slog.LevelError)
			}

			logger.WarnContext(ctx, "archive failed, continuing", slog.Any("error", err))
		}
	}

	result := zero
	if op.Respond != nil {
		var err error

		result, err = op.Respond(ctx, input, verified)
		if err != nil {
			return fail(StepRespond, "response failed", err, slog.LevelWarn)
		}
	}

	logger.DebugContext(ctx, "operation completed", slog.Duration("duration", time.Since(start)))

	return result, nil
}

// GetExecutionStep reports the step at which err was raised.
func GetExecutionStep(err error) (ExecutionStep, bool) {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Step, true
	}

	return "", false
}

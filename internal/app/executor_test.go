package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/freight-quote-service/internal/domain"
)

func TestExecute_RunsStepsInOrder(t *testing.T) {
	var steps []ExecutionStep

	op := Operation[string, int, int, string]{
		Name: "test",
		Validate: func(context.Context, string) error {
			steps = append(steps, StepValidate)
			return nil
		},
		Perform: func(_ context.Context, in string) (int, error) {
			steps = append(steps, StepPerform)
			return len(in), nil
		},
		Verify: func(_ context.Context, _ string, n int) (int, error) {
			steps = append(steps, StepVerify)
			return n * 2, nil
		},
		Archive: func(context.Context, string, int) error {
			steps = append(steps, StepArchive)
			return nil
		},
		Respond: func(_ context.Context, in string, n int) (string, error) {
			steps = append(steps, StepRespond)
			return in + "!", nil
		},
	}

	out, err := Execute(context.Background(), NewExecutor(nil), op, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc!", out)
	assert.Equal(t, []ExecutionStep{StepValidate, StepPerform, StepVerify, StepArchive, StepRespond}, steps)
}

func TestExecute_StopsAtFailingStep(t *testing.T) {
	performed := false

	op := Operation[string, int, int, int]{
		Name: "test",
		Validate: func(context.Context, string) error {
			return &domain.InvalidTransitionError{QuoteID: "Q-1", From: domain.StatusDraft, To: domain.StatusAccepted}
		},
		Perform: func(context.Context, string) (int, error) {
			performed = true
			return 0, nil
		},
	}

	_, err := Execute(context.Background(), NewExecutor(nil), op, "x")
	require.Error(t, err)
	assert.False(t, performed)

	step, ok := GetExecutionStep(err)
	require.True(t, ok)
	assert.Equal(t, StepValidate, step)

	var invalid *domain.InvalidTransitionError
	assert.ErrorAs(t, err, &invalid)
	assert.True(t, domain.IsInvalidTransition(err))
}

func TestExecute_Archive(t *testing.T) {
	archiveErr := errors.New("broker down")

	newOp := func(bestEffort bool) Operation[int, int, int, int] {
		return Operation[int, int, int, int]{
			Name:              "test",
			Perform:           func(_ context.Context, in int) (int, error) { return in, nil },
			Verify:            func(_ context.Context, _ int, p int) (int, error) { return p, nil },
			Archive:           func(context.Context, int, int) error { return archiveErr },
			Respond:           func(_ context.Context, _ int, v int) (int, error) { return v + 1, nil },
			BestEffortArchive: bestEffort,
		}
	}

	out, err := Execute(context.Background(), NewExecutor(nil), newOp(true), 41)
	require.NoError(t, err)
	assert.Equal(t, 42, out)

	_, err = Execute(context.Background(), NewExecutor(nil), newOp(false), 41)
	require.ErrorIs(t, err, archiveErr)

	step, _ := GetExecutionStep(err)
	assert.Equal(t, StepArchive, step)
}

func TestExecutionError_Message(t *testing.T) {
	err := &ExecutionError{Step: StepPerform, Message: "operation failed", Cause: errBoom}
	assert.Equal(t, "perform failed: operation failed: boom", err.Error())
	assert.ErrorIs(t, err, errBoom)

	bare := &ExecutionError{Step: StepVerify, Message: "mismatch"}
	assert.Equal(t, "verify failed: mismatch", bare.Error())

	_, ok := GetExecutionStep(errBoom)
	assert.False(t, ok)
}

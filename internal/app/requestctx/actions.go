package requestctx

import (
	"context"
	"errors"
	"fmt"
)

// Action is a staged write.
type Action interface {
	// Execute performs the write.
	Execute(ctx context.Context) error

	// Rollback compensates a successful Execute.
	Rollback(ctx context.Context) error

	// Description names the action in errors and logs.
	Description() string
}

// ActionFunc builds an Action from functions. A nil undo makes Rollback a no-op.
func ActionFunc(description string, do, undo func(context.Context) error) Action {
	return &funcAction{description: description, do: do, undo: undo}
}

type funcAction struct {
	description string
	do          func(context.Context) error
	undo        func(context.Context) error
}

func (a *funcAction) Execute(ctx context.Context) error { return a.do(ctx) }

func (a *funcAction) Rollback(ctx context.Context) error {
	if a.undo == nil {
		return nil
	}

	return a.undo(ctx)
}

func (a *funcAction) Description() string { return a.description }

// AddAction stages an action.
func (rc *RequestContext) AddAction(action Action) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.committed {
		return ErrAlreadyCommitted
	}

	rc.actions = append(rc.actions, action)

	return nil
}

// Commit executes the staged actions in order. If one fails, the actions
// that already ran are rolled back in reverse order and the failure is
// returned together with any rollback failures.
func (rc *RequestContext) Commit(ctx context.Context) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.committed {
		return ErrAlreadyCommitted
	}

	rc.committed = true

	for i, action := range rc.actions {
		err := action.Execute(ctx)
		if err == nil {
			continue
		}

		errs := []error{fmt.Errorf("action %q failed: %w", action.Description(), err)}

		for j := i - 1; j >= 0; j-- {
			if rbErr := rc.actions[j].Rollback(ctx); rbErr != nil {
				errs = append(errs, fmt.Errorf("rolling back %q: %w", rc.actions[j].Description(), rbErr))
			}
		}

		return errors.Join(errs...)
	}

	return nil
}

// Actions returns a copy of the staged actions.
func (rc *RequestContext) Actions() []Action {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	return append([]Action(nil), rc.actions...)
}

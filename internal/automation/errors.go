package automation

import "errors"

// Domain errors for the automation package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, automation.ErrSceneNotFound) {
//	    // handle not found case
//	}
var (
	// ErrSceneNotFound is returned when a scene ID does not exist.
	ErrSceneNotFound = errors.New("automation: scene not found")

	// ErrAutomationNotFound is returned when an automation ID does not exist.
	ErrAutomationNotFound = errors.New("automation: automation not found")

	// ErrDuplicateName is returned when creating a scene whose name is
	// already taken.
	ErrDuplicateName = errors.New("automation: duplicate name")

	// ErrInvalidName is returned when a name is empty or too long.
	ErrInvalidName = errors.New("automation: invalid name")

	// ErrInvalidTrigger is returned when a trigger fails validation.
	ErrInvalidTrigger = errors.New("automation: invalid trigger")

	// ErrInvalidCondition is returned when a condition fails validation.
	ErrInvalidCondition = errors.New("automation: invalid condition")

	// ErrInvalidAction is returned when an action fails validation.
	ErrInvalidAction = errors.New("automation: invalid action")

	// ErrNoActions is returned when a scene or automation has no actions.
	ErrNoActions = errors.New("automation: no actions")

	// ErrExecutionNotFound is returned when an execution ID does not exist.
	ErrExecutionNotFound = errors.New("automation: execution not found")

	// ErrConditionsNotMet is returned when a manual run's conditions
	// evaluate false and the caller did not ask to bypass them.
	ErrConditionsNotMet = errors.New("automation: conditions not met")

	// ErrAlreadyRunning is returned when an automation fires while a
	// previous firing is still executing. Firings are single-flight per
	// automation; overlapping triggers are dropped, not queued.
	ErrAlreadyRunning = errors.New("automation: execution already in progress")
)

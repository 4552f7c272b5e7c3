package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a trigger is not permitted from the current state
	ErrInvalidTransition = errors.New("invalid seat transition")

	// ErrInvalidState is returned when a state is not a known seat state
	ErrInvalidState = errors.New("invalid seat state")

	// ErrGuardFailed is returned when every guarded transition refused
	ErrGuardFailed = errors.New("guard condition failed")
)

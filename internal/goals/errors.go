package goals

import "errors"

var (
	ErrGoalNotFound       = errors.New("goal not found")
	ErrPatientNotFound    = errors.New("patient not found")
	ErrNotAssigned        = errors.New("doctor is not assigned to this patient")
	ErrNotGoalOwner       = errors.New("goal belongs to another patient")
	ErrGoalNotActive      = errors.New("goal is not active")
	ErrGoalCompleted      = errors.New("goal already completed")
	ErrAlreadyLoggedToday = errors.New("progress already logged today")
	ErrInvalidFrequency   = errors.New("frequency must be at least 1 day")
)

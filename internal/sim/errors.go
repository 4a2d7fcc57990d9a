package sim

import "errors"

// Simulation-specific errors
var (
	ErrAlreadyRunning = errors.New("simulation is already running")
	ErrNoAgentAtCell  = errors.New("no agent at cell")
	ErrInvalidConfig  = errors.New("invalid simulation configuration")
)

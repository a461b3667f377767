package agent

import "errors"

var (
	// ErrRoundBudgetExceeded is returned when the loop exhausts its round
	// budget while the model is still requesting tools.
	ErrRoundBudgetExceeded = errors.New("round budget exceeded")

	// ErrInterrupted is returned when the user stops a run between rounds.
	// Work already persisted stays persisted.
	ErrInterrupted = errors.New("run interrupted")
)

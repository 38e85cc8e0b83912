package agent

import "errors"

// ErrStepBudgetExceeded is returned when the decision loop hits its step
// budget without the model producing a final answer. It is distinct from
// model and tool failures so callers can tell a runaway loop from a broken
// dependency.
var ErrStepBudgetExceeded = errors.New("step budget exceeded")

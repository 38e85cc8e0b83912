package llm

import "errors"

// ErrModelCall marks a failure to obtain a usable model response after all
// retries. Callers match it with errors.Is to distinguish model failures from
// tool failures.
var ErrModelCall = errors.New("model call failed")

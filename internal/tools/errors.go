package tools

import "errors"

// ErrToolNotFound is returned when the model requests a tool that is not in
// the registry handed to the run. It aborts the run instead of being fed back
// to the model, since the model was told exactly which tools exist.
var ErrToolNotFound = errors.New("tool not found")

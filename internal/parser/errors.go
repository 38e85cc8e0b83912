package parser

import "errors"

// ErrParse is returned when a natural-language description cannot be turned
// into a valid task definition, either because the model's output is not
// parseable or because required fields are missing or malformed.
var ErrParse = errors.New("failed to parse task description")

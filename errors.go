package entrypoint

import (
	"errors"
	"fmt"
)

// ErrHelp is returned by Parse when the command line requested the usage
// text. It signals a successful early termination, not a failure: the usage
// message has already been written and no ParsedArgs exist.
var ErrHelp = errors.New("entrypoint: help requested")

// UsageError reports a problem with the user-supplied command line: an
// unknown flag, a malformed value, a missing required argument, or surplus
// tokens. It is always safe to show to the end user.
type UsageError struct {
	// Prog is the entrypoint name the message should be attributed to.
	Prog string
	// Message describes what was wrong with the input.
	Message string
	// Usage is the rendered usage text for the entrypoint, when available.
	Usage string
}

// Error implements the error interface.
func (e *UsageError) Error() string {
	return fmt.Sprintf("%s: error: %s", e.Prog, e.Message)
}

// BindingError is the programming-error signal: it indicates the entrypoint
// configuration is inconsistent with the target function's signature, never a
// problem with user input or with the target function's own logic.
//
// Binding errors are raised as panics, following the registry conventions of
// misused-API detection: by the time one fires, no command line could have
// produced a correct call, so there is nothing to handle at runtime.
type BindingError struct {
	Message string
}

// Error implements the error interface so recovered values format cleanly.
func (e *BindingError) Error() string {
	return "entrypoint: broken binding: " + e.Message
}

// bindAssert panics with a BindingError unless cond holds.
func bindAssert(cond bool, format string, args ...any) {
	if !cond {
		panic(&BindingError{Message: fmt.Sprintf(format, args...)})
	}
}

package pipeline

import "fmt"

// ContentSafetyError is a policy rejection in strict safety mode. It is the
// one run failure the caller may treat as client-correctable.
type ContentSafetyError struct {
	Reason string
}

func (e *ContentSafetyError) Error() string {
	return fmt.Sprintf("content blocked by safety policy: %s", e.Reason)
}

// RunError wraps any pipeline failure with the id of the interaction the
// run had already created, so callers get a correlation handle without the
// internal detail.
type RunError struct {
	InteractionID string
	Err           error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("pipeline run failed (interaction %s): %v", e.InteractionID, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

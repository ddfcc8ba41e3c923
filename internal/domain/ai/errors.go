package ai

import (
	"fmt"
	"strings"
)

// TranscriptionError means every configured transcription provider failed,
// or none was configured at all. Reasons holds one entry per provider tried.
type TranscriptionError struct {
	Reasons []string
}

func (e *TranscriptionError) Error() string {
	if len(e.Reasons) == 0 {
		return "transcription failed"
	}
	return "transcription failed: " + strings.Join(e.Reasons, "; ")
}

// ExtractionError means the extraction provider returned output that could
// not be parsed into order items. Raw keeps the offending model output for
// the audit trail.
type ExtractionError struct {
	Raw string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction output unparseable: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

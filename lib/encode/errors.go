package encode

import "fmt"

// EncodingError is a non-zero ffmpeg exit while encoding. Diagnostic holds
// the tail of ffmpeg's combined output.
type EncodingError struct {
	Input      string
	Output     string
	Diagnostic string
	Err        error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("failed to encode %s to %s: %v: %s", e.Input, e.Output, e.Err, e.Diagnostic)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// VerificationError means a freshly encoded file does not decode cleanly.
type VerificationError struct {
	Path       string
	Diagnostic string
	Err        error
}

func (e *VerificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("verification of %s failed: %v: %s", e.Path, e.Err, e.Diagnostic)
	}
	return fmt.Sprintf("verification of %s reported errors: %s", e.Path, e.Diagnostic)
}

func (e *VerificationError) Unwrap() error { return e.Err }

package classify

import "fmt"

// Error reports a per-request decode, feature, or inference failure.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("classification %s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// InitError reports that the model or its feature extractor could not be
// loaded. It is fatal to the process.
type InitError struct {
	Model string
	Err   error
}

func (e *InitError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("model initialization failed for %s: %v", e.Model, e.Err)
	}
	return fmt.Sprintf("model initialization failed: %v", e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

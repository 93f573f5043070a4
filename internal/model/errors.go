package model

import "fmt"

// ValidationError reports a violated call contract, such as formatting a
// value that does not pass validation. Bad input data never produces one.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %q: %s", e.Field, e.Value, e.Reason)
}

// ConfigurationError reports an invalid engine setting or rule definition.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Setting, e.Reason)
}

// BatchFailure records a comparison batch that did not complete. Its
// indices are left unclustered and the run continues.
type BatchFailure struct {
	Batch   int
	Indices []int
	Cause   error
}

func (e *BatchFailure) Error() string {
	return fmt.Sprintf("batch %d (%d records) failed: %v", e.Batch, len(e.Indices), e.Cause)
}

func (e *BatchFailure) Unwrap() error {
	return e.Cause
}

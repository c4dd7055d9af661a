package finder

import "fmt"

// APICallError represents a transport or API failure after retries were
// exhausted.
type APICallError struct {
	Message string
	Cause   error
}

func (e *APICallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("API call failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("API call failed: %s", e.Message)
}

func (e *APICallError) Unwrap() error {
	return e.Cause
}

// ParseError represents a failure to parse the model response after all
// salvage tiers.
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// InsufficientResultsError indicates that fewer candidates than the minimum
// survived validation, even after the supplementary query.
type InsufficientResultsError struct {
	Found int
	Min   int
}

func (e *InsufficientResultsError) Error() string {
	return fmt.Sprintf("could not find at least %d comparable companies (found %d)", e.Min, e.Found)
}

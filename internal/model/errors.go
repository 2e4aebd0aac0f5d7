package model

import "fmt"

// ParseError represents invoice XML parsing errors with source context
type ParseError struct {
	Source  string
	Field   string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	source := e.Source
	if source == "" {
		source = "xml"
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", source, e.Field, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", source, e.Field, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseError creates a new parse error
func NewParseError(source, field, message string, cause error) *ParseError {
	return &ParseError{
		Source:  source,
		Field:   field,
		Message: message,
		Cause:   cause,
	}
}

// Tab identifies the form tab that owns a field
type Tab string

// Form tabs in validation order
const (
	TabDocuments  Tab = "documents"
	TabTransport  Tab = "transport"
	TabDrivers    Tab = "drivers"
	TabRoute      Tab = "route"
	TabFreight    Tab = "freight"
	TabInsurance  Tab = "insurance"
	TabTotalizers Tab = "totalizers"
)

// Tabs lists every form tab in validation order
var Tabs = []Tab{
	TabDocuments,
	TabTransport,
	TabDrivers,
	TabRoute,
	TabFreight,
	TabInsurance,
	TabTotalizers,
}

// ValidationError is a single required-field violation.
// It is plain data: a list of these is returned, never raised.
type ValidationError struct {
	Tab     Tab    `json:"tab"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s.%s: %s", e.Tab, e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(tab Tab, field, message string) ValidationError {
	return ValidationError{
		Tab:     tab,
		Field:   field,
		Message: message,
	}
}

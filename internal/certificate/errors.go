package certificate

import (
	"errors"
	"fmt"
)

// Credential error kinds
const (
	KindWrongPassword    = "wrong_password"
	KindInvalidContainer = "invalid_container"
	KindUnreadable       = "unreadable"
	KindTimeout          = "timeout"
	KindToolUnavailable  = "tool_unavailable"
)

// Sentinels matched by errors.Is against a *CredentialError of the same kind
var (
	ErrWrongPassword     = errors.New("wrong certificate password")
	ErrInvalidContainer  = errors.New("invalid certificate container")
	ErrUnreadable        = errors.New("unreadable certificate file")
	ErrInspectionTimeout = errors.New("certificate inspection timed out")
	ErrToolUnavailable   = errors.New("certificate inspection tool unavailable")
)

var kindSentinels = map[string]error{
	KindWrongPassword:    ErrWrongPassword,
	KindInvalidContainer: ErrInvalidContainer,
	KindUnreadable:       ErrUnreadable,
	KindTimeout:          ErrInspectionTimeout,
	KindToolUnavailable:  ErrToolUnavailable,
}

// CredentialError represents a failure to open or read a credential container
type CredentialError struct {
	Kind    string
	Path    string
	Message string
	Cause   error
}

func (e *CredentialError) Error() string {
	if e.Path != "" && e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Kind, e.Path, e.Message, e.Cause)
	}
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Path, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s (%v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *CredentialError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for this error's kind
func (e *CredentialError) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && target == sentinel
}

// UserMessage returns a human-readable message that tells the user what to fix
func (e *CredentialError) UserMessage() string {
	switch e.Kind {
	case KindWrongPassword:
		return "The certificate password is incorrect. Check the password and try again."
	case KindInvalidContainer:
		return "The file is not a valid PKCS#12 certificate (.pfx/.p12)."
	case KindUnreadable:
		return "The certificate file could not be read. Check the path and file permissions."
	case KindTimeout:
		return "Reading the certificate took too long and was cancelled. Try again."
	case KindToolUnavailable:
		return "The certificate inspection tool is not installed on this system."
	default:
		return e.Message
	}
}

// NewCredentialError creates a new credential error
func NewCredentialError(kind, path, message string, cause error) *CredentialError {
	return &CredentialError{
		Kind:    kind,
		Path:    path,
		Message: message,
		Cause:   cause,
	}
}

// WrongPasswordError returns error when the container rejects the password
func WrongPasswordError(path string, cause error) *CredentialError {
	return NewCredentialError(KindWrongPassword, path, "incorrect password", cause)
}

// InvalidContainerError returns error when the file is not a usable PKCS#12 container
func InvalidContainerError(path, message string, cause error) *CredentialError {
	return NewCredentialError(KindInvalidContainer, path, message, cause)
}

// UnreadableError returns error when the file cannot be read
func UnreadableError(path string, cause error) *CredentialError {
	return NewCredentialError(KindUnreadable, path, "cannot read file", cause)
}

// TimeoutError returns error when inspection exceeds its deadline
func TimeoutError(path string, cause error) *CredentialError {
	return NewCredentialError(KindTimeout, path, "inspection timed out", cause)
}

// ToolUnavailableError returns error when the external tool is not available
func ToolUnavailableError(tool string) *CredentialError {
	return NewCredentialError(KindToolUnavailable, "", fmt.Sprintf("external tool not available: %s", tool), nil)
}

package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrCredentialRequired is returned when a send is attempted without a stored API key.
	ErrCredentialRequired = errors.New("an API key is required before sending messages")

	// ErrBusy is returned when a send is attempted while another one is still streaming.
	ErrBusy = errors.New("a message is already being processed")

	// ErrNothingToSend is returned when both the message text and the staged files are empty.
	ErrNothingToSend = errors.New("nothing to send: enter a message or attach a file")
)

// ValidationError represents a rejected input
type ValidationError struct {
	Field  string // "name", "content", "credential", "file"
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError represents an operation on a missing record
type NotFoundError struct {
	Kind string // "prefix"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// FileReadError represents a staged file that could not be read or encoded
type FileReadError struct {
	Name string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("failed to read file %s: %v", e.Name, e.Err)
}

func (e *FileReadError) Unwrap() error {
	return e.Err
}

// ServiceError represents a failure reported by or during the model service call
type ServiceError struct {
	Err               error
	InvalidCredential bool
}

func (e *ServiceError) Error() string {
	if e.InvalidCredential {
		return fmt.Sprintf("invalid API key: %v", e.Err)
	}
	return fmt.Sprintf("model service error: %v", e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

package composer

import (
	"errors"
	"fmt"
)

// ErrUploadBusy is returned when an upload attempt is dropped because another
// upload is already in flight
var ErrUploadBusy = errors.New("an upload is already in flight")

// ValidationError blocks submission before any network effect
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UploadError is a transport or server-side rejection of an upload. Message
// holds the backend's human-readable reason when one was provided.
type UploadError struct {
	Message string
}

func (e *UploadError) Error() string {
	if e.Message == "" {
		return "upload failed"
	}
	return "upload failed: " + e.Message
}

// TriggerError is a failure to start parsing; non-fatal to the caller
type TriggerError struct {
	MaterialID string
	Err        error
}

func (e *TriggerError) Error() string {
	return fmt.Sprintf("trigger parse for %s: %v", e.MaterialID, e.Err)
}

func (e *TriggerError) Unwrap() error {
	return e.Err
}

// AssociationError is a per-record failure to bind a material to a project
type AssociationError struct {
	MaterialID string
	Err        error
}

func (e *AssociationError) Error() string {
	return fmt.Sprintf("associate %s: %v", e.MaterialID, e.Err)
}

func (e *AssociationError) Unwrap() error {
	return e.Err
}

// CreationError is a terminal failure of project creation
type CreationError struct {
	Message string
}

func (e *CreationError) Error() string {
	if e.Message == "" {
		return "project creation failed"
	}
	return e.Message
}

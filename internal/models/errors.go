// -----------------------------------------------------------------------
// Error taxonomy - typed errors surfaced across service boundaries
// -----------------------------------------------------------------------

package models

import (
	"errors"
	"fmt"
)

// ErrTaskNotFound is returned when a task lookup misses
var ErrTaskNotFound = errors.New("task not found")

// GeocodeError indicates a reverse-geocoding failure. Recoverable: callers
// fall back to coordinate-only behavior.
type GeocodeError struct {
	Status  string // API status string, e.g. "OVER_QUERY_LIMIT"
	Message string
}

func (e *GeocodeError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("geocoding failed: %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("geocoding failed: %s", e.Status)
}

// PlacesError indicates a places-search or details failure. Recoverable:
// callers degrade to whatever data they already have.
type PlacesError struct {
	Status  string
	Message string
}

func (e *PlacesError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("places request failed: %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("places request failed: %s", e.Status)
}

// ValidationError indicates client input that cannot start a generation run
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UploadError indicates the image upload step failed
type UploadError struct {
	Message string
	Cause   error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("image upload failed: %s", e.Message)
}

func (e *UploadError) Unwrap() error { return e.Cause }

// SubmissionError indicates the generation request was rejected or unreachable
type SubmissionError struct {
	Message string
	Cause   error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("task submission failed: %s", e.Message)
}

func (e *SubmissionError) Unwrap() error { return e.Cause }

// PollTimeoutError indicates the status poll budget was exhausted before the
// task reached a terminal state
type PollTimeoutError struct {
	TaskID   string
	Attempts int
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("task %s did not finish within %d status polls", e.TaskID, e.Attempts)
}

// TaskFailedError carries the server's failure message verbatim
type TaskFailedError struct {
	TaskID  string
	Message string
}

func (e *TaskFailedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("task %s failed", e.TaskID)
	}
	return e.Message
}

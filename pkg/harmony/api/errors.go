package api

import (
	"errors"
	"fmt"
)

const (
	// DefaultErrorMessage is used when a failed response carries no message.
	DefaultErrorMessage = "An error occurred"

	// UnexpectedResponseMessage is used when a successful response does not
	// match the expected shape.
	UnexpectedResponseMessage = "Unexpected response"
)

// Error is a failed API call. Message is suitable for showing to a user.
type Error struct {
	Status  int
	Message string

	// Err is the underlying cause, e.g. the validation error for an
	// unexpected response body.
	Err error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// String includes the status, for logs.
func (e *Error) String() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

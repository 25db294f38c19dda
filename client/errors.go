package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ValidationError is raised before any request is sent.
type ValidationError struct {
	Title   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Title + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(title string, err error) *ValidationError {
	return &ValidationError{Title: title, Message: err.Error(), Err: err}
}

// TransportError means the backend could not be reached or its response
// could not be read.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// BackendError is a request the backend answered but rejected.
type BackendError struct {
	Status  int
	Message string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return e.Message
}

const (
	networkNotification = "Could not reach the server. Check your connection and try again."
	genericNotification = "Something went wrong. Please try again."
)

// Notification turns any error from this package into the one message
// shown to the user.
func Notification(err error) string {
	if err == nil {
		return ""
	}
	var verr *ValidationError
	var berr *BackendError
	var terr *TransportError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.As(err, &berr):
		if berr.Status == http.StatusUnauthorized && berr.Message == "" {
			return "Your session has expired. Please log in again."
		}
		return berr.Error()
	case errors.As(err, &terr), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return networkNotification
	case errors.Is(err, ErrNoSession):
		return "Please log in first."
	}
	return genericNotification
}

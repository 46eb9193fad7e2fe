// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors. Callers detect them with errors.Is or the Is helpers below.
var (
	// ErrNetwork means the Task Service could not be reached.
	ErrNetwork = errors.New("network failure")
	// ErrCancelled means a task was aborted because something newer superseded
	// it. It is an expected outcome and is never shown to the user.
	ErrCancelled = errors.New("cancelled")
)

// ServerError is a non-success response from the Task Service.
type ServerError struct {
	Method     string
	Path       string
	StatusCode int
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: %s %s returned %d", e.Method, e.Path, e.StatusCode)
}

// NetworkError wraps a transport failure so that errors.Is(err, ErrNetwork)
// holds while the cause is still available.
func NetworkError(op string, cause error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrNetwork, cause)
}

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// IsServer reports whether err is a non-success response.
func IsServer(err error) bool {
	var se *ServerError
	return errors.As(err, &se)
}

// IsCancelled reports whether err is the result of cooperative cancellation.
// Context cancellation counts; deadline expiry does not.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Storage errors.
	ErrNotFound    = errors.New("not found")
	ErrPersistence = errors.New("persistence failure")

	// Input errors.
	ErrInvalidRecord = errors.New("invalid record")

	// Workspace errors.
	ErrWorkspaceExists  = errors.New("workspace already exists")
	ErrWorkspaceMissing = errors.New("workspace does not exist")
	ErrWorkspaceLocked  = errors.New("workspace is locked by another writer")
	ErrInvalidConfig    = errors.New("invalid configuration")

	// Learning errors.
	ErrNoTransactions = errors.New("no transactions")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

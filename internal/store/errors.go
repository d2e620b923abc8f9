package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	// This is a generic version of the entity-specific not found errors.
	ErrNotFound = errors.New("entity not found")

	// ErrUpdateFailed is returned when an update operation fails, for example
	// because the entity does not exist or the update violates constraints.
	ErrUpdateFailed = errors.New("update failed")

	// ErrTransactionFailed is returned when a database transaction fails
	// to commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific "not found" errors

	// ErrMealNotFound indicates that the requested meal does not exist in the store.
	ErrMealNotFound = fmt.Errorf("%w: meal", ErrNotFound)

	// ErrPendingMealNotFound indicates that the requested pending meal does not exist.
	ErrPendingMealNotFound = fmt.Errorf("%w: pending meal", ErrNotFound)

	// ErrClarificationNotFound indicates that the requested clarification does not exist.
	ErrClarificationNotFound = fmt.Errorf("%w: clarification", ErrNotFound)

	// ErrReportNotFound indicates that the requested report does not exist in the store.
	ErrReportNotFound = fmt.Errorf("%w: report", ErrNotFound)

	// ErrExportJobNotFound indicates that the requested export job does not exist.
	ErrExportJobNotFound = fmt.Errorf("%w: export job", ErrNotFound)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

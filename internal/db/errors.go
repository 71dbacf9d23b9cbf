package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"
)

// Sentinel errors for database operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotFound indicates the requested episode does not exist.
	ErrNotFound = errors.New("episode not found")

	// ErrUnavailable indicates the store could not serve the query at all
	// (connection lost, namespace missing, permissions).
	ErrUnavailable = errors.New("graph store unavailable")

	// ErrTransactionConflict indicates a SurrealDB transaction conflict.
	ErrTransactionConflict = errors.New("transaction conflict")
)

// wrapQueryError inspects a SurrealDB error and wraps it with the matching
// sentinel. Unknown errors are returned unchanged.
func wrapQueryError(err error) error {
	if err == nil {
		return nil
	}

	var queryErr *surrealdb.QueryError
	if errors.As(err, &queryErr) {
		msg := queryErr.Message
		switch {
		case strings.Contains(msg, "Transaction conflict"):
			return fmt.Errorf("%w: %s", ErrTransactionConflict, msg)
		case strings.Contains(msg, "does not exist"),
			strings.Contains(msg, "Not enough permissions"),
			strings.Contains(msg, "Specify a namespace"),
			strings.Contains(msg, "Specify a database"):
			return fmt.Errorf("%w: %s", ErrUnavailable, msg)
		}
		return err
	}

	// Anything that is not a query-level error came from the transport.
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

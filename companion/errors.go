package companion

import "github.com/pkg/errors"

// Error taxonomy for turn processing.
//
// A persistence failure aborts the turn before generation; the caller sees
// the error. A transient upstream failure never reaches the caller: the user
// gets a fixed fallback reply instead. Classification and sentiment failures
// degrade silently inside their services.
var (
	// ErrPersistence marks relational store failures.
	ErrPersistence = errors.New("persistence failure")

	// ErrUpstream marks generation or network failures.
	ErrUpstream = errors.New("transient upstream failure")
)

// persistenceError keeps ErrPersistence in the chain so callers can test
// with errors.Is while still seeing the underlying cause in the message.
func persistenceError(err error, msg string) error {
	return errors.Wrapf(ErrPersistence, "%s: %v", msg, err)
}

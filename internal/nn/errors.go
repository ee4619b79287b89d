package nn

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every typed error below unwraps to one of them, so callers
// can match the category with errors.Is and the details with errors.As.
var (
	ErrShapeMismatch = errors.New("shape mismatch")
	ErrInvalidCall   = errors.New("invalid call")
	ErrUninitialized = errors.New("uninitialized state")
)

// ShapeError reports a vector whose length does not match the configured size.
type ShapeError struct {
	Op    string // Operation that rejected the vector (e.g., "SetInput")
	Where string // Offending neuron or "network"
	Want  int    // Expected length
	Got   int    // Provided length
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %s: %s: expected length %d, got %d", e.Op, e.Where, ErrShapeMismatch, e.Want, e.Got)
}

// Unwrap returns ErrShapeMismatch.
func (e *ShapeError) Unwrap() error {
	return ErrShapeMismatch
}

// InvalidCallError reports a call whose arguments violate the method contract.
type InvalidCallError struct {
	Op     string
	Where  string
	Reason string
}

// Error implements the error interface.
func (e *InvalidCallError) Error() string {
	return fmt.Sprintf("%s: %s: %s: %s", e.Op, e.Where, ErrInvalidCall, e.Reason)
}

// Unwrap returns ErrInvalidCall.
func (e *InvalidCallError) Unwrap() error {
	return ErrInvalidCall
}

// StateError reports a read of a cache that was not computed for the current
// example, or an operation issued out of the forward/error/update order.
type StateError struct {
	Op     string
	Where  string
	Reason string
}

// Error implements the error interface.
func (e *StateError) Error() string {
	return fmt.Sprintf("%s: %s: %s: %s", e.Op, e.Where, ErrUninitialized, e.Reason)
}

// Unwrap returns ErrUninitialized.
func (e *StateError) Unwrap() error {
	return ErrUninitialized
}

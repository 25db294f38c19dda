package inventory

import (
	"errors"
	"fmt"
)

var (
	ErrNameRequired        = errors.New("material name is required")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrRemainingOutOfRange = errors.New("remaining quantity out of range")
	ErrReturnOutOfRange    = errors.New("return quantity out of range")
	ErrConservation        = errors.New("material conservation violated")
)

// AllocationError describes a rejected allocation.
type AllocationError struct {
	Material  string
	Requested int
	Available int
	Err       error
}

func (e *AllocationError) Error() string {
	if errors.Is(e.Err, ErrInvalidQuantity) {
		return fmt.Sprintf("invalid quantity %d for %q: enter a value between 1 and %d",
			e.Requested, e.Material, e.Available)
	}
	return fmt.Sprintf("not enough %q: requested %d, only %d available",
		e.Material, e.Requested, e.Available)
}

func (e *AllocationError) Unwrap() error {
	return e.Err
}

// UsageError describes a rejected usage report or return.
type UsageError struct {
	Material string
	Reported int
	Assigned int
	Err      error
}

func (e *UsageError) Error() string {
	if errors.Is(e.Err, ErrReturnOutOfRange) {
		return fmt.Sprintf("cannot return %d of %q: task holds %d", e.Reported, e.Material, e.Assigned)
	}
	return fmt.Sprintf("remaining quantity %d for %q must be between 0 and %d",
		e.Reported, e.Material, e.Assigned)
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

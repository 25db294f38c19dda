// Package inventory holds the material conservation rules shared by the API
// server and the API client.
//
// A unit of material is either available at project level or held by exactly
// one task allocation. For every material:
//
//	Available + sum(allocation.Remaining) == Total
//	0 <= Available <= Total
//	0 <= allocation.Remaining <= allocation.Assigned
//
// Every operation validates first and mutates only on success, so a rejected
// call leaves its arguments untouched.
package inventory

import (
	"fmt"
	"strings"
)

// Material is the project-level stock of one material.
type Material struct {
	Name      string
	Total     int
	Available int
}

// Allocated returns the quantity currently held by tasks.
func (m Material) Allocated() int {
	return m.Total - m.Available
}

// Valid reports whether 0 <= Available <= Total.
func (m Material) Valid() bool {
	return m.Available >= 0 && m.Available <= m.Total
}

// Allocation is the binding of a quantity of a material to a task.
type Allocation struct {
	Assigned  int
	Remaining int
}

// Used is derived, never stored.
func (a Allocation) Used() int {
	return a.Assigned - a.Remaining
}

// Valid reports whether 0 <= Remaining <= Assigned.
func (a Allocation) Valid() bool {
	return a.Remaining >= 0 && a.Remaining <= a.Assigned
}

// NewMaterial creates project stock with everything available.
func NewMaterial(name string, total int) (Material, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Material{}, ErrNameRequired
	}
	if total < 0 {
		return Material{}, fmt.Errorf("%w: total quantity of %q must not be negative, got %d", ErrInvalidQuantity, name, total)
	}
	return Material{Name: name, Total: total, Available: total}, nil
}

// ValidateAllocation checks 0 < requested <= m.Available.
func ValidateAllocation(m Material, requested int) error {
	if requested <= 0 {
		return &AllocationError{Material: m.Name, Requested: requested, Available: m.Available, Err: ErrInvalidQuantity}
	}
	if requested > m.Available {
		return &AllocationError{Material: m.Name, Requested: requested, Available: m.Available, Err: ErrInsufficientStock}
	}
	return nil
}

// Allocate moves q units from project availability to a task. A nil
// allocation means the task holds none of this material yet; the returned
// allocation is then a fresh one with Assigned == Remaining == q.
func Allocate(m *Material, a *Allocation, q int) (*Allocation, error) {
	if err := ValidateAllocation(*m, q); err != nil {
		return nil, err
	}
	if a == nil {
		a = &Allocation{}
	}
	m.Available -= q
	a.Assigned += q
	a.Remaining += q
	return a, nil
}

// ReportRemaining records that r units of the allocation are still held by
// the task. The difference to the previous remaining quantity goes back to
// (or, when r grows, comes out of) project availability. It returns the
// quantity returned to the project, which is negative when stock was drawn.
func ReportRemaining(m *Material, a *Allocation, r int) (int, error) {
	if r < 0 || r > a.Assigned {
		return 0, &UsageError{Material: m.Name, Reported: r, Assigned: a.Assigned, Err: ErrRemainingOutOfRange}
	}
	returned := a.Remaining - r
	if m.Available+returned < 0 {
		return 0, &AllocationError{Material: m.Name, Requested: -returned, Available: m.Available, Err: ErrInsufficientStock}
	}
	if m.Available+returned > m.Total {
		return 0, fmt.Errorf("%w: returning %d units of %q would exceed total %d", ErrConservation, returned, m.Name, m.Total)
	}
	m.Available += returned
	a.Remaining = r
	return returned, nil
}

// UseCompletely marks every remaining unit of the allocation as consumed.
func UseCompletely(m *Material, a *Allocation) (int, error) {
	return ReportRemaining(m, a, 0)
}

// Return hands q units held by the task back to the project.
func Return(m *Material, a *Allocation, q int) error {
	if q <= 0 || q > a.Remaining {
		return &UsageError{Material: m.Name, Reported: q, Assigned: a.Remaining, Err: ErrReturnOutOfRange}
	}
	_, err := ReportRemaining(m, a, a.Remaining-q)
	return err
}

// IncreaseStock adds newly delivered units.
func IncreaseStock(m *Material, by int) error {
	if by <= 0 {
		return fmt.Errorf("%w: increase of %q must be positive, got %d", ErrInvalidQuantity, m.Name, by)
	}
	m.Total += by
	m.Available += by
	return nil
}

// SetTotal changes the total quantity while keeping what tasks hold. The new
// total may not drop below the allocated quantity.
func SetTotal(m *Material, total int) error {
	allocated := m.Allocated()
	if total < allocated {
		return fmt.Errorf("%w: %q has %d units allocated to tasks, total cannot be set to %d",
			ErrInsufficientStock, m.Name, allocated, total)
	}
	m.Total = total
	m.Available = total - allocated
	return nil
}

package services

import (
	"errors"
	"fmt"
)

var (
	// ErrUnitUnavailable means the unit's ledger status blocks a reservation.
	ErrUnitUnavailable = errors.New("unit is not available")

	// ErrGatewayUnavailable wraps collection-initiation failures caused by the
	// payment gateway. The payment stays pending and the caller may retry.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// InvalidTransitionError rejects a lifecycle operation attempted outside its
// allowed source state. The record is left unchanged.
type InvalidTransitionError struct {
	Entity string
	From   string
	Action string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s %s in status %q", e.Action, e.Entity, e.From)
}

// ValidationError rejects malformed input before any state is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

package motor

import (
	"errors"
	"fmt"
)

//ErrSelfConflict step and direction assigned to the same line
var ErrSelfConflict = errors.New("step and direction pins cannot be the same")

//ConflictError a proposed pin is already owned by another motor
type ConflictError struct {
	Motor string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("pin conflict with %s, choose different pins", e.Motor)
}

//UnknownMotorError the named motor is not configured
type UnknownMotorError struct {
	Motor string
}

func (e *UnknownMotorError) Error() string {
	return fmt.Sprintf("invalid motor: %s", e.Motor)
}

//PinRangeError a pin outside the board's BCM domain
type PinRangeError struct {
	Pin int
}

func (e *PinRangeError) Error() string {
	return fmt.Sprintf("pin %d is outside the valid GPIO range", e.Pin)
}

//InvalidDelayError a non-positive step delay
type InvalidDelayError struct{}

func (e *InvalidDelayError) Error() string {
	return "step delay must be positive"
}

//IsInputError whether err rejects the request rather than reporting a
//runtime hardware failure
func IsInputError(err error) bool {
	var unknown *UnknownMotorError
	var rng *PinRangeError
	var delay *InvalidDelayError
	return errors.As(err, &unknown) || errors.As(err, &rng) || errors.As(err, &delay)
}

//IsConflictError whether err is a pin allocation conflict
func IsConflictError(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict) || errors.Is(err, ErrSelfConflict)
}

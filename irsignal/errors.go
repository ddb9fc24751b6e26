package irsignal

import (
	"errors"
	"fmt"
)

var (
	ErrOddLength        = errors.New("odd sequence length")
	ErrNegativeDuration = errors.New("duration must be a finite non-negative number")
	ErrMisplacedSign    = errors.New("sign does not match mark/space position")
	ErrInvalidFrequency = errors.New("frequency must be a positive number")
	ErrInvalidDutyCycle = errors.New("duty cycle must be in (0,1]")
	ErrKindMismatch     = errors.New("operation does not apply to this signal kind")
)

// OddLengthError reports a duration list that cannot be split into
// mark/space pairs.
type OddLengthError struct {
	Length int
}

func (e *OddLengthError) Error() string {
	return fmt.Sprintf("odd sequence length: %d durations", e.Length)
}

func (e *OddLengthError) Is(target error) bool { return target == ErrOddLength }

// DurationError reports a single unusable duration token.
type DurationError struct {
	Index int
	Token string
	Err   error
}

func (e *DurationError) Error() string {
	return fmt.Sprintf("invalid duration %q at position %d: %v", e.Token, e.Index, e.Err)
}

func (e *DurationError) Unwrap() error { return e.Err }

package parser

import (
	"errors"
	"fmt"
)

// Reason classifies why a telemetry string failed to decode.
type Reason int

const (
	// MalformedToken means a value token is too short to hold a number and its suffix,
	// or its suffix is shorter than the layout expects.
	MalformedToken Reason = iota + 1
	// TokenCountMismatch means the string has fewer tokens than the pose layout needs.
	TokenCountMismatch
	// NonNumericValue means a value token, once its suffix is stripped, is not a decimal number.
	NonNumericValue
)

// Sentinel errors matching each Reason with errors.Is.
var (
	ErrMalformedToken     = errors.New("malformed token")
	ErrTokenCountMismatch = errors.New("token count mismatch")
	ErrNonNumericValue    = errors.New("non-numeric value")
)

func (r Reason) String() string {
	switch r {
	case MalformedToken:
		return "MalformedToken"
	case TokenCountMismatch:
		return "TokenCountMismatch"
	case NonNumericValue:
		return "NonNumericValue"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

func (r Reason) sentinel() error {
	switch r {
	case MalformedToken:
		return ErrMalformedToken
	case TokenCountMismatch:
		return ErrTokenCountMismatch
	case NonNumericValue:
		return ErrNonNumericValue
	default:
		return nil
	}
}

// DecodeError is returned when a telemetry string does not match the pose layout.
type DecodeError struct {
	Reason Reason
	Field  string // "x", "y" or "heading"; empty for TokenCountMismatch
	Token  string
	Err    error // underlying conversion error, if any
}

func (e *DecodeError) Error() string {
	msg := "decode pose: " + e.Reason.String()
	if s := e.Reason.sentinel(); s != nil {
		msg = "decode pose: " + s.Error()
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" in %s token %q", e.Field, e.Token)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the reason sentinel and the conversion error.
func (e *DecodeError) Unwrap() []error {
	var errs []error
	if s := e.Reason.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

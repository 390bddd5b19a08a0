// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 IQS Group

package monopack

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedFrame is returned when a telegram is not exactly
	// FrameSize bytes long.
	ErrMalformedFrame = errors.New("malformed telegram frame")

	// ErrTimeout is returned when a unit does not answer within the
	// transport deadline.
	ErrTimeout = errors.New("bus timeout")

	// ErrBusClosed is returned when using a transport after Close.
	ErrBusClosed = errors.New("bus closed")
)

// RangeError reports a parameter outside its documented legal range.
// It is returned before anything is written to the bus, so a failing
// call never leaves a partial write behind.
type RangeError struct {
	Param string
	Value int64
	Min   int64
	Max   int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s value %d out of range %d..%d", e.Param, e.Value, e.Min, e.Max)
}

// rangeErr is a shorthand used by the Axis command methods.
func rangeErr(param string, value, min, max int64) error {
	return &RangeError{Param: param, Value: value, Min: min, Max: max}
}

// checkRange validates value against [min, max].
func checkRange(param string, value, min, max int64) error {
	if value < min || value > max {
		return rangeErr(param, value, min, max)
	}
	return nil
}

// MismatchError reports an answer whose echoed command byte does not
// match the request. Responses are correlated by arrival order only, so
// a mismatch means the bus is out of sync.
type MismatchError struct {
	Want byte
	Got  byte
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("answer command mismatch: sent 0x%02X, got 0x%02X", e.Want, e.Got)
}

// TransportError wraps a failure of the underlying bus transport.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

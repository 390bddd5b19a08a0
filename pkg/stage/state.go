// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 IQS Group

// Package stage implements the dual-axis lifecycle controller for an XY
// stage built from two Monopack driver units.
//
// The Controller is the only stateful component in the system: it owns
// the bus transport, sequences initialization and reference searches,
// clips move targets to the stage travel limits and polls the axes for
// completion. The per-axis drivers in pkg/monopack stay stateless.
package stage

import (
	"errors"
	"fmt"
)

// State is the controller lifecycle state.
type State int

const (
	Disconnected State = iota
	Connected
	Referencing
	Ready
	Moving
	Faulted
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Referencing:
		return "referencing"
	case Ready:
		return "ready"
	case Moving:
		return "moving"
	case Faulted:
		return "faulted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// AxisID names one of the two stage axes.
type AxisID string

const (
	AxisX AxisID = "X"
	AxisY AxisID = "Y"
)

// BothAxes is the default axis selection for referencing and homing.
var BothAxes = []AxisID{AxisX, AxisY}

// Limits is a soft travel boundary in mm, enforced in software
// independent of any hardware end stop.
type Limits struct {
	Min float64
	Max float64
}

// Clamp clips v into the limit interval.
func (l Limits) Clamp(v float64) float64 {
	if v < l.Min {
		return l.Min
	}
	if v > l.Max {
		return l.Max
	}
	return v
}

var (
	// ErrNotReferenced is returned by motion operations before a
	// successful reference search.
	ErrNotReferenced = errors.New("stage is not referenced")

	// ErrDisabled is returned by motion operations while the stage is
	// disabled.
	ErrDisabled = errors.New("stage is disabled")

	// ErrAwaitTimeout is returned when an axis does not come to rest
	// within the readiness polling budget.
	ErrAwaitTimeout = errors.New("axis readiness poll timed out")

	// ErrUnknownAxis is returned for an axis selector other than X or Y.
	ErrUnknownAxis = errors.New("unknown axis")
)

// StateError reports an operation attempted in a state that does not
// permit it. The operation never reaches the bus.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s not permitted while %s", e.Op, e.State)
}

// ConnectionError reports a failed connect sequence. The controller
// stays Disconnected; no error escapes the Connect boundary unwrapped.
type ConnectionError struct {
	Axis AxisID
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect axis %s: %v", e.Axis, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

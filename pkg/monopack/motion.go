// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 IQS Group

package monopack

// Motion and readback commands (manual s. 4.3.5-4.3.11, 4.4.3, 4.4.7,
// 4.5.3).

// ActualPosition reads the actual ramp position of the motor in
// microsteps (manual s. 4.3.5). The answer carries a signed 24-bit
// value in P1..P4.
func (a *Axis) ActualPosition() (int32, error) {
	ans, err := a.exchange(NewTelegram(a.addr, CmdGetPosition))
	if err != nil {
		return 0, err
	}
	return ans.int32At(1), nil
}

// MotionStatus is the answer to the $21 query. Velocity and
// acceleration are signed 12-bit raw values and are invalid while a
// reference search or automatic position correction is active.
type MotionStatus struct {
	Velocity        int16
	Acceleration    int16
	RefSearchActive bool
	AutoCorrection  bool
}

// Stopped reports whether the motor is standing still with no
// reference search in flight. A single true reading can be a transient
// (direction reversal passes through zero velocity); callers that need
// a settled motor must confirm over consecutive polls.
func (s MotionStatus) Stopped() bool {
	return s.Velocity == 0 && !s.RefSearchActive
}

// MotionStatus reads the actual velocity and acceleration plus the
// reference-search and auto-correction flags (manual s. 4.3.6). The
// answer carries velocity in P1,P2, acceleration in P3,P4 and the two
// flags in P5 and P6.
func (a *Axis) MotionStatus() (MotionStatus, error) {
	ans, err := a.exchange(NewTelegram(a.addr, CmdGetMotionStatus))
	if err != nil {
		return MotionStatus{}, err
	}
	return MotionStatus{
		Velocity:        ans.int12At(1),
		Acceleration:    ans.int12At(3),
		RefSearchActive: ans.P(5) != 0,
		AutoCorrection:  ans.P(6) != 0,
	}, nil
}

// DriveRamp drives an S-shaped ramp to the given absolute position in
// microsteps (manual s. 4.3.7), using the configured maximum
// acceleration, maximum velocity and bow. A ramp issued while another
// ramp is active is queued by the device; a ramp issued during a
// reference search silently aborts the search, which is why the stage
// controller serializes referencing and motion.
func (a *Axis) DriveRamp(store byte, position int) error {
	if err := checkStore(store); err != nil {
		return err
	}
	if err := checkRange("position", int64(position), MinPosition, MaxPosition); err != nil {
		return err
	}
	t := NewTelegram(a.addr, CmdDriveRamp, store)
	t.putInt32(1, int32(position))
	return a.send(t)
}

// ConstantRotation rotates the motor at the given constant velocity
// (manual s. 4.3.8). Sign selects direction; the maximum acceleration
// setting shapes the speed change.
func (a *Axis) ConstantRotation(velocity int) error {
	if err := checkRange("velocity", int64(velocity), -MaxRampValue, MaxRampValue); err != nil {
		return err
	}
	t := NewTelegram(a.addr, CmdConstantRot, 0)
	t.putInt16(1, int16(velocity))
	return a.send(t)
}

// ResetPosition zeroes the position counter and the encoder counter
// (manual s. 4.3.9). The PID follow mode must be off first (PID6F).
func (a *Axis) ResetPosition() error {
	return a.send(NewTelegram(a.addr, CmdResetPosition))
}

// SoftStop terminates a ramp and decelerates the motor using the
// maximum acceleration parameter (manual s. 4.3.10).
func (a *Axis) SoftStop() error {
	return a.send(NewTelegram(a.addr, CmdSoftStop))
}

// EmergencyStop stops the motor immediately, equivalent to raising the
// external alarm input (manual s. 4.3.11).
func (a *Axis) EmergencyStop() error {
	return a.send(NewTelegram(a.addr, CmdEmergencyStop))
}

// ReferenceSearch starts a reference search (manual s. 4.4.3). The
// search runs in the background; poll MotionStatus until the
// RefSearchActive flag clears. Any driving command given while the
// search is active aborts it.
func (a *Axis) ReferenceSearch() error {
	return a.send(NewTelegram(a.addr, CmdRefSearch))
}

// SwitchStates is the answer to the $30 query.
type SwitchStates struct {
	StopLeft  bool
	StopRight bool
	Reference bool
}

// SwitchStates reads the actual state of the stop and reference switch
// inputs (manual s. 4.4.7).
func (a *Axis) SwitchStates() (SwitchStates, error) {
	ans, err := a.exchange(NewTelegram(a.addr, CmdGetSwitchStates))
	if err != nil {
		return SwitchStates{}, err
	}
	return SwitchStates{
		StopLeft:  ans.P(1) != 0,
		StopRight: ans.P(2) != 0,
		Reference: ans.P(3) != 0,
	}, nil
}

// EncoderCounter reads the incremental encoder counter register
// (manual s. 4.5.3). The 24-bit value in P1..P3 reads back as an
// unsigned magnitude; with WithSignedEncoder it is sign-extended
// instead.
func (a *Axis) EncoderCounter() (int32, error) {
	ans, err := a.exchange(NewTelegram(a.addr, CmdEncoderCounter))
	if err != nil {
		return 0, err
	}
	if a.signedEncoder {
		return ans.int24At(1), nil
	}
	return int32(ans.uint24At(1)), nil
}

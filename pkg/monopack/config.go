// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 IQS Group

package monopack

// Motor parameter and switch/encoder configuration commands
// (manual s. 4.2, 4.3.1-4.3.4, 4.4, 4.5).

// SetCurrentLimit sets the absolute maximum motor current selector
// (manual s. 4.2.1): 0 = MC0/MC1 inputs, 1..3 = fixed current steps
// whose amperage depends on DIP switch 8.
func (a *Axis) SetCurrentLimit(store byte, selector byte) error {
	if err := checkStore(store); err != nil {
		return err
	}
	if err := checkRange("current limit selector", int64(selector), 0, 3); err != nil {
		return err
	}
	return a.send(NewTelegram(a.addr, CmdCurrentLimit, store, selector))
}

// CurrentControl holds the three motor current phases, each 0..255
// where 255 means 100% of the absolute maximum current.
type CurrentControl struct {
	Standby      byte // motor standing still
	Active       byte // constant velocity
	Acceleration byte // acceleration phase
}

// SetCurrentControl sets up the phase current control
// (manual s. 4.2.2). All byte values are legal, so no range check
// beyond the storage byte applies.
func (a *Axis) SetCurrentControl(store byte, cc CurrentControl) error {
	if err := checkStore(store); err != nil {
		return err
	}
	return a.send(NewTelegram(a.addr, CmdCurrentControl, store, cc.Standby, cc.Active, cc.Acceleration))
}

// CurrentControlSettings reads back the stored current control values
// (manual s. 4.2.3).
func (a *Axis) CurrentControlSettings() (CurrentControl, error) {
	ans, err := a.exchange(NewTelegram(a.addr, CmdGetCurrentCtrl))
	if err != nil {
		return CurrentControl{}, err
	}
	return CurrentControl{
		Standby:      ans.P(1),
		Active:       ans.P(2),
		Acceleration: ans.P(3),
	}, nil
}

// SetFrequencyRange sets the pre-divider f for all ramp operations
// (manual s. 4.2.4): Fstep = Fclk*v / 2^(15+f).
func (a *Axis) SetFrequencyRange(store byte, predivider byte) error {
	if err := checkStore(store); err != nil {
		return err
	}
	if err := checkRange("predivider", int64(predivider), 0, MaxPredivider); err != nil {
		return err
	}
	return a.send(NewTelegram(a.addr, CmdFrequencyRange, store, predivider))
}

// SetMicrostepResolution sets the microstep resolution, waveform and
// mixed decay (manual s. 4.2.5). Resolution is 1..64 or one of the
// fixed high resolutions 65..67; waveform is a signed byte where -127
// is triangular, 0 sine and +127 trapezoid, and only applies for
// resolutions 1..64.
func (a *Axis) SetMicrostepResolution(store byte, resolution byte, waveform int8, mixedDecay bool) error {
	if err := checkStore(store); err != nil {
		return err
	}
	if err := checkRange("microstep resolution", int64(resolution), 1, MaxMicrostepRes); err != nil {
		return err
	}
	switch waveform {
	case -127, 0, 127:
	default:
		return rangeErr("waveform", int64(waveform), -127, 127)
	}
	t := NewTelegram(a.addr, CmdMicrostepResolution, store, resolution, byte(waveform))
	t.Params[5] = boolByte(mixedDecay)
	return a.send(t)
}

// SetVelocity sets the maximum acceleration and maximum velocity ramp
// parameters in raw units (manual s. 4.3.2). Both are 1..8191.
func (a *Axis) SetVelocity(store byte, velocity, acceleration int) error {
	if err := checkStore(store); err != nil {
		return err
	}
	if err := checkRange("velocity", int64(velocity), MinRampValue, MaxRampValue); err != nil {
		return err
	}
	if err := checkRange("acceleration", int64(acceleration), MinRampValue, MaxRampValue); err != nil {
		return err
	}
	t := NewTelegram(a.addr, CmdVelocity, store)
	t.putInt16(1, int16(acceleration))
	t.putInt16(3, int16(velocity))
	return a.send(t)
}

// SetBowValue sets the bow parameter used by S-shaped ramps
// (manual s. 4.3.3). Must not be zero: a high bow speeds positioning,
// a low bow smoothens the ramp.
func (a *Axis) SetBowValue(store byte, bow int) error {
	if err := checkStore(store); err != nil {
		return err
	}
	if err := checkRange("bow", int64(bow), MinRampValue, MaxRampValue); err != nil {
		return err
	}
	t := NewTelegram(a.addr, CmdBowValue, store)
	t.putUint16(1, uint16(bow))
	return a.send(t)
}

// RampSettings is the answer to the $52 settings query.
type RampSettings struct {
	MaxAcceleration   int16
	RefSearchVelocity int16
	MaxVelocity       int16
}

// StoredRampSettings reads the acceleration and velocity settings from
// the EEPROM (manual s. 4.3.4). The answer carries them in P1..P6.
func (a *Axis) StoredRampSettings() (RampSettings, error) {
	ans, err := a.exchange(NewTelegram(a.addr, CmdGetRampSettings))
	if err != nil {
		return RampSettings{}, err
	}
	return RampSettings{
		MaxAcceleration:   ans.int16At(1),
		RefSearchVelocity: ans.int16At(3),
		MaxVelocity:       ans.int16At(5),
	}, nil
}

// SwitchMode configures the stop and reference switch behavior
// (manual s. 4.4.1).
type SwitchMode struct {
	StopIsReference bool // stop switch doubles as reference switch
	CalibrateRight  bool // use the right stop switch for calibration
	Linear          bool // linear movement (false = circular)
	TravelCheck     bool // reference switch also checks travel
}

// SetSwitchMode applies a switch mode configuration.
func (a *Axis) SetSwitchMode(store byte, m SwitchMode) error {
	if err := checkStore(store); err != nil {
		return err
	}
	t := NewTelegram(a.addr, CmdSwitchMode, store, 0,
		boolByte(m.StopIsReference), boolByte(m.CalibrateRight), boolByte(m.Linear))
	t.Params[6] = boolByte(m.TravelCheck)
	return a.send(t)
}

// SetStopDeceleration sets the deceleration used when a stop switch is
// reached (manual s. 4.4.2). Zero selects a hard stop.
func (a *Axis) SetStopDeceleration(store byte, deceleration int) error {
	if err := checkStore(store); err != nil {
		return err
	}
	if err := checkRange("deceleration", int64(deceleration), 0, MaxRampValue); err != nil {
		return err
	}
	t := NewTelegram(a.addr, CmdStopDeceleration, store)
	t.putInt16(1, int16(deceleration))
	return a.send(t)
}

// SetReferenceSearchVelocity sets the velocity used for reference
// searches (manual s. 4.4.4). Sign selects the search direction.
func (a *Axis) SetReferenceSearchVelocity(store byte, velocity int) error {
	if err := checkStore(store); err != nil {
		return err
	}
	if err := checkRange("reference search velocity", int64(velocity), -MaxRampValue, MaxRampValue); err != nil {
		return err
	}
	t := NewTelegram(a.addr, CmdRefSearchVelocity, store)
	t.putInt16(1, int16(velocity))
	return a.send(t)
}

// SetTravelCheckTolerance sets the tolerance of the travel check
// (manual s. 4.4.5).
func (a *Axis) SetTravelCheckTolerance(store byte, tolerance byte) error {
	if err := checkStore(store); err != nil {
		return err
	}
	return a.send(NewTelegram(a.addr, CmdTravelCheckTol, store, tolerance))
}

// SetMicrostepsPerRevolution sets the microsteps per revolution used
// for travel checking in circular mode (manual s. 4.4.6).
func (a *Axis) SetMicrostepsPerRevolution(store byte, microsteps int) error {
	if err := checkStore(store); err != nil {
		return err
	}
	if err := checkRange("microsteps per revolution", int64(microsteps), 0, MaxPosition); err != nil {
		return err
	}
	t := NewTelegram(a.addr, CmdMicrostepsPerRev, store)
	t.putInt32(1, int32(microsteps))
	return a.send(t)
}

// EncoderConfig configures the incremental encoder input
// (manual s. 4.5.2).
type EncoderConfig struct {
	Flags      byte   // configuration bits, see manual s. 4.5.2 (bit 7 unused)
	Predivider byte   // encoder pre-divider
	Deviation  uint16 // max deviation between ramp and encoder counter, 0..2047
	Multiplier byte   // encoder multiplier
}

// ConfigureEncoder applies an encoder configuration.
func (a *Axis) ConfigureEncoder(store byte, cfg EncoderConfig) error {
	if err := checkStore(store); err != nil {
		return err
	}
	if err := checkRange("encoder flags", int64(cfg.Flags), 0, 127); err != nil {
		return err
	}
	if err := checkRange("deviation", int64(cfg.Deviation), 0, MaxDeviation); err != nil {
		return err
	}
	t := NewTelegram(a.addr, CmdEncoderConfig, store, cfg.Flags, cfg.Predivider)
	t.putUint16(3, cfg.Deviation)
	t.Params[5] = cfg.Multiplier
	return a.send(t)
}

// SetDeviationAlarm enables or disables the deviation alarm
// (manual s. 4.5.5). stopMode: 0 = keep running, 1 = soft stop,
// 2 = hard stop. correctionAfter schedules automatic position
// correction n/200 s after a deviation, 0 disables it.
func (a *Axis) SetDeviationAlarm(store byte, enabled bool, stopMode byte, correctionAfter uint16) error {
	if err := checkStore(store); err != nil {
		return err
	}
	if err := checkRange("stop mode", int64(stopMode), 0, 2); err != nil {
		return err
	}
	t := NewTelegram(a.addr, CmdDeviationAlarm, store, boolByte(enabled), stopMode)
	t.putUint16(3, correctionAfter)
	return a.send(t)
}

// ConfigureAutoCorrection configures automatic position correction at
// ramp end (manual s. 4.5.6). retries 0 turns the correction off;
// tolerance is the end position window in microsteps.
func (a *Axis) ConfigureAutoCorrection(store byte, retries byte, tolerance uint16) error {
	if err := checkStore(store); err != nil {
		return err
	}
	t := NewTelegram(a.addr, CmdAutoCorrection, store, retries)
	t.putUint16(3, tolerance)
	return a.send(t)
}

// PID register passthroughs (manual s. 4.5.7). These write TMC453 PID
// configuration registers verbatim; see the TMC453 manual for register
// semantics. PID6F with p1=0 switches the PID follow mode off, which is
// required before resetting the position counter.

func (a *Axis) PID6A(store byte, p1, p2, p3, p4 byte) error {
	return a.send(NewTelegram(a.addr, CmdPID6A, store, p1, p2, p3, p4))
}

func (a *Axis) PID6B(store byte, p1, p2, p3, p4, p5, p6 byte) error {
	return a.send(NewTelegram(a.addr, CmdPID6B, store, p1, p2, p3, p4, p5, p6))
}

func (a *Axis) PID6C(store byte, p1, p2, p3 byte) error {
	return a.send(NewTelegram(a.addr, CmdPID6C, store, p1, p2, p3))
}

func (a *Axis) PID6D(store byte, p1, p2, p3, p4 byte) error {
	return a.send(NewTelegram(a.addr, CmdPID6D, store, p1, p2, p3, p4))
}

func (a *Axis) PID6F(store byte, p1 byte) error {
	return a.send(NewTelegram(a.addr, CmdPID6F, store, p1))
}

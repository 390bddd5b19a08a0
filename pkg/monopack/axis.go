// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 IQS Group

package monopack

// Axis is a typed driver for one Monopack unit on the bus. It holds a
// non-owning reference to the shared Transport plus the unit's device
// address; it keeps no other state and never mutates controller-level
// state.
//
// Every "set" method validates its parameters against the documented
// legal range before anything touches the bus, so a failing call is
// never partially applied. Every "get" method enforces the command-byte
// echo check on the answer.
type Axis struct {
	bus           Transport
	addr          byte
	conv          Converter
	signedEncoder bool
}

// AxisOption configures an Axis.
type AxisOption func(*Axis)

// WithConverter sets the unit converter for this axis.
func WithConverter(c Converter) AxisOption {
	return func(a *Axis) { a.conv = c }
}

// WithSignedEncoder makes EncoderCounter sign-extend the 24-bit counter
// value. The manual documents the counter as signed but the wire value
// reads back as an unsigned magnitude; which interpretation applies
// depends on the encoder wiring, so it is an explicit option rather
// than a guess.
func WithSignedEncoder() AxisOption {
	return func(a *Axis) { a.signedEncoder = true }
}

// NewAxis creates a driver for the unit at the given device address.
func NewAxis(bus Transport, addr byte, opts ...AxisOption) *Axis {
	a := &Axis{bus: bus, addr: addr, conv: DefaultConverter()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Address returns the unit's device address.
func (a *Axis) Address() byte { return a.addr }

// Converter returns the unit converter bound to this axis.
func (a *Axis) Converter() Converter { return a.conv }

// send transmits a command with no defined answer.
func (a *Axis) send(t Telegram) error {
	t.Address = a.addr
	return a.bus.Send(t.Encode())
}

// exchange transmits a command and decodes its answer, enforcing the
// echo check.
func (a *Axis) exchange(t Telegram) (Telegram, error) {
	t.Address = a.addr
	resp, err := a.bus.Exchange(t.Encode())
	if err != nil {
		return Telegram{}, err
	}
	ans, err := Decode(resp[:])
	if err != nil {
		return Telegram{}, err
	}
	if ans.Command != t.Command {
		return Telegram{}, &MismatchError{Want: t.Command, Got: ans.Command}
	}
	return ans, nil
}

// checkStore validates a parameter storage control byte.
func checkStore(store byte) error {
	return checkRange("storage control", int64(store), StorePersist, StoreReadLive)
}

// VersionInfo is the answer to the $43 version query.
type VersionInfo struct {
	Firmware    float64 // firmware revision, e.g. 2.03
	ResetFlag   bool    // a reset occurred since the last $43
	Temperature float64 // device temperature, raw/10 (unit undocumented)
}

// Version queries the firmware version number, reset flag and device
// temperature (manual s. 4.7.5). The firmware byte in P0 encodes
// V<x.yz> as the decimal 100*x+10*y+z; the temperature in P3,P4 is
// raw/10.
func (a *Axis) Version() (VersionInfo, error) {
	ans, err := a.exchange(NewTelegram(a.addr, CmdGetVersion))
	if err != nil {
		return VersionInfo{}, err
	}
	return VersionInfo{
		Firmware:    float64(ans.P(0)) / 100,
		ResetFlag:   ans.P(1) != 0,
		Temperature: float64(ans.int16At(3)) / 10,
	}, nil
}

// AlarmFlags is the answer to the $74 alarm reset.
type AlarmFlags struct {
	DriverError      bool // short circuit, overload, ...
	DeviationError   bool // encoder deviation exceeded
	ExternalAlarm    bool // alarm input was set high
	TravelCheckError bool // travel check out of tolerance
	CorrectionError  bool // position correction retries exhausted
}

// Any reports whether any alarm reason is set.
func (f AlarmFlags) Any() bool {
	return f.DriverError || f.DeviationError || f.ExternalAlarm ||
		f.TravelCheckError || f.CorrectionError
}

// ResetAlarm resets the alarm output and returns the alarm reason
// (manual s. 4.6.2).
func (a *Axis) ResetAlarm() (AlarmFlags, error) {
	ans, err := a.exchange(NewTelegram(a.addr, CmdResetAlarm))
	if err != nil {
		return AlarmFlags{}, err
	}
	return AlarmFlags{
		DriverError:      ans.P(1) != 0,
		DeviationError:   ans.P(2) != 0,
		ExternalAlarm:    ans.P(3) != 0,
		TravelCheckError: ans.P(4) != 0,
		CorrectionError:  ans.P(5) != 0,
	}, nil
}

// SetAlarmMode selects whether the motor is powered off on an external
// alarm and on a driver error (manual s. 4.6.1).
func (a *Axis) SetAlarmMode(store byte, powerOffOnAlarm, powerOffOnDriverError bool) error {
	if err := checkStore(store); err != nil {
		return err
	}
	return a.send(NewTelegram(a.addr, CmdAlarmMode, store, boolByte(powerOffOnAlarm), boolByte(powerOffOnDriverError)))
}

// EnterStepDirectionMode switches the unit between step/direction mode
// and command mode (manual s. 4.7.1).
func (a *Axis) EnterStepDirectionMode(commandMode bool) error {
	return a.send(NewTelegram(a.addr, CmdStepDirMode, 0, boolByte(commandMode)))
}

// SetBusReceiveID sets the CAN receive identifier and RS-485 address
// (manual s. 4.7.2). Only the low 11 bits are used by the device.
func (a *Axis) SetBusReceiveID(store byte, id uint32) error {
	if err := checkStore(store); err != nil {
		return err
	}
	t := NewTelegram(a.addr, CmdBusReceiveID, store)
	t.putUint32(1, id)
	return a.send(t)
}

// SetBusSendID sets the CAN identifier used for answers
// (manual s. 4.7.3).
func (a *Axis) SetBusSendID(store byte, id uint32) error {
	if err := checkStore(store); err != nil {
		return err
	}
	t := NewTelegram(a.addr, CmdBusSendID, store)
	t.putUint32(1, id)
	return a.send(t)
}

// SetBusBaudRate changes the CAN interface baud rate: 1=125k, 2=250k,
// 3=500k, 4=1M (manual s. 4.7.4). Takes effect after a hardware reset.
func (a *Axis) SetBusBaudRate(rate byte) error {
	if err := checkRange("baud rate code", int64(rate), 1, 4); err != nil {
		return err
	}
	return a.send(NewTelegram(a.addr, CmdBusBaudRate, 0, rate))
}

// HardwareReset resets the unit's microcontroller so that all
// parameters are re-read from the EEPROM (manual s. 4.7.6).
func (a *Axis) HardwareReset() error {
	return a.send(NewTelegram(a.addr, CmdHardwareReset))
}

// FactoryDefaults restores all EEPROM parameters, including bus
// addresses and baud rate, to factory settings (manual s. 4.8). A
// hardware reset is required afterwards.
func (a *Axis) FactoryDefaults() error {
	return a.send(NewTelegram(a.addr, CmdFactoryDefaults, 0, factoryMagic1, factoryMagic2))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 IQS Group

// Package monopack implements the Trinamic Monopack 2 binary command
// protocol and a typed per-unit driver.
//
// Monopack units are addressed over a shared half-duplex bus (RS-485 or
// CAN) using fixed 9-byte telegrams: an address byte, a command byte and
// seven parameter bytes P0..P6. Multi-byte parameters are little-endian.
// For most "set" commands P0 selects parameter storage (see Store*);
// commands with a defined answer echo the command byte in the response.
//
// Command numbers and parameter layouts follow the Monopack 2 Manual
// V1.04, section 4.
package monopack

// FrameSize is the fixed length of every command and answer telegram.
const FrameSize = 9

// Parameter storage control values for the P0 byte of "set" commands
// (manual s. 4.1).
const (
	StorePersist  = 0x00 // set value and store it in the EEPROM
	StoreApply    = 0x01 // set value without altering the EEPROM
	StoreReadSave = 0x02 // read the value from the EEPROM
	StoreReadLive = 0x03 // read the actual value
)

// Command codes - motor parameters (manual s. 4.2, 4.3)
const (
	CmdCurrentLimit        = 0x10
	CmdCurrentControl      = 0x11
	CmdFrequencyRange      = 0x12
	CmdVelocity            = 0x14
	CmdMicrostepsPerRev    = 0x15
	CmdRefSearchVelocity   = 0x16
	CmdMicrostepResolution = 0x17
	CmdBowValue            = 0x63
)

// Command codes - motion (manual s. 4.3)
const (
	CmdGetPosition     = 0x20
	CmdGetMotionStatus = 0x21
	CmdRefSearch       = 0x22
	CmdDriveRamp       = 0x23
	CmdConstantRot     = 0x25
	CmdResetPosition   = 0x27
	CmdSoftStop        = 0x2A
	CmdEmergencyStop   = 0x2B
)

// Command codes - switches and stored-setting readback (manual s. 4.4)
const (
	CmdGetSwitchStates  = 0x30
	CmdGetRampSettings  = 0x52
	CmdGetCurrentCtrl   = 0x53
	CmdSwitchMode       = 0x54
	CmdStopDeceleration = 0x57
	CmdTravelCheckTol   = 0x59
)

// Command codes - incremental encoder (manual s. 4.5)
const (
	CmdAutoCorrection = 0x58
	CmdEncoderConfig  = 0x70
	CmdEncoderCounter = 0x71
	CmdDeviationAlarm = 0x73
)

// Command codes - PID controller register passthrough (manual s. 4.5.7).
// These map directly onto TMC453 configuration registers.
const (
	CmdPID6A = 0x6A
	CmdPID6B = 0x6B
	CmdPID6C = 0x6C
	CmdPID6D = 0x6D
	CmdPID6F = 0x6F
)

// Command codes - alarms and global settings (manual s. 4.6, 4.7, 4.8)
const (
	CmdAlarmMode       = 0x51
	CmdResetAlarm      = 0x74
	CmdStepDirMode     = 0x50
	CmdBusReceiveID    = 0x55
	CmdBusSendID       = 0x56
	CmdBusBaudRate     = 0xC0
	CmdGetVersion      = 0x43
	CmdHardwareReset   = 0xCC
	CmdFactoryDefaults = 0xDD
)

// Factory reset magic bytes (manual s. 4.8).
const (
	factoryMagic1 = 0x31
	factoryMagic2 = 0x41
)

// Documented parameter limits.
const (
	MaxRampValue    = 8191     // velocity, acceleration, bow, deceleration
	MinRampValue    = 1        // zero is not a legal ramp parameter
	MaxDeviation    = 2047     // encoder deviation window (11 bit)
	MaxPosition     = 16777215 // drive-a-ramp target, upper bound
	MinPosition     = -8388608 // drive-a-ramp target, lower bound
	MaxPredivider   = 15
	MaxMicrostepRes = 67 // 1..64 plus the three fixed high resolutions
)

// Reference configuration of the PK266 stage axes: 2 mm shaft pitch,
// 200 full steps, microstep resolution 50.
const (
	DefaultStepMM     = 0.0002
	DefaultClockHz    = 16000000
	DefaultPredivider = 5
)

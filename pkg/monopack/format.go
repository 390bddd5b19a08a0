// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 IQS Group

package monopack

import (
	"fmt"
	"strings"
)

// CommandName returns the mnemonic for a command byte, or UNKNOWN for
// codes the manual does not define.
func CommandName(command byte) string {
	switch command {
	case CmdCurrentLimit:
		return "CURRENT_LIMIT"
	case CmdCurrentControl:
		return "CURRENT_CONTROL"
	case CmdFrequencyRange:
		return "FREQUENCY_RANGE"
	case CmdVelocity:
		return "VELOCITY"
	case CmdMicrostepsPerRev:
		return "MICROSTEPS_PER_REV"
	case CmdRefSearchVelocity:
		return "REF_SEARCH_VELOCITY"
	case CmdMicrostepResolution:
		return "MICROSTEP_RESOLUTION"
	case CmdBowValue:
		return "BOW_VALUE"
	case CmdGetPosition:
		return "GET_POSITION"
	case CmdGetMotionStatus:
		return "GET_MOTION_STATUS"
	case CmdRefSearch:
		return "REFERENCE_SEARCH"
	case CmdDriveRamp:
		return "DRIVE_RAMP"
	case CmdConstantRot:
		return "CONSTANT_ROTATION"
	case CmdResetPosition:
		return "RESET_POSITION"
	case CmdSoftStop:
		return "SOFT_STOP"
	case CmdEmergencyStop:
		return "EMERGENCY_STOP"
	case CmdGetSwitchStates:
		return "GET_SWITCH_STATES"
	case CmdGetRampSettings:
		return "GET_RAMP_SETTINGS"
	case CmdGetCurrentCtrl:
		return "GET_CURRENT_CONTROL"
	case CmdSwitchMode:
		return "SWITCH_MODE"
	case CmdStopDeceleration:
		return "STOP_DECELERATION"
	case CmdTravelCheckTol:
		return "TRAVEL_CHECK_TOLERANCE"
	case CmdAutoCorrection:
		return "AUTO_CORRECTION"
	case CmdEncoderConfig:
		return "ENCODER_CONFIG"
	case CmdEncoderCounter:
		return "ENCODER_COUNTER"
	case CmdDeviationAlarm:
		return "DEVIATION_ALARM"
	case CmdPID6A:
		return "PID_6A"
	case CmdPID6B:
		return "PID_6B"
	case CmdPID6C:
		return "PID_6C"
	case CmdPID6D:
		return "PID_6D"
	case CmdPID6F:
		return "PID_6F"
	case CmdAlarmMode:
		return "ALARM_MODE"
	case CmdResetAlarm:
		return "RESET_ALARM"
	case CmdStepDirMode:
		return "STEP_DIR_MODE"
	case CmdBusReceiveID:
		return "BUS_RECEIVE_ID"
	case CmdBusSendID:
		return "BUS_SEND_ID"
	case CmdBusBaudRate:
		return "BUS_BAUD_RATE"
	case CmdGetVersion:
		return "GET_VERSION"
	case CmdHardwareReset:
		return "HARDWARE_RESET"
	case CmdFactoryDefaults:
		return "FACTORY_DEFAULTS"
	default:
		return "UNKNOWN"
	}
}

// FormatTelegram renders one telegram as a single human-readable line:
//
//	-> addr 07 DRIVE_RAMP (0x23) P=[01 C4 09 00 00 00 00]
func FormatTelegram(dir Direction, t Telegram) string {
	arrow := "->"
	if dir == DirReceive {
		arrow = "<-"
	}

	var hex strings.Builder
	for i, p := range t.Params {
		if i > 0 {
			hex.WriteByte(' ')
		}
		fmt.Fprintf(&hex, "%02X", p)
	}

	return fmt.Sprintf("%s addr %02d %s (0x%02X) P=[%s]",
		arrow, t.Address, CommandName(t.Command), t.Command, hex.String())
}

// FormatRecord renders a trace record with its capture timestamp.
func FormatRecord(r TraceRecord) string {
	t, err := r.Telegram()
	if err != nil {
		return fmt.Sprintf("[%s] %s invalid frame (% X)", r.Time.Format("15:04:05.000"), r.Direction, r.Frame)
	}
	return fmt.Sprintf("[%s] %s", r.Time.Format("15:04:05.000"), FormatTelegram(r.Direction, t))
}

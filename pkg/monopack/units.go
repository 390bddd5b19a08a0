// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 IQS Group

package monopack

import "math"

// Converter translates between physical stage units (mm, mm/s, mm/s²)
// and raw Monopack units (microsteps and ramp velocity/acceleration
// codes). All conversions are pure; range checking is done by the Axis
// command methods, not here.
//
// The ramp generator runs at Fstep = Fclk*v / 2^(15+predivider)
// microsteps per second (manual s. 4.2.4), which gives
//
//	raw = v_mm_s / (Fclk * step_mm) * 2^(15+predivider)
//
// for both velocity and acceleration codes.
type Converter struct {
	StepMM     float64 // stage travel per microstep
	ClockHz    float64 // device clock frequency
	Predivider uint8   // frequency range pre-divider exponent f (0..15)
}

// DefaultConverter returns the converter for the reference stage
// configuration (0.2 µm steps, 16 MHz clock, pre-divider 5).
func DefaultConverter() Converter {
	return Converter{StepMM: DefaultStepMM, ClockHz: DefaultClockHz, Predivider: DefaultPredivider}
}

// scale is 2^(15+predivider) / (Fclk * step).
func (c Converter) scale() float64 {
	return math.Exp2(float64(15+int(c.Predivider))) / (c.ClockHz * c.StepMM)
}

// VelocityToRaw converts mm/s to a ramp velocity code.
func (c Converter) VelocityToRaw(mmPerSec float64) int {
	return int(math.Round(mmPerSec * c.scale()))
}

// RawToVelocity converts a ramp velocity code to mm/s.
func (c Converter) RawToVelocity(raw int) float64 {
	return float64(raw) / c.scale()
}

// AccelerationToRaw converts mm/s² to a ramp acceleration code.
func (c Converter) AccelerationToRaw(mmPerSec2 float64) int {
	return int(math.Round(mmPerSec2 * c.scale()))
}

// RawToAcceleration converts a ramp acceleration code to mm/s².
func (c Converter) RawToAcceleration(raw int) float64 {
	return float64(raw) / c.scale()
}

// PositionToRaw converts an absolute position in mm to microsteps.
func (c Converter) PositionToRaw(mm float64) int {
	return int(math.Round(mm / c.StepMM))
}

// RawToPosition converts microsteps to mm.
func (c Converter) RawToPosition(raw int) float64 {
	return float64(raw) * c.StepMM
}

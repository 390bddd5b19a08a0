// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 IQS Group

package stage

import (
	"time"

	"github.com/iqsgroup/stagectl/pkg/monopack"
)

// Config carries the per-installation stage parameters. DefaultConfig
// matches the PI 410.2S reference stage: Monopack units at addresses 7
// (X) and 1 (Y), 400 mm travel per axis.
type Config struct {
	XAddress byte
	YAddress byte

	XLimits Limits
	YLimits Limits

	Converter monopack.Converter

	// PostRefOffset is the raw-unit position driven to after a
	// reference search. It becomes the logical origin: Position()
	// reports 0 there and commanded targets are offset by it, keeping
	// the stage clear of the reference switch at logical zero.
	PostRefOffset int

	// Readiness polling: an axis counts as ready after two consecutive
	// polls with zero velocity and no active reference search.
	PollInterval time.Duration
	MaxPolls     int

	// Settling pauses during the reference procedure.
	PIDSettle   time.Duration
	ResetSettle time.Duration

	// Ramp parameters applied by Initialize, raw units.
	Velocity          int
	Acceleration      int
	RefSearchVelocity int

	// Operating phase currents, applied last in the initialization
	// sequence. The axes differ on the acceleration phase.
	XRunCurrent monopack.CurrentControl
	YRunCurrent monopack.CurrentControl

	// SignedEncoder selects sign-extension of the 24-bit encoder
	// counter (see monopack.WithSignedEncoder).
	SignedEncoder bool
}

// DefaultConfig returns the reference stage configuration.
func DefaultConfig() Config {
	return Config{
		XAddress:          7,
		YAddress:          1,
		XLimits:           Limits{Min: 0, Max: 400},
		YLimits:           Limits{Min: 0, Max: 400},
		Converter:         monopack.DefaultConverter(),
		PostRefOffset:     2500,
		PollInterval:      300 * time.Millisecond,
		MaxPolls:          600,
		PIDSettle:         500 * time.Millisecond,
		ResetSettle:       1500 * time.Millisecond,
		Velocity:          4915, // 15 mm/s
		Acceleration:      245,  // 0.75 mm/s²
		RefSearchVelocity: 1228, // 3.75 mm/s
		XRunCurrent:       monopack.CurrentControl{Standby: 0x47, Active: 0xAD, Acceleration: 0xFF},
		YRunCurrent:       monopack.CurrentControl{Standby: 0x47, Active: 0xAD, Acceleration: 0xAD},
	}
}

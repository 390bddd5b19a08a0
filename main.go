// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 IQS Group
//
// Stagectl - Monopack XY stage controller
//
// A CLI tool for driving a two-axis stage built from Trinamic Monopack 2
// stepper drivers on a shared RS-485 bus.

package main

import (
	"os"

	"github.com/iqsgroup/stagectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

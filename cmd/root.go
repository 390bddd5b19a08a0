// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 IQS Group

package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Bus addressing
	xAddress uint8
	yAddress uint8

	// Telegram trace recording
	traceFile string
)

var rootCmd = &cobra.Command{
	Use:   "stagectl",
	Short: "Monopack XY stage controller",
	Long: `Stagectl - a CLI tool for driving a two-axis stage built from
Trinamic Monopack 2 stepper drivers on a shared RS-485 bus.

Provides commands for referencing, absolute moves, homing and stopping
the stage, plus a telegram monitor and an interactive jog TUI.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 9600]
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the
STAGECTL_PASSWORD environment variable, or prompted interactively if not
set. The --password flag is intentionally not provided to avoid leaking
credentials in shell history.`,
	Version: "1.2.0",
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 9600, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Device addressing
	rootCmd.PersistentFlags().Uint8Var(&xAddress, "x-addr", 7, "Device address of the X axis")
	rootCmd.PersistentFlags().Uint8Var(&yAddress, "y-addr", 1, "Device address of the Y axis")

	// Trace recording
	rootCmd.PersistentFlags().StringVar(&traceFile, "trace", "", "Record all bus telegrams to a CBOR trace file")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 IQS Group

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var homeCmd = &cobra.Command{
	Use:   "home [x|y]...",
	Short: "Move axes to the logical origin",
	Long: `Move the given axes (default: both) to the logical origin and wait
for arrival. The stage is initialized and referenced first if needed.

Supports both serial and WebSocket connections.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runHome,
}

func init() {
	rootCmd.AddCommand(homeCmd)
}

func runHome(cmd *cobra.Command, args []string) error {
	axes, err := parseAxes(args)
	if err != nil {
		return err
	}

	s, err := openStage()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if err := s.ctl.Initialize(ctx); err != nil {
		return err
	}
	if err := s.ctl.GoHome(ctx, axes...); err != nil {
		return err
	}

	x, y := s.ctl.Position()
	fmt.Printf("Stage at (%.3f, %.3f) mm\n", x, y)
	return nil
}

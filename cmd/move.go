// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 IQS Group

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var moveNoWait bool

var moveCmd = &cobra.Command{
	Use:   "move <x> <y>",
	Short: "Move the stage to an absolute position in mm",
	Long: `Move the stage to an absolute position, given in millimeters from the
logical origin. Use "-" for an axis to leave it where it is:

  stagectl move 120.5 80     move both axes
  stagectl move 120.5 -      move only X
  stagectl move - 80         move only Y

Targets outside the soft travel limits are clamped to the nearest
limit. The stage is initialized and referenced first if needed.

Supports both serial and WebSocket connections.`,
	Args: cobra.ExactArgs(2),
	RunE: runMove,
}

func init() {
	moveCmd.Flags().BoolVar(&moveNoWait, "no-wait", false, "Return immediately instead of waiting for arrival")
	rootCmd.AddCommand(moveCmd)
}

// parseCoordinate parses one move argument; "-" means leave the axis
// untouched.
func parseCoordinate(arg, name string) (*float64, error) {
	if arg == "-" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s coordinate %q: %v", name, arg, err)
	}
	return &v, nil
}

func runMove(cmd *cobra.Command, args []string) error {
	x, err := parseCoordinate(args[0], "x")
	if err != nil {
		return err
	}
	y, err := parseCoordinate(args[1], "y")
	if err != nil {
		return err
	}
	if x == nil && y == nil {
		return fmt.Errorf("nothing to move (both coordinates are \"-\")")
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
	if err := s.ctl.MoveTo(x, y); err != nil {
		return err
	}
	if moveNoWait {
		return nil
	}
	if err := s.ctl.WaitIdle(ctx); err != nil {
		return err
	}

	px, py := s.ctl.Position()
	fmt.Printf("Stage at (%.3f, %.3f) mm\n", px, py)
	return nil
}

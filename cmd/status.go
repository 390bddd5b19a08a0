// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 IQS Group

package cmd

import (
	"fmt"

	"github.com/iqsgroup/stagectl/pkg/stage"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query both axes and print their state",
	Long: `Query the firmware version, switch states, motion status and raw
position of both Monopack units and print a summary.

This command only reads from the devices; it never starts motion and
does not require the stage to be referenced.

Supports both serial and WebSocket connections.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := openStage()
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("Connection: %s\n\n", s.connInfo)

	for _, id := range stage.BothAxes {
		axis, err := s.ctl.Axis(id)
		if err != nil {
			return err
		}

		version, err := axis.Version()
		if err != nil {
			return fmt.Errorf("axis %s: %v", id, err)
		}
		motion, err := axis.MotionStatus()
		if err != nil {
			return fmt.Errorf("axis %s: %v", id, err)
		}
		switches, err := axis.SwitchStates()
		if err != nil {
			return fmt.Errorf("axis %s: %v", id, err)
		}
		position, err := axis.ActualPosition()
		if err != nil {
			return fmt.Errorf("axis %s: %v", id, err)
		}

		fmt.Printf("Axis %s (address %d)\n", id, axis.Address())
		fmt.Printf("  Firmware:    V%.2f (temperature %.1f)\n", version.Firmware, version.Temperature)
		if version.ResetFlag {
			fmt.Printf("  Note:        device reset since last query\n")
		}
		fmt.Printf("  Position:    %d microsteps (%.3f mm from switch)\n",
			position, axis.Converter().RawToPosition(int(position)))
		fmt.Printf("  Velocity:    %d raw (%.2f mm/s)\n",
			motion.Velocity, axis.Converter().RawToVelocity(int(motion.Velocity)))
		fmt.Printf("  Ref search:  %v\n", motion.RefSearchActive)
		fmt.Printf("  Switches:    left=%v right=%v ref=%v\n\n",
			switches.StopLeft, switches.StopRight, switches.Reference)
	}
	return nil
}

// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 IQS Group

package cmd

import (
	"fmt"

	"github.com/iqsgroup/stagectl/pkg/stage"
	"github.com/spf13/cobra"
)

var stopEmergency bool

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop all stage motion",
	Long: `Send a soft stop to both axes, decelerating any motion in progress.
With --emergency the motors are stopped immediately without a ramp.

This command talks to the drivers directly and works regardless of the
controller lifecycle, so it can stop motion started by another process.

Supports both serial and WebSocket connections.`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().BoolVar(&stopEmergency, "emergency", false, "Hard stop without deceleration ramp")
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	s, err := openStage()
	if err != nil {
		return err
	}
	defer s.Close()

	for _, id := range stage.BothAxes {
		axis, err := s.ctl.Axis(id)
		if err != nil {
			return err
		}
		if stopEmergency {
			err = axis.EmergencyStop()
		} else {
			err = axis.SoftStop()
		}
		if err != nil {
			return fmt.Errorf("stop axis %s: %v", id, err)
		}
	}

	if stopEmergency {
		fmt.Println("Emergency stop sent to both axes")
	} else {
		fmt.Println("Soft stop sent to both axes")
	}
	return nil
}

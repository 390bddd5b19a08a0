// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 IQS Group

package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Interactive TUI for jogging the stage",
	Long: `Control the stage via an interactive terminal UI.

This command provides a TUI for referencing, jogging and positioning
the stage:

  - Arrow keys jog the stage by the current step size
  - +/- change the jog step size
  - g enters an absolute target position
  - r re-runs initialization and the reference search
  - h homes both axes, s soft-stops all motion
  - q quits

The stage is initialized and referenced automatically on startup.

Supports both serial and WebSocket connections.`,
	RunE: runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
}

func runControl(cmd *cobra.Command, args []string) error {
	s, err := openStage()
	if err != nil {
		return err
	}
	defer s.Close()

	m := initialControlModel(s)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}

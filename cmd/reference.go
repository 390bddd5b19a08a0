// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 IQS Group

package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/iqsgroup/stagectl/pkg/stage"
	"github.com/spf13/cobra"
)

var referenceCmd = &cobra.Command{
	Use:   "reference",
	Short: "Initialize both axes and run the reference search",
	Long: `Apply the full parameter setup to both Monopack units, then run the
reference search and drive the stage to the logical origin.

The stage must be referenced once after power-up before absolute moves
are possible. Referencing drives both axes towards their reference
switches; make sure the travel is clear.

Supports both serial and WebSocket connections.`,
	RunE: runReference,
}

func init() {
	rootCmd.AddCommand(referenceCmd)
}

// signalContext returns a context cancelled by Ctrl+C.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runReference(cmd *cobra.Command, args []string) error {
	s, err := openStage()
	if err != nil {
		return err
	}
	defer s.Close()

	s.ctl.SetNotify(func(old, new stage.State) {
		fmt.Printf("  %s -> %s\n", old, new)
	})

	fmt.Printf("Connection: %s\n", s.connInfo)
	fmt.Printf("Referencing stage...\n")

	ctx, cancel := signalContext()
	defer cancel()

	if err := s.ctl.Initialize(ctx); err != nil {
		return err
	}

	x, y := s.ctl.Position()
	fmt.Printf("Stage referenced, position (%.3f, %.3f) mm\n", x, y)
	return nil
}

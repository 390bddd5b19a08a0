// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 IQS Group

package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/iqsgroup/stagectl/pkg/monopack"
	"github.com/spf13/cobra"
)

var logReplayFile string

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Display bus telegrams in human-readable format",
	Long: `Continuously decode and display Monopack telegrams as they arrive on
the bus, one line per 9-byte telegram.

With --replay, a trace file recorded with the global --trace flag is
printed instead of live traffic, including capture timestamps and
transfer direction.

Supports both serial and WebSocket connections.`,
	RunE: runLog,
}

func init() {
	logCmd.Flags().StringVar(&logReplayFile, "replay", "", "Print a recorded trace file instead of live traffic")
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, args []string) error {
	if logReplayFile != "" {
		return replayTrace(logReplayFile)
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Stagectl - Telegram Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	// Telegrams are fixed 9-byte frames with no sync marker, so the
	// monitor assumes it starts listening on a frame boundary and
	// chunks the byte stream from there.
	frame := make([]byte, 0, monopack.FrameSize)
	buf := make([]byte, 128)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			// For WebSocket connections, a read error usually means
			// the connection is permanently closed - exit gracefully
			if err == ErrConnectionClosed {
				log.Printf("Connection closed")
				return nil
			}
			log.Printf("Read error: %v", err)
			continue
		}

		for i := 0; i < n; i++ {
			frame = append(frame, buf[i])
			if len(frame) < monopack.FrameSize {
				continue
			}
			tg, err := monopack.Decode(frame)
			frame = frame[:0]
			if err != nil {
				fmt.Printf("[ERROR] %v\n", err)
				continue
			}
			fmt.Println(monopack.FormatTelegram(monopack.DirReceive, tg))
		}
	}
}

func replayTrace(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %v", err)
	}
	defer f.Close()

	rd := monopack.NewTraceReader(f)
	for {
		rec, err := rd.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("trace file corrupt: %v", err)
		}
		fmt.Println(monopack.FormatRecord(rec))
	}
}

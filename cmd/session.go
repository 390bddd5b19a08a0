// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 IQS Group

package cmd

import (
	"fmt"
	"os"

	"github.com/iqsgroup/stagectl/pkg/monopack"
	"github.com/iqsgroup/stagectl/pkg/stage"
)

// stageSession bundles the connection, bus and stage controller that
// every motion command needs, plus the optional trace file.
type stageSession struct {
	conn     Connection
	connInfo string
	bus      *monopack.Bus
	ctl      *stage.Controller
	traceOut *os.File
	trace    *monopack.Trace
}

// openStage opens the configured connection and builds a connected
// stage controller on top of it. The caller must Close the session.
func openStage() (*stageSession, error) {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return nil, err
	}

	s := &stageSession{conn: conn, connInfo: connInfo}

	var busOpts []monopack.BusOption
	if traceFile != "" {
		out, err := os.Create(traceFile)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create trace file: %v", err)
		}
		s.traceOut = out
		s.trace = monopack.NewTrace(out)
		busOpts = append(busOpts, monopack.WithTrace(s.trace))
	}
	s.bus = monopack.NewBus(conn, busOpts...)

	cfg := stage.DefaultConfig()
	cfg.XAddress = xAddress
	cfg.YAddress = yAddress
	s.ctl = stage.New(s.bus, cfg)

	if err := s.ctl.Connect(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the bus, the connection and the trace file.
func (s *stageSession) Close() error {
	s.bus.Close()
	err := s.conn.Close()
	if s.traceOut != nil {
		if terr := s.trace.Err(); terr != nil && err == nil {
			err = terr
		}
		if cerr := s.traceOut.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// parseAxes converts command arguments like "x" or "y" into axis
// selectors, defaulting to both axes when none are given.
func parseAxes(args []string) ([]stage.AxisID, error) {
	if len(args) == 0 {
		return stage.BothAxes, nil
	}
	var axes []stage.AxisID
	for _, arg := range args {
		switch arg {
		case "x", "X":
			axes = append(axes, stage.AxisX)
		case "y", "Y":
			axes = append(axes, stage.AxisY)
		default:
			return nil, fmt.Errorf("unknown axis %q (use x or y)", arg)
		}
	}
	return axes, nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 IQS Group

package stage

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/iqsgroup/stagectl/pkg/monopack"
)

// simUnit models one Monopack on the simulated bus: an encoder counter
// plus a motion status source. A queued script takes precedence; after
// that the unit reports motion for the scheduled number of polls and
// then stands still.
type simUnit struct {
	encoder     int32
	busy        int
	refBusy     int
	script      []monopack.MotionStatus
	statusPolls int
}

func (u *simUnit) nextStatus() monopack.MotionStatus {
	if len(u.script) > 0 {
		st := u.script[0]
		u.script = u.script[1:]
		return st
	}
	if u.refBusy > 0 {
		u.refBusy--
		return monopack.MotionStatus{Velocity: 80, RefSearchActive: true}
	}
	if u.busy > 0 {
		u.busy--
		return monopack.MotionStatus{Velocity: 120}
	}
	return monopack.MotionStatus{}
}

// simBus is an in-memory Transport emulating two Monopack units. It
// answers queries from per-unit state and applies motion commands to
// it; unknown addresses time out like a silent bus.
type simBus struct {
	mu        sync.Mutex
	units     map[byte]*simUnit
	sent      []monopack.Telegram
	exchanged []monopack.Telegram
	failErr   error
	rampBusy  int
	refPolls  int

	statusHold chan struct{}
	statusSeen chan struct{}
	seenOnce   sync.Once
}

func newSimBus(addrs ...byte) *simBus {
	b := &simBus{units: make(map[byte]*simUnit), rampBusy: 2, refPolls: 3}
	for _, a := range addrs {
		b.units[a] = &simUnit{}
	}
	return b
}

func (b *simBus) unit(addr byte) *simUnit {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.units[addr]
}

func (b *simBus) traffic() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sent) + len(b.exchanged)
}

func (b *simBus) setFail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failErr = err
}

func (b *simBus) Send(frame [monopack.FrameSize]byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failErr != nil {
		return b.failErr
	}
	t, err := monopack.Decode(frame[:])
	if err != nil {
		return err
	}
	b.sent = append(b.sent, t)
	u, ok := b.units[t.Address]
	if !ok {
		return nil
	}
	switch t.Command {
	case monopack.CmdDriveRamp:
		u.encoder = paramInt32(t, 1)
		u.busy = b.rampBusy
	case monopack.CmdRefSearch:
		u.refBusy = b.refPolls
		u.encoder = 0
	case monopack.CmdResetPosition:
		u.encoder = 0
	case monopack.CmdSoftStop:
		u.busy = 0
	}
	return nil
}

func (b *simBus) Exchange(frame [monopack.FrameSize]byte) ([monopack.FrameSize]byte, error) {
	t, err := monopack.Decode(frame[:])
	if err != nil {
		return frame, err
	}

	if t.Command == monopack.CmdGetMotionStatus {
		b.mu.Lock()
		hold := b.statusHold
		b.mu.Unlock()
		if hold != nil {
			b.seenOnce.Do(func() { close(b.statusSeen) })
			<-hold
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failErr != nil {
		return frame, b.failErr
	}
	b.exchanged = append(b.exchanged, t)
	u, ok := b.units[t.Address]
	if !ok {
		return frame, monopack.ErrTimeout
	}

	ans := monopack.NewTelegram(t.Address, t.Command)
	switch t.Command {
	case monopack.CmdGetVersion:
		ans.Params[0] = 203
	case monopack.CmdGetMotionStatus:
		u.statusPolls++
		st := u.nextStatus()
		ans.Params[1] = byte(st.Velocity)
		ans.Params[2] = byte(st.Velocity>>8) & 0x0F
		if st.RefSearchActive {
			ans.Params[5] = 1
		}
	case monopack.CmdEncoderCounter:
		ans.Params[1] = byte(u.encoder)
		ans.Params[2] = byte(u.encoder >> 8)
		ans.Params[3] = byte(u.encoder >> 16)
	}
	return ans.Encode(), nil
}

func paramInt32(t monopack.Telegram, off int) int32 {
	return int32(uint32(t.Params[off]) |
		uint32(t.Params[off+1])<<8 |
		uint32(t.Params[off+2])<<16 |
		uint32(t.Params[off+3])<<24)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.PollInterval = time.Millisecond
	cfg.MaxPolls = 50
	cfg.PIDSettle = 0
	cfg.ResetSettle = 0
	return cfg
}

// newReadyController runs connect + initialize against a fresh
// simulated bus and returns the controller in Ready.
func newReadyController(t *testing.T) (*Controller, *simBus) {
	t.Helper()
	bus := newSimBus(7, 1)
	c := New(bus, testConfig())
	if err := c.Connect(); err != nil {
		t.Fatal(err)
	}
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := c.State(); got != Ready {
		t.Fatalf("state after initialize = %v, want ready", got)
	}
	return c, bus
}

func TestController_ConnectInitializeReference(t *testing.T) {
	bus := newSimBus(7, 1)
	c := New(bus, testConfig())

	var transitions []State
	c.SetNotify(func(old, new State) {
		transitions = append(transitions, new)
	})

	if got := c.State(); got != Disconnected {
		t.Fatalf("initial state = %v, want disconnected", got)
	}
	if err := c.Connect(); err != nil {
		t.Fatal(err)
	}
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	if !c.Referenced() {
		t.Error("stage not referenced after initialize")
	}
	x, y := c.Position()
	if x != 0 || y != 0 {
		t.Errorf("position after referencing = (%v, %v), want (0, 0)", x, y)
	}

	want := []State{Connected, Referencing, Ready}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", transitions, want)
		}
	}

	// Both axes got a reference search and were driven to the logical
	// origin offset afterwards.
	bus.mu.Lock()
	defer bus.mu.Unlock()
	searches := map[byte]bool{}
	offsets := map[byte]int32{}
	for _, tg := range bus.sent {
		switch tg.Command {
		case monopack.CmdRefSearch:
			searches[tg.Address] = true
		case monopack.CmdDriveRamp:
			offsets[tg.Address] = paramInt32(tg, 1)
		}
	}
	for _, addr := range []byte{7, 1} {
		if !searches[addr] {
			t.Errorf("no reference search sent to address %d", addr)
		}
		if offsets[addr] != 2500 {
			t.Errorf("post-reference target for address %d = %d, want 2500", addr, offsets[addr])
		}
	}
}

func TestController_ConnectFailsOnSilentAxis(t *testing.T) {
	bus := newSimBus(7) // axis Y at address 1 never answers
	c := New(bus, testConfig())

	err := c.Connect()
	var ce *ConnectionError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	if ce.Axis != AxisY {
		t.Errorf("failing axis = %s, want Y", ce.Axis)
	}
	if !errors.Is(err, monopack.ErrTimeout) {
		t.Error("wrapped timeout cause lost")
	}
	if got := c.State(); got != Disconnected {
		t.Errorf("state = %v, want disconnected", got)
	}
}

func TestController_MoveClampsToLimits(t *testing.T) {
	c, bus := newReadyController(t)
	ctx := context.Background()

	for _, tc := range []struct {
		name    string
		target  float64
		wantMM  float64
		wantRaw int32
	}{
		{"below minimum", -10, 0, 2500},
		{"above maximum", 500, 400, 2500 + 2000000},
		{"inside limits", 100, 100, 2500 + 500000},
	} {
		t.Run(tc.name, func(t *testing.T) {
			before := len(bus.sent)
			if err := c.MoveTo(&tc.target, nil); err != nil {
				t.Fatal(err)
			}

			bus.mu.Lock()
			var raw int32
			found := false
			for _, tg := range bus.sent[before:] {
				if tg.Command == monopack.CmdDriveRamp && tg.Address == 7 {
					raw = paramInt32(tg, 1)
					found = true
				}
			}
			bus.mu.Unlock()
			if !found {
				t.Fatal("no drive ramp sent to axis X")
			}
			if raw != tc.wantRaw {
				t.Errorf("ramp target = %d, want %d", raw, tc.wantRaw)
			}

			x, _ := c.Position()
			if x != tc.wantMM {
				t.Errorf("cached position = %v, want %v", x, tc.wantMM)
			}
			if got := c.State(); got != Moving {
				t.Errorf("state = %v, want moving", got)
			}
			if err := c.AwaitReady(ctx, AxisX); err != nil {
				t.Fatal(err)
			}
			if got := c.State(); got != Ready {
				t.Errorf("state after await = %v, want ready", got)
			}
		})
	}
}

func TestController_MoveRejectedWhileReferencing(t *testing.T) {
	bus := newSimBus(7, 1)
	bus.statusHold = make(chan struct{})
	bus.statusSeen = make(chan struct{})

	c := New(bus, testConfig())
	if err := c.Connect(); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- c.Initialize(context.Background()) }()

	<-bus.statusSeen // referencing is now polling
	if got := c.State(); got != Referencing {
		t.Fatalf("state = %v, want referencing", got)
	}

	target := 10.0
	err := c.MoveTo(&target, nil)
	var se *StateError
	if !errors.As(err, &se) {
		t.Fatalf("expected StateError, got %v", err)
	}
	if se.State != Referencing {
		t.Errorf("rejected in state %v, want referencing", se.State)
	}

	close(bus.statusHold)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if got := c.State(); got != Ready {
		t.Errorf("final state = %v, want ready", got)
	}
}

func TestController_ReadinessDebounce(t *testing.T) {
	c, bus := newReadyController(t)

	target := 50.0
	bus.rampBusy = 0
	if err := c.MoveTo(&target, nil); err != nil {
		t.Fatal(err)
	}

	// A single zero reading mid-reversal must not count as arrival:
	// zero, moving again, then two consecutive zeros.
	u := bus.unit(7)
	bus.mu.Lock()
	u.script = []monopack.MotionStatus{
		{Velocity: 0},
		{Velocity: 50},
		{Velocity: 0},
		{Velocity: 0},
	}
	before := u.statusPolls
	bus.mu.Unlock()

	if err := c.AwaitReady(context.Background(), AxisX); err != nil {
		t.Fatal(err)
	}

	bus.mu.Lock()
	polls := u.statusPolls - before
	bus.mu.Unlock()
	if polls != 4 {
		t.Errorf("status polls = %d, want 4 (debounce must reject the transient zero)", polls)
	}
}

func TestController_AwaitTimeoutFaults(t *testing.T) {
	c, bus := newReadyController(t)

	target := 50.0
	if err := c.MoveTo(&target, nil); err != nil {
		t.Fatal(err)
	}
	bus.unit(7).busy = 1 << 20 // never settles

	cfgPolls := testConfig().MaxPolls
	err := c.AwaitReady(context.Background(), AxisX)
	if !errors.Is(err, ErrAwaitTimeout) {
		t.Fatalf("expected ErrAwaitTimeout after %d polls, got %v", cfgPolls, err)
	}
	if got := c.State(); got != Faulted {
		t.Errorf("state = %v, want faulted", got)
	}
	if c.LastError() == nil {
		t.Error("LastError is nil after fault")
	}
}

func TestController_AwaitCancelled(t *testing.T) {
	c, bus := newReadyController(t)

	target := 50.0
	if err := c.MoveTo(&target, nil); err != nil {
		t.Fatal(err)
	}
	bus.unit(7).busy = 1 << 20

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	err := c.AwaitReady(ctx, AxisX)
	if !errors.Is(err, ErrAwaitTimeout) {
		t.Fatalf("expected ErrAwaitTimeout, got %v", err)
	}
}

func TestController_TransportFailureFaultsAndFastFails(t *testing.T) {
	c, bus := newReadyController(t)

	bus.setFail(io.ErrClosedPipe)
	target := 50.0
	if err := c.MoveTo(&target, nil); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
	if got := c.State(); got != Faulted {
		t.Fatalf("state = %v, want faulted", got)
	}

	// Faulted rejects everything without touching the bus.
	before := bus.traffic()
	var se *StateError
	if err := c.MoveTo(&target, nil); !errors.As(err, &se) {
		t.Fatalf("expected StateError, got %v", err)
	}
	if err := c.Stop(); !errors.As(err, &se) {
		t.Fatalf("expected StateError from stop, got %v", err)
	}
	if err := c.Reference(context.Background()); !errors.As(err, &se) {
		t.Fatalf("expected StateError from reference, got %v", err)
	}
	if got := bus.traffic(); got != before {
		t.Errorf("faulted controller generated %d bus frames", got-before)
	}

	// Only a fresh connect recovers.
	bus.setFail(nil)
	if err := c.Connect(); err != nil {
		t.Fatal(err)
	}
	if got := c.State(); got != Connected {
		t.Errorf("state after reconnect = %v, want connected", got)
	}
	if c.LastError() != nil {
		t.Errorf("LastError not cleared by reconnect: %v", c.LastError())
	}
}

func TestController_MoveRequiresEnabled(t *testing.T) {
	c, _ := newReadyController(t)

	c.Enable(false)
	target := 10.0
	if err := c.MoveTo(&target, nil); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
	c.Enable(true)
	if err := c.MoveTo(&target, nil); err != nil {
		t.Fatal(err)
	}
}

func TestController_StopRefreshesPositionFromEncoder(t *testing.T) {
	c, bus := newReadyController(t)

	target := 200.0
	if err := c.MoveTo(&target, nil); err != nil {
		t.Fatal(err)
	}

	// The stage was interrupted mid-travel at 100 mm.
	bus.mu.Lock()
	bus.units[7].encoder = 2500 + 500000
	bus.units[1].encoder = 2500
	bus.mu.Unlock()

	if err := c.Stop(); err != nil {
		t.Fatal(err)
	}
	if got := c.State(); got != Ready {
		t.Errorf("state after stop = %v, want ready", got)
	}
	x, y := c.Position()
	if x != 100 || y != 0 {
		t.Errorf("position after stop = (%v, %v), want (100, 0)", x, y)
	}
}

func TestController_GoHome(t *testing.T) {
	c, bus := newReadyController(t)

	x, y := 150.0, 80.0
	if err := c.MoveTo(&x, &y); err != nil {
		t.Fatal(err)
	}
	if err := c.WaitIdle(context.Background()); err != nil {
		t.Fatal(err)
	}

	before := len(bus.sent)
	if err := c.GoHome(context.Background()); err != nil {
		t.Fatal(err)
	}

	bus.mu.Lock()
	targets := map[byte]int32{}
	for _, tg := range bus.sent[before:] {
		if tg.Command == monopack.CmdDriveRamp {
			targets[tg.Address] = paramInt32(tg, 1)
		}
	}
	bus.mu.Unlock()
	for _, addr := range []byte{7, 1} {
		if targets[addr] != 2500 {
			t.Errorf("home target for address %d = %d, want 2500", addr, targets[addr])
		}
	}
	px, py := c.Position()
	if px != 0 || py != 0 {
		t.Errorf("position after homing = (%v, %v), want (0, 0)", px, py)
	}
}

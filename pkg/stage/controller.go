// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 IQS Group

package stage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iqsgroup/stagectl/pkg/monopack"
)

// Controller sequences the connect / initialize / reference / move
// lifecycle of the two-axis stage. It owns the Transport; the two axis
// drivers hold non-owning references to it.
//
// All operations are safe for concurrent use. Long-running operations
// (Reference, AwaitReady, GoHome) release the controller lock while
// waiting so that State and Position stay readable; actual bus access
// is serialized by the transport itself.
type Controller struct {
	cfg Config
	bus monopack.Transport
	x   *monopack.Axis
	y   *monopack.Axis

	mu         sync.Mutex
	state      State
	referenced bool
	enabled    bool
	lastErr    error
	xMM, yMM   float64
	moving     map[AxisID]bool
	notify     func(old, new State)
}

// New creates a controller bound to a live transport. The controller
// starts Disconnected and enabled.
func New(bus monopack.Transport, cfg Config) *Controller {
	var axisOpts []monopack.AxisOption
	axisOpts = append(axisOpts, monopack.WithConverter(cfg.Converter))
	if cfg.SignedEncoder {
		axisOpts = append(axisOpts, monopack.WithSignedEncoder())
	}
	return &Controller{
		cfg:     cfg,
		bus:     bus,
		x:       monopack.NewAxis(bus, cfg.XAddress, axisOpts...),
		y:       monopack.NewAxis(bus, cfg.YAddress, axisOpts...),
		state:   Disconnected,
		enabled: true,
		moving:  make(map[AxisID]bool),
	}
}

// SetNotify registers a callback invoked on every state transition.
// The callback runs with controller internals locked and must not call
// back into the Controller; hand off to a channel or goroutine instead.
func (c *Controller) SetNotify(fn func(old, new State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notify = fn
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Position returns the last known logical position in mm. The value is
// optimistic after MoveTo (it reflects the commanded target) and stale
// before the first successful reference.
func (c *Controller) Position() (x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.xMM, c.yMM
}

// Referenced reports whether a reference search has completed.
func (c *Controller) Referenced() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.referenced
}

// LastError returns the error that moved the controller to Faulted,
// or nil.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Enable enables or disables motion operations. A disabled stage still
// answers status queries.
func (c *Controller) Enable(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = on
}

// Axis returns the driver for the given axis, for direct status
// queries. Motion commands must go through the controller.
func (c *Controller) Axis(id AxisID) (*monopack.Axis, error) {
	switch id {
	case AxisX:
		return c.x, nil
	case AxisY:
		return c.y, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAxis, id)
	}
}

// setStateLocked transitions the state and fires the notify callback.
// Caller holds c.mu.
func (c *Controller) setStateLocked(s State) {
	if s == c.state {
		return
	}
	old := c.state
	c.state = s
	if c.notify != nil {
		c.notify(old, s)
	}
}

// failLocked records err and moves the controller to Faulted. Only a
// fresh Connect recovers from Faulted. Caller holds c.mu.
func (c *Controller) failLocked(err error) error {
	c.lastErr = err
	c.setStateLocked(Faulted)
	return err
}

// Connect verifies both axes answer a version query and transitions to
// Connected. It is the only operation permitted in Faulted and never
// lets a transport error escape unwrapped: on failure the state is
// unchanged (or Disconnected) and a ConnectionError is returned.
func (c *Controller) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Equal addresses would make one unit answer both queries, which
	// the bus cannot tell apart, so collisions are rejected before any
	// frame goes out.
	if c.cfg.XAddress == c.cfg.YAddress {
		c.setStateLocked(Disconnected)
		return &ConnectionError{Axis: AxisY, Err: fmt.Errorf("axes share device address %d", c.cfg.XAddress)}
	}

	if _, err := c.x.Version(); err != nil {
		c.setStateLocked(Disconnected)
		return &ConnectionError{Axis: AxisX, Err: err}
	}
	if _, err := c.y.Version(); err != nil {
		c.setStateLocked(Disconnected)
		return &ConnectionError{Axis: AxisY, Err: err}
	}

	c.lastErr = nil
	for k := range c.moving {
		delete(c.moving, k)
	}
	c.setStateLocked(Connected)
	return nil
}

// Versions queries the firmware info of both axes. Valid once
// connected.
func (c *Controller) Versions() (x, y monopack.VersionInfo, err error) {
	x, err = c.x.Version()
	if err != nil {
		return x, y, err
	}
	y, err = c.y.Version()
	return x, y, err
}

// Initialize applies the default parameter sequence to both axes. The
// order is deliberate: alarms and the position counter are reset before
// any motion-affecting parameter changes, and the phase currents are
// written twice, a conservative set first and the operating set only
// after ramp parameters are in place, so the motor never sees full
// current while the configuration is half-applied.
//
// If the stage is already referenced the positions are refreshed;
// otherwise a reference search is run.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Connected {
		c.mu.Unlock()
		return &StateError{Op: "initialize", State: c.state}
	}
	c.mu.Unlock()

	type axisInit struct {
		axis *monopack.Axis
		run  monopack.CurrentControl
	}
	for _, ai := range []axisInit{
		{c.x, c.cfg.XRunCurrent},
		{c.y, c.cfg.YRunCurrent},
	} {
		if err := c.initAxis(ai.axis, ai.run); err != nil {
			c.mu.Lock()
			defer c.mu.Unlock()
			return c.failLocked(fmt.Errorf("initialize axis %d: %w", ai.axis.Address(), err))
		}
	}

	c.mu.Lock()
	referenced := c.referenced
	c.mu.Unlock()

	if referenced {
		if err := c.RefreshPosition(); err != nil {
			return err
		}
		c.mu.Lock()
		c.setStateLocked(Ready)
		c.mu.Unlock()
		return nil
	}
	return c.Reference(ctx, BothAxes...)
}

func (c *Controller) initAxis(a *monopack.Axis, run monopack.CurrentControl) error {
	const apply = monopack.StoreApply

	if _, err := a.ResetAlarm(); err != nil {
		return err
	}
	if err := a.SetBusSendID(apply, uint32(a.Address())); err != nil {
		return err
	}
	// PID follow mode off before touching the position counter.
	if err := a.PID6F(monopack.StorePersist, 0); err != nil {
		return err
	}
	if err := a.ResetPosition(); err != nil {
		return err
	}
	if err := a.SetAlarmMode(apply, true, true); err != nil {
		return err
	}
	// Conservative currents while the rest of the setup is negotiated.
	if err := a.SetCurrentControl(apply, monopack.CurrentControl{Standby: 0, Active: 0x80, Acceleration: 0xC8}); err != nil {
		return err
	}
	if err := a.SetDeviationAlarm(apply, false, 0, 1); err != nil {
		return err
	}
	if err := a.ConfigureAutoCorrection(apply, 5, 10); err != nil {
		return err
	}
	if err := a.SetFrequencyRange(apply, a.Converter().Predivider); err != nil {
		return err
	}
	if err := a.SetMicrostepResolution(apply, 50, 0, true); err != nil {
		return err
	}
	if err := a.ConfigureEncoder(apply, monopack.EncoderConfig{Flags: 64, Predivider: 3, Deviation: 16, Multiplier: 2}); err != nil {
		return err
	}
	if err := a.SetSwitchMode(apply, monopack.SwitchMode{StopIsReference: true, Linear: true}); err != nil {
		return err
	}
	if err := a.SetVelocity(apply, c.cfg.Velocity, c.cfg.Acceleration); err != nil {
		return err
	}
	if err := a.SetCurrentControl(apply, monopack.CurrentControl{Standby: 0x47, Active: 0x99, Acceleration: 0xE0}); err != nil {
		return err
	}
	if err := a.ConfigureAutoCorrection(apply, 5, 50); err != nil {
		return err
	}
	if err := a.SetStopDeceleration(apply, 0); err != nil {
		return err
	}
	// Operating currents last.
	if err := a.SetCurrentControl(apply, run); err != nil {
		return err
	}
	return a.SetReferenceSearchVelocity(apply, c.cfg.RefSearchVelocity)
}

// Reference runs the homing procedure on the requested axes: start the
// reference search, poll each search to completion, switch the PID
// follow mode off, zero the position counters, then drive to the
// post-reference offset and poll again. Motion commands issued during
// an active search would silently abort it, so the whole procedure is
// serialized here.
func (c *Controller) Reference(ctx context.Context, axes ...AxisID) error {
	if len(axes) == 0 {
		axes = BothAxes
	}

	c.mu.Lock()
	if c.state != Connected && c.state != Ready {
		c.mu.Unlock()
		return &StateError{Op: "reference", State: c.state}
	}
	c.setStateLocked(Referencing)
	c.mu.Unlock()

	fail := func(err error) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.failLocked(err)
	}

	drivers := make([]*monopack.Axis, 0, len(axes))
	for _, id := range axes {
		a, err := c.Axis(id)
		if err != nil {
			return fail(err)
		}
		drivers = append(drivers, a)
	}

	for _, a := range drivers {
		if err := a.ReferenceSearch(); err != nil {
			return fail(fmt.Errorf("reference search axis %d: %w", a.Address(), err))
		}
	}
	for _, a := range drivers {
		if err := c.awaitAxis(ctx, a); err != nil {
			return fail(fmt.Errorf("await reference axis %d: %w", a.Address(), err))
		}
	}

	// The searches are done; release the follow mode and zero the
	// counters, pausing for the device to settle in between.
	for _, a := range []*monopack.Axis{c.x, c.y} {
		if err := a.PID6F(monopack.StorePersist, 0); err != nil {
			return fail(err)
		}
	}
	if err := sleepCtx(ctx, c.cfg.PIDSettle); err != nil {
		return fail(err)
	}
	for _, a := range []*monopack.Axis{c.x, c.y} {
		if err := a.ResetPosition(); err != nil {
			return fail(err)
		}
	}
	if err := sleepCtx(ctx, c.cfg.ResetSettle); err != nil {
		return fail(err)
	}

	// Back off the reference switch to the logical origin.
	for _, a := range drivers {
		if err := a.DriveRamp(monopack.StoreApply, c.cfg.PostRefOffset); err != nil {
			return fail(fmt.Errorf("post-reference offset axis %d: %w", a.Address(), err))
		}
	}
	for _, a := range drivers {
		if err := c.awaitAxis(ctx, a); err != nil {
			return fail(fmt.Errorf("await offset axis %d: %w", a.Address(), err))
		}
	}

	c.mu.Lock()
	c.referenced = true
	for _, id := range axes {
		c.setPositionLocked(id, 0)
		delete(c.moving, id)
	}
	c.setStateLocked(Ready)
	c.mu.Unlock()
	return nil
}

// MoveTo drives the requested axes to absolute positions in mm. Nil
// coordinates leave that axis untouched. Targets are clamped into the
// soft limits once, before conversion; the position cache is updated to
// the commanded (clamped) target without waiting for arrival.
func (c *Controller) MoveTo(xMM, yMM *float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Ready && c.state != Moving {
		return &StateError{Op: "move", State: c.state}
	}
	if !c.referenced {
		return ErrNotReferenced
	}
	if !c.enabled {
		return ErrDisabled
	}

	type target struct {
		id   AxisID
		axis *monopack.Axis
		mm   float64
	}
	var targets []target
	if xMM != nil {
		targets = append(targets, target{AxisX, c.x, c.cfg.XLimits.Clamp(*xMM)})
	}
	if yMM != nil {
		targets = append(targets, target{AxisY, c.y, c.cfg.YLimits.Clamp(*yMM)})
	}
	if len(targets) == 0 {
		return nil
	}

	for _, tgt := range targets {
		raw := c.cfg.PostRefOffset + c.cfg.Converter.PositionToRaw(tgt.mm)
		if err := tgt.axis.DriveRamp(monopack.StorePersist, raw); err != nil {
			return c.failLocked(fmt.Errorf("move axis %d: %w", tgt.axis.Address(), err))
		}
		c.setPositionLocked(tgt.id, tgt.mm)
		c.moving[tgt.id] = true
	}
	c.setStateLocked(Moving)
	return nil
}

// AwaitReady blocks until the given axis reports zero velocity with no
// reference search active on two consecutive polls, debouncing the
// transient zero readings a direction reversal produces. The poll loop
// is bounded by ctx and by MaxPolls; exceeding either is a timeout, and
// a timeout faults the controller.
func (c *Controller) AwaitReady(ctx context.Context, id AxisID) error {
	a, err := c.Axis(id)
	if err != nil {
		return err
	}

	if err := c.awaitAxis(ctx, a); err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.failLocked(fmt.Errorf("await axis %s: %w", id, err))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.moving, id)
	if c.state == Moving && len(c.moving) == 0 {
		c.setStateLocked(Ready)
	}
	return nil
}

// WaitIdle awaits readiness of every axis that has a move in flight.
func (c *Controller) WaitIdle(ctx context.Context) error {
	c.mu.Lock()
	pending := make([]AxisID, 0, len(c.moving))
	for id := range c.moving {
		pending = append(pending, id)
	}
	c.mu.Unlock()

	for _, id := range pending {
		if err := c.AwaitReady(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// awaitAxis is the bare polling loop, shared by referencing and moves.
func (c *Controller) awaitAxis(ctx context.Context, a *monopack.Axis) error {
	consecutive := 0
	for poll := 0; poll < c.cfg.MaxPolls; poll++ {
		st, err := a.MotionStatus()
		if err != nil {
			return err
		}
		if st.Stopped() {
			consecutive++
			if consecutive >= 2 {
				return nil
			}
		} else {
			consecutive = 0
		}
		if err := sleepCtx(ctx, c.cfg.PollInterval); err != nil {
			return fmt.Errorf("%w: %v", ErrAwaitTimeout, err)
		}
	}
	return fmt.Errorf("%w after %d polls", ErrAwaitTimeout, c.cfg.MaxPolls)
}

// Stop decelerates both axes with a soft stop and refreshes the
// position cache from the encoders, since a soft stop does not land on
// the commanded target.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.state != Moving && c.state != Ready {
		c.mu.Unlock()
		return &StateError{Op: "stop", State: c.state}
	}
	c.mu.Unlock()

	for _, a := range []*monopack.Axis{c.x, c.y} {
		if err := a.SoftStop(); err != nil {
			c.mu.Lock()
			defer c.mu.Unlock()
			return c.failLocked(fmt.Errorf("soft stop axis %d: %w", a.Address(), err))
		}
	}

	if err := c.RefreshPosition(); err != nil {
		return err
	}

	c.mu.Lock()
	for k := range c.moving {
		delete(c.moving, k)
	}
	c.setStateLocked(Ready)
	c.mu.Unlock()
	return nil
}

// GoHome moves the requested axes to the logical origin and waits for
// arrival.
func (c *Controller) GoHome(ctx context.Context, axes ...AxisID) error {
	if len(axes) == 0 {
		axes = BothAxes
	}

	zero := 0.0
	var x, y *float64
	for _, id := range axes {
		switch id {
		case AxisX:
			x = &zero
		case AxisY:
			y = &zero
		default:
			return fmt.Errorf("%w: %q", ErrUnknownAxis, id)
		}
	}

	if err := c.MoveTo(x, y); err != nil {
		return err
	}
	return c.WaitIdle(ctx)
}

// RefreshPosition reads the encoder counters and replaces the cached
// positions with measured ones.
func (c *Controller) RefreshPosition() error {
	xRaw, err := c.x.EncoderCounter()
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.failLocked(fmt.Errorf("read encoder axis %d: %w", c.x.Address(), err))
	}
	yRaw, err := c.y.EncoderCounter()
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.failLocked(fmt.Errorf("read encoder axis %d: %w", c.y.Address(), err))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.xMM = c.cfg.Converter.RawToPosition(int(xRaw) - c.cfg.PostRefOffset)
	c.yMM = c.cfg.Converter.RawToPosition(int(yRaw) - c.cfg.PostRefOffset)
	return nil
}

func (c *Controller) setPositionLocked(id AxisID, mm float64) {
	switch id {
	case AxisX:
		c.xMM = mm
	case AxisY:
		c.yMM = mm
	}
}

// sleepCtx pauses for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

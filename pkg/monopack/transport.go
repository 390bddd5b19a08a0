// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 IQS Group

package monopack

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Transport is a request/response channel to the Monopack bus. The bus
// is half-duplex and answers carry no sequence numbers, so responses
// correlate with requests by arrival order only: implementations must
// never have two exchanges in flight at once.
type Transport interface {
	// Send transmits one command telegram that has no defined answer.
	Send(frame [FrameSize]byte) error

	// Exchange transmits one command telegram and blocks for its
	// answer telegram or a timeout.
	Exchange(frame [FrameSize]byte) ([FrameSize]byte, error)
}

// Bus adapts a byte stream (serial port or bridged remote connection)
// into a Transport. It serializes all access with an internal mutex, so
// two axes sharing one Bus cannot interleave request/response windows.
//
// The underlying stream should return from Read periodically (e.g. a
// serial port with a read timeout) so that the response deadline can be
// enforced.
type Bus struct {
	mu      sync.Mutex
	rw      io.ReadWriter
	timeout time.Duration
	trace   *Trace
	closed  bool
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithTimeout sets the per-exchange response deadline.
func WithTimeout(d time.Duration) BusOption {
	return func(b *Bus) { b.timeout = d }
}

// WithTrace records every transmitted and received telegram.
func WithTrace(tr *Trace) BusOption {
	return func(b *Bus) { b.trace = tr }
}

// NewBus wraps rw into a half-duplex Transport. The default response
// deadline is one second.
func NewBus(rw io.ReadWriter, opts ...BusOption) *Bus {
	b := &Bus{rw: rw, timeout: time.Second}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Close marks the bus closed. It does not close the underlying stream;
// the caller owns that.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Send implements Transport.
func (b *Bus) Send(frame [FrameSize]byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.write(frame)
}

// Exchange implements Transport. The mutex is held for the full
// request/response window and released between exchanges.
func (b *Bus) Exchange(frame [FrameSize]byte) ([FrameSize]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var resp [FrameSize]byte
	if err := b.write(frame); err != nil {
		return resp, err
	}

	deadline := time.Now().Add(b.timeout)
	got := 0
	for got < FrameSize {
		if time.Now().After(deadline) {
			return resp, fmt.Errorf("%w: no answer to command 0x%02X within %v", ErrTimeout, frame[1], b.timeout)
		}
		n, err := b.rw.Read(resp[got:])
		if err != nil {
			return resp, &TransportError{Op: "read", Err: err}
		}
		got += n
	}

	if b.trace != nil {
		b.trace.Record(DirReceive, resp)
	}
	return resp, nil
}

func (b *Bus) write(frame [FrameSize]byte) error {
	if b.closed {
		return ErrBusClosed
	}
	if _, err := b.rw.Write(frame[:]); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	if b.trace != nil {
		b.trace.Record(DirSend, frame)
	}
	return nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 IQS Group

package monopack

import (
	"io"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Direction of a traced telegram.
type Direction uint8

const (
	DirSend    Direction = 0
	DirReceive Direction = 1
)

func (d Direction) String() string {
	if d == DirSend {
		return "send"
	}
	return "recv"
}

// TraceRecord is one captured bus telegram. Records are written as a
// CBOR stream, one record per telegram, so captures can be replayed or
// inspected offline.
type TraceRecord struct {
	Time      time.Time `cbor:"0,keyasint"`
	Direction Direction `cbor:"1,keyasint"`
	Frame     []byte    `cbor:"2,keyasint"`
}

// Telegram decodes the captured frame.
func (r TraceRecord) Telegram() (Telegram, error) {
	return Decode(r.Frame)
}

// Trace records bus telegrams to a writer as a CBOR stream. Safe for
// use from the Bus exchange path.
type Trace struct {
	mu  sync.Mutex
	enc *cbor.Encoder
	err error
}

// NewTrace creates a trace recorder writing to w.
func NewTrace(w io.Writer) *Trace {
	return &Trace{enc: cbor.NewEncoder(w)}
}

// Record appends one telegram to the trace. Encoding errors are sticky
// and reported by Err; recording never fails the bus exchange itself.
func (t *Trace) Record(dir Direction, frame [FrameSize]byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return
	}
	rec := TraceRecord{
		Time:      time.Now(),
		Direction: dir,
		Frame:     append([]byte(nil), frame[:]...),
	}
	t.err = t.enc.Encode(rec)
}

// Err returns the first encoding error, if any.
func (t *Trace) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// TraceReader reads back a CBOR telegram trace.
type TraceReader struct {
	dec *cbor.Decoder
}

// NewTraceReader creates a reader over a recorded trace stream.
func NewTraceReader(r io.Reader) *TraceReader {
	return &TraceReader{dec: cbor.NewDecoder(r)}
}

// Next returns the next record, or io.EOF at end of stream.
func (tr *TraceReader) Next() (TraceRecord, error) {
	var rec TraceRecord
	err := tr.dec.Decode(&rec)
	return rec, err
}

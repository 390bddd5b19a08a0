// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 IQS Group

package monopack

import "fmt"

// Telegram is one decoded 9-byte command or answer frame.
type Telegram struct {
	Address byte
	Command byte
	Params  [7]byte // P0..P6
}

// NewTelegram builds a command telegram from up to seven parameter
// bytes. Missing trailing parameters are zero.
func NewTelegram(address, command byte, params ...byte) Telegram {
	t := Telegram{Address: address, Command: command}
	copy(t.Params[:], params)
	return t
}

// Encode serializes the telegram to its wire format.
func (t Telegram) Encode() [FrameSize]byte {
	var f [FrameSize]byte
	f[0] = t.Address
	f[1] = t.Command
	copy(f[2:], t.Params[:])
	return f
}

// Decode parses a wire frame into a Telegram. The frame must be exactly
// FrameSize bytes.
func Decode(frame []byte) (Telegram, error) {
	if len(frame) != FrameSize {
		return Telegram{}, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedFrame, len(frame), FrameSize)
	}
	t := Telegram{Address: frame[0], Command: frame[1]}
	copy(t.Params[:], frame[2:])
	return t, nil
}

// P returns parameter byte Pn (n in 0..6).
func (t Telegram) P(n int) byte {
	return t.Params[n]
}

// putUint16 stores v little-endian into P[n], P[n+1].
func (t *Telegram) putUint16(n int, v uint16) {
	t.Params[n] = byte(v)
	t.Params[n+1] = byte(v >> 8)
}

// putInt16 stores a two's-complement 16-bit value. Ramp quantities
// (velocity, acceleration, bow) occupy the low 14 bits of this field.
func (t *Telegram) putInt16(n int, v int16) {
	t.putUint16(n, uint16(v))
}

// putUint32 stores v little-endian into P[n]..P[n+3].
func (t *Telegram) putUint32(n int, v uint32) {
	t.Params[n] = byte(v)
	t.Params[n+1] = byte(v >> 8)
	t.Params[n+2] = byte(v >> 16)
	t.Params[n+3] = byte(v >> 24)
}

// putInt32 stores a two's-complement 32-bit value. Ramp positions use
// the signed 24-bit subrange of this field.
func (t *Telegram) putInt32(n int, v int32) {
	t.putUint32(n, uint32(v))
}

// uint16At reads a little-endian 16-bit value from P[n], P[n+1].
func (t Telegram) uint16At(n int) uint16 {
	return uint16(t.Params[n]) | uint16(t.Params[n+1])<<8
}

// int16At reads a two's-complement 16-bit value.
func (t Telegram) int16At(n int) int16 {
	return int16(t.uint16At(n))
}

// int12At reads a 12-bit two's-complement value stored in two bytes
// (actual velocity and acceleration in the $21 answer).
func (t Telegram) int12At(n int) int16 {
	return int16(t.uint16At(n)<<4) >> 4
}

// uint24At reads a little-endian 24-bit value from P[n]..P[n+2].
func (t Telegram) uint24At(n int) uint32 {
	return uint32(t.Params[n]) | uint32(t.Params[n+1])<<8 | uint32(t.Params[n+2])<<16
}

// int24At sign-extends a 24-bit two's-complement value.
func (t Telegram) int24At(n int) int32 {
	return int32(t.uint24At(n)<<8) >> 8
}

// uint32At reads a little-endian 32-bit value from P[n]..P[n+3].
func (t Telegram) uint32At(n int) uint32 {
	return uint32(t.Params[n]) | uint32(t.Params[n+1])<<8 |
		uint32(t.Params[n+2])<<16 | uint32(t.Params[n+3])<<24
}

// int32At reads a two's-complement 32-bit value.
func (t Telegram) int32At(n int) int32 {
	return int32(t.uint32At(n))
}

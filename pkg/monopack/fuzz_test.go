// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 IQS Group

package monopack

import "testing"

func FuzzDecode(f *testing.F) {
	f.Add([]byte{7, 0x23, 0x01, 0xC4, 0x09, 0x00, 0x00, 0x00, 0x00})
	f.Add([]byte{0, 0, 0, 0, 0, 0, 0, 0, 0})
	f.Add([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	f.Add([]byte{})
	f.Add([]byte{1, 2, 3})

	f.Fuzz(func(t *testing.T, data []byte) {
		tg, err := Decode(data)
		if len(data) != FrameSize {
			if err == nil {
				t.Fatalf("Decode accepted %d bytes", len(data))
			}
			return
		}
		if err != nil {
			t.Fatalf("Decode rejected a %d-byte frame: %v", FrameSize, err)
		}

		// Re-encoding a decoded frame must reproduce the input exactly.
		encoded := tg.Encode()
		for i := range encoded {
			if encoded[i] != data[i] {
				t.Fatalf("byte %d: got 0x%02X, want 0x%02X", i, encoded[i], data[i])
			}
		}
	})
}

func FuzzFormatTelegram(f *testing.F) {
	f.Add(uint8(7), uint8(0x23))
	f.Add(uint8(0), uint8(0))
	f.Add(uint8(255), uint8(255))

	f.Fuzz(func(t *testing.T, addr, cmd uint8) {
		tg := NewTelegram(addr, cmd, 1, 2, 3)
		if s := FormatTelegram(DirSend, tg); s == "" {
			t.Error("formatter returned empty string")
		}
	})
}

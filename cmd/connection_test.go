// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 IQS Group

package cmd

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// silentBridge upgrades the connection and then never sends anything,
// like a serial bridge whose device side went dead.
func silentBridge(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		// Hold the connection open without writing until the client
		// goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestWebSocketConnection_ReadTimesOutOnSilentBridge(t *testing.T) {
	srv := silentBridge(t)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}

	ws := &WebSocketConnection{conn: conn, readTimeout: 50 * time.Millisecond}
	defer ws.Close()

	start := time.Now()
	buf := make([]byte, 16)
	n, err := ws.Read(buf)
	if err == nil {
		t.Fatalf("Read returned %d bytes, want timeout error", n)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Read blocked for %v, want return near the 50ms deadline", elapsed)
	}

	// The deadline corrupts the stream, so the connection must now
	// report itself closed instead of reading again.
	if _, err := ws.Read(buf); err != ErrConnectionClosed {
		t.Errorf("second Read error = %v, want ErrConnectionClosed", err)
	}
}

func TestWebSocketConnection_ReadDrainsBufferedMessage(t *testing.T) {
	upgrader := websocket.Upgrader{}
	payload := []byte{0x01, 0x14, 0, 0xF5, 0, 0x33, 0x13, 0, 0}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		if err := conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
			t.Errorf("write failed: %v", err)
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}

	ws := &WebSocketConnection{conn: conn, readTimeout: time.Second}
	defer ws.Close()

	// Read in two chunks smaller than the message to exercise the
	// carry-over buffer.
	got := make([]byte, 0, len(payload))
	for len(got) < len(payload) {
		buf := make([]byte, 5)
		n, err := ws.Read(buf)
		if err != nil {
			t.Fatalf("Read after %d bytes: %v", len(got), err)
		}
		got = append(got, buf[:n]...)
	}
	if string(got) != string(payload) {
		t.Errorf("read %x, want %x", got, payload)
	}
}

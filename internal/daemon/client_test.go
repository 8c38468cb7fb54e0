package daemon

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"

	"verbatim/internal/reconcile"
)

// startMockDaemon creates a Unix socket that accepts one connection,
// reads a command, and writes back a canned response. The received
// command is delivered on the returned channel.
func startMockDaemon(t *testing.T, response Response) (string, <-chan Command, func()) {
	t.Helper()

	dir := t.TempDir()
	sockPath := filepath.Join(dir, "test.sock")

	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	received := make(chan Command, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		buf := make([]byte, 4096)
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		var cmd Command
		if err := json.Unmarshal(buf[:n], &cmd); err == nil {
			received <- cmd
		}

		data, _ := json.Marshal(response)
		conn.Write(append(data, '\n'))
	}()

	return sockPath, received, func() {
		ln.Close()
		os.Remove(sockPath)
	}
}

func TestClientSendCommand(t *testing.T) {
	recording := true
	resp := Response{
		OK:        true,
		SessionID: "sess-1",
		Recording: &recording,
	}

	sockPath, _, cleanup := startMockDaemon(t, resp)
	defer cleanup()

	client, err := Connect(sockPath)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	got, err := client.SendCommand(Command{Cmd: "start"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if !got.OK {
		t.Error("ok = false, want true")
	}
	if got.SessionID != "sess-1" {
		t.Errorf("sessionId = %q, want %q", got.SessionID, "sess-1")
	}
}

func TestClientSendHypothesis(t *testing.T) {
	sockPath, received, cleanup := startMockDaemon(t, Response{OK: true})
	defer cleanup()

	client, err := Connect(sockPath)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	conf := 0.8
	resp, err := client.SendHypothesis(reconcile.Hypothesis{
		ID:         "h1",
		Text:       "hello",
		Start:      0,
		End:        900,
		Confidence: &conf,
		Revision:   2,
		Final:      true,
	})
	if err != nil {
		t.Fatalf("send hypothesis: %v", err)
	}
	if !resp.OK {
		t.Error("ok = false, want true")
	}

	cmd := <-received
	if cmd.Cmd != "hypothesis" {
		t.Errorf("cmd = %q, want %q", cmd.Cmd, "hypothesis")
	}
	if cmd.ID != "h1" || cmd.Revision != 2 || !cmd.Final {
		t.Errorf("command = %+v", cmd)
	}
	if cmd.StartMs == nil || *cmd.StartMs != 0 {
		t.Errorf("startMs = %v, want 0", cmd.StartMs)
	}
	if cmd.EndMs == nil || *cmd.EndMs != 900 {
		t.Errorf("endMs = %v, want 900", cmd.EndMs)
	}
	if cmd.Confidence == nil || *cmd.Confidence != 0.8 {
		t.Errorf("confidence = %v, want 0.8", cmd.Confidence)
	}
}

func TestClientConnectFailure(t *testing.T) {
	_, err := Connect("/nonexistent/path/verbatimd.sock")
	if err == nil {
		t.Error("expected error connecting to nonexistent socket")
	}
}

// startMockEventStream creates a daemon that sends a subscribe response
// then streams events.
func startMockEventStream(t *testing.T, events []Event) (string, func()) {
	t.Helper()

	dir := t.TempDir()
	sockPath := filepath.Join(dir, "test.sock")

	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		// Read subscribe command
		buf := make([]byte, 4096)
		conn.Read(buf)

		// Send subscribe response
		resp, _ := json.Marshal(Response{OK: true})
		conn.Write(append(resp, '\n'))

		// Stream events
		for _, ev := range events {
			data, _ := json.Marshal(ev)
			conn.Write(append(data, '\n'))
		}
	}()

	return sockPath, func() {
		ln.Close()
		os.Remove(sockPath)
	}
}

func TestClientReadEvents(t *testing.T) {
	partial := ToWire(provisionalSegment("a", "hel", 0, 400, 1))
	final := ToWire(finalizedSegment("a", "hello", 0, 900, 2))
	events := []Event{
		{Event: "partial", SessionID: "sess-1", Segment: &partial},
		{Event: "segment", SessionID: "sess-1", Segment: &final},
	}

	sockPath, cleanup := startMockEventStream(t, events)
	defer cleanup()

	client, err := Connect(sockPath)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	// Send subscribe
	_, err = client.SendCommand(Command{Cmd: "subscribe"})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// Read first event
	ev1, err := client.ReadEvent()
	if err != nil {
		t.Fatalf("read event 1: %v", err)
	}
	if ev1.Event != "partial" || ev1.Segment == nil || ev1.Segment.Text != "hel" {
		t.Errorf("event1 = %+v", ev1)
	}

	// Read second event
	ev2, err := client.ReadEvent()
	if err != nil {
		t.Fatalf("read event 2: %v", err)
	}
	if ev2.Event != "segment" || ev2.Segment == nil || ev2.Segment.Text != "hello" {
		t.Errorf("event2 = %+v", ev2)
	}
	if ev2.Segment.Revision != 2 {
		t.Errorf("revision = %d, want 2", ev2.Segment.Revision)
	}
}

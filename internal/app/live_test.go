package app

import (
	"fmt"
	"os"
	"testing"
	"time"

	"verbatim/internal/daemon"

	tea "github.com/charmbracelet/bubbletea"
)

// TestLiveTUIFlow exercises the full TUI model lifecycle against a running
// daemon. Skipped if the daemon isn't running.
func TestLiveTUIFlow(t *testing.T) {
	sockPath := daemon.SocketPath()
	if _, err := os.Stat(sockPath); os.IsNotExist(err) {
		t.Skip("daemon not running")
	}

	cfg := DefaultConfig()
	m := New(cfg)

	// Simulate terminal size
	m, _ = applyUpdate(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	view := m.View()
	if view == "Initializing..." {
		t.Error("view should render after WindowSizeMsg")
	}
	fmt.Println("=== Initial View ===")
	fmt.Println(view)

	// Connect to daemon: command connection plus event subscription
	client, err := daemon.Connect(sockPath)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	evClient, err := daemon.Connect(sockPath)
	if err != nil {
		t.Fatalf("connect event: %v", err)
	}
	defer evClient.Close()

	m, _ = applyUpdate(m, DaemonConnectedMsg{Client: client, EvClient: evClient})
	if !m.connected {
		t.Fatal("expected connected")
	}
	fmt.Printf("Connected: status=%q\n", m.statusText)

	// Fetch status
	resp, err := client.SendCommand(daemon.Command{Cmd: "status"})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	m, _ = applyUpdate(m, StatusResponseMsg{Response: resp})
	fmt.Printf("Status: recording=%v status=%q\n", m.recording, m.statusText)

	// Render view in connected state
	view = m.View()
	fmt.Println("\n=== Connected View ===")
	fmt.Println(view)

	// Subscribe for events on the second connection
	subResp, err := evClient.SendCommand(daemon.Command{Cmd: "subscribe"})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if !subResp.OK {
		t.Fatalf("subscribe failed: %s", subResp.Error)
	}

	// Start a session via the command connection
	resp, err = client.SendCommand(daemon.Command{Cmd: "start"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	m, _ = applyUpdate(m, StartResponseMsg{Response: resp})
	fmt.Printf("\nStarted session: sessionId=%s recording=%v\n", m.sessionID, m.recording)

	// Read events for 5 seconds
	fmt.Println("\n=== Collecting events for 5 seconds ===")
	eventCounts := map[string]int{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		deadline := time.After(5 * time.Second)
		for {
			select {
			case <-deadline:
				return
			default:
				ev, err := evClient.ReadEvent()
				if err != nil {
					fmt.Printf("Event read error: %v\n", err)
					return
				}
				eventCounts[ev.Event]++

				// Feed events into model
				switch ev.Event {
				case "partial":
					m.handleEvent(ev)
					if ev.Segment != nil {
						fmt.Printf("  partial: %q\n", ev.Segment.Text)
					}
				case "segment":
					m.handleEvent(ev)
					if ev.Segment != nil {
						fmt.Printf("  segment: %q [%d,%d)\n", ev.Segment.Text, ev.Segment.StartMs, ev.Segment.EndMs)
					}
				case "corrected":
					m.handleEvent(ev)
					if ev.Segment != nil {
						fmt.Printf("  corrected: %q\n", ev.Segment.Text)
					}
				case "status":
					m.handleEvent(ev)
					fmt.Printf("  status: recording=%v\n", ev.Recording)
				case "error":
					m.handleEvent(ev)
					fmt.Printf("  error: %s\n", ev.Message)
				default:
					fmt.Printf("  %s event\n", ev.Event)
				}
			}
		}
	}()

	<-done

	// Render view during recording
	view = m.View()
	fmt.Println("\n=== Recording View ===")
	fmt.Println(view)

	// Stop the session
	resp, err = client.SendCommand(daemon.Command{Cmd: "stop"})
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	m, _ = applyUpdate(m, StopResponseMsg{Response: resp})
	fmt.Printf("\nStopped: recording=%v\n", m.recording)

	// Render final view
	view = m.View()
	fmt.Println("\n=== Final View ===")
	fmt.Println(view)

	// Event summary
	fmt.Println("\n=== Event Summary ===")
	total := 0
	for evType, count := range eventCounts {
		fmt.Printf("  %s: %d\n", evType, count)
		total += count
	}
	fmt.Printf("  Total: %d events\n", total)
	fmt.Printf("  Segments held: %d (%d pending)\n", len(m.segments), m.pending)

	if total == 0 {
		t.Error("expected at least a status event during the 5s session")
	}

	// Clean up
	client.Close()
}

func applyUpdate(m Model, msg tea.Msg) (Model, tea.Cmd) {
	newModel, cmd := m.Update(msg)
	return newModel.(Model), cmd
}

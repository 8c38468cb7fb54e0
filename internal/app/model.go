package app

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"verbatim/internal/daemon"
	"verbatim/internal/export"
	"verbatim/internal/follow"
	"verbatim/internal/playback"
	"verbatim/internal/transcript"
	"verbatim/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

// Mode selects what the transcript panel tracks: the live stream or the
// replay cursor.
type Mode int

const (
	ModeLive Mode = iota
	ModePlayback
)

// playbackTick is the replay clock advance interval.
const playbackTick = 100 * time.Millisecond

// seekStep is the jump applied by the seek keys during replay.
const seekStep = 5 * time.Second

// Model is the root bubbletea model for the verbatim TUI.
type Model struct {
	cfg Config

	// Connection state
	client    *daemon.Client // command connection
	evClient  *daemon.Client // event subscription connection
	connected bool
	connError string

	// Session state
	recording bool
	sessionID string

	// Transcript, ordered by start time. Provisional and committed
	// segments are mixed; pending counts the provisionals.
	segments []transcript.Segment
	pending  int

	// Follow policy for the live view
	follow *follow.Controller
	scroll int // first visible line while parked

	// Replay
	mode     Mode
	playing  bool
	playhead int64 // ms on the session audio clock

	// Errors and notices
	errorMessage   string
	errorTransient bool
	notice         string

	// Status
	statusText string

	// Reconnect
	reconnecting     bool
	reconnectAttempt int

	width  int
	height int
}

// New creates a new Model with default state.
func New(cfg Config) Model {
	return Model{
		cfg:        cfg,
		follow:     follow.NewController(cfg.IdleThreshold()),
		statusText: "Connecting to verbatimd...",
	}
}

// Init returns the initial command — connect to the daemon.
func (m Model) Init() tea.Cmd {
	return connectCmd(m.cfg.Socket)
}

// connectCmd attempts to connect to the daemon with two connections:
// one for commands, one for event subscription.
func connectCmd(socket string) tea.Cmd {
	return func() tea.Msg {
		client, err := daemon.Connect(socket)
		if err != nil {
			return DaemonConnectErrorMsg{Err: err}
		}
		evClient, err := daemon.Connect(socket)
		if err != nil {
			client.Close()
			return DaemonConnectErrorMsg{Err: err}
		}
		return DaemonConnectedMsg{Client: client, EvClient: evClient}
	}
}

// subscribeCmd sends a subscribe command on the event client and starts reading events.
func subscribeCmd(evClient *daemon.Client) tea.Cmd {
	return func() tea.Msg {
		_, err := evClient.SendCommand(daemon.Command{Cmd: "subscribe"})
		if err != nil {
			return DaemonEventErrorMsg{Err: err}
		}
		return readEventCmd(evClient)()
	}
}

// readEventCmd reads the next event from the event client.
func readEventCmd(evClient *daemon.Client) tea.Cmd {
	return func() tea.Msg {
		ev, err := evClient.ReadEvent()
		if err != nil {
			return DaemonEventErrorMsg{Err: err}
		}
		return DaemonEventMsg{Event: ev}
	}
}

// statusCmd fetches daemon status.
func statusCmd(client *daemon.Client) tea.Cmd {
	return func() tea.Msg {
		resp, err := client.SendCommand(daemon.Command{Cmd: "status"})
		if err != nil {
			return DaemonEventErrorMsg{Err: err}
		}
		return StatusResponseMsg{Response: resp}
	}
}

// snapshotCmd fetches the current segments of a session, to catch up when
// the TUI attaches while a session is already in flight.
func snapshotCmd(client *daemon.Client, sessionID string) tea.Cmd {
	return func() tea.Msg {
		resp, err := client.SendCommand(daemon.Command{Cmd: "snapshot", SessionID: sessionID})
		if err != nil {
			return DaemonEventErrorMsg{Err: err}
		}
		return SnapshotResponseMsg{Response: resp}
	}
}

// startCmd sends a start session command.
func startCmd(client *daemon.Client, locale string) tea.Cmd {
	return func() tea.Msg {
		resp, err := client.SendCommand(daemon.Command{Cmd: "start", Locale: locale})
		if err != nil {
			return DaemonEventErrorMsg{Err: err}
		}
		return StartResponseMsg{Response: resp}
	}
}

// stopCmd sends a stop session command.
func stopCmd(client *daemon.Client) tea.Cmd {
	return func() tea.Msg {
		resp, err := client.SendCommand(daemon.Command{Cmd: "stop"})
		if err != nil {
			return DaemonEventErrorMsg{Err: err}
		}
		return StopResponseMsg{Response: resp}
	}
}

// exportCmd asks the daemon to render and write an export file.
func exportCmd(client *daemon.Client, cmd daemon.Command) tea.Cmd {
	return func() tea.Msg {
		resp, err := client.SendCommand(cmd)
		if err != nil {
			return DaemonEventErrorMsg{Err: err}
		}
		return ExportResponseMsg{Response: resp}
	}
}

// clearTransientErrorCmd fires after a delay to clear transient errors.
func clearTransientErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearTransientErrorMsg{}
	})
}

// clearNoticeCmd fires after a delay to clear the status-bar notice.
func clearNoticeCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearNoticeMsg{}
	})
}

// reconnectCmd schedules a reconnection attempt with exponential backoff.
func reconnectCmd(attempt int) tea.Cmd {
	delay := time.Duration(1<<min(attempt, 4)) * time.Second // 1s, 2s, 4s, 8s, 16s cap
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return ReconnectTickMsg{}
	})
}

// playbackTickCmd advances the replay clock.
func playbackTickCmd() tea.Cmd {
	return tea.Tick(playbackTick, func(time.Time) tea.Msg {
		return PlaybackTickMsg{}
	})
}

// idleTickCmd re-renders periodically while recording so the idle
// indicator appears without waiting for the next event.
func idleTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return IdleTickMsg{}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case DaemonConnectedMsg:
		m.client = msg.Client
		m.evClient = msg.EvClient
		m.connected = true
		m.connError = ""
		m.reconnecting = false
		m.reconnectAttempt = 0
		m.statusText = "Connected"
		// Subscribe on event client, fetch status on command client
		return m, tea.Batch(
			subscribeCmd(m.evClient),
			statusCmd(m.client),
		)

	case DaemonConnectErrorMsg:
		m.connected = false
		m.connError = msg.Err.Error()
		m.reconnecting = true
		m.statusText = "Daemon not running. Reconnecting..."
		return m, reconnectCmd(m.reconnectAttempt)

	case StatusResponseMsg:
		r := msg.Response
		was := m.recording
		if r.Recording != nil {
			m.recording = *r.Recording
		}
		if m.recording {
			m.statusText = "Recording"
		} else {
			m.statusText = "Connected"
		}
		if r.SessionID != "" && r.SessionID != m.sessionID {
			m.sessionID = r.SessionID
			m.resetTranscript()
			if m.recording {
				// Attached mid-session: pull what the store already holds.
				return m, tea.Batch(snapshotCmd(m.client, r.SessionID), idleTickCmd())
			}
		}
		if m.recording && !was {
			return m, idleTickCmd()
		}
		return m, nil

	case SnapshotResponseMsg:
		r := msg.Response
		if r.OK {
			for _, w := range r.Snapshot {
				m.upsert(w.Segment())
			}
		}
		return m, nil

	case StartResponseMsg:
		r := msg.Response
		if r.OK {
			was := m.recording
			m.recording = true
			if r.SessionID != "" && r.SessionID != m.sessionID {
				m.sessionID = r.SessionID
				m.resetTranscript()
			}
			m.statusText = "Recording"
			if !was {
				return m, idleTickCmd()
			}
		} else {
			m.errorMessage = r.Error
			m.errorTransient = true
			return m, clearTransientErrorCmd()
		}
		return m, nil

	case StopResponseMsg:
		r := msg.Response
		if r.OK {
			m.recording = false
			m.statusText = "Stopped"
		} else {
			m.errorMessage = r.Error
		}
		return m, nil

	case ExportResponseMsg:
		r := msg.Response
		if r.OK {
			m.notice = "Exported " + r.Path
			return m, clearNoticeCmd()
		}
		m.errorMessage = r.Error
		m.errorTransient = true
		return m, clearTransientErrorCmd()

	case DaemonEventMsg:
		cmd := m.handleEvent(msg.Event)
		// Continue reading events on event client
		return m, tea.Batch(cmd, readEventCmd(m.evClient))

	case DaemonEventErrorMsg:
		m.connected = false
		m.connError = msg.Err.Error()
		m.statusText = "Disconnected. Reconnecting..."
		m.reconnecting = true
		if m.client != nil {
			m.client.Close()
			m.client = nil
		}
		if m.evClient != nil {
			m.evClient.Close()
			m.evClient = nil
		}
		return m, reconnectCmd(m.reconnectAttempt)

	case ReconnectTickMsg:
		m.reconnectAttempt++
		return m, connectCmd(m.cfg.Socket)

	case PlaybackTickMsg:
		if m.mode != ModePlayback || !m.playing {
			return m, nil
		}
		m.playhead += playbackTick.Milliseconds()
		if end := m.playbackEnd(); m.playhead >= end {
			m.playhead = end
			m.playing = false
			return m, nil
		}
		return m, playbackTickCmd()

	case IdleTickMsg:
		if m.connected && m.recording {
			return m, idleTickCmd()
		}
		return m, nil

	case ClearTransientErrorMsg:
		if m.errorTransient {
			m.errorMessage = ""
			m.errorTransient = false
		}
		return m, nil

	case ClearNoticeMsg:
		m.notice = ""
		return m, nil
	}

	return m, nil
}

// handleEvent processes a daemon event and returns any resulting command.
func (m *Model) handleEvent(ev daemon.Event) tea.Cmd {
	switch ev.Event {
	case "partial", "segment", "corrected":
		if ev.Segment == nil {
			return nil
		}
		m.follow.Touch(time.Now())
		if m.upsert(ev.Segment.Segment()) {
			if m.follow.Append(1) {
				m.scrollToTail()
			}
		}

	case "removed":
		if ev.Segment != nil {
			m.remove(ev.Segment.ID)
		}

	case "status":
		if ev.Recording == nil {
			return nil
		}
		was := m.recording
		m.recording = *ev.Recording
		if m.recording {
			m.statusText = "Recording"
			if ev.SessionID != "" && ev.SessionID != m.sessionID {
				m.sessionID = ev.SessionID
				m.resetTranscript()
			}
			if !was {
				return idleTickCmd()
			}
		} else {
			m.statusText = "Stopped"
		}

	case "error":
		m.errorMessage = ev.Message
		if ev.Transient != nil && *ev.Transient {
			m.errorTransient = true
			return clearTransientErrorCmd()
		}
	}

	return nil
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		if m.client != nil {
			m.client.Close()
		}
		if m.evClient != nil {
			m.evClient.Close()
		}
		return m, tea.Quit

	case KeySpace:
		if m.mode == ModePlayback {
			if m.playing {
				m.playing = false
				return m, nil
			}
			if end := m.playbackEnd(); m.playhead >= end {
				m.playhead = m.playbackStart()
			}
			m.playing = true
			return m, playbackTickCmd()
		}
		if !m.connected {
			return m, nil
		}
		if m.recording {
			return m, stopCmd(m.client)
		}
		return m, startCmd(m.client, m.cfg.Locale)

	case KeyPlayback, KeyPlaybackUpper:
		if m.mode == ModePlayback {
			m.mode = ModeLive
			m.playing = false
			return m, nil
		}
		committed := m.committed()
		if len(committed) == 0 {
			return m, nil
		}
		m.mode = ModePlayback
		m.playing = false
		m.playhead = committed[0].Start
		return m, nil

	case KeyExport, KeyExportUpper:
		if !m.connected {
			return m, nil
		}
		f, err := export.ParseFormat(m.cfg.Export.Format)
		if err != nil {
			m.errorMessage = fmt.Sprintf("bad export format %q", m.cfg.Export.Format)
			m.errorTransient = true
			return m, clearTransientErrorCmd()
		}
		return m, exportCmd(m.client, daemon.Command{
			Cmd:       "export",
			SessionID: m.sessionID,
			Format:    string(f),
			Pending:   m.cfg.Export.Pending,
			Path:      m.cfg.ExportPath(m.sessionID, f),
		})

	case KeyJumpLive, KeyEnd:
		if m.mode == ModeLive {
			m.follow.JumpToLive()
			m.scrollToTail()
		}
		return m, nil

	case KeyUp:
		if m.mode == ModeLive {
			m.follow.ScrollAway()
			if m.scroll > 0 {
				m.scroll--
			}
		}
		return m, nil

	case KeyDown:
		if m.mode == ModeLive {
			maxScroll := m.maxTranscriptScroll()
			m.scroll++
			if m.scroll >= maxScroll {
				m.scroll = maxScroll
				m.follow.ScrollToTail()
			}
		}
		return m, nil

	case KeySeekBack:
		if m.mode == ModePlayback {
			m.playhead -= seekStep.Milliseconds()
			if m.playhead < 0 {
				m.playhead = 0
			}
		}
		return m, nil

	case KeySeekForward:
		if m.mode == ModePlayback {
			m.playhead += seekStep.Milliseconds()
			if end := m.playbackEnd(); m.playhead > end {
				m.playhead = end
			}
		}
		return m, nil
	}

	return m, nil
}

// upsert inserts or replaces a segment by ID, keeping start-time order.
// Returns true when the segment is new.
func (m *Model) upsert(seg transcript.Segment) bool {
	inserted := true
	for i := range m.segments {
		if m.segments[i].ID == seg.ID {
			m.segments[i] = seg
			inserted = false
			break
		}
	}
	if inserted {
		m.segments = append(m.segments, seg)
	}
	sort.SliceStable(m.segments, func(i, j int) bool {
		if m.segments[i].Start != m.segments[j].Start {
			return m.segments[i].Start < m.segments[j].Start
		}
		return m.segments[i].End < m.segments[j].End
	})
	m.recountPending()
	return inserted
}

func (m *Model) remove(id string) {
	for i := range m.segments {
		if m.segments[i].ID == id {
			m.segments = append(m.segments[:i], m.segments[i+1:]...)
			break
		}
	}
	m.recountPending()
}

func (m *Model) recountPending() {
	n := 0
	for _, seg := range m.segments {
		if !seg.Status.Final() {
			n++
		}
	}
	m.pending = n
}

func (m *Model) resetTranscript() {
	m.segments = nil
	m.pending = 0
	m.scroll = 0
	m.follow.Reset()
	m.mode = ModeLive
	m.playing = false
	m.playhead = 0
}

// committed returns the finalized and corrected segments in order.
func (m Model) committed() []transcript.Segment {
	out := make([]transcript.Segment, 0, len(m.segments))
	for _, seg := range m.segments {
		if seg.Status.Final() {
			out = append(out, seg)
		}
	}
	return out
}

// activeSegment returns the committed segment under the replay cursor.
func (m Model) activeSegment() (transcript.Segment, bool) {
	return playback.NewSynchronizer(m.committed).ActiveSegment(m.playhead)
}

func (m Model) playbackStart() int64 {
	c := m.committed()
	if len(c) == 0 {
		return 0
	}
	return c[0].Start
}

func (m Model) playbackEnd() int64 {
	c := m.committed()
	if len(c) == 0 {
		return 0
	}
	return c[len(c)-1].End
}

func (m *Model) scrollToTail() {
	m.scroll = m.maxTranscriptScroll()
}

func (m Model) maxTranscriptScroll() int {
	totalLines := len(m.segments)
	visible := m.transcriptVisibleLines()
	if totalLines <= visible {
		return 0
	}
	return totalLines - visible
}

func (m Model) transcriptVisibleLines() int {
	if m.height == 0 {
		return 20
	}
	// Reserve: header(1) + status(1) + dividers(2) + error(1) + footer(1) + padding
	reserved := 7
	return max(5, m.height-reserved)
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string

	// Header
	sections = append(sections, m.renderHeader())

	// Status bar
	sections = append(sections, m.renderStatusBar())

	// Divider
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	// Transcript
	sections = append(sections, m.renderTranscript(m.width, m.transcriptVisibleLines()))

	// Divider
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	// Error bar
	if m.errorMessage != "" {
		sections = append(sections, m.renderErrorBar())
	}

	// Footer
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("VERBATIM")

	var locale string
	if m.cfg.Locale != "" {
		locale = ui.DimStyle.Render(" — " + m.cfg.Locale)
	}

	return title + locale
}

func (m Model) renderStatusBar() string {
	var b strings.Builder

	if m.mode == ModePlayback {
		if m.playing {
			b.WriteString(ui.PlaybackStyle.Render(" ▶ REPLAY "))
		} else {
			b.WriteString(ui.PlaybackStyle.Render(" ❚❚ REPLAY "))
		}
		b.WriteString(ui.TimestampStyle.Render("  " + formatClock(m.playhead) + " / " + formatClock(m.playbackEnd())))
	} else {
		if m.recording {
			b.WriteString(ui.RecordingDotStyle.Render("● REC"))
			if m.follow.Idle(time.Now()) {
				b.WriteString(ui.DimStyle.Render("  ⋯ silent"))
			}
		} else {
			b.WriteString(ui.IdleDotStyle.Render("○ IDLE"))
		}
	}

	if m.sessionID != "" {
		b.WriteString(ui.StatusStyle.Render("  " + shortID(m.sessionID)))
	}

	committedN := len(m.segments) - m.pending
	b.WriteString(ui.StatusStyle.Render(fmt.Sprintf("  %d segments", committedN)))
	if m.pending > 0 {
		b.WriteString(ui.ProvisionalTextStyle.Render(fmt.Sprintf(" +%d pending", m.pending)))
	}

	if m.mode == ModeLive {
		if m.follow.Following() {
			b.WriteString(ui.LiveBadgeStyle.Render("  LIVE"))
		} else {
			b.WriteString(ui.ParkedBadgeStyle.Render("  PARKED"))
			if n := m.follow.Unseen(); n > 0 {
				b.WriteString(ui.UnseenBadgeStyle.Render(fmt.Sprintf(" ↓%d", n)))
			}
		}
	}

	if m.notice != "" {
		b.WriteString(ui.DimStyle.Render("  " + m.notice))
	}

	return b.String()
}

func (m Model) renderTranscript(width, height int) string {
	var lines []string

	if !m.connected {
		if m.reconnecting {
			lines = append(lines, "")
			lines = append(lines, ui.ErrorTextStyle.Render("  Daemon disconnected. Reconnecting..."))
		} else if m.connError != "" {
			lines = append(lines, "")
			lines = append(lines, ui.ErrorStyle.Render("  Daemon not running."))
			lines = append(lines, ui.DimStyle.Render("  Start with: verbatimd"))
		} else {
			lines = append(lines, ui.DimStyle.Render("  Connecting to verbatimd..."))
		}
	} else if len(m.segments) == 0 {
		lines = append(lines, "")
		if m.recording {
			lines = append(lines, ui.DimStyle.Render("  Listening..."))
		} else {
			lines = append(lines, ui.DimStyle.Render("  Press Space to start a session"))
		}
	} else {
		contentHeight := height
		jump := m.mode == ModeLive && m.follow.ShowJumpToLive()
		if jump {
			contentHeight-- // reserve the affordance row
		}

		segs := m.segments
		activeID := ""
		if m.mode == ModePlayback {
			segs = m.committed()
			if seg, ok := m.activeSegment(); ok {
				activeID = seg.ID
			}
		}

		// Prefix: "[MM:SS] " = ~8 chars visible
		prefixWidth := 8
		textWidth := max(10, width-prefixWidth-4)
		indentStr := strings.Repeat(" ", prefixWidth)

		activeLine := -1
		var displayLines []string
		for _, seg := range segs {
			ts := ui.TimestampStyle.Render("[" + formatClock(seg.Start) + "]")

			text := seg.Text
			style := lipgloss.NewStyle()
			switch {
			case seg.ID == activeID:
				style = ui.PlaybackStyle
				activeLine = len(displayLines)
			case !seg.Status.Final():
				style = ui.ProvisionalTextStyle
				text += "▌"
			case seg.Status == transcript.Corrected:
				style = ui.CorrectedTextStyle
			}

			wrapped := wrapText(text, textWidth)
			last := len(wrapped) - 1
			for i, wl := range wrapped {
				line := indentStr + style.Render(wl)
				if i == 0 {
					line = ts + " " + style.Render(wl)
				}
				if i == last && seg.Confidence != nil && seg.Status.Final() {
					line += ui.ConfidenceStyle.Render(fmt.Sprintf(" %.2f", *seg.Confidence))
				}
				displayLines = append(displayLines, line)
			}
		}

		// Apply scroll
		start := 0
		switch {
		case m.mode == ModePlayback:
			if activeLine >= 0 {
				start = activeLine - contentHeight/2
			}
		case m.follow.Following():
			if len(displayLines) > contentHeight {
				start = len(displayLines) - contentHeight
			}
		default:
			start = m.scroll
		}
		if start > len(displayLines)-contentHeight {
			start = len(displayLines) - contentHeight
		}
		if start < 0 {
			start = 0
		}

		end := start + contentHeight
		if end > len(displayLines) {
			end = len(displayLines)
		}

		for i := start; i < end; i++ {
			lines = append(lines, "  "+displayLines[i])
		}

		if jump {
			// Affordance sits on the last row
			for len(lines) < height-1 {
				lines = append(lines, "")
			}
			lines = append(lines, ui.UnseenBadgeStyle.Render(fmt.Sprintf("  ↓ %d new, press G to follow", m.follow.Unseen())))
		}
	}

	// Pad to height
	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderErrorBar() string {
	return ui.ErrorStyle.Render("Error: ") + ui.ErrorTextStyle.Render(m.errorMessage)
}

func (m Model) renderFooter() string {
	var parts []string

	if m.connected {
		if m.mode == ModePlayback {
			if m.playing {
				parts = append(parts, ui.FooterKeyStyle.Render("Space")+ui.FooterDescStyle.Render(" Pause"))
			} else {
				parts = append(parts, ui.FooterKeyStyle.Render("Space")+ui.FooterDescStyle.Render(" Play"))
			}
			parts = append(parts, ui.FooterKeyStyle.Render("←→")+ui.FooterDescStyle.Render(" Seek 5s"))
			parts = append(parts, ui.FooterKeyStyle.Render("p")+ui.FooterDescStyle.Render(" Live"))
		} else {
			if m.recording {
				parts = append(parts, ui.FooterKeyStyle.Render("Space")+ui.FooterDescStyle.Render(" Stop"))
			} else {
				parts = append(parts, ui.FooterKeyStyle.Render("Space")+ui.FooterDescStyle.Render(" Record"))
			}
			parts = append(parts, ui.FooterKeyStyle.Render("p")+ui.FooterDescStyle.Render(" Replay"))
			parts = append(parts, ui.FooterKeyStyle.Render("↑↓")+ui.FooterDescStyle.Render(" Scroll"))
			parts = append(parts, ui.FooterKeyStyle.Render("G")+ui.FooterDescStyle.Render(" Live"))
		}
		parts = append(parts, ui.FooterKeyStyle.Render("e")+ui.FooterDescStyle.Render(" Export"))
	}

	parts = append(parts, ui.FooterKeyStyle.Render("q")+ui.FooterDescStyle.Render(" Quit"))

	return strings.Join(parts, "  ")
}

// Helpers

func formatClock(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	h := total / 3600
	mm := (total % 3600) / 60
	ss := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, mm, ss)
	}
	return fmt.Sprintf("%02d:%02d", mm, ss)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current string
		for _, word := range strings.Fields(paragraph) {
			if current == "" {
				current = word
			} else if len(current)+1+len(word) <= width {
				current += " " + word
			} else {
				lines = append(lines, current)
				current = word
			}
		}
		if current != "" {
			lines = append(lines, current)
		} else {
			lines = append(lines, "")
		}
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

package daemon

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"verbatim/internal/db"
	"verbatim/internal/export"
	"verbatim/internal/platform/metrics"
	"verbatim/internal/reconcile"
	"verbatim/internal/transcript"
)

var (
	// ErrSessionActive is returned by start when a session is already recording.
	ErrSessionActive = errors.New("a session is already active")
	// ErrNoSession is returned by commands that need an active session.
	ErrNoSession = errors.New("no active session")
)

// subscriberQueue is the per-subscriber event buffer. A subscriber that
// falls this far behind the live stream is dropped rather than allowed to
// stall everyone else.
const subscriberQueue = 256

// defaultAwaitTimeout bounds an export with pending=await when the client
// gave no timeout of its own.
const defaultAwaitTimeout = 5 * time.Second

// ServerConfig tunes the daemon. Zero values select defaults.
type ServerConfig struct {
	// QueueSize is the hypothesis queue length; see reconcile.Config.
	QueueSize int
	// MinFlushRunes is the end-of-session flush threshold; see reconcile.Config.
	MinFlushRunes int
	// IdleAfter is how long without a hypothesis before status reports idle.
	IdleAfter time.Duration
	// DefaultLocale applies when a start command names none.
	DefaultLocale string
}

func (c ServerConfig) withDefaults() ServerConfig {
	if c.IdleAfter <= 0 {
		c.IdleAfter = 5 * time.Second
	}
	if c.DefaultLocale == "" {
		c.DefaultLocale = "en-US"
	}
	return c
}

// activeSession bundles the live state of the one recording session.
type activeSession struct {
	session      transcript.Session
	store        *transcript.Store
	rec          *reconcile.Reconciler
	sub          *transcript.Subscription
	pumpDone     chan struct{}
	lastActivity time.Time
}

type subscriber struct {
	id   int
	conn net.Conn
	ch   chan Event
}

// Server is the daemon core: it accepts NDJSON commands on a Unix socket,
// runs at most one live session at a time, and fans reconciliation changes
// out to subscribed connections as events.
type Server struct {
	log *slog.Logger
	m   *metrics.Metrics
	db  *db.Store
	cfg ServerConfig

	mu     sync.Mutex
	sess   *activeSession
	closed bool

	subMu   sync.Mutex
	subs    map[int]*subscriber
	nextSub int

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
	wg     sync.WaitGroup
}

// NewServer returns a Server persisting to database and reporting to m.
func NewServer(database *db.Store, log *slog.Logger, m *metrics.Metrics, cfg ServerConfig) *Server {
	return &Server{
		log:   log,
		m:     m,
		db:    database,
		cfg:   cfg.withDefaults(),
		subs:  make(map[int]*subscriber),
		conns: make(map[net.Conn]struct{}),
	}
}

// Listen binds the daemon Unix socket, replacing a stale socket file left
// behind by a previous run.
func Listen(socketPath string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(socketPath), 0o755); err != nil {
		return nil, fmt.Errorf("create socket dir: %w", err)
	}
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	return ln, nil
}

// Serve accepts connections until ln is closed. It returns nil after Close.
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosed() {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		if s.isClosed() {
			conn.Close()
			return nil
		}
		s.trackConn(conn)
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// Close stops the active session, disconnects all clients, and waits for
// connection handlers to finish. The listener passed to Serve must be
// closed separately.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	sess := s.sess
	s.sess = nil
	s.mu.Unlock()

	if sess != nil {
		s.finishSession(sess)
	}

	s.connMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connMu.Unlock()
	s.wg.Wait()

	s.subMu.Lock()
	for id, sub := range s.subs {
		delete(s.subs, id)
		close(sub.ch)
	}
	s.subMu.Unlock()
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) trackConn(conn net.Conn) {
	s.connMu.Lock()
	s.conns[conn] = struct{}{}
	s.connMu.Unlock()
}

func (s *Server) untrackConn(conn net.Conn) {
	s.connMu.Lock()
	delete(s.conns, conn)
	s.connMu.Unlock()
	conn.Close()
}

// handleConn reads one command per line and writes one response per command.
// After a successful subscribe the connection carries events only; further
// input on it is ignored.
func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer s.untrackConn(conn)

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB buffer

	var sub *subscriber
	defer func() {
		if sub != nil {
			s.removeSubscriber(sub)
		}
	}()

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if sub != nil {
			continue
		}

		var cmd Command
		if err := json.Unmarshal(line, &cmd); err != nil {
			s.writeResponse(conn, Response{Error: "malformed command: " + err.Error()})
			continue
		}

		resp := s.dispatch(cmd)
		if !s.writeResponse(conn, resp) {
			return
		}
		if cmd.Cmd == "subscribe" && resp.OK {
			sub = s.addSubscriber(conn)
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.log.Debug("connection read failed", "error", err)
	}
}

func (s *Server) writeResponse(conn net.Conn, resp Response) bool {
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Error("marshal response", "error", err)
		return false
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		s.log.Debug("write response", "error", err)
		return false
	}
	return true
}

func (s *Server) dispatch(cmd Command) Response {
	switch cmd.Cmd {
	case "start":
		return s.handleStart(cmd)
	case "stop":
		return s.handleStop()
	case "status":
		return s.handleStatus()
	case "hypothesis":
		return s.handleHypothesis(cmd)
	case "snapshot":
		return s.handleSnapshot(cmd)
	case "sessions":
		return s.handleSessions()
	case "export":
		return s.handleExport(cmd)
	case "subscribe":
		return Response{OK: true}
	default:
		return Response{Error: fmt.Sprintf("unknown command: %q", cmd.Cmd)}
	}
}

func errResponse(err error) Response {
	return Response{Error: err.Error()}
}

// handleStart opens a new session. The session row is persisted immediately
// so it shows up in listings even if the daemon dies mid-recording.
func (s *Server) handleStart(cmd Command) Response {
	id, err := gonanoid.New()
	if err != nil {
		return errResponse(fmt.Errorf("generate session id: %w", err))
	}

	locale := cmd.Locale
	if locale == "" {
		locale = s.cfg.DefaultLocale
	}
	session := transcript.Session{
		ID:        id,
		Locale:    locale,
		Device:    cmd.Device,
		Audio:     cmd.Audio,
		Engine:    cmd.Engine,
		Status:    transcript.SessionRecording,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errResponse(errors.New("daemon is shutting down"))
	}
	if s.sess != nil {
		s.mu.Unlock()
		return errResponse(ErrSessionActive)
	}
	store := transcript.NewStore()
	rec := reconcile.New(store, s.log, s.m, reconcile.Config{
		QueueSize:     s.cfg.QueueSize,
		MinFlushRunes: s.cfg.MinFlushRunes,
	})
	sub := store.Subscribe()
	sess := &activeSession{
		session:      session,
		store:        store,
		rec:          rec,
		sub:          sub,
		pumpDone:     make(chan struct{}),
		lastActivity: time.Now(),
	}
	s.sess = sess
	s.mu.Unlock()

	rec.Start()
	go s.pumpChanges(session.ID, sub, sess.pumpDone)

	if err := s.db.SaveSession(session, nil); err != nil {
		s.log.Error("save session at start", "session", id, "error", err)
	}
	s.m.SetSessionActive(true)
	s.log.Info("session started", "session", id, "locale", locale, "engine", cmd.Engine)
	s.broadcast(Event{Event: "status", SessionID: id, Recording: BoolPtr(true)})

	return Response{OK: true, SessionID: id}
}

func (s *Server) handleStop() Response {
	s.mu.Lock()
	sess := s.sess
	s.sess = nil
	s.mu.Unlock()

	if sess == nil {
		return errResponse(ErrNoSession)
	}
	return s.finishSession(sess)
}

// finishSession drains the reconciler, persists the final snapshot, and
// announces the stop. Called with s.mu released: Finish blocks until the
// reconciliation loop exits and must not run under the server lock.
// Waiting for the pump keeps the stop status event behind the last
// segment events.
func (s *Server) finishSession(sess *activeSession) Response {
	sess.rec.Finish()
	sess.sub.Close()
	<-sess.pumpDone

	ended := time.Now().UTC()
	sess.session.EndedAt = &ended
	sess.session.Status = transcript.SessionCompleted

	segments := sess.store.Snapshot()
	s.m.SetSessionActive(false)

	if err := s.db.SaveSession(sess.session, segments); err != nil {
		s.log.Error("persist session", "session", sess.session.ID, "error", err)
		s.broadcast(Event{Event: "error", Message: "failed to persist session " + sess.session.ID, Transient: BoolPtr(false)})
		return errResponse(fmt.Errorf("persist session: %w", err))
	}

	s.log.Info("session stopped", "session", sess.session.ID, "segments", len(segments))
	s.broadcast(Event{
		Event:     "status",
		SessionID: sess.session.ID,
		Recording: BoolPtr(false),
		Segments:  IntPtr(len(segments)),
	})
	return Response{OK: true, SessionID: sess.session.ID, Segments: IntPtr(len(segments))}
}

// pumpChanges translates store changes into subscriber events until the
// subscription closes at session end, then signals done.
func (s *Server) pumpChanges(sessionID string, sub *transcript.Subscription, done chan<- struct{}) {
	defer close(done)
	for ch := range sub.Changes() {
		s.broadcast(changeEvent(sessionID, ch))
	}
}

func changeEvent(sessionID string, ch transcript.Change) Event {
	seg := ToWire(ch.Segment)
	ev := Event{SessionID: sessionID, Segment: &seg}
	if ch.Prev != nil {
		prev := ToWire(*ch.Prev)
		ev.Prev = &prev
	}
	switch {
	case ch.Kind == transcript.Removed:
		ev.Event = "removed"
	case ch.Kind == transcript.FinalizedRangeShrunk:
		ev.Event = "corrected"
		ev.Shrunk = BoolPtr(true)
	case ch.Segment.Status == transcript.Corrected:
		ev.Event = "corrected"
	case ch.Segment.Status.Final():
		ev.Event = "segment"
	default:
		ev.Event = "partial"
	}
	return ev
}

func (s *Server) handleStatus() Response {
	s.mu.Lock()
	sess := s.sess
	var last time.Time
	if sess != nil {
		last = sess.lastActivity
	}
	s.mu.Unlock()

	if sess == nil {
		return Response{OK: true, Recording: BoolPtr(false)}
	}
	idle := time.Since(last) >= s.cfg.IdleAfter
	return Response{
		OK:        true,
		Recording: BoolPtr(true),
		Idle:      BoolPtr(idle),
		SessionID: sess.session.ID,
		Segments:  IntPtr(sess.store.Len()),
		Pending:   IntPtr(sess.store.Pending()),
	}
}

func (s *Server) handleHypothesis(cmd Command) Response {
	if cmd.ID == "" {
		return errResponse(errors.New("hypothesis requires an id"))
	}
	if cmd.StartMs == nil || cmd.EndMs == nil {
		return errResponse(errors.New("hypothesis requires startMs and endMs"))
	}

	s.mu.Lock()
	sess := s.sess
	if sess != nil {
		sess.lastActivity = time.Now()
	}
	s.mu.Unlock()
	if sess == nil {
		return errResponse(ErrNoSession)
	}

	err := sess.rec.Ingest(reconcile.Hypothesis{
		ID:         cmd.ID,
		Text:       cmd.Text,
		Start:      *cmd.StartMs,
		End:        *cmd.EndMs,
		Confidence: cmd.Confidence,
		Revision:   cmd.Revision,
		Final:      cmd.Final,
	})
	if err != nil {
		return errResponse(err)
	}
	return Response{OK: true}
}

// handleSnapshot returns the live snapshot, or a stored session's segments
// when sessionId names one.
func (s *Server) handleSnapshot(cmd Command) Response {
	if cmd.SessionID != "" {
		_, segments, err := s.sessionData(cmd.SessionID)
		if err != nil {
			return errResponse(err)
		}
		return Response{OK: true, SessionID: cmd.SessionID, Snapshot: toWireList(segments)}
	}

	s.mu.Lock()
	sess := s.sess
	s.mu.Unlock()
	if sess == nil {
		return errResponse(ErrNoSession)
	}
	return Response{OK: true, SessionID: sess.session.ID, Snapshot: toWireList(sess.store.Snapshot())}
}

func toWireList(segments []transcript.Segment) []WireSegment {
	out := make([]WireSegment, len(segments))
	for i, seg := range segments {
		out[i] = ToWire(seg)
	}
	return out
}

func (s *Server) handleSessions() Response {
	infos, err := s.Sessions()
	if err != nil {
		return errResponse(err)
	}
	return Response{OK: true, Sessions: infos}
}

// Sessions lists stored sessions newest-first, with the live session (if
// any) first and marked active. The live session's stored row is replaced
// by its in-memory state.
func (s *Server) Sessions() ([]SessionInfo, error) {
	s.mu.Lock()
	sess := s.sess
	s.mu.Unlock()

	sums, err := s.db.ListSessions()
	if err != nil {
		return nil, err
	}

	infos := make([]SessionInfo, 0, len(sums)+1)
	if sess != nil {
		infos = append(infos, SessionInfo{
			SessionID: sess.session.ID,
			Locale:    sess.session.Locale,
			Engine:    sess.session.Engine,
			Status:    transcript.SessionRecording,
			CreatedAt: sess.session.CreatedAt,
			Segments:  sess.store.Len(),
			Active:    true,
		})
	}
	for _, sum := range sums {
		if sess != nil && sum.Session.ID == sess.session.ID {
			continue
		}
		infos = append(infos, SessionInfo{
			SessionID: sum.Session.ID,
			Locale:    sum.Session.Locale,
			Engine:    sum.Session.Engine,
			Status:    sum.Session.Status,
			CreatedAt: sum.Session.CreatedAt,
			Segments:  sum.SegmentCount,
		})
	}
	return infos, nil
}

// sessionData resolves a session id to its document. The live session is
// served from memory; anything else is loaded from the database.
func (s *Server) sessionData(id string) (transcript.Session, []transcript.Segment, error) {
	s.mu.Lock()
	sess := s.sess
	s.mu.Unlock()

	if sess != nil && sess.session.ID == id {
		return sess.session, sess.store.Snapshot(), nil
	}
	return s.db.LoadSession(id)
}

func (s *Server) handleExport(cmd Command) Response {
	if cmd.Path == "" {
		return errResponse(errors.New("export requires a path"))
	}

	ctx := context.Background()
	if cmd.TimeoutMs != nil && *cmd.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(*cmd.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	if cmd.Bundle {
		return s.handleExportBundle(ctx, cmd)
	}

	data, session, err := s.Export(ctx, cmd.SessionID, cmd.Format, cmd.Pending)
	if err != nil {
		return errResponse(err)
	}
	if err := os.MkdirAll(filepath.Dir(cmd.Path), 0o755); err != nil {
		s.m.IncExportErrors()
		return errResponse(err)
	}
	if err := export.WriteFile(cmd.Path, data); err != nil {
		s.m.IncExportErrors()
		return errResponse(err)
	}

	s.log.Info("session exported", "session", session.ID, "format", cmd.Format, "path", cmd.Path)
	return Response{OK: true, SessionID: session.ID, Path: cmd.Path}
}

// handleExportBundle writes a bundle directory: the timing file plus a
// manifest referencing the session's audio by name.
func (s *Server) handleExportBundle(ctx context.Context, cmd Command) Response {
	f, err := export.ParseFormat(cmd.Format)
	if err != nil {
		s.m.IncExportErrors()
		return errResponse(err)
	}
	session, segments, err := s.exportSource(ctx, cmd.SessionID, cmd.Pending)
	if err != nil {
		return errResponse(err)
	}
	if err := export.WriteBundle(cmd.Path, session, segments, f); err != nil {
		s.m.IncExportErrors()
		return errResponse(err)
	}

	s.m.IncExports(string(f))
	s.log.Info("session exported", "session", session.ID, "format", cmd.Format, "path", cmd.Path, "bundle", true)
	return Response{OK: true, SessionID: session.ID, Path: cmd.Path}
}

// Export renders a session in the named format. An empty sessionID targets
// the live session. When the target is live, pendingPolicy decides how
// provisional segments are handled: drop them (default) or await
// settlement until ctx expires. Stored sessions contain no provisionals,
// so the policy is moot there.
func (s *Server) Export(ctx context.Context, sessionID, format, pendingPolicy string) ([]byte, transcript.Session, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		s.m.IncExportErrors()
		return nil, transcript.Session{}, err
	}

	session, segments, err := s.exportSource(ctx, sessionID, pendingPolicy)
	if err != nil {
		return nil, transcript.Session{}, err
	}

	data, err := export.Encode(session, segments, f)
	if err != nil {
		s.m.IncExportErrors()
		return nil, transcript.Session{}, err
	}
	s.m.IncExports(string(f))
	return data, session, nil
}

// exportSource resolves the export target and applies the pending policy.
func (s *Server) exportSource(ctx context.Context, sessionID, pendingPolicy string) (transcript.Session, []transcript.Segment, error) {
	s.mu.Lock()
	sess := s.sess
	s.mu.Unlock()
	live := sess != nil && (sessionID == "" || sessionID == sess.session.ID)

	switch {
	case live:
		policy, err := export.ParsePendingPolicy(pendingPolicy)
		if err != nil {
			s.m.IncExportErrors()
			return transcript.Session{}, nil, err
		}
		if policy == export.PendingAwait {
			if _, hasDeadline := ctx.Deadline(); !hasDeadline {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, defaultAwaitTimeout)
				defer cancel()
			}
			if err := export.AwaitSettled(ctx, sess.store); err != nil {
				s.m.IncExportErrors()
				return transcript.Session{}, nil, err
			}
		}
		return sess.session, sess.store.Snapshot(), nil
	case sessionID == "":
		s.m.IncExportErrors()
		return transcript.Session{}, nil, ErrNoSession
	default:
		session, segments, err := s.db.LoadSession(sessionID)
		if err != nil {
			s.m.IncExportErrors()
			return transcript.Session{}, nil, err
		}
		return session, segments, nil
	}
}

// UpdateGauges refreshes queue depth and subscriber gauges, typically right
// before a metrics scrape.
func (s *Server) UpdateGauges() {
	s.mu.Lock()
	sess := s.sess
	s.mu.Unlock()

	s.subMu.Lock()
	subscribers := len(s.subs)
	s.subMu.Unlock()
	s.m.SetActiveSubscribers(subscribers)

	if sess != nil {
		s.m.SetQueueDepth(sess.rec.QueueDepth())
		s.m.SetSessionActive(true)
	} else {
		s.m.SetQueueDepth(0)
		s.m.SetSessionActive(false)
	}
}

// addSubscriber registers conn for events and starts its writer. The writer
// owns the connection's write side from here on.
func (s *Server) addSubscriber(conn net.Conn) *subscriber {
	s.subMu.Lock()
	sub := &subscriber{id: s.nextSub, conn: conn, ch: make(chan Event, subscriberQueue)}
	s.subs[sub.id] = sub
	s.nextSub++
	s.subMu.Unlock()

	s.log.Debug("subscriber added", "subscriber", sub.id)
	go s.writeEvents(sub)
	return sub
}

// removeSubscriber unregisters sub and closes its channel. Safe to call
// more than once; the channel is closed exactly once because removal from
// the map happens under subMu.
func (s *Server) removeSubscriber(sub *subscriber) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if _, ok := s.subs[sub.id]; !ok {
		return
	}
	delete(s.subs, sub.id)
	close(sub.ch)
}

func (s *Server) writeEvents(sub *subscriber) {
	enc := json.NewEncoder(sub.conn)
	for ev := range sub.ch {
		if err := enc.Encode(ev); err != nil {
			if !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.ErrClosedPipe) {
				s.log.Debug("subscriber write failed", "subscriber", sub.id, "error", err)
			}
			s.removeSubscriber(sub)
		}
	}
	sub.conn.Close()
}

// broadcast delivers ev to every subscriber without blocking: a subscriber
// whose buffer is full is dropped on the spot.
func (s *Server) broadcast(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, sub := range s.subs {
		select {
		case sub.ch <- ev:
		default:
			s.log.Warn("dropping slow subscriber", "subscriber", id)
			delete(s.subs, id)
			close(sub.ch)
		}
	}
}

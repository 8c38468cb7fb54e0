package reconcile

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"verbatim/internal/platform/metrics"
	"verbatim/internal/transcript"
)

// ErrFinished is returned by Ingest once the reconciler has been finished.
var ErrFinished = errors.New("reconciler is finished")

// Config tunes the reconciler.
type Config struct {
	// QueueSize bounds the hypothesis queue between the engine connection
	// and the reconciliation loop. Ingest blocks while the queue is full.
	QueueSize int
	// MinFlushRunes is the minimum trimmed text length for an in-flight
	// provisional segment to be committed when the session ends. Shorter
	// provisionals are discarded.
	MinFlushRunes int
}

func (c Config) withDefaults() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.MinFlushRunes <= 0 {
		c.MinFlushRunes = 1
	}
	return c
}

// Reconciler is the sole writer of a session's transcript store. Hypotheses
// enter through Ingest and are applied by a single loop goroutine, so every
// reader observes one commit order.
type Reconciler struct {
	store *transcript.Store
	log   *slog.Logger
	m     *metrics.Metrics
	cfg   Config

	queue   chan Hypothesis
	done    chan struct{}
	stopped chan struct{}

	mu       sync.RWMutex
	finished bool
}

// New returns a reconciler writing to store. Call Start before Ingest.
func New(store *transcript.Store, log *slog.Logger, m *metrics.Metrics, cfg Config) *Reconciler {
	cfg = cfg.withDefaults()
	return &Reconciler{
		store:   store,
		log:     log,
		m:       m,
		cfg:     cfg,
		queue:   make(chan Hypothesis, cfg.QueueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start launches the reconciliation loop. It must be called exactly once.
func (r *Reconciler) Start() {
	go r.run()
}

// Ingest queues a hypothesis for reconciliation. It blocks while the queue
// is full and returns ErrFinished after Finish has begun. A nil return
// guarantees the hypothesis will be applied before Finish completes.
func (r *Reconciler) Ingest(h Hypothesis) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.finished {
		return ErrFinished
	}
	r.queue <- h
	return nil
}

// Finish stops intake, drains the queue, flushes in-flight provisional
// segments to a terminal state, and waits for the loop to exit. It is safe
// to call more than once.
func (r *Reconciler) Finish() {
	r.mu.Lock()
	already := r.finished
	r.finished = true
	r.mu.Unlock()
	if !already {
		close(r.done)
	}
	<-r.stopped
}

// QueueDepth reports the number of hypotheses waiting to be applied.
func (r *Reconciler) QueueDepth() int {
	return len(r.queue)
}

func (r *Reconciler) run() {
	defer close(r.stopped)
	for {
		select {
		case h := <-r.queue:
			r.apply(h)
		case <-r.done:
			// Finish holds the write lock before closing done, so no
			// sender is still blocked on the queue; drain what remains.
			for {
				select {
				case h := <-r.queue:
					r.apply(h)
				default:
					r.flush()
					return
				}
			}
		}
	}
}

func (r *Reconciler) apply(h Hypothesis) {
	r.m.IncHypotheses()

	if h.Start < 0 || h.End <= h.Start {
		r.log.Warn("dropping hypothesis with malformed timing",
			"id", h.ID, "start", h.Start, "end", h.End)
		r.m.IncHypothesesRejected("malformed")
		return
	}

	cur, exists := r.store.Get(h.ID)
	if exists && h.Revision < cur.Revision {
		r.log.Debug("dropping stale hypothesis",
			"id", h.ID, "revision", h.Revision, "current", cur.Revision)
		r.m.IncHypothesesRejected("stale")
		return
	}

	correcting := exists && cur.Status.Final()
	if h.Final || correcting {
		r.commit(h, cur, exists, correcting)
		return
	}

	seg := transcript.Segment{
		ID:         h.ID,
		Text:       h.Text,
		Start:      h.Start,
		End:        h.End,
		Confidence: h.Confidence,
		Revision:   h.Revision,
		Status:     transcript.Provisional,
	}
	if exists && sameSegment(cur, seg) {
		r.m.IncHypothesesRejected("duplicate")
		return
	}
	if _, err := r.store.Apply(seg); err != nil {
		r.log.Warn("provisional rejected by store", "id", h.ID, "error", err)
		r.m.IncHypothesesRejected("store")
	}
}

func (r *Reconciler) commit(h Hypothesis, cur transcript.Segment, exists, correcting bool) {
	text := strings.TrimSpace(h.Text)
	if text == "" {
		r.log.Warn("dropping final hypothesis with empty text", "id", h.ID)
		r.m.IncHypothesesRejected("empty")
		return
	}

	start, end := clampToCommitted(r.store.FinalSnapshot(), h.ID, h.Start, h.End)
	if start >= end {
		r.log.Warn("dropping hypothesis fully shadowed by committed segments",
			"id", h.ID, "start", h.Start, "end", h.End)
		r.m.IncHypothesesRejected("shadowed")
		return
	}

	status := transcript.Finalized
	if correcting {
		status = transcript.Corrected
	}
	seg := transcript.Segment{
		ID:         h.ID,
		Text:       text,
		Start:      start,
		End:        end,
		Confidence: h.Confidence,
		Revision:   h.Revision,
		Status:     status,
	}
	if exists && sameSegment(cur, seg) {
		r.m.IncHypothesesRejected("duplicate")
		return
	}
	if _, err := r.store.Apply(seg); err != nil {
		r.log.Error("committed segment rejected by store", "id", h.ID, "error", err)
		r.m.IncHypothesesRejected("store")
		return
	}

	if start != h.Start || end != h.End {
		r.log.Debug("clamped segment timing",
			"id", h.ID, "start", start, "end", end,
			"rawStart", h.Start, "rawEnd", h.End)
		r.m.IncSegmentsClamped()
	}
	if correcting {
		r.m.IncSegmentsCorrected()
	} else {
		r.m.IncSegmentsFinalized()
	}
}

// flush commits or discards every provisional left when the session ends.
// No segment is left open.
func (r *Reconciler) flush() {
	for _, sg := range r.store.Snapshot() {
		if sg.Status != transcript.Provisional {
			continue
		}
		text := strings.TrimSpace(sg.Text)
		if utf8.RuneCountInString(text) < r.cfg.MinFlushRunes {
			if _, err := r.store.Remove(sg.ID); err != nil {
				r.log.Error("discard provisional", "id", sg.ID, "error", err)
			} else {
				r.log.Debug("discarded short provisional at session end", "id", sg.ID)
			}
			continue
		}

		start, end := clampToCommitted(r.store.FinalSnapshot(), sg.ID, sg.Start, sg.End)
		if start >= end {
			if _, err := r.store.Remove(sg.ID); err != nil {
				r.log.Error("discard shadowed provisional", "id", sg.ID, "error", err)
			}
			continue
		}

		seg := sg
		seg.Text = text
		seg.Start = start
		seg.End = end
		seg.Status = transcript.Finalized
		if _, err := r.store.Apply(seg); err != nil {
			r.log.Error("flush provisional", "id", sg.ID, "error", err)
			continue
		}
		r.m.IncSegmentsFinalized()
		r.log.Debug("flushed provisional at session end", "id", sg.ID)
	}
}

// clampToCommitted trims [start, end) against the committed segments other
// than id. Earlier-committed intervals keep their timing; the incoming one
// gives way. committed must be sorted by start time. A result with
// start >= end means the interval was fully shadowed.
func clampToCommitted(committed []transcript.Segment, id string, start, end int64) (int64, int64) {
	for _, n := range committed {
		if n.ID == id {
			continue
		}
		if n.End <= start || n.Start >= end {
			continue
		}
		if n.Start <= start {
			start = n.End
			if start >= end {
				return start, end
			}
			continue
		}
		// n starts inside the interval; everything after n starts later
		// still, so trimming the end resolves the rest.
		return start, n.Start
	}
	return start, end
}

func sameSegment(a, b transcript.Segment) bool {
	if a.ID != b.ID || a.Text != b.Text || a.Start != b.Start || a.End != b.End ||
		a.Revision != b.Revision || a.Status != b.Status {
		return false
	}
	if (a.Confidence == nil) != (b.Confidence == nil) {
		return false
	}
	return a.Confidence == nil || *a.Confidence == *b.Confidence
}

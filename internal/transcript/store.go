package transcript

import (
	"errors"
	"sort"
	"sync"
)

// Store errors.
var (
	ErrInvalidInterval = errors.New("segment interval is invalid")
	ErrOverlap         = errors.New("segment overlaps a finalized neighbor")
	ErrNotFound        = errors.New("segment not found")
	ErrNotProvisional  = errors.New("segment is not provisional")
)

// ChangeKind classifies a store mutation.
type ChangeKind string

const (
	// Inserted marks a segment seen for the first time.
	Inserted ChangeKind = "inserted"
	// Updated marks an in-place revision of an existing segment.
	Updated ChangeKind = "updated"
	// FinalizedRangeShrunk marks a correction that moved a finalized
	// segment's end earlier. Consumers holding derived state keyed on the
	// old range must invalidate it.
	FinalizedRangeShrunk ChangeKind = "finalizedRangeShrunk"
	// Removed marks a provisional segment discarded at session end.
	Removed ChangeKind = "removed"
)

// Change describes one committed store mutation. Prev carries the prior
// state of the segment for Updated and FinalizedRangeShrunk changes.
type Change struct {
	Kind    ChangeKind
	Segment Segment
	Prev    *Segment
}

const subscriptionBuffer = 64

// Subscription is an ordered stream of store changes. A subscriber that
// stops draining is evicted and its channel closed.
type Subscription struct {
	id    int
	store *Store
	ch    chan Change
	once  sync.Once
}

// Changes returns the channel change events arrive on. The channel is
// closed when the subscription is evicted or closed.
func (sub *Subscription) Changes() <-chan Change {
	return sub.ch
}

// Close detaches the subscription from the store.
func (sub *Subscription) Close() {
	sub.store.mu.Lock()
	delete(sub.store.subs, sub.id)
	sub.store.mu.Unlock()
	sub.drop()
}

func (sub *Subscription) drop() {
	sub.once.Do(func() { close(sub.ch) })
}

// Store holds the ordered segments of a single session. All mutation goes
// through one writer; any number of readers take snapshots or subscribe to
// changes. Finalized segments never overlap.
type Store struct {
	mu      sync.RWMutex
	segs    []Segment
	byID    map[string]int
	subs    map[int]*Subscription
	nextSub int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		byID: make(map[string]int),
		subs: make(map[int]*Subscription),
	}
}

// Apply inserts or replaces a segment and notifies subscribers. The caller
// is responsible for revision and clamping policy; Apply only guards the
// structural invariants and rejects segments that would break them.
func (s *Store) Apply(seg Segment) (Change, error) {
	if seg.Start < 0 || seg.End <= seg.Start {
		return Change{}, ErrInvalidInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if seg.Status.Final() && s.overlapsFinalLocked(seg) {
		return Change{}, ErrOverlap
	}

	change := Change{Kind: Inserted, Segment: seg}
	if i, ok := s.byID[seg.ID]; ok {
		prev := s.segs[i]
		change.Kind = Updated
		change.Prev = &prev
		if prev.Status.Final() && seg.End < prev.End {
			change.Kind = FinalizedRangeShrunk
		}
		s.removeAtLocked(i)
	}
	s.insertLocked(seg)
	s.publishLocked(change)
	return change, nil
}

// Remove discards a provisional segment, typically at session end when its
// content never reached the commit threshold. Finalized segments cannot be
// removed; corrections replace them instead.
func (s *Store) Remove(id string) (Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byID[id]
	if !ok {
		return Change{}, ErrNotFound
	}
	seg := s.segs[i]
	if seg.Status != Provisional {
		return Change{}, ErrNotProvisional
	}
	s.removeAtLocked(i)
	change := Change{Kind: Removed, Segment: seg}
	s.publishLocked(change)
	return change, nil
}

// Get returns the segment with the given ID.
func (s *Store) Get(id string) (Segment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return Segment{}, false
	}
	return s.segs[i], true
}

// Len returns the number of stored segments.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.segs)
}

// Snapshot returns a point-in-time copy of all segments ordered by start
// time. The copy is internally consistent and independent of later writes.
func (s *Store) Snapshot() []Segment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Segment, len(s.segs))
	copy(out, s.segs)
	return out
}

// FinalSnapshot returns a point-in-time copy of the finalized and corrected
// segments ordered by start time.
func (s *Store) FinalSnapshot() []Segment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Segment, 0, len(s.segs))
	for _, seg := range s.segs {
		if seg.Status.Final() {
			out = append(out, seg)
		}
	}
	return out
}

// Pending returns the number of provisional segments.
func (s *Store) Pending() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, seg := range s.segs {
		if seg.Status == Provisional {
			n++
		}
	}
	return n
}

// Subscribe registers a change listener. Events are delivered in commit
// order. Callers must drain the channel promptly or be evicted.
func (s *Store) Subscribe() *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := &Subscription{
		id:    s.nextSub,
		store: s,
		ch:    make(chan Change, subscriptionBuffer),
	}
	s.subs[sub.id] = sub
	s.nextSub++
	return sub
}

// Subscribers returns the number of attached subscriptions.
func (s *Store) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

func (s *Store) overlapsFinalLocked(seg Segment) bool {
	for _, e := range s.segs {
		if e.ID == seg.ID || !e.Status.Final() {
			continue
		}
		if e.Start < seg.End && seg.Start < e.End {
			return true
		}
	}
	return false
}

func (s *Store) insertLocked(seg Segment) {
	i := sort.Search(len(s.segs), func(j int) bool {
		return s.segs[j].Start > seg.Start
	})
	s.segs = append(s.segs, Segment{})
	copy(s.segs[i+1:], s.segs[i:])
	s.segs[i] = seg
	for j := i; j < len(s.segs); j++ {
		s.byID[s.segs[j].ID] = j
	}
}

func (s *Store) removeAtLocked(i int) {
	delete(s.byID, s.segs[i].ID)
	s.segs = append(s.segs[:i], s.segs[i+1:]...)
	for j := i; j < len(s.segs); j++ {
		s.byID[s.segs[j].ID] = j
	}
}

func (s *Store) publishLocked(c Change) {
	for id, sub := range s.subs {
		select {
		case sub.ch <- c:
		default:
			delete(s.subs, id)
			sub.drop()
		}
	}
}

package transcript

import "testing"

func seg(id, text string, start, end int64, status SegmentStatus) Segment {
	return Segment{ID: id, Text: text, Start: start, End: end, Revision: 1, Status: status}
}

func TestApplyInsertsOrderedByStart(t *testing.T) {
	s := NewStore()
	for _, sg := range []Segment{
		seg("b", "second", 5000, 8000, Finalized),
		seg("a", "first", 0, 5000, Finalized),
		seg("c", "third", 8000, 9000, Finalized),
	} {
		if _, err := s.Apply(sg); err != nil {
			t.Fatalf("apply %s: %v", sg.ID, err)
		}
	}

	snap := s.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("len = %d, want 3", len(snap))
	}
	for i, want := range []string{"a", "b", "c"} {
		if snap[i].ID != want {
			t.Errorf("snap[%d].ID = %q, want %q", i, snap[i].ID, want)
		}
	}
}

func TestApplyInsertChangeKind(t *testing.T) {
	s := NewStore()
	ch, err := s.Apply(seg("a", "hello", 0, 1000, Provisional))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if ch.Kind != Inserted {
		t.Errorf("kind = %q, want %q", ch.Kind, Inserted)
	}
	if ch.Prev != nil {
		t.Errorf("prev = %v, want nil", ch.Prev)
	}
}

func TestApplyUpdateCarriesPrev(t *testing.T) {
	s := NewStore()
	if _, err := s.Apply(seg("a", "hel", 0, 800, Provisional)); err != nil {
		t.Fatalf("apply: %v", err)
	}

	ch, err := s.Apply(seg("a", "hello", 0, 1200, Provisional))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if ch.Kind != Updated {
		t.Errorf("kind = %q, want %q", ch.Kind, Updated)
	}
	if ch.Prev == nil || ch.Prev.Text != "hel" {
		t.Errorf("prev = %+v, want text %q", ch.Prev, "hel")
	}
	if got, _ := s.Get("a"); got.Text != "hello" {
		t.Errorf("text = %q, want %q", got.Text, "hello")
	}
	if s.Len() != 1 {
		t.Errorf("len = %d, want 1", s.Len())
	}
}

func TestApplyRepositionsWhenStartMoves(t *testing.T) {
	s := NewStore()
	if _, err := s.Apply(seg("a", "first", 0, 4000, Finalized)); err != nil {
		t.Fatalf("apply a: %v", err)
	}
	if _, err := s.Apply(seg("b", "late", 9000, 9500, Provisional)); err != nil {
		t.Fatalf("apply b: %v", err)
	}

	// Revised timing moves b ahead of a.
	if _, err := s.Apply(seg("b", "late", 4000, 8000, Finalized)); err != nil {
		t.Fatalf("move b: %v", err)
	}

	snap := s.Snapshot()
	if snap[0].ID != "a" || snap[1].ID != "b" {
		t.Errorf("order = [%s %s], want [a b]", snap[0].ID, snap[1].ID)
	}
	if got, _ := s.Get("b"); got.Start != 4000 {
		t.Errorf("b.Start = %d, want 4000", got.Start)
	}
}

func TestApplyRejectsInvalidInterval(t *testing.T) {
	s := NewStore()
	if _, err := s.Apply(seg("a", "x", 1000, 1000, Finalized)); err != ErrInvalidInterval {
		t.Errorf("zero-length: err = %v, want ErrInvalidInterval", err)
	}
	if _, err := s.Apply(seg("a", "x", 2000, 1000, Finalized)); err != ErrInvalidInterval {
		t.Errorf("inverted: err = %v, want ErrInvalidInterval", err)
	}
	if _, err := s.Apply(seg("a", "x", -5, 1000, Finalized)); err != ErrInvalidInterval {
		t.Errorf("negative: err = %v, want ErrInvalidInterval", err)
	}
	if s.Len() != 0 {
		t.Errorf("len = %d, want 0", s.Len())
	}
}

func TestApplyRejectsFinalOverlap(t *testing.T) {
	s := NewStore()
	if _, err := s.Apply(seg("a", "first", 0, 5000, Finalized)); err != nil {
		t.Fatalf("apply a: %v", err)
	}

	if _, err := s.Apply(seg("b", "clash", 4000, 6000, Finalized)); err != ErrOverlap {
		t.Errorf("err = %v, want ErrOverlap", err)
	}

	// Provisional overlap is tolerated until finalization.
	if _, err := s.Apply(seg("c", "interim", 4000, 6000, Provisional)); err != nil {
		t.Errorf("provisional overlap: %v", err)
	}
}

func TestApplyAllowsTouchingIntervals(t *testing.T) {
	s := NewStore()
	if _, err := s.Apply(seg("a", "first", 0, 5000, Finalized)); err != nil {
		t.Fatalf("apply a: %v", err)
	}
	if _, err := s.Apply(seg("b", "second", 5000, 8000, Finalized)); err != nil {
		t.Errorf("touching: %v", err)
	}
}

func TestFinalizedRangeShrunkKind(t *testing.T) {
	s := NewStore()
	if _, err := s.Apply(seg("a", "first", 0, 5000, Finalized)); err != nil {
		t.Fatalf("apply: %v", err)
	}

	shrunk := seg("a", "first", 0, 4200, Corrected)
	shrunk.Revision = 2
	ch, err := s.Apply(shrunk)
	if err != nil {
		t.Fatalf("correct: %v", err)
	}
	if ch.Kind != FinalizedRangeShrunk {
		t.Errorf("kind = %q, want %q", ch.Kind, FinalizedRangeShrunk)
	}
	if ch.Prev == nil || ch.Prev.End != 5000 {
		t.Errorf("prev = %+v, want End 5000", ch.Prev)
	}
}

func TestCorrectionWithoutShrinkIsUpdated(t *testing.T) {
	s := NewStore()
	if _, err := s.Apply(seg("a", "first", 0, 5000, Finalized)); err != nil {
		t.Fatalf("apply: %v", err)
	}

	fixed := seg("a", "first, corrected", 0, 5000, Corrected)
	fixed.Revision = 2
	ch, err := s.Apply(fixed)
	if err != nil {
		t.Fatalf("correct: %v", err)
	}
	if ch.Kind != Updated {
		t.Errorf("kind = %q, want %q", ch.Kind, Updated)
	}
}

func TestRemoveProvisional(t *testing.T) {
	s := NewStore()
	if _, err := s.Apply(seg("a", "um", 0, 300, Provisional)); err != nil {
		t.Fatalf("apply: %v", err)
	}

	ch, err := s.Remove("a")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if ch.Kind != Removed {
		t.Errorf("kind = %q, want %q", ch.Kind, Removed)
	}
	if s.Len() != 0 {
		t.Errorf("len = %d, want 0", s.Len())
	}
}

func TestRemoveRejectsFinalized(t *testing.T) {
	s := NewStore()
	if _, err := s.Apply(seg("a", "done", 0, 1000, Finalized)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := s.Remove("a"); err != ErrNotProvisional {
		t.Errorf("err = %v, want ErrNotProvisional", err)
	}
	if _, err := s.Remove("ghost"); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s := NewStore()
	if _, err := s.Apply(seg("a", "before", 0, 1000, Finalized)); err != nil {
		t.Fatalf("apply: %v", err)
	}

	snap := s.Snapshot()
	if _, err := s.Apply(seg("b", "after", 1000, 2000, Finalized)); err != nil {
		t.Fatalf("apply b: %v", err)
	}

	if len(snap) != 1 {
		t.Errorf("snapshot len = %d, want 1", len(snap))
	}
	if s.Len() != 2 {
		t.Errorf("store len = %d, want 2", s.Len())
	}
}

func TestFinalSnapshotFiltersProvisional(t *testing.T) {
	s := NewStore()
	if _, err := s.Apply(seg("a", "done", 0, 1000, Finalized)); err != nil {
		t.Fatalf("apply a: %v", err)
	}
	if _, err := s.Apply(seg("b", "typing", 1000, 1500, Provisional)); err != nil {
		t.Fatalf("apply b: %v", err)
	}
	if _, err := s.Apply(seg("c", "fixed", 1500, 2000, Corrected)); err != nil {
		t.Fatalf("apply c: %v", err)
	}

	final := s.FinalSnapshot()
	if len(final) != 2 {
		t.Fatalf("final len = %d, want 2", len(final))
	}
	if final[0].ID != "a" || final[1].ID != "c" {
		t.Errorf("final = [%s %s], want [a c]", final[0].ID, final[1].ID)
	}
	if s.Pending() != 1 {
		t.Errorf("pending = %d, want 1", s.Pending())
	}
}

func TestSubscribeDeliversInCommitOrder(t *testing.T) {
	s := NewStore()
	sub := s.Subscribe()
	defer sub.Close()

	if _, err := s.Apply(seg("a", "one", 0, 1000, Provisional)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := s.Apply(seg("a", "one two", 0, 1600, Provisional)); err != nil {
		t.Fatalf("update: %v", err)
	}
	final := seg("a", "one two", 0, 1600, Finalized)
	final.Revision = 2
	if _, err := s.Apply(final); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	wantKinds := []ChangeKind{Inserted, Updated, Updated}
	for i, want := range wantKinds {
		ch := <-sub.Changes()
		if ch.Kind != want {
			t.Errorf("event %d kind = %q, want %q", i, ch.Kind, want)
		}
	}
}

func TestSlowSubscriberEvicted(t *testing.T) {
	s := NewStore()
	sub := s.Subscribe()

	// Fill the buffer past capacity without draining.
	for i := 0; i < subscriptionBuffer+10; i++ {
		sg := seg("a", "tick", 0, 1000, Provisional)
		sg.Revision = i + 1
		if _, err := s.Apply(sg); err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
	}

	if s.Subscribers() != 0 {
		t.Fatalf("subscribers = %d, want 0", s.Subscribers())
	}

	// The channel is closed after the buffered backlog.
	n := 0
	for range sub.Changes() {
		n++
	}
	if n != subscriptionBuffer {
		t.Errorf("delivered = %d, want %d", n, subscriptionBuffer)
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	s := NewStore()
	sub := s.Subscribe()
	sub.Close()
	sub.Close()
	if s.Subscribers() != 0 {
		t.Errorf("subscribers = %d, want 0", s.Subscribers())
	}
}

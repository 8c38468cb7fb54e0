package follow

import (
	"testing"
	"time"
)

func TestStartsLive(t *testing.T) {
	c := NewController(0)
	if c.State() != Live {
		t.Errorf("state = %q, want %q", c.State(), Live)
	}
	if !c.Following() {
		t.Error("new controller should follow")
	}
}

func TestScrollAwayThenAppend(t *testing.T) {
	c := NewController(0)

	c.ScrollAway()
	if c.State() != Parked {
		t.Fatalf("state = %q, want %q", c.State(), Parked)
	}

	if c.Append(1) {
		t.Error("append while parked should not follow-scroll")
	}
	if c.Unseen() != 1 {
		t.Errorf("unseen = %d, want 1", c.Unseen())
	}
	if !c.ShowJumpToLive() {
		t.Error("jump-to-live affordance should show")
	}

	c.Append(2)
	if c.Unseen() != 3 {
		t.Errorf("unseen = %d, want 3", c.Unseen())
	}
}

func TestJumpToLiveClearsUnseen(t *testing.T) {
	c := NewController(0)
	c.ScrollAway()
	c.Append(4)

	c.JumpToLive()
	if c.State() != Live {
		t.Errorf("state = %q, want %q", c.State(), Live)
	}
	if c.Unseen() != 0 {
		t.Errorf("unseen = %d, want 0", c.Unseen())
	}
	if c.ShowJumpToLive() {
		t.Error("affordance should hide after jumping")
	}
	if !c.Append(1) {
		t.Error("append while live should follow-scroll")
	}
}

func TestScrollToTailReturnsLive(t *testing.T) {
	c := NewController(0)
	c.ScrollAway()
	c.Append(2)

	c.ScrollToTail()
	if !c.Following() || c.Unseen() != 0 {
		t.Errorf("following = %v unseen = %d, want live with none unseen", c.Following(), c.Unseen())
	}
}

func TestAppendWhileLiveLeavesUnseenZero(t *testing.T) {
	c := NewController(0)
	if !c.Append(3) {
		t.Error("append while live should follow-scroll")
	}
	if c.Unseen() != 0 {
		t.Errorf("unseen = %d, want 0", c.Unseen())
	}
	if c.ShowJumpToLive() {
		t.Error("affordance should not show while live")
	}
}

func TestResetForNewSession(t *testing.T) {
	c := NewController(0)
	c.ScrollAway()
	c.Append(5)
	c.Touch(time.Now())

	c.Reset()
	if c.State() != Live || c.Unseen() != 0 {
		t.Errorf("state = %q unseen = %d, want live with none unseen", c.State(), c.Unseen())
	}
	if c.Idle(time.Now().Add(time.Hour)) {
		t.Error("idle should stay false until first activity")
	}
}

func TestIdleThreshold(t *testing.T) {
	c := NewController(2 * time.Second)
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	if c.Idle(start) {
		t.Error("idle before any activity")
	}

	c.Touch(start)
	if c.Idle(start.Add(1 * time.Second)) {
		t.Error("idle inside threshold")
	}
	if !c.Idle(start.Add(2 * time.Second)) {
		t.Error("not idle at threshold")
	}

	c.Touch(start.Add(3 * time.Second))
	if c.Idle(start.Add(4 * time.Second)) {
		t.Error("idle right after fresh activity")
	}
}

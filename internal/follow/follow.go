// Package follow centralizes the live-view scroll policy: whether the
// transcript view tracks the newest segment or stays parked where the user
// scrolled, and when the jump-to-live affordance appears. The view renders;
// this package decides.
package follow

import "time"

// State is the presentation mode of the transcript view.
type State string

const (
	// Live keeps the view pinned to the newest segment.
	Live State = "live"
	// Parked holds the view where the user scrolled.
	Parked State = "parked"
)

// DefaultIdleAfter is the stream-silence gap before the idle indicator shows.
const DefaultIdleAfter = 5 * time.Second

// Controller is the two-state follow policy for a transcript view. The zero
// value is not usable; call NewController.
type Controller struct {
	state        State
	unseen       int
	idleAfter    time.Duration
	lastActivity time.Time
}

// NewController returns a controller in the Live state. idleAfter <= 0
// selects DefaultIdleAfter.
func NewController(idleAfter time.Duration) *Controller {
	if idleAfter <= 0 {
		idleAfter = DefaultIdleAfter
	}
	return &Controller{state: Live, idleAfter: idleAfter}
}

// State returns the current presentation mode.
func (c *Controller) State() State {
	return c.state
}

// Following reports whether the view should track the newest segment.
func (c *Controller) Following() bool {
	return c.state == Live
}

// Unseen returns the number of segments appended while parked.
func (c *Controller) Unseen() int {
	return c.unseen
}

// ShowJumpToLive reports whether the jump-to-live affordance should render.
func (c *Controller) ShowJumpToLive() bool {
	return c.state == Parked && c.unseen > 0
}

// ScrollAway transitions to Parked. The view keeps its scroll position.
func (c *Controller) ScrollAway() {
	c.state = Parked
}

// ScrollToTail transitions to Live after the user manually scrolled back to
// the newest segment.
func (c *Controller) ScrollToTail() {
	c.state = Live
	c.unseen = 0
}

// JumpToLive transitions to Live via the affordance. The caller scrolls the
// view to the newest segment.
func (c *Controller) JumpToLive() {
	c.state = Live
	c.unseen = 0
}

// Append records n newly appended segments and reports whether the view
// should follow-scroll. While Parked the scroll position must not move;
// the segments count toward the unseen indicator instead.
func (c *Controller) Append(n int) bool {
	if c.state == Live {
		return true
	}
	c.unseen += n
	return false
}

// Reset returns to Live with no unseen segments, for a new session.
func (c *Controller) Reset() {
	c.state = Live
	c.unseen = 0
	c.lastActivity = time.Time{}
}

// Touch records hypothesis-stream activity at now.
func (c *Controller) Touch(now time.Time) {
	c.lastActivity = now
}

// Idle reports whether the stream has been silent longer than the idle
// threshold. It stays false until the first Touch of the session.
func (c *Controller) Idle(now time.Time) bool {
	if c.lastActivity.IsZero() {
		return false
	}
	return now.Sub(c.lastActivity) >= c.idleAfter
}

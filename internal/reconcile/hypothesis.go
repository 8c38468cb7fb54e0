// Package reconcile turns the hypothesis stream of a recognition engine into
// committed transcript segments, enforcing ordering and timing invariants.
package reconcile

// Hypothesis is one recognition event from the upstream engine. The engine
// may revise the same ID repeatedly; Revision is non-decreasing per ID.
// Final marks the engine's commitment to text and timing.
type Hypothesis struct {
	ID         string
	Text       string
	Start      int64
	End        int64
	Confidence *float64
	Revision   int
	Final      bool
}

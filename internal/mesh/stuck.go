package mesh

import (
	"sync"
	"time"

	"github.com/pimesh/crew/internal/feed"
)

// StuckDetector tracks which peers have already been notified as stuck so
// that the "stuck" feed event fires at most once per peer until the
// condition clears, per spec §4.3 and the idempotency design note in §9.
// Idempotency is local to the process holding the detector, by design.
type StuckDetector struct {
	threshold time.Duration

	mu      sync.Mutex
	flagged map[string]bool
}

// NewStuckDetector returns a detector using threshold as the staleness
// cutoff for activity.lastActivityAt.
func NewStuckDetector(threshold time.Duration) *StuckDetector {
	return &StuckDetector{threshold: threshold, flagged: map[string]bool{}}
}

// isStuck reports whether reg is currently stuck: it holds an active task
// or reservation and its last activity predates the threshold.
func (d *StuckDetector) isStuck(reg AgentRegistration, now time.Time) bool {
	hasWork := len(reg.Reservations) > 0 || reg.Activity.CurrentActivity != ""
	if !hasWork {
		return false
	}
	return now.Sub(reg.Activity.LastActivityAt) >= d.threshold
}

// Check evaluates peers against the staleness threshold and emits a
// "stuck" feed event for any peer newly observed as stuck. Peers that have
// recovered are un-flagged so a future recurrence notifies again.
func (d *StuckDetector) Check(peers []AgentRegistration, f *feed.Feed, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	seen := make(map[string]bool, len(peers))
	for _, peer := range peers {
		seen[peer.Name] = true
		stuck := d.isStuck(peer, now)
		if stuck && !d.flagged[peer.Name] {
			d.flagged[peer.Name] = true
			if f != nil {
				_ = f.Append(feed.Event{Agent: peer.Name, Type: feed.EventStuck})
			}
		} else if !stuck {
			delete(d.flagged, peer.Name)
		}
	}
	for name := range d.flagged {
		if !seen[name] {
			delete(d.flagged, name)
		}
	}
}

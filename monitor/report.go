package monitor

import (
	"time"

	"restock-watcher/internal/types"
)

// State is a step of the per-target state machine
type State int

const (
	StateIdle State = iota
	StateLoadingPage
	StateAwaitingSizeBlock
	StateExtracting
	StateNotifying
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoadingPage:
		return "loading-page"
	case StateAwaitingSizeBlock:
		return "awaiting-size-block"
	case StateExtracting:
		return "extracting"
	case StateNotifying:
		return "notifying"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// TargetResult is the outcome of one target in one cycle.
// State is StateDone once the target has been processed, failed or not, and
// FailedIn is only meaningful when Err is set. Suppressed lists available sizes
// already notified in an earlier cycle.
type TargetResult struct {
	URL        string                         `json:"url"`
	State      State                          `json:"state"`
	FailedIn   State                          `json:"failed_in,omitempty"`
	Statuses   map[types.SizeKey]types.Status `json:"statuses,omitempty"`
	Events     []types.NotificationEvent      `json:"events,omitempty"`
	Deliveries []types.DeliveryResult         `json:"deliveries,omitempty"`
	Suppressed []types.SizeKey                `json:"suppressed,omitempty"`
	Err        error                          `json:"-"`
	Error      string                         `json:"error,omitempty"`
}

// CycleReport collects every target result of one cycle
type CycleReport struct {
	Started  time.Time      `json:"started"`
	Duration time.Duration  `json:"duration"`
	Targets  []TargetResult `json:"targets"`
}

// Events returns every notification event of the cycle in order
func (r *CycleReport) Events() []types.NotificationEvent {
	var events []types.NotificationEvent
	for _, t := range r.Targets {
		events = append(events, t.Events...)
	}
	return events
}

// Delivered counts successful deliveries
func (r *CycleReport) Delivered() int {
	n := 0
	for _, t := range r.Targets {
		for _, d := range t.Deliveries {
			if d.OK {
				n++
			}
		}
	}
	return n
}

// Failed counts targets that ended without extraction
func (r *CycleReport) Failed() int {
	n := 0
	for _, t := range r.Targets {
		if t.Err != nil {
			n++
		}
	}
	return n
}

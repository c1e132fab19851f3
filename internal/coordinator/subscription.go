package coordinator

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sadopc/spacescope/internal/model"
	"github.com/sadopc/spacescope/internal/scanner"
)

// State is the lifecycle of one requested operation.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// EventKind tags an Event.
type EventKind int

const (
	EventProgress EventKind = iota
	EventCompleted
	EventFailed
	EventCancelled
)

// Event is delivered on a Subscription. Any number of progress events are
// followed by exactly one terminal event.
type Event struct {
	Kind     EventKind
	Progress scanner.Progress
	// Root is set when a root scan completes.
	Root   *model.Node
	Totals scanner.Totals
	// Children is set when an expansion completes.
	Children []*model.Node
	Err      error
}

// Terminal reports whether this is the last event of its subscription.
func (e Event) Terminal() bool {
	return e.Kind != EventProgress
}

func (k EventKind) state() State {
	switch k {
	case EventCompleted:
		return StateCompleted
	case EventFailed:
		return StateFailed
	case EventCancelled:
		return StateCancelled
	default:
		return StateRunning
	}
}

// SubjectKind says what an operation works on.
type SubjectKind int

const (
	SubjectRoot SubjectKind = iota
	SubjectNode
)

// Subject identifies the target of an operation.
type Subject struct {
	Kind SubjectKind
	Path string
}

// subjectKey groups operations that supersede each other. All root scans
// share one key whatever their path.
type subjectKey struct {
	kind SubjectKind
	path string
}

func (s Subject) key() subjectKey {
	if s.Kind == SubjectRoot {
		return subjectKey{kind: SubjectRoot}
	}
	return subjectKey{kind: SubjectNode, path: s.Path}
}

// Subscription receives the events of one StartScan or Expand call.
type Subscription struct {
	ID         string
	Subject    Subject
	Generation uint64

	mu     sync.Mutex
	closed bool
	events chan Event
	state  atomic.Int32
}

func newSubscription(subject Subject, gen uint64, buffer int) *Subscription {
	s := &Subscription{
		ID:         uuid.NewString(),
		Subject:    subject,
		Generation: gen,
		// One slot beyond the progress buffer is kept for the terminal event.
		events: make(chan Event, buffer+1),
	}
	s.state.Store(int32(StateRunning))
	return s
}

// Events is closed after the terminal event.
func (s *Subscription) Events() <-chan Event { return s.events }

// State returns the current lifecycle state.
func (s *Subscription) State() State { return State(s.state.Load()) }

// Wait blocks until the terminal event arrives, discarding progress.
func (s *Subscription) Wait(ctx context.Context) (Event, error) {
	for {
		select {
		case ev, ok := <-s.events:
			if !ok {
				return Event{}, ErrClosed
			}
			if ev.Terminal() {
				return ev, nil
			}
		case <-ctx.Done():
			return Event{}, ctx.Err()
		}
	}
}

// publish delivers a progress event, dropping it when the consumer lags.
func (s *Subscription) publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(s.events) >= cap(s.events)-1 {
		return
	}
	s.events <- ev
}

// finish delivers the terminal event and closes the channel. Only the
// first call has any effect.
func (s *Subscription) finish(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	s.state.Store(int32(ev.Kind.state()))
	s.events <- ev
	close(s.events)
	return true
}

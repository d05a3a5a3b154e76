package importer

import (
	"context"
	"sync"
	"time"

	"github.com/jonathan/resume-importer/internal/ingestion"
)

// Event is one observable step of a session: a state change or page progress.
type Event struct {
	SessionID string                  `json:"sessionId"`
	Seq       int                     `json:"seq"`
	State     State                   `json:"state"`
	Stage     Stage                   `json:"stage,omitempty"`
	Page      *ingestion.PageProgress `json:"page,omitempty"`
	Failure   *Error                  `json:"failure,omitempty"`
	Time      time.Time               `json:"time"`
}

// eventLog is an append-only, closable event history shared by every Stream
// of a session.
type eventLog struct {
	mu     sync.Mutex
	events []Event
	closed bool
	wake   chan struct{}
}

func newEventLog() *eventLog {
	return &eventLog{wake: make(chan struct{})}
}

// append adds ev unless the log is closed. It reports whether ev was added.
func (l *eventLog) append(ev Event) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	ev.Seq = len(l.events) + 1
	l.events = append(l.events, ev)
	close(l.wake)
	l.wake = make(chan struct{})
	return true
}

func (l *eventLog) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	close(l.wake)
}

func (l *eventLog) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *eventLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// at returns event i if present. Otherwise it returns a channel that is closed
// on the next append or close, or nil when the log is closed and drained.
func (l *eventLog) at(i int) (Event, bool, <-chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < len(l.events) {
		return l.events[i], true, nil
	}
	if l.closed {
		return Event{}, false, nil
	}
	return Event{}, false, l.wake
}

// Stream reads a session's events in order, from the first one.
// A Stream is not safe for concurrent use; open one per reader.
type Stream struct {
	log  *eventLog
	next int
}

// Next blocks until the next event is available. It returns false once the
// session's stream is closed and drained, or when ctx is done.
func (s *Stream) Next(ctx context.Context) (Event, bool) {
	for {
		ev, ok, wake := s.log.at(s.next)
		if ok {
			s.next++
			return ev, true
		}
		if wake == nil {
			return Event{}, false
		}
		select {
		case <-wake:
		case <-ctx.Done():
			return Event{}, false
		}
	}
}

// Pending reports whether events are already buffered for this reader.
func (s *Stream) Pending() bool {
	return s.next < s.log.len()
}

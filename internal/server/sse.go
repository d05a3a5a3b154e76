package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/resume-importer/internal/importer"
)

// sseRetryMillis is the reconnect delay suggested to EventSource clients.
const sseRetryMillis = 2000

// SSEWriter writes session events as Server-Sent Events. Every session event
// carries its sequence number as the SSE id.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter sets the event-stream headers and the client retry hint.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("streaming not supported")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	if _, err := fmt.Fprintf(w, "retry: %d\n\n", sseRetryMillis); err != nil {
		return nil, err
	}
	flusher.Flush()
	return &SSEWriter{w: w, flusher: flusher}, nil
}

// eventName is "progress" for page events and "state" for transitions.
func eventName(ev importer.Event) string {
	if ev.Page != nil {
		return "progress"
	}
	return "state"
}

// Send writes one session event.
func (s *SSEWriter) Send(ev importer.Event) error {
	return s.write(ev.Seq, eventName(ev), ev)
}

// Complete tells the client the stream is over and the session's final state.
// It carries no id so a resuming client never skips past it.
func (s *SSEWriter) Complete(sessionID string, state importer.State) error {
	return s.write(0, "complete", map[string]string{
		"session_id": sessionID,
		"state":      string(state),
	})
}

func (s *SSEWriter) write(id int, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	var frame []byte
	if id > 0 {
		frame = fmt.Appendf(frame, "id: %d\n", id)
	}
	frame = fmt.Appendf(frame, "event: %s\ndata: %s\n\n", event, payload)
	if _, err := s.w.Write(frame); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// SSE event names emitted for a streamed submission.
const (
	EventWorkflow = "workflow"
	EventSegment  = "segment"
	EventDone     = "done"
)

// SSEEvent is one server-sent event.
type SSEEvent struct {
	Event string
	ID    string
	Data  []byte
}

// SerializeSSEEvent converts an SSE event to wire format. Multi-line data is
// split across several data fields.
func SerializeSSEEvent(event *SSEEvent) []byte {
	if event == nil {
		return []byte{}
	}

	var buffer bytes.Buffer

	if event.Event != "" {
		buffer.WriteString("event: ")
		buffer.WriteString(event.Event)
		buffer.WriteString("\n")
	}

	if event.ID != "" {
		buffer.WriteString("id: ")
		buffer.WriteString(event.ID)
		buffer.WriteString("\n")
	}

	if len(event.Data) > 0 {
		for _, dataLine := range strings.Split(string(event.Data), "\n") {
			buffer.WriteString("data: ")
			buffer.WriteString(dataLine)
			buffer.WriteString("\n")
		}
	} else {
		// Even if data is empty, we need at least one data line for valid SSE
		buffer.WriteString("data: \n")
	}

	// End event with empty line
	buffer.WriteString("\n")

	return buffer.Bytes()
}

// sseStream writes JSON-encoded events to a response and flushes after each.
type sseStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	id      string
	seq     int
}

func newSSEStream(w http.ResponseWriter, id string) *sseStream {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	return &sseStream{w: w, flusher: flusher, id: id}
}

func (s *sseStream) send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}

	s.seq++
	frame := SerializeSSEEvent(&SSEEvent{
		Event: event,
		ID:    fmt.Sprintf("%s-%d", s.id, s.seq),
		Data:  data,
	})
	if _, err := s.w.Write(frame); err != nil {
		return fmt.Errorf("write %s event: %w", event, err)
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

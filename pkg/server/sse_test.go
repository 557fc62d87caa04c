package server

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeSSEEvent(t *testing.T) {
	tests := []struct {
		name  string
		event *SSEEvent
		want  string
	}{
		{"nil", nil, ""},
		{"full", &SSEEvent{Event: "segment", ID: "r-1", Data: []byte(`{"phase":"reasoning"}`)},
			"event: segment\nid: r-1\ndata: {\"phase\":\"reasoning\"}\n\n"},
		{"multi-line data", &SSEEvent{Data: []byte("line one\nline two")},
			"data: line one\ndata: line two\n\n"},
		{"empty data", &SSEEvent{Event: "done"}, "event: done\ndata: \n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(SerializeSSEEvent(tt.event)))
		})
	}
}

func TestSSEStream_NumbersEvents(t *testing.T) {
	rec := httptest.NewRecorder()
	stream := newSSEStream(rec, "req")

	require.NoError(t, stream.send(EventSegment, map[string]string{"phase": "reasoning"}))
	require.NoError(t, stream.send(EventDone, struct{}{}))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t,
		"event: segment\nid: req-1\ndata: {\"phase\":\"reasoning\"}\n\n"+
			"event: done\nid: req-2\ndata: {}\n\n",
		rec.Body.String())
	assert.True(t, rec.Flushed)
}

package sse

import (
	"bufio"
	"fmt"
	"net/http"
)

// Writer formats Events onto an http.ResponseWriter as
// text/event-stream frames, flushing after every write so subscribers see
// events as they're published rather than buffered.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
	buf     *bufio.Writer
}

// NewWriter wraps w for SSE output. It returns an error if w doesn't support
// flushing, since without it nothing would ever reach the client.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("sse: response writer does not support flushing")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	return &Writer{w: w, flusher: flusher, buf: bufio.NewWriter(w)}, nil
}

// WriteEvent emits one SSE frame and flushes immediately.
func (sw *Writer) WriteEvent(ev Event) error {
	if _, err := fmt.Fprintf(sw.buf, "id: %d\n", ev.ID); err != nil {
		return err
	}
	if ev.Type != "" {
		if _, err := fmt.Fprintf(sw.buf, "event: %s\n", ev.Type); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(sw.buf, "data: %s\n\n", ev.Data); err != nil {
		return err
	}
	if err := sw.buf.Flush(); err != nil {
		return err
	}
	sw.flusher.Flush()
	return nil
}

// WriteComment emits an SSE comment line, used as a keep-alive heartbeat
// that doesn't surface as an event to the client.
func (sw *Writer) WriteComment(text string) error {
	if _, err := fmt.Fprintf(sw.buf, ": %s\n\n", text); err != nil {
		return err
	}
	if err := sw.buf.Flush(); err != nil {
		return err
	}
	sw.flusher.Flush()
	return nil
}

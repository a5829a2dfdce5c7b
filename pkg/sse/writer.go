package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// flusher is satisfied by *bufio.Writer and buffered fiber stream writers.
type flusher interface {
	Flush() error
}

// plainFlusher is satisfied by http.Flusher.
type plainFlusher interface {
	Flush()
}

// Writer encodes SSE frames onto an io.Writer. Every frame is flushed as
// soon as it is written when the destination supports flushing.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer emitting frames to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteEvent writes a frame with an optional event type. Multi-line data is
// split across several data lines.
func (w *Writer) WriteEvent(event string, data []byte) error {
	var b strings.Builder
	if event != "" {
		b.WriteString("event: ")
		b.WriteString(event)
		b.WriteByte('\n')
	}

	for line := range strings.SplitSeq(string(data), "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	if _, err := io.WriteString(w.w, b.String()); err != nil {
		return fmt.Errorf("writing sse frame: %w", err)
	}
	return w.flush()
}

// WriteData writes a frame with no event type.
func (w *Writer) WriteData(data []byte) error {
	return w.WriteEvent("", data)
}

// WriteJSON marshals v and writes it as a frame.
func (w *Writer) WriteJSON(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling sse payload: %w", err)
	}
	return w.WriteEvent(event, data)
}

// WriteDone writes the terminal "data: [DONE]" frame.
func (w *Writer) WriteDone() error {
	return w.WriteData([]byte(DoneSentinel))
}

func (w *Writer) flush() error {
	switch f := w.w.(type) {
	case flusher:
		if err := f.Flush(); err != nil {
			return fmt.Errorf("flushing sse frame: %w", err)
		}
	case plainFlusher:
		f.Flush()
	}
	return nil
}

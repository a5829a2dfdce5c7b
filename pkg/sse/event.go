// Package sse provides a minimal, purpose-built SSE (Server-Sent Events) codec
// for folio: a frame Decoder used by the completion client to read upstream
// event streams, and a Writer used by the chat server to emit them.
//
// The decoder follows the framing the folio upstream actually speaks rather
// than the full SSE specification: frames are separated by a blank line and
// only the first "event:" and the first "data:" line of a frame are read.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

const (
	// ContentType is the media type of an SSE response body.
	ContentType = "text/event-stream"

	// DoneSentinel is the literal data payload signaling the end of a stream.
	DoneSentinel = "[DONE]"

	// EventDone is the event type some upstreams use for the terminal frame.
	EventDone = "done"

	// EventError is the event type used for in-band stream errors.
	EventError = "error"
)

// Frame represents a single SSE frame, delimited by a blank line in the
// upstream byte stream.
type Frame struct {
	// Event is the trimmed value of the first "event:" line.
	// An empty string means no event type was given.
	Event string

	// Data is the trimmed value of the first "data:" line. Frames without a
	// data line are never returned by the Decoder.
	Data string
}

// IsDone reports whether the frame carries the literal done sentinel.
func (f *Frame) IsDone() bool {
	return f.Data == DoneSentinel
}

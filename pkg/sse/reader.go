package sse

import (
	"bytes"
	"errors"
	"io"
	"strings"
)

const (
	readChunkSize = 32 * 1024

	// maxFrameSize bounds the incomplete tail kept between reads.
	maxFrameSize = 1024 * 1024

	eventPrefix = "event:"
	dataPrefix  = "data:"
)

var (
	frameDelimiter = []byte("\n\n")
	crlf           = []byte("\r\n")
	lf             = []byte("\n")
)

// ErrFrameTooLarge is returned when the stream buffers more than maxFrameSize
// bytes without a frame delimiter.
var ErrFrameTooLarge = errors.New("sse: frame exceeds maximum size")

// Decoder reads SSE frames from a source io.Reader.
//
// ┌──────────────────┐
// │ source io.Reader │  one Read outstanding at a time
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐
// │  text buffer     │  split on "\n\n", incomplete tail kept
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐
// │      Frame       │  first event: line, first data: line
// └──────────────────┘
type Decoder struct {
	src     io.Reader
	readBuf []byte

	// buf holds the trailing, possibly partial, fragment of the stream.
	buf []byte

	// pending holds complete frames split from buf but not yet returned.
	pending []Frame

	eof bool
	err error
}

// NewDecoder returns a Decoder reading frames from src.
func NewDecoder(src io.Reader) *Decoder {
	return &Decoder{
		src:     src,
		readBuf: make([]byte, readChunkSize),
	}
}

// Next returns the next complete frame. It blocks on the source until a frame
// is available. Next returns nil, nil when the source is exhausted; a trailing
// fragment that never received its delimiter is discarded.
//
// Frames already split from the buffer are always returned before a read
// error is reported.
func (d *Decoder) Next() (*Frame, error) {
	for {
		if len(d.pending) > 0 {
			frame := d.pending[0]
			d.pending = d.pending[1:]
			return &frame, nil
		}

		if d.err != nil {
			return nil, d.err
		}
		if d.eof {
			return nil, nil
		}

		n, err := d.src.Read(d.readBuf)
		if n > 0 {
			d.feed(d.readBuf[:n])
		}

		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			d.eof = true
		default:
			d.err = err
		}

		if d.err == nil && len(d.buf) > maxFrameSize {
			d.err = ErrFrameTooLarge
		}
	}
}

// feed appends newly read bytes to the buffer and splits off every complete
// frame it now contains.
func (d *Decoder) feed(p []byte) {
	d.buf = append(d.buf, p...)
	if bytes.Contains(d.buf, crlf) {
		d.buf = bytes.ReplaceAll(d.buf, crlf, lf)
	}

	for {
		idx := bytes.Index(d.buf, frameDelimiter)
		if idx < 0 {
			break
		}

		raw := string(d.buf[:idx])
		d.buf = d.buf[idx+len(frameDelimiter):]

		if frame, ok := parseFrame(raw); ok {
			d.pending = append(d.pending, frame)
		}
	}

	// Compact so the retained tail does not pin an ever-growing array.
	if len(d.buf) == 0 {
		d.buf = d.buf[:0:0]
	}
}

// parseFrame extracts the first event and data lines of a raw frame.
// Frames without a data line are reported as not ok.
func parseFrame(raw string) (Frame, bool) {
	if strings.TrimSpace(raw) == "" {
		return Frame{}, false
	}

	var frame Frame
	var hasEvent, hasData bool

	for line := range strings.SplitSeq(raw, "\n") {
		switch {
		case !hasEvent && strings.HasPrefix(line, eventPrefix):
			frame.Event = strings.TrimSpace(line[len(eventPrefix):])
			hasEvent = true
		case !hasData && strings.HasPrefix(line, dataPrefix):
			frame.Data = strings.TrimSpace(line[len(dataPrefix):])
			hasData = true
		}
	}

	return frame, hasData
}

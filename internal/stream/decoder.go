// Package stream decodes the event protocol spoken by streaming agent
// services: newline-terminated "data: <json>" frames carrying a type
// discriminator, interim progress, and a final payload.
package stream

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/adsmith-io/adsmith/internal/core"
)

// FrameType is the discriminator carried by every event frame.
type FrameType string

const (
	// FrameProgress carries a human-readable status message.
	FrameProgress FrameType = "PROGRESS"

	// FrameStreamingURL announces a URL where the task can be watched live.
	FrameStreamingURL FrameType = "STREAMING_URL"

	// FrameComplete carries the final payload and ends the sequence.
	FrameComplete FrameType = "COMPLETE"

	// FrameError reports a failure from the agent service and ends the
	// sequence.
	FrameError FrameType = "ERROR"
)

// Frame is one decoded event.
type Frame struct {
	Type    FrameType       `json:"type"`
	Message string          `json:"message,omitempty"`
	URL     string          `json:"url,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const dataPrefix = "data:"

// Decoder reads frames from a byte stream. It is single-use: once a
// terminal frame or an error has been delivered, every later Next call
// repeats the outcome. Reads buffer internally, so frames split across
// arbitrary chunk boundaries decode identically to a single read; a
// frame only decodes once its terminating newline has arrived.
//
// Decoders are not safe for concurrent use.
type Decoder struct {
	r    *bufio.Reader
	done bool  // COMPLETE delivered
	err  error // sticky failure
}

// NewDecoder creates a decoder over r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next frame.
//
// Interim frames return (frame, nil). The COMPLETE frame returns
// (frame, nil) and every call after it returns io.EOF. An ERROR frame
// surfaces as an upstream error; a stream that ends before any terminal
// frame surfaces as a transport error. Lines that are not data lines
// are ignored, and a data line whose JSON does not parse is skipped,
// unless it names the ERROR discriminator, which fails the stream
// rather than risk swallowing a reported failure.
func (d *Decoder) Next() (Frame, error) {
	if d.err != nil {
		return Frame{}, d.err
	}
	if d.done {
		return Frame{}, io.EOF
	}

	for {
		line, err := d.r.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				// Any unterminated tail is discarded undecoded.
				d.err = core.ErrTransport(core.CodeStreamCut, "stream ended before completion")
			} else {
				d.err = core.ErrTransport("READ_FAILED", "reading event stream").WithCause(err)
			}
			return Frame{}, d.err
		}

		line = strings.TrimRight(line, "\r\n")
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		raw := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
		if raw == "" {
			continue
		}

		var f Frame
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			if strings.Contains(raw, `"`+string(FrameError)+`"`) {
				d.err = core.ErrProtocol(core.CodeBadFrame, "unparseable error frame").WithCause(err)
				return Frame{}, d.err
			}
			// Malformed ordinary frame: drop and keep reading.
			continue
		}

		switch f.Type {
		case FrameProgress, FrameStreamingURL:
			return f, nil
		case FrameComplete:
			d.done = true
			return f, nil
		case FrameError:
			d.err = core.ErrUpstream(core.CodeAgentFailed, errMessage(f))
			return Frame{}, d.err
		default:
			// Unknown but well-formed frame types are skipped so newer
			// services can add frames without breaking old readers.
			continue
		}
	}
}

func errMessage(f Frame) string {
	if f.Message != "" {
		return f.Message
	}
	return "agent reported an error"
}

// Drain consumes the remaining frames, invoking fn for each interim
// frame, and returns the COMPLETE payload. It is the collect form of
// Next for callers that want the whole sequence.
func (d *Decoder) Drain(fn func(Frame)) (json.RawMessage, error) {
	for {
		f, err := d.Next()
		if err != nil {
			if err == io.EOF {
				return nil, core.ErrProtocol(core.CodeDecoderDone, "decoder already drained")
			}
			return nil, err
		}
		if f.Type == FrameComplete {
			return f.Payload, nil
		}
		if fn != nil {
			fn(f)
		}
	}
}

// String renders a frame for logs.
func (f Frame) String() string {
	switch f.Type {
	case FrameProgress:
		return fmt.Sprintf("progress: %s", f.Message)
	case FrameStreamingURL:
		return fmt.Sprintf("stream at %s", f.URL)
	case FrameComplete:
		return fmt.Sprintf("complete (%d bytes)", len(f.Payload))
	case FrameError:
		return fmt.Sprintf("error: %s", f.Message)
	default:
		return string(f.Type)
	}
}

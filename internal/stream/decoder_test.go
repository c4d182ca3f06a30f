package stream

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/adsmith-io/adsmith/internal/core"
)

// chunkReader yields at most n bytes per Read to exercise arbitrary
// frame splits.
type chunkReader struct {
	data []byte
	n    int
	pos  int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if c.pos >= len(c.data) {
		return 0, io.EOF
	}
	end := c.pos + c.n
	if end > len(c.data) {
		end = len(c.data)
	}
	copied := copy(p, c.data[c.pos:end])
	c.pos += copied
	return copied, nil
}

const happyStream = "data: {\"type\":\"PROGRESS\",\"message\":\"searching\"}\n" +
	"data: {\"type\":\"STREAMING_URL\",\"url\":\"https://watch/1\"}\n" +
	"data: {\"type\":\"COMPLETE\",\"payload\":{\"ad_count\":4}}\n"

func collect(t *testing.T, d *Decoder) ([]Frame, error) {
	t.Helper()
	var frames []Frame
	for {
		f, err := d.Next()
		if err != nil {
			return frames, err
		}
		frames = append(frames, f)
		if f.Type == FrameComplete {
			return frames, nil
		}
	}
}

func TestDecoder_HappyPath(t *testing.T) {
	d := NewDecoder(strings.NewReader(happyStream))
	frames, err := collect(t, d)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	if frames[0].Type != FrameProgress || frames[0].Message != "searching" {
		t.Errorf("frame 0 = %+v", frames[0])
	}
	if frames[1].Type != FrameStreamingURL || frames[1].URL != "https://watch/1" {
		t.Errorf("frame 1 = %+v", frames[1])
	}
	if frames[2].Type != FrameComplete {
		t.Errorf("frame 2 = %+v", frames[2])
	}
	var payload struct {
		AdCount int `json:"ad_count"`
	}
	if err := json.Unmarshal(frames[2].Payload, &payload); err != nil || payload.AdCount != 4 {
		t.Errorf("payload = %s", frames[2].Payload)
	}

	// The sequence is over; later calls report EOF.
	if _, err := d.Next(); err != io.EOF {
		t.Errorf("expected io.EOF after COMPLETE, got %v", err)
	}
	if _, err := d.Next(); err != io.EOF {
		t.Errorf("EOF must be sticky, got %v", err)
	}
}

func TestDecoder_ChunkBoundaryIndependence(t *testing.T) {
	want, err := collect(t, NewDecoder(strings.NewReader(happyStream)))
	if err != nil {
		t.Fatalf("reference decode: %v", err)
	}

	for n := 1; n <= len(happyStream); n++ {
		d := NewDecoder(&chunkReader{data: []byte(happyStream), n: n})
		got, err := collect(t, d)
		if err != nil {
			t.Fatalf("chunk size %d: %v", n, err)
		}
		if len(got) != len(want) {
			t.Fatalf("chunk size %d: %d frames, want %d", n, len(got), len(want))
		}
		for i := range got {
			if got[i].Type != want[i].Type || got[i].Message != want[i].Message ||
				got[i].URL != want[i].URL || string(got[i].Payload) != string(want[i].Payload) {
				t.Fatalf("chunk size %d: frame %d = %+v, want %+v", n, i, got[i], want[i])
			}
		}
	}
}

func TestDecoder_IgnoresNonDataLines(t *testing.T) {
	input := ": heartbeat\n" +
		"\n" +
		"event: noise\n" +
		"data: {\"type\":\"PROGRESS\",\"message\":\"ok\"}\n" +
		"data: {\"type\":\"COMPLETE\",\"payload\":{}}\n"
	frames, err := collect(t, NewDecoder(strings.NewReader(input)))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
}

func TestDecoder_SkipsMalformedFrame(t *testing.T) {
	input := "data: {not json at all\n" +
		"data: {\"type\":\"PROGRESS\",\"message\":\"after the junk\"}\n" +
		"data: {\"type\":\"COMPLETE\",\"payload\":{}}\n"
	frames, err := collect(t, NewDecoder(strings.NewReader(input)))
	if err != nil {
		t.Fatalf("malformed ordinary frame must be skipped: %v", err)
	}
	if len(frames) != 2 || frames[0].Message != "after the junk" {
		t.Fatalf("frames = %+v", frames)
	}
}

func TestDecoder_MalformedErrorFrameFailsStream(t *testing.T) {
	input := "data: {\"type\":\"ERROR\",\"message\":broken\n" +
		"data: {\"type\":\"COMPLETE\",\"payload\":{}}\n"
	d := NewDecoder(strings.NewReader(input))
	_, err := d.Next()
	if err == nil {
		t.Fatalf("unparseable error frame must fail the stream")
	}
	if !core.IsProtocol(err) {
		t.Errorf("expected protocol category, got %s", core.GetCategory(err))
	}

	// Sticky: the COMPLETE behind it is never reached.
	_, err2 := d.Next()
	if !errors.Is(err2, err) {
		t.Errorf("expected sticky error, got %v", err2)
	}
}

func TestDecoder_ErrorFrame(t *testing.T) {
	input := "data: {\"type\":\"PROGRESS\",\"message\":\"working\"}\n" +
		"data: {\"type\":\"ERROR\",\"message\":\"quota exceeded\"}\n"
	d := NewDecoder(strings.NewReader(input))

	f, err := d.Next()
	if err != nil || f.Type != FrameProgress {
		t.Fatalf("first frame: %+v, %v", f, err)
	}

	_, err = d.Next()
	if err == nil {
		t.Fatalf("expected upstream error")
	}
	if !core.IsUpstream(err) {
		t.Errorf("expected upstream category, got %s", core.GetCategory(err))
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("error should carry the agent message: %v", err)
	}

	if _, err2 := d.Next(); err2 == nil || !core.IsUpstream(err2) {
		t.Errorf("error must be sticky, got %v", err2)
	}
}

func TestDecoder_TruncatedStream(t *testing.T) {
	input := "data: {\"type\":\"PROGRESS\",\"message\":\"working\"}\n"
	d := NewDecoder(strings.NewReader(input))

	if _, err := d.Next(); err != nil {
		t.Fatalf("first frame: %v", err)
	}
	_, err := d.Next()
	if err == nil {
		t.Fatalf("stream cut before COMPLETE must fail")
	}
	if !core.IsTransport(err) {
		t.Errorf("expected transport category, got %s", core.GetCategory(err))
	}
}

func TestDecoder_UnterminatedTailNeverDecodes(t *testing.T) {
	// The final COMPLETE line is missing its newline, so it does not count.
	input := "data: {\"type\":\"PROGRESS\",\"message\":\"working\"}\n" +
		"data: {\"type\":\"COMPLETE\",\"payload\":{}}"
	d := NewDecoder(strings.NewReader(input))

	if _, err := d.Next(); err != nil {
		t.Fatalf("first frame: %v", err)
	}
	_, err := d.Next()
	if err == nil || !core.IsTransport(err) {
		t.Fatalf("unterminated terminal frame must read as a cut stream, got %v", err)
	}
}

func TestDecoder_EmptyStream(t *testing.T) {
	_, err := NewDecoder(strings.NewReader("")).Next()
	if err == nil || !core.IsTransport(err) {
		t.Fatalf("empty stream must fail as transport, got %v", err)
	}
}

func TestDecoder_CRLFAndTightPrefix(t *testing.T) {
	input := "data:{\"type\":\"PROGRESS\",\"message\":\"tight\"}\r\n" +
		"data: {\"type\":\"COMPLETE\",\"payload\":{}}\r\n"
	frames, err := collect(t, NewDecoder(strings.NewReader(input)))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(frames) != 2 || frames[0].Message != "tight" {
		t.Fatalf("frames = %+v", frames)
	}
}

func TestDecoder_UnknownFrameTypeSkipped(t *testing.T) {
	input := "data: {\"type\":\"TELEMETRY\",\"message\":\"ignore me\"}\n" +
		"data: {\"type\":\"COMPLETE\",\"payload\":{}}\n"
	frames, err := collect(t, NewDecoder(strings.NewReader(input)))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(frames) != 1 || frames[0].Type != FrameComplete {
		t.Fatalf("frames = %+v", frames)
	}
}

func TestDecoder_Drain(t *testing.T) {
	d := NewDecoder(strings.NewReader(happyStream))
	var seen []Frame
	payload, err := d.Drain(func(f Frame) { seen = append(seen, f) })
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(seen) != 2 {
		t.Errorf("expected 2 interim frames, got %d", len(seen))
	}
	if string(payload) != `{"ad_count":4}` {
		t.Errorf("payload = %s", payload)
	}
}

func TestDecoder_DrainPropagatesFailure(t *testing.T) {
	d := NewDecoder(strings.NewReader("data: {\"type\":\"ERROR\",\"message\":\"nope\"}\n"))
	_, err := d.Drain(nil)
	if err == nil || !core.IsUpstream(err) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

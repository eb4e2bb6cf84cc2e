package l1landmarks

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
)

// maxLineBytes bounds a single JSON line; a 33-point pose is well under 8 KiB.
const maxLineBytes = 1 << 20

// record is the on-disk form of one frame. Exactly one of Landmarks or
// Pose is expected; Pose carries the estimator's indexed 33-point array.
type record struct {
	Index     *int64             `json:"index"`
	Timestamp *float64           `json:"timestamp"`
	Landmarks map[Joint]Landmark `json:"landmarks,omitempty"`
	Pose      []Landmark         `json:"pose,omitempty"`
}

// Decoder reads frames from a JSON Lines stream, one frame per line.
// Blank lines are skipped.
type Decoder struct {
	scanner *bufio.Scanner
	line    int
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &Decoder{scanner: s}
}

// Next returns the next frame, or io.EOF when the stream is exhausted.
func (d *Decoder) Next() (Frame, error) {
	for d.scanner.Scan() {
		d.line++
		raw := bytes.TrimSpace(d.scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return Frame{}, fmt.Errorf("line %d: failed to parse frame JSON: %w", d.line, err)
		}
		f, err := rec.frame()
		if err != nil {
			return Frame{}, fmt.Errorf("line %d: %w", d.line, err)
		}
		return f, nil
	}
	if err := d.scanner.Err(); err != nil {
		return Frame{}, fmt.Errorf("failed to read frame stream: %w", err)
	}
	return Frame{}, io.EOF
}

// All yields every remaining frame. Iteration stops after the first error.
func (d *Decoder) All() iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		for {
			f, err := d.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(f, err) || err != nil {
				return
			}
		}
	}
}

func (r record) frame() (Frame, error) {
	if r.Index == nil {
		return Frame{}, errors.New("frame is missing index")
	}
	if r.Timestamp == nil {
		return Frame{}, errors.New("frame is missing timestamp")
	}
	switch {
	case r.Pose != nil && r.Landmarks != nil:
		return Frame{}, errors.New("frame has both landmarks and pose")
	case r.Pose != nil:
		return FromPoseArray(*r.Index, *r.Timestamp, r.Pose)
	default:
		lms := r.Landmarks
		if lms == nil {
			lms = map[Joint]Landmark{}
		}
		return Frame{Index: *r.Index, Timestamp: *r.Timestamp, Landmarks: lms}, nil
	}
}
